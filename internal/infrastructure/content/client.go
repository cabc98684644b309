// Package content authenticates users against the external content API.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	httpclient "github.com/appleboy/go-httpclient"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

const (
	loginPath           = "/auth/login"
	defaultAPIKeyHeader = "X-API-Key"
	defaultTimeout      = 10 * time.Second
	maxBodyPreview      = 200
)

// ErrInvalidResponse is returned when the API answers with something other
// than the documented login payload.
var ErrInvalidResponse = errors.New("content API: invalid response")

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the client settings. APIKey is sent in APIKeyHeader
// (default X-API-Key) when set.
type Config struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	Timeout      time.Duration
}

// Client implements ports.ContentProvider over HTTP.
type Client struct {
	baseURL string
	http    HTTPDoer
}

// NewClient creates a Client. A nil doer gets an authenticating client that
// attaches the API key to every request.
func NewClient(cfg Config, doer HTTPDoer) (*Client, error) {
	if doer == nil {
		c, err := newAuthClient(cfg)
		if err != nil {
			return nil, err
		}
		doer = c
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    doer,
	}, nil
}

func newAuthClient(cfg Config) (*http.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	header := cfg.APIKeyHeader
	if header == "" {
		header = defaultAPIKeyHeader
	}

	mode := httpclient.AuthModeNone
	if cfg.APIKey != "" {
		mode = httpclient.AuthModeSimple
	}

	client, err := httpclient.NewAuthClient(
		mode,
		cfg.APIKey,
		httpclient.WithTimeout(timeout),
		httpclient.WithHeaderName(header),
	)
	if err != nil {
		return nil, fmt.Errorf("create content API client: %w", err)
	}
	return client, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success  bool   `json:"success"`
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Authenticate posts the credentials to {base}/auth/login. A rejection from
// the API maps to domain.ErrInvalidCredentials; 5xx, transport and decoding
// failures are returned as plain errors.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*domain.Identity, error) {
	payload, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("marshal content login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build content login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrInvalidResponse, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d - %s", ErrInvalidResponse, resp.StatusCode, preview(body))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrInvalidCredentials, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: HTTP %d", ErrInvalidResponse, resp.StatusCode)
	}

	var out loginResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if !out.Success {
		return nil, domain.ErrInvalidCredentials
	}
	if out.UserID == "" {
		return nil, fmt.Errorf("%w: success without user_id", ErrInvalidResponse)
	}

	return &domain.Identity{
		ID:       out.UserID,
		Username: username,
		Email:    out.Email,
		FullName: out.FullName,
		Role:     out.Role,
		Avatar:   out.Avatar,
	}, nil
}

// Reachable issues a HEAD against the base URL. Any status below 500 counts
// as reachable.
func (c *Client) Reachable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("build content probe request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("content probe: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("content probe: HTTP %d", resp.StatusCode)
	}
	return nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > maxBodyPreview {
		s = s[:maxBodyPreview] + "..."
	}
	return s
}
