package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ankunstudio/backoffice/internal/core/domain"
	"github.com/ankunstudio/backoffice/internal/core/ports"
	"github.com/ankunstudio/backoffice/internal/core/service"
	"github.com/ankunstudio/backoffice/internal/infrastructure/db/sqlite"
)

const testSecret = "router-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newServerWith(t, service.NewCredentialService(nil, nil, service.Options{AllowDemoLogin: true}, zerolog.Nop()))
}

func newSQLiteServer(t *testing.T, allowDemo bool) *httptest.Server {
	t.Helper()
	store, err := sqlite.Open(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return newServerWith(t, service.NewCredentialService(store, nil, service.Options{AllowDemoLogin: allowDemo}, zerolog.Nop()))
}

func newServerWith(t *testing.T, svc ports.CredentialService) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	e := NewRouter(Deps{
		Service:    svc,
		Tokens:     service.NewTokenIssuer(testSecret, time.Hour),
		JWTSecret:  testSecret,
		Log:        zerolog.Nop(),
		Registerer: reg,
		Gatherer:   reg,
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/auth/login", "application/json",
		strings.NewReader(`{"username":"`+username+`","password":"`+password+`"}`))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d", username, resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Token == "" {
		t.Fatalf("expected token, got %+v (%v)", body, err)
	}
	return body.Token
}

func get(t *testing.T, srv *httptest.Server, method, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_ManagerSession(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "admin", "admin")

	resp := get(t, srv, http.MethodGet, "/auth/me", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /auth/me, got %d", resp.StatusCode)
	}
	var me map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&me)
	if me["role"] != "Label Manager" || me["source"] != "demo_fallback" {
		t.Fatalf("unexpected session %+v", me)
	}

	if resp := get(t, srv, http.MethodGet, "/admin/status", token); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /admin/status, got %d", resp.StatusCode)
	}
	if resp := get(t, srv, http.MethodPost, "/auth/probe", token); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /auth/probe, got %d", resp.StatusCode)
	}
	if resp := get(t, srv, http.MethodGet, "/admin/events", token); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without audit sink, got %d", resp.StatusCode)
	}
}

func TestRouter_ArtistIsNotManager(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "artist", "123456")

	if resp := get(t, srv, http.MethodGet, "/admin/status", token); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if resp := get(t, srv, http.MethodPost, "/auth/probe", token); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func postJSON(t *testing.T, srv *httptest.Server, path, token, body string) (int, domain.AuthResult) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	var result domain.AuthResult
	_ = json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

func TestRouter_SelfRegistrationIgnoresRole(t *testing.T) {
	srv := newSQLiteServer(t, false)

	code, result := postJSON(t, srv, "/auth/register", "",
		`{"username":"mallory","email":"mallory@example.com","password":"pw","role":"Admin"}`)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %+v", code, result)
	}
	if result.User == nil || result.User.Role != domain.RoleArtist || result.User.SourceTable != domain.TableArtist {
		t.Fatalf("expected an artist account, got %+v", result.User)
	}

	token := login(t, srv, "mallory", "pw")
	if resp := get(t, srv, http.MethodGet, "/admin/status", token); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 from /admin/status, got %d", resp.StatusCode)
	}
	if resp := get(t, srv, http.MethodPost, "/auth/probe", token); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 from /auth/probe, got %d", resp.StatusCode)
	}
}

func TestRouter_ManagerCreatesManager(t *testing.T) {
	srv := newSQLiteServer(t, true)
	body := `{"username":"boss","email":"boss@example.com","password":"pw","role":"Label Manager"}`

	if code, _ := postJSON(t, srv, "/admin/users", "", body); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}
	artist := login(t, srv, "artist", "123456")
	if code, _ := postJSON(t, srv, "/admin/users", artist, body); code != http.StatusForbidden {
		t.Fatalf("expected 403 for artist, got %d", code)
	}

	manager := login(t, srv, "admin", "admin")
	code, result := postJSON(t, srv, "/admin/users", manager, body)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %+v", code, result)
	}
	if result.User == nil || result.User.SourceTable != domain.TableLabelManager {
		t.Fatalf("expected a label_manager row, got %+v", result.User)
	}

	token := login(t, srv, "boss", "pw")
	if resp := get(t, srv, http.MethodGet, "/admin/status", token); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for created manager, got %d", resp.StatusCode)
	}
}

func TestRouter_PublicRoutes(t *testing.T) {
	srv := newTestServer(t)

	cases := map[string]int{
		"/health":       http.StatusOK,
		"/health/ready": http.StatusOK,
		"/auth/status":  http.StatusOK,
		"/metrics":      http.StatusOK,
		"/auth/me":      http.StatusUnauthorized,
		"/admin/status": http.StatusUnauthorized,
		"/nope":         http.StatusNotFound,
	}
	for path, want := range cases {
		if resp := get(t, srv, http.MethodGet, path, ""); resp.StatusCode != want {
			t.Fatalf("%s: expected %d, got %d", path, want, resp.StatusCode)
		}
	}
}

func TestRouter_LoginFailures(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/auth/login", "application/json",
		strings.NewReader(`{"username":"artist","password":"wrongpass"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp2, err := http.Post(srv.URL+"/auth/login", "application/json", strings.NewReader(`{"username":"artist"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var body map[string]string
	_ = json.NewDecoder(resp2.Body).Decode(&body)
	if resp2.StatusCode != http.StatusBadRequest || !strings.Contains(body["error"], "password is required") {
		t.Fatalf("expected 400 validation error, got %d %v", resp2.StatusCode, body)
	}
}
