package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ankunstudio/backoffice/internal/api/metrics"
	"github.com/ankunstudio/backoffice/internal/core/domain"
	"github.com/ankunstudio/backoffice/internal/core/ports"
)

// AuthHandler exposes the credential chain over HTTP.
type AuthHandler struct {
	svc         ports.CredentialService
	tokens      ports.TokenIssuer
	limiter     ports.LoginLimiter
	exposeDebug bool
	log         zerolog.Logger
}

// AuthHandlerOptions configures optional collaborators. A nil Limiter
// disables throttling.
type AuthHandlerOptions struct {
	Limiter     ports.LoginLimiter
	ExposeDebug bool
	Log         zerolog.Logger
}

func NewAuthHandler(svc ports.CredentialService, tokens ports.TokenIssuer, opts AuthHandlerOptions) *AuthHandler {
	return &AuthHandler{
		svc:         svc,
		tokens:      tokens,
		limiter:     opts.Limiter,
		exposeDebug: opts.ExposeDebug,
		log:         opts.Log,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

// registerRequest leaves the required checks to the service so the response
// carries its canonical message. Self-registration has no role field; every
// account created this way is an Artist.
type registerRequest struct {
	Username string `json:"username" validate:"max=128"`
	Email    string `json:"email"    validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"max=72"`
	FullName string `json:"fullName" validate:"max=256"`
	Avatar   string `json:"avatar"   validate:"max=1024"`
}

// createUserRequest is the manager-only variant that may pick a role.
type createUserRequest struct {
	Username string `json:"username" validate:"max=128"`
	Email    string `json:"email"    validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"max=72"`
	FullName string `json:"fullName" validate:"max=256"`
	Role     string `json:"role"     validate:"max=64"`
	Avatar   string `json:"avatar"   validate:"max=1024"`
}

type loginResponse struct {
	domain.AuthResult
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Login runs the credential chain and returns a session token on success.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  domain.AuthResult
// @Failure      429   {object}  map[string]string
// @Failure      500   {object}  domain.AuthResult
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if h.limiter != nil {
		blocked, err := h.limiter.Blocked(ctx, req.Username)
		if err != nil {
			h.log.Warn().Err(err).Str("username", req.Username).Msg("login limiter unavailable, allowing attempt")
		} else if blocked {
			metrics.LoginThrottledTotal.Inc()
			return domain.ErrTooManyAttempts
		}
	}

	result := h.svc.Authenticate(ctx, req.Username, req.Password)
	if !result.Success {
		if result.Message == domain.MsgInvalidCredentials {
			h.recordFailure(c, req.Username)
		}
		return c.JSON(statusFor(result), h.redact(result))
	}

	if h.limiter != nil {
		if err := h.limiter.Reset(ctx, req.Username); err != nil {
			h.log.Warn().Err(err).Str("username", req.Username).Msg("login limiter reset failed")
		}
	}

	resp := loginResponse{AuthResult: h.redact(result)}
	if h.tokens != nil {
		token, exp, err := h.tokens.Issue(result.User, result.Source)
		if err != nil {
			return err
		}
		resp.Token = token
		resp.ExpiresAt = &exp
	}
	return c.JSON(http.StatusOK, resp)
}

// Register creates an account in the primary database.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  domain.AuthResult
// @Failure      400   {object}  domain.AuthResult
// @Failure      409   {object}  domain.AuthResult
// @Failure      503   {object}  domain.AuthResult
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	return h.register(c, req, domain.RoleArtist)
}

// CreateUser registers an account with an explicit role.
//
// @Summary      Create a user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "User details"
// @Success      201   {object}  domain.AuthResult
// @Failure      400   {object}  domain.AuthResult
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  domain.AuthResult
// @Router       /admin/users [post]
func (h *AuthHandler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	return h.register(c, registerRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Avatar:   req.Avatar,
	}, req.Role)
}

func (h *AuthHandler) register(c echo.Context, req registerRequest, role string) error {
	result := h.svc.Register(c.Request().Context(), domain.NewUser{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     role,
		Avatar:   req.Avatar,
	}, req.Password)

	if !result.Success {
		return c.JSON(statusFor(result), h.redact(result))
	}
	return c.JSON(http.StatusCreated, h.redact(result))
}

// Status reports backend reachability without triggering a probe.
//
// @Summary      Backend status
// @Tags         auth
// @Produce      json
// @Success      200  {object}  domain.Status
// @Router       /auth/status [get]
func (h *AuthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Status())
}

// Probe re-checks both backends and returns the fresh status.
//
// @Summary      Re-probe backends
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Status
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /auth/probe [post]
func (h *AuthHandler) Probe(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Probe(c.Request().Context()))
}

// Me echoes the session carried by the bearer token.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  sessionClaims
// @Failure      401  {object}  map[string]string
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, claims)
}

func (h *AuthHandler) recordFailure(c echo.Context, username string) {
	if h.limiter == nil {
		return
	}
	n, err := h.limiter.RecordFailure(c.Request().Context(), username)
	if err != nil {
		h.log.Warn().Err(err).Str("username", username).Msg("login limiter record failed")
		return
	}
	h.log.Debug().Str("username", username).Int64("failures", n).Msg("failed login recorded")
}

func (h *AuthHandler) redact(r domain.AuthResult) domain.AuthResult {
	if !h.exposeDebug {
		r.Debug = ""
	}
	return r
}

// statusFor maps a failed result to an HTTP status.
func statusFor(r domain.AuthResult) int {
	switch r.Message {
	case domain.MsgInvalidCredentials:
		return http.StatusUnauthorized
	case domain.MsgRequiredFields, domain.MsgPasswordTooLong:
		return http.StatusBadRequest
	case domain.MsgUserExists:
		return http.StatusConflict
	case domain.MsgPersistenceFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
