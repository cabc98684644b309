package domain

import (
	"errors"
	"time"
)

// CredentialSource names the backend that resolved an identity.
// The declaration order is the resolution priority.
type CredentialSource string

const (
	SourcePrimaryDatabase CredentialSource = "primary_database"
	SourceContentAPI      CredentialSource = "content_api"
	SourceDemoFallback    CredentialSource = "demo_fallback"
)

// TokenIssuer is the iss claim of session tokens.
const TokenIssuer = "backoffice"

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// User-facing result messages.
const (
	MsgInvalidCredentials   = "Invalid credentials"
	MsgRequiredFields       = "Username, email, and password are required"
	MsgUserExists           = "Username or email already exists"
	MsgServiceError         = "Authentication service error"
	MsgPersistenceFailed    = "Registration could not be persisted"
	MsgPasswordTooLong      = "Password must be at most 72 bytes"
	MsgAuthenticated        = "Authenticated"
	MsgRegistered           = "Registered"
	MsgRegisteredNotPersist = "Registered (not persisted)"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("validation error")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnexpected         = errors.New("unexpected service error")
	ErrForbidden          = errors.New("access forbidden")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
)

// AuthResult is the structured outcome of every authenticate or register call.
type AuthResult struct {
	Success bool             `json:"success"`
	User    *Identity        `json:"user,omitempty"`
	Message string           `json:"message,omitempty"`
	Source  CredentialSource `json:"source,omitempty"`
	Debug   string           `json:"debug,omitempty"`
}

// Fail builds a failed result with message.
func Fail(message string) AuthResult {
	return AuthResult{Success: false, Message: message}
}

// Status is a snapshot of backend reachability.
type Status struct {
	PrimaryAvailable    bool      `json:"primaryAvailable"`
	ContentAPIAvailable bool      `json:"contentApiAvailable"`
	Probed              bool      `json:"probed"`
	ProbedAt            time.Time `json:"probedAt,omitempty"`
}
