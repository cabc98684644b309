package ports

import (
	"context"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

// CredentialService resolves logins and registrations against the configured
// backends. Implementations never return errors or panic: every outcome is an
// AuthResult.
type CredentialService interface {
	Authenticate(ctx context.Context, username, password string) domain.AuthResult
	Register(ctx context.Context, user domain.NewUser, password string) domain.AuthResult
	Probe(ctx context.Context) domain.Status
	Status() domain.Status
}
