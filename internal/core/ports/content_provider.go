package ports

import (
	"context"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

// ContentProvider is the secondary identity source reached over HTTP.
type ContentProvider interface {
	// Authenticate returns the identity for the credentials, or
	// domain.ErrInvalidCredentials when the API rejects them.
	Authenticate(ctx context.Context, username, password string) (*domain.Identity, error)
	// Reachable performs a HEAD request against the API base URL.
	Reachable(ctx context.Context) error
}
