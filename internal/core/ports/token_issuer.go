package ports

import (
	"time"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

// TokenIssuer signs session tokens for authenticated identities.
type TokenIssuer interface {
	Issue(user *domain.Identity, source domain.CredentialSource) (string, time.Time, error)
}
