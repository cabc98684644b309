package ports

import (
	"context"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

// IdentityStore is the primary credential backend: a relational database with
// one relation per role (label_manager, artist).
type IdentityStore interface {
	// Ping runs a trivial query (SELECT now()) to prove the database answers.
	Ping(ctx context.Context) error
	// FindCredential returns the row of table matching username, or
	// domain.ErrUserNotFound.
	FindCredential(ctx context.Context, table, username string) (*domain.StoredCredential, error)
	// Exists reports whether any credential relation already holds username or email.
	Exists(ctx context.Context, username, email string) (bool, error)
	// Create inserts cred into table and returns the persisted identity.
	// A uniqueness violation is reported as domain.ErrUserExists.
	Create(ctx context.Context, table string, cred domain.StoredCredential) (*domain.Identity, error)
}
