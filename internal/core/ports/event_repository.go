package ports

import (
	"context"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

// AuthEventRepository persists audit records of authentication outcomes.
type AuthEventRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}

// AuthEventReader lists recorded events, newest first.
type AuthEventReader interface {
	Recent(ctx context.Context, username string, limit int) ([]domain.AuthEvent, error)
}
