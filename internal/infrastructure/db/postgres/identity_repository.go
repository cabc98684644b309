package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

const uniqueViolation = "23505"

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IdentityRepository implements ports.IdentityStore on Postgres.
type IdentityRepository struct {
	db DBTX
}

func NewIdentityRepository(db DBTX) *IdentityRepository {
	return &IdentityRepository{db: db}
}

func (r *IdentityRepository) Ping(ctx context.Context) error {
	var now time.Time
	if err := r.db.QueryRow(ctx, `SELECT now()`).Scan(&now); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

func (r *IdentityRepository) FindCredential(ctx context.Context, table, username string) (*domain.StoredCredential, error) {
	if !domain.IsCredentialTable(table) {
		return nil, fmt.Errorf("%w: unknown credential table %q", domain.ErrValidation, table)
	}

	query := fmt.Sprintf(`
		SELECT id, username, password, COALESCE(email, ''), COALESCE(fullname, ''), COALESCE(avatar, '')
		FROM %s
		WHERE username = $1
		LIMIT 1`, table)

	cred, err := scanCredential(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find %s credential: %w", table, err)
	}
	cred.SourceTable = table
	return cred, nil
}

func (r *IdentityRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM label_manager WHERE username = $1 OR email = $2
			UNION ALL
			SELECT 1 FROM artist WHERE username = $1 OR email = $2
		)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("check existing user: %w", err)
	}
	return exists, nil
}

func (r *IdentityRepository) Create(ctx context.Context, table string, cred domain.StoredCredential) (*domain.Identity, error) {
	if !domain.IsCredentialTable(table) {
		return nil, fmt.Errorf("%w: unknown credential table %q", domain.ErrValidation, table)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, username, password, email, fullname, avatar)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, username, COALESCE(email, ''), COALESCE(fullname, ''), COALESCE(avatar, '')`, table)

	created := &domain.Identity{Role: cred.Role, SourceTable: table}
	err := r.db.QueryRow(ctx, query,
		cred.ID, cred.Username, cred.Password, nullable(cred.Email), nullable(cred.FullName), nullable(cred.Avatar),
	).Scan(&created.ID, &created.Username, &created.Email, &created.FullName, &created.Avatar)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	return created, nil
}

func scanCredential(row pgx.Row) (*domain.StoredCredential, error) {
	c := &domain.StoredCredential{}
	err := row.Scan(&c.ID, &c.Username, &c.Password, &c.Email, &c.FullName, &c.Avatar)
	return c, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
