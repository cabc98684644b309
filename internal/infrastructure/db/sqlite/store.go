// Package sqlite is an embedded primary credential backend for development and
// tests. It holds the same label_manager and artist relations as the Postgres
// backend in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

const (
	sqliteConstraintUnique     = 2067
	sqliteConstraintPrimaryKey = 1555
)

const schema = `
CREATE TABLE IF NOT EXISTS label_manager (
    id         TEXT PRIMARY KEY,
    username   TEXT NOT NULL UNIQUE,
    password   TEXT NOT NULL,
    email      TEXT UNIQUE,
    fullname   TEXT,
    avatar     TEXT,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS artist (
    id         TEXT PRIMARY KEY,
    username   TEXT NOT NULL UNIQUE,
    password   TEXT NOT NULL,
    email      TEXT UNIQUE,
    fullname   TEXT,
    avatar     TEXT,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// Store implements ports.IdentityStore on SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// IsSQLiteURL reports whether url selects this backend ("sqlite:<path>" or "file:<path>").
func IsSQLiteURL(url string) bool {
	return strings.HasPrefix(url, "sqlite:") || strings.HasPrefix(url, "file:")
}

// Open opens (creating if needed) the database named by url and ensures the schema.
func Open(ctx context.Context, url string) (*Store, error) {
	path := strings.TrimPrefix(url, "sqlite:")
	if path == "" {
		return nil, fmt.Errorf("%w: empty sqlite path", domain.ErrValidation)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	var now string
	if err := s.db.QueryRowContext(ctx, `SELECT datetime('now')`).Scan(&now); err != nil {
		return fmt.Errorf("sqlite ping: %w", err)
	}
	return nil
}

func (s *Store) FindCredential(ctx context.Context, table, username string) (*domain.StoredCredential, error) {
	if !domain.IsCredentialTable(table) {
		return nil, fmt.Errorf("%w: unknown credential table %q", domain.ErrValidation, table)
	}

	query := fmt.Sprintf(`
		SELECT id, username, password, COALESCE(email, ''), COALESCE(fullname, ''), COALESCE(avatar, '')
		FROM %s
		WHERE username = ?
		LIMIT 1`, table)

	c := &domain.StoredCredential{}
	err := s.db.QueryRowContext(ctx, query, username).
		Scan(&c.ID, &c.Username, &c.Password, &c.Email, &c.FullName, &c.Avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find %s credential: %w", table, err)
	}
	c.SourceTable = table
	return c, nil
}

func (s *Store) Exists(ctx context.Context, username, email string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM label_manager WHERE username = ?1 OR email = ?2
			UNION ALL
			SELECT 1 FROM artist WHERE username = ?1 OR email = ?2
		)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("check existing user: %w", err)
	}
	return exists, nil
}

func (s *Store) Create(ctx context.Context, table string, cred domain.StoredCredential) (*domain.Identity, error) {
	if !domain.IsCredentialTable(table) {
		return nil, fmt.Errorf("%w: unknown credential table %q", domain.ErrValidation, table)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, username, password, email, fullname, avatar)
		VALUES (?, ?, ?, ?, ?, ?)`, table)

	_, err := s.db.ExecContext(ctx, query,
		cred.ID, cred.Username, cred.Password, nullable(cred.Email), nullable(cred.FullName), nullable(cred.Avatar),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}

	created := cred.Identity
	created.SourceTable = table
	return &created, nil
}

func isUniqueViolation(err error) bool {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		switch coder.Code() {
		case sqliteConstraintUnique, sqliteConstraintPrimaryKey:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
