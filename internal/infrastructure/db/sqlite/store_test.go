package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ankunstudio/backoffice/internal/core/domain"
	"github.com/ankunstudio/backoffice/internal/core/service"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "backoffice.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_CreateFindExists(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	if _, err := store.FindCredential(ctx, domain.TableLabelManager, "boss"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	created, err := store.Create(ctx, domain.TableLabelManager, domain.StoredCredential{
		Identity: domain.Identity{ID: "lm-1", Username: "boss", Email: "boss@label.com"},
		Password: "admin",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.SourceTable != domain.TableLabelManager {
		t.Fatalf("unexpected source table %q", created.SourceTable)
	}

	cred, err := store.FindCredential(ctx, domain.TableLabelManager, "boss")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if cred.ID != "lm-1" || cred.Password != "admin" || cred.FullName != "" {
		t.Fatalf("unexpected credential: %+v", cred)
	}

	for _, tc := range []struct{ username, email string }{{"boss", "other@x.com"}, {"other", "boss@label.com"}} {
		exists, err := store.Exists(ctx, tc.username, tc.email)
		if err != nil || !exists {
			t.Fatalf("Exists(%q, %q) = %v, %v", tc.username, tc.email, exists, err)
		}
	}
	if exists, _ := store.Exists(ctx, "fresh", "fresh@x.com"); exists {
		t.Fatalf("unexpected existing user")
	}
}

func TestStore_UniqueViolation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	cred := domain.StoredCredential{Identity: domain.Identity{ID: "a-1", Username: "x", Email: "x@test.com"}, Password: "pw"}

	if _, err := store.Create(ctx, domain.TableArtist, cred); err != nil {
		t.Fatalf("create: %v", err)
	}
	cred.ID = "a-2"
	if _, err := store.Create(ctx, domain.TableArtist, cred); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestStore_RejectsUnknownTable(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.FindCredential(context.Background(), "sqlite_master", "x"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), "sqlite:"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !IsSQLiteURL("sqlite::memory:") || !IsSQLiteURL("file:x.db") || IsSQLiteURL("postgres://x") {
		t.Fatalf("IsSQLiteURL misclassified")
	}
}

func TestCredentialService_OnSQLite(t *testing.T) {
	store := openTestStore(t)
	svc := service.NewCredentialService(store, nil, service.Options{BackendTimeout: 5 * time.Second}, zerolog.Nop())
	ctx := context.Background()

	user := domain.NewUser{Username: "x", Email: "x@test.com"}
	first := svc.Register(ctx, user, "pw")
	if !first.Success || first.Source != domain.SourcePrimaryDatabase {
		t.Fatalf("expected persisted registration, got %+v", first)
	}
	second := svc.Register(ctx, user, "pw")
	if second.Success || second.Message != domain.MsgUserExists {
		t.Fatalf("expected duplicate rejection, got %+v", second)
	}

	login := svc.Authenticate(ctx, "x", "pw")
	if !login.Success || login.User.Role != domain.RoleArtist || login.User.ID != first.User.ID {
		t.Fatalf("unexpected login: %+v", login)
	}
	if res := svc.Authenticate(ctx, "x", "nope"); res.Success || res.Message != domain.MsgInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %+v", res)
	}

	// Legacy plaintext rows in label_manager resolve with the Admin role.
	if _, err := store.Create(ctx, domain.TableLabelManager, domain.StoredCredential{
		Identity: domain.Identity{ID: "7", Username: "legacy"},
		Password: "plain",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	legacy := svc.Authenticate(ctx, "legacy", "plain")
	if !legacy.Success || legacy.User.Role != domain.RoleAdmin || legacy.User.SourceTable != domain.TableLabelManager {
		t.Fatalf("unexpected legacy login: %+v", legacy)
	}
}
