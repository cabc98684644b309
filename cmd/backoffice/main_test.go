package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sethvargo/go-envconfig"

	"github.com/ankunstudio/backoffice/internal/core/domain"
	"github.com/ankunstudio/backoffice/pkg/logger"
)

func runCommand(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	logger.Reset()
	t.Cleanup(logger.Reset)

	if env == nil {
		env = map[string]string{}
	}
	if _, ok := env["LOG_LEVEL"]; !ok {
		env["LOG_LEVEL"] = "error"
	}

	cmd := newRootCommandWith(&commandContext{lookuper: envconfig.MapLookuper(env)})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sqliteURL(t *testing.T) string {
	return "sqlite:" + filepath.Join(t.TempDir(), "backoffice.db")
}

func TestLoginCommand_DemoFallback(t *testing.T) {
	out, err := runCommand(t, map[string]string{"ALLOW_DEMO_LOGIN": "true"}, "login", "admin", "admin", "--json")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	var res domain.AuthResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if !res.Success || res.Source != domain.SourceDemoFallback || res.User.Role != domain.RoleLabelManager {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestLoginCommand_RejectsWithoutDemo(t *testing.T) {
	out, err := runCommand(t, map[string]string{"DATABASE_URL": sqliteURL(t)}, "login", "admin", "admin")
	if err == nil || err.Error() != domain.MsgInvalidCredentials {
		t.Fatalf("expected invalid credentials error, got %v", err)
	}
	if !strings.Contains(out, domain.MsgInvalidCredentials) {
		t.Fatalf("expected table with message, got %q", out)
	}
}

func TestLoginCommand_RequiresArgs(t *testing.T) {
	if _, err := runCommand(t, nil, "login", "admin"); err == nil {
		t.Fatal("expected argument error")
	}
}

func TestProbeCommand_SQLite(t *testing.T) {
	out, err := runCommand(t, map[string]string{"DATABASE_URL": sqliteURL(t)}, "probe", "--json")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}

	var st domain.Status
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if !st.Probed || !st.PrimaryAvailable || st.ContentAPIAvailable {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestProbeCommand_Table(t *testing.T) {
	out, err := runCommand(t, nil, "probe")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !strings.Contains(out, "Primary database") || !strings.Contains(out, "no") {
		t.Fatalf("unexpected table %q", out)
	}
}

func TestMigrateCommand(t *testing.T) {
	out, err := runCommand(t, map[string]string{"DATABASE_URL": sqliteURL(t)}, "migrate")
	if err != nil || !strings.Contains(out, "sqlite schema ready") {
		t.Fatalf("unexpected migrate result %q (%v)", out, err)
	}

	if _, err := runCommand(t, nil, "migrate"); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
	if _, err := runCommand(t, map[string]string{"DATABASE_URL": "mysql://x"}, "migrate"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestServeCommand_RequiresSecret(t *testing.T) {
	_, err := runCommand(t, nil, "serve")
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestRootCommand_MalformedEnv(t *testing.T) {
	_, err := runCommand(t, map[string]string{"BACKEND_TIMEOUT": "soon"}, "probe")
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestRenderResult(t *testing.T) {
	out := renderResult(domain.AuthResult{
		Success: true,
		Message: domain.MsgAuthenticated,
		Source:  domain.SourcePrimaryDatabase,
		User:    &domain.Identity{ID: "u1", Username: "artist", Role: domain.RoleArtist, SourceTable: "artist"},
	})
	for _, want := range []string{"primary_database", "artist", "Artist", "u1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}
