package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

func TestRBAC_Allows(t *testing.T) {
	for _, role := range []string{domain.RoleLabelManager, domain.RoleAdmin} {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set("role", role)

		called := false
		mw := RBAC(domain.RoleLabelManager, domain.RoleAdmin)
		handler := mw(func(c echo.Context) error {
			called = true
			return c.NoContent(http.StatusOK)
		})

		if err := handler(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if !called {
			t.Fatalf("%s: next handler not called", role)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
}

func TestRBAC_Forbids(t *testing.T) {
	for _, role := range []string{domain.RoleArtist, ""} {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if role != "" {
			c.Set("role", role)
		}

		mw := RBAC(domain.RoleLabelManager, domain.RoleAdmin)
		handler := mw(func(c echo.Context) error {
			t.Fatalf("should not reach next handler")
			return nil
		})

		_ = handler(c)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%q: expected 403, got %d", role, rec.Code)
		}
	}
}
