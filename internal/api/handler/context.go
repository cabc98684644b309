package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// sessionClaims is what the Auth middleware leaves in the echo context.
type sessionClaims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Source   string `json:"source,omitempty"`
}

// ctxClaims extracts the claims injected by the Auth middleware. A missing
// username or role means the middleware did not run and is rejected with 401.
func ctxClaims(c echo.Context) (sessionClaims, error) {
	var sc sessionClaims
	sc.Username, _ = c.Get("username").(string)
	sc.Role, _ = c.Get("role").(string)
	if sc.Username == "" || sc.Role == "" {
		return sessionClaims{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	sc.UserID, _ = c.Get("user_id").(string)
	sc.Source, _ = c.Get("source").(string)
	return sc, nil
}
