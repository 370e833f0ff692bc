package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/agent007moss/MLT/internal/core/ports"
)

// Context keys set by Auth.
const (
	ContextPrincipal = "principal"
	ContextUserID    = "user_id"
	ContextRole      = "role"
)

// Auth resolves the bearer token through authorizer and injects the
// principal into the context. Token and session failures surface as the
// domain errors returned by the authorizer.
func Auth(authorizer ports.Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			principal, err := authorizer.Authorize(c.Request().Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				return err
			}

			c.Set(ContextPrincipal, principal)
			c.Set(ContextUserID, principal.UserID)
			c.Set(ContextRole, string(principal.Role))

			return next(c)
		}
	}
}

// PrincipalFrom returns the principal injected by Auth.
func PrincipalFrom(c echo.Context) (*ports.Principal, bool) {
	p, ok := c.Get(ContextPrincipal).(*ports.Principal)
	return p, ok && p != nil
}
