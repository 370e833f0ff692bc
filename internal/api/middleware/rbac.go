package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agent007moss/MLT/internal/core/domain"
)

// RequirePermission admits the request only when the authenticated role
// holds permission under policy. It must run after Auth.
func RequirePermission(policy *domain.PermissionPolicy, permission string) echo.MiddlewareFunc {
	return RequireAnyPermission(policy, permission)
}

// RequireAnyPermission admits the request when the role holds at least one
// of permissions.
func RequireAnyPermission(policy *domain.PermissionPolicy, permissions ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ContextRole).(string)
			if role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}
			for _, p := range permissions {
				if policy.IsAllowed(role, p) {
					return next(c)
				}
			}
			return domain.ErrForbidden
		}
	}
}
