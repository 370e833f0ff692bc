package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agent007moss/MLT/internal/api/middleware"
	"github.com/agent007moss/MLT/internal/core/ports"
)

// ctxPrincipal extracts the principal injected by the Auth middleware.
// Its absence means the route was mounted without Auth.
func ctxPrincipal(c echo.Context) (*ports.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}
