package api

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/agent007moss/MLT/docs"
	"github.com/agent007moss/MLT/internal/api/handler"
	"github.com/agent007moss/MLT/internal/api/middleware"
	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
)

// Deps are the collaborators the HTTP surface calls into.
type Deps struct {
	Auth     ports.AuthService
	Audit    ports.AuditService
	Settings ports.SettingsService
	Policy   *domain.PermissionPolicy
	Log      zerolog.Logger

	// Prefix is prepended to every API route, e.g. "/api/v1".
	Prefix string
	// LoginPerMinute and LoginBurst bound the per-IP rate of the
	// credential endpoints. Zero disables the limiter.
	LoginPerMinute int
	LoginBurst     int
	// Swagger mounts the API docs under /swagger/.
	Swagger bool
}

// NewRouter registers the API routes on base, which already carries the
// global middleware and health probes, and returns it.
func NewRouter(base *echo.Echo, deps Deps) *echo.Echo {
	e := base
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	policy := deps.Policy
	if policy == nil {
		policy = domain.DefaultPermissionPolicy()
	}

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	auditHandler := handler.NewAuditHandler(deps.Audit)
	personnelHandler := handler.NewScaffoldHandler("personnel", deps.Audit)
	orgHandler := handler.NewScaffoldHandler("org", deps.Audit)
	settingsHandler := handler.NewSettingsHandler(deps.Settings)

	authn := middleware.Auth(deps.Auth)
	limiter := middleware.RateLimit(deps.LoginPerMinute, deps.LoginBurst)
	can := func(permission string) echo.MiddlewareFunc {
		return middleware.RequirePermission(policy, permission)
	}
	canAny := func(permissions ...string) echo.MiddlewareFunc {
		return middleware.RequireAnyPermission(policy, permissions...)
	}

	root := e.Group(deps.Prefix)

	// --- Auth routes ---
	auth := root.Group("/auth")
	auth.POST("/register", authHandler.Register, limiter)
	auth.GET("/verify-email", authHandler.VerifyEmail)
	auth.POST("/login", authHandler.Login, limiter)
	auth.POST("/verify-2fa", authHandler.VerifyTwoFactor, limiter)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout, authn)
	auth.GET("/me", authHandler.Me, authn)

	// --- Audit routes ---
	audit := root.Group("/audit")
	audit.GET("/events", auditHandler.ListEvents, authn, can("audit:read"))
	audit.GET("/verify-chain", auditHandler.VerifyChain, authn, can("audit:read"))

	// --- Settings routes ---
	settings := root.Group("/settings", authn)
	settings.GET("/cards", settingsHandler.ListCards, canAny("settings:read", "settings:read_own"))
	settings.POST("/cards", settingsHandler.CreateCard, can("settings:write"))
	settings.PATCH("/cards/:id", settingsHandler.UpdateCard, can("settings:write"))
	settings.DELETE("/cards/:id", settingsHandler.DeleteCard, can("settings:write"))
	settings.GET("/layout", settingsHandler.Layout, canAny("settings:read", "settings:read_own"))
	settings.PUT("/layout", settingsHandler.SaveLayout, canAny("dashboard:write_own", "settings:write"))

	// --- Scaffolds ---
	root.GET("/personnel", personnelHandler.List, authn, can("personnel:read"))
	root.POST("/personnel", personnelHandler.Create, authn, can("personnel:write"))
	root.GET("/org", orgHandler.List, authn, can("org:read"))
	root.POST("/org", orgHandler.Create, authn, can("org:write"))

	if deps.Swagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return e
}
