// Package http builds the base echo instance shared by every route group:
// recovery, correlation ids, security headers, access logging, request
// metrics and health probes.
package http

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/agent007moss/MLT/internal/infrastructure/http/handlers"
)

const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderProcessTime   = "X-Process-Time"

	contentSecurityPolicy = "default-src 'self'; frame-ancestors 'none'"
	permissionsPolicy     = "geolocation=(), microphone=(), camera=()"
	hstsMaxAge            = 63072000
)

// Options configures NewServer.
type Options struct {
	Logger zerolog.Logger
	Checks []handlers.Check
	// Registry receives the HTTP request metrics. Nil uses the default
	// prometheus registry.
	Registry *prometheus.Registry
}

// NewServer returns an echo instance with the global middleware chain and
// the /health, /health/ready and /metrics routes registered.
func NewServer(opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if opts.Registry != nil {
		registerer, gatherer = opts.Registry, opts.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator:    uuid.NewString,
		TargetHeader: HeaderCorrelationID,
	}))
	e.Use(processTime())
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "0",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            hstsMaxAge,
		ContentSecurityPolicy: contentSecurityPolicy,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))
	e.Use(permissionsPolicyHeader())
	e.Use(accessLog(opts.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "mlt",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Probes (no auth required) ---
	health := handlers.NewHealthHandler(opts.Checks...)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))

	return e
}

// processTime reports handler latency in seconds on every response.
func processTime() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			c.Response().Before(func() {
				elapsed := time.Since(start).Seconds()
				c.Response().Header().Set(HeaderProcessTime, strconv.FormatFloat(elapsed, 'f', 6, 64))
			})
			return next(c)
		}
	}
}

func permissionsPolicyHeader() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("Permissions-Policy", permissionsPolicy)
			return next(c)
		}
	}
}

func accessLog(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil || v.Status >= 500 {
				evt = log.Error().Err(v.Error)
			}
			evt.
				Str("correlation_id", c.Response().Header().Get(HeaderCorrelationID)).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
