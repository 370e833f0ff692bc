// Package app wires configuration, storage, the identity core and the HTTP
// surface into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/agent007moss/MLT/internal/api"
	"github.com/agent007moss/MLT/internal/api/metrics"
	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
	"github.com/agent007moss/MLT/internal/core/service"
	"github.com/agent007moss/MLT/internal/infrastructure/db/memory"
	mongostore "github.com/agent007moss/MLT/internal/infrastructure/db/mongo"
	"github.com/agent007moss/MLT/internal/infrastructure/db/postgres"
	redisstore "github.com/agent007moss/MLT/internal/infrastructure/db/redis"
	httpinfra "github.com/agent007moss/MLT/internal/infrastructure/http"
	"github.com/agent007moss/MLT/internal/infrastructure/http/handlers"
	"github.com/agent007moss/MLT/internal/infrastructure/notify"
	"github.com/agent007moss/MLT/internal/infrastructure/queue"
	"github.com/agent007moss/MLT/internal/pkg/config"
	"github.com/agent007moss/MLT/internal/pkg/password"
	"github.com/agent007moss/MLT/internal/pkg/token"
)

const shutdownTimeout = 15 * time.Second

// App holds the long-lived components of one process.
type App struct {
	Config     *config.Config
	Log        zerolog.Logger
	Store      ports.Store
	Auth       *service.AuthService
	Audit      ports.AuditService
	Settings   ports.SettingsService
	Dispatcher *queue.Dispatcher

	redis  *goredis.Client
	checks []handlers.Check
}

// New connects the configured store (and Redis when enabled) and builds the
// services. Callers must Close the returned App.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Log:    log,
		Store:  store,
		checks: []handlers.Check{{Name: "store", Pinger: store}},
	}

	var revocations ports.RevocationCache
	if cfg.Redis.Enabled {
		client, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		a.redis = client
		revocations = redisstore.NewRevocationCache(client)
		a.checks = append(a.checks, handlers.Check{Name: "redis", Pinger: redisstore.NewPinger(client)})
	}

	hasher, err := password.New(password.Config{
		Time:        cfg.Argon2.Time,
		Memory:      cfg.Argon2.MemoryKB,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	mailer := notify.NewLogMailer(log.With().Str("component", "otp_mailer").Logger(), cfg.ExposeDebugOTP())
	a.Dispatcher = queue.NewDispatcher(cfg.Delivery.Workers, mailer, log, queue.WithObserver(metrics.DeliveryObserver{}))

	ledger := service.NewLedger(time.Now)
	a.Auth = service.NewAuthService(service.AuthDeps{
		Store:       store,
		Hasher:      hasher,
		Codec:       token.NewCodec(),
		OTP:         service.NewOTPEngine(cfg.Security.OTPTTL, cfg.Security.OTPMaxRetries, time.Now),
		Ledger:      ledger,
		Notifier:    a.Dispatcher,
		Revocations: revocations,
	}, service.AuthOptions{
		AccessSecret:       cfg.JWT.AccessSecret,
		RefreshSecret:      cfg.JWT.RefreshSecret,
		AccessTTL:          cfg.JWT.AccessTTL,
		RefreshTTL:         cfg.JWT.RefreshTTL,
		BypassSecondFactor: cfg.BypassSecondFactor(),
		ExposeDebugOTP:     cfg.ExposeDebugOTP(),
		Lockout: domain.LockoutPolicy{
			Threshold: cfg.Security.LockoutThreshold,
			Window:    cfg.Security.LockoutWindow,
		},
	}, log)
	a.Audit = service.NewAuditService(store, ledger, log)
	a.Settings = service.NewSettingsService(store, ledger, log)

	return a, nil
}

// OpenStore connects and prepares the store named by STORE_DRIVER: Mongo
// indexes are ensured and Postgres migrations applied.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		store := mongostore.NewStore(client, db)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo store ready")
		return store, nil

	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		log.Info().Msg("postgres store ready")
		return store, nil

	case config.DriverMemory:
		log.Warn().Msg("using in-memory store; data is lost on exit")
		return memory.NewStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// Router builds the full HTTP handler.
func (a *App) Router(opts httpinfra.Options) *echo.Echo {
	opts.Logger = a.Log
	opts.Checks = a.checks
	return api.NewRouter(httpinfra.NewServer(opts), api.Deps{
		Auth:           a.Auth,
		Audit:          a.Audit,
		Settings:       a.Settings,
		Policy:         domain.DefaultPermissionPolicy(),
		Log:            a.Log,
		Prefix:         a.Config.APIPrefix,
		LoginPerMinute: a.Config.RateLimit.LoginPerMinute,
		LoginBurst:     a.Config.RateLimit.LoginBurst,
		Swagger:        !a.Config.IsProduction(),
	})
}

// Seeds returns the bootstrap accounts configured in the environment.
func (a *App) Seeds() []ports.BootstrapSeed {
	b := a.Config.Bootstrap
	return []ports.BootstrapSeed{
		{Email: b.OwnerEmail, Password: b.OwnerPassword, Role: domain.RoleOwner},
		{Email: b.AdminEmail, Password: b.AdminPassword, Role: domain.RoleAdmin},
		{Email: b.UserEmail, Password: b.UserPassword, Role: domain.RoleUser},
	}
}

// Seed creates the bootstrap accounts and the default dashboard cards.
func (a *App) Seed(ctx context.Context) error {
	if err := a.Auth.EnsureBootstrapUsers(ctx, a.Seeds()); err != nil {
		return fmt.Errorf("bootstrap users: %w", err)
	}
	if err := a.Settings.SeedDefaultCards(ctx); err != nil {
		return err
	}
	return nil
}

// Serve seeds bootstrap data, starts the delivery workers and serves HTTP
// until ctx is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Seed(ctx); err != nil {
		return err
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer func() {
		stopWorkers()
		a.Dispatcher.Wait()
	}()
	a.Dispatcher.Start(workerCtx)

	e := a.Router(httpinfra.Options{})
	addr := net.JoinHostPort("", a.Config.Port)

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info().Str("addr", addr).Str("env", a.Config.Env).Str("store", a.Config.StoreDriver).Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Close releases the store and Redis connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close(ctx))
	}
	return errors.Join(errs...)
}
