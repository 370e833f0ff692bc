package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/agent007moss/MLT/internal/pkg/config"
	"github.com/agent007moss/MLT/pkg/logger"
)

const serviceName = "mltauth"

var (
	logLevel string

	// lookuper is replaced in tests.
	lookuper envconfig.Lookuper = envconfig.OsLookuper()
)

var rootCmd = &cobra.Command{
	Use:   "mltauth",
	Short: "MLT identity service",
	Long: `mltauth runs the MLT identity service: password login with an emailed
one-time code, rotating JWT sessions and a hash-chained audit ledger.

All configuration comes from environment variables (see PORT, ENV,
STORE_DRIVER, JWT_*, MONGO_*, POSTGRES_DSN, REDIS_*, BOOTSTRAP_*).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (trace, debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(bootstrapCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads and validates the environment, then initialises the
// process logger from it.
func loadConfig(ctx context.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadWith(ctx, lookuper)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: serviceName,
	})
	return cfg, log, nil
}
