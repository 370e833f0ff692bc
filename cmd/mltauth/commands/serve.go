package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agent007moss/MLT/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API in the foreground.

On start the configured bootstrap accounts are created when missing, the
OTP delivery workers are launched and the server listens on PORT until
SIGINT or SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return err
	}
	defer func() {
		if err := a.Close(cmd.Context()); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}()

	if err := a.Serve(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
