package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agent007moss/MLT/internal/app"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the configured OWNER, ADMIN and USER accounts",
	Long: `Create each account named by BOOTSTRAP_{OWNER,ADMIN,USER}_{EMAIL,PASSWORD}
that does not exist yet, and seed the default dashboard cards into an empty
catalogue. Existing data is left untouched, so the command is safe to run
repeatedly.`,
	RunE: runBootstrap,
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, log, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(ctx) }()

	if err := a.Seed(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "bootstrap complete")
	return nil
}
