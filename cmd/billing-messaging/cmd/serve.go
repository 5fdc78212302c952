package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illmade-knight/go-billing/pkg/app"
	"github.com/illmade-knight/go-billing/pkg/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the inbound dispatcher until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigFromEnv()
		if err != nil {
			return err
		}
		logger := app.NewLogger(cfg, os.Stderr)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialise billing messaging")
			return err
		}
		if err := a.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("Billing messaging could not start")
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
