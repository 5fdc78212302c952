package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "billing-messaging",
	Short: "Billing module messaging over Pub/Sub, Kafka or an in-memory bus",
	Long: `billing-messaging connects the billing module to the message bus.

Available commands:
  serve      Subscribe to the inbound subscription and dispatch messages
  resolve    Show the outbound topics for a message type
  routes     List the routing table entries for this module
  publish    Publish a single envelope
  setup      Create the Pub/Sub topics and subscription the module uses
  loadgen    Publish generated envelopes at a fixed rate

Configuration is read from the environment; a .env file is loaded first when present.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")
}
