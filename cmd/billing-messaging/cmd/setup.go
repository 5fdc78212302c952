package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illmade-knight/go-billing/pkg/app"
	"github.com/illmade-knight/go-billing/pkg/config"
	"github.com/illmade-knight/go-billing/pkg/provision"
	"github.com/illmade-knight/go-billing/pkg/routing"
	"github.com/illmade-knight/go-billing/pkg/transport"
	"github.com/spf13/cobra"
)

var (
	inboundTopic string
	verifyOnly   bool
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the Pub/Sub topics and subscription the module uses",
	Long: `setup creates the inbound topic and subscription, the forward topic and every
topic in the module's routing table, skipping those that already exist.
Only the google implementation needs provisioning.`,
	Example: `  billing-messaging setup --inbound-topic BillingInbound
  billing-messaging setup --inbound-topic BillingInbound --verify`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigFromEnv()
		if err != nil {
			return err
		}
		if cfg.Implementation != config.ImplementationGoogle {
			return fmt.Errorf("setup is only supported for the google implementation, not %s", cfg.Implementation)
		}
		logger := app.NewLogger(cfg, os.Stderr)

		routes, err := app.LoadRoutes(cfg, logger)
		if err != nil {
			return err
		}
		plan := provision.PlanFor(cfg, routing.NewResolver(cfg.ModuleName, routes), inboundTopic)

		ctx := context.Background()
		client, err := provision.CreateGooglePubSubAdminClient(ctx, cfg.Google.ProjectID, transport.GoogleClientOptions(cfg.Google, logger)...)
		if err != nil {
			return err
		}
		defer client.Close()

		manager, err := provision.NewManager(client, logger)
		if err != nil {
			return err
		}
		if verifyOnly {
			return manager.Verify(ctx, plan)
		}
		return manager.Setup(ctx, plan)
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().StringVar(&inboundTopic, "inbound-topic", "BillingInbound", "Topic the inbound subscription is attached to")
	setupCmd.Flags().BoolVar(&verifyOnly, "verify", false, "Only check that the resources exist")
}
