package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/illmade-knight/go-billing/pkg/app"
	"github.com/illmade-knight/go-billing/pkg/config"
	"github.com/illmade-knight/go-billing/pkg/types"
	"github.com/spf13/cobra"
)

var (
	publishType    string
	publishPayload string
	publishTopic   string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish one envelope to a topic or to the configured routes",
	Example: `  billing-messaging publish --type INVOICE --payload '{"invoiceId":"INV-1"}'
  billing-messaging publish --type PAYMENT --payload '{"amount":10}' --topic PaymentTopic`,
	RunE: func(cmd *cobra.Command, args []string) error {
		messageType, err := types.ParseMessageType(publishType)
		if err != nil {
			return err
		}
		if publishPayload != "" && !json.Valid([]byte(publishPayload)) {
			return errors.New("--payload must be valid JSON")
		}

		cfg, err := config.LoadConfigFromEnv()
		if err != nil {
			return err
		}
		logger := app.NewLogger(cfg, os.Stderr)

		ctx := context.Background()
		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		envelope := &types.Envelope{MessageType: messageType}
		if publishPayload != "" {
			envelope.Payload = json.RawMessage(publishPayload)
		}

		topics := a.Publish(ctx, envelope, publishTopic)
		// flushes outstanding publishes
		a.Stop()

		if len(topics) == 0 {
			fmt.Fprintf(os.Stderr, "No topics configured for %s in module %s\n", messageType.Code(), cfg.ModuleName)
			return nil
		}
		for _, topic := range topics {
			fmt.Fprintln(cmd.OutOrStdout(), topic)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().StringVarP(&publishType, "type", "t", "", "Message type code, e.g. INVOICE")
	publishCmd.Flags().StringVarP(&publishPayload, "payload", "p", "", "JSON payload")
	publishCmd.Flags().StringVar(&publishTopic, "topic", "", "Target topic; the routing table is used when empty")
	_ = publishCmd.MarkFlagRequired("type")
}
