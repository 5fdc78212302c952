package cmd

import (
	"fmt"
	"os"

	"github.com/illmade-knight/go-billing/pkg/types"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <message-type>",
	Short: "Print the outbound topics for a message type, one per line",
	Example: `  billing-messaging resolve INVOICE
  billing-messaging resolve invoice --module Payments`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		messageType, err := types.ParseMessageType(args[0])
		if err != nil {
			return err
		}
		resolver, err := loadResolver()
		if err != nil {
			return err
		}

		topics := resolver.ResolveTopics(messageType)
		if len(topics) == 0 {
			fmt.Fprintf(os.Stderr, "No topics configured for %s in module %s\n", messageType.Code(), resolver.ModuleName())
			return nil
		}
		for _, topic := range topics {
			fmt.Fprintln(cmd.OutOrStdout(), topic)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	addRoutingFlags(resolveCmd)
}
