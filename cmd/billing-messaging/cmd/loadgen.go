package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/illmade-knight/go-billing/pkg/app"
	"github.com/illmade-knight/go-billing/pkg/config"
	"github.com/illmade-knight/go-billing/pkg/loadgen"
	"github.com/illmade-knight/go-billing/pkg/types"
	"github.com/spf13/cobra"
)

var (
	loadType     string
	loadSources  int
	loadRate     float64
	loadDuration time.Duration
	loadTopic    string
)

var loadgenCmd = &cobra.Command{
	Use:   "loadgen",
	Short: "Publish generated envelopes at a fixed rate",
	Example: `  billing-messaging loadgen --type INVOICE --sources 4 --rate 10 --duration 1m
  billing-messaging loadgen --type USAGE --topic BillingInbound`,
	RunE: func(cmd *cobra.Command, args []string) error {
		messageType, err := types.ParseMessageType(loadType)
		if err != nil {
			return err
		}
		if loadRate > loadgen.MaxMessageRate {
			return fmt.Errorf("--rate %g exceeds the maximum of %g messages per second", loadRate, loadgen.MaxMessageRate)
		}
		cfg, err := config.LoadConfigFromEnv()
		if err != nil {
			return err
		}
		logger := app.NewLogger(cfg, os.Stderr)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		sources := loadgen.NewSources(loadSources, messageType, loadRate, loadgen.DefaultPayloadGenerator{})
		sent := loadgen.NewLoadGenerator(a, loadTopic, sources, logger).Run(ctx, loadDuration)
		a.Stop()

		fmt.Fprintf(cmd.OutOrStdout(), "sent %d %s envelopes\n", sent, messageType.Code())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadgenCmd)
	loadgenCmd.Flags().StringVarP(&loadType, "type", "t", "GENERIC", "Message type code")
	loadgenCmd.Flags().IntVar(&loadSources, "sources", 1, "Number of concurrent sources")
	loadgenCmd.Flags().Float64Var(&loadRate, "rate", 1, "Messages per second per source")
	loadgenCmd.Flags().DurationVar(&loadDuration, "duration", 10*time.Second, "How long to generate load")
	loadgenCmd.Flags().StringVar(&loadTopic, "topic", "", "Target topic; the routing table is used when empty")
}
