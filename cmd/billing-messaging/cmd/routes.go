package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/illmade-knight/go-billing/pkg/config"
	"github.com/illmade-knight/go-billing/pkg/routing"
	"github.com/spf13/cobra"
)

var (
	moduleFlag        string
	routingConfigFlag string
	routesFormat      string
)

// addRoutingFlags registers the flags that override APPLICATION_MODULE_NAME and ROUTING_CONFIG_PATH.
func addRoutingFlags(c *cobra.Command) {
	c.Flags().StringVarP(&moduleFlag, "module", "m", "", "Application module name (default APPLICATION_MODULE_NAME)")
	c.Flags().StringVarP(&routingConfigFlag, "routing-config", "r", "", "Routing YAML file (default ROUTING_CONFIG_PATH)")
}

func loadResolver() (*routing.Resolver, error) {
	cfg, err := config.ParseFromEnv()
	if err != nil {
		return nil, err
	}
	if moduleFlag != "" {
		cfg.ModuleName = moduleFlag
	}
	if routingConfigFlag != "" {
		cfg.RoutingConfigPath = routingConfigFlag
	}
	routes, err := routing.LoadConfig(cfg.RoutingConfigPath)
	if err != nil {
		return nil, err
	}
	return routing.NewResolver(cfg.ModuleName, routes), nil
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the routing table entries for the current module",
	Example: `  billing-messaging routes
  billing-messaging routes --module Payments --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := loadResolver()
		if err != nil {
			return err
		}
		routes := resolver.Routes()
		out := cmd.OutOrStdout()

		switch routesFormat {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(routes)
		case "table":
			if len(routes) == 0 {
				fmt.Fprintf(out, "No routes configured for module '%s'\n", resolver.ModuleName())
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MESSAGE TYPE\tTOPICS")
			for _, r := range routes {
				fmt.Fprintf(w, "%s\t%s\n", r.MessageType, strings.Join(r.Topics, ", "))
			}
			return w.Flush()
		default:
			return fmt.Errorf("unsupported output format '%s', use 'table' or 'json'", routesFormat)
		}
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
	addRoutingFlags(routesCmd)
	routesCmd.Flags().StringVarP(&routesFormat, "format", "f", "table", "Output format (table, json)")
}
