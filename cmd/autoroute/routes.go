package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/autoroute/internal/config"
	"github.com/vango-dev/autoroute/internal/errors"
	"github.com/vango-dev/autoroute/pkg/autoroute"
)

func routesCmd(pf *projectFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		Long: `Discover the controllers and print every route in registration order.

Go source controllers are read without being compiled, so the table is
available before 'autoroute gen' has run.

Examples:
  autoroute routes
  autoroute routes --format=json
  autoroute routes -d ./api/controllers`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject(pf)
			if err != nil {
				return err
			}
			routes, err := buildTable(cfg)
			if err != nil {
				return err
			}
			return writeRoutes(cmd.OutOrStdout(), routes, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text or json")

	return cmd
}

// buildTable builds the project's routes into a recording table.
func buildTable(cfg *config.Config) ([]autoroute.Route, error) {
	actions, err := cfg.ActionsMap()
	if err != nil {
		return nil, errors.New("A208").Wrap(err)
	}

	logger := newLogger(cfg, os.Stderr)
	opts := append(discoveryOptions(cfg, logger), autoroute.WithLoader(projectLoader(actions)))

	ar := autoroute.New(autoroute.NewTable, actions, opts...)
	table, err := ar.Build(cfg.ControllersPath(), cfg.Meta...)
	if err != nil {
		return nil, errors.Classify(err, "A202")
	}
	return table.Routes(), nil
}

func writeRoutes(w io.Writer, routes []autoroute.Route, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if routes == nil {
			routes = []autoroute.Route{}
		}
		return enc.Encode(routes)
	case "text":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "METHOD\tPATTERN\tACTION\tCONTROLLER")
		for _, r := range routes {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Method, r.Pattern, r.Action, r.Controller)
		}
		return tw.Flush()
	}
	return errors.Newf(errors.CategoryCLI, "unknown format %q; use text or json", format)
}
