// Package cmd defines the CLI commands for the shutdowncrawler
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridwatch/shutdown-crawler/internal/app"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shutdowncrawler",
		Short: "Ingests and serves planned power shutdown schedules",
		Long: `shutdowncrawler scrapes planned power-shutdown notices from the
utility's HTML schedule pages, the CCMS feeder listing, public PR
posts and PDF bulletins, merges them into one de-duplicated event
stream and serves the result over HTTP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./config.yaml)")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newForecastCmd())

	return cmd
}

// buildApp constructs the service graph for a subcommand run.
var buildApp = func() (*app.App, error) {
	return app.New(cfgFile)
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
