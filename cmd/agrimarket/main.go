// Command agrimarket runs the agrimarket API and offers offline helpers for
// browsing catalogs and evaluating weather alerts.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/itsneelabh/agrimarket"
	"github.com/itsneelabh/agrimarket/pkg/config"
)

type rootOptions struct {
	configFile string
	port       int
	dev        bool
	logLevel   string
	jsonOut    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "agrimarket",
		Short: "Agricultural marketplace, supplies shop and farm advisory service",
		Long: `agrimarket serves the marketplace, supplies shop and land catalogs, shopping
carts, weather advisories and the crop advisor over an HTTP JSON API.

Run "agrimarket serve" to start the API. The other commands work offline
against the same packages.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "configuration file (JSON or YAML)")
	flags.IntVar(&opts.port, "port", 0, "HTTP port, overrides config")
	flags.BoolVar(&opts.dev, "dev", false, "development mode (debug logs, console output)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&opts.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newServeCmd(opts),
		newAlertsCmd(opts),
		newCatalogCmd(opts),
		newWeatherCmd(opts),
		newDBCmd(opts),
		newQuoteCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig layers the global flags over file and environment configuration
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var opts []config.Option
	if o.configFile != "" {
		opts = append(opts, config.WithConfigFile(o.configFile))
	}
	if o.port != 0 {
		opts = append(opts, config.WithPort(o.port))
	}
	if o.dev {
		opts = append(opts, config.WithDevelopmentMode(true))
	}
	if o.logLevel != "" {
		opts = append(opts, config.WithLogLevel(o.logLevel))
	}
	return config.NewConfig(opts...)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			app, err := agrimarket.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close(context.WithoutCancel(ctx))
			return app.Run(ctx)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agrimarket %s (api %s, commit %s, built %s)\n",
				agrimarket.Version, agrimarket.APIVersion, agrimarket.GitCommit, agrimarket.BuildDate)
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
