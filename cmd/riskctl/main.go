package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"FinRisk/internal/di"
	"FinRisk/pkg/config"
	applogger "FinRisk/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	asJSON     bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "riskctl",
		Short:         "Offline risk scoring against the static calibration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config/config.yaml", "config file path")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine decisions to stderr")

	root.AddCommand(
		scoreCmd(opts),
		priceCmd(opts),
		tableCmd(opts),
		calibrateCmd(opts),
	)
	return root
}

// load builds the offline use cases from the config file.
func (o *rootOptions) load() (*config.Config, *di.Offline, error) {
	cfg, err := config.LoadWithEnv(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	l := applogger.Nop()
	if o.verbose {
		l = applogger.NewWriter(os.Stderr)
	}
	off, err := di.NewOffline(cfg, l)
	if err != nil {
		return nil, nil, err
	}
	return cfg, off, nil
}
