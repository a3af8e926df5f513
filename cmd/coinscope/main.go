package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/coinscope/internal/config"
	applog "github.com/sawpanic/coinscope/internal/log"
)

const appName = "coinscope"

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// rootOptions carries the persistent flags and the loaded configuration
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Score, rank and classify crypto assets",
		Version: version,
		Long: `coinscope scans the top coins by market cap, scores each one across price,
volume, market position, risk, developer activity, DEX liquidity, volume
profile structure and order flow, then ranks and categorises them.

Run a one-off scan with 'coinscope scan', or keep a ranked list fresh behind
a read-only API with 'coinscope serve'.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Path to the YAML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override log level (debug|info|warn|error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Override log format (pretty|json)")

	rootCmd.AddCommand(newScanCmd(opts))    // Scanning
	rootCmd.AddCommand(newServeCmd(opts))   // API + schedule
	rootCmd.AddCommand(newWeightsCmd(opts)) // Strategy inspection
	rootCmd.AddCommand(newProbeCmd(opts))   // Provider health
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// load reads the config file and initialises logging. The version command
// skips it so it works without a config.
func (o *rootOptions) load(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if err := applog.Init(cfg.Log); err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}
