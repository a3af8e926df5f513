package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/sawpanic/coinscope/internal/application/scan"
	"github.com/sawpanic/coinscope/internal/interfaces/output"
)

const scanTimeout = 15 * time.Minute

type scanFlags struct {
	strategy string
	input    string
	format   string
	output   string
	top      int
	noColor  bool
	progress string
}

// addScanFlags registers the flags shared by scan-like commands
func addScanFlags(fs *pflag.FlagSet, f *scanFlags) {
	fs.StringVarP(&f.strategy, "strategy", "s", "", "Strategy profile (balanced|momentum|value or a configured name)")
	fs.StringVarP(&f.input, "input", "i", "", "Score snapshots from a JSON file instead of live providers")
	fs.StringVarP(&f.format, "format", "f", "", "Output format (table|json|csv; default table on a terminal, json otherwise)")
	fs.StringVarP(&f.output, "output", "o", "", "Write results to a file instead of stdout")
	fs.IntVarP(&f.top, "top", "n", 0, "Number of coins to print (default from config)")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored table output")
	fs.StringVar(&f.progress, "progress", "auto", "Progress output mode (auto|plain|none)")
}

func newScanCmd(root *rootOptions) *cobra.Command {
	f := &scanFlags{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one scan and print the ranked coins",
		Long: `Fetch the top coins by market cap (or read them from --input), score and
rank them with the selected strategy, and print the result.

Examples:
  coinscope scan --strategy momentum --top 15
  coinscope scan --input snapshots.json --format json -o scan.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), root, f)
		},
	}
	addScanFlags(cmd.Flags(), f)
	return cmd
}

func runScan(parent context.Context, root *rootOptions, f *scanFlags) error {
	cfg := root.cfg
	format, err := output.ParseFormat(f.format)
	if err != nil {
		return err
	}
	stdoutTTY := term.IsTerminal(int(os.Stdout.Fd()))
	if f.format == "" && (f.output != "" || !stdoutTTY) {
		format = output.FormatJSON
	}
	progress, err := progressWriter(f.progress)
	if err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, appOptions{live: f.input == "", progress: progress})
	if err != nil {
		return err
	}
	defer a.Close()

	strategy := f.strategy
	if strategy == "" {
		strategy = cfg.Scan.Strategy
	}
	log.Info().Str("strategy", strategy).Str("input", f.input).Msg("Starting scan")

	res, err := a.pipeline.Run(ctx, scan.Options{Strategy: strategy, Input: f.input})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	top := f.top
	if top <= 0 {
		top = cfg.Scan.TopN
	}
	emitter := output.NewEmitter(output.Options{
		Color: !f.noColor && f.output == "" && stdoutTTY,
		Top:   top,
	})
	if f.output != "" {
		if err := emitter.WriteFile(f.output, res, format); err != nil {
			return err
		}
		log.Info().Str("path", f.output).Int("coins", len(res.Ranked)).Msg("Scan results written")
		return nil
	}
	return emitter.Emit(os.Stdout, res, format)
}

// progressWriter resolves --progress; auto draws progress only on a TTY
func progressWriter(mode string) (io.Writer, error) {
	switch mode {
	case "auto":
		if term.IsTerminal(int(os.Stderr.Fd())) {
			return os.Stderr, nil
		}
		return nil, nil
	case "plain":
		return os.Stderr, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown progress mode %q (want auto, plain or none)", mode)
	}
}
