package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/coinscope/internal/config"
	"github.com/sawpanic/coinscope/internal/data/cache"
	"github.com/sawpanic/coinscope/internal/providers"
)

const probeTimeout = 30 * time.Second

// probeResult is the outcome of one provider round trip
type probeResult struct {
	Provider string
	Latency  time.Duration
	Detail   string
	Err      error
}

func newProbeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check every enabled provider with one live request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
			defer cancel()
			results := runProbes(ctx, root.cfg)
			return printProbes(cmd.OutOrStdout(), results)
		},
	}
}

// runProbes queries each enabled provider concurrently with an empty cache
func runProbes(ctx context.Context, cfg *config.Config) []probeResult {
	set := providers.NewSet(cfg.Providers, cache.NewTTLCache(0), nil)

	type probe struct {
		name string
		fn   func(ctx context.Context) (string, error)
	}
	var probes []probe
	if set.CoinGecko != nil {
		probes = append(probes, probe{config.CoinGecko, func(ctx context.Context) (string, error) {
			g, err := set.CoinGecko.Global(ctx)
			return fmt.Sprintf("BTC dominance %.2f%%", g.BTCDominance), err
		}})
	}
	if set.Binance != nil {
		probes = append(probes, probe{config.Binance, func(ctx context.Context) (string, error) {
			pairs, err := set.Binance.ExchangeInfo(ctx, cfg.Scan.QuoteAsset)
			return fmt.Sprintf("%d %s pairs", len(pairs), cfg.Scan.QuoteAsset), err
		}})
	}
	if set.DexScreener != nil {
		probes = append(probes, probe{config.DexScreener, func(ctx context.Context) (string, error) {
			dex, err := set.DexScreener.Token(ctx, "ETH")
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("ETH on %d DEXes, %d txns 24h", dex.DEXCount, dex.TxCount24h), nil
		}})
	}
	if set.FearGreed != nil {
		probes = append(probes, probe{config.FearGreed, func(ctx context.Context) (string, error) {
			fg, err := set.FearGreed.Latest(ctx)
			return fmt.Sprintf("index %d (%s)", fg.Value, fg.Classification), err
		}})
	}

	results := make([]probeResult, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range probes {
		i, p := i, p
		g.Go(func() error {
			start := time.Now()
			detail, err := p.fn(gctx)
			results[i] = probeResult{Provider: p.name, Latency: time.Since(start), Detail: detail, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Provider < results[j].Provider })
	return results
}

func printProbes(w io.Writer, results []probeResult) error {
	fmt.Fprintf(w, "%-12s %-6s %8s  %s\n", "PROVIDER", "STATUS", "LATENCY", "DETAIL")
	failed := 0
	for _, r := range results {
		status, detail := "UP", r.Detail
		if r.Err != nil {
			status, detail = "DOWN", r.Err.Error()
			failed++
		}
		fmt.Fprintf(w, "%-12s %-6s %6dms  %s\n", r.Provider, status, r.Latency.Milliseconds(), detail)
	}
	if len(results) == 0 {
		return fmt.Errorf("no providers enabled")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d providers failed", failed, len(results))
	}
	return nil
}
