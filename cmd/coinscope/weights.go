package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sawpanic/coinscope/internal/config"
	"github.com/sawpanic/coinscope/internal/domain/market"
	"github.com/sawpanic/coinscope/internal/score/composite"
)

type weightsFlags struct {
	strategy        string
	fearGreed       int
	dominance       float64
	dominanceChange float64
	asJSON          bool
}

// strategyWeights is one row of the weights report
type strategyWeights struct {
	Strategy    string             `json:"strategy"`
	Description string             `json:"description"`
	Base        composite.Weights  `json:"base"`
	Adjusted    composite.Weights  `json:"adjusted"`
	Criteria    composite.Criteria `json:"criteria"`
}

func newWeightsCmd(root *rootOptions) *cobra.Command {
	f := &weightsFlags{}
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Show strategy weights before and after the macro adjustment",
		Long: `Print the price/volume/DEX weight split of each strategy, and the split the
ranker would use under the given market conditions.

Example:
  coinscope weights --fear-greed 20 --dominance 48 --dominance-change -1.2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWeights(cmd.OutOrStdout(), root.cfg, f)
		},
	}
	neutral := market.NeutralConditions()
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", "", "Only show this strategy")
	cmd.Flags().IntVar(&f.fearGreed, "fear-greed", neutral.FearGreed.Value, "Fear & Greed index value (0-100)")
	cmd.Flags().Float64Var(&f.dominance, "dominance", neutral.BTCDominance, "BTC dominance percent")
	cmd.Flags().Float64Var(&f.dominanceChange, "dominance-change", 0, "24h change in BTC dominance (points)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print JSON")
	return cmd
}

func runWeights(w io.Writer, cfg *config.Config, f *weightsFlags) error {
	if f.fearGreed < 0 || f.fearGreed > 100 {
		return fmt.Errorf("fear-greed must be within 0-100, got %d", f.fearGreed)
	}
	mc := market.MarketConditions{
		BTCDominance:       f.dominance,
		DominanceChange24h: f.dominanceChange,
		FearGreed:          market.FearGreed{Value: f.fearGreed},
	}
	ranker := composite.NewRanker(cfg.RankerConfig())

	names := make([]string, 0, len(cfg.Strategies))
	for name := range cfg.Strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	if f.strategy != "" {
		if _, ok := cfg.Strategies[f.strategy]; !ok {
			return fmt.Errorf("unknown strategy %q", f.strategy)
		}
		names = []string{f.strategy}
	}

	rows := make([]strategyWeights, 0, len(names))
	for _, name := range names {
		p := cfg.Strategies[name]
		rows = append(rows, strategyWeights{
			Strategy:    name,
			Description: p.Description,
			Base:        p.Weights,
			Adjusted:    ranker.Weights(name, mc),
			Criteria:    p.Criteria,
		})
	}

	if f.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	fmt.Fprintf(w, "Conditions: Fear & Greed %d | BTC dominance %.2f%% (%+.2f 24h) | dynamic weights %s\n\n",
		mc.FearGreed.Value, mc.BTCDominance, mc.DominanceChange24h, onOff(cfg.Scoring.DynamicWeights.Enabled))
	fmt.Fprintf(w, "%-12s %-22s %-22s %s\n", "STRATEGY", "BASE (P/V/D)", "ADJUSTED (P/V/D)", "DESCRIPTION")
	for _, r := range rows {
		fmt.Fprintf(w, "%-12s %-22s %-22s %s\n", r.Strategy, split(r.Base), split(r.Adjusted), r.Description)
	}
	return nil
}

func split(w composite.Weights) string {
	return fmt.Sprintf("%.2f/%.2f/%.2f", w.Price, w.Volume, w.DEX)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s %s/%s)\n", appName, version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
