package decision

import "fmt"

// EntryZone is the price band considered a fair entry
type EntryZone struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// ActionSignal is the full trade plan attached to a ranked coin
type ActionSignal struct {
	Action       Action     `json:"action"`
	Confidence   Confidence `json:"confidence"`
	Rule         string     `json:"rule"`
	Reasoning    []string   `json:"reasoning"`
	Entry        EntryZone  `json:"entry_zone"`
	StopLoss     float64    `json:"stop_loss,omitempty"`
	TakeProfit   float64    `json:"take_profit,omitempty"`
	PositionSize string     `json:"position_size"`
	Timeframe    string     `json:"timeframe"`
	Warnings     []string   `json:"warnings,omitempty"`
}

// Rule is one entry of the ordered decision chain
type Rule struct {
	Name string
	When func(Input) bool
	Then func(Input) ActionSignal
}

// Rules is evaluated top to bottom and the first match wins. The last
// rule always matches.
var Rules = []Rule{
	{
		Name: "extreme_risk",
		When: func(in Input) bool { return in.Risk >= 80 },
		Then: func(in Input) ActionSignal {
			return skip(SkipHighRisk, ConfidenceHigh, fmt.Sprintf("Risk score %.0f is extreme", in.Risk))
		},
	},
	{
		Name: "untradeable",
		When: func(in Input) bool { return !in.Flags.Listed || !in.Flags.Liquid },
		Then: func(in Input) ActionSignal {
			reason := "Not listed on a major exchange"
			if in.Flags.Listed {
				reason = fmt.Sprintf("Volume/mcap %.3f too thin to trade", in.VolumeToMcap)
			}
			return skip(SkipHighRisk, ConfidenceMedium, reason)
		},
	},
	{
		Name: "weak_momentum",
		When: func(in Input) bool { return in.Momentum < 35 },
		Then: func(in Input) ActionSignal {
			return skip(SkipWeak, ConfidenceHigh, fmt.Sprintf("Score %.1f shows no momentum", in.Momentum))
		},
	},
	{
		Name: "overheated",
		When: func(in Input) bool { return in.Flags.Overheated },
		Then: func(in Input) ActionSignal {
			return ActionSignal{
				Action:     WaitForDip,
				Confidence: ConfidenceMedium,
				Reasoning: []string{
					fmt.Sprintf("Up %.1f%% in 7d and %.1f%% in 24h", in.Change7d, in.Change24h),
					"Pullback likely before a better entry",
				},
				Entry:        zone(in.Price, 0.85, 0.92),
				StopLoss:     in.Price * 0.80,
				TakeProfit:   in.Price * 1.10,
				PositionSize: "1-2% on pullback",
				Timeframe:    "wait 3-7 days",
			}
		},
	},
	{
		Name: "strong_setup",
		When: func(in Input) bool {
			return in.Momentum >= 65 && in.Timing >= 65 && in.Risk < 60 && !in.Flags.NearResistance
		},
		Then: func(in Input) ActionSignal {
			return ActionSignal{
				Action:     BuyNow,
				Confidence: ConfidenceHigh,
				Reasoning: []string{
					fmt.Sprintf("Strong score %.1f with timing %.0f", in.Momentum, in.Timing),
					fmt.Sprintf("Risk contained at %.0f", in.Risk),
				},
				Entry:        zone(in.Price, 0.99, 1.01),
				StopLoss:     in.Price * 0.92,
				TakeProfit:   in.Price * 1.20,
				PositionSize: "3-5% of portfolio",
				Timeframe:    "1-2 weeks",
			}
		},
	},
	{
		Name: "good_setup",
		When: func(in Input) bool { return in.Momentum >= 55 && in.Timing >= 50 && in.Risk < 70 },
		Then: func(in Input) ActionSignal {
			sig := ActionSignal{
				Action:     Buy,
				Confidence: ConfidenceMedium,
				Reasoning: []string{
					fmt.Sprintf("Solid score %.1f with acceptable timing %.0f", in.Momentum, in.Timing),
				},
				Entry:        zone(in.Price, 0.97, 1.00),
				StopLoss:     in.Price * 0.90,
				TakeProfit:   in.Price * 1.15,
				PositionSize: "2-3% of portfolio",
				Timeframe:    "1-3 weeks",
			}
			if in.Flags.NearSupport {
				sig.Confidence = ConfidenceHigh
				sig.Reasoning = append(sig.Reasoning, "Price sitting on support")
			}
			return sig
		},
	},
	{
		Name: "at_resistance",
		When: func(in Input) bool { return in.Momentum >= 55 && in.Flags.NearResistance },
		Then: func(in Input) ActionSignal {
			return ActionSignal{
				Action:       WaitForDip,
				Confidence:   ConfidenceMedium,
				Reasoning:    []string{"Good score but pressing 14d resistance"},
				Entry:        zone(in.Price, 0.90, 0.95),
				StopLoss:     in.Price * 0.85,
				TakeProfit:   in.Price * 1.10,
				PositionSize: "1-2% on pullback",
				Timeframe:    "wait for retest",
			}
		},
	},
	{
		Name: "poor_timing",
		When: func(in Input) bool { return in.Momentum >= 50 && in.Timing < 50 },
		Then: func(in Input) ActionSignal {
			return ActionSignal{
				Action:       WaitBetterTiming,
				Confidence:   ConfidenceMedium,
				Reasoning:    []string{fmt.Sprintf("Decent score %.1f but timing only %.0f", in.Momentum, in.Timing)},
				Entry:        zone(in.Price, 0.95, 1.00),
				StopLoss:     in.Price * 0.88,
				TakeProfit:   in.Price * 1.12,
				PositionSize: "1% starter",
				Timeframe:    "re-check in 2-3 days",
			}
		},
	},
	{
		Name: "default",
		When: func(Input) bool { return true },
		Then: func(in Input) ActionSignal {
			return ActionSignal{
				Action:       Watch,
				Confidence:   ConfidenceLow,
				Reasoning:    []string{fmt.Sprintf("Score %.1f not compelling yet", in.Momentum)},
				PositionSize: "0%",
				Timeframe:    "re-check next scan",
			}
		},
	},
}

// Evaluate runs the rule chain and attaches warnings
func Evaluate(in Input) ActionSignal {
	for _, r := range Rules {
		if !r.When(in) {
			continue
		}
		sig := r.Then(in)
		sig.Rule = r.Name
		sig.Warnings = warnings(in)
		return sig
	}
	// unreachable while the default rule is last
	return ActionSignal{Action: Watch, Confidence: ConfidenceLow, Rule: "none", PositionSize: "0%"}
}

func skip(action Action, conf Confidence, reason string) ActionSignal {
	return ActionSignal{
		Action:       action,
		Confidence:   conf,
		Reasoning:    []string{reason},
		PositionSize: "0%",
		Timeframe:    "n/a",
	}
}

func zone(price, lo, hi float64) EntryZone {
	return EntryZone{Low: price * lo, High: price * hi}
}

func warnings(in Input) []string {
	var w []string
	if in.Risk >= 60 {
		w = append(w, fmt.Sprintf("Elevated risk score %.0f", in.Risk))
	}
	if !in.Flags.Liquid {
		w = append(w, "Low liquidity")
	}
	if in.Flags.Overheated {
		w = append(w, "Recent pump, chase risk")
	}
	if in.Rank > 200 {
		w = append(w, "Small cap, expect volatility")
	}
	return w
}
