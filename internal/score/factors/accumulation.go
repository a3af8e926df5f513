package factors

import (
	"fmt"
	"math"

	"github.com/sawpanic/coinscope/internal/domain/indicators"
	"github.com/sawpanic/coinscope/internal/domain/market"
)

// AccumulationCategory labels the strength of an accumulation pattern
type AccumulationCategory string

const (
	StrongAccumulation   AccumulationCategory = "STRONG_ACCUMULATION"
	ModerateAccumulation AccumulationCategory = "MODERATE_ACCUMULATION"
	WeakAccumulation     AccumulationCategory = "WEAK_ACCUMULATION"
	NoAccumulation       AccumulationCategory = "NO_ACCUMULATION"
)

// AccumulationInput is the subset of a snapshot the accumulation model reads
type AccumulationInput struct {
	ContractionRatio float64 // ATR-7 / ATR-14
	HasContraction   bool
	VolumeToMcap     float64
	PriceChange24h   float64
	Whale            *market.WhaleActivity
}

// AccumulationResult breaks the 0-100 accumulation score into its parts
type AccumulationResult struct {
	Score       float64              `json:"score"`
	Contraction float64              `json:"volatility_contraction"` // 0-30
	Absorption  float64              `json:"volume_absorption"`      // 0-40
	Whale       float64              `json:"whale"`                  // 0-30
	Category    AccumulationCategory `json:"category"`
	Signals     []string             `json:"signals,omitempty"`
}

var contractionTiers = Tiers{{0.5, 30}, {0.7, 20}, {0.85, 10}}

// absorptionRule awards points when volume is high and price barely moved
type absorptionRule struct {
	minVolumeToMcap float64
	maxMove         float64
	points          float64
}

var absorptionRules = []absorptionRule{
	{0.20, 3, 40},
	{0.10, 5, 30},
	{0.05, 5, 20},
	{0.03, 8, 10},
}

// AccumulationInputFrom extracts the accumulation inputs from a snapshot
func AccumulationInputFrom(c market.CoinSnapshot) AccumulationInput {
	ratio, ok := indicators.VolatilityContraction(c.Klines)
	return AccumulationInput{
		ContractionRatio: ratio,
		HasContraction:   ok,
		VolumeToMcap:     c.VolumeToMcap,
		PriceChange24h:   c.PriceChange24h,
		Whale:            c.Whale,
	}
}

// Accumulation detects quiet buying: contracting volatility, volume
// absorbed without price movement and large-trade buy pressure.
func Accumulation(in AccumulationInput) AccumulationResult {
	var res AccumulationResult

	if in.HasContraction {
		res.Contraction = contractionTiers.Below(in.ContractionRatio)
		if res.Contraction >= 20 {
			res.Signals = append(res.Signals, fmt.Sprintf("Volatility contracting (ATR ratio %.2f)", in.ContractionRatio))
		}
	}

	move := math.Abs(in.PriceChange24h)
	for _, rule := range absorptionRules {
		if in.VolumeToMcap > rule.minVolumeToMcap && move < rule.maxMove {
			res.Absorption = rule.points
			break
		}
	}
	if res.Absorption >= 30 {
		res.Signals = append(res.Signals, fmt.Sprintf("Volume absorbed with %.1f%% move", move))
	}

	if w := in.Whale; w != nil {
		switch {
		case w.BuyPressure > 0.65 && w.PriceImpactPct < 3:
			res.Whale = 30
		case w.BuyPressure > 0.6 && w.PriceImpactPct < 5:
			res.Whale = 20
		case w.BuyPressure > 0.55:
			res.Whale = 10
		}
		if res.Whale >= 20 {
			res.Signals = append(res.Signals, fmt.Sprintf("Whales buying (%.0f%% of large trades)", w.BuyPressure*100))
		}
	}

	res.Score = Clamp(res.Contraction+res.Absorption+res.Whale, 0, 100)
	res.Category = accumulationCategory(res.Score)
	return res
}

func accumulationCategory(score float64) AccumulationCategory {
	switch {
	case score >= 75:
		return StrongAccumulation
	case score >= 50:
		return ModerateAccumulation
	case score >= 25:
		return WeakAccumulation
	default:
		return NoAccumulation
	}
}
