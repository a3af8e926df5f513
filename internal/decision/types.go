package decision

import (
	"math"

	"github.com/sawpanic/coinscope/internal/domain/indicators"
	"github.com/sawpanic/coinscope/internal/domain/market"
)

// Action is the trade call produced for a coin
type Action string

const (
	BuyNow           Action = "BUY_NOW"
	Buy              Action = "BUY"
	WaitForDip       Action = "WAIT_FOR_DIP"
	WaitBetterTiming Action = "WAIT_BETTER_TIMING"
	SkipHighRisk     Action = "SKIP_HIGH_RISK"
	SkipWeak         Action = "SKIP_WEAK"
	Watch            Action = "WATCH"
)

// Confidence grades how strongly the rule fired
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// MinLiquidVolumeToMcap is the volume/mcap ratio below which a coin is illiquid
const MinLiquidVolumeToMcap = 0.02

// Flags are the boolean facts the rule chain branches on
type Flags struct {
	Overheated     bool `json:"overheated"`
	NearSupport    bool `json:"near_support"`
	NearResistance bool `json:"near_resistance"`
	Liquid         bool `json:"liquid"`
	Listed         bool `json:"listed"`
}

// Input is everything the decision layer reads for one coin
type Input struct {
	Symbol       string
	Price        float64
	Rank         int
	Change24h    float64
	Change7d     float64
	VolumeToMcap float64

	Momentum         float64 // composite total score
	Timing           float64
	TimingMultiplier float64
	Risk             float64
	SectorMultiplier float64

	BTCDominance float64
	FearGreed    int

	Flags Flags
}

// FlagsFor derives decision flags from raw snapshot data. higherLow comes
// from the market-structure analysis when it was available.
func FlagsFor(c market.CoinSnapshot, higherLow bool) Flags {
	f := Flags{
		Overheated:  c.PriceChange7d > 50 || c.PriceChange24h > 25,
		Liquid:      c.VolumeToMcap >= MinLiquidVolumeToMcap,
		Listed:      c.Listed(),
		NearSupport: higherLow,
	}

	if vp := c.Profile; vp != nil && c.Price > 0 {
		if near(c.Price, vp.POC, 0.03) || near(c.Price, vp.ValueAreaLow, 0.03) {
			f.NearSupport = true
		}
	}

	if len(c.Klines) >= 14 && c.Price > 0 {
		high, _ := indicators.HighLow(c.Klines[len(c.Klines)-14:])
		f.NearResistance = high > 0 && c.Price >= high*0.97 && c.Price <= high*1.01
	}
	return f
}

func near(price, level, tolerance float64) bool {
	if level <= 0 {
		return false
	}
	return math.Abs(price-level)/level <= tolerance
}
