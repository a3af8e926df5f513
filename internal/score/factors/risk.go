package factors

import (
	"fmt"
	"math"

	"github.com/sawpanic/coinscope/internal/domain/indicators"
	"github.com/sawpanic/coinscope/internal/domain/market"
)

var (
	atrRiskTiers           = Tiers{{15, 30}, {10, 20}, {5, 10}}
	sentimentRiskTiers     = Tiers{{80, 25}, {65, 15}}
	meanReversionRiskTiers = Tiers{{40, 25}, {25, 15}}
)

// Risk scores how risky an entry is right now. Higher is riskier (0-100).
func Risk(c market.CoinSnapshot, mc market.MarketConditions) Result {
	var r Result
	score := 0.0

	// Volatility
	if c.Price > 0 && len(c.Klines) >= 2 {
		atrPct := indicators.RecentATR(c.Klines, 14) / c.Price * 100
		if pts := atrRiskTiers.Above(atrPct); pts > 0 {
			score += pts
			r.note(fmt.Sprintf("Volatile (ATR %.1f%% of price)", atrPct))
		}
	}

	// FOMO
	if c.PriceChange7d > 50 {
		score += math.Min((c.PriceChange7d-50)*0.3, 30)
		r.note(fmt.Sprintf("FOMO risk after +%.0f%% week", c.PriceChange7d))
	}

	// Sentiment
	if pts := sentimentRiskTiers.Above(float64(mc.FearGreed.Value)); pts > 0 {
		score += pts
		r.note(fmt.Sprintf("Market greed elevated (%d)", mc.FearGreed.Value))
	}

	// Project
	if c.Developer != nil && c.Developer.Commits4w == 0 {
		score += 20
		r.note("No commits in 4 weeks")
	}

	// Liquidity
	if c.VolumeToMcap < 0.02 {
		score += 15
		r.note("Thin liquidity")
	}

	// Low cap
	if c.Rank > 75 {
		score += math.Min(float64(c.Rank-75)*0.2, 15)
	}

	// Mean reversion
	if sma, ok := indicators.SimpleMovingAverage(c.Klines, 14); ok && sma > 0 {
		extension := (c.Price/sma - 1) * 100
		if pts := meanReversionRiskTiers.Above(extension); pts > 0 {
			score += pts
			r.note(fmt.Sprintf("%.0f%% above 14d average", extension))
		}
	}

	r.Score = Clamp(math.Round(score), 0, 100)
	return r
}
