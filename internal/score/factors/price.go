package factors

import (
	"fmt"
	"math"

	"github.com/sawpanic/coinscope/internal/domain/indicators"
	"github.com/sawpanic/coinscope/internal/domain/market"
)

// MaxPriceScore bounds the price momentum score
const MaxPriceScore = 70.0

const (
	weekCurveMax    = 70.0 // % change where the 7d curve saturates
	weekCurvePoints = 40.0
	dayCurveMax     = 25.0
	dayCurvePoints  = 20.0

	consistencyPoints = 10.0
	consistencyScale  = 15.0 // 24h % that earns the full consistency bonus
	dipBonus          = 15.0
)

// PriceMomentum scores price action on a 0-70 scale
func PriceMomentum(c market.CoinSnapshot) Result {
	var r Result
	week, day := c.PriceChange7d, c.PriceChange24h

	score := indicators.SmoothedScore(week, weekCurveMax, weekCurvePoints)
	score += indicators.SmoothedScore(day, dayCurveMax, dayCurvePoints)

	if week >= 30 {
		r.note(fmt.Sprintf("Strong weekly momentum (+%.1f%%)", week))
	}

	if day > 0 && week > 0 {
		score += math.Min(day/consistencyScale, 1) * consistencyPoints
		if day >= 5 {
			r.note("24h and 7d moving together")
		}
	}

	// Pullback inside an established pump
	if week > 20 && day < 0 && day > -10 {
		score += dipBonus
		r.note(fmt.Sprintf("Dip after pump (%.1f%% today, +%.1f%% week)", day, week))
	}

	if week > 10 {
		bonus := indicators.TrendStabilityBonus(c.Klines)
		score += bonus
		if bonus >= 10 {
			r.note("Stable uptrend")
		}
	}

	r.Score = Clamp(score, 0, MaxPriceScore)
	return r
}
