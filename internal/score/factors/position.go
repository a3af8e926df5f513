package factors

import (
	"fmt"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

// MaxPositionScore bounds the market position score
const MaxPositionScore = 60.0

var (
	// Top-20 scores below top-50; kept as-is.
	rankTiers      = Tiers{{20, 10}, {50, 30}, {75, 20}, {100, 10}}
	priceTierTable = Tiers{{0.01, 30}, {0.1, 25}, {0.5, 20}, {1, 15}, {2, 10}, {3, 5}}

	psychologicalLevels = []float64{
		0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 50, 100,
		250, 500, 1000, 5000, 10000, 50000, 100000,
	}
)

// MarketPosition scores rank, price tier and round-number proximity (0-60)
func MarketPosition(c market.CoinSnapshot) Result {
	var r Result

	score := 0.0
	if c.Rank > 0 {
		score += rankTiers.AtMost(float64(c.Rank))
	}
	if c.Rank > 20 && c.Rank <= 50 {
		r.note(fmt.Sprintf("Mid-cap sweet spot (#%d)", c.Rank))
	}

	if c.Price > 0 {
		score += priceTierTable.Below(c.Price)

		if level, dist, ok := nextLevel(c.Price); ok {
			switch {
			case dist <= 0.05:
				score += 20
				r.note(fmt.Sprintf("Just below $%g level", level))
			case dist <= 0.10:
				score += 10
				r.note(fmt.Sprintf("Approaching $%g level", level))
			}
		}
	}

	r.Score = Clamp(score, 0, MaxPositionScore)
	return r
}

// nextLevel finds the first psychological level above price and the
// fractional distance to it
func nextLevel(price float64) (level, dist float64, ok bool) {
	for _, l := range psychologicalLevels {
		if l > price {
			return l, (l - price) / l, true
		}
	}
	return 0, 0, false
}
