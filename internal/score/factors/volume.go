package factors

import (
	"fmt"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

var (
	// 50% of the volume score
	volumeToMcapTiers = Tiers{{0.5, 50}, {0.3, 40}, {0.2, 30}, {0.1, 20}, {0.05, 10}}
	// 30%
	tradeCountTiers = Tiers{{2_000_000, 30}, {1_000_000, 25}, {500_000, 20}, {200_000, 15}, {100_000, 10}, {50_000, 5}}
	// 20%
	rangeTiers = Tiers{{20, 20}, {15, 15}, {10, 10}, {5, 5}}
)

// VolumeActivity scores trading activity on a 0-100 scale
func VolumeActivity(c market.CoinSnapshot) Result {
	var r Result

	score := volumeToMcapTiers.Above(c.VolumeToMcap)
	if c.VolumeToMcap > 0.2 {
		r.note(fmt.Sprintf("High volume/mcap (%.0f%%)", c.VolumeToMcap*100))
	}

	if l := c.Listing; l != nil {
		score += tradeCountTiers.Above(float64(l.TradeCount24h))
		if l.TradeCount24h > 1_000_000 {
			r.note(fmt.Sprintf("Heavy trading (%dk trades)", l.TradeCount24h/1000))
		}

		if l.Low24h > 0 && l.High24h >= l.Low24h {
			rangePct := (l.High24h - l.Low24h) / l.Low24h * 100
			score += rangeTiers.AtLeast(rangePct)
		}
	}

	r.Score = Clamp(score, 0, 100)
	return r
}
