package factors

import (
	"fmt"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

// NoDEXDataSignal marks coins without any DEX coverage
const NoDEXDataSignal = "No DEX data"

const (
	dexLiquidityWeight     = 0.30
	dexVolumeQualityWeight = 0.25
)

var (
	// buy pressure, DEX count and tx count tiers already carry their
	// 20/15/10 percent weights
	dexBuyPressureTiers = Tiers{{60, 20}, {55, 15}, {50, 10}, {40, 5}}
	dexCountTiers       = Tiers{{5, 15}, {3, 10}, {2, 5}}
	dexTxTiers          = Tiers{{10_000, 10}, {5_000, 7}, {1_000, 4}}
)

// DEXScore rates on-chain DEX liquidity and trading quality (0-100)
func DEXScore(c market.CoinSnapshot) Result {
	if !c.HasDEXData() {
		return Result{Reasons: []string{NoDEXDataSignal}}
	}
	d := c.DEX

	var r Result
	score := Clamp(d.LiquidityScore, 0, 100)*dexLiquidityWeight +
		Clamp(d.VolumeQualityScore, 0, 100)*dexVolumeQualityWeight +
		dexBuyPressureTiers.Above(d.BuyPressurePct) +
		dexCountTiers.AtLeast(float64(d.DEXCount)) +
		dexTxTiers.Above(float64(d.TxCount24h))

	if d.LiquidityScore >= 70 {
		r.note("Deep DEX liquidity")
	}
	if d.BuyPressurePct > 60 {
		r.note(fmt.Sprintf("DEX buy pressure %.0f%%", d.BuyPressurePct))
	}
	if d.DEXCount >= 5 {
		r.note(fmt.Sprintf("Traded on %d DEXs", d.DEXCount))
	}
	if d.LiquidityScore < 20 {
		r.note("Shallow DEX liquidity")
	}

	r.Score = Clamp(score, 0, 100)
	return r
}
