package factors

import (
	"fmt"
	"math"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

// NeutralFlowScore is returned when exchange flow cannot be measured
const NeutralFlowScore = 50.0

var (
	outflowTiers = Tiers{{-0.5, 95}, {-0.25, 80}, {-0.1, 65}}
	inflowTiers  = Tiers{{0.1, 50}, {0.25, 35}, {0.5, 20}}
)

// ExchangeFlowScore maps 24h net exchange flow as a share of market cap to
// 0-100. Tokens leaving exchanges score high, tokens arriving score low.
func ExchangeFlowScore(c market.CoinSnapshot) Result {
	if c.Flow == nil || c.MarketCap <= 0 {
		return Result{Score: NeutralFlowScore}
	}

	var r Result
	pct := c.Flow.NetFlow24hUSD / c.MarketCap * 100

	switch {
	case pct <= -0.1:
		r.Score = outflowTiers.AtMost(pct)
		r.note(fmt.Sprintf("Exchange outflow %.2f%% of mcap", math.Abs(pct)))
	case pct < 0.5:
		r.Score = inflowTiers.Below(pct)
		if pct >= 0.1 {
			r.note(fmt.Sprintf("Exchange inflow %.2f%% of mcap", pct))
		}
	default:
		r.Score = 5
		r.note(fmt.Sprintf("Heavy exchange inflow %.2f%% of mcap", pct))
	}
	return r
}
