package indicators

import (
	"math"
	"time"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

// Trade is a single executed trade as reported by the exchange
type Trade struct {
	Price float64
	Qty   float64
	IsBuy bool // taker side was the buyer
	Time  time.Time
}

// Notional is the quote value of the trade
func (t Trade) Notional() float64 {
	return t.Price * t.Qty
}

// DeriveWhaleActivity counts trades at or above whaleNotional and measures
// how much of that large-trade volume was buying. Trades must be
// chronological. Returns nil for an empty window.
func DeriveWhaleActivity(trades []Trade, whaleNotional float64) *market.WhaleActivity {
	if len(trades) == 0 {
		return nil
	}

	out := &market.WhaleActivity{BuyPressure: 0.5}
	var buyVol, totalVol float64
	for _, t := range trades {
		n := t.Notional()
		if n < whaleNotional {
			continue
		}
		totalVol += n
		if t.IsBuy {
			out.LargeBuys++
			buyVol += n
		} else {
			out.LargeSells++
		}
	}
	if totalVol > 0 {
		out.BuyPressure = buyVol / totalVol
	}

	first := trades[0].Price
	if first > 0 {
		out.PriceImpactPct = math.Abs(trades[len(trades)-1].Price-first) / first * 100
	}
	return out
}

// ClassifySmartVolume buckets volume by trade size: whale at or above
// whaleNotional, retail below retailNotional, mid otherwise.
func ClassifySmartVolume(trades []Trade, whaleNotional, retailNotional float64) *market.SmartVolume {
	if len(trades) == 0 {
		return nil
	}

	sv := &market.SmartVolume{}
	var whaleBuy float64
	for _, t := range trades {
		n := t.Notional()
		switch {
		case n >= whaleNotional:
			sv.WhaleVolume += n
			if t.IsBuy {
				whaleBuy += n
			}
		case n < retailNotional:
			sv.RetailVolume += n
		default:
			sv.MidVolume += n
		}
	}

	total := sv.WhaleVolume + sv.MidVolume + sv.RetailVolume
	if sv.WhaleVolume > 0 {
		sv.WhaleBuyRatio = whaleBuy / sv.WhaleVolume
	}

	sv.Character = market.CharacterBalanced
	if total > 0 {
		switch {
		case sv.WhaleVolume/total >= 0.4:
			sv.Character = market.CharacterWhale
		case sv.RetailVolume/total >= 0.5:
			sv.Character = market.CharacterRetail
		}
	}
	return sv
}
