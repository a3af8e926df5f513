package composite

import (
	"fmt"
	"math"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

const pocProximity = 0.02

// signals collects the human-readable notes for a coin in a fixed order
// and truncates them to the configured limit.
func (r *Ranker) signals(cand *candidate) []string {
	b := &cand.breakdown
	c := cand.coin
	var out []string

	switch m := b.SectorMultiplier; {
	case m > 1:
		out = append(out, fmt.Sprintf("Hot sector %s (x%.2f)", c.Sector, m))
	case m < 1:
		out = append(out, fmt.Sprintf("Weak sector %s (x%.2f)", c.Sector, m))
	}

	if b.AccumulationBonus {
		out = append(out, fmt.Sprintf("Accumulation bonus x%.2f (%s)", r.cfg.Accumulation.Multiplier, b.Accumulation.Category))
	}

	if sv := c.SmartVolume; sv != nil {
		switch sv.Character {
		case market.CharacterWhale:
			out = append(out, fmt.Sprintf("Whale-dominated volume (%.0f%% buys)", sv.WhaleBuyRatio*100))
		case market.CharacterRetail:
			out = append(out, "Retail-dominated volume")
		}
	}

	if vp := c.Profile; vp != nil && vp.POC > 0 && math.Abs(c.Price-vp.POC)/vp.POC <= pocProximity {
		out = append(out, fmt.Sprintf("Near volume POC %.6g", vp.POC))
	}

	out = append(out, cand.price.Reasons...)
	out = append(out, cand.volume.Reasons...)
	out = append(out, cand.position.Reasons...)
	out = append(out, cand.risk.Reasons...)
	out = append(out, cand.flow.Reasons...)
	out = append(out, top(cand.dex.Reasons, 2)...)
	out = append(out, top(b.Accumulation.Signals, 2)...)

	if len(out) > r.cfg.SignalLimit {
		out = out[:r.cfg.SignalLimit]
	}
	return out
}

func top(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
