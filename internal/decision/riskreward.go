package decision

import (
	"math"

	"github.com/shopspring/decimal"
)

// Tier grades the expected value of a trade
type Tier string

const (
	TierExcellent  Tier = "EXCELLENT"
	TierGood       Tier = "GOOD"
	TierAcceptable Tier = "ACCEPTABLE"
	TierNeutral    Tier = "NEUTRAL"
	TierPoor       Tier = "POOR"
)

// RiskReward is the probability-weighted trade estimate
type RiskReward struct {
	UpsidePct     float64 `json:"upside_pct"`
	DownsidePct   float64 `json:"downside_pct"`
	Ratio         float64 `json:"ratio"`
	Probability   float64 `json:"probability"`
	ExpectedValue float64 `json:"expected_value"`
	Tier          Tier    `json:"tier"`
	PositionSize  string  `json:"position_size"`
}

// EstimateRiskReward projects upside, downside and win probability from
// the coin's scores and the market backdrop.
func EstimateRiskReward(in Input) RiskReward {
	up := upside(in)
	down := downside(in)
	p := probability(in)

	rr := RiskReward{
		UpsidePct:     round2(up),
		DownsidePct:   round2(down),
		Ratio:         round2(up / down),
		Probability:   round2(p),
		ExpectedValue: round2(up*p - down*(1-p)),
	}
	rr.Tier, rr.PositionSize = grade(rr.ExpectedValue, up/down)
	return rr
}

func upside(in Input) float64 {
	var base float64
	switch m := in.Momentum; {
	case m >= 70:
		base = 40
	case m >= 60:
		base = 30
	case m >= 50:
		base = 22
	case m >= 40:
		base = 15
	default:
		base = 10
	}

	timing := in.TimingMultiplier
	if timing == 0 {
		timing = 1
	}
	sector := in.SectorMultiplier
	if sector == 0 {
		sector = 1
	}
	dom := 1.0
	switch {
	case in.BTCDominance > 0 && in.BTCDominance < 45:
		dom = 1.2
	case in.BTCDominance > 55:
		dom = 0.85
	}

	up := base * timing * dom * sector
	if in.Flags.NearSupport {
		up += 5
	}
	if in.VolumeToMcap > 0.1 {
		up += 5
	}
	return clamp(up, 5, 80)
}

func downside(in Input) float64 {
	var down float64
	switch r := in.Risk; {
	case r >= 80:
		down = 35
	case r >= 60:
		down = 25
	case r >= 40:
		down = 18
	default:
		down = 12
	}

	switch {
	case in.Rank > 200:
		down += 8
	case in.Rank > 100:
		down += 4
	}
	if !in.Flags.Liquid {
		down += 6
	}
	switch {
	case in.Change7d > 50:
		down += 8
	case in.Change7d > 30:
		down += 4
	}
	if math.Abs(in.Change24h) > 15 {
		down += 5
	}
	if !in.Flags.Listed {
		down += 10
	}

	switch {
	case in.BTCDominance > 55:
		down *= 1.15
	case in.BTCDominance > 0 && in.BTCDominance < 45:
		down *= 0.9
	}
	return clamp(down, 8, 50)
}

func probability(in Input) float64 {
	p := 0.5

	switch m := in.Momentum; {
	case m >= 70:
		p += 0.10
	case m >= 60:
		p += 0.05
	case m < 40:
		p -= 0.10
	}
	switch t := in.Timing; {
	case t >= 65:
		p += 0.05
	case t < 40:
		p -= 0.05
	}
	switch r := in.Risk; {
	case r >= 70:
		p -= 0.10
	case r < 30:
		p += 0.05
	}
	switch fg := in.FearGreed; {
	case fg > 0 && fg < 25:
		p += 0.05
	case fg > 80:
		p -= 0.05
	}
	switch {
	case in.Rank > 0 && in.Rank <= 50:
		p += 0.05
	case in.Rank > 200:
		p -= 0.05
	}
	if !in.Flags.Listed {
		p -= 0.10
	}
	if in.VolumeToMcap > 0.1 {
		p += 0.05
	}
	return clamp(p, 0.1, 0.9)
}

func grade(ev, ratio float64) (Tier, string) {
	switch {
	case ev >= 15 && ratio >= 2:
		return TierExcellent, "3-5%"
	case ev >= 8 && ratio >= 1.5:
		return TierGood, "2-3%"
	case ev >= 3:
		return TierAcceptable, "1-2%"
	case ev < -3:
		return TierPoor, "0%"
	default:
		return TierNeutral, "0.5-1%"
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
