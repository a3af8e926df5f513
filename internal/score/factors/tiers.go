package factors

import "math"

// Result is a bounded sub-score with the reasons that produced it
type Result struct {
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

func (r *Result) note(reason string) {
	r.Reasons = append(r.Reasons, reason)
}

// Tier awards Points when a value clears Bound
type Tier struct {
	Bound  float64
	Points float64
}

// Tiers are evaluated top-down and the first matching tier wins
type Tiers []Tier

// Above awards the first tier with value > Bound
func (ts Tiers) Above(v float64) float64 {
	for _, t := range ts {
		if v > t.Bound {
			return t.Points
		}
	}
	return 0
}

// AtLeast awards the first tier with value >= Bound
func (ts Tiers) AtLeast(v float64) float64 {
	for _, t := range ts {
		if v >= t.Bound {
			return t.Points
		}
	}
	return 0
}

// Below awards the first tier with value < Bound
func (ts Tiers) Below(v float64) float64 {
	for _, t := range ts {
		if v < t.Bound {
			return t.Points
		}
	}
	return 0
}

// AtMost awards the first tier with value <= Bound
func (ts Tiers) AtMost(v float64) float64 {
	for _, t := range ts {
		if v <= t.Bound {
			return t.Points
		}
	}
	return 0
}

// Clamp bounds v to [lo, hi], mapping NaN to lo
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
