package composite

import (
	"github.com/sawpanic/coinscope/internal/domain/market"
	"github.com/sawpanic/coinscope/internal/score/factors"
)

// SectorStrength is the second-pass view of one sector within a scan
type SectorStrength struct {
	Sector     market.Sector `json:"sector"`
	Members    int           `json:"members"`
	MeanScore  float64       `json:"mean_score"`
	Multiplier float64       `json:"multiplier"`
}

// sectorMultipliers averages the clamped timed scores per known sector.
// Sectors with fewer than MinMembers listed coins stay neutral.
func (r *Ranker) sectorMultipliers(cands []candidate) map[market.Sector]float64 {
	out := make(map[market.Sector]float64)
	for _, s := range r.sectorStrengths(cands) {
		out[s.Sector] = s.Multiplier
	}
	return out
}

func (r *Ranker) sectorStrengths(cands []candidate) []SectorStrength {
	sums := make(map[market.Sector]float64)
	counts := make(map[market.Sector]int)
	var order []market.Sector

	for _, c := range cands {
		s := c.coin.Sector
		if !s.Known() {
			continue
		}
		if counts[s] == 0 {
			order = append(order, s)
		}
		sums[s] += factors.Clamp(c.timed, 0, 100)
		counts[s]++
	}

	strengths := make([]SectorStrength, 0, len(order))
	for _, s := range order {
		st := SectorStrength{
			Sector:     s,
			Members:    counts[s],
			MeanScore:  sums[s] / float64(counts[s]),
			Multiplier: 1.0,
		}
		if st.Members >= r.cfg.Sector.MinMembers {
			st.Multiplier = r.cfg.Sector.Multiplier(st.MeanScore)
		}
		strengths = append(strengths, st)
	}
	return strengths
}
