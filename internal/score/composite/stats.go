package composite

import (
	"sort"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

// DefaultAboveThreshold is the score counted as "above threshold" in reports
const DefaultAboveThreshold = 60.0

// SectorStats aggregates the ranked coins of one sector
type SectorStats struct {
	Count        int     `json:"count"`
	AverageScore float64 `json:"average_score"`
	TopSymbol    string  `json:"top_symbol"`
	TopScore     float64 `json:"top_score"`
}

// Stats is the scan-level reduction over a ranked list
type Stats struct {
	Count          int                           `json:"count"`
	AverageScore   float64                       `json:"average_score"`
	Threshold      float64                       `json:"threshold"`
	AboveThreshold int                           `json:"above_threshold"`
	Categories     map[Category]int              `json:"categories"`
	Actions        map[string]int                `json:"actions"`
	Sectors        map[market.Sector]SectorStats `json:"sectors"`
}

// Summarize reduces a ranked list to aggregate statistics
func Summarize(ranked []RankedCoin, threshold float64) Stats {
	st := Stats{
		Count:      len(ranked),
		Threshold:  threshold,
		Categories: make(map[Category]int),
		Actions:    make(map[string]int),
		Sectors:    make(map[market.Sector]SectorStats),
	}
	if len(ranked) == 0 {
		return st
	}

	total := 0.0
	sectorTotals := make(map[market.Sector]float64)
	for _, rc := range ranked {
		score := rc.Breakdown.TotalScore
		total += score
		if score >= threshold {
			st.AboveThreshold++
		}
		st.Categories[rc.Breakdown.Category]++
		st.Actions[string(rc.Breakdown.Action.Action)]++

		ss := st.Sectors[rc.Sector]
		ss.Count++
		if ss.Count == 1 || score > ss.TopScore {
			ss.TopSymbol, ss.TopScore = rc.Symbol, score
		}
		st.Sectors[rc.Sector] = ss
		sectorTotals[rc.Sector] += score
	}

	st.AverageScore = round2(total / float64(len(ranked)))
	for s, ss := range st.Sectors {
		ss.AverageScore = round2(sectorTotals[s] / float64(ss.Count))
		st.Sectors[s] = ss
	}
	return st
}

// SectorStrengths exposes the sector pass for a scan, strongest first
func (r *Ranker) SectorStrengths(coins []market.CoinSnapshot, mc market.MarketConditions, strategy string) []SectorStrength {
	cands := r.firstPass(coins, mc, strategy)
	out := r.sectorStrengths(cands)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MeanScore > out[j].MeanScore })
	return out
}
