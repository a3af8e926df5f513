package factors

import (
	"fmt"
	"math"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

// Recommendation is the discrete timing call
type Recommendation string

const (
	BuyNow        Recommendation = "BUY NOW"
	GoodToBuy     Recommendation = "GOOD TO BUY"
	WaitForBetter Recommendation = "WAIT FOR BETTER"
	AvoidNow      Recommendation = "AVOID NOW"
)

// MinSectorPeers is the peer count needed for a sector timing read
const MinSectorPeers = 3

// Timing sub-score weights
const (
	timingMacroWeight     = 0.30
	timingCoinWeight      = 0.30
	timingSectorWeight    = 0.20
	timingTechnicalWeight = 0.20

	minTimingMultiplier  = 0.7
	timingMultiplierSpan = 0.6
)

// TimingResult is the weighted timing score and its components
type TimingResult struct {
	Score          float64        `json:"score"`
	Macro          float64        `json:"macro"`
	Coin           float64        `json:"coin"`
	Sector         float64        `json:"sector"`
	Technical      float64        `json:"technical"`
	Recommendation Recommendation `json:"recommendation"`
	Multiplier     float64        `json:"multiplier"`
	Reasons        []string       `json:"reasons,omitempty"`
}

// Timing judges whether now is a good moment to enter. peerChanges7d holds
// the 7d changes of the other coins in the same sector.
func Timing(c market.CoinSnapshot, mc market.MarketConditions, peerChanges7d []float64) TimingResult {
	var res TimingResult

	res.Macro = macroTiming(mc, &res.Reasons)
	res.Coin = coinTiming(c, &res.Reasons)
	res.Sector = sectorTiming(c, peerChanges7d, &res.Reasons)
	res.Technical = technicalTiming(c, &res.Reasons)

	res.Score = Clamp(
		res.Macro*timingMacroWeight+
			res.Coin*timingCoinWeight+
			res.Sector*timingSectorWeight+
			res.Technical*timingTechnicalWeight, 0, 100)
	res.Recommendation = recommend(res.Score)
	res.Multiplier = TimingMultiplier(res.Score)
	return res
}

// TimingMultiplier maps a 0-100 timing score linearly onto 0.7x-1.3x
func TimingMultiplier(score float64) float64 {
	return minTimingMultiplier + timingMultiplierSpan*Clamp(score, 0, 100)/100
}

func recommend(score float64) Recommendation {
	switch {
	case score >= 70:
		return BuyNow
	case score >= 55:
		return GoodToBuy
	case score >= 40:
		return WaitForBetter
	default:
		return AvoidNow
	}
}

func macroTiming(mc market.MarketConditions, reasons *[]string) float64 {
	score := 50.0

	switch dom := mc.BTCDominance; {
	case dom < 40:
		score += 20
		*reasons = append(*reasons, fmt.Sprintf("Low BTC dominance (%.1f%%)", dom))
	case dom < 50:
		score += 10
	case dom > 60:
		score -= 15
		*reasons = append(*reasons, fmt.Sprintf("BTC dominance high (%.1f%%)", dom))
	case dom > 55:
		score -= 5
	}

	// Contrarian: fear is a better entry than greed
	switch fg := mc.FearGreed.Value; {
	case fg < 25:
		score += 20
		*reasons = append(*reasons, "Extreme fear in market")
	case fg < 45:
		score += 10
	case fg > 75:
		score -= 20
		*reasons = append(*reasons, "Extreme greed in market")
	case fg > 60:
		score -= 10
	}

	switch chg := mc.DominanceChange24h; {
	case chg < -1:
		score += 10
		*reasons = append(*reasons, "Dominance falling fast")
	case chg < -0.3:
		score += 5
	case chg > 1:
		score -= 10
	}

	return Clamp(score, 0, 100)
}

func coinTiming(c market.CoinSnapshot, reasons *[]string) float64 {
	score := 50.0
	week, day := c.PriceChange7d, c.PriceChange24h

	switch {
	case week > 50:
		score -= 30
		*reasons = append(*reasons, "Overheated week")
	case week > 30:
		score -= 15
	}

	if math.Abs(day) > 25 {
		score -= 15
		*reasons = append(*reasons, "Wild 24h swing")
	}

	switch {
	case week < -20:
		score += 15
		*reasons = append(*reasons, "Oversold")
	case math.Abs(week) < 5 && math.Abs(day) < 3:
		score += 10
	}

	switch {
	case c.VolumeToMcap > 0.2:
		score += 15
	case c.VolumeToMcap > 0.1:
		score += 10
	}

	return Clamp(score, 0, 100)
}

var sectorDiffTiers = Tiers{{10, 80}, {3, 65}, {-3, 50}, {-10, 35}}

func sectorTiming(c market.CoinSnapshot, peers []float64, reasons *[]string) float64 {
	if !c.Sector.Known() || len(peers) < MinSectorPeers {
		return 50
	}

	sum := 0.0
	for _, p := range peers {
		sum += p
	}
	diff := c.PriceChange7d - sum/float64(len(peers))

	score := sectorDiffTiers.Above(diff)
	if score == 0 {
		score = 20
	}
	if diff > 10 {
		*reasons = append(*reasons, fmt.Sprintf("Leading %s peers by %.1f%%", c.Sector, diff))
	}
	return score
}

func technicalTiming(c market.CoinSnapshot, reasons *[]string) float64 {
	score := 50.0

	if vp := c.Profile; vp != nil && vp.POC > 0 && c.Price > 0 {
		switch {
		case math.Abs(c.Price-vp.POC)/vp.POC <= 0.02:
			score += 20
			*reasons = append(*reasons, "Trading at volume POC")
		case c.Price >= vp.ValueAreaLow && c.Price <= vp.ValueAreaHigh:
			score += 10
		case c.Price < vp.ValueAreaLow:
			score += 15
			*reasons = append(*reasons, "Below value area")
		case vp.ValueAreaHigh > 0 && c.Price > vp.ValueAreaHigh*1.05:
			score -= 15
			*reasons = append(*reasons, "Extended above value area")
		}
	}

	if sv := c.SmartVolume; sv != nil {
		switch {
		case sv.Character == market.CharacterWhale && sv.WhaleBuyRatio > 0.6:
			score += 20
			*reasons = append(*reasons, "Whale-led buying")
		case sv.Character == market.CharacterRetail:
			score -= 10
		}
	}

	return Clamp(score, 0, 100)
}
