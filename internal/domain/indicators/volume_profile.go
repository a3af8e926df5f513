package indicators

import (
	"math"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

// ValueAreaShare is the fraction of volume the value area must contain
const ValueAreaShare = 0.70

// BuildVolumeProfile buckets the typical price of each candle into bins
// weighted by volume. The point of control is the centre of the heaviest
// bin; the value area grows outward from it toward the heavier neighbour
// until it holds ValueAreaShare of the total volume.
func BuildVolumeProfile(klines []market.Kline, bins int) (*market.VolumeProfile, bool) {
	if len(klines) == 0 || bins <= 0 {
		return nil, false
	}
	hi, lo := HighLow(klines)
	if hi <= lo {
		return nil, false
	}

	width := (hi - lo) / float64(bins)
	hist := make([]float64, bins)
	total := 0.0
	for _, k := range klines {
		typical := (k.High + k.Low + k.Close) / 3
		idx := int((typical - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		hist[idx] += k.Volume
		total += k.Volume
	}
	if total <= 0 {
		return nil, false
	}

	poc := 0
	for i, v := range hist {
		if v > hist[poc] {
			poc = i
		}
	}

	lower, upper := poc, poc
	covered := hist[poc]
	target := total * ValueAreaShare
	for covered < target && (lower > 0 || upper < bins-1) {
		below, above := -1.0, -1.0
		if lower > 0 {
			below = hist[lower-1]
		}
		if upper < bins-1 {
			above = hist[upper+1]
		}
		if above >= below {
			upper++
			covered += hist[upper]
		} else {
			lower--
			covered += hist[lower]
		}
	}

	return &market.VolumeProfile{
		POC:           lo + (float64(poc)+0.5)*width,
		ValueAreaLow:  lo + float64(lower)*width,
		ValueAreaHigh: math.Min(hi, lo+float64(upper+1)*width),
	}, true
}
