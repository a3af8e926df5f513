package factors

import (
	"math"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

const (
	// MinStructureCandles is the history required for structure analysis
	MinStructureCandles = 30
	structureWindow     = 14
)

// StructureFacts are the raw observations behind the structure score
type StructureFacts struct {
	NearHigh  bool
	HigherLow bool
	NearLow   bool
	High14    float64
	Low14     float64
}

// AnalyzeStructure inspects the last 14 candles. ok is false with too
// little history.
func AnalyzeStructure(klines []market.Kline) (StructureFacts, bool) {
	if len(klines) < MinStructureCandles {
		return StructureFacts{}, false
	}
	window := klines[len(klines)-structureWindow:]
	half := structureWindow / 2

	var f StructureFacts
	f.High14, f.Low14 = window[0].High, window[0].Low
	firstLow, secondLow := math.Inf(1), math.Inf(1)
	for i, k := range window {
		f.High14 = math.Max(f.High14, k.High)
		f.Low14 = math.Min(f.Low14, k.Low)
		if i < half {
			firstLow = math.Min(firstLow, k.Low)
		} else {
			secondLow = math.Min(secondLow, k.Low)
		}
	}

	last := window[len(window)-1].Close
	f.NearHigh = last >= f.High14*0.95
	f.HigherLow = secondLow > firstLow
	f.NearLow = last <= f.Low14*1.02
	return f, true
}

// MarketStructure scores higher-highs/higher-lows on a -20..+30 scale
func MarketStructure(c market.CoinSnapshot) Result {
	f, ok := AnalyzeStructure(c.Klines)
	if !ok {
		return Result{}
	}

	var r Result
	if f.NearHigh {
		r.Score += 15
		r.note("Pressing 14d high")
	}
	if f.HigherLow {
		r.Score += 15
		r.note("Higher low forming")
	}
	if f.NearLow {
		r.Score -= 20
		r.note("Sitting on 14d low")
	}
	r.Score = Clamp(r.Score, -20, 30)
	return r
}
