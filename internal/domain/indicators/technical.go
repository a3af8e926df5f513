package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

// StabilityWindow is the number of trailing candles used for trend stability
const StabilityWindow = 7

// SmoothedScore turns a "bigger is better" metric into a bounded score.
// Negative values score zero and the curve saturates at maxExpected.
func SmoothedScore(value, maxExpected, maxPoints float64) float64 {
	if maxExpected <= 0 || math.IsNaN(value) {
		return 0
	}
	if value < 0 {
		value = 0
	}
	return math.Min(value/maxExpected, 1) * maxPoints
}

// columns splits candles into the parallel slices talib expects
func columns(klines []market.Kline) (highs, lows, closes []float64) {
	highs = make([]float64, len(klines))
	lows = make([]float64, len(klines))
	closes = make([]float64, len(klines))
	for i, k := range klines {
		highs[i] = k.High
		lows[i] = k.Low
		closes[i] = k.Close
	}
	return highs, lows, closes
}

// trueRanges returns the true range of every adjacent candle pair
func trueRanges(klines []market.Kline) []float64 {
	if len(klines) < 2 {
		return nil
	}
	highs, lows, closes := columns(klines)
	// index 0 has no previous close and is left at zero by talib
	return talib.TRange(highs, lows, closes)[1:]
}

// AverageTrueRange is the mean true range across all adjacent pairs.
// Returns 0 when fewer than 2 candles are available.
func AverageTrueRange(klines []market.Kline) float64 {
	return mean(trueRanges(klines))
}

// RecentATR averages the true range of the last `pairs` candle pairs,
// or of every pair when history is shorter.
func RecentATR(klines []market.Kline, pairs int) float64 {
	tr := trueRanges(klines)
	if pairs > 0 && len(tr) > pairs {
		tr = tr[len(tr)-pairs:]
	}
	return mean(tr)
}

// SimpleMovingAverage is the mean close of the last period candles.
// The second return is false when history is insufficient.
func SimpleMovingAverage(klines []market.Kline, period int) (float64, bool) {
	if period <= 0 || len(klines) < period {
		return 0, false
	}
	_, _, closes := columns(klines)
	if period == 1 {
		return closes[len(closes)-1], true
	}
	sma := talib.Sma(closes, period)
	return sma[len(sma)-1], true
}

// DailyChanges returns close-to-close percent changes
func DailyChanges(klines []market.Kline) []float64 {
	if len(klines) < 2 {
		return nil
	}
	out := make([]float64, 0, len(klines)-1)
	for i := 1; i < len(klines); i++ {
		prev := klines[i-1].Close
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (klines[i].Close-prev)/prev*100)
	}
	return out
}

// TrendStabilityBonus rewards a steady trend: lower standard deviation of
// the daily % changes across the trailing window earns a bigger bonus.
func TrendStabilityBonus(klines []market.Kline) float64 {
	if len(klines) < StabilityWindow {
		return 0
	}
	changes := DailyChanges(klines[len(klines)-StabilityWindow:])
	stdev := populationStdDev(changes)

	switch {
	case stdev < 5:
		return 15
	case stdev < 10:
		return 10
	case stdev < 15:
		return 5
	default:
		return 0
	}
}

// VolatilityContraction is the ratio of the 7-pair ATR to the 14-pair ATR.
// ok is false with fewer than 15 candles or a flat 14-pair window.
func VolatilityContraction(klines []market.Kline) (ratio float64, ok bool) {
	if len(klines) < 15 {
		return 0, false
	}
	atr14 := RecentATR(klines, 14)
	if atr14 <= 0 {
		return 0, false
	}
	return RecentATR(klines, 7) / atr14, true
}

// HighLow returns the highest high and lowest low across klines
func HighLow(klines []market.Kline) (high, low float64) {
	if len(klines) == 0 {
		return 0, 0
	}
	high, low = klines[0].High, klines[0].Low
	for _, k := range klines[1:] {
		high = math.Max(high, k.High)
		low = math.Min(low, k.Low)
	}
	return high, low
}

func populationStdDev(values []float64) float64 {
	switch len(values) {
	case 0, 1:
		return 0
	}
	sd := talib.StdDev(values, len(values), 1)
	return sd[len(sd)-1]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
