package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

func candles(closes ...float64) []market.Kline {
	out := make([]market.Kline, len(closes))
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = market.Kline{
			OpenTime: start.AddDate(0, 0, i),
			Open:     c,
			High:     c * 1.01,
			Low:      c * 0.99,
			Close:    c,
			Volume:   1000,
		}
	}
	return out
}

func TestSmoothedScore(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		max      float64
		points   float64
		expected float64
	}{
		{"negative clamps to zero", -15, 70, 40, 0},
		{"zero", 0, 70, 40, 0},
		{"half way", 35, 70, 40, 20},
		{"at threshold", 70, 70, 40, 40},
		{"saturates", 10000, 70, 40, 40},
		{"invalid max", 10, 0, 40, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, SmoothedScore(tc.value, tc.max, tc.points), 1e-9)
		})
	}
}

func TestAverageTrueRange(t *testing.T) {
	assert.Equal(t, 0.0, AverageTrueRange(nil))
	assert.Equal(t, 0.0, AverageTrueRange(candles(100)))

	klines := []market.Kline{
		{High: 10, Low: 8, Close: 9},
		{High: 12, Low: 9, Close: 11},  // tr = max(3, |12-9|, |9-9|) = 3
		{High: 11, Low: 10, Close: 10}, // tr = max(1, |11-11|, |10-11|) = 1
		{High: 10, Low: 6, Close: 7},   // tr = max(4, 0, 4) = 4
	}
	assert.InDelta(t, 8.0/3.0, AverageTrueRange(klines), 1e-9)
	assert.InDelta(t, 2.5, RecentATR(klines, 2), 1e-9)
}

func TestSimpleMovingAverage(t *testing.T) {
	_, ok := SimpleMovingAverage(candles(1, 2, 3), 14)
	assert.False(t, ok)

	sma, ok := SimpleMovingAverage(candles(1, 2, 3, 4, 5), 3)
	require.True(t, ok)
	assert.InDelta(t, 4.0, sma, 1e-9)
}

func TestTrendStabilityBonus(t *testing.T) {
	assert.Equal(t, 0.0, TrendStabilityBonus(candles(1, 2, 3)))

	steady := candles(100, 101, 102, 103, 104, 105, 106)
	assert.Equal(t, 15.0, TrendStabilityBonus(steady))

	choppy := candles(100, 130, 95, 140, 90, 150, 85)
	assert.Equal(t, 0.0, TrendStabilityBonus(choppy))
}

func TestVolatilityContraction(t *testing.T) {
	_, ok := VolatilityContraction(candles(1, 2, 3))
	assert.False(t, ok)

	klines := make([]market.Kline, 0, 15)
	for i := 0; i < 15; i++ {
		spread := 10.0
		if i >= 8 {
			spread = 2.0
		}
		klines = append(klines, market.Kline{High: 100 + spread, Low: 100 - spread, Close: 100})
	}
	ratio, ok := VolatilityContraction(klines)
	require.True(t, ok)
	assert.Less(t, ratio, 0.5)
}

func TestBuildVolumeProfile(t *testing.T) {
	_, ok := BuildVolumeProfile(nil, 24)
	assert.False(t, ok)

	klines := []market.Kline{
		{High: 101, Low: 99, Close: 100, Volume: 10},
		{High: 101, Low: 99, Close: 100, Volume: 500},
		{High: 111, Low: 109, Close: 110, Volume: 20},
		{High: 91, Low: 89, Close: 90, Volume: 20},
	}
	vp, ok := BuildVolumeProfile(klines, 10)
	require.True(t, ok)
	assert.InDelta(t, 100, vp.POC, 2.2)
	assert.LessOrEqual(t, vp.ValueAreaLow, vp.POC)
	assert.GreaterOrEqual(t, vp.ValueAreaHigh, vp.POC)
}

func TestDeriveWhaleActivity(t *testing.T) {
	assert.Nil(t, DeriveWhaleActivity(nil, 50000))

	trades := []Trade{
		{Price: 100, Qty: 1000, IsBuy: true},
		{Price: 101, Qty: 600, IsBuy: false},
		{Price: 101, Qty: 10, IsBuy: false},
		{Price: 102, Qty: 1000, IsBuy: true},
	}
	wa := DeriveWhaleActivity(trades, 50000)
	require.NotNil(t, wa)
	assert.Equal(t, 2, wa.LargeBuys)
	assert.Equal(t, 1, wa.LargeSells)
	assert.InDelta(t, 202000.0/262600.0, wa.BuyPressure, 1e-9)
	assert.InDelta(t, 2.0, wa.PriceImpactPct, 1e-9)
}

func TestClassifySmartVolume(t *testing.T) {
	trades := []Trade{
		{Price: 100, Qty: 1000, IsBuy: true},
		{Price: 100, Qty: 5, IsBuy: false},
		{Price: 100, Qty: 100, IsBuy: true},
	}
	sv := ClassifySmartVolume(trades, 50000, 1000)
	require.NotNil(t, sv)
	assert.Equal(t, market.CharacterWhale, sv.Character)
	assert.Equal(t, 1.0, sv.WhaleBuyRatio)
	assert.Equal(t, 500.0, sv.RetailVolume)
	assert.Equal(t, 10000.0, sv.MidVolume)
}
