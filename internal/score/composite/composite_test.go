package composite

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/coinscope/internal/domain/market"
	"github.com/sawpanic/coinscope/internal/score/factors"
)

// uptrend builds n daily candles rising 1% a day and closing at last
func uptrend(n int, last float64) []market.Kline {
	out := make([]market.Kline, n)
	price := last / math.Pow(1.01, float64(n-1))
	t0 := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = market.Kline{
			OpenTime: t0.AddDate(0, 0, i),
			Open:     price,
			High:     price * 1.01,
			Low:      price * 0.99,
			Close:    price,
			Volume:   1_000_000,
		}
		price *= 1.01
	}
	return out
}

// contracting builds 20 flat candles whose range collapses over the last 7
func contracting() []market.Kline {
	out := make([]market.Kline, 20)
	for i := range out {
		k := market.Kline{Open: 1, High: 1.1, Low: 0.9, Close: 1, Volume: 1000}
		if i >= 13 {
			k.High, k.Low = 1.01, 0.99
		}
		out[i] = k
	}
	return out
}

func maximal(symbol string, sector market.Sector) market.CoinSnapshot {
	return market.CoinSnapshot{
		Symbol:         symbol,
		Rank:           30,
		Price:          0.0098,
		PriceChange24h: 25,
		PriceChange7d:  70,
		VolumeToMcap:   0.6,
		MarketCap:      1e9,
		Sector:         sector,
		Listing:        &market.ExchangeListing{IsListed: true, TradeCount24h: 3_000_000, High24h: 1.3, Low24h: 1},
		Klines:         uptrend(30, 0.0098),
		DEX:            &market.DEXMetrics{HasData: true, LiquidityScore: 100, VolumeQualityScore: 100, BuyPressurePct: 65, DEXCount: 6, TxCount24h: 20_000},
		Developer:      &market.DeveloperActivity{Commits4w: 150, Contributors: 60, Stars: 20_000},
	}
}

func plain(symbol string) market.CoinSnapshot {
	return market.CoinSnapshot{
		Symbol:       symbol,
		Rank:         500,
		Price:        50,
		VolumeToMcap: 0.05,
		MarketCap:    1e8,
		Listing:      &market.ExchangeListing{IsListed: true},
		DEX:          &market.DEXMetrics{HasData: false},
	}
}

func TestClassify_Boundaries(t *testing.T) {
	table := DefaultCategories()
	tests := []struct {
		score    float64
		expected Category
	}{
		{100, CategoryHot},
		{70, CategoryHot},
		{69.99, CategoryStrong},
		{60, CategoryStrong},
		{59.99, CategoryPromising},
		{50, CategoryPromising},
		{49.99, CategoryInteresting},
		{40, CategoryInteresting},
		{39.99, CategoryNeutral},
		{30, CategoryNeutral},
		{29.99, CategoryWeak},
		{0, CategoryWeak},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Classify(tt.score, table), "score %.2f", tt.score)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	for name, s := range cfg.Strategies {
		assert.InDelta(t, 1.0, s.Weights.Sum(), 1e-9, name)
	}
}

func TestConfig_ValidateRejects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategies["broken"] = StrategyProfile{Weights: Weights{Price: 0.5, Volume: 0.5, DEX: 0.5}}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Categories = []CategoryThreshold{{50, CategoryPromising}, {60, CategoryStrong}}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.SignalLimit = 0
	assert.Error(t, cfg.Validate())
}

func TestDynamicWeights_Adjust(t *testing.T) {
	d := DefaultConfig().DynamicWeights
	base := DefaultStrategies()["balanced"].Weights

	fear := market.NeutralConditions()
	fear.FearGreed.Value = 20
	w := d.Adjust(base, fear)
	assert.InDelta(t, 0.45, w.Price, 1e-9)
	assert.InDelta(t, 0.40, w.Volume, 1e-9)

	alt := market.NeutralConditions()
	alt.BTCDominance = 42
	alt.DominanceChange24h = -1
	w = d.Adjust(base, alt)
	assert.InDelta(t, 0.55, w.Price, 1e-9)
	assert.InDelta(t, 0.30, w.Volume, 1e-9)

	both := alt
	both.FearGreed.Value = 20
	w = d.Adjust(base, both)
	assert.InDelta(t, base.Price, w.Price, 1e-9)
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)

	d.Enabled = false
	assert.Equal(t, base, d.Adjust(base, fear))
}

func TestCriteria_Matches(t *testing.T) {
	lo, hi := -10.0, 30.0
	c := Criteria{
		MaxRank:         100,
		MinVolumeToMcap: 0.03,
		Change7d:        Range{Min: &lo, Max: &hi},
		Sectors:         []market.Sector{"DeFi"},
	}
	coin := market.CoinSnapshot{Rank: 50, VolumeToMcap: 0.05, PriceChange7d: 5, Sector: "DeFi"}
	assert.True(t, c.Matches(coin))

	coin.Sector = "Gaming"
	assert.False(t, c.Matches(coin))
	coin.Sector = "DeFi"

	coin.PriceChange7d = 40
	assert.False(t, c.Matches(coin))
	coin.PriceChange7d = 5

	coin.Rank = 150
	assert.False(t, c.Matches(coin))

	assert.True(t, Criteria{}.Matches(market.CoinSnapshot{}))
}

func TestRank_ExcludesUnlisted(t *testing.T) {
	r := NewRanker(DefaultConfig())
	unlisted := plain("NOPE")
	unlisted.Listing = &market.ExchangeListing{IsListed: false}
	missing := plain("GONE")
	missing.Listing = nil

	ranked := r.Rank([]market.CoinSnapshot{plain("AAA"), unlisted, missing}, market.NeutralConditions(), "")
	require.Len(t, ranked, 1)
	assert.Equal(t, "AAA", ranked[0].Symbol)

	_, ok := r.Score(unlisted, market.NeutralConditions(), "")
	assert.False(t, ok)
}

func TestRank_Deterministic(t *testing.T) {
	r := NewRanker(DefaultConfig())
	coins := []market.CoinSnapshot{maximal("MAX", "DeFi"), plain("AAA"), plain("BBB"), maximal("TOP", "DeFi")}
	mc := market.NeutralConditions()

	first, err := json.Marshal(r.Rank(coins, mc, "momentum"))
	require.NoError(t, err)
	second, err := json.Marshal(r.Rank(coins, mc, "momentum"))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestRank_SortedWithSymbolTieBreak(t *testing.T) {
	r := NewRanker(DefaultConfig())
	coins := []market.CoinSnapshot{plain("ZZZ"), maximal("MAX", market.SectorUnknown), plain("AAA")}

	ranked := r.Rank(coins, market.NeutralConditions(), "balanced")
	require.Len(t, ranked, 3)
	assert.Equal(t, "MAX", ranked[0].Symbol)
	assert.Equal(t, "AAA", ranked[1].Symbol)
	assert.Equal(t, "ZZZ", ranked[2].Symbol)
	assert.Equal(t, ranked[1].Breakdown.TotalScore, ranked[2].Breakdown.TotalScore)
	for i, rc := range ranked {
		assert.Equal(t, i+1, rc.Position)
	}
}

func TestScore_Clamped(t *testing.T) {
	r := NewRanker(DefaultConfig())
	b, ok := r.Score(maximal("MAX", "DeFi"), market.NeutralConditions(), "momentum")
	require.True(t, ok)
	assert.LessOrEqual(t, b.TotalScore, 100.0)
	assert.Equal(t, CategoryHot, b.Category)
	assert.LessOrEqual(t, b.Price, factors.MaxPriceScore)
	assert.LessOrEqual(t, b.Position, factors.MaxPositionScore)
	assert.Equal(t, 100.0, b.DEX)
	assert.Equal(t, 100.0, b.Developer)
	assert.NotEmpty(t, b.Action.Action)
	assert.NotEmpty(t, b.RiskReward.Tier)
}

func TestScore_NoDEXData(t *testing.T) {
	r := NewRanker(DefaultConfig())
	b, ok := r.Score(plain("AAA"), market.NeutralConditions(), "")
	require.True(t, ok)
	assert.Equal(t, 0.0, b.DEX)
	assert.Equal(t, []string{factors.NoDEXDataSignal}, b.Signals)
	assert.GreaterOrEqual(t, b.TotalScore, 0.0)
}

func TestScore_AccumulationBonus(t *testing.T) {
	r := NewRanker(DefaultConfig())
	coin := market.CoinSnapshot{
		Symbol:         "ACC",
		Rank:           150,
		Price:          1,
		PriceChange24h: 1,
		PriceChange7d:  2,
		VolumeToMcap:   0.22,
		MarketCap:      5e8,
		Listing:        &market.ExchangeListing{IsListed: true},
		Klines:         contracting(),
		Whale:          &market.WhaleActivity{BuyPressure: 0.7, PriceImpactPct: 2},
	}
	mc := market.NeutralConditions()

	with, ok := r.Score(coin, mc, "")
	require.True(t, ok)
	require.Greater(t, with.Accumulation.Score, 75.0)
	assert.True(t, with.AccumulationBonus)
	require.NotEmpty(t, with.Signals)
	assert.True(t, strings.HasPrefix(with.Signals[0], "Accumulation bonus"), with.Signals[0])

	coin.Whale = nil
	without, ok := r.Score(coin, mc, "")
	require.True(t, ok)
	assert.False(t, without.AccumulationBonus)

	expected := factors.Clamp(without.BaseScore*without.Timing.Multiplier*1.15, 0, 100)
	assert.InDelta(t, expected, with.TotalScore, 0.01)
}

func TestRank_HotSector(t *testing.T) {
	r := NewRanker(DefaultConfig())
	coins := []market.CoinSnapshot{
		maximal("AAA", "DeFi"),
		maximal("BBB", "DeFi"),
		maximal("CCC", "DeFi"),
		maximal("SOLO", "Gaming"),
	}

	ranked := r.Rank(coins, market.NeutralConditions(), "")
	require.Len(t, ranked, 4)
	for _, rc := range ranked {
		if rc.Sector == "Gaming" {
			assert.Equal(t, 1.0, rc.Breakdown.SectorMultiplier, "single member stays neutral")
			continue
		}
		assert.Equal(t, 1.15, rc.Breakdown.SectorMultiplier)
		assert.Equal(t, "Hot sector DeFi (x1.15)", rc.Breakdown.Signals[0])
		assert.LessOrEqual(t, len(rc.Breakdown.Signals), 5)
	}

	strengths := r.SectorStrengths(coins, market.NeutralConditions(), "")
	require.Len(t, strengths, 2)
	assert.Equal(t, market.Sector("DeFi"), strengths[0].Sector)
	assert.Equal(t, 3, strengths[0].Members)
}

func TestSectorRules_Multiplier(t *testing.T) {
	s := DefaultConfig().Sector
	assert.Equal(t, 1.15, s.Multiplier(70))
	assert.Equal(t, 1.07, s.Multiplier(60))
	assert.Equal(t, 1.0, s.Multiplier(50))
	assert.Equal(t, 0.9, s.Multiplier(40))
}

func TestSummarize(t *testing.T) {
	ranked := []RankedCoin{
		{Symbol: "AAA", Sector: "DeFi", Breakdown: ScoreBreakdown{TotalScore: 80, Category: CategoryHot}},
		{Symbol: "BBB", Sector: "DeFi", Breakdown: ScoreBreakdown{TotalScore: 60, Category: CategoryStrong}},
		{Symbol: "CCC", Sector: "Layer1", Breakdown: ScoreBreakdown{TotalScore: 20, Category: CategoryWeak}},
	}

	st := Summarize(ranked, 60)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 53.33, st.AverageScore)
	assert.Equal(t, 2, st.AboveThreshold)
	assert.Equal(t, 1, st.Categories[CategoryHot])
	assert.Equal(t, 1, st.Categories[CategoryWeak])

	defi := st.Sectors["DeFi"]
	assert.Equal(t, 2, defi.Count)
	assert.Equal(t, 70.0, defi.AverageScore)
	assert.Equal(t, "AAA", defi.TopSymbol)

	empty := Summarize(nil, 60)
	assert.Equal(t, 0, empty.Count)
	assert.Equal(t, 0.0, empty.AverageScore)
}
