package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/coinscope/internal/config"
	"github.com/sawpanic/coinscope/internal/data/cache"
	"github.com/sawpanic/coinscope/internal/domain/market"
)

func testProviderConfig(url string) config.ProviderConfig {
	return config.ProviderConfig{
		BaseURL:   url,
		RPS:       1000,
		Burst:     100,
		TTLSecs:   60,
		BackoffMS: config.BackoffConfig{Base: 1, Max: 2, Retries: 0},
		Circuit:   config.CircuitConfig{FailureThreshold: 2, HalfOpenRequests: 1, OpenMS: 60_000, TimeoutMS: 2_000},
		Enabled:   true,
	}
}

type errorCounter struct {
	kinds []string
}

func (e *errorCounter) ProviderError(provider, kind string) {
	e.kinds = append(e.kinds, provider+":"+kind)
}

func serve(t *testing.T, routes map[string]string) (*httptest.Server, *int64) {
	t.Helper()
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestCoinGecko_Markets(t *testing.T) {
	srv, _ := serve(t, map[string]string{
		"/coins/markets": `[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","market_cap_rank":1,"current_price":60000,"market_cap":1200000000000,"total_volume":30000000000,"price_change_percentage_24h_in_currency":1.5,"price_change_percentage_7d_in_currency":4.2},
			{"id":"ghost","symbol":"gst","name":"Ghost","market_cap_rank":null,"current_price":1},
			{"id":"solana","symbol":"sol","name":"Solana","market_cap_rank":5,"current_price":150,"market_cap":0,"total_volume":100}
		]`,
	})
	cg := NewCoinGecko(NewClient(config.CoinGecko, testProviderConfig(srv.URL), Options{}))

	coins, err := cg.Markets(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, coins, 2)

	assert.Equal(t, "BTC", coins[0].Symbol)
	assert.Equal(t, 1, coins[0].Rank)
	assert.InDelta(t, 0.025, coins[0].VolumeToMcap, 1e-12)
	assert.Equal(t, 4.2, coins[0].PriceChange7d)
	assert.Equal(t, market.SectorUnknown, coins[0].Sector)

	assert.Equal(t, "SOL", coins[1].Symbol)
	assert.Zero(t, coins[1].VolumeToMcap)

	limited, err := cg.Markets(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCoinGecko_Global(t *testing.T) {
	srv, _ := serve(t, map[string]string{
		"/global": `{"data":{"market_cap_percentage":{"btc":54.3,"eth":17.1},"market_cap_change_percentage_24h_usd":-1.25}}`,
	})
	cg := NewCoinGecko(NewClient(config.CoinGecko, testProviderConfig(srv.URL), Options{}))

	g, err := cg.Global(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 54.3, g.BTCDominance)
	assert.Equal(t, -1.25, g.MarketCapChange24h)
}

func TestCoinGecko_Developer(t *testing.T) {
	srv, _ := serve(t, map[string]string{
		"/coins/aave":   `{"id":"aave","developer_data":{"forks":3100,"stars":1800,"pull_request_contributors":57,"commit_count_4_weeks":42}}`,
		"/coins/norepo": `{"id":"norepo","developer_data":{"forks":0,"stars":0,"pull_request_contributors":0,"commit_count_4_weeks":0}}`,
		"/coins/bare":   `{"id":"bare"}`,
	})
	rec := &errorCounter{}
	cg := NewCoinGecko(NewClient(config.CoinGecko, testProviderConfig(srv.URL), Options{Errors: rec}))

	dev, err := cg.Developer(context.Background(), "aave")
	require.NoError(t, err)
	assert.Equal(t, &market.DeveloperActivity{Commits4w: 42, Contributors: 57, Stars: 1800}, dev)

	for _, id := range []string{"norepo", "bare", "missing", ""} {
		_, err := cg.Developer(context.Background(), id)
		assert.ErrorIs(t, err, ErrNotFound, id)
	}
	assert.Equal(t, []string{"coingecko:not_found"}, rec.kinds, "only the unknown id is a provider error")
}

func TestCoinGecko_DeveloperCachedLonger(t *testing.T) {
	srv, calls := serve(t, map[string]string{
		"/coins/aave": `{"developer_data":{"stars":10,"commit_count_4_weeks":1}}`,
	})
	pc := testProviderConfig(srv.URL)
	pc.TTLSecs = 0
	cg := NewCoinGecko(NewClient(config.CoinGecko, pc, Options{Cache: cache.NewTTLCache(0)}))

	for i := 0; i < 3; i++ {
		_, err := cg.Developer(context.Background(), "aave")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(calls))
}

func TestBinance(t *testing.T) {
	srv, _ := serve(t, map[string]string{
		"/api/v3/exchangeInfo": `{"symbols":[
			{"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"},
			{"symbol":"ETHBTC","status":"TRADING","baseAsset":"ETH","quoteAsset":"BTC"},
			{"symbol":"LUNAUSDT","status":"BREAK","baseAsset":"LUNA","quoteAsset":"USDT"}
		]}`,
		"/api/v3/ticker/24hr": `{"symbol":"BTCUSDT","highPrice":"61000.5","lowPrice":"59000.25","count":1234567}`,
		"/api/v3/klines": `[
			[1700000000000,"1.0","1.2","0.9","1.1","1000",1700086399999,"1100",10,"500","550","0"],
			[1700086400000,"1.1","1.3","1.0","1.25","1500",1700172799999,"1800",12,"700","800","0"]
		]`,
		"/api/v3/aggTrades": `[
			{"a":1,"p":"10.0","q":"2","f":1,"l":1,"T":1700000000000,"m":true,"M":true},
			{"a":2,"p":"10.5","q":"3","f":2,"l":2,"T":1700000001000,"m":false,"M":true}
		]`,
	})
	b := NewBinance(NewClient(config.Binance, testProviderConfig(srv.URL), Options{}))
	ctx := context.Background()

	pairs, err := b.ExchangeInfo(ctx, "USDT")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"BTC": "BTCUSDT"}, pairs)

	listing, err := b.Ticker24h(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, listing.IsListed)
	assert.Equal(t, int64(1234567), listing.TradeCount24h)
	assert.Equal(t, 61000.5, listing.High24h)
	assert.Equal(t, 59000.25, listing.Low24h)

	klines, err := b.Klines(ctx, "BTCUSDT", "1d", 2)
	require.NoError(t, err)
	require.Len(t, klines, 2)
	assert.Equal(t, 1.25, klines[1].Close)
	assert.Equal(t, 1500.0, klines[1].Volume)
	assert.Equal(t, time.UnixMilli(1700086400000).UTC(), klines[1].OpenTime)

	trades, err := b.AggTrades(ctx, "BTCUSDT", 2)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.False(t, trades[0].IsBuy)
	assert.True(t, trades[1].IsBuy)
	assert.Equal(t, 31.5, trades[1].Notional())
}

func TestDexScreener_Token(t *testing.T) {
	srv, _ := serve(t, map[string]string{
		"/latest/dex/search": `{"pairs":[
			{"chainId":"ethereum","dexId":"uniswap","baseToken":{"symbol":"PEPE"},"liquidity":{"usd":4000000},"volume":{"h24":3000000},"txns":{"h24":{"buys":600,"sells":400}}},
			{"chainId":"bsc","dexId":"pancakeswap","baseToken":{"symbol":"pepe"},"liquidity":{"usd":6000000},"volume":{"h24":2000000},"txns":{"h24":{"buys":300,"sells":200}}},
			{"chainId":"ethereum","dexId":"uniswap","baseToken":{"symbol":"WETH"},"liquidity":{"usd":1},"volume":{"h24":1},"txns":{"h24":{"buys":1,"sells":1}}}
		]}`,
	})
	d := NewDexScreener(NewClient(config.DexScreener, testProviderConfig(srv.URL), Options{}))

	m, err := d.Token(context.Background(), "PEPE")
	require.NoError(t, err)
	assert.True(t, m.HasData)
	assert.Equal(t, 2, m.DEXCount)
	assert.Equal(t, int64(1500), m.TxCount24h)
	assert.InDelta(t, 60.0, m.BuyPressurePct, 1e-9)
	assert.InDelta(t, 100.0, m.LiquidityScore, 1e-9) // $10M pooled
	assert.Equal(t, 90.0, m.VolumeQualityScore)     // 0.5 turnover

	_, err = d.Token(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVolumeQualityScore(t *testing.T) {
	assert.Zero(t, volumeQualityScore(0, 10))
	assert.Equal(t, 10.0, volumeQualityScore(100, 1))
	assert.Equal(t, 40.0, volumeQualityScore(100, 10))
	assert.Equal(t, 70.0, volumeQualityScore(100, 30))
	assert.Equal(t, 60.0, volumeQualityScore(100, 500))
	assert.Equal(t, 20.0, volumeQualityScore(100, 5000))
}

func TestFearGreed_Latest(t *testing.T) {
	srv, _ := serve(t, map[string]string{
		"/fng/": `{"name":"Fear and Greed Index","data":[{"value":"23","value_classification":"Extreme Fear","timestamp":"1700000000"}]}`,
	})
	f := NewFearGreedIndex(NewClient(config.FearGreed, testProviderConfig(srv.URL), Options{}))

	fg, err := f.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 23, fg.Value)
	assert.Equal(t, "Extreme Fear", fg.Classification)
}

func TestClient_CachesResponses(t *testing.T) {
	srv, calls := serve(t, map[string]string{"/fng/": `{"data":[{"value":"50","value_classification":"Neutral"}]}`})
	f := NewFearGreedIndex(NewClient(config.FearGreed, testProviderConfig(srv.URL), Options{Cache: cache.NewTTLCache(10)}))

	for i := 0; i < 3; i++ {
		_, err := f.Latest(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(calls))
}

func TestClient_CircuitOpens(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	rec := &errorCounter{}
	f := NewFearGreedIndex(NewClient(config.FearGreed, testProviderConfig(srv.URL), Options{Errors: rec}))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.Latest(ctx)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrCircuitOpen))
	}
	_, err := f.Latest(ctx)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
	assert.Equal(t, "open", f.client.Status().State)
	assert.Equal(t, []string{"feargreed:request", "feargreed:request", "feargreed:circuit_open"}, rec.kinds)
}

func TestClient_NotFoundDoesNotTrip(t *testing.T) {
	srv, _ := serve(t, nil)
	f := NewFearGreedIndex(NewClient(config.FearGreed, testProviderConfig(srv.URL), Options{}))

	for i := 0; i < 4; i++ {
		_, err := f.Latest(context.Background())
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, "closed", f.client.Status().State)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter()
	assert.Error(t, rl.Wait(context.Background(), "unknown"))

	rl.InitializeProvider("p", 0.001, 1)
	assert.True(t, rl.Allow("p"))
	assert.False(t, rl.Allow("p"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, rl.Wait(ctx, "p"))
}

func TestNewSet(t *testing.T) {
	cfg := config.Default().Providers
	pc := cfg.Providers[config.DexScreener]
	pc.Enabled = false
	cfg.Providers[config.DexScreener] = pc

	s := NewSet(cfg, nil, nil)
	assert.NotNil(t, s.CoinGecko)
	assert.NotNil(t, s.Binance)
	assert.Nil(t, s.DexScreener)
	assert.NotNil(t, s.FearGreed)
	assert.Len(t, s.Statuses(), 3)
}
