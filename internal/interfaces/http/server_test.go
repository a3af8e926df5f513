package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/coinscope/internal/application/scan"
	"github.com/sawpanic/coinscope/internal/config"
	"github.com/sawpanic/coinscope/internal/domain/market"
	"github.com/sawpanic/coinscope/internal/persistence"
	"github.com/sawpanic/coinscope/internal/providers"
	"github.com/sawpanic/coinscope/internal/score/composite"
)

type fakeRepo struct {
	latest   *persistence.ScanRecord
	scans    []persistence.ScanSummary
	points   []persistence.ScorePoint
	err      error
	symbol   string
	tr       persistence.TimeRange
	limit    int
	latestN  int
}

func (f *fakeRepo) Save(context.Context, persistence.ScanRecord) error { return nil }

func (f *fakeRepo) Latest(context.Context) (*persistence.ScanRecord, error) {
	f.latestN++
	if f.err != nil {
		return nil, f.err
	}
	if f.latest == nil {
		return nil, persistence.ErrNoScans
	}
	return f.latest, nil
}

func (f *fakeRepo) Get(context.Context, string) (*persistence.ScanRecord, error) {
	return nil, persistence.ErrNoScans
}

func (f *fakeRepo) List(_ context.Context, limit int) ([]persistence.ScanSummary, error) {
	f.limit = limit
	return f.scans, f.err
}

func (f *fakeRepo) SymbolHistory(_ context.Context, symbol string, tr persistence.TimeRange) ([]persistence.ScorePoint, error) {
	f.symbol, f.tr = symbol, tr
	return f.points, f.err
}

func coin(pos int, symbol string, sector market.Sector, score float64, cat composite.Category) composite.RankedCoin {
	return composite.RankedCoin{
		Position: pos,
		Symbol:   symbol,
		Sector:   sector,
		Breakdown: composite.ScoreBreakdown{
			TotalScore: score,
			Category:   cat,
		},
	}
}

func sampleResult() *scan.Result {
	ranked := []composite.RankedCoin{
		coin(1, "SOL", "Layer1", 74, composite.CategoryHot),
		coin(2, "UNI", "DeFi", 63, composite.CategoryStrong),
		coin(3, "AAVE", "DeFi", 61, composite.CategoryStrong),
		coin(4, "PEPE", "Meme", 35, composite.CategoryNeutral),
	}
	return &scan.Result{
		ID:         "scan-1",
		StartedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 3, 1, 12, 1, 0, 0, time.UTC),
		Strategy:   "balanced",
		Source:     scan.SourceOffline,
		Conditions: market.NeutralConditions(),
		Ranked:     ranked,
		Stats:      composite.Summarize(ranked, composite.DefaultAboveThreshold),
	}
}

func newTestServer(opts Options) *Server {
	return NewServer(config.HTTPConfig{Addr: "127.0.0.1:0"}, opts)
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestRankings_NoScanYet(t *testing.T) {
	s := newTestServer(Options{})
	rec := get(t, s, "/api/v1/rankings")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 8)
}

func TestRankings_Filters(t *testing.T) {
	s := newTestServer(Options{})
	s.Publish(sampleResult())

	tests := []struct {
		name    string
		query   string
		symbols []string
	}{
		{"all", "", []string{"SOL", "UNI", "AAVE", "PEPE"}},
		{"limit", "?limit=2", []string{"SOL", "UNI"}},
		{"category", "?category=strong", []string{"UNI", "AAVE"}},
		{"sector", "?sector=defi&limit=1", []string{"UNI"}},
		{"min score", "?min_score=62", []string{"SOL", "UNI"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, "/api/v1/rankings"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp RankingsResponse
			decode(t, rec, &resp)
			assert.Equal(t, "scan-1", resp.ScanID)
			assert.Equal(t, 4, resp.Total)
			assert.Equal(t, len(tt.symbols), resp.Count)

			var got []string
			for _, c := range resp.Coins {
				got = append(got, c.Symbol)
			}
			assert.Equal(t, tt.symbols, got)
		})
	}
}

func TestRankings_BadParams(t *testing.T) {
	s := newTestServer(Options{})
	s.Publish(sampleResult())

	for _, q := range []string{"?limit=0", "?limit=abc", "?limit=501", "?min_score=high"} {
		rec := get(t, s, "/api/v1/rankings"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestSymbol(t *testing.T) {
	s := newTestServer(Options{})
	s.Publish(sampleResult())

	rec := get(t, s, "/api/v1/rankings/aave")
	require.Equal(t, http.StatusOK, rec.Code)
	var rc composite.RankedCoin
	decode(t, rec, &rc)
	assert.Equal(t, "AAVE", rc.Symbol)
	assert.Equal(t, 3, rc.Position)

	rec = get(t, s, "/api/v1/rankings/doge")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStats(t *testing.T) {
	s := newTestServer(Options{})
	s.Publish(sampleResult())

	rec := get(t, s, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatsResponse
	decode(t, rec, &resp)
	assert.Equal(t, 4, resp.Stats.Count)
	assert.Equal(t, 3, resp.Stats.AboveThreshold)
	assert.Equal(t, 2, resp.Stats.Categories[composite.CategoryStrong])
}

func TestLatest_FallsBackToRepo(t *testing.T) {
	res := sampleResult()
	repo := &fakeRepo{latest: &persistence.ScanRecord{
		ID:       "stored",
		Strategy: "momentum",
		Coins:    res.Ranked,
		Stats:    res.Stats,
	}}
	s := newTestServer(Options{Repo: repo})

	rec := get(t, s, "/api/v1/rankings?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp RankingsResponse
	decode(t, rec, &resp)
	assert.Equal(t, "stored", resp.ScanID)
	assert.Equal(t, "momentum", resp.Strategy)

	// loaded once, then served from memory
	get(t, s, "/api/v1/stats")
	assert.Equal(t, 1, repo.latestN)

	s.Publish(res)
	rec = get(t, s, "/api/v1/stats")
	var stats StatsResponse
	decode(t, rec, &stats)
	assert.Equal(t, "scan-1", stats.ScanID)
}

func TestLatest_RepoError(t *testing.T) {
	s := newTestServer(Options{Repo: &fakeRepo{err: errors.New("db down")}})
	rec := get(t, s, "/api/v1/stats")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestScansAndHistory(t *testing.T) {
	t.Run("without database", func(t *testing.T) {
		s := newTestServer(Options{})
		assert.Equal(t, http.StatusNotImplemented, get(t, s, "/api/v1/scans").Code)
		assert.Equal(t, http.StatusNotImplemented, get(t, s, "/api/v1/rankings/SOL/history").Code)
	})

	t.Run("with database", func(t *testing.T) {
		repo := &fakeRepo{
			scans:  []persistence.ScanSummary{{ID: "a", CoinCount: 4}},
			points: []persistence.ScorePoint{{ScanID: "a", Position: 1, TotalScore: 74}},
		}
		s := newTestServer(Options{Repo: repo})

		rec := get(t, s, "/api/v1/scans")
		require.Equal(t, http.StatusOK, rec.Code)
		var scans []persistence.ScanSummary
		decode(t, rec, &scans)
		assert.Len(t, scans, 1)
		assert.Equal(t, defaultScanLimit, repo.limit)

		rec = get(t, s, "/api/v1/rankings/sol/history?days=3")
		require.Equal(t, http.StatusOK, rec.Code)
		var points []persistence.ScorePoint
		decode(t, rec, &points)
		assert.Len(t, points, 1)
		assert.Equal(t, "SOL", repo.symbol)
		assert.InDelta(t, (72 * time.Hour).Seconds(), repo.tr.To.Sub(repo.tr.From).Seconds(), 1)

		assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/v1/rankings/sol/history?days=365").Code)
	})
}

func TestHealth(t *testing.T) {
	statuses := []providers.BreakerStatus{
		{Name: "coingecko", State: "closed"},
		{Name: "binance", State: "closed"},
	}
	s := newTestServer(Options{
		Version:  "1.2.3",
		Statuses: func() []providers.BreakerStatus { return statuses },
	})

	rec := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	decode(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Nil(t, resp.LastScan)
	assert.Len(t, resp.Providers, 2)

	statuses[1].State = "open"
	s.Publish(sampleResult())
	rec = get(t, s, "/health")
	decode(t, rec, &resp)
	assert.Equal(t, "degraded", resp.Status)
	require.NotNil(t, resp.LastScan)
}

func TestNotFound(t *testing.T) {
	s := newTestServer(Options{})
	rec := get(t, s, "/api/v2/everything")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no route")
}

func TestMetrics(t *testing.T) {
	m := NewMetricsRegistry()
	s := newTestServer(Options{Metrics: m})

	m.ObserveStep(scan.StepRank, 20*time.Millisecond, nil)
	m.ObserveStep(scan.StepUniverse, time.Second, errors.New("boom"))
	m.ProviderError("binance", "timeout")
	m.ProviderError("binance", "timeout")
	res := sampleResult()
	m.ObserveScan(res, time.Minute)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TotalScans))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CoinsRanked))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProviderErrors.WithLabelValues("binance", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineErrors.WithLabelValues(scan.StepUniverse)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Categories.WithLabelValues("STRONG")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Categories.WithLabelValues("WEAK")))

	get(t, s, "/api/v1/stats")
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var requests *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "coinscope_http_requests_total" {
			requests = mf
		}
	}
	require.NotNil(t, requests)
	require.Len(t, requests.GetMetric(), 1)
	labels := map[string]string{}
	for _, lp := range requests.GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	assert.Equal(t, "/api/v1/stats", labels["route"])
	assert.Equal(t, "503", labels["code"])

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "coinscope_scans_total 1")
}

func TestWebsocketBroadcast(t *testing.T) {
	s := newTestServer(Options{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.Publish(sampleResult())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev ScanEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "scan", ev.Type)
	assert.Equal(t, "scan-1", ev.ScanID)
	assert.Len(t, ev.Top, 4)

	conn.Close()
	require.Eventually(t, func() bool { return s.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestNewScanEvent_TrimsTop(t *testing.T) {
	res := sampleResult()
	for i := 0; i < 20; i++ {
		res.Ranked = append(res.Ranked, coin(5+i, "X", market.SectorUnknown, 10, composite.CategoryWeak))
	}
	assert.Len(t, NewScanEvent(res).Top, eventTopCoins)
}
