package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/coinscope/internal/application/scan"
	"github.com/sawpanic/coinscope/internal/domain/market"
	"github.com/sawpanic/coinscope/internal/persistence"
	"github.com/sawpanic/coinscope/internal/providers"
	"github.com/sawpanic/coinscope/internal/score/composite"
)

const (
	defaultRankingLimit = 50
	maxRankingLimit     = 500
	defaultScanLimit    = 20
	defaultHistoryDays  = 7
	maxHistoryDays      = 90
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string                    `json:"status"` // ok, degraded
	Timestamp  time.Time                 `json:"timestamp"`
	Uptime     string                    `json:"uptime"`
	Version    string                    `json:"version,omitempty"`
	GoVersion  string                    `json:"go_version"`
	Goroutines int                       `json:"goroutines"`
	LastScan   *time.Time                `json:"last_scan,omitempty"`
	WSClients  int                       `json:"ws_clients"`
	Providers  []providers.BreakerStatus `json:"providers"`
}

// RankingsResponse is a filtered page of the latest ranked list
type RankingsResponse struct {
	ScanID     string                  `json:"scan_id"`
	StartedAt  time.Time               `json:"started_at"`
	Strategy   string                  `json:"strategy"`
	Conditions market.MarketConditions `json:"conditions"`
	Total      int                     `json:"total"`
	Count      int                     `json:"count"`
	Coins      []composite.RankedCoin  `json:"coins"`
}

// StatsResponse summarises the latest scan
type StatsResponse struct {
	ScanID     string                     `json:"scan_id"`
	Strategy   string                     `json:"strategy"`
	FinishedAt time.Time                  `json:"finished_at"`
	Stats      composite.Stats            `json:"stats"`
	Sectors    []composite.SectorStrength `json:"sectors,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:     "ok",
		Timestamp:  time.Now().UTC(),
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Version:    s.opts.Version,
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
		WSClients:  s.hub.Count(),
		Providers:  []providers.BreakerStatus{},
	}
	if s.opts.Statuses != nil {
		resp.Providers = s.opts.Statuses()
	}
	for _, p := range resp.Providers {
		if p.State != "closed" {
			resp.Status = "degraded"
		}
	}

	s.mu.RLock()
	if s.latest != nil {
		t := s.latest.FinishedAt
		resp.LastScan = &t
	}
	s.mu.RUnlock()

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	res, ok := s.requireLatest(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), defaultRankingLimit, 1, maxRankingLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}
	minScore := 0.0
	if v := q.Get("min_score"); v != "" {
		if minScore, err = strconv.ParseFloat(v, 64); err != nil {
			writeError(w, http.StatusBadRequest, "min_score must be a number")
			return
		}
	}
	category := strings.ToUpper(q.Get("category"))
	sector := q.Get("sector")

	coins := make([]composite.RankedCoin, 0, limit)
	for _, rc := range res.Ranked {
		if category != "" && string(rc.Breakdown.Category) != category {
			continue
		}
		if sector != "" && !strings.EqualFold(string(rc.Sector), sector) {
			continue
		}
		if rc.Breakdown.TotalScore < minScore {
			continue
		}
		coins = append(coins, rc)
		if len(coins) == limit {
			break
		}
	}

	writeJSON(w, http.StatusOK, RankingsResponse{
		ScanID:     res.ID,
		StartedAt:  res.StartedAt,
		Strategy:   res.Strategy,
		Conditions: res.Conditions,
		Total:      len(res.Ranked),
		Count:      len(coins),
		Coins:      coins,
	})
}

func (s *Server) handleSymbol(w http.ResponseWriter, r *http.Request) {
	res, ok := s.requireLatest(w, r)
	if !ok {
		return
	}
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	for _, rc := range res.Ranked {
		if rc.Symbol == symbol {
			writeJSON(w, http.StatusOK, rc)
			return
		}
	}
	writeError(w, http.StatusNotFound, symbol+" is not in the latest scan")
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	res, ok := s.requireLatest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		ScanID:     res.ID,
		Strategy:   res.Strategy,
		FinishedAt: res.FinishedAt,
		Stats:      res.Stats,
		Sectors:    res.Sectors,
	})
}

func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	if s.opts.Repo == nil {
		writeError(w, http.StatusNotImplemented, "scan history requires a database")
		return
	}
	limit, err := intParam(r.URL.Query().Get("limit"), defaultScanLimit, 1, maxRankingLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}
	scans, err := s.opts.Repo.List(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if scans == nil {
		scans = []persistence.ScanSummary{}
	}
	writeJSON(w, http.StatusOK, scans)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.Repo == nil {
		writeError(w, http.StatusNotImplemented, "scan history requires a database")
		return
	}
	days, err := intParam(r.URL.Query().Get("days"), defaultHistoryDays, 1, maxHistoryDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "days: "+err.Error())
		return
	}
	now := time.Now().UTC()
	tr := persistence.TimeRange{From: now.AddDate(0, 0, -days), To: now}
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	points, err := s.opts.Repo.SymbolHistory(r.Context(), symbol, tr)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if points == nil {
		points = []persistence.ScorePoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

// requireLatest writes 503 when no scan is available yet
func (s *Server) requireLatest(w http.ResponseWriter, r *http.Request) (*scan.Result, bool) {
	res, err := s.latestResult(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return nil, false
	}
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "no scan available yet")
		return nil, false
	}
	return res, true
}

// latestResult prefers the in-memory scan and falls back to the store
func (s *Server) latestResult(ctx context.Context) (*scan.Result, error) {
	s.mu.RLock()
	res := s.latest
	s.mu.RUnlock()
	if res != nil || s.opts.Repo == nil {
		return res, nil
	}

	rec, err := s.opts.Repo.Latest(ctx)
	if errors.Is(err, persistence.ErrNoScans) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	res = resultFromRecord(rec)

	s.mu.Lock()
	if s.latest == nil {
		s.latest = res
	}
	s.mu.Unlock()
	return res, nil
}

func resultFromRecord(rec *persistence.ScanRecord) *scan.Result {
	return &scan.Result{
		ID:         rec.ID,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
		Strategy:   rec.Strategy,
		Source:     rec.Source,
		Conditions: rec.Conditions,
		Ranked:     rec.Coins,
		Stats:      rec.Stats,
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	requestID, _ := r.Context().Value(requestIDKey).(string)
	log.Error().Err(err).Str("request_id", requestID).Str("path", r.URL.Path).Msg("Request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func intParam(raw string, def, lo, hi int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if n < lo || n > hi {
		return 0, errors.New("out of range " + strconv.Itoa(lo) + ".." + strconv.Itoa(hi))
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
