package providers

import (
	"github.com/sawpanic/coinscope/internal/config"
	"github.com/sawpanic/coinscope/internal/data/cache"
)

// Set bundles the configured providers. Disabled providers are nil.
type Set struct {
	CoinGecko   *CoinGecko
	Binance     *Binance
	DexScreener *DexScreener
	FearGreed   *FearGreedIndex

	clients []*Client
}

// NewSet builds a client for every enabled provider sharing one limiter,
// breaker manager and cache.
func NewSet(cfg config.ProvidersConfig, c cache.Cache, rec ErrorRecorder) *Set {
	opts := Options{
		UserAgent: cfg.Global.UserAgent,
		Limiter:   NewRateLimiter(),
		Breakers:  NewCircuitBreakerManager(),
		Cache:     c,
		Errors:    rec,
	}

	s := &Set{}
	build := func(name string) *Client {
		pc, ok := cfg.Provider(name)
		if !ok || !pc.Enabled {
			return nil
		}
		client := NewClient(name, pc, opts)
		s.clients = append(s.clients, client)
		return client
	}

	if cl := build(config.CoinGecko); cl != nil {
		s.CoinGecko = NewCoinGecko(cl)
	}
	if cl := build(config.Binance); cl != nil {
		s.Binance = NewBinance(cl)
	}
	if cl := build(config.DexScreener); cl != nil {
		s.DexScreener = NewDexScreener(cl)
	}
	if cl := build(config.FearGreed); cl != nil {
		s.FearGreed = NewFearGreedIndex(cl)
	}
	return s
}

// Statuses reports every breaker, for health checks
func (s *Set) Statuses() []BreakerStatus {
	out := make([]BreakerStatus, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c.Status())
	}
	return out
}
