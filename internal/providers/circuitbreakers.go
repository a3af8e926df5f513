package providers

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// CircuitBreakerManager owns one breaker per provider
type CircuitBreakerManager struct {
	breakers map[string]*gobreaker.CircuitBreaker
	mutex    sync.RWMutex
}

type CircuitBreakerConfig struct {
	MaxRequests         uint32        // probes allowed while half-open
	Interval            time.Duration // closed-state count reset, 0 keeps counts
	Timeout             time.Duration // open duration before half-open
	ConsecutiveFailures uint32
}

type BreakerStatus struct {
	Name   string           `json:"name"`
	State  string           `json:"state"`
	Counts gobreaker.Counts `json:"counts"`
}

func NewCircuitBreakerManager() *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (cbm *CircuitBreakerManager) InitializeProvider(name string, config CircuitBreakerConfig) {
	cbm.mutex.Lock()
	defer cbm.mutex.Unlock()

	threshold := config.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// a 404 is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
		},
	}
	cbm.breakers[name] = gobreaker.NewCircuitBreaker(settings)
}

// Execute runs fn through the provider's breaker. An open or saturated
// breaker is reported as ErrCircuitOpen.
func (cbm *CircuitBreakerManager) Execute(provider string, fn func() (interface{}, error)) (interface{}, error) {
	cbm.mutex.RLock()
	breaker, exists := cbm.breakers[provider]
	cbm.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("circuit breaker not found for provider: %s", provider)
	}

	result, err := breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w", provider, ErrCircuitOpen)
	}
	return result, err
}

func (cbm *CircuitBreakerManager) Status(provider string) (BreakerStatus, bool) {
	cbm.mutex.RLock()
	breaker, exists := cbm.breakers[provider]
	cbm.mutex.RUnlock()
	if !exists {
		return BreakerStatus{}, false
	}
	return BreakerStatus{
		Name:   provider,
		State:  breaker.State().String(),
		Counts: breaker.Counts(),
	}, true
}
