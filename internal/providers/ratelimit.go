package providers

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter holds one token bucket per provider
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mutex    sync.RWMutex
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) InitializeProvider(provider string, rps float64, burst int) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	if burst < 1 {
		burst = 1
	}
	rl.limiters[provider] = rate.NewLimiter(rate.Limit(rps), burst)
}

// Wait blocks until the provider bucket has a token or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context, provider string) error {
	rl.mutex.RLock()
	limiter, exists := rl.limiters[provider]
	rl.mutex.RUnlock()

	if !exists {
		return fmt.Errorf("rate limiter not initialized for provider: %s", provider)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", provider, err)
	}
	return nil
}

// Allow takes a token without waiting
func (rl *RateLimiter) Allow(provider string) bool {
	rl.mutex.RLock()
	limiter, exists := rl.limiters[provider]
	rl.mutex.RUnlock()
	return exists && limiter.Allow()
}

// Throttle slows a provider down after a 429, halving its rate
func (rl *RateLimiter) Throttle(provider string) {
	rl.mutex.RLock()
	limiter, exists := rl.limiters[provider]
	rl.mutex.RUnlock()
	if exists {
		limiter.SetLimit(limiter.Limit() / 2)
	}
}
