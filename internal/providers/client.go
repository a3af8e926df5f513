// Package providers fetches market data from public REST APIs. Every call
// goes through the provider's cache, token bucket and circuit breaker.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/coinscope/internal/config"
	"github.com/sawpanic/coinscope/internal/data/cache"
)

var (
	ErrCircuitOpen = errors.New("circuit breaker open")
	ErrNotFound    = errors.New("not found")
)

// ErrorRecorder is notified of every failed provider call
type ErrorRecorder interface {
	ProviderError(provider, kind string)
}

// Client is a guarded REST client for one provider
type Client struct {
	name     string
	ttl      time.Duration
	http     *resty.Client
	limiter  *RateLimiter
	breakers *CircuitBreakerManager
	cache    cache.Cache
	errors   ErrorRecorder
}

// Options carries the collaborators shared between provider clients.
// Nil Limiter or Breakers get private instances; nil Cache disables caching.
type Options struct {
	UserAgent string
	Limiter   *RateLimiter
	Breakers  *CircuitBreakerManager
	Cache     cache.Cache
	Errors    ErrorRecorder
}

func NewClient(name string, cfg config.ProviderConfig, opts Options) *Client {
	if opts.Limiter == nil {
		opts.Limiter = NewRateLimiter()
	}
	if opts.Breakers == nil {
		opts.Breakers = NewCircuitBreakerManager()
	}
	opts.Limiter.InitializeProvider(name, cfg.RPS, cfg.Burst)
	opts.Breakers.InitializeProvider(name, CircuitBreakerConfig{
		MaxRequests:         uint32(cfg.Circuit.HalfOpenRequests),
		Timeout:             cfg.OpenDuration(),
		ConsecutiveFailures: uint32(cfg.Circuit.FailureThreshold),
	})

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.RequestTimeout())
	client.SetRetryCount(cfg.BackoffMS.Retries)
	client.SetRetryWaitTime(cfg.BaseBackoff())
	client.SetRetryMaxWaitTime(cfg.MaxBackoff())
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
	})
	client.SetHeader("Accept", "application/json")
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &Client{
		name:     name,
		ttl:      cfg.CacheTTL(),
		http:     client,
		limiter:  opts.Limiter,
		breakers: opts.Breakers,
		cache:    opts.Cache,
		errors:   opts.Errors,
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return c.name
}

// Status reports the breaker state
func (c *Client) Status() BreakerStatus {
	st, _ := c.breakers.Status(c.name)
	return st
}

// getJSON performs a cached, rate limited and breaker guarded GET and
// decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	return c.getJSONTTL(ctx, path, params, out, c.ttl)
}

// getJSONTTL is getJSON with an explicit cache lifetime
func (c *Client) getJSONTTL(ctx context.Context, path string, params url.Values, out interface{}, ttl time.Duration) error {
	key := c.name + ":" + path
	if len(params) > 0 {
		key += "?" + params.Encode()
	}

	if c.cache != nil && ttl > 0 {
		hit, err := cache.GetJSON(ctx, c.cache, key, out)
		if err != nil {
			log.Warn().Err(err).Str("provider", c.name).Str("key", key).Msg("Cache read failed")
		}
		if hit {
			return nil
		}
	}

	if err := c.limiter.Wait(ctx, c.name); err != nil {
		return err
	}

	body, err := c.breakers.Execute(c.name, func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(params).
			Get(path)
		if err != nil {
			return nil, err
		}
		switch code := resp.StatusCode(); {
		case code == http.StatusNotFound:
			return nil, ErrNotFound
		case code == http.StatusTooManyRequests:
			c.limiter.Throttle(c.name)
			return nil, fmt.Errorf("rate limited (status %d)", code)
		case code >= 400:
			return nil, fmt.Errorf("unexpected status %d", code)
		}
		return resp.Body(), nil
	})
	if err != nil {
		c.recordError(err)
		return fmt.Errorf("%s %s: %w", c.name, path, err)
	}

	if err := json.Unmarshal(body.([]byte), out); err != nil {
		c.recordError(err)
		return fmt.Errorf("%s %s: decode: %w", c.name, path, err)
	}

	if c.cache != nil && ttl > 0 {
		if err := cache.SetJSON(ctx, c.cache, key, out, ttl); err != nil {
			log.Warn().Err(err).Str("provider", c.name).Str("key", key).Msg("Cache write failed")
		}
	}
	return nil
}

func (c *Client) recordError(err error) {
	if c.errors == nil {
		return
	}
	c.errors.ProviderError(c.name, errorKind(err))
}

func errorKind(err error) string {
	var syntax *json.SyntaxError
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &syntax):
		return "decode"
	default:
		return "request"
	}
}
