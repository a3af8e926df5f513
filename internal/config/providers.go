package config

import (
	"fmt"
	"time"
)

// Provider names used as keys in the providers section
const (
	CoinGecko   = "coingecko"
	Binance     = "binance"
	DexScreener = "dexscreener"
	FearGreed   = "feargreed"
)

// ProvidersConfig represents the complete provider operations configuration
type ProvidersConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
	Global    GlobalConfig              `yaml:"global"`
}

// ProviderConfig represents configuration for a single provider
type ProviderConfig struct {
	BaseURL   string        `yaml:"base_url"`
	RPS       float64       `yaml:"rps"`      // Requests per second
	Burst     int           `yaml:"burst"`    // Burst capacity
	TTLSecs   int           `yaml:"ttl_secs"` // Cache TTL in seconds
	BackoffMS BackoffConfig `yaml:"backoff_ms"`
	Circuit   CircuitConfig `yaml:"circuit"`
	Enabled   bool          `yaml:"enabled"`
}

// BackoffConfig represents retry backoff configuration
type BackoffConfig struct {
	Base    int `yaml:"base"`    // Base backoff in milliseconds
	Max     int `yaml:"max"`     // Maximum backoff in milliseconds
	Retries int `yaml:"retries"` // Retry attempts after the first request
}

// CircuitConfig represents circuit breaker configuration
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold"` // Consecutive failures to open circuit
	HalfOpenRequests int `yaml:"half_open_requests"`
	OpenMS           int `yaml:"open_ms"`    // How long the circuit stays open
	TimeoutMS        int `yaml:"timeout_ms"` // Request timeout in milliseconds
}

// GlobalConfig represents global provider settings
type GlobalConfig struct {
	UserAgent string `yaml:"user_agent"`
}

// Validate ensures the configuration is valid and consistent
func (c *ProvidersConfig) Validate() error {
	if c.Global.UserAgent == "" {
		return fmt.Errorf("global user_agent cannot be empty")
	}
	for name, provider := range c.Providers {
		if !provider.Enabled {
			continue
		}
		if err := provider.Validate(); err != nil {
			return fmt.Errorf("provider %s: %w", name, err)
		}
	}
	return nil
}

// Validate ensures a provider configuration is valid
func (p *ProviderConfig) Validate() error {
	if p.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	if p.RPS <= 0 {
		return fmt.Errorf("rps must be positive, got %g", p.RPS)
	}
	if p.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", p.Burst)
	}
	if p.TTLSecs < 0 {
		return fmt.Errorf("ttl_secs cannot be negative, got %d", p.TTLSecs)
	}
	if p.BackoffMS.Base <= 0 || p.BackoffMS.Max < p.BackoffMS.Base {
		return fmt.Errorf("backoff_ms: need 0 < base <= max, got %d/%d", p.BackoffMS.Base, p.BackoffMS.Max)
	}
	if p.Circuit.FailureThreshold <= 0 {
		return fmt.Errorf("circuit failure_threshold must be positive, got %d", p.Circuit.FailureThreshold)
	}
	if p.Circuit.TimeoutMS <= 0 {
		return fmt.Errorf("circuit timeout_ms must be positive, got %d", p.Circuit.TimeoutMS)
	}
	return nil
}

// CacheTTL returns the cache TTL as a time.Duration
func (p ProviderConfig) CacheTTL() time.Duration {
	return time.Duration(p.TTLSecs) * time.Second
}

// RequestTimeout returns the request timeout as a time.Duration
func (p ProviderConfig) RequestTimeout() time.Duration {
	return time.Duration(p.Circuit.TimeoutMS) * time.Millisecond
}

// OpenDuration returns how long a tripped circuit stays open
func (p ProviderConfig) OpenDuration() time.Duration {
	return time.Duration(p.Circuit.OpenMS) * time.Millisecond
}

// BaseBackoff returns the base backoff as a time.Duration
func (p ProviderConfig) BaseBackoff() time.Duration {
	return time.Duration(p.BackoffMS.Base) * time.Millisecond
}

// MaxBackoff returns the maximum backoff as a time.Duration
func (p ProviderConfig) MaxBackoff() time.Duration {
	return time.Duration(p.BackoffMS.Max) * time.Millisecond
}

// Provider returns configuration for a specific provider
func (c *ProvidersConfig) Provider(name string) (ProviderConfig, bool) {
	p, ok := c.Providers[name]
	return p, ok
}

// IsProviderEnabled checks if a provider is enabled
func (c *ProvidersConfig) IsProviderEnabled(name string) bool {
	p, ok := c.Providers[name]
	return ok && p.Enabled
}

func defaultProviders() ProvidersConfig {
	std := func(url string, rps float64, burst, ttl int) ProviderConfig {
		return ProviderConfig{
			BaseURL:   url,
			RPS:       rps,
			Burst:     burst,
			TTLSecs:   ttl,
			BackoffMS: BackoffConfig{Base: 500, Max: 5000, Retries: 2},
			Circuit:   CircuitConfig{FailureThreshold: 5, HalfOpenRequests: 1, OpenMS: 30_000, TimeoutMS: 10_000},
			Enabled:   true,
		}
	}
	return ProvidersConfig{
		Providers: map[string]ProviderConfig{
			CoinGecko:   std("https://api.coingecko.com/api/v3", 0.5, 2, 300),
			Binance:     std("https://api.binance.com", 10, 20, 60),
			DexScreener: std("https://api.dexscreener.com", 2, 5, 300),
			FearGreed:   std("https://api.alternative.me", 1, 1, 3600),
		},
		Global: GlobalConfig{UserAgent: "coinscope/1.0"},
	}
}
