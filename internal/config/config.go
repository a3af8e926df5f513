package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	applog "github.com/sawpanic/coinscope/internal/log"
	"github.com/sawpanic/coinscope/internal/score/composite"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid config")

// DefaultPath is where the CLI looks for configuration
const DefaultPath = "config/coinscope.yaml"

// Config is the complete application configuration
type Config struct {
	Log        applog.Config                        `yaml:"log"`
	Scoring    composite.Config                     `yaml:"scoring"`
	Strategies map[string]composite.StrategyProfile `yaml:"strategies"`
	Sectors    SectorCatalog                        `yaml:"sectors"`
	Providers  ProvidersConfig                      `yaml:"providers"`
	Scan       ScanConfig                           `yaml:"scan"`
	Cache      CacheConfig                          `yaml:"cache"`
	Database   DatabaseConfig                       `yaml:"database"`
	HTTP       HTTPConfig                           `yaml:"http"`
	Schedule   ScheduleConfig                       `yaml:"schedule"`
}

// ScanConfig controls snapshot assembly
type ScanConfig struct {
	Strategy          string  `yaml:"strategy"`
	UniverseSize      int     `yaml:"universe_size"`
	BatchSize         int     `yaml:"batch_size"`
	BatchDelayMS      int     `yaml:"batch_delay_ms"`
	Concurrency       int     `yaml:"concurrency"`
	KlineDays         int     `yaml:"kline_days"`
	ProfileHours      int     `yaml:"profile_hours"`
	ProfileBins       int     `yaml:"profile_bins"`
	TradeLimit        int     `yaml:"trade_limit"`
	WhaleNotionalUSD  float64 `yaml:"whale_notional_usd"`
	RetailNotionalUSD float64 `yaml:"retail_notional_usd"`
	AboveThreshold    float64 `yaml:"above_threshold"`
	TopN              int     `yaml:"top_n"`
	QuoteAsset        string  `yaml:"quote_asset"`
	DeveloperData     bool    `yaml:"developer_data"` // per-coin repository lookups on the market provider
}

// BatchDelay returns the pause between assembler batches
func (s ScanConfig) BatchDelay() time.Duration {
	return time.Duration(s.BatchDelayMS) * time.Millisecond
}

// CacheConfig selects the response cache backend
type CacheConfig struct {
	Backend   string `yaml:"backend"` // memory, redis
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	Prefix    string `yaml:"prefix"`
}

// DatabaseConfig controls scan persistence
type DatabaseConfig struct {
	Enabled        bool   `yaml:"enabled"`
	DSN            string `yaml:"dsn"`
	MaxOpenConns   int    `yaml:"max_open_conns"`
	QueryTimeoutMS int    `yaml:"query_timeout_ms"`
}

// QueryTimeout returns the per-query timeout
func (d DatabaseConfig) QueryTimeout() time.Duration {
	return time.Duration(d.QueryTimeoutMS) * time.Millisecond
}

// HTTPConfig controls the read-only API server
type HTTPConfig struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms"`
}

// ScheduleConfig controls periodic scans in serve mode
type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Log:        applog.DefaultConfig(),
		Scoring:    composite.DefaultConfig(),
		Strategies: composite.DefaultStrategies(),
		Sectors:    defaultSectors(),
		Providers:  defaultProviders(),
		Scan: ScanConfig{
			Strategy:          composite.DefaultStrategy,
			UniverseSize:      100,
			BatchSize:         10,
			BatchDelayMS:      1000,
			Concurrency:       4,
			KlineDays:         30,
			ProfileHours:      168,
			ProfileBins:       24,
			TradeLimit:        1000,
			WhaleNotionalUSD:  100_000,
			RetailNotionalUSD: 10_000,
			AboveThreshold:    composite.DefaultAboveThreshold,
			TopN:              20,
			QuoteAsset:        "USDT",
			DeveloperData:     true,
		},
		Cache: CacheConfig{Backend: "memory", RedisAddr: "localhost:6379", Prefix: "coinscope:"},
		Database: DatabaseConfig{
			MaxOpenConns:   5,
			QueryTimeoutMS: 5000,
		},
		HTTP:     HTTPConfig{Addr: ":8080", ReadTimeoutMS: 10_000, WriteTimeoutMS: 10_000},
		Schedule: ScheduleConfig{Enabled: true, Cron: "@every 15m"},
	}
}

// Load reads path (optional) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
			// defaults only
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides selected fields from the environment
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := lookup("COINSCOPE_STRATEGY"); ok && v != "" {
		c.Scan.Strategy = v
	}
	if v, ok := lookup("COINSCOPE_UNIVERSE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: COINSCOPE_UNIVERSE_SIZE: %v", ErrInvalid, err)
		}
		c.Scan.UniverseSize = n
	}
	if v, ok := lookup("COINSCOPE_HTTP_ADDR"); ok && v != "" {
		c.HTTP.Addr = v
	}
	if v, ok := lookup("COINSCOPE_CACHE_BACKEND"); ok && v != "" {
		c.Cache.Backend = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		c.Cache.RedisAddr = v
		c.Cache.Backend = "redis"
	}
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.Database.DSN = v
		c.Database.Enabled = true
	}
	return nil
}

// RankerConfig returns the scoring tables with the configured strategies
func (c *Config) RankerConfig() composite.Config {
	rc := c.Scoring
	rc.Strategies = c.Strategies
	return rc
}

// Validate checks every section; failures wrap ErrInvalid
func (c *Config) Validate() error {
	if err := c.RankerConfig().Validate(); err != nil {
		return fmt.Errorf("%w: scoring: %v", ErrInvalid, err)
	}
	if _, ok := c.Strategies[c.Scan.Strategy]; !ok {
		return fmt.Errorf("%w: scan.strategy %q is not defined", ErrInvalid, c.Scan.Strategy)
	}
	if err := c.Providers.Validate(); err != nil {
		return fmt.Errorf("%w: providers: %v", ErrInvalid, err)
	}

	s := c.Scan
	switch {
	case s.UniverseSize <= 0 || s.UniverseSize > 250:
		return fmt.Errorf("%w: scan.universe_size must be 1-250, got %d", ErrInvalid, s.UniverseSize)
	case s.BatchSize <= 0:
		return fmt.Errorf("%w: scan.batch_size must be positive", ErrInvalid)
	case s.Concurrency <= 0:
		return fmt.Errorf("%w: scan.concurrency must be positive", ErrInvalid)
	case s.BatchDelayMS < 0:
		return fmt.Errorf("%w: scan.batch_delay_ms cannot be negative", ErrInvalid)
	case s.WhaleNotionalUSD <= s.RetailNotionalUSD:
		return fmt.Errorf("%w: scan.whale_notional_usd must exceed retail_notional_usd", ErrInvalid)
	case s.KlineDays < 15:
		return fmt.Errorf("%w: scan.kline_days must be at least 15", ErrInvalid)
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("%w: cache.redis_addr required for redis backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalid, c.Cache.Backend)
	}

	if c.Database.Enabled && c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn required when database is enabled", ErrInvalid)
	}
	if c.Schedule.Enabled && c.Schedule.Cron == "" {
		return fmt.Errorf("%w: schedule.cron required when schedule is enabled", ErrInvalid)
	}
	return nil
}
