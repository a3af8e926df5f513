package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache stores fetched API payloads with a per-entry TTL. A miss is
// (nil, false, nil); errors are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Stats reports cache effectiveness
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Entries   int64   `json:"entries"`
	HitRatio  float64 `json:"hit_ratio"`
}

// Options selects and configures a backend
type Options struct {
	Backend    string // memory, redis
	RedisAddr  string
	RedisDB    int
	Prefix     string
	MaxEntries int64
}

// New builds the configured backend. The redis backend pings the server
// before returning.
func New(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", "memory":
		return NewTTLCache(opts.MaxEntries), nil
	case "redis":
		return NewRedisCache(ctx, opts.RedisAddr, opts.RedisDB, opts.Prefix)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// GetJSON decodes a cached JSON value into out
func GetJSON(ctx context.Context, c Cache, key string, out interface{}) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v as JSON and stores it
func SetJSON(ctx context.Context, c Cache, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}
