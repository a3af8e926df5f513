package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/sawpanic/coinscope/internal/domain/market"
	"github.com/sawpanic/coinscope/internal/score/composite"
)

var (
	// ErrNoScans is returned when the store holds no matching scan
	ErrNoScans = errors.New("no scans stored")
)

// TimeRange represents a time window for history queries
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Valid reports whether the range is non-inverted
func (tr TimeRange) Valid() bool {
	return !tr.To.Before(tr.From)
}

// ScanRecord is one completed scan with its ranked list
type ScanRecord struct {
	ID         string                  `json:"id" db:"id"`
	StartedAt  time.Time               `json:"started_at" db:"started_at"`
	FinishedAt time.Time               `json:"finished_at" db:"finished_at"`
	Strategy   string                  `json:"strategy" db:"strategy"`
	Source     string                  `json:"source" db:"source"` // live, offline
	Conditions market.MarketConditions `json:"conditions"`
	Stats      composite.Stats         `json:"stats"`
	Coins      []composite.RankedCoin  `json:"coins"`
	CreatedAt  time.Time               `json:"created_at" db:"created_at"`
}

// ScanSummary is a scan without its coin list
type ScanSummary struct {
	ID           string    `json:"id" db:"id"`
	StartedAt    time.Time `json:"started_at" db:"started_at"`
	Strategy     string    `json:"strategy" db:"strategy"`
	CoinCount    int       `json:"coin_count" db:"coin_count"`
	AverageScore float64   `json:"average_score" db:"average_score"`
}

// ScorePoint is one coin's position in a past scan
type ScorePoint struct {
	ScanID     string    `json:"scan_id" db:"scan_id"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	Position   int       `json:"position" db:"position"`
	TotalScore float64   `json:"total_score" db:"total_score"`
	Category   string    `json:"category" db:"category"`
	Action     string    `json:"action" db:"action"`
}

// ScanRepo stores completed scans
type ScanRepo interface {
	// Save writes a scan and its results atomically
	Save(ctx context.Context, scan ScanRecord) error

	// Latest returns the most recent scan or ErrNoScans
	Latest(ctx context.Context) (*ScanRecord, error)

	// Get returns a scan by ID or ErrNoScans
	Get(ctx context.Context, id string) (*ScanRecord, error)

	// List returns the newest scans first
	List(ctx context.Context, limit int) ([]ScanSummary, error)

	// SymbolHistory returns a coin's scores across scans in tr, newest first
	SymbolHistory(ctx context.Context, symbol string, tr TimeRange) ([]ScorePoint, error)
}
