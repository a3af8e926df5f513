package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/coinscope/internal/persistence"
	"github.com/sawpanic/coinscope/internal/score/composite"
)

// scanRepo implements persistence.ScanRepo for PostgreSQL
type scanRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewScanRepo creates a new PostgreSQL scan repository
func NewScanRepo(db *sqlx.DB, timeout time.Duration) persistence.ScanRepo {
	return &scanRepo{
		db:      db,
		timeout: timeout,
	}
}

const scanColumns = `id, started_at, finished_at, strategy, source, conditions, stats, created_at`

// Save inserts the scan header and one row per ranked coin in a single
// transaction
func (r *scanRepo) Save(ctx context.Context, scan persistence.ScanRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if scan.ID == "" {
		return fmt.Errorf("scan id is required")
	}

	conditionsJSON, err := json.Marshal(scan.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}
	statsJSON, err := json.Marshal(scan.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scans (id, started_at, finished_at, strategy, source, conditions, stats)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		scan.ID, scan.StartedAt, scan.FinishedAt, scan.Strategy, scan.Source,
		conditionsJSON, statsJSON)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	for _, coin := range scan.Coins {
		payload, err := json.Marshal(coin)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", coin.Symbol, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scan_results (scan_id, position, symbol, total_score, category, action, payload)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			scan.ID, coin.Position, coin.Symbol, coin.Breakdown.TotalScore,
			string(coin.Breakdown.Category), string(coin.Breakdown.Action.Action), payload)
		if err != nil {
			return fmt.Errorf("failed to insert result %s: %w", coin.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scan: %w", err)
	}
	return nil
}

// Latest returns the most recent scan
func (r *scanRepo) Latest(ctx context.Context) (*persistence.ScanRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowxContext(ctx, `SELECT `+scanColumns+` FROM scans ORDER BY started_at DESC LIMIT 1`)
	return r.load(ctx, row)
}

// Get retrieves a scan by ID
func (r *scanRepo) Get(ctx context.Context, id string) (*persistence.ScanRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowxContext(ctx, `SELECT `+scanColumns+` FROM scans WHERE id = $1`, id)
	return r.load(ctx, row)
}

// List returns scan headers, newest first
func (r *scanRepo) List(ctx context.Context, limit int) ([]persistence.ScanSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT s.id, s.started_at, s.strategy,
		       COUNT(r.symbol) AS coin_count,
		       COALESCE(AVG(r.total_score), 0) AS average_score
		FROM scans s
		LEFT JOIN scan_results r ON r.scan_id = s.id
		GROUP BY s.id, s.started_at, s.strategy
		ORDER BY s.started_at DESC
		LIMIT $1`

	var out []persistence.ScanSummary
	if err := r.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return out, nil
}

// SymbolHistory returns one coin's results across scans in the window
func (r *scanRepo) SymbolHistory(ctx context.Context, symbol string, tr persistence.TimeRange) ([]persistence.ScorePoint, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if !tr.Valid() {
		return nil, fmt.Errorf("invalid time range: %s after %s", tr.From, tr.To)
	}

	query := `
		SELECT r.scan_id, s.started_at, r.position, r.total_score, r.category, r.action
		FROM scan_results r
		JOIN scans s ON s.id = r.scan_id
		WHERE r.symbol = $1 AND s.started_at >= $2 AND s.started_at <= $3
		ORDER BY s.started_at DESC`

	var out []persistence.ScorePoint
	if err := r.db.SelectContext(ctx, &out, query, symbol, tr.From, tr.To); err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", symbol, err)
	}
	return out, nil
}

func (r *scanRepo) load(ctx context.Context, row *sqlx.Row) (*persistence.ScanRecord, error) {
	var rec persistence.ScanRecord
	var conditionsJSON, statsJSON []byte

	err := row.Scan(&rec.ID, &rec.StartedAt, &rec.FinishedAt, &rec.Strategy, &rec.Source,
		&conditionsJSON, &statsJSON, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNoScans
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan scan row: %w", err)
	}

	if err := json.Unmarshal(conditionsJSON, &rec.Conditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
	}
	if err := json.Unmarshal(statsJSON, &rec.Stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx,
		`SELECT payload FROM scan_results WHERE scan_id = $1 ORDER BY position`, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		var coin composite.RankedCoin
		if err := json.Unmarshal(payload, &coin); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		rec.Coins = append(rec.Coins, coin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return &rec, nil
}
