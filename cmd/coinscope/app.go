package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/coinscope/internal/application/scan"
	"github.com/sawpanic/coinscope/internal/config"
	"github.com/sawpanic/coinscope/internal/data/cache"
	apihttp "github.com/sawpanic/coinscope/internal/interfaces/http"
	"github.com/sawpanic/coinscope/internal/persistence"
	"github.com/sawpanic/coinscope/internal/persistence/postgres"
	"github.com/sawpanic/coinscope/internal/providers"
	"github.com/sawpanic/coinscope/internal/score/composite"
)

// app is the wired object graph shared by the scan and serve commands
type app struct {
	cfg       *config.Config
	ranker    *composite.Ranker
	cache     cache.Cache
	providers *providers.Set
	db        *sqlx.DB
	repo      persistence.ScanRepo
	pipeline  *scan.Pipeline
}

type appOptions struct {
	live     bool // build providers for live scans
	progress io.Writer
	metrics  *apihttp.MetricsRegistry
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, ranker: composite.NewRanker(cfg.RankerConfig())}
	deps := scan.Deps{
		Ranker:   a.ranker,
		Sectors:  cfg.Sectors,
		Progress: opts.progress,
	}
	if opts.metrics != nil {
		deps.Metrics = opts.metrics
	}

	if opts.live {
		c, err := cache.New(ctx, cache.Options{
			Backend:   cfg.Cache.Backend,
			RedisAddr: cfg.Cache.RedisAddr,
			RedisDB:   cfg.Cache.RedisDB,
			Prefix:    cfg.Cache.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
		a.cache = c

		var rec providers.ErrorRecorder
		if opts.metrics != nil {
			rec = opts.metrics
		}
		a.providers = providers.NewSet(cfg.Providers, c, rec)

		asm, err := scan.NewAssembler(scan.SourcesFrom(a.providers, cfg.Scan), cfg.Scan, cfg.Sectors, opts.progress)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Assembler = asm
	}

	if cfg.Database.Enabled {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
		if err := postgres.Migrate(ctx, db); err != nil {
			a.Close()
			return nil, err
		}
		a.repo = postgres.NewScanRepo(db, cfg.Database.QueryTimeout())
		deps.Store = a.repo
	}

	pipeline, err := scan.NewPipeline(cfg.Scan, deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pipeline = pipeline
	return a, nil
}

// statuses returns provider breaker states, empty when running offline
func (a *app) statuses() []providers.BreakerStatus {
	if a.providers == nil {
		return nil
	}
	return a.providers.Statuses()
}

// Close releases the database and cache connections
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
	if closer, ok := a.cache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close cache")
		}
	}
}
