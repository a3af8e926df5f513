// Package scan runs scan cycles: assemble snapshots, rank them, then hand
// the result to storage and subscribers.
package scan

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/coinscope/internal/config"
	"github.com/sawpanic/coinscope/internal/domain/market"
	applog "github.com/sawpanic/coinscope/internal/log"
	"github.com/sawpanic/coinscope/internal/persistence"
	"github.com/sawpanic/coinscope/internal/score/composite"
)

// Pipeline step names
const (
	StepUniverse  = "Universe"
	StepEnrich    = "Enrich"
	StepRank      = "Rank"
	StepSummarize = "Summarize"
	StepPersist   = "Persist"
	StepPublish   = "Publish"
)

// Steps lists the pipeline steps in execution order
func Steps() []string {
	return []string{StepUniverse, StepEnrich, StepRank, StepSummarize, StepPersist, StepPublish}
}

// Source tags where a scan's snapshots came from
const (
	SourceLive    = "live"
	SourceOffline = "offline"
)

// Options select the strategy and input of one run
type Options struct {
	Strategy string
	Input    string // offline JSON path; empty runs live
}

// Result is a completed scan
type Result struct {
	ID         string                     `json:"id"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
	Strategy   string                     `json:"strategy"`
	Source     string                     `json:"source"`
	Conditions market.MarketConditions    `json:"conditions"`
	Ranked     []composite.RankedCoin     `json:"ranked"`
	Stats      composite.Stats            `json:"stats"`
	Sectors    []composite.SectorStrength `json:"sectors"`
	Durations  map[string]time.Duration   `json:"-"`

	universe []market.CoinSnapshot
}

// Record converts the result to its persisted form
func (r *Result) Record() persistence.ScanRecord {
	return persistence.ScanRecord{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Strategy:   r.Strategy,
		Source:     r.Source,
		Conditions: r.Conditions,
		Stats:      r.Stats,
		Coins:      r.Ranked,
	}
}

// Store persists completed scans
type Store interface {
	Save(ctx context.Context, scan persistence.ScanRecord) error
}

// Recorder receives pipeline metrics
type Recorder interface {
	ObserveStep(step string, d time.Duration, err error)
	ObserveScan(res *Result, d time.Duration)
}

// Subscriber is called with every completed scan
type Subscriber func(res *Result)

// Deps are the pipeline collaborators. Only Ranker is required.
type Deps struct {
	Ranker    *composite.Ranker
	Assembler *Assembler
	Sectors   config.SectorCatalog // applied to offline input
	Store     Store
	Metrics   Recorder
	Progress  io.Writer
}

// Pipeline executes scan cycles
type Pipeline struct {
	cfg  config.ScanConfig
	deps Deps
	now  func() time.Time

	mu          sync.RWMutex
	subscribers []Subscriber
}

func NewPipeline(cfg config.ScanConfig, deps Deps) (*Pipeline, error) {
	if deps.Ranker == nil {
		return nil, fmt.Errorf("pipeline needs a ranker")
	}
	return &Pipeline{cfg: cfg, deps: deps, now: time.Now}, nil
}

// Subscribe registers fn for every future completed scan
func (p *Pipeline) Subscribe(fn Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

type stepFunc func(ctx context.Context, opts Options, res *Result) error

// Run executes one scan cycle
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Strategy == "" {
		opts.Strategy = p.cfg.Strategy
	}
	strategy, _ := p.deps.Ranker.Profile(opts.Strategy)
	if strategy != opts.Strategy {
		return nil, fmt.Errorf("unknown strategy %q", opts.Strategy)
	}
	if opts.Input == "" && p.deps.Assembler == nil {
		return nil, fmt.Errorf("live scan requires providers; pass an input file")
	}

	res := &Result{
		ID:        uuid.NewString(),
		StartedAt: p.now().UTC(),
		Strategy:  strategy,
		Source:    SourceLive,
	}
	if opts.Input != "" {
		res.Source = SourceOffline
	}

	steps := []struct {
		name string
		fn   stepFunc
	}{
		{StepUniverse, p.universeStep},
		{StepEnrich, p.enrichStep},
		{StepRank, p.rankStep},
		{StepSummarize, p.summarizeStep},
		{StepPersist, p.persistStep},
		{StepPublish, p.publishStep},
	}

	stepLogger := applog.NewStepLogger(p.deps.Progress, "Scan", Steps())
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			stepLogger.Fail(err)
			return nil, err
		}
		stepLogger.StartStep(step.name)
		start := time.Now()

		err := step.fn(ctx, opts, res)
		if p.deps.Metrics != nil {
			p.deps.Metrics.ObserveStep(step.name, time.Since(start), err)
		}
		if err != nil {
			stepLogger.Fail(err)
			return nil, fmt.Errorf("scan failed at step %s: %w", step.name, err)
		}
	}
	stepLogger.Finish()

	res.Durations = stepLogger.Durations()
	res.universe = nil
	if p.deps.Metrics != nil {
		p.deps.Metrics.ObserveScan(res, res.FinishedAt.Sub(res.StartedAt))
	}

	log.Info().
		Str("scan_id", res.ID).
		Str("strategy", res.Strategy).
		Str("source", res.Source).
		Int("ranked", len(res.Ranked)).
		Float64("average_score", res.Stats.AverageScore).
		Msg("Scan completed")
	return res, nil
}

func (p *Pipeline) universeStep(ctx context.Context, opts Options, res *Result) error {
	if opts.Input != "" {
		in, err := LoadInput(opts.Input)
		if err != nil {
			return err
		}
		p.deps.Sectors.Apply(in.Coins)
		res.Conditions = *in.Conditions
		res.universe = in.Coins
		return nil
	}

	_, profile := p.deps.Ranker.Profile(res.Strategy)
	coins, mc, err := p.deps.Assembler.Universe(ctx, profile.Criteria)
	if err != nil {
		return err
	}
	res.Conditions = mc
	res.universe = coins
	return nil
}

func (p *Pipeline) enrichStep(ctx context.Context, opts Options, res *Result) error {
	if res.Source == SourceOffline {
		return nil
	}
	coins, err := p.deps.Assembler.Enrich(ctx, res.universe)
	if err != nil {
		return err
	}
	res.universe = coins
	return nil
}

func (p *Pipeline) rankStep(_ context.Context, _ Options, res *Result) error {
	res.Ranked = p.deps.Ranker.Rank(res.universe, res.Conditions, res.Strategy)
	res.Sectors = p.deps.Ranker.SectorStrengths(res.universe, res.Conditions, res.Strategy)
	return nil
}

func (p *Pipeline) summarizeStep(_ context.Context, _ Options, res *Result) error {
	res.Stats = composite.Summarize(res.Ranked, p.cfg.AboveThreshold)
	res.FinishedAt = p.now().UTC()
	return nil
}

// persistStep never fails the scan; storage is best effort
func (p *Pipeline) persistStep(ctx context.Context, _ Options, res *Result) error {
	if p.deps.Store == nil {
		return nil
	}
	if err := p.deps.Store.Save(ctx, res.Record()); err != nil {
		log.Warn().Err(err).Str("scan_id", res.ID).Msg("Failed to persist scan")
	}
	return nil
}

func (p *Pipeline) publishStep(_ context.Context, _ Options, res *Result) error {
	p.mu.RLock()
	subs := append([]Subscriber(nil), p.subscribers...)
	p.mu.RUnlock()
	for _, fn := range subs {
		fn(res)
	}
	return nil
}
