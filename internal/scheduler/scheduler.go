package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ErrBusy is returned by RunNow while another run is in flight
var ErrBusy = errors.New("scan already running")

// Job is one unit of scheduled work, normally a scan cycle
type Job func(ctx context.Context) error

// Options tune a Scheduler
type Options struct {
	Timeout    time.Duration // per-run deadline; 0 means none
	RunOnStart bool
}

// Status represents scheduler status
type Status struct {
	Running      bool          `json:"running"`
	Schedule     string        `json:"schedule"`
	NextRun      time.Time     `json:"next_run"`
	LastRun      time.Time     `json:"last_run"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
	Runs         int           `json:"runs"`
	Failures     int           `json:"failures"`
	Skipped      int           `json:"skipped"`
}

// JobResult represents the result of a job execution
type JobResult struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// Scheduler runs a Job on a cron schedule. Runs never overlap: a tick
// that fires while the previous run is still going is skipped.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	job      Job
	opts     Options
	cron     *cron.Cron
	busy     atomic.Bool

	mu      sync.Mutex
	status  Status
	entry   cron.EntryID
	started bool
}

// New parses spec (standard five-field cron or a descriptor such as
// "@every 15m") and returns a stopped scheduler.
func New(spec string, job Job, opts Options) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("scheduler needs a job")
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	logger := cronLogger{}
	return &Scheduler{
		spec:     spec,
		schedule: schedule,
		job:      job,
		opts:     opts,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		status: Status{Schedule: spec},
	}, nil
}

// Start begins the scheduler; it stops when ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	s.started = true
	s.entry = s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.RunNow(ctx); err != nil && !errors.Is(err, ErrBusy) {
			log.Warn().Err(err).Msg("Scheduled scan failed")
		}
	}))
	s.status.Running = true
	s.mu.Unlock()

	s.cron.Start()
	log.Info().Str("schedule", s.spec).Time("next_run", s.nextRun()).Msg("Scheduler started")

	if s.opts.RunOnStart {
		go func() {
			if _, err := s.RunNow(ctx); err != nil && !errors.Is(err, ErrBusy) {
				log.Warn().Err(err).Msg("Initial scan failed")
			}
		}()
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for an in-flight run to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.status.Running {
		s.mu.Unlock()
		return
	}
	s.status.Running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}

// RunNow executes the job immediately unless a run is already in flight
func (s *Scheduler) RunNow(ctx context.Context) (*JobResult, error) {
	if !s.busy.CompareAndSwap(false, true) {
		s.mu.Lock()
		s.status.Skipped++
		s.mu.Unlock()
		log.Info().Msg("Skipping scan: previous run still in progress")
		return nil, ErrBusy
	}
	defer s.busy.Store(false)

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	res := &JobResult{StartTime: time.Now()}
	err := s.job(ctx)
	res.EndTime = time.Now()
	res.Duration = res.EndTime.Sub(res.StartTime)
	res.Success = err == nil
	if err != nil {
		res.Error = err.Error()
	}

	s.mu.Lock()
	s.status.Runs++
	s.status.LastRun = res.StartTime
	s.status.LastDuration = res.Duration
	s.status.LastError = res.Error
	if err != nil {
		s.status.Failures++
	}
	s.mu.Unlock()

	return res, err
}

// Status returns a snapshot of the scheduler state
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()
	st.NextRun = s.nextRun()
	return st
}

func (s *Scheduler) nextRun() time.Time {
	s.mu.Lock()
	id, started := s.entry, s.started
	s.mu.Unlock()
	if !started {
		return s.schedule.Next(time.Now())
	}
	return s.cron.Entry(id).Next
}

// cronLogger routes cron's internal logging through zerolog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
