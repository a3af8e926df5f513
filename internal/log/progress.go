package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ProgressIndicator renders a single-line progress bar for long-running
// operations. It is safe for concurrent Increment calls.
type ProgressIndicator struct {
	mu        sync.Mutex
	out       io.Writer
	name      string
	total     int
	current   int
	startTime time.Time
	showBar   bool
}

// NewProgressIndicator creates a progress indicator writing to out. A nil
// writer produces a silent indicator.
func NewProgressIndicator(out io.Writer, name string, total int) *ProgressIndicator {
	return &ProgressIndicator{
		out:       out,
		name:      name,
		total:     total,
		startTime: time.Now(),
		showBar:   out != nil,
	}
}

// Increment advances progress by one step
func (pi *ProgressIndicator) Increment() {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.current++
	pi.render("")
}

// Update sets progress and displays a message
func (pi *ProgressIndicator) Update(current int, message string) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.current = current
	pi.render(message)
}

// Current returns the number of completed steps
func (pi *ProgressIndicator) Current() int {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.current
}

// Finish completes the progress indicator
func (pi *ProgressIndicator) Finish(message string) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	if !pi.showBar {
		return
	}
	d := time.Since(pi.startTime).Round(time.Millisecond)
	fmt.Fprintf(pi.out, "\r\033[K%s: %s (%v)\n", pi.name, message, d)
}

// Fail marks the progress as failed
func (pi *ProgressIndicator) Fail(reason string) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	if !pi.showBar {
		return
	}
	d := time.Since(pi.startTime).Round(time.Millisecond)
	fmt.Fprintf(pi.out, "\r\033[K%s failed: %s (%v)\n", pi.name, reason, d)
}

func (pi *ProgressIndicator) render(message string) {
	if !pi.showBar {
		return
	}
	fmt.Fprint(pi.out, pi.line(message))
}

// line builds the progress bar text; callers hold the lock
func (pi *ProgressIndicator) line(message string) string {
	var b strings.Builder
	b.WriteString("\r\033[K")
	b.WriteString(pi.name)

	if pi.total > 0 {
		const width = 20
		filled := width * pi.current / pi.total
		if filled > width {
			filled = width
		}
		b.WriteString(" [")
		b.WriteString(strings.Repeat("█", filled))
		b.WriteString(strings.Repeat("░", width-filled))
		fmt.Fprintf(&b, "] %d/%d (%.1f%%)", pi.current, pi.total, float64(pi.current)/float64(pi.total)*100)

		if pi.current > 0 && pi.current < pi.total {
			elapsed := time.Since(pi.startTime)
			eta := time.Duration(float64(elapsed) / float64(pi.current) * float64(pi.total-pi.current))
			fmt.Fprintf(&b, " ETA: %v", eta.Round(time.Second))
		}
	}

	if message != "" {
		b.WriteString(" - ")
		b.WriteString(message)
	}
	return b.String()
}

// StepLogger logs the stages of a pipeline run with per-step timings
type StepLogger struct {
	steps     []string
	current   int
	started   time.Time
	stepStart time.Time
	durations []time.Duration
	progress  *ProgressIndicator
}

// NewStepLogger creates a step logger; out may be nil for log-only output
func NewStepLogger(out io.Writer, name string, steps []string) *StepLogger {
	now := time.Now()
	return &StepLogger{
		steps:     steps,
		current:   -1,
		started:   now,
		stepStart: now,
		durations: make([]time.Duration, len(steps)),
		progress:  NewProgressIndicator(out, name, len(steps)),
	}
}

// StartStep closes the running step and begins stepName
func (sl *StepLogger) StartStep(stepName string) {
	idx := -1
	for i, s := range sl.steps {
		if s == stepName {
			idx = i
			break
		}
	}
	if idx == -1 {
		log.Warn().Str("step", stepName).Msg("Unknown pipeline step")
		return
	}

	sl.closeStep()
	sl.current = idx
	sl.stepStart = time.Now()
	sl.progress.Update(idx+1, stepName)

	log.Debug().
		Str("step", stepName).
		Int("step_number", idx+1).
		Int("total_steps", len(sl.steps)).
		Msg("Starting pipeline step")
}

// Finish closes the last step and logs a timing summary
func (sl *StepLogger) Finish() {
	sl.closeStep()
	total := time.Since(sl.started)
	sl.progress.Finish(fmt.Sprintf("%d steps completed", len(sl.steps)))

	ev := log.Info().Dur("total", total)
	for i, s := range sl.steps {
		ev = ev.Dur(s, sl.durations[i])
	}
	ev.Msg("Pipeline completed")
}

// Fail marks the current step as failed
func (sl *StepLogger) Fail(err error) {
	sl.progress.Fail(err.Error())
	step := "unknown"
	if sl.current >= 0 {
		step = sl.steps[sl.current]
	}
	log.Error().Err(err).Str("failed_step", step).Msg("Pipeline failed")
}

// Durations returns the recorded duration of every step
func (sl *StepLogger) Durations() map[string]time.Duration {
	out := make(map[string]time.Duration, len(sl.steps))
	for i, s := range sl.steps {
		out[s] = sl.durations[i]
	}
	return out
}

func (sl *StepLogger) closeStep() {
	if sl.current >= 0 {
		sl.durations[sl.current] = time.Since(sl.stepStart)
	}
}
