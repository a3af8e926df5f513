package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_RejectsBadLevel(t *testing.T) {
	err := InitWithWriter(Config{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(Config{Level: "info", Format: "json"}, &buf))
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Info().Str("symbol", "BTC").Msg("scored")
	assert.Contains(t, buf.String(), `"symbol":"BTC"`)
	assert.Contains(t, buf.String(), `"service":"coinscope"`)

	buf.Reset()
	log.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestProgressIndicator(t *testing.T) {
	var buf bytes.Buffer
	pi := NewProgressIndicator(&buf, "Assembling", 4)
	pi.Increment()
	pi.Increment()
	assert.Equal(t, 2, pi.Current())
	assert.Contains(t, buf.String(), "2/4 (50.0%)")

	pi.Finish("done")
	assert.Contains(t, buf.String(), "Assembling: done")
}

func TestProgressIndicator_Silent(t *testing.T) {
	pi := NewProgressIndicator(nil, "quiet", 2)
	pi.Increment()
	pi.Finish("done")
	assert.Equal(t, 1, pi.Current())
}

func TestStepLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStepLogger(&buf, "scan", []string{"fetch", "rank"})
	sl.StartStep("fetch")
	sl.StartStep("nope")
	sl.StartStep("rank")
	sl.Finish()

	d := sl.Durations()
	assert.Len(t, d, 2)
	assert.Contains(t, buf.String(), "2 steps completed")

	sl = NewStepLogger(&buf, "scan", []string{"fetch"})
	sl.StartStep("fetch")
	sl.Fail(errors.New("boom"))
	assert.Contains(t, buf.String(), "scan failed: boom")
}
