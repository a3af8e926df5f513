package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	noop := func(context.Context) error { return nil }

	_, err := New("every now and then", noop, Options{})
	assert.Error(t, err)

	_, err = New("@every 15m", nil, Options{})
	assert.Error(t, err)

	s, err := New("*/15 * * * *", noop, Options{})
	require.NoError(t, err)
	st := s.Status()
	assert.False(t, st.Running)
	assert.Equal(t, "*/15 * * * *", st.Schedule)
	assert.True(t, st.NextRun.After(time.Now()))
}

func TestRunNow_RecordsOutcome(t *testing.T) {
	fail := true
	s, err := New("@every 1h", func(context.Context) error {
		if fail {
			return errors.New("coingecko unavailable")
		}
		return nil
	}, Options{})
	require.NoError(t, err)

	res, err := s.RunNow(context.Background())
	assert.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "coingecko unavailable", res.Error)

	fail = false
	res, err = s.RunNow(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)

	st := s.Status()
	assert.Equal(t, 2, st.Runs)
	assert.Equal(t, 1, st.Failures)
	assert.Empty(t, st.LastError)
	assert.False(t, st.LastRun.IsZero())
}

func TestRunNow_NoOverlap(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	s, err := New("@every 1h", func(context.Context) error {
		close(entered)
		<-release
		return nil
	}, Options{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background())
		done <- err
	}()
	<-entered

	_, err = s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)

	st := s.Status()
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, 1, st.Skipped)
}

func TestRunNow_Timeout(t *testing.T) {
	s, err := New("@every 1h", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, Options{Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = s.RunNow(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStart_RunsOnScheduleAndStops(t *testing.T) {
	var runs atomic.Int32
	s, err := New("@every 1s", func(context.Context) error {
		runs.Add(1)
		return nil
	}, Options{RunOnStart: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	assert.Error(t, s.Start(ctx))
	assert.True(t, s.Status().Running)

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 4*time.Second, 20*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return !s.Status().Running }, time.Second, 10*time.Millisecond)
}
