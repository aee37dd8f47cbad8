package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/gomyth/internal/observability"
)

func newTestScheduler() (*Scheduler, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(logger), &buf
}

func TestAdd_InvalidExpression(t *testing.T) {
	s, _ := newTestScheduler()

	err := s.Add("monitor", "every five minutes", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestAdd_Duplicate(t *testing.T) {
	s, _ := newTestScheduler()
	task := func(context.Context) error { return nil }

	require.NoError(t, s.Add("monitor", "0 */5 * * * *", task))
	assert.Error(t, s.Add("monitor", "0 */5 * * * *", task))
}

func TestParseCron(t *testing.T) {
	now := time.Date(2024, 1, 15, 20, 2, 30, 0, time.UTC)

	next, err := ParseCron("0 */5 * * * *", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 20, 5, 0, 0, time.UTC), next)

	next, err = ParseCron("@hourly", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 21, 0, 0, 0, time.UTC), next)

	// Five fields lack the seconds column.
	assert.Error(t, ValidateCron("*/5 * * * *"))
	assert.NoError(t, ValidateCron("30 0 3 * * 1"))
}

func TestRunNow(t *testing.T) {
	s, buf := newTestScheduler()

	var corrID string
	err := s.RunNow(context.Background(), "check", func(ctx context.Context) error {
		corrID = observability.CorrelationIDFromContext(ctx)
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, corrID)
	assert.Contains(t, buf.String(), "operation completed")
	assert.Contains(t, buf.String(), corrID)

	buf.Reset()
	err = s.RunNow(context.Background(), "check", func(context.Context) error {
		return errors.New("backend unreachable")
	})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "operation failed")
}

func TestStartRunsTasks(t *testing.T) {
	s, _ := newTestScheduler()

	var runs atomic.Int32
	require.NoError(t, s.Add("tick", "* * * * * *", func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)

	assert.Eventually(t, func() bool { return !s.Next("tick").IsZero() }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
	assert.True(t, s.Next("missing").IsZero())

	s.Stop()
	stopped := runs.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())
}
