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

func TestRunner_RunsImmediatelyThenOnInterval(t *testing.T) {
	var runs atomic.Int64
	runner := NewRunner("test", 20*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, noopLogger{})

	runner.Start(context.Background())
	defer runner.Stop()

	// The first run happens on Start, not one interval later.
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestRunner_StopEndsLoop(t *testing.T) {
	var runs atomic.Int64
	runner := NewRunner("test", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, noopLogger{})

	runner.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, time.Millisecond)

	runner.Stop()
	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no ticks after Stop")

	// Stop is idempotent.
	runner.Stop()
}

func TestRunner_ContextCancelEndsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int64
	runner := NewRunner("test", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, noopLogger{})

	runner.Start(ctx)
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, time.Millisecond)

	cancel()
	time.Sleep(30 * time.Millisecond)
	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestRunner_PanicContained(t *testing.T) {
	var runs atomic.Int64
	runner := NewRunner("test", 10*time.Millisecond, func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			panic("first tick explodes")
		}
		return nil
	}, noopLogger{})

	runner.Start(context.Background())
	defer runner.Stop()

	// The loop survives the panicking tick and keeps running.
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestRunner_TaskErrorDoesNotStopLoop(t *testing.T) {
	var runs atomic.Int64
	runner := NewRunner("test", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("tick failed")
	}, noopLogger{})

	runner.Start(context.Background())
	defer runner.Stop()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
}
