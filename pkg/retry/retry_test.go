package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semqueue/errors"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_Success(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		attempts++
		if attempts < 3 {
			return errors.ErrQueueFull
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_AllAttemptsFail(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		attempts++
		return errors.WrapTransient(errors.ErrQueueFull, "BlockingQueue", "TryEnqueue", "no free slot")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.True(t, errors.Is(err, errors.ErrQueueFull))
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, 3, attempts)
}

func TestRetry_StopsOnNonTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"invalid", errors.WrapInvalid(errors.ErrQueueClosed, "BlockingQueue", "TryEnqueue", "queue closed")},
		{"fatal", errors.WrapFatal(errors.ErrCorrupted, "BlockingQueue", "TryEnqueue", "ring")},
		{"nil element", errors.ErrNilElement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := Do(context.Background(), fastConfig(5), func() error {
				attempts++
				return tt.err
			})

			assert.Equal(t, tt.err, err)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	attempts := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Do(ctx, cfg, func() error {
		attempts++
		return errors.ErrQueueFull
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "cancelled during backoff")
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRetry_SingleAttempt(t *testing.T) {
	for _, n := range []int{0, 1} {
		t.Run(fmt.Sprintf("max%d", n), func(t *testing.T) {
			attempts := 0
			err := Do(context.Background(), fastConfig(n), func() error {
				attempts++
				return errors.ErrQueueFull
			})
			require.Error(t, err)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestRetry_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative initial", Config{InitialDelay: -1}},
		{"negative max", Config{MaxDelay: -1}},
		{"negative multiplier", Config{Multiplier: -1}},
		{"max below initial", Config{InitialDelay: time.Second, MaxDelay: time.Millisecond}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			err := Do(context.Background(), tt.cfg, func() error {
				called = true
				return nil
			})
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			assert.False(t, called)
		})
	}
}

func TestRetry_BackoffGrowth(t *testing.T) {
	cfg := withDefaults(Config{InitialDelay: time.Millisecond, MaxDelay: 3 * time.Millisecond, Multiplier: 2})

	d := cfg.InitialDelay
	d = nextDelay(d, cfg)
	assert.Equal(t, 2*time.Millisecond, d)
	d = nextDelay(d, cfg)
	assert.Equal(t, 3*time.Millisecond, d)
	d = nextDelay(d, cfg)
	assert.Equal(t, 3*time.Millisecond, d)
}

func TestRetry_Jitter(t *testing.T) {
	base := 100 * time.Millisecond
	assert.Equal(t, base, jittered(base, false))
	for i := 0; i < 50; i++ {
		d := jittered(base, true)
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+base/4)
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	v, err := DoWithResult(context.Background(), fastConfig(3), func() (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.ErrQueueEmpty
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 2, attempts)
}
