package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicy(maxAttempts int) (*Policy, *[]time.Duration) {
	sleeps := &[]time.Duration{}
	p := NewPolicy(maxAttempts, 100*time.Millisecond, logrus.New())
	p.sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return p, sleeps
}

func TestDoSucceedsOnKthAttempt(t *testing.T) {
	p, _ := newTestPolicy(5)

	attempts := 0
	err := p.Do(context.Background(), "lookup", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoExhaustsAttemptsAndPropagatesLastError(t *testing.T) {
	p, _ := newTestPolicy(3)

	attempts := 0
	lastErr := errors.New("still broken")
	err := p.Do(context.Background(), "lookup", func(context.Context) error {
		attempts++
		return lastErr
	})

	assert.Equal(t, 3, attempts)
	require.Error(t, err)
	assert.ErrorIs(t, err, lastErr)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestDoBackoffDoubles(t *testing.T) {
	p, sleeps := newTestPolicy(4)

	_ = p.Do(context.Background(), "lookup", func(context.Context) error {
		return errors.New("fail")
	})

	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
	}, *sleeps)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	p := NewPolicy(5, time.Millisecond, logrus.New())

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := p.Do(ctx, "lookup", func(context.Context) error {
		attempts++
		cancel()
		return errors.New("fail")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestNewPolicyClampsAttempts(t *testing.T) {
	p := NewPolicy(0, time.Millisecond, nil)
	assert.Equal(t, 1, p.MaxAttempts)
}
