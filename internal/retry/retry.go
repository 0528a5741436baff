package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Policy wraps a fallible operation with bounded exponential backoff. It is
// used for the network-bound enrichment lookups; listing-page fetches are
// handled by the orchestrator's looser per-unit policy instead, because one
// bad page must not stall a whole sweep.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	logger      *logrus.Logger
	sleep       func(context.Context, time.Duration) error
}

// NewPolicy creates a retry policy with the given attempt budget.
func NewPolicy(maxAttempts int, baseDelay time.Duration, logger *logrus.Logger) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		logger:      logger,
		sleep:       sleepWithContext,
	}
}

// Do runs op until it succeeds or the attempt budget is exhausted, waiting
// base << attempt between attempts. The last failure is propagated.
func (p *Policy) Do(ctx context.Context, name string, op func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << (attempt - 1)
			if p.logger != nil {
				p.logger.WithFields(logrus.Fields{
					"operation": name,
					"attempt":   attempt + 1,
					"delay":     delay.String(),
				}).Warn("Retrying after failure")
			}
			if err := p.sleep(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, p.MaxAttempts, lastErr)
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
