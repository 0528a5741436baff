package ratelimit

import (
	"context"
	"time"
)

// Limiter is a single-slot spacing gate: every Wait call is held until at
// least the configured interval has passed since the previous call
// completed. It deliberately has no burst capacity; unused budget from
// earlier calls is never carried forward.
//
// A Limiter instance assumes a single concurrent caller. The orchestrator
// runs one request at a time per source, which honors that.
type Limiter struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// New creates a limiter from a requests-per-minute budget. A budget of zero
// or less disables waiting.
func New(requestsPerMinute int) *Limiter {
	var interval time.Duration
	if requestsPerMinute > 0 {
		// ceil(60000 / rpm) milliseconds between requests
		ms := (60000 + int64(requestsPerMinute) - 1) / int64(requestsPerMinute)
		interval = time.Duration(ms) * time.Millisecond
	}
	return &Limiter{
		interval: interval,
		now:      time.Now,
		sleep:    sleepWithContext,
	}
}

// Wait blocks until the configured interval has elapsed since the previous
// Wait returned. The first call never waits. The only error condition is a
// canceled context.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		return nil
	}
	if !l.last.IsZero() {
		if remaining := l.interval - l.now().Sub(l.last); remaining > 0 {
			if err := l.sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}
	l.last = l.now()
	return nil
}

// Interval reports the enforced spacing between requests.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
