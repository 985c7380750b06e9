// Package retry implements the bounded-attempt wrapper used around provider
// calls. Only failures classified retryable by the domain consume retry
// budget; everything else fails immediately.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/archway-dev/archway/internal/domain"
)

// Policy runs an operation with exponential backoff and jitter:
//
//	delay_n = BaseDelay * 2^n * random(0.5, 1.5), capped at MaxDelay
//
// OverallTimeout bounds total wall-clock time across all attempts; exceeding
// it fails with *domain.TimeoutError regardless of remaining budget.
type Policy struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	OverallTimeout time.Duration

	// sleep and jitter are injectable for tests.
	sleep  func(context.Context, time.Duration) error
	jitter func() float64
}

// New builds a policy from config, hydrating zero values.
func New(settings domain.RetrySettings) Policy {
	p := Policy{
		MaxRetries:     settings.MaxRetries,
		BaseDelay:      time.Duration(settings.BaseDelayMS) * time.Millisecond,
		MaxDelay:       time.Duration(settings.MaxDelayMS) * time.Millisecond,
		OverallTimeout: time.Duration(settings.TimeoutSeconds) * time.Second,
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 200 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	return p
}

// Execute runs op until it succeeds, fails permanently, or exhausts
// MaxRetries, returning the last error. The context passed to op carries the
// overall deadline so in-flight provider calls are abandoned when it expires.
func (p Policy) Execute(ctx context.Context, op func(context.Context) error) error {
	start := time.Now()
	if p.OverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.OverallTimeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := p.wait(ctx, p.delay(attempt-1)); err != nil {
				return &domain.TimeoutError{Op: "retry backoff", Elapsed: time.Since(start), Err: lastErr}
			}
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !domain.IsRetryable(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			return &domain.TimeoutError{Op: "provider call", Elapsed: time.Since(start), Err: lastErr}
		}
	}
	return lastErr
}

func (p Policy) delay(n int) time.Duration {
	d := p.BaseDelay << uint(n)
	if d <= 0 || d > p.MaxDelay {
		d = p.MaxDelay
	}
	j := p.jitter
	if j == nil {
		j = rand.Float64
	}
	d = time.Duration(float64(d) * (0.5 + j()))
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func (p Policy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
