package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/archway-dev/archway/internal/domain"
)

func instantPolicy(maxRetries int) Policy {
	p := New(domain.RetrySettings{MaxRetries: maxRetries, BaseDelayMS: 1, MaxDelayMS: 4})
	p.sleep = func(context.Context, time.Duration) error { return nil }
	p.jitter = func() float64 { return 0.5 }
	return p
}

func TestExecuteRetriesTransientFailures(t *testing.T) {
	calls := 0
	op := func(context.Context) error {
		calls++
		if calls < 3 {
			return domain.NewTransientError("local", errors.New("connection reset"))
		}
		return nil
	}

	if err := instantPolicy(2).Execute(context.Background(), op); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteDoesNotRetryPermanentFailures(t *testing.T) {
	calls := 0
	permanent := domain.NewPermanentError("cloud", errors.New("invalid api key"))
	op := func(context.Context) error {
		calls++
		return permanent
	}

	err := instantPolicy(5).Execute(context.Background(), op)
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("permanent failure should be attempted once, got %d", calls)
	}
}

func TestExecuteRetriesRateLimitErrors(t *testing.T) {
	calls := 0
	op := func(context.Context) error {
		calls++
		if calls == 1 {
			return &domain.RateLimitError{Provider: "cloud", Limit: 10, Window: time.Minute}
		}
		return nil
	}

	if err := instantPolicy(1).Execute(context.Background(), op); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestExecuteReturnsLastErrorAfterExhaustion(t *testing.T) {
	calls := 0
	op := func(context.Context) error {
		calls++
		return domain.NewTransientError("local", errors.New("timeout"))
	}

	err := instantPolicy(2).Execute(context.Background(), op)
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected maxRetries+1 attempts, got %d", calls)
	}
}

func TestExecuteOverallTimeout(t *testing.T) {
	p := New(domain.RetrySettings{MaxRetries: 10, BaseDelayMS: 50, MaxDelayMS: 50, TimeoutSeconds: 1})
	p.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	p.jitter = func() float64 { return 0.5 }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Execute(ctx, func(context.Context) error {
		return domain.NewTransientError("local", errors.New("slow"))
	})
	var te *domain.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestDelayGrowsAndCaps(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 500 * time.Millisecond}
	p.jitter = func() float64 { return 0.5 } // multiplier of exactly 1

	if d := p.delay(0); d != 100*time.Millisecond {
		t.Fatalf("delay(0) = %v", d)
	}
	if d := p.delay(1); d != 200*time.Millisecond {
		t.Fatalf("delay(1) = %v", d)
	}
	if d := p.delay(4); d != 500*time.Millisecond {
		t.Fatalf("delay(4) should cap at MaxDelay, got %v", d)
	}
}
