package ratelimit

import (
	"errors"
	"testing"
	"time"

	"github.com/archway-dev/archway/internal/domain"
)

func TestAdmitRejectsBeyondLimit(t *testing.T) {
	l := New(domain.RateLimitSettings{RequestsPerWindow: 3, WindowSeconds: 60})

	for i := 0; i < 3; i++ {
		if err := l.Admit("cloud"); err != nil {
			t.Fatalf("admission %d failed: %v", i+1, err)
		}
	}
	err := l.Admit("cloud")
	var rle *domain.RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if rle.Provider != "cloud" || rle.Limit != 3 {
		t.Fatalf("unexpected error details: %+v", rle)
	}
}

func TestAdmitCountsProvidersIndependently(t *testing.T) {
	l := New(domain.RateLimitSettings{RequestsPerWindow: 1, WindowSeconds: 60})

	if err := l.Admit("local"); err != nil {
		t.Fatal(err)
	}
	if err := l.Admit("cloud"); err != nil {
		t.Fatalf("other provider should have its own window: %v", err)
	}
	if err := l.Admit("local"); err == nil {
		t.Fatal("second local admission should be rejected")
	}
}

func TestAdmitResetsAfterWindowElapses(t *testing.T) {
	l := New(domain.RateLimitSettings{RequestsPerWindow: 1, WindowSeconds: 60})
	current := time.Now()
	l.now = func() time.Time { return current }

	if err := l.Admit("local"); err != nil {
		t.Fatal(err)
	}
	if err := l.Admit("local"); err == nil {
		t.Fatal("window budget should be exhausted")
	}

	current = current.Add(61 * time.Second)
	if err := l.Admit("local"); err != nil {
		t.Fatalf("fresh window should admit: %v", err)
	}
}

func TestAdmitPerProviderOverride(t *testing.T) {
	l := New(domain.RateLimitSettings{
		RequestsPerWindow: 10,
		WindowSeconds:     60,
		PerProvider:       map[string]int{"cloud": 1},
	})

	if err := l.Admit("cloud"); err != nil {
		t.Fatal(err)
	}
	if err := l.Admit("cloud"); err == nil {
		t.Fatal("override limit of 1 should reject the second call")
	}
	for i := 0; i < 10; i++ {
		if err := l.Admit("local"); err != nil {
			t.Fatalf("default limit should allow call %d: %v", i+1, err)
		}
	}
}
