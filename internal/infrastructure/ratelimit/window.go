// Package ratelimit implements fixed-window admission control per provider.
package ratelimit

import (
	"sync"
	"time"

	"github.com/archway-dev/archway/internal/domain"
	"github.com/archway-dev/archway/internal/ports"
)

type window struct {
	start time.Time
	count int
}

// WindowLimiter counts admissions per provider inside a fixed window. When
// the window's budget is spent, Admit rejects immediately with
// *domain.RateLimitError; callers apply the retry policy's backoff, the
// limiter itself never queues.
type WindowLimiter struct {
	mu          sync.Mutex
	windowSize  time.Duration
	limit       int
	perProvider map[string]int
	counters    map[string]*window
	now         func() time.Time
}

// New builds a limiter from config, hydrating zero values.
func New(settings domain.RateLimitSettings) *WindowLimiter {
	size := time.Duration(settings.WindowSeconds) * time.Second
	if size <= 0 {
		size = time.Minute
	}
	limit := settings.RequestsPerWindow
	if limit <= 0 {
		limit = 60
	}
	return &WindowLimiter{
		windowSize:  size,
		limit:       limit,
		perProvider: settings.PerProvider,
		counters:    make(map[string]*window),
		now:         time.Now,
	}
}

// Admit counts one call against the provider's current window, or rejects it.
// A nil return guarantees the call has been counted.
func (l *WindowLimiter) Admit(providerName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.counters[providerName]
	if w == nil || now.Sub(w.start) >= l.windowSize {
		w = &window{start: now}
		l.counters[providerName] = w
	}

	limit := l.limitFor(providerName)
	if w.count >= limit {
		return &domain.RateLimitError{Provider: providerName, Limit: limit, Window: l.windowSize}
	}
	w.count++
	return nil
}

func (l *WindowLimiter) limitFor(providerName string) int {
	if override, ok := l.perProvider[providerName]; ok && override > 0 {
		return override
	}
	return l.limit
}

var _ ports.RateLimiter = (*WindowLimiter)(nil)
