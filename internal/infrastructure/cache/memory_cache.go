// Package cache implements the in-process result cache with single-flight
// computation per key, TTL staleness, negative caching of failures, and LRU
// eviction.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/archway-dev/archway/internal/domain"
	"github.com/archway-dev/archway/internal/ports"
)

// EntryState is the lifecycle of one cache slot.
//
// Empty -> Pending -> Valid | Invalid; Valid -> Stale (ttl elapsed) -> Pending.
// Every write goes through Pending first; at most one Pending computation may
// exist per key.
type EntryState int

const (
	StateEmpty EntryState = iota
	StatePending
	StateValid
	StateStale
	StateInvalid
)

func (s EntryState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateValid:
		return "valid"
	case StateStale:
		return "stale"
	case StateInvalid:
		return "invalid"
	default:
		return "empty"
	}
}

type entry struct {
	key       string
	state     EntryState
	value     domain.AnalysisResult
	err       error
	createdAt time.Time
	done      chan struct{} // closed when a Pending computation settles
	elem      *list.Element
}

// MemoryCache is the only globally shared mutable structure besides the rate
// limiter's counters. All state is guarded by mu; compute functions run
// outside the lock so distinct keys proceed fully in parallel.
type MemoryCache struct {
	mu          sync.Mutex
	entries     map[string]*entry
	lru         *list.List // front = most recently used
	ttl         time.Duration
	negativeTTL time.Duration
	maxEntries  int
	now         func() time.Time
}

// New builds a cache from config, hydrating zero values. The negative TTL is
// configured independently of the positive one and defaults to a fraction of it.
func New(settings domain.CacheSettings) *MemoryCache {
	ttl := parseTTL(settings.TTL, time.Hour)
	negative := parseTTL(settings.NegativeTTL, ttl/10)
	max := settings.MaxEntries
	if max <= 0 {
		max = 256
	}
	return &MemoryCache{
		entries:     make(map[string]*entry),
		lru:         list.New(),
		ttl:         ttl,
		negativeTTL: negative,
		maxEntries:  max,
		now:         time.Now,
	}
}

// GetOrCompute implements ports.ResultCache.
//
// A fresh Valid entry is returned without invoking compute. Otherwise the
// caller atomically claims the Pending slot and computes; concurrent callers
// for the same key await the in-flight computation and share its outcome.
// Failures are stored as Invalid with the short negative TTL and the error is
// propagated to all waiters.
func (c *MemoryCache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (domain.AnalysisResult, error)) (domain.AnalysisResult, bool, error) {
	for {
		c.mu.Lock()
		e, ok := c.entries[key]
		now := c.now()

		if ok && e.state == StatePending {
			done := e.done
			c.mu.Unlock()
			select {
			case <-done:
				// The flight settled; re-read the slot.
				continue
			case <-ctx.Done():
				return domain.AnalysisResult{}, false, ctx.Err()
			}
		}

		if ok && e.state == StateValid && now.Sub(e.createdAt) <= c.ttl {
			c.lru.MoveToFront(e.elem)
			value := e.value
			c.mu.Unlock()
			return value, true, nil
		}

		if ok && e.state == StateInvalid && now.Sub(e.createdAt) <= c.negativeTTL {
			err := e.err
			c.mu.Unlock()
			return domain.AnalysisResult{}, true, err
		}

		// Empty, Stale, or an expired Invalid entry: claim the Pending slot.
		e = c.claim(key, e, now)
		c.mu.Unlock()

		value, err := compute(ctx)

		c.mu.Lock()
		if err != nil {
			e.state = StateInvalid
			e.err = err
		} else {
			e.state = StateValid
			e.value = value
			e.err = nil
		}
		e.createdAt = c.now()
		close(e.done)
		c.mu.Unlock()

		if err != nil {
			return domain.AnalysisResult{}, false, err
		}
		return value, false, nil
	}
}

// claim installs a Pending entry for key, reusing the slot when one exists.
// Called with mu held.
func (c *MemoryCache) claim(key string, prev *entry, now time.Time) *entry {
	e := &entry{key: key, state: StatePending, createdAt: now, done: make(chan struct{})}
	if prev != nil {
		e.elem = prev.elem
		e.elem.Value = e
		c.lru.MoveToFront(e.elem)
	} else {
		e.elem = c.lru.PushFront(e)
	}
	c.entries[key] = e
	c.evictExcess()
	return e
}

// evictExcess drops least-recently-used settled entries beyond maxEntries.
// Pending entries are never evicted; their flight must settle first.
func (c *MemoryCache) evictExcess() {
	for c.lru.Len() > c.maxEntries {
		evicted := false
		for el := c.lru.Back(); el != nil; el = el.Prev() {
			e := el.Value.(*entry)
			if e.state == StatePending {
				continue
			}
			c.lru.Remove(el)
			delete(c.entries, e.key)
			evicted = true
			break
		}
		if !evicted {
			return
		}
	}
}

// State reports the observable lifecycle state for key. A Valid entry past
// its TTL reads as Stale, an Invalid one past the negative TTL as Empty.
func (c *MemoryCache) State(key string) EntryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return StateEmpty
	}
	switch e.state {
	case StateValid:
		if c.now().Sub(e.createdAt) > c.ttl {
			return StateStale
		}
	case StateInvalid:
		if c.now().Sub(e.createdAt) > c.negativeTTL {
			return StateEmpty
		}
	}
	return e.state
}

// Len reports the number of resident entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every settled entry. In-flight computations keep their slots.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if e.state == StatePending {
			continue
		}
		c.lru.Remove(e.elem)
		delete(c.entries, key)
	}
}

func parseTTL(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return def
}

var _ ports.ResultCache = (*MemoryCache)(nil)
