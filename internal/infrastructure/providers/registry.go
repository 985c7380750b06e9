package providers

import (
	"sync"

	"github.com/archway-dev/archway/internal/domain"
	"github.com/archway-dev/archway/internal/ports"
)

type registration struct {
	provider      ports.Provider
	latencyRank   int
	deepReasoning bool
	capabilities  map[domain.Capability]bool
}

// Registry owns the provider handles. Handles never leave the registry's
// ownership; callers get the shared long-lived singletons.
type Registry struct {
	mu     sync.Mutex
	byName map[string]*registration
	order  []string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*registration)}
}

// Register adds a provider handle with its routing metadata. A lower latency
// rank is preferred during capability selection.
func (r *Registry) Register(p ports.Provider, latencyRank int, deepReasoning bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	caps := make(map[domain.Capability]bool)
	for _, c := range p.Capabilities() {
		caps[c] = true
	}
	if _, exists := r.byName[p.Name()]; !exists {
		r.order = append(r.order, p.Name())
	}
	r.byName[p.Name()] = &registration{
		provider:      p,
		latencyRank:   latencyRank,
		deepReasoning: deepReasoning,
		capabilities:  caps,
	}
}

// Get resolves an explicitly named provider.
func (r *Registry) Get(name string) (ports.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.byName[name]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return reg.provider, nil
}

// Select picks the fastest provider declaring the capability the kind needs.
// Kinds flagged for deep reasoning only consider deep-reasoning providers,
// regardless of latency cost.
func (r *Registry) Select(kind domain.AnalysisKind) (ports.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	capability := kind.RequiredCapability()
	needDeep := kind.NeedsDeepReasoning()

	var best *registration
	for _, name := range r.order {
		reg := r.byName[name]
		if !reg.capabilities[capability] {
			continue
		}
		if needDeep && !reg.deepReasoning {
			continue
		}
		if best == nil || reg.latencyRank < best.latencyRank {
			best = reg
		}
	}
	if best == nil {
		return nil, domain.ErrProviderNotFound
	}
	return best.provider, nil
}

// All returns the registered handles in registration order.
func (r *Registry) All() []ports.Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].provider)
	}
	return out
}

// CloseAll closes every handle, returning the first error.
func (r *Registry) CloseAll() error {
	var first error
	for _, p := range r.All() {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ ports.ProviderRegistry = (*Registry)(nil)
