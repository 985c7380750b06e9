// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and
// external adapters (infrastructure). Following the Ports and Adapters
// (Hexagonal) pattern, these interfaces allow the application to remain
// independent of specific implementations like databases, HTTP clients, or
// CLI frameworks.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., Provider, HistoryStore)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"

	"github.com/archway-dev/archway/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.archway/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// Provider is one analysis backend (local model, cloud model, code-search
// service). Implementations are long-lived singletons, safe for concurrent
// Analyze calls; lifecycle transitions are internal to the handle.
type Provider interface {
	Name() string
	Capabilities() []domain.Capability
	State() domain.ProviderState

	// Initialize moves the provider toward Ready. It fails with
	// *domain.InitializationError on missing credentials or an unreachable
	// endpoint, leaving the provider in the Error state until called again.
	Initialize(context.Context) error

	// Analyze performs one request. Failures are classified
	// *domain.ProviderError values (transient or permanent); the
	// classification drives the retry policy.
	Analyze(context.Context, domain.AnalysisRequest) (domain.AnalysisResult, error)

	// Close is idempotent and always safe to call.
	Close() error
}

// ProviderRegistry owns the provider handles and performs selection.
type ProviderRegistry interface {
	// Get resolves an explicitly named provider, failing with
	// domain.ErrProviderNotFound when absent.
	Get(name string) (Provider, error)
	// Select picks a provider for the kind: the fastest one declaring the
	// required capability, unless the kind needs deep reasoning, in which
	// case the deep-reasoning provider is mandatory.
	Select(kind domain.AnalysisKind) (Provider, error)
	All() []Provider
	CloseAll() error
}

// ResultCache coalesces and memoizes analysis computations per key.
type ResultCache interface {
	// GetOrCompute returns the cached result for key when fresh, otherwise
	// claims the single in-flight slot and runs compute. Concurrent callers
	// for the same key await that one computation. Failed computations are
	// negative-cached for a short TTL and the error is propagated to every
	// waiter. The bool reports whether the value came from cache.
	GetOrCompute(ctx context.Context, key string, compute func(context.Context) (domain.AnalysisResult, error)) (domain.AnalysisResult, bool, error)
	Len() int
	Clear()
}

// RateLimiter admits or rejects a call against the provider's window.
// A nil return guarantees the call is counted; rejection is immediate
// (*domain.RateLimitError), never silent queuing.
type RateLimiter interface {
	Admit(providerName string) error
}

// HistoryStore is the durable append-only log of completed analyses.
type HistoryStore interface {
	// Append fails only on an unrecoverable storage fault.
	Append(ctx context.Context, record domain.HistoryRecord) error
	// Get fails with domain.ErrNotFound for unknown or deleted ids.
	Get(ctx context.Context, id string) (domain.HistoryRecord, error)
	// List returns records ordered by timestamp descending, excluding
	// tombstoned ones.
	List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryRecord, error)
	// Delete tombstones a record, failing with domain.ErrNotFound when the
	// id is unknown or already deleted.
	Delete(ctx context.Context, id string) error
	Close() error
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
