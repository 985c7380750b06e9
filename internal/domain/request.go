// Package domain defines core business entities and value objects for Archway.
//
// The domain layer is independent of infrastructure concerns and represents
// pure business logic and data structures.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnalysisKind enumerates the supported analysis operations.
type AnalysisKind string

const (
	KindCodeAnalysis         AnalysisKind = "code-analysis"
	KindRefactorSuggestion   AnalysisKind = "refactor-suggestion"
	KindArchitectureAnalysis AnalysisKind = "architecture-analysis"
	KindCodeSearch           AnalysisKind = "code-search"
	KindSymbolLookup         AnalysisKind = "symbol-lookup"
)

// Valid reports whether the kind is one of the recognized analysis kinds.
func (k AnalysisKind) Valid() bool {
	switch k {
	case KindCodeAnalysis, KindRefactorSuggestion, KindArchitectureAnalysis, KindCodeSearch, KindSymbolLookup:
		return true
	}
	return false
}

// RequiredCapability maps the kind to the provider capability it needs.
func (k AnalysisKind) RequiredCapability() Capability {
	switch k {
	case KindRefactorSuggestion:
		return CapabilityRefactor
	case KindArchitectureAnalysis:
		return CapabilityExplainArchitecture
	case KindCodeSearch:
		return CapabilitySearch
	case KindSymbolLookup:
		return CapabilityDefinition
	default:
		return CapabilityAnalyze
	}
}

// NeedsDeepReasoning reports whether the kind must be routed to a
// deep-reasoning provider regardless of latency cost.
func (k AnalysisKind) NeedsDeepReasoning() bool {
	return k == KindRefactorSuggestion || k == KindArchitectureAnalysis
}

// AnalysisOptions carries the recognized per-request tuning parameters.
type AnalysisOptions struct {
	// Provider selects a provider by name, bypassing capability routing.
	Provider string
	// Model overrides the provider's configured model id.
	Model string
	// MaxOutputTokens bounds the generated payload size.
	MaxOutputTokens int
	// Creativity is the sampling temperature analog, clamped to [0, 1].
	Creativity float64
	// Timeout bounds the whole request including retries. Zero uses the
	// configured default.
	Timeout time.Duration
}

// AnalysisRequest is an immutable description of one analysis to perform.
// Construct it with NewAnalysisRequest so the id is assigned and the shape
// validated before it reaches the orchestrator.
type AnalysisRequest struct {
	ID      string
	Kind    AnalysisKind
	Targets []string
	Query   string
	Options AnalysisOptions
}

// NewAnalysisRequest validates the request shape and assigns a fresh id.
// Malformed shapes are programmer errors and are rejected here, before
// orchestration begins.
func NewAnalysisRequest(kind AnalysisKind, targets []string, query string, opts AnalysisOptions) (AnalysisRequest, error) {
	if !kind.Valid() {
		return AnalysisRequest{}, fmt.Errorf("unknown analysis kind %q", kind)
	}
	var cleaned []string
	for _, t := range targets {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	query = strings.TrimSpace(query)
	if len(cleaned) == 0 && query == "" {
		return AnalysisRequest{}, fmt.Errorf("analysis request needs a target file or a query")
	}
	if opts.Creativity < 0 {
		opts.Creativity = 0
	}
	if opts.Creativity > 1 {
		opts.Creativity = 1
	}
	return AnalysisRequest{
		ID:      uuid.NewString(),
		Kind:    kind,
		Targets: cleaned,
		Query:   query,
		Options: opts,
	}, nil
}
