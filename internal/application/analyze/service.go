// Package analyze implements the orchestration use case: cache check, rate
// limit admission, provider call with retry, and durable history persistence.
package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/archway-dev/archway/internal/domain"
	"github.com/archway-dev/archway/internal/pkg/fingerprint"
	"github.com/archway-dev/archway/internal/pkg/retry"
	"github.com/archway-dev/archway/internal/ports"
)

const (
	persistQueueSize = 64
	persistAttempts  = 3
	persistBackoff   = 250 * time.Millisecond
)

// Deps bundles the collaborators the orchestrator needs.
type Deps struct {
	Registry ports.ProviderRegistry
	Cache    ports.ResultCache
	Limiter  ports.RateLimiter
	Retry    retry.Policy
	History  ports.HistoryStore
	Logger   ports.Logger

	// DefaultTimeout bounds requests that do not carry their own.
	DefaultTimeout time.Duration
}

// Service orchestrates the analysis lifecycle end-to-end. It serves many
// concurrent Handle invocations; per-key serialization lives in the cache and
// per-provider admission in the rate limiter.
type Service struct {
	deps Deps

	persistCh chan domain.HistoryRecord
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewService wires the orchestrator and starts its persistence worker.
func NewService(deps Deps) (*Service, error) {
	if deps.Registry == nil || deps.Cache == nil || deps.Limiter == nil ||
		deps.History == nil || deps.Logger == nil {
		return nil, errors.New("analyze.Service dependencies not satisfied")
	}
	s := &Service{
		deps:      deps,
		persistCh: make(chan domain.HistoryRecord, persistQueueSize),
	}
	s.wg.Add(1)
	go s.persistLoop()
	return s, nil
}

// Handle processes one analysis request. Terminal provider failures come back
// as a failed-status result, not an error; the error return is reserved for
// malformed requests and caller cancellation.
func (s *Service) Handle(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	if !req.Kind.Valid() || req.ID == "" {
		return domain.AnalysisResult{}, fmt.Errorf("malformed analysis request: %+v", req)
	}

	timeout := req.Options.Timeout
	if timeout == 0 {
		timeout = s.deps.DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	key := fingerprint.Key(req)
	s.deps.Logger.Debug("handling analysis request", map[string]interface{}{
		"id":   req.ID,
		"kind": string(req.Kind),
		"key":  key,
	})

	result, cached, err := s.deps.Cache.GetOrCompute(ctx, key, s.computeFn(req))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.AnalysisResult{}, err
		}
		s.deps.Logger.Warn("analysis failed", map[string]interface{}{
			"id":    req.ID,
			"error": err.Error(),
		})
		return domain.FailedResult(req, providerNameFrom(err), err), nil
	}

	if !cached {
		s.submitHistory(req, result)
	}
	result.FromCache = cached
	return result, nil
}

// computeFn builds the cache miss path: select provider, admit against the
// rate limit, call with retry.
func (s *Service) computeFn(req domain.AnalysisRequest) func(context.Context) (domain.AnalysisResult, error) {
	return func(ctx context.Context) (domain.AnalysisResult, error) {
		provider, err := s.selectProvider(req)
		if err != nil {
			return domain.AnalysisResult{}, err
		}

		var result domain.AnalysisResult
		op := func(ctx context.Context) error {
			if err := s.deps.Limiter.Admit(provider.Name()); err != nil {
				return err
			}
			r, err := provider.Analyze(ctx, req)
			if err != nil {
				return err
			}
			result = r
			return nil
		}
		if err := s.deps.Retry.Execute(ctx, op); err != nil {
			return domain.AnalysisResult{}, err
		}
		return result, nil
	}
}

func (s *Service) selectProvider(req domain.AnalysisRequest) (ports.Provider, error) {
	if name := req.Options.Provider; name != "" {
		return s.deps.Registry.Get(name)
	}
	return s.deps.Registry.Select(req.Kind)
}

// submitHistory queues the completed analysis for at-least-once persistence.
// The queue is drained on Close, so an accepted record is never dropped
// silently; only repeated storage faults degrade to a logged loss.
func (s *Service) submitHistory(req domain.AnalysisRequest, result domain.AnalysisResult) {
	if !result.Succeeded() {
		return
	}
	payload, err := json.Marshal(result.Sections)
	if err != nil {
		s.deps.Logger.Error("encode history payload", err, map[string]interface{}{"id": req.ID})
		return
	}
	s.persistCh <- domain.HistoryRecord{
		AnalysisID: req.ID,
		FilePaths:  fingerprint.NormalizeTargets(req.Targets),
		Kind:       req.Kind,
		Timestamp:  result.CreatedAt,
		Summary:    result.Summary(),
		Payload:    string(payload),
	}
}

func (s *Service) persistLoop() {
	defer s.wg.Done()
	for record := range s.persistCh {
		var err error
		for attempt := 1; attempt <= persistAttempts; attempt++ {
			if err = s.deps.History.Append(context.Background(), record); err == nil {
				break
			}
			time.Sleep(persistBackoff * time.Duration(attempt))
		}
		if err != nil {
			// The answer was already returned to the caller; availability
			// wins over audit completeness.
			s.deps.Logger.Error("history append failed", err, map[string]interface{}{
				"id": record.AnalysisID,
			})
		}
	}
}

// Close drains the persistence queue and stops the worker.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		close(s.persistCh)
	})
	s.wg.Wait()
	return nil
}

// providerNameFrom recovers the provider name for failed-result reporting.
func providerNameFrom(err error) string {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return pe.Provider
	}
	var ie *domain.InitializationError
	if errors.As(err, &ie) {
		return ie.Provider
	}
	var rle *domain.RateLimitError
	if errors.As(err, &rle) {
		return rle.Provider
	}
	return ""
}
