package analyze

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/archway-dev/archway/internal/domain"
	"github.com/archway-dev/archway/internal/infrastructure/cache"
	"github.com/archway-dev/archway/internal/infrastructure/ratelimit"
	"github.com/archway-dev/archway/internal/pkg/logger"
	"github.com/archway-dev/archway/internal/pkg/retry"
	"github.com/archway-dev/archway/internal/ports"
)

type stubProvider struct {
	name  string
	calls int32
	fail  func(call int32) error
}

func (p *stubProvider) Name() string                      { return p.name }
func (p *stubProvider) Capabilities() []domain.Capability { return nil }
func (p *stubProvider) State() domain.ProviderState       { return domain.StateReady }
func (p *stubProvider) Initialize(context.Context) error  { return nil }
func (p *stubProvider) Close() error                      { return nil }

func (p *stubProvider) Analyze(_ context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	call := atomic.AddInt32(&p.calls, 1)
	if p.fail != nil {
		if err := p.fail(call); err != nil {
			return domain.AnalysisResult{}, err
		}
	}
	return domain.AnalysisResult{
		RequestID: req.ID,
		Provider:  p.name,
		Status:    domain.StatusSuccess,
		Sections:  []domain.Section{{Title: "Analysis", Body: "all good"}},
		CreatedAt: time.Now(),
	}, nil
}

type stubRegistry struct {
	providers map[string]ports.Provider
	selected  ports.Provider
}

func (r *stubRegistry) Get(name string) (ports.Provider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	return nil, domain.ErrProviderNotFound
}

func (r *stubRegistry) Select(domain.AnalysisKind) (ports.Provider, error) {
	if r.selected == nil {
		return nil, domain.ErrProviderNotFound
	}
	return r.selected, nil
}

func (r *stubRegistry) All() []ports.Provider { return nil }
func (r *stubRegistry) CloseAll() error       { return nil }

type recordingHistory struct {
	mu      sync.Mutex
	records []domain.HistoryRecord
	failAll bool
}

func (h *recordingHistory) Append(_ context.Context, rec domain.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failAll {
		return errors.New("disk full")
	}
	h.records = append(h.records, rec)
	return nil
}

func (h *recordingHistory) Get(context.Context, string) (domain.HistoryRecord, error) {
	return domain.HistoryRecord{}, domain.ErrNotFound
}
func (h *recordingHistory) List(context.Context, domain.HistoryFilter) ([]domain.HistoryRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.HistoryRecord(nil), h.records...), nil
}
func (h *recordingHistory) Delete(context.Context, string) error { return domain.ErrNotFound }
func (h *recordingHistory) Close() error                         { return nil }

func instantRetry(maxRetries int) retry.Policy {
	p := retry.New(domain.RetrySettings{MaxRetries: maxRetries, BaseDelayMS: 1, MaxDelayMS: 1})
	return p
}

func newTestService(t *testing.T, provider *stubProvider, history *recordingHistory) *Service {
	t.Helper()
	svc, err := NewService(Deps{
		Registry: &stubRegistry{selected: provider, providers: map[string]ports.Provider{provider.name: provider}},
		Cache:    cache.New(domain.CacheSettings{TTL: "1h", NegativeTTL: "5m"}),
		Limiter:  ratelimit.New(domain.RateLimitSettings{RequestsPerWindow: 100, WindowSeconds: 60}),
		Retry:    instantRetry(2),
		History:  history,
		Logger:   logger.NewStd(false),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func newRequest(t *testing.T, kind domain.AnalysisKind, opts domain.AnalysisOptions) domain.AnalysisRequest {
	t.Helper()
	req, err := domain.NewAnalysisRequest(kind, []string{"auth.py"}, "", opts)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestHandleEndToEndCachesAndPersists(t *testing.T) {
	provider := &stubProvider{name: "local"}
	history := &recordingHistory{}
	svc := newTestService(t, provider, history)
	ctx := context.Background()

	req := newRequest(t, domain.KindCodeAnalysis, domain.AnalysisOptions{})
	result, err := svc.Handle(ctx, req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.Status != domain.StatusSuccess || result.FromCache {
		t.Fatalf("unexpected first result %+v", result)
	}
	if atomic.LoadInt32(&provider.calls) != 1 {
		t.Fatalf("provider calls = %d, want 1", provider.calls)
	}

	// A second semantically identical request hits the cache: provider call
	// count is unchanged.
	again := newRequest(t, domain.KindCodeAnalysis, domain.AnalysisOptions{})
	cachedResult, err := svc.Handle(ctx, again)
	if err != nil {
		t.Fatalf("Handle (cached): %v", err)
	}
	if !cachedResult.FromCache {
		t.Fatal("second request should come from cache")
	}
	if atomic.LoadInt32(&provider.calls) != 1 {
		t.Fatalf("provider calls after cache hit = %d, want 1", provider.calls)
	}

	// Exactly one history record, carrying the analyzed file path.
	_ = svc.Close()
	records, _ := history.List(ctx, domain.HistoryFilter{})
	if len(records) != 1 {
		t.Fatalf("history records = %d, want 1", len(records))
	}
	if records[0].AnalysisID != req.ID || records[0].FilePaths[0] != "auth.py" {
		t.Fatalf("unexpected history record %+v", records[0])
	}
}

func TestHandleCoalescesConcurrentIdenticalRequests(t *testing.T) {
	release := make(chan struct{})
	provider := &stubProvider{name: "local", fail: func(int32) error {
		<-release
		return nil
	}}
	svc := newTestService(t, provider, &recordingHistory{})

	const n = 5
	var wg sync.WaitGroup
	results := make([]domain.AnalysisResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := newRequest(t, domain.KindCodeAnalysis, domain.AnalysisOptions{})
			results[i], _ = svc.Handle(context.Background(), req)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&provider.calls); got != 1 {
		t.Fatalf("provider calls = %d, want 1 for N concurrent identical requests", got)
	}
	for i := 0; i < n; i++ {
		if results[i].Status != domain.StatusSuccess {
			t.Fatalf("caller %d got %+v", i, results[i])
		}
	}
}

func TestHandleRetriesTransientThenSucceeds(t *testing.T) {
	provider := &stubProvider{name: "local", fail: func(call int32) error {
		if call <= 2 {
			return domain.NewTransientError("local", errors.New("blip"))
		}
		return nil
	}}
	svc := newTestService(t, provider, &recordingHistory{})

	result, err := svc.Handle(context.Background(), newRequest(t, domain.KindCodeAnalysis, domain.AnalysisOptions{}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.Status != domain.StatusSuccess {
		t.Fatalf("expected success after retries, got %+v", result)
	}
	if atomic.LoadInt32(&provider.calls) != 3 {
		t.Fatalf("provider calls = %d, want 3", provider.calls)
	}
}

func TestHandlePermanentFailureReturnsFailedResult(t *testing.T) {
	provider := &stubProvider{name: "cloud", fail: func(int32) error {
		return domain.NewPermanentError("cloud", errors.New("invalid api key"))
	}}
	svc := newTestService(t, provider, &recordingHistory{})

	result, err := svc.Handle(context.Background(), newRequest(t, domain.KindCodeAnalysis, domain.AnalysisOptions{}))
	if err != nil {
		t.Fatalf("Handle should not propagate provider errors: %v", err)
	}
	if result.Status != domain.StatusFailed || result.Provider != "cloud" {
		t.Fatalf("unexpected result %+v", result)
	}
	if atomic.LoadInt32(&provider.calls) != 1 {
		t.Fatalf("permanent failure should be attempted once, got %d", provider.calls)
	}
}

func TestHandleNegativeCachesFailures(t *testing.T) {
	provider := &stubProvider{name: "local", fail: func(int32) error {
		return domain.NewPermanentError("local", errors.New("bad request"))
	}}
	svc := newTestService(t, provider, &recordingHistory{})
	ctx := context.Background()

	if _, err := svc.Handle(ctx, newRequest(t, domain.KindCodeAnalysis, domain.AnalysisOptions{})); err != nil {
		t.Fatal(err)
	}
	result, err := svc.Handle(ctx, newRequest(t, domain.KindCodeAnalysis, domain.AnalysisOptions{}))
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != domain.StatusFailed {
		t.Fatalf("negative cache should return the recorded failure, got %+v", result)
	}
	if atomic.LoadInt32(&provider.calls) != 1 {
		t.Fatalf("provider calls = %d, want 1 inside the negative window", provider.calls)
	}
}

func TestHandleExplicitProviderSelection(t *testing.T) {
	fast := &stubProvider{name: "local"}
	deep := &stubProvider{name: "cloud"}
	history := &recordingHistory{}
	svc, err := NewService(Deps{
		Registry: &stubRegistry{selected: fast, providers: map[string]ports.Provider{"local": fast, "cloud": deep}},
		Cache:    cache.New(domain.CacheSettings{TTL: "1h"}),
		Limiter:  ratelimit.New(domain.RateLimitSettings{RequestsPerWindow: 100, WindowSeconds: 60}),
		Retry:    instantRetry(1),
		History:  history,
		Logger:   logger.NewStd(false),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	req := newRequest(t, domain.KindCodeAnalysis, domain.AnalysisOptions{Provider: "cloud"})
	result, err := svc.Handle(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.Provider != "cloud" {
		t.Fatalf("explicit selection ignored, provider = %s", result.Provider)
	}

	missing := newRequest(t, domain.KindCodeAnalysis, domain.AnalysisOptions{Provider: "nope"})
	result, err = svc.Handle(context.Background(), missing)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != domain.StatusFailed {
		t.Fatalf("unregistered provider should yield a failed result, got %+v", result)
	}
}

func TestHandleRateLimitExhaustionFails(t *testing.T) {
	provider := &stubProvider{name: "local"}
	svc, err := NewService(Deps{
		Registry: &stubRegistry{selected: provider},
		Cache:    cache.New(domain.CacheSettings{TTL: "1h"}),
		Limiter:  ratelimit.New(domain.RateLimitSettings{RequestsPerWindow: 1, WindowSeconds: 3600}),
		Retry:    instantRetry(0),
		History:  &recordingHistory{},
		Logger:   logger.NewStd(false),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	ctx := context.Background()

	first := newRequest(t, domain.KindCodeAnalysis, domain.AnalysisOptions{})
	if _, err := svc.Handle(ctx, first); err != nil {
		t.Fatal(err)
	}

	// A different request against the spent window fails without reaching
	// the provider.
	other, err := domain.NewAnalysisRequest(domain.KindCodeAnalysis, []string{"db.py"}, "", domain.AnalysisOptions{})
	if err != nil {
		t.Fatal(err)
	}
	result, err := svc.Handle(ctx, other)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != domain.StatusFailed {
		t.Fatalf("expected rate-limited failure, got %+v", result)
	}
	if atomic.LoadInt32(&provider.calls) != 1 {
		t.Fatalf("provider calls = %d, want 1", provider.calls)
	}
}

func TestHandleDegradesWhenHistoryKeepsFailing(t *testing.T) {
	provider := &stubProvider{name: "local"}
	history := &recordingHistory{failAll: true}
	svc := newTestService(t, provider, history)

	result, err := svc.Handle(context.Background(), newRequest(t, domain.KindCodeAnalysis, domain.AnalysisOptions{}))
	if err != nil {
		t.Fatalf("history faults must not fail the request: %v", err)
	}
	if result.Status != domain.StatusSuccess {
		t.Fatalf("unexpected result %+v", result)
	}
	_ = svc.Close()
}
