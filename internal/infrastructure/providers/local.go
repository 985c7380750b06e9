package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/archway-dev/archway/internal/domain"
	"github.com/archway-dev/archway/internal/ports"
)

// LocalProvider wraps a Code Llama style text-generation endpoint running on
// the developer's machine. It is the low-latency default for plain analysis.
type LocalProvider struct {
	lc     lifecycle
	def    domain.ProviderDefinition
	client *http.Client
}

type localGenerateRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		MaxNewTokens int     `json:"max_new_tokens"`
		Temperature  float64 `json:"temperature"`
	} `json:"parameters"`
}

type localGenerateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// NewLocal builds the local model provider.
func NewLocal(def domain.ProviderDefinition, client *http.Client) *LocalProvider {
	return &LocalProvider{def: def, client: client}
}

func (p *LocalProvider) Name() string { return p.def.Name }

func (p *LocalProvider) Capabilities() []domain.Capability {
	return []domain.Capability{domain.CapabilityAnalyze, domain.CapabilityRefactor}
}

func (p *LocalProvider) State() domain.ProviderState { return p.lc.State() }

// Initialize probes the service health endpoint before first use.
func (p *LocalProvider) Initialize(ctx context.Context) error {
	proceed, err := p.lc.beginInit()
	if err != nil {
		return &domain.InitializationError{Provider: p.def.Name, Err: err}
	}
	if !proceed {
		return nil
	}

	healthURL := strings.Replace(p.endpoint(), "/generate", "/health", 1)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		p.lc.finishInit(false)
		return &domain.InitializationError{Provider: p.def.Name, Err: err}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.lc.finishInit(false)
		return &domain.InitializationError{Provider: p.def.Name, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		p.lc.finishInit(false)
		return &domain.InitializationError{Provider: p.def.Name, Err: fmt.Errorf("health probe returned %s", resp.Status)}
	}

	p.lc.finishInit(true)
	return nil
}

// Analyze runs one generation call. Failures are classified transient or
// permanent for the retry policy.
func (p *LocalProvider) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	if err := p.ensureReady(ctx); err != nil {
		return domain.AnalysisResult{}, err
	}
	if err := p.lc.beginCall(); err != nil {
		return domain.AnalysisResult{}, domain.NewPermanentError(p.def.Name, err)
	}
	defer p.lc.endCall()
	start := time.Now()

	payload := localGenerateRequest{Inputs: buildPrompt(req)}
	payload.Parameters.MaxNewTokens = valueOrDefaultInt(req.Options.MaxOutputTokens, valueOrDefaultInt(p.def.MaxTokens, 512))
	payload.Parameters.Temperature = req.Options.Creativity

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.AnalysisResult{}, domain.NewPermanentError(p.def.Name, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(body))
	if err != nil {
		return domain.AnalysisResult{}, domain.NewPermanentError(p.def.Name, err)
	}
	httpReq.Header.Set("content-type", "application/json")

	resp, err := p.client.Do(httpReq)
	if cerr := classifyHTTP(p.def.Name, resp, err); cerr != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return domain.AnalysisResult{}, cerr
	}
	defer resp.Body.Close()

	var decoded localGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.AnalysisResult{}, domain.NewTransientError(p.def.Name, err)
	}
	if decoded.GeneratedText == "" {
		return domain.AnalysisResult{}, domain.NewPermanentError(p.def.Name, fmt.Errorf("empty generation"))
	}

	sections := []domain.Section{{Title: sectionTitle(req.Kind), Body: strings.TrimSpace(decoded.GeneratedText)}}
	return newResult(req, p.def.Name, sections, start), nil
}

// Close is idempotent.
func (p *LocalProvider) Close() error {
	p.lc.close()
	return nil
}

func (p *LocalProvider) ensureReady(ctx context.Context) error {
	switch p.lc.State() {
	case domain.StateReady, domain.StateProcessing:
		return nil
	}
	return p.Initialize(ctx)
}

func (p *LocalProvider) endpoint() string {
	return valueOrDefault(p.def.Endpoint, "http://localhost:8080/generate")
}

var _ ports.Provider = (*LocalProvider)(nil)
