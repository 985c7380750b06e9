package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/archway-dev/archway/internal/domain"
	"github.com/archway-dev/archway/internal/ports"
)

// CloudProvider wraps an OpenAI-compatible chat-completions endpoint. It is
// the deep-reasoning backend: slower and costlier than the local model, but
// mandatory for refactoring and architecture kinds.
type CloudProvider struct {
	lc     lifecycle
	def    domain.ProviderDefinition
	client *http.Client
}

// NewCloud builds the cloud model provider.
func NewCloud(def domain.ProviderDefinition, client *http.Client) *CloudProvider {
	return &CloudProvider{def: def, client: client}
}

func (p *CloudProvider) Name() string { return p.def.Name }

func (p *CloudProvider) Capabilities() []domain.Capability {
	return []domain.Capability{
		domain.CapabilityAnalyze,
		domain.CapabilityRefactor,
		domain.CapabilityExplainArchitecture,
	}
}

func (p *CloudProvider) State() domain.ProviderState { return p.lc.State() }

// Initialize verifies credentials are present. Missing credentials leave the
// handle in the Error state; nothing is sent over the wire yet.
func (p *CloudProvider) Initialize(ctx context.Context) error {
	proceed, err := p.lc.beginInit()
	if err != nil {
		return &domain.InitializationError{Provider: p.def.Name, Err: err}
	}
	if !proceed {
		return nil
	}

	if p.apiKey() == "" {
		p.lc.finishInit(false)
		return &domain.InitializationError{
			Provider: p.def.Name,
			Err:      fmt.Errorf("missing credentials: set %s", valueOrDefault(p.def.AuthEnvVar, "OPENAI_API_KEY")),
		}
	}

	p.lc.finishInit(true)
	return nil
}

// Analyze runs one chat-completion call.
func (p *CloudProvider) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	if err := p.ensureReady(ctx); err != nil {
		return domain.AnalysisResult{}, err
	}
	if err := p.lc.beginCall(); err != nil {
		return domain.AnalysisResult{}, domain.NewPermanentError(p.def.Name, err)
	}
	defer p.lc.endCall()
	start := time.Now()

	payload := chatCompletionRequest{
		Model: valueOrDefault(req.Options.Model, valueOrDefault(p.def.ModelID, "o1")),
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
		MaxTokens:   valueOrDefaultInt(req.Options.MaxOutputTokens, valueOrDefaultInt(p.def.MaxTokens, 2048)),
		Temperature: req.Options.Creativity,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.AnalysisResult{}, domain.NewPermanentError(p.def.Name, err)
	}

	endpoint := valueOrDefault(p.def.Endpoint, "https://api.openai.com/v1/chat/completions")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.AnalysisResult{}, domain.NewPermanentError(p.def.Name, err)
	}
	httpReq.Header.Set("authorization", "Bearer "+p.apiKey())
	httpReq.Header.Set("content-type", "application/json")

	resp, err := p.client.Do(httpReq)
	if cerr := classifyHTTP(p.def.Name, resp, err); cerr != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return domain.AnalysisResult{}, cerr
	}
	defer resp.Body.Close()

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.AnalysisResult{}, domain.NewTransientError(p.def.Name, err)
	}
	content := decoded.FirstMessage()
	if content == "" {
		return domain.AnalysisResult{}, domain.NewPermanentError(p.def.Name, fmt.Errorf("empty completion"))
	}

	sections := []domain.Section{{Title: sectionTitle(req.Kind), Body: content}}
	return newResult(req, p.def.Name, sections, start), nil
}

// Close is idempotent.
func (p *CloudProvider) Close() error {
	p.lc.close()
	return nil
}

func (p *CloudProvider) ensureReady(ctx context.Context) error {
	switch p.lc.State() {
	case domain.StateReady, domain.StateProcessing:
		return nil
	}
	return p.Initialize(ctx)
}

func (p *CloudProvider) apiKey() string {
	return resolveAuth(p.def.AuthEnvVar, "OPENAI_API_KEY")
}

var _ ports.Provider = (*CloudProvider)(nil)
