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

// maxSearchSections caps how many matches are rendered into the payload.
const maxSearchSections = 20

// SearchProvider wraps a Sourcegraph instance's GraphQL API for code search
// and symbol lookup.
type SearchProvider struct {
	lc     lifecycle
	def    domain.ProviderDefinition
	client *http.Client
}

type graphqlRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

type graphqlResponse struct {
	Data struct {
		Search struct {
			Results struct {
				Results []struct {
					File struct {
						Path string `json:"path"`
					} `json:"file"`
					LineMatches []struct {
						Preview    string `json:"preview"`
						LineNumber int    `json:"lineNumber"`
					} `json:"lineMatches"`
				} `json:"results"`
			} `json:"results"`
		} `json:"search"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

const searchQuery = `query ($query: String!) {
  search(query: $query) {
    results {
      results {
        ... on FileMatch {
          file { path }
          lineMatches { preview lineNumber }
        }
      }
    }
  }
}`

// NewSearch builds the code-search provider.
func NewSearch(def domain.ProviderDefinition, client *http.Client) *SearchProvider {
	return &SearchProvider{def: def, client: client}
}

func (p *SearchProvider) Name() string { return p.def.Name }

func (p *SearchProvider) Capabilities() []domain.Capability {
	return []domain.Capability{
		domain.CapabilitySearch,
		domain.CapabilityDefinition,
		domain.CapabilityReferences,
	}
}

func (p *SearchProvider) State() domain.ProviderState { return p.lc.State() }

// Initialize probes the GraphQL endpoint before first use.
func (p *SearchProvider) Initialize(ctx context.Context) error {
	proceed, err := p.lc.beginInit()
	if err != nil {
		return &domain.InitializationError{Provider: p.def.Name, Err: err}
	}
	if !proceed {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.graphqlURL(), nil)
	if err != nil {
		p.lc.finishInit(false)
		return &domain.InitializationError{Provider: p.def.Name, Err: err}
	}
	p.setHeaders(req)
	resp, err := p.client.Do(req)
	if err != nil {
		p.lc.finishInit(false)
		return &domain.InitializationError{Provider: p.def.Name, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		p.lc.finishInit(false)
		return &domain.InitializationError{Provider: p.def.Name, Err: fmt.Errorf("endpoint returned %s", resp.Status)}
	}

	p.lc.finishInit(true)
	return nil
}

// Analyze executes a search or symbol-lookup query.
func (p *SearchProvider) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	if err := p.ensureReady(ctx); err != nil {
		return domain.AnalysisResult{}, err
	}
	if err := p.lc.beginCall(); err != nil {
		return domain.AnalysisResult{}, domain.NewPermanentError(p.def.Name, err)
	}
	defer p.lc.endCall()
	start := time.Now()

	body, err := json.Marshal(graphqlRequest{
		Query:     searchQuery,
		Variables: map[string]string{"query": p.searchTerm(req)},
	})
	if err != nil {
		return domain.AnalysisResult{}, domain.NewPermanentError(p.def.Name, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.graphqlURL(), bytes.NewReader(body))
	if err != nil {
		return domain.AnalysisResult{}, domain.NewPermanentError(p.def.Name, err)
	}
	p.setHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if cerr := classifyHTTP(p.def.Name, resp, err); cerr != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return domain.AnalysisResult{}, cerr
	}
	defer resp.Body.Close()

	var decoded graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.AnalysisResult{}, domain.NewTransientError(p.def.Name, err)
	}
	if len(decoded.Errors) > 0 {
		return domain.AnalysisResult{}, domain.NewPermanentError(p.def.Name, fmt.Errorf("graphql: %s", decoded.Errors[0].Message))
	}

	return newResult(req, p.def.Name, p.sections(req, decoded), start), nil
}

// Close is idempotent.
func (p *SearchProvider) Close() error {
	p.lc.close()
	return nil
}

func (p *SearchProvider) sections(req domain.AnalysisRequest, decoded graphqlResponse) []domain.Section {
	var sections []domain.Section
	for _, match := range decoded.Data.Search.Results.Results {
		for _, line := range match.LineMatches {
			sections = append(sections, domain.Section{
				Title: fmt.Sprintf("%s:%d", match.File.Path, line.LineNumber+1),
				Body:  strings.TrimSpace(line.Preview),
			})
			if len(sections) == maxSearchSections {
				return sections
			}
		}
	}
	if len(sections) == 0 {
		sections = append(sections, domain.Section{Title: sectionTitle(req.Kind), Body: "no matches"})
	}
	return sections
}

// searchTerm maps the request kind onto Sourcegraph query syntax.
func (p *SearchProvider) searchTerm(req domain.AnalysisRequest) string {
	switch req.Kind {
	case domain.KindSymbolLookup:
		return "type:symbol " + req.Query
	default:
		return req.Query
	}
}

func (p *SearchProvider) setHeaders(req *http.Request) {
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")
	if token := resolveAuth(p.def.AuthEnvVar, "SOURCEGRAPH_TOKEN"); token != "" {
		req.Header.Set("authorization", "token "+token)
	}
}

func (p *SearchProvider) graphqlURL() string {
	base := valueOrDefault(p.def.Endpoint, "http://localhost:7080")
	return strings.TrimRight(base, "/") + "/.api/graphql"
}

func (p *SearchProvider) ensureReady(ctx context.Context) error {
	switch p.lc.State() {
	case domain.StateReady, domain.StateProcessing:
		return nil
	}
	return p.Initialize(ctx)
}

var _ ports.Provider = (*SearchProvider)(nil)
