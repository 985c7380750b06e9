package providers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/archway-dev/archway/internal/domain"
	"github.com/archway-dev/archway/internal/ports"
)

// Factory builds provider handles from config definitions, sharing one HTTP
// client across backends for connection pooling.
type Factory struct {
	httpClient *http.Client
}

// NewFactory creates a factory with a pooled HTTP client.
func NewFactory() *Factory {
	return &Factory{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// BuildRegistry constructs and registers one handle per definition.
func (f *Factory) BuildRegistry(defs []domain.ProviderDefinition) (*Registry, error) {
	registry := NewRegistry()
	for _, def := range defs {
		provider, err := f.ForDefinition(def)
		if err != nil {
			return nil, err
		}
		registry.Register(provider, def.LatencyRank, def.DeepReasoning)
	}
	return registry, nil
}

// ForDefinition builds a single handle, inferring the backend kind from the
// endpoint when the config leaves it blank.
func (f *Factory) ForDefinition(def domain.ProviderDefinition) (ports.Provider, error) {
	switch inferKind(def) {
	case domain.ProviderKindLocal:
		return NewLocal(def, f.httpClient), nil
	case domain.ProviderKindCloud:
		return NewCloud(def, f.httpClient), nil
	case domain.ProviderKindSourcegraph:
		return NewSearch(def, f.httpClient), nil
	default:
		return nil, fmt.Errorf("unsupported provider kind %q for %s", def.Kind, def.Name)
	}
}

func inferKind(def domain.ProviderDefinition) string {
	if def.Kind != "" {
		return def.Kind
	}
	endpoint := strings.ToLower(def.Endpoint)
	switch {
	case strings.Contains(endpoint, "openai.com"), strings.Contains(endpoint, "/chat/completions"):
		return domain.ProviderKindCloud
	case strings.Contains(endpoint, "sourcegraph"), strings.Contains(endpoint, "7080"):
		return domain.ProviderKindSourcegraph
	case strings.Contains(endpoint, "localhost"), strings.Contains(endpoint, "/generate"):
		return domain.ProviderKindLocal
	default:
		return ""
	}
}
