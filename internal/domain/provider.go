package domain

// Capability names one analysis operation a provider can perform.
type Capability string

const (
	CapabilityAnalyze             Capability = "analyze"
	CapabilityRefactor            Capability = "refactor"
	CapabilityExplainArchitecture Capability = "explain-architecture"
	CapabilitySearch              Capability = "search"
	CapabilityDefinition          Capability = "definition"
	CapabilityReferences          Capability = "references"
)

// ProviderState tracks the lifecycle of a provider handle.
//
// Uninitialized -> Initializing -> Ready | Error
// Ready <-> Processing, Ready | Error -> Closing -> Closed (terminal).
// Error is terminal until Initialize is explicitly attempted again.
type ProviderState int32

const (
	StateUninitialized ProviderState = iota
	StateInitializing
	StateReady
	StateProcessing
	StateError
	StateClosing
	StateClosed
)

func (s ProviderState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateProcessing:
		return "processing"
	case StateError:
		return "error"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ProviderDefinition describes one backend declared in the config file.
type ProviderDefinition struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"` // local | cloud | sourcegraph
	Endpoint   string `yaml:"endpoint"`
	AuthEnvVar string `yaml:"auth_env_var"`
	ModelID    string `yaml:"model_id"`
	MaxTokens  int    `yaml:"max_tokens"`
	// LatencyRank orders capable providers for selection; lower is faster.
	LatencyRank int `yaml:"latency_rank"`
	// DeepReasoning marks the provider mandatory for kinds that require it.
	DeepReasoning bool `yaml:"deep_reasoning"`
}

// Provider kind constants used by the factory and config defaults.
const (
	ProviderKindLocal       = "local"
	ProviderKindCloud       = "cloud"
	ProviderKindSourcegraph = "sourcegraph"
)
