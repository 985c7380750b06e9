package domain

// Config mirrors ~/.archway/config.yaml. It is loaded once at process start
// and passed by reference into the orchestrator, cache, and rate limiter
// constructors; there is no ambient global configuration.
type Config struct {
	ConfigFormatVersion string               `yaml:"config_format_version"`
	Defaults            Defaults             `yaml:"defaults"`
	Providers           []ProviderDefinition `yaml:"providers"`
	Cache               CacheSettings        `yaml:"cache"`
	RateLimit           RateLimitSettings    `yaml:"rate_limit"`
	Retry               RetrySettings        `yaml:"retry"`
	History             HistorySettings      `yaml:"history"`
}

// Defaults captures request-level fallbacks.
type Defaults struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout"`
}

// CacheSettings configures the result cache. TTLs use Go duration syntax.
type CacheSettings struct {
	TTL string `yaml:"ttl"`
	// NegativeTTL bounds how long a failed computation is remembered. It is
	// configured independently of TTL.
	NegativeTTL string `yaml:"negative_ttl"`
	MaxEntries  int    `yaml:"max_entries"`
}

// RateLimitSettings configures per-provider admission control.
type RateLimitSettings struct {
	RequestsPerWindow int `yaml:"requests_per_window"`
	WindowSeconds     int `yaml:"window_seconds"`
	// PerProvider overrides the request budget for named providers.
	PerProvider map[string]int `yaml:"per_provider"`
}

// RetrySettings configures the bounded-attempt retry policy.
type RetrySettings struct {
	MaxRetries     int `yaml:"max_retries"`
	BaseDelayMS    int `yaml:"base_delay_ms"`
	MaxDelayMS     int `yaml:"max_delay_ms"`
	TimeoutSeconds int `yaml:"timeout"`
}

// HistorySettings configures the durable analysis log.
type HistorySettings struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}
