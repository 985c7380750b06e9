// Package config loads YAML configuration for Archway.
package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/archway-dev/archway/internal/domain"
	"github.com/archway-dev/archway/internal/ports"
)

// FileLoader loads YAML configuration from ~/.archway/config.yaml
// (overridable via ARCHWAY_CONFIG). A missing file is replaced with written
// defaults so a fresh install works offline against a local model.
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader. An empty path defers to the environment
// and the home directory default.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := defaultConfig()
			if err := writeDefault(path, cfg); err != nil {
				return domain.Config{}, err
			}
			return cfg, nil
		}
		return domain.Config{}, err
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}

	return hydrateDefaults(cfg), nil
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return l.overridePath
	}
	if custom := os.Getenv("ARCHWAY_CONFIG"); custom != "" {
		return expandPath(custom)
	}
	return filepath.Join(userHomeDir(), ".archway", "config.yaml")
}

func writeDefault(path string, cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func defaultConfig() domain.Config {
	return domain.Config{
		ConfigFormatVersion: "1",
		Defaults: domain.Defaults{
			Provider:       "",
			TimeoutSeconds: 60,
		},
		Providers: []domain.ProviderDefinition{
			{
				Name:        "local",
				Kind:        domain.ProviderKindLocal,
				Endpoint:    "http://localhost:8080/generate",
				ModelID:     "codellama-13b",
				MaxTokens:   512,
				LatencyRank: 1,
			},
			{
				Name:          "cloud",
				Kind:          domain.ProviderKindCloud,
				Endpoint:      "https://api.openai.com/v1/chat/completions",
				AuthEnvVar:    "OPENAI_API_KEY",
				ModelID:       "o1",
				MaxTokens:     2048,
				LatencyRank:   3,
				DeepReasoning: true,
			},
			{
				Name:        "sourcegraph",
				Kind:        domain.ProviderKindSourcegraph,
				Endpoint:    "http://localhost:7080",
				AuthEnvVar:  "SOURCEGRAPH_TOKEN",
				LatencyRank: 2,
			},
		},
		Cache: domain.CacheSettings{
			TTL:         "1h",
			NegativeTTL: "5m",
			MaxEntries:  256,
		},
		RateLimit: domain.RateLimitSettings{
			RequestsPerWindow: 60,
			WindowSeconds:     60,
		},
		Retry: domain.RetrySettings{
			MaxRetries:     3,
			BaseDelayMS:    200,
			MaxDelayMS:     10000,
			TimeoutSeconds: 120,
		},
		History: domain.HistorySettings{
			Path: filepath.Join(userHomeDir(), ".archway", "analyses.db"),
		},
	}
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.Defaults.TimeoutSeconds == 0 {
		cfg.Defaults.TimeoutSeconds = 60
	}
	if cfg.Cache.TTL == "" {
		cfg.Cache.TTL = "1h"
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 256
	}
	if cfg.RateLimit.RequestsPerWindow == 0 {
		cfg.RateLimit.RequestsPerWindow = 60
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 3
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(userHomeDir(), ".archway", "analyses.db")
	}
	for i := range cfg.Providers {
		if cfg.Providers[i].LatencyRank == 0 {
			cfg.Providers[i].LatencyRank = defaultLatencyRank(cfg.Providers[i].Kind)
		}
	}
	return cfg
}

func defaultLatencyRank(kind string) int {
	switch kind {
	case domain.ProviderKindLocal:
		return 1
	case domain.ProviderKindSourcegraph:
		return 2
	default:
		return 3
	}
}

func expandPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if len(path) > 1 && path[:2] == "~/" {
		return filepath.Join(userHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}

func userHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
