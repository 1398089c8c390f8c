package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type ProjectConfig struct {
	Project  string         `yaml:"project"`
	Version  int            `yaml:"version"`
	Provider ProviderConfig `yaml:"provider"`
	Memory   MemoryConfig   `yaml:"memory"`
	Store    StoreConfig    `yaml:"store"`

	// Reviewers selects profiles by ID from the built-in roster or from
	// RosterFile. Empty means the full built-in roster.
	Reviewers  []string `yaml:"reviewers"`
	RosterFile string   `yaml:"roster_file"`
}

type ProviderConfig struct {
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

type MemoryConfig struct {
	RecentScenes          int     `yaml:"recent_scenes"`
	MaxDigests            int     `yaml:"max_digests"`
	MinQuestionImportance float64 `yaml:"min_question_importance"`
	JourneyWindow         int     `yaml:"journey_window"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	switch cfg.Store.Backend {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
	if cfg.Store.Backend == "postgres" && strings.TrimSpace(cfg.Store.DSN) == "" {
		return fmt.Errorf("postgres backend requires a dsn")
	}
	if cfg.Memory.RecentScenes < 0 {
		return fmt.Errorf("recent_scenes must not be negative")
	}
	if cfg.Memory.MinQuestionImportance < 0 || cfg.Memory.MinQuestionImportance > 1 {
		return fmt.Errorf("min_question_importance must be within [0, 1]")
	}

	seen := make(map[string]struct{})
	for _, id := range cfg.Reviewers {
		key := strings.ToLower(strings.TrimSpace(id))
		if key == "" {
			return fmt.Errorf("empty reviewer id")
		}
		if _, exists := seen[key]; exists {
			return fmt.Errorf("duplicate reviewer id: %s", id)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func applyDefaults(cfg *ProjectConfig) {
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = "gpt-4o-mini"
	}
	if cfg.Provider.APIKeyEnv == "" {
		cfg.Provider.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Provider.TimeoutSeconds <= 0 {
		cfg.Provider.TimeoutSeconds = 120
	}
	if cfg.Provider.MaxRetries <= 0 {
		cfg.Provider.MaxRetries = 3
	}
	if cfg.Memory.RecentScenes == 0 {
		cfg.Memory.RecentScenes = 4
	}
	// A negative max_digests means no cap; only the unset zero gets a default.
	if cfg.Memory.MaxDigests == 0 {
		cfg.Memory.MaxDigests = 10
	}
	if cfg.Memory.MinQuestionImportance == 0 {
		cfg.Memory.MinQuestionImportance = 0.4
	}
	if cfg.Memory.JourneyWindow <= 0 {
		cfg.Memory.JourneyWindow = 10
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "sqlite"
	}
	if cfg.Store.Backend == "sqlite" && cfg.Store.DSN == "" {
		cfg.Store.DSN = "tableread.db"
	}
}
