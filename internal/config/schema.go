package config

import (
	"github.com/jackzampolin/shotlist/internal/extract"
)

// Config holds shotlist configuration.
// Read from: ./config.yaml, $HOME/.shotlist/config.yaml or --config
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Stages       StagesCfg                 `mapstructure:"stages" yaml:"stages"`
	Grammar      extract.GrammarConfig     `mapstructure:"grammar" yaml:"grammar"`
	Consolidate  ConsolidateCfg            `mapstructure:"consolidate" yaml:"consolidate"`
	Workspace    string                    `mapstructure:"workspace" yaml:"workspace"`     // Workspace root (default: text_files)
	PromptsDir   string                    `mapstructure:"prompts_dir" yaml:"prompts_dir"` // Prompt override directory
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type      string `mapstructure:"type" yaml:"type"`         // "gemini", "openai", "openrouter", "mock"
	Model     string `mapstructure:"model" yaml:"model"`       // Model name
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`   // API key (supports ${ENV_VAR} syntax)
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"` // Optional endpoint override
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selection and concurrency.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"` // Default LLM provider
	MaxWorkers  int    `mapstructure:"max_workers" yaml:"max_workers"`   // Max concurrent files per stage
	MaxRetries  int    `mapstructure:"max_retries" yaml:"max_retries"`   // Attempts per LLM call
}

// StageCfg tunes the LLM calls of one stage. Zero values use the stage defaults.
type StageCfg struct {
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// TablesCfg configures the tables stage.
type TablesCfg struct {
	StageCfg `mapstructure:",squash" yaml:",inline"`
	Method   string `mapstructure:"method" yaml:"method"` // extract or llm
	Mode     string `mapstructure:"mode" yaml:"mode"`     // individual, pairs or combined
	Format   string `mapstructure:"format" yaml:"format"` // markdown or json
}

// StagesCfg holds per-stage settings.
type StagesCfg struct {
	Shots   StageCfg  `mapstructure:"shots" yaml:"shots"`
	Imagery StageCfg  `mapstructure:"imagery" yaml:"imagery"`
	Tables  TablesCfg `mapstructure:"tables" yaml:"tables"`
}

// ConsolidateCfg configures the consolidate command.
type ConsolidateCfg struct {
	Formats      []string `mapstructure:"formats" yaml:"formats"`             // Source formats: csv, text
	Recursive    bool     `mapstructure:"recursive" yaml:"recursive"`         // Walk subdirectories
	SourceColumn string   `mapstructure:"source_column" yaml:"source_column"` // Optional provenance column name
	Output       string   `mapstructure:"output" yaml:"output"`               // Output file name inside the workspace
	DebounceMS   int      `mapstructure:"debounce_ms" yaml:"debounce_ms"`     // Watch debounce
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"gemini": {
				Type:      "gemini",
				Model:     "gemini-2.5-pro",
				APIKey:    "${GEMINI_API_KEY:-$GOOGLE_API_KEY}",
				RateLimit: 60,
				Enabled:   true,
			},
			"openai": {
				Type:      "openai",
				Model:     "gpt-4o",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 60,
				Enabled:   true,
			},
			"openrouter": {
				Type:      "openrouter",
				Model:     "google/gemini-2.5-pro",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 60,
				Enabled:   true,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "gemini",
			MaxWorkers:  4,
			MaxRetries:  3,
		},
		Stages: StagesCfg{
			Shots:   StageCfg{Temperature: 0.7},
			Imagery: StageCfg{Temperature: 0.7},
			Tables: TablesCfg{
				StageCfg: StageCfg{Temperature: 0.5, MaxTokens: 32000},
				Method:   "extract",
				Mode:     "individual",
				Format:   "markdown",
			},
		},
		Grammar: extract.DefaultGrammarConfig(),
		Consolidate: ConsolidateCfg{
			Formats:    []string{"csv"},
			Output:     "consolidated.csv",
			DebounceMS: 500,
		},
		Workspace: "text_files",
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// ProviderFor returns the provider a stage should use: the stage override if
// set, otherwise the default.
func (c *Config) ProviderFor(stage StageCfg) string {
	if stage.Provider != "" {
		return stage.Provider
	}
	return c.Defaults.LLMProvider
}
