package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Provider types accepted in configuration.
const (
	TypeGemini     = "gemini"
	TypeOpenAI     = "openai"
	TypeOpenRouter = "openrouter"
	TypeMock       = "mock"
)

// Registry holds the configured LLM clients and one shared rate limiter per
// provider. It supports config-driven instantiation and hot-reload.
type Registry struct {
	mu         sync.RWMutex
	llmClients map[string]LLMClient
	configs    map[string]LLMProviderConfig
	limiters   map[string]*RateLimiter
	logger     *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients: make(map[string]LLMClient),
		configs:    make(map[string]LLMProviderConfig),
		limiters:   make(map[string]*RateLimiter),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	delete(r.configs, name)
	if r.logger != nil {
		r.logger.Debug("registered LLM client", "name", name)
	}
}

// UnregisterLLM removes an LLM client by name.
func (r *Registry) UnregisterLLM(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.llmClients, name)
	delete(r.configs, name)
	delete(r.limiters, name)
	if r.logger != nil {
		r.logger.Debug("unregistered LLM client", "name", name)
	}
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Caller returns a retrying, rate-limited caller for the named client.
// Callers for the same provider share one rate limiter.
func (r *Registry) Caller(name string, cfg CallerConfig) (*Caller, error) {
	client, err := r.GetLLM(name)
	if err != nil {
		return nil, err
	}
	cfg.Limiter = r.limiter(name, cfg.RequestsPerMinute)
	return NewCaller(client, cfg), nil
}

func (r *Registry) limiter(name string, fallbackRPM int) *RateLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[name]; ok {
		return l
	}
	rpm := fallbackRPM
	if cfg, ok := r.configs[name]; ok && cfg.RequestsPerMinute > 0 {
		rpm = cfg.RequestsPerMinute
	}
	l := NewRateLimiter(rpm)
	r.limiters[name] = l
	return l
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	LLMProviders map[string]LLMProviderConfig
}

// LLMProviderConfig matches config.LLMProviderCfg with a resolved API key.
type LLMProviderConfig struct {
	Type              string // gemini, openai, openrouter, mock
	Model             string
	APIKey            string
	BaseURL           string
	RequestsPerMinute int
	Enabled           bool
}

func (c LLMProviderConfig) usable() bool {
	return c.Enabled && (c.APIKey != "" || c.Type == TypeMock)
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with API keys are registered.
func NewRegistryFromConfig(cfg RegistryConfig, logger *slog.Logger) *Registry {
	r := NewRegistry()
	if logger != nil {
		r.logger = logger
	}
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration. Providers that are
// no longer configured are removed; providers with changed settings are
// recreated.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.usable() {
			continue
		}
		want[name] = true

		existing, hasExisting := r.configs[name]
		if hasExisting && existing == provCfg {
			continue
		}
		client, err := createLLMClient(provCfg)
		if err != nil {
			r.logger.Warn("failed to create LLM client", "name", name, "type", provCfg.Type, "error", err)
			continue
		}
		r.llmClients[name] = client
		r.configs[name] = provCfg
		delete(r.limiters, name)
		if hasExisting {
			r.logger.Info("updated LLM client", "name", name, "type", provCfg.Type)
		} else {
			r.logger.Debug("registered LLM client", "name", name, "type", provCfg.Type)
		}
	}

	for name := range r.configs {
		if !want[name] {
			delete(r.llmClients, name)
			delete(r.configs, name)
			delete(r.limiters, name)
			r.logger.Info("unregistered LLM client", "name", name)
		}
	}
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(cfg LLMProviderConfig) (LLMClient, error) {
	switch cfg.Type {
	case TypeGemini:
		return NewGeminiClient(context.Background(), GeminiConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
			BaseURL:      cfg.BaseURL,
		})
	case TypeOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		}), nil
	case TypeOpenRouter:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		}), nil
	case TypeMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}
