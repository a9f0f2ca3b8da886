package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jackzampolin/shotlist/internal/extract"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Defaults.LLMProvider != "gemini" {
		t.Errorf("default provider = %q, want gemini", cfg.Defaults.LLMProvider)
	}
	if _, ok := cfg.GetLLMProvider(cfg.Defaults.LLMProvider); !ok {
		t.Error("default provider is not configured")
	}
	if cfg.Stages.Tables.Method != "extract" || cfg.Stages.Tables.Mode != "individual" {
		t.Errorf("unexpected tables defaults: %+v", cfg.Stages.Tables)
	}
	if cfg.Workspace != "text_files" {
		t.Errorf("Workspace = %q", cfg.Workspace)
	}
	if _, err := extract.CompileGrammar(cfg.Grammar); err != nil {
		t.Errorf("default grammar does not compile: %v", err)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")
		if got := ResolveEnvVars("${TEST_API_KEY}"); got != "secret123" {
			t.Errorf("expected secret123, got %s", got)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		if got := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}"); got != "" {
			t.Errorf("expected empty string, got %s", got)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		if got := ResolveEnvVars("literal-value"); got != "literal-value" {
			t.Errorf("expected literal-value, got %s", got)
		}
	})

	t.Run("falls back to second variable", func(t *testing.T) {
		t.Setenv("TEST_PRIMARY_KEY", "")
		t.Setenv("TEST_SECONDARY_KEY", "google-key")
		if got := ResolveEnvVars("${TEST_PRIMARY_KEY:-$TEST_SECONDARY_KEY}"); got != "google-key" {
			t.Errorf("expected google-key, got %s", got)
		}
	})

	t.Run("prefers first variable", func(t *testing.T) {
		t.Setenv("TEST_PRIMARY_KEY", "gemini-key")
		t.Setenv("TEST_SECONDARY_KEY", "google-key")
		if got := ResolveEnvVars("${TEST_PRIMARY_KEY:-$TEST_SECONDARY_KEY}"); got != "gemini-key" {
			t.Errorf("expected gemini-key, got %s", got)
		}
	})

	t.Run("literal fallback", func(t *testing.T) {
		if got := ResolveEnvVars("${DEFINITELY_NOT_SET_12345:-none}"); got != "none" {
			t.Errorf("expected none, got %s", got)
		}
	})
}

func TestToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TEST_OPENROUTER_KEY", "or-key-123")

	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {Type: "openrouter", APIKey: "${TEST_OPENROUTER_KEY}", RateLimit: 30, Enabled: true},
			"literal":    {Type: "openai", APIKey: "direct-key", BaseURL: "http://localhost:1234/v1"},
		},
	}

	got := cfg.ToProviderRegistryConfig()
	if p := got.LLMProviders["openrouter"]; p.APIKey != "or-key-123" || p.RequestsPerMinute != 30 || !p.Enabled {
		t.Errorf("openrouter = %+v", p)
	}
	if p := got.LLMProviders["literal"]; p.APIKey != "direct-key" || p.BaseURL != "http://localhost:1234/v1" {
		t.Errorf("literal = %+v", p)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		path := writeConfig(t, `
defaults:
  max_workers: 2
stages:
  tables:
    method: llm
    mode: pairs
    model: gemini-2.5-flash
llm_providers:
  local:
    type: openai
    base_url: http://localhost:8080/v1
    api_key: sk-local
    enabled: true
`)
		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Defaults.MaxWorkers != 2 {
			t.Errorf("MaxWorkers = %d, want 2", cfg.Defaults.MaxWorkers)
		}
		if cfg.Stages.Tables.Method != "llm" || cfg.Stages.Tables.Mode != "pairs" || cfg.Stages.Tables.Model != "gemini-2.5-flash" {
			t.Errorf("tables = %+v", cfg.Stages.Tables)
		}
		if cfg.Stages.Tables.Format != "markdown" {
			t.Errorf("unset fields should keep defaults, Format = %q", cfg.Stages.Tables.Format)
		}
		if cfg.Defaults.LLMProvider != "gemini" {
			t.Errorf("LLMProvider = %q, want default gemini", cfg.Defaults.LLMProvider)
		}
		if p, ok := cfg.GetLLMProvider("local"); !ok || p.BaseURL != "http://localhost:8080/v1" {
			t.Errorf("local provider = %+v", p)
		}
		if _, ok := cfg.GetLLMProvider("gemini"); !ok {
			t.Error("default providers should remain configured")
		}
		if mgr.ConfigFile() != path {
			t.Errorf("ConfigFile() = %q", mgr.ConfigFile())
		}
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("SHOTLIST_DEFAULTS_MAX_WORKERS", "9")
		mgr, err := NewManager(writeConfig(t, "workspace: scripts\n"))
		if err != nil {
			t.Fatal(err)
		}
		if got := mgr.Get().Defaults.MaxWorkers; got != 9 {
			t.Errorf("MaxWorkers = %d, want 9", got)
		}
		if got := mgr.Get().Workspace; got != "scripts" {
			t.Errorf("Workspace = %q", got)
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		if _, err := NewManager(writeConfig(t, "defaults: [unclosed")); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("set overrides", func(t *testing.T) {
		mgr, err := NewManager(writeConfig(t, "workspace: a\n"))
		if err != nil {
			t.Fatal(err)
		}
		if err := mgr.Set("workspace", "b"); err != nil {
			t.Fatal(err)
		}
		if got := mgr.Get().Workspace; got != "b" {
			t.Errorf("Workspace = %q, want b", got)
		}
	})
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# shotlist configuration") {
		t.Error("missing header comment")
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("written default does not load: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), mgr.Get()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SHOTLIST_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHOTLIST_TEST_DOTENV", "")
	os.Unsetenv("SHOTLIST_TEST_DOTENV")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("SHOTLIST_TEST_DOTENV"); got != "from-file" {
		t.Errorf("SHOTLIST_TEST_DOTENV = %q", got)
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "workspace: a\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "workspace: a\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = mgr.Get().Workspace
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, `
grammar:
  prompt_label: "(?i)^prompt:"
`)

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if got := mgr.Get().Grammar.PromptLabel; got != "(?i)^prompt:" {
		t.Errorf("initial value mismatch: got %s", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Grammar.PromptLabel)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	newContent := `
grammar:
  prompt_label: "(?i)^shot prompt:"
`
	if err := os.WriteFile(configFile, []byte(newContent), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, _ := lastValue.Load().(string); v == "(?i)^shot prompt:" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Grammar.PromptLabel; got != "(?i)^shot prompt:" {
		t.Errorf("config not updated: got %s", got)
	}
}
