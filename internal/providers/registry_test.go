package providers

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get LLM", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockClient()

		r.RegisterLLM("test-llm", mock)

		client, err := r.GetLLM("test-llm")
		if err != nil {
			t.Fatalf("GetLLM() error = %v", err)
		}
		if client != mock {
			t.Error("got different client than registered")
		}
	})

	t.Run("get nonexistent LLM", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.GetLLM("nonexistent"); err == nil {
			t.Error("expected error for nonexistent LLM")
		}
		if _, err := r.Caller("nonexistent", CallerConfig{}); err == nil {
			t.Error("expected error for caller of nonexistent LLM")
		}
	})

	t.Run("list is sorted", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("llm2", NewMockClient())
		r.RegisterLLM("llm1", NewMockClient())

		if diff := cmp.Diff([]string{"llm1", "llm2"}, r.ListLLM()); diff != "" {
			t.Errorf("ListLLM() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unregister", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("my-llm", NewMockClient())
		r.UnregisterLLM("my-llm")
		if r.HasLLM("my-llm") {
			t.Error("HasLLM() = true after unregister")
		}
	})

	t.Run("callers share a limiter", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("m", NewMockClient())

		a, err := r.Caller("m", CallerConfig{})
		if err != nil {
			t.Fatal(err)
		}
		b, err := r.Caller("m", CallerConfig{})
		if err != nil {
			t.Fatal(err)
		}
		if a.Limiter() != b.Limiter() {
			t.Error("callers for one provider should share a limiter")
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup

		for i := 0; i < 100; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.RegisterLLM("llm", NewMockClient())
			}()
			go func() {
				defer wg.Done()
				_, _ = r.GetLLM("llm")
				_ = r.ListLLM()
			}()
		}
		wg.Wait()
	})
}

func TestNewRegistryFromConfig(t *testing.T) {
	t.Run("registers providers from config", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"openrouter": {Type: TypeOpenRouter, APIKey: "k", Enabled: true},
				"openai":     {Type: TypeOpenAI, APIKey: "k", Enabled: true},
				"offline":    {Type: TypeMock, Enabled: true},
			},
		}, nil)

		if diff := cmp.Diff([]string{"offline", "openai", "openrouter"}, r.ListLLM()); diff != "" {
			t.Errorf("ListLLM() mismatch (-want +got):\n%s", diff)
		}
		client, _ := r.GetLLM("openrouter")
		if _, ok := client.(*OpenRouterClient); !ok {
			t.Errorf("expected *OpenRouterClient, got %T", client)
		}
	})

	t.Run("skips disabled, keyless and unknown providers", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"disabled": {Type: TypeOpenRouter, APIKey: "k", Enabled: false},
				"keyless":  {Type: TypeOpenAI, Enabled: true},
				"unknown":  {Type: "carrier-pigeon", APIKey: "k", Enabled: true},
			},
		}, nil)

		if n := len(r.ListLLM()); n != 0 {
			t.Errorf("expected no providers, got %v", r.ListLLM())
		}
	})

	t.Run("uses custom model", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"or": {Type: TypeOpenRouter, APIKey: "k", Model: "custom/model", Enabled: true},
			},
		}, nil)

		client, _ := r.GetLLM("or")
		if got := client.(*OpenRouterClient).defaultModel; got != "custom/model" {
			t.Errorf("defaultModel = %q, want custom/model", got)
		}
	})
}

func TestRegistry_Reload(t *testing.T) {
	base := RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"or": {Type: TypeOpenRouter, APIKey: "key-1", Enabled: true},
		},
	}

	t.Run("adds and removes providers", func(t *testing.T) {
		r := NewRegistryFromConfig(base, nil)
		r.Reload(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"oa": {Type: TypeOpenAI, APIKey: "k", Enabled: true},
			},
		})
		if diff := cmp.Diff([]string{"oa"}, r.ListLLM()); diff != "" {
			t.Errorf("ListLLM() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("recreates providers with changed keys", func(t *testing.T) {
		r := NewRegistryFromConfig(base, nil)
		before, _ := r.GetLLM("or")

		r.Reload(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"or": {Type: TypeOpenRouter, APIKey: "key-2", Enabled: true},
			},
		})
		after, _ := r.GetLLM("or")
		if before == after {
			t.Error("client should be recreated when the key changes")
		}
		if after.(*OpenRouterClient).apiKey != "key-2" {
			t.Error("new client does not use the new key")
		}
	})

	t.Run("keeps providers with unchanged config", func(t *testing.T) {
		r := NewRegistryFromConfig(base, nil)
		before, _ := r.GetLLM("or")
		r.Reload(base)
		after, _ := r.GetLLM("or")
		if before != after {
			t.Error("client should be kept when config is unchanged")
		}
	})

	t.Run("concurrent reload is safe", func(t *testing.T) {
		r := NewRegistryFromConfig(base, nil)
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.Reload(base)
			}()
			go func() {
				defer wg.Done()
				_, _ = r.GetLLM("or")
			}()
		}
		wg.Wait()
	})
}
