package svcctx

import (
	"context"
	"log/slog"
	"testing"

	"github.com/jackzampolin/shotlist/internal/home"
	"github.com/jackzampolin/shotlist/internal/prompts"
	"github.com/jackzampolin/shotlist/internal/providers"
)

func TestServicesFrom(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		ctx := context.Background()
		if ServicesFrom(ctx) != nil || RegistryFrom(ctx) != nil || ConfigFrom(ctx) != nil {
			t.Error("expected nil services")
		}
		if LoggerFrom(ctx) == nil {
			t.Error("LoggerFrom should fall back to slog.Default")
		}
	})

	t.Run("attached services", func(t *testing.T) {
		dir, _ := home.New(t.TempDir())
		s := &Services{
			Registry: providers.NewRegistry(),
			Prompts:  prompts.NewResolver("", nil),
			Logger:   slog.Default(),
			Home:     dir,
		}
		ctx := WithServices(context.Background(), s)

		if ServicesFrom(ctx) != s {
			t.Error("ServicesFrom returned a different value")
		}
		if RegistryFrom(ctx) != s.Registry || PromptsFrom(ctx) != s.Prompts || HomeFrom(ctx) != dir {
			t.Error("extractors returned unexpected values")
		}
		if RecorderFrom(ctx) != nil || LLMCallStoreFrom(ctx) != nil {
			t.Error("unset services should be nil")
		}
	})
}
