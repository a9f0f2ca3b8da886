package shots

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/shotlist/internal/prompts"
	"github.com/jackzampolin/shotlist/internal/providers"
)

func TestBuildRequest(t *testing.T) {
	t.Run("embedded prompts", func(t *testing.T) {
		r := prompts.NewResolver("", nil)
		RegisterPrompts(r)

		req, system, err := BuildRequest(r, Input{Name: "ep1", Script: "INT. KITCHEN - DAY"})
		if err != nil {
			t.Fatal(err)
		}
		if system.Key != SystemKey || system.IsOverride {
			t.Errorf("unexpected system prompt %+v", system)
		}
		if req.Messages[0].Role != providers.RoleSystem || req.System() != SystemPrompt() {
			t.Error("system message should carry the embedded prompt")
		}
		if !strings.HasPrefix(req.User(), "SCRIPT: ep1\n\nINT. KITCHEN - DAY") {
			t.Errorf("user message = %q", req.User())
		}
		if req.Temperature != DefaultTemperature {
			t.Errorf("Temperature = %v", req.Temperature)
		}
	})

	t.Run("override file", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, SystemKey+".tmpl"), []byte("Only wide shots."), 0o644); err != nil {
			t.Fatal(err)
		}
		r := prompts.NewResolver(dir, nil)
		RegisterPrompts(r)

		req, system, err := BuildRequest(r, Input{Name: "ep1", Script: "x"})
		if err != nil {
			t.Fatal(err)
		}
		if !system.IsOverride || req.System() != "Only wide shots." {
			t.Errorf("override not used: %+v", system)
		}
		if system.Hash != prompts.HashText("Only wide shots.") {
			t.Error("hash should match the override text")
		}
	})
}
