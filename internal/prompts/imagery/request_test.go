package imagery

import (
	"strings"
	"testing"

	"github.com/jackzampolin/shotlist/internal/prompts"
)

func TestBuildRequest(t *testing.T) {
	r := prompts.NewResolver("", nil)
	RegisterPrompts(r)

	t.Run("with characters", func(t *testing.T) {
		req, system, err := BuildRequest(r, Input{Name: "ep1", ShotList: "SCENE 1", Characters: "Li: tall"})
		if err != nil {
			t.Fatal(err)
		}
		if system.Key != SystemKey || system.Text != SystemPrompt() {
			t.Errorf("unexpected system prompt %s", system.Key)
		}
		user := req.User()
		if !strings.HasPrefix(user, "CHARACTER DESCRIPTIONS:\nLi: tall\n\nSHOT LIST: ep1\n\nSCENE 1") {
			t.Errorf("user message = %q", user)
		}
	})

	t.Run("without characters", func(t *testing.T) {
		req, _, err := BuildRequest(r, Input{Name: "ep1", ShotList: "SCENE 1"})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(req.User(), "SHOT LIST: ep1\n\nSCENE 1") {
			t.Errorf("user message = %q", req.User())
		}
	})
}
