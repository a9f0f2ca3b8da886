package tables

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jackzampolin/shotlist/internal/prompts"
	"github.com/jackzampolin/shotlist/internal/providers"
	"github.com/jackzampolin/shotlist/internal/table"
)

func TestJoin(t *testing.T) {
	got := Join([]File{
		{Name: "a_image_prompts.txt", Content: "one\n"},
		{Name: "b_image_prompts.txt", Content: "two"},
	})
	want := "=== FILE: a_image_prompts.txt ===\none\n\n=== FILE: b_image_prompts.txt ===\ntwo"
	if got != want {
		t.Errorf("Join() = %q, want %q", got, want)
	}
}

func TestBuildRequest(t *testing.T) {
	r := prompts.NewResolver("", nil)
	RegisterPrompts(r)

	t.Run("markdown", func(t *testing.T) {
		req, system, err := BuildRequest(r, Input{Files: []File{{Name: "x.txt", Content: "body"}}})
		if err != nil {
			t.Fatal(err)
		}
		if system.Key != SystemKey || req.ResponseFormat != nil {
			t.Errorf("unexpected markdown request: key=%s rf=%v", system.Key, req.ResponseFormat)
		}
		if !strings.Contains(req.User(), "=== FILE: x.txt ===") {
			t.Errorf("user message = %q", req.User())
		}
		if req.MaxTokens != DefaultMaxTokens {
			t.Errorf("MaxTokens = %d", req.MaxTokens)
		}
	})

	t.Run("json", func(t *testing.T) {
		req, system, err := BuildRequest(r, Input{Format: FormatJSON, Files: []File{{Name: "x.txt", Content: "body"}}})
		if err != nil {
			t.Fatal(err)
		}
		if system.Key != SystemJSONKey {
			t.Errorf("system key = %s", system.Key)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_schema" {
			t.Fatalf("ResponseFormat = %+v", req.ResponseFormat)
		}

		// The schema accepts the shape ParseResult decodes.
		raw, err := providers.ParseStructured(req.ResponseFormat, `{"rows":[{"scene":"1","shot":"","prompt":"p"}]}`)
		if err != nil {
			t.Fatalf("ParseStructured() error = %v", err)
		}
		records, err := ParseResult(raw)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]table.Record{{Scene: "1", Prompt: "p"}}, records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}

		if _, err := providers.ParseStructured(req.ResponseFormat, `{"rows":[{"scene":"1"}]}`); err == nil {
			t.Error("expected schema violation for a row without prompt")
		}
	})
}

func TestSchemaIsValidJSON(t *testing.T) {
	if _, err := json.Marshal(Schema); err != nil {
		t.Fatal(err)
	}
}
