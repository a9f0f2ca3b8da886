package table

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseMarkdownTable(t *testing.T) {
	t.Run("model output with chatter", func(t *testing.T) {
		in := "Here is the table:\n\n" +
			"| Scene | Shot | Prompt |\n" +
			"|-------|------|--------|\n" +
			"| 1 | 1A | A **wide** view of a kitchen |\n" +
			"| 1 | 1B | Steam rising \\| from a cup |\n" +
			"| 2 | 2A |\n" +
			"\nLet me know if you need anything else."
		got, diags := ParseMarkdownTable(in)

		want := []Record{
			{Scene: "1", Shot: "1A", Prompt: "A wide view of a kitchen"},
			{Scene: "1", Shot: "1B", Prompt: "Steam rising | from a cup"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
		if len(diags) != 1 || diags[0].Line != 7 {
			t.Errorf("expected one diagnostic on line 7, got %v", diags)
		}
	})

	t.Run("repeated headers from combined input", func(t *testing.T) {
		in := "| Scene | Shot | Prompt |\n|---|---|---|\n| 1 | 1A | a |\n" +
			"| **Scene** | Shot | Prompt |\n|:---|:---|:---|\n| 2 | 2A | b |\n"
		got, diags := ParseMarkdownTable(in)
		if len(got) != 2 || len(diags) != 0 {
			t.Errorf("got %d records and %v diagnostics, want 2 and none", len(got), diags)
		}
	})

	t.Run("no table", func(t *testing.T) {
		got, diags := ParseMarkdownTable("I could not find any prompts.")
		if len(got) != 0 {
			t.Errorf("expected no records, got %v", got)
		}
		if len(diags) != 1 {
			t.Errorf("expected a diagnostic, got %v", diags)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		got, diags := ParseMarkdownTable("")
		if len(got) != 0 || len(diags) != 0 {
			t.Errorf("expected nothing, got %v %v", got, diags)
		}
	})
}
