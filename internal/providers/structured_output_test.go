package providers

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var rowsSchema = json.RawMessage(`{
	"name": "prompt_table",
	"strict": true,
	"schema": {
		"type": "object",
		"properties": {
			"rows": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"scene": {"type": "string"},
						"shot": {"type": "string"}
					},
					"required": ["scene", "shot"]
				}
			}
		},
		"required": ["rows"],
		"additionalProperties": false
	}
}`)

func TestParseStructured(t *testing.T) {
	rf := &ResponseFormat{Type: "json_schema", JSONSchema: rowsSchema}
	want := `{"rows":[{"scene":"1","shot":"1A"}]}`

	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain", `{"rows":[{"scene":"1","shot":"1A"}]}`, want, false},
		{"code fence", "```json\n{\"rows\":[{\"scene\":\"1\",\"shot\":\"1A\"}]}\n```", want, false},
		{"surrounding prose", `Here is the table: {"rows":[{"scene":"1","shot":"1A"}]} Enjoy!`, want, false},
		{"bare array", `[{"scene":"1","shot":"1A"}]`, want, false},
		{"missing field", `{"rows":[{"scene":"1"}]}`, "", true},
		{"extra property", `{"rows":[],"notes":"x"}`, "", true},
		{"not json", "I cannot do that.", "", true},
		{"empty", "  ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStructured(rf, tt.content)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedResponse) {
					t.Fatalf("expected ErrMalformedResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStructured() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, string(got)); diff != "" {
				t.Errorf("ParseStructured() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseStructured_NoSchema(t *testing.T) {
	got, err := ParseStructured(nil, "```\n{\"ok\": true}\n```")
	if err != nil {
		t.Fatalf("ParseStructured() error = %v", err)
	}
	if string(got) != `{"ok":true}` {
		t.Errorf("ParseStructured() = %s", got)
	}
}

func TestCompileStructured_Caches(t *testing.T) {
	a, err := compileStructured(rowsSchema)
	if err != nil {
		t.Fatal(err)
	}
	b, err := compileStructured(rowsSchema)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("expected the compiled schema to be reused")
	}
	if a.listKey != "rows" {
		t.Errorf("listKey = %q, want rows", a.listKey)
	}
}

func TestUnwrapSchema(t *testing.T) {
	inner := map[string]any{"type": "object"}
	for name, raw := range map[string]string{
		"bare":        `{"type":"object"}`,
		"named":       `{"name":"x","schema":{"type":"object"}}`,
		"json_schema": `{"type":"json_schema","json_schema":{"schema":{"type":"object"}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := unwrapSchema(json.RawMessage(raw))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(inner, got); diff != "" {
				t.Errorf("unwrapSchema() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
