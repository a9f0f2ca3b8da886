package tables

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackzampolin/shotlist/internal/prompts"
	"github.com/jackzampolin/shotlist/internal/providers"
)

// Output formats requested from the model.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Request defaults, matching the long outputs a full prompt table needs.
const (
	DefaultTemperature = 0.5
	DefaultMaxTokens   = 32000
)

// File is one named image prompt file.
type File struct {
	Name    string
	Content string
}

// Input contains the data needed for one tables request.
type Input struct {
	Files  []File
	Format string // markdown (default) or json
}

// Join concatenates files with "=== FILE: name ===" separators and a blank
// line between files.
func Join(files []File) string {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "=== FILE: %s ===\n%s\n\n", f.Name, strings.TrimSpace(f.Content))
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildRequest renders the tables prompts for in and returns the chat request
// along with the resolved system prompt for call recording.
func BuildRequest(r *prompts.Resolver, in Input) (*providers.ChatRequest, *prompts.ResolvedPrompt, error) {
	key := SystemKey
	if in.Format == FormatJSON {
		key = SystemJSONKey
	}
	system, err := r.Resolve(key)
	if err != nil {
		return nil, nil, err
	}
	user, _, err := r.Render(UserKey, map[string]any{"Content": Join(in.Files)})
	if err != nil {
		return nil, nil, err
	}

	req := &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: system.Text},
			{Role: providers.RoleUser, Content: user},
		},
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
	if in.Format == FormatJSON {
		rf, err := buildResponseFormat()
		if err != nil {
			return nil, nil, err
		}
		req.ResponseFormat = rf
	}
	return req, system, nil
}

func buildResponseFormat() (*providers.ResponseFormat, error) {
	raw, err := json.Marshal(Schema)
	if err != nil {
		return nil, fmt.Errorf("marshal prompt table schema: %w", err)
	}
	return &providers.ResponseFormat{Type: "json_schema", JSONSchema: raw}, nil
}
