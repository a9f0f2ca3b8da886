package tables

import (
	_ "embed"

	"github.com/jackzampolin/shotlist/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed system_json.tmpl
var systemJSONPrompt string

//go:embed user.tmpl
var userPrompt string

// Prompt keys for the tables stage.
const (
	SystemKey     = "stages.tables.system"
	SystemJSONKey = "stages.tables.system_json"
	UserKey       = "stages.tables.user"
)

// RegisterPrompts registers the tables prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemKey,
		Text:        systemPrompt,
		Description: "Image prompts to markdown table system prompt - Scene, Shot, Prompt columns only",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemJSONKey,
		Text:        systemJSONPrompt,
		Description: "Image prompts to JSON rows system prompt - validated against the prompt table schema",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserKey,
		Text:        userPrompt,
		Description: "Prompt table user message - one or more image prompt files",
	})
}
