package shots

import (
	_ "embed"

	"github.com/jackzampolin/shotlist/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPrompt string

// Prompt keys for the shots stage.
const (
	SystemKey = "stages.shots.system"
	UserKey   = "stages.shots.user"
)

// SystemPrompt returns the embedded system prompt for shot list generation.
func SystemPrompt() string {
	return systemPrompt
}

// RegisterPrompts registers the shots prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemKey,
		Text:        systemPrompt,
		Description: "Screenplay to shot list system prompt - scenes, numbered shots, camera work and timing",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserKey,
		Text:        userPrompt,
		Description: "Shot list user message - script name followed by the script text",
	})
}
