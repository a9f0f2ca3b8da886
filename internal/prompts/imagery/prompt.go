package imagery

import (
	_ "embed"

	"github.com/jackzampolin/shotlist/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPrompt string

// Prompt keys for the imagery stage.
const (
	SystemKey = "stages.imagery.system"
	UserKey   = "stages.imagery.user"
)

// SystemPrompt returns the embedded system prompt for image prompt generation.
func SystemPrompt() string {
	return systemPrompt
}

// RegisterPrompts registers the imagery prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemKey,
		Text:        systemPrompt,
		Description: "Shot list to image prompts system prompt - one labelled prompt per shot with period-accurate detail",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserKey,
		Text:        userPrompt,
		Description: "Image prompt user message - optional character descriptions, then the shot list",
	})
}
