package imagery

import (
	"github.com/jackzampolin/shotlist/internal/prompts"
	"github.com/jackzampolin/shotlist/internal/providers"
)

// DefaultTemperature is used when the stage config leaves temperature unset.
const DefaultTemperature = 0.7

// Input contains the data needed for one image prompt request.
type Input struct {
	Name       string // shot list name shown to the model
	ShotList   string
	Characters string // optional character descriptions
}

// BuildRequest renders the imagery prompts for in and returns the chat
// request along with the resolved system prompt for call recording.
func BuildRequest(r *prompts.Resolver, in Input) (*providers.ChatRequest, *prompts.ResolvedPrompt, error) {
	system, err := r.Resolve(SystemKey)
	if err != nil {
		return nil, nil, err
	}
	user, _, err := r.Render(UserKey, in)
	if err != nil {
		return nil, nil, err
	}
	return &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: system.Text},
			{Role: providers.RoleUser, Content: user},
		},
		Temperature: DefaultTemperature,
	}, system, nil
}
