// Package prompts provides prompt management with embedded defaults and
// directory overrides.
//
// Embedded .tmpl files compiled into the binary are the defaults. A prompts
// directory, when configured, may shadow any of them with a file named after
// the prompt key:
//
//	<prompts_dir>/stages.shots.system.tmpl
//
// Resolution order:
//  1. Override file in the prompts directory (if present)
//  2. Embedded default
//
// Every resolved prompt carries a SHA-256 hash of its text so recorded LLM
// calls can be traced back to the exact prompt version.
package prompts

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: stages.shots.system
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}

// ResolvedPrompt is the result of resolving a prompt key.
type ResolvedPrompt struct {
	Key        string   `json:"key" yaml:"key"`
	Text       string   `json:"text" yaml:"text"`
	Variables  []string `json:"variables,omitempty" yaml:"variables,omitempty"`
	IsOverride bool     `json:"is_override" yaml:"is_override"`
	Path       string   `json:"path,omitempty" yaml:"path,omitempty"` // override file, if any
	Hash       string   `json:"hash" yaml:"hash"`
}
