package prompts

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrPromptNotFound is returned when a key has neither an override nor an
// embedded default.
var ErrPromptNotFound = errors.New("prompt not found")

// Resolver resolves prompts with directory overrides.
// Resolution order: override file > embedded default
type Resolver struct {
	dir      string
	embedded map[string]EmbeddedPrompt
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewResolver creates a new prompt resolver. dir may be empty, in which case
// only embedded defaults are used.
func NewResolver(dir string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		dir:      dir,
		embedded: make(map[string]EmbeddedPrompt),
		logger:   logger,
	}
}

// Dir returns the override directory.
func (r *Resolver) Dir() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dir
}

// SetDir changes the override directory.
func (r *Resolver) SetDir(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dir = dir
}

// Register registers an embedded prompt.
// This should be called during initialization by each stage.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// Resolve returns the override for key if one exists in the prompts
// directory, otherwise the embedded default.
func (r *Resolver) Resolve(key string) (*ResolvedPrompt, error) {
	r.mu.RLock()
	dir := r.dir
	embedded, ok := r.embedded[key]
	r.mu.RUnlock()

	if dir != "" {
		path := filepath.Join(dir, key+".tmpl")
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			text := string(data)
			return &ResolvedPrompt{
				Key:        key,
				Text:       text,
				Variables:  ExtractVariables(text),
				IsOverride: true,
				Path:       path,
				Hash:       HashText(text),
			}, nil
		case !errors.Is(err, fs.ErrNotExist):
			r.logger.Warn("failed to read prompt override", "key", key, "path", path, "error", err)
		}
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPromptNotFound, key)
	}
	return &ResolvedPrompt{
		Key:       key,
		Text:      embedded.Text,
		Variables: embedded.Variables,
		Hash:      embedded.Hash,
	}, nil
}

// Render resolves key and executes it against data.
func (r *Resolver) Render(key string, data any) (string, *ResolvedPrompt, error) {
	p, err := r.Resolve(key)
	if err != nil {
		return "", nil, err
	}
	text, err := Render(key, p.Text, data)
	if err != nil {
		return "", p, err
	}
	return text, p, nil
}

// GetEmbedded returns the embedded default for a key (no override resolution).
func (r *Resolver) GetEmbedded(key string) (*EmbeddedPrompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.embedded[key]
	return &p, ok
}

// AllEmbedded returns all registered embedded prompts, sorted by key.
func (r *Resolver) AllEmbedded() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]EmbeddedPrompt, 0, len(r.embedded))
	for _, p := range r.embedded {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// ExportDefaults writes every embedded prompt into dir as <key>.tmpl so they
// can be edited as overrides. Existing files are left untouched.
func (r *Resolver) ExportDefaults(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create prompts dir: %w", err)
	}
	var written []string
	for _, p := range r.AllEmbedded() {
		path := filepath.Join(dir, p.Key+".tmpl")
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(p.Text), 0o644); err != nil {
			return written, fmt.Errorf("write prompt %s: %w", p.Key, err)
		}
		written = append(written, path)
	}
	return written, nil
}
