package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackzampolin/shotlist/internal/textio"
)

const (
	// DefaultDirName is the default workspace directory, relative to the
	// working directory.
	DefaultDirName = "text_files"

	// ShotListsDirName holds generated shot lists.
	ShotListsDirName = "shot_lists"

	// ImagePromptsDirName holds generated image prompts.
	ImagePromptsDirName = "image_prompts"

	// TablesDirName holds per-file prompt tables.
	TablesDirName = "tables"

	// CharactersFileName is the optional character description file.
	CharactersFileName = "characters.txt"

	// CallsDBName is the LLM call log database.
	CallsDBName = "calls.db"

	// ConsolidatedFileName is the default consolidated table.
	ConsolidatedFileName = "consolidated.csv"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// PromptsDirName is the default prompt override directory.
	PromptsDirName = "prompts"
)

// Dir represents the workspace directory structure:
//
//	text_files/
//	  characters.txt
//	  shot_lists/
//	  image_prompts/
//	  tables/
//	  consolidated.csv
//	  calls.db
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (./text_files).
func New(path string) (*Dir, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(wd, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the workspace.
func (d *Dir) Path() string {
	return d.path
}

// ShotListsDir returns the directory for generated shot lists.
func (d *Dir) ShotListsDir() string {
	return filepath.Join(d.path, ShotListsDirName)
}

// ImagePromptsDir returns the directory for generated image prompts.
func (d *Dir) ImagePromptsDir() string {
	return filepath.Join(d.path, ImagePromptsDirName)
}

// TablesDir returns the directory for prompt tables.
func (d *Dir) TablesDir() string {
	return filepath.Join(d.path, TablesDirName)
}

// CharactersPath returns the path to the character descriptions file.
func (d *Dir) CharactersPath() string {
	return filepath.Join(d.path, CharactersFileName)
}

// CallsDBPath returns the path to the call log database.
func (d *Dir) CallsDBPath() string {
	return filepath.Join(d.path, CallsDBName)
}

// ConsolidatedPath returns the path of the consolidated table, or of name
// inside the workspace when name is a bare file name.
func (d *Dir) ConsolidatedPath(name string) string {
	if name == "" {
		name = ConsolidatedFileName
	}
	if filepath.IsAbs(name) || filepath.Base(name) != name {
		return name
	}
	return filepath.Join(d.path, name)
}

// ConfigPath returns the path to a workspace-local config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// PromptsDir returns the default prompt override directory.
func (d *Dir) PromptsDir() string {
	return filepath.Join(d.path, PromptsDirName)
}

// EnsureExists creates the workspace and its stage directories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.ShotListsDir(), d.ImagePromptsDir(), d.TablesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create workspace directory: %w", err)
		}
	}
	return nil
}

// Exists returns true if the workspace directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ReadCharacters returns the decoded character descriptions, or "" when the
// file is absent or empty.
func (d *Dir) ReadCharacters() (string, error) {
	data, err := os.ReadFile(d.CharactersPath())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read characters file: %w", err)
	}
	text, _ := textio.Decode(data)
	return strings.TrimSpace(text), nil
}
