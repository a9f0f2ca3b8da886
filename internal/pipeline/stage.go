package pipeline

import (
	"context"
)

// Stage is the interface that all pipeline stages must implement.
// Each stage turns a set of input files into output files.
type Stage interface {
	// Identity
	Name() string           // e.g., "shots", "tables"
	Dependencies() []string // Stages that must complete first

	// Metadata
	Description() string

	// Run processes the input and reports what was written. Per-file
	// failures are listed in the output; a returned error aborts the stage.
	Run(ctx context.Context, in Input) (*Output, error)
}

// Input is what a stage consumes.
type Input struct {
	// Paths are files or directories. Directories are expanded by the stage.
	Paths []string

	// OutputDir overrides the stage's default output directory.
	OutputDir string
}

// Failure describes one input that could not be processed.
type Failure struct {
	Path      string `json:"path" yaml:"path"`
	ErrorType string `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	Error     string `json:"error" yaml:"error"`
}

// Output is what a stage produced.
type Output struct {
	Stage  string    `json:"stage" yaml:"stage"`
	Files  []string  `json:"files" yaml:"files"`
	Failed []Failure `json:"failed,omitempty" yaml:"failed,omitempty"`
}
