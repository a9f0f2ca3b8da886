package stages

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackzampolin/shotlist/internal/consolidate"
	"github.com/jackzampolin/shotlist/internal/extract"
	"github.com/jackzampolin/shotlist/internal/home"
	"github.com/jackzampolin/shotlist/internal/pipeline"
	"github.com/jackzampolin/shotlist/internal/table"
)

// ConsolidateOptions configures the consolidate stage. Empty fields fall
// back to the consolidate config.
type ConsolidateOptions struct {
	// Output file. A bare name is placed in the workspace.
	Output       string
	Recursive    bool
	SourceColumn string
	Formats      []string
}

// Consolidate merges prompt tables into one consolidated table.
type Consolidate struct {
	opts ConsolidateOptions

	mu     sync.Mutex
	result *consolidate.Result
}

// NewConsolidate creates the consolidate stage.
func NewConsolidate(opts ConsolidateOptions) *Consolidate {
	return &Consolidate{opts: opts}
}

func (s *Consolidate) Name() string           { return NameConsolidate }
func (s *Consolidate) Dependencies() []string { return []string{NameTables} }
func (s *Consolidate) Description() string {
	return "Merge prompt tables into one consolidated CSV"
}

// Result returns the outcome of the last run, or nil.
func (s *Consolidate) Result() *consolidate.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// OutputPath returns the file Run writes.
func (s *Consolidate) OutputPath(ctx context.Context) (string, error) {
	e, err := load(ctx, NameConsolidate)
	if err != nil {
		return "", err
	}
	return s.outputPath(e), nil
}

func (s *Consolidate) outputPath(e *env) string {
	return e.home.ConsolidatedPath(first(s.opts.Output, e.cfg.Consolidate.Output, home.ConsolidatedFileName))
}

// Run consolidates the sources under in.Paths, defaulting to the workspace
// tables directory. Sources that fail are reported as failures; the stage
// fails only when nothing could be written.
func (s *Consolidate) Run(ctx context.Context, in pipeline.Input) (*pipeline.Output, error) {
	e, err := load(ctx, NameConsolidate)
	if err != nil {
		return nil, err
	}
	cc := e.cfg.Consolidate

	output := s.outputPath(e)
	formats := s.opts.Formats
	if len(formats) == 0 {
		formats = cc.Formats
	}
	opts := consolidate.DiscoverOptions{
		Recursive: s.opts.Recursive || cc.Recursive,
		Exclude:   []string{output},
	}
	for _, f := range formats {
		opts.Formats = append(opts.Formats, consolidate.Format(f))
	}

	roots := in.Paths
	if len(roots) == 0 {
		roots = []string{e.home.TablesDir()}
	}
	var sources []consolidate.Source
	for _, root := range roots {
		found, err := consolidate.Discover(root, opts)
		if err != nil {
			return nil, err
		}
		sources = append(sources, found...)
	}

	g, err := extract.CompileGrammar(e.cfg.Grammar)
	if err != nil {
		return nil, err
	}
	res, err := consolidate.NewDriver(consolidate.Options{Grammar: g, Logger: e.logger}).Run(ctx, sources)
	if err != nil {
		return nil, err
	}

	sourceColumn := first(s.opts.SourceColumn, cc.SourceColumn)
	if err := consolidate.WriteFile(output, res.Table, table.WriteOptions{SourceColumn: sourceColumn}); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", output, err)
	}
	res.Manifest.Output = output

	s.mu.Lock()
	s.result = res
	s.mu.Unlock()

	out := &pipeline.Output{Stage: NameConsolidate, Files: []string{output}}
	for _, src := range res.Manifest.Sources {
		if src.Status == consolidate.StatusError {
			out.Failed = append(out.Failed, pipeline.Failure{Path: src.ID, ErrorType: "source", Error: src.Error})
		}
	}
	e.logger.Info("wrote consolidated table", "output", output, "rows", res.Manifest.Rows)
	return out, nil
}

var _ pipeline.Stage = (*Consolidate)(nil)
