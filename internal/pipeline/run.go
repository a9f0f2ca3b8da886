package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoInput is returned when a stage has nothing to process.
var ErrNoInput = errors.New("no input files")

// Run executes every registered stage in dependency order.
func (r *Registry) Run(ctx context.Context, in Input, logger *slog.Logger) ([]*Output, error) {
	ordered, err := r.GetOrdered()
	if err != nil {
		return nil, err
	}
	return run(ctx, ordered, in, logger)
}

// RunFrom executes the named stage and everything downstream of it. The
// named stage receives in, so a run can resume from existing files.
func (r *Registry) RunFrom(ctx context.Context, name string, in Input, logger *slog.Logger) ([]*Output, error) {
	ordered, err := r.From(name)
	if err != nil {
		return nil, err
	}
	return run(ctx, ordered, in, logger)
}

// run executes ordered stages. A stage whose dependencies ran in this run
// receives the files they wrote; any other stage receives in. It stops at
// the first stage error.
func run(ctx context.Context, ordered []Stage, in Input, logger *slog.Logger) ([]*Output, error) {
	if logger == nil {
		logger = slog.Default()
	}

	produced := make(map[string][]string, len(ordered))
	var outputs []*Output
	for _, stage := range ordered {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}

		stageIn := in
		var upstream []string
		for _, dep := range stage.Dependencies() {
			if _, ok := produced[dep]; ok {
				upstream = append(upstream, dep)
			}
		}
		if len(upstream) > 0 {
			stageIn = Input{}
			for _, dep := range upstream {
				stageIn.Paths = append(stageIn.Paths, produced[dep]...)
			}
			if len(stageIn.Paths) == 0 {
				return outputs, fmt.Errorf("%w: stage %q has no files from %v", ErrNoInput, stage.Name(), upstream)
			}
		}

		logger.Info("running stage", "stage", stage.Name(), "inputs", len(stageIn.Paths))
		out, err := stage.Run(ctx, stageIn)
		if err != nil {
			return outputs, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		if out.Stage == "" {
			out.Stage = stage.Name()
		}
		outputs = append(outputs, out)
		produced[stage.Name()] = out.Files
		logger.Info("stage complete", "stage", stage.Name(), "files", len(out.Files), "failed", len(out.Failed))
	}
	return outputs, nil
}
