package stages

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jackzampolin/shotlist/internal/pipeline"
	"github.com/jackzampolin/shotlist/internal/prompts/shots"
	"github.com/jackzampolin/shotlist/internal/textio"
)

// ShotsOptions configures the shots stage.
type ShotsOptions struct {
	// Combine joins all scripts into one request and one shot list.
	Combine bool
	// Name of the combined output. Defaults to the input's stem.
	Name string
}

// Shots turns scripts into shot lists.
type Shots struct {
	opts ShotsOptions
}

// NewShots creates the shots stage.
func NewShots(opts ShotsOptions) *Shots {
	return &Shots{opts: opts}
}

func (s *Shots) Name() string           { return NameShots }
func (s *Shots) Dependencies() []string { return nil }
func (s *Shots) Description() string {
	return "Break .txt/.rtf scripts into numbered shot lists"
}

// Run writes <stem>_shot_list.txt per script, or
// <name>_combined_shot_list.txt in combine mode.
func (s *Shots) Run(ctx context.Context, in pipeline.Input) (*pipeline.Output, error) {
	e, err := load(ctx, NameShots)
	if err != nil {
		return nil, err
	}
	files, err := collectInputs(in.Paths, textio.IsDocument)
	if err != nil {
		return nil, err
	}
	dir, err := outputDir(in.OutputDir, e.home.ShotListsDir())
	if err != nil {
		return nil, err
	}
	sc := e.cfg.Stages.Shots
	caller, err := e.caller(sc)
	if err != nil {
		return nil, err
	}

	units := individual(files)
	if s.opts.Combine {
		units = []unit{{Name: combinedName(s.opts.Name, in.Paths), Paths: files}}
	}
	e.logger.Info("generating shot lists", "files", len(files), "combine", s.opts.Combine, "provider", caller.Name())

	return process(ctx, e, NameShots, units, func(ctx context.Context, u unit) (string, error) {
		script, err := readAll(u.Paths)
		if err != nil {
			return "", err
		}
		if script == "" {
			return "", fmt.Errorf("script is empty")
		}

		name := u.Name
		outName := u.Name + "_shot_list.txt"
		if s.opts.Combine {
			name = u.Name + " (Combined)"
			outName = u.Name + "_combined_shot_list.txt"
		}

		req, system, err := shots.BuildRequest(e.prompts, shots.Input{Name: name, Script: script})
		if err != nil {
			return "", err
		}
		res, err := e.generate(ctx, caller, req, system, NameShots, u.label(), sc)
		if err != nil {
			return "", err
		}

		out := filepath.Join(dir, outName)
		if err := textio.WriteText(out, res.Content); err != nil {
			return "", err
		}
		e.logger.Info("wrote shot list", "input", u.label(), "output", out)
		return out, nil
	})
}

var _ pipeline.Stage = (*Shots)(nil)
