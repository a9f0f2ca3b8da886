package stages

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jackzampolin/shotlist/internal/pipeline"
	"github.com/jackzampolin/shotlist/internal/prompts/imagery"
	"github.com/jackzampolin/shotlist/internal/textio"
)

// ImageryOptions configures the imagery stage.
type ImageryOptions struct {
	Combine bool
	Name    string
	// Characters is a character descriptions file. Defaults to the
	// workspace characters.txt, which may be absent.
	Characters string
}

// Imagery turns shot lists into image generation prompts.
type Imagery struct {
	opts ImageryOptions
}

// NewImagery creates the imagery stage.
func NewImagery(opts ImageryOptions) *Imagery {
	return &Imagery{opts: opts}
}

func (s *Imagery) Name() string           { return NameImagery }
func (s *Imagery) Dependencies() []string { return []string{NameShots} }
func (s *Imagery) Description() string {
	return "Write image generation prompts for each shot of a shot list"
}

// Run writes <stem>_image_prompts.txt per shot list, or
// <name>_combined_image_prompts.txt in combine mode.
func (s *Imagery) Run(ctx context.Context, in pipeline.Input) (*pipeline.Output, error) {
	e, err := load(ctx, NameImagery)
	if err != nil {
		return nil, err
	}
	files, err := collectInputs(in.Paths, isText)
	if err != nil {
		return nil, err
	}
	characters, err := s.characters(e)
	if err != nil {
		return nil, err
	}
	dir, err := outputDir(in.OutputDir, e.home.ImagePromptsDir())
	if err != nil {
		return nil, err
	}
	sc := e.cfg.Stages.Imagery
	caller, err := e.caller(sc)
	if err != nil {
		return nil, err
	}

	units := individual(files)
	if s.opts.Combine {
		units = []unit{{Name: combinedName(s.opts.Name, in.Paths), Paths: files}}
	}
	e.logger.Info("generating image prompts", "files", len(files), "characters", characters != "", "provider", caller.Name())

	return process(ctx, e, NameImagery, units, func(ctx context.Context, u unit) (string, error) {
		shotList, err := readAll(u.Paths)
		if err != nil {
			return "", err
		}
		if shotList == "" {
			return "", fmt.Errorf("shot list is empty")
		}

		outName := u.Name + "_image_prompts.txt"
		if s.opts.Combine {
			outName = u.Name + "_combined_image_prompts.txt"
		}

		req, system, err := imagery.BuildRequest(e.prompts, imagery.Input{
			Name:       u.Name,
			ShotList:   shotList,
			Characters: characters,
		})
		if err != nil {
			return "", err
		}
		res, err := e.generate(ctx, caller, req, system, NameImagery, u.label(), sc)
		if err != nil {
			return "", err
		}

		out := filepath.Join(dir, outName)
		if err := textio.WriteText(out, res.Content); err != nil {
			return "", err
		}
		e.logger.Info("wrote image prompts", "input", u.label(), "output", out)
		return out, nil
	})
}

func (s *Imagery) characters(e *env) (string, error) {
	if s.opts.Characters == "" {
		return e.home.ReadCharacters()
	}
	text, err := textio.ReadDocument(s.opts.Characters)
	if err != nil {
		return "", fmt.Errorf("failed to read characters file: %w", err)
	}
	return text, nil
}

var _ pipeline.Stage = (*Imagery)(nil)
