// Package stages implements the generation pipeline: script to shot list,
// shot list to image prompts, image prompts to prompt tables, and tables to
// one consolidated table. Each stage pulls its services from the context.
package stages

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/shotlist/internal/config"
	"github.com/jackzampolin/shotlist/internal/home"
	"github.com/jackzampolin/shotlist/internal/llmcall"
	"github.com/jackzampolin/shotlist/internal/natsort"
	"github.com/jackzampolin/shotlist/internal/pipeline"
	"github.com/jackzampolin/shotlist/internal/prompts"
	"github.com/jackzampolin/shotlist/internal/providers"
	"github.com/jackzampolin/shotlist/internal/svcctx"
	"github.com/jackzampolin/shotlist/internal/textio"
)

// Stage names.
const (
	NameShots       = "shots"
	NameImagery     = "imagery"
	NameTables      = "tables"
	NameConsolidate = "consolidate"
)

// ErrNoServices is returned when a stage runs without services in its context.
var ErrNoServices = errors.New("stage services not found in context")

// Register adds every stage to reg in pipeline order.
func Register(reg *pipeline.Registry, shots ShotsOptions, imagery ImageryOptions, tables TablesOptions, consolidate ConsolidateOptions) error {
	for _, s := range []pipeline.Stage{
		NewShots(shots),
		NewImagery(imagery),
		NewTables(tables),
		NewConsolidate(consolidate),
	} {
		if err := reg.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// env is the per-run view of the services a stage needs.
type env struct {
	cfg      *config.Config
	home     *home.Dir
	registry *providers.Registry
	prompts  *prompts.Resolver
	recorder *llmcall.Recorder
	logger   *slog.Logger
}

func load(ctx context.Context, stage string) (*env, error) {
	svc := svcctx.ServicesFrom(ctx)
	if svc == nil || svc.Home == nil {
		return nil, ErrNoServices
	}
	cfg := svcctx.ConfigFrom(ctx)
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &env{
		cfg:      cfg,
		home:     svc.Home,
		registry: svc.Registry,
		prompts:  svc.Prompts,
		recorder: svc.Recorder,
		logger:   svcctx.LoggerFrom(ctx).With("stage", stage),
	}, nil
}

// caller returns a retrying caller for the provider configured for sc.
// A provider that is missing or has no key is an authentication failure.
func (e *env) caller(sc config.StageCfg) (*providers.Caller, error) {
	name := e.cfg.ProviderFor(sc)
	if e.registry == nil || !e.registry.HasLLM(name) {
		return nil, fmt.Errorf("%w: LLM provider %q is not configured or has no API key", providers.ErrAuth, name)
	}
	cc := providers.CallerConfig{
		MaxAttempts: e.cfg.Defaults.MaxRetries,
		Logger:      e.logger,
	}
	if p, ok := e.cfg.GetLLMProvider(name); ok {
		cc.RequestsPerMinute = p.RateLimit
	}
	if e.recorder != nil {
		cc.Recorder = e.recorder
	}
	return e.registry.Caller(name, cc)
}

// generate sends req and returns the non-empty response text. Stage config
// overrides the request's model, temperature and token limit.
func (e *env) generate(ctx context.Context, c *providers.Caller, req *providers.ChatRequest, system *prompts.ResolvedPrompt, stage, source string, sc config.StageCfg) (*providers.ChatResult, error) {
	if sc.Model != "" {
		req.Model = sc.Model
	}
	if sc.Temperature > 0 {
		req.Temperature = sc.Temperature
	}
	if sc.MaxTokens > 0 {
		req.MaxTokens = sc.MaxTokens
	}
	req.RequestID = uuid.NewString()

	opts := llmcall.RecordOptions{Stage: stage, Source: source}
	if system != nil {
		opts.PromptKey = system.Key
		opts.PromptHash = system.Hash
	}
	res, err := c.Chat(llmcall.WithOptions(ctx, opts), req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Content) == "" && res.ParsedJSON == nil {
		return nil, fmt.Errorf("%s: %w: empty response", c.Name(), providers.ErrMalformedResponse)
	}
	return res, nil
}

// unit is one piece of work: a single file, or several files processed
// together in combine and pairs modes.
type unit struct {
	Name  string
	Paths []string
}

func (u unit) label() string {
	return strings.Join(u.Paths, ", ")
}

// process runs fn over units with at most workers in flight. Output files
// keep the order of units. Authentication failures and cancellation abort
// the stage; any other failure is recorded and the stage continues.
func process(ctx context.Context, e *env, stage string, units []unit, fn func(ctx context.Context, u unit) (string, error)) (*pipeline.Output, error) {
	files := make([]string, len(units))
	failures := make([]*pipeline.Failure, len(units))

	eg, egCtx := errgroup.WithContext(ctx)
	if n := e.cfg.Defaults.MaxWorkers; n > 0 {
		eg.SetLimit(n)
	}
	for i, u := range units {
		eg.Go(func() error {
			out, err := fn(egCtx, u)
			if err == nil {
				files[i] = out
				return nil
			}
			if errors.Is(err, providers.ErrAuth) || egCtx.Err() != nil {
				return err
			}
			e.logger.Warn("failed to process input", "input", u.label(), "error_type", providers.ErrorType(err), "error", err)
			failures[i] = &pipeline.Failure{
				Path:      u.label(),
				ErrorType: providers.ErrorType(err),
				Error:     err.Error(),
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	out := &pipeline.Output{Stage: stage, Files: []string{}}
	for i := range units {
		if failures[i] != nil {
			out.Failed = append(out.Failed, *failures[i])
		} else if files[i] != "" {
			out.Files = append(out.Files, files[i])
		}
	}
	return out, nil
}

// collectInputs expands paths into the accepted files beneath them, in
// natural order. Directories are walked recursively; hidden and temp files
// are skipped. An explicitly named file must be accepted.
func collectInputs(paths []string, accept func(path string) bool) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if !seen[abs] {
			seen[abs] = true
			files = append(files, path)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			if !accept(root) {
				return nil, fmt.Errorf("unsupported input file: %s", root)
			}
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			hidden := path != root && strings.HasPrefix(d.Name(), ".")
			if d.IsDir() {
				if hidden {
					return filepath.SkipDir
				}
				return nil
			}
			if hidden || textio.IsTemp(path) || !accept(path) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", pipeline.ErrNoInput, strings.Join(paths, ", "))
	}
	natsort.Sort(files)
	return files, nil
}

// individual makes one unit per file.
func individual(files []string) []unit {
	units := make([]unit, len(files))
	for i, f := range files {
		units[i] = unit{Name: stem(f), Paths: []string{f}}
	}
	return units
}

// combinedName picks the name for a combined output: the explicit name, the
// stem of a single input path, or "combined".
func combinedName(name string, paths []string) string {
	if name != "" {
		return name
	}
	if len(paths) == 1 {
		if s := stem(filepath.Clean(paths[0])); s != "" && s != "." {
			return s
		}
	}
	return "combined"
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func outputDir(override, fallback string) (string, error) {
	dir := override
	if dir == "" {
		dir = fallback
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return dir, nil
}

func isText(path string) bool {
	return strings.EqualFold(filepath.Ext(path), textio.ExtText)
}

// readAll reads and joins documents with a blank line between them.
func readAll(paths []string) (string, error) {
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		text, err := textio.ReadDocument(p)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", p, err)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
