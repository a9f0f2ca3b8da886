package stages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jackzampolin/shotlist/internal/extract"
	"github.com/jackzampolin/shotlist/internal/pipeline"
	"github.com/jackzampolin/shotlist/internal/prompts/tables"
	"github.com/jackzampolin/shotlist/internal/providers"
	"github.com/jackzampolin/shotlist/internal/table"
	"github.com/jackzampolin/shotlist/internal/textio"
)

// Table methods.
const (
	MethodExtract = "extract"
	MethodLLM     = "llm"
)

// Table modes.
const (
	ModeIndividual = "individual"
	ModePairs      = "pairs"
	ModeCombined   = "combined"
)

// ErrNoRows is returned for an input that yields no table rows.
var ErrNoRows = errors.New("no table rows found")

// TablesOptions configures the tables stage. Empty fields fall back to the
// stages.tables config.
type TablesOptions struct {
	Method string // extract or llm
	Mode   string // individual, pairs or combined
	Format string // markdown or json, for the llm method
}

// Tables turns image prompt files into scene/shot/prompt CSV tables.
type Tables struct {
	opts TablesOptions
}

// NewTables creates the tables stage.
func NewTables(opts TablesOptions) *Tables {
	return &Tables{opts: opts}
}

func (s *Tables) Name() string           { return NameTables }
func (s *Tables) Dependencies() []string { return []string{NameImagery} }
func (s *Tables) Description() string {
	return "Convert image prompts into scene/shot/prompt CSV tables"
}

// tablesRun is the resolved settings of one run.
type tablesRun struct {
	*env
	method string
	mode   string
	format string
	dir    string

	extractor *extract.Extractor
	caller    *providers.Caller
}

// Run writes <stem>_prompts_table.csv per file, <a>_<b>_prompts_table.csv
// per pair, or prompts_table.csv in combined mode.
func (s *Tables) Run(ctx context.Context, in pipeline.Input) (*pipeline.Output, error) {
	e, err := load(ctx, NameTables)
	if err != nil {
		return nil, err
	}
	r := &tablesRun{
		env:    e,
		method: first(s.opts.Method, e.cfg.Stages.Tables.Method, MethodExtract),
		mode:   first(s.opts.Mode, e.cfg.Stages.Tables.Mode, ModeIndividual),
		format: first(s.opts.Format, e.cfg.Stages.Tables.Format, tables.FormatMarkdown),
	}

	units, err := s.units(r.mode, in.Paths)
	if err != nil {
		return nil, err
	}
	if r.dir, err = outputDir(in.OutputDir, e.home.TablesDir()); err != nil {
		return nil, err
	}

	switch r.method {
	case MethodExtract:
		g, err := extract.CompileGrammar(e.cfg.Grammar)
		if err != nil {
			return nil, err
		}
		r.extractor = extract.New(g)
	case MethodLLM:
		if r.format != tables.FormatMarkdown && r.format != tables.FormatJSON {
			return nil, fmt.Errorf("unknown tables format %q", r.format)
		}
		if r.caller, err = e.caller(e.cfg.Stages.Tables.StageCfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown tables method %q", r.method)
	}

	e.logger.Info("building prompt tables", "units", len(units), "method", r.method, "mode", r.mode)
	return process(ctx, e, NameTables, units, r.build)
}

func (s *Tables) units(mode string, paths []string) ([]unit, error) {
	files, err := collectInputs(paths, isText)
	if err != nil {
		return nil, err
	}
	switch mode {
	case ModeIndividual:
		return individual(files), nil
	case ModePairs:
		var units []unit
		for i := 0; i < len(files); i += 2 {
			end := min(i+2, len(files))
			u := unit{Name: stem(files[i]), Paths: files[i:end]}
			if end-i == 2 {
				u.Name += "_" + stem(files[i+1])
			}
			units = append(units, u)
		}
		return units, nil
	case ModeCombined:
		return []unit{{Paths: files}}, nil
	default:
		return nil, fmt.Errorf("unknown tables mode %q", mode)
	}
}

func (r *tablesRun) build(ctx context.Context, u unit) (string, error) {
	files := make([]tables.File, 0, len(u.Paths))
	for _, p := range u.Paths {
		text, err := textio.ReadDocument(p)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", p, err)
		}
		if text == "" {
			r.logger.Warn("skipping empty prompt file", "path", p)
			continue
		}
		files = append(files, tables.File{Name: filepath.Base(p), Content: text})
	}
	if len(files) == 0 {
		return "", fmt.Errorf("prompt files are empty")
	}

	var (
		records []table.Record
		err     error
	)
	if r.method == MethodExtract {
		records = r.extract(files)
	} else {
		records, err = r.generate(ctx, files, u.label())
		if err != nil {
			return "", err
		}
	}
	if len(records) == 0 {
		return "", ErrNoRows
	}

	outName := "prompts_table.csv"
	if u.Name != "" {
		outName = u.Name + "_prompts_table.csv"
	}
	out := filepath.Join(r.dir, outName)
	tbl := table.FromRecords(outName, records)
	if err := textio.WriteAtomic(out, func(w io.Writer) error {
		return tbl.WriteCSV(w)
	}); err != nil {
		return "", err
	}
	r.logger.Info("wrote prompt table", "input", u.label(), "output", out, "rows", len(records))
	return out, nil
}

func (r *tablesRun) extract(files []tables.File) []table.Record {
	var records []table.Record
	for _, f := range files {
		res := r.extractor.Extract(f.Content)
		if res.Skipped > 0 {
			r.logger.Debug("skipped prompt blocks", "file", f.Name, "skipped", res.Skipped, "diagnostics", len(res.Diagnostics))
		}
		records = append(records, res.Records...)
	}
	return records
}

func (r *tablesRun) generate(ctx context.Context, files []tables.File, source string) ([]table.Record, error) {
	req, system, err := tables.BuildRequest(r.prompts, tables.Input{Files: files, Format: r.format})
	if err != nil {
		return nil, err
	}
	res, err := r.env.generate(ctx, r.caller, req, system, NameTables, source, r.cfg.Stages.Tables.StageCfg)
	if err != nil {
		return nil, err
	}

	if r.format == tables.FormatJSON {
		return tables.ParseResult(res.ParsedJSON)
	}
	records, diags := table.ParseMarkdownTable(res.Content)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: response has no markdown table rows", providers.ErrMalformedResponse)
	}
	if len(diags) > 0 {
		r.logger.Debug("skipped markdown table lines", "source", source, "skipped", len(diags))
	}
	return records, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ pipeline.Stage = (*Tables)(nil)
