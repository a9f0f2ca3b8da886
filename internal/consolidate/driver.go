// Package consolidate merges many prompt tables into one consolidated table.
package consolidate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/shotlist/internal/extract"
	"github.com/jackzampolin/shotlist/internal/natsort"
	"github.com/jackzampolin/shotlist/internal/schema"
	"github.com/jackzampolin/shotlist/internal/table"
	"github.com/jackzampolin/shotlist/internal/textio"
)

var (
	ErrNoSources = errors.New("no sources to consolidate")
	ErrNoRecords = errors.New("no records to write")
)

// Options configures a Driver.
type Options struct {
	// Grammar for text sources. Defaults to extract.DefaultGrammar.
	Grammar *extract.Grammar
	Logger  *slog.Logger
}

// Driver runs consolidations.
type Driver struct {
	extractor *extract.Extractor
	logger    *slog.Logger
}

// Result is the outcome of a consolidation run.
type Result struct {
	Table    *table.Consolidated
	Manifest *Manifest
}

// NewDriver creates a driver.
func NewDriver(opts Options) *Driver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		extractor: extract.New(opts.Grammar),
		logger:    logger,
	}
}

// Run reads every source in natural order of ID and folds its records into
// one table. A source that cannot be read or parsed is reported in the
// manifest and the run continues. Cancellation is checked between sources.
func (d *Driver) Run(ctx context.Context, sources []Source) (*Result, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	ordered := slices.Clone(sources)
	natsort.SortFunc(ordered, Source.ID)

	start := time.Now()
	m := &Manifest{RunID: uuid.New().String(), StartedAt: start}
	rec := schema.New()

	for i, src := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("consolidation cancelled after %d of %d sources: %w", i, len(ordered), err)
		}

		tbl, report := d.load(ctx, src)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("consolidation cancelled after %d of %d sources: %w", i, len(ordered), err)
		}

		switch {
		case report.Status == StatusError:
			d.logger.Warn("source failed", "source", src.ID(), "error", report.Error)
		case tbl.Len() == 0:
			report.Status = StatusEmpty
			report.Diagnostics = append(report.Diagnostics, "no records found")
			d.logger.Warn("source has no records", "source", src.ID(), "skipped", report.Skipped)
		default:
			res := rec.Fold(tbl)
			report.Status = StatusOK
			report.Records = res.Rows
			report.AddedColumns = res.Added
			d.logger.Debug("folded source", "source", src.ID(), "rows", res.Rows, "added_columns", res.Added)
		}
		m.Sources = append(m.Sources, report)
	}

	out := rec.Table()
	m.Columns = slices.Clone(out.Columns)
	m.Rows = out.Len()
	m.Duration = time.Since(start).Round(time.Millisecond).String()

	ok, empty, failed := m.Counts()
	d.logger.Info("consolidated sources",
		"run_id", m.RunID, "sources", len(ordered), "ok", ok, "empty", empty, "failed", failed,
		"rows", m.Rows, "columns", len(m.Columns))

	return &Result{Table: out, Manifest: m}, nil
}

func (d *Driver) load(ctx context.Context, src Source) (*table.SourceTable, SourceReport) {
	report := SourceReport{ID: src.ID(), Format: src.Format()}
	fail := func(err error) (*table.SourceTable, SourceReport) {
		report.Status = StatusError
		report.Error = err.Error()
		return nil, report
	}

	data, err := src.Read(ctx)
	if err != nil {
		return fail(fmt.Errorf("read: %w", err))
	}
	text, enc := textio.Decode(data)
	report.Encoding = enc

	var diags []table.Diagnostic
	var tbl *table.SourceTable

	switch src.Format() {
	case FormatCSV:
		res, err := table.ReadCSV(src.ID(), strings.NewReader(text))
		if err != nil {
			return fail(err)
		}
		tbl, report.Skipped, diags = res.Table, res.Skipped, res.Diagnostics
	case FormatText:
		res := d.extractor.Extract(text)
		tbl, report.Skipped, diags = table.FromRecords(src.ID(), res.Records), res.Skipped, res.Diagnostics
		if len(res.Records) == 0 {
			// Generated tables may have been saved as Markdown.
			if records, mdDiags := table.ParseMarkdownTable(text); len(records) > 0 {
				tbl, report.Skipped, diags = table.FromRecords(src.ID(), records), len(mdDiags), mdDiags
			}
		}
	default:
		return fail(fmt.Errorf("unsupported format %q", src.Format()))
	}

	for _, diag := range diags {
		report.Diagnostics = append(report.Diagnostics, diag.String())
	}
	return tbl, report
}

// WriteFile atomically writes the consolidated table to path as CSV.
func WriteFile(path string, t *table.Consolidated, opts table.WriteOptions) error {
	if t.Len() == 0 {
		return ErrNoRecords
	}
	return textio.WriteAtomic(path, func(w io.Writer) error {
		return t.WriteCSV(w, opts)
	})
}
