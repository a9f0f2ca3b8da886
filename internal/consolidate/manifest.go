package consolidate

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// SourceStatus is the outcome of processing one source.
type SourceStatus string

const (
	StatusOK    SourceStatus = "ok"
	StatusEmpty SourceStatus = "empty"
	StatusError SourceStatus = "error"
)

// SourceReport records what happened to one source.
type SourceReport struct {
	ID           string       `json:"id" yaml:"id"`
	Format       Format       `json:"format" yaml:"format"`
	Encoding     string       `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Status       SourceStatus `json:"status" yaml:"status"`
	Records      int          `json:"records" yaml:"records"`
	Skipped      int          `json:"skipped" yaml:"skipped"`
	AddedColumns []string     `json:"added_columns,omitempty" yaml:"added_columns,omitempty"`
	Diagnostics  []string     `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Error        string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// Manifest summarises a consolidation run.
type Manifest struct {
	RunID     string         `json:"run_id" yaml:"run_id"`
	StartedAt time.Time      `json:"started_at" yaml:"started_at"`
	Duration  string         `json:"duration" yaml:"duration"`
	Sources   []SourceReport `json:"sources" yaml:"sources"`
	Columns   []string       `json:"columns" yaml:"columns"`
	Rows      int            `json:"rows" yaml:"rows"`
	Output    string         `json:"output,omitempty" yaml:"output,omitempty"`
}

// Counts returns the number of sources per status.
func (m *Manifest) Counts() (ok, empty, failed int) {
	for _, s := range m.Sources {
		switch s.Status {
		case StatusOK:
			ok++
		case StatusEmpty:
			empty++
		case StatusError:
			failed++
		}
	}
	return ok, empty, failed
}

// WriteText writes a human-readable summary.
func (m *Manifest) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tFORMAT\tSTATUS\tRECORDS\tSKIPPED\tNOTES")
	for _, s := range m.Sources {
		notes := s.Error
		if notes == "" && len(s.AddedColumns) > 0 {
			notes = "new columns: " + strings.Join(s.AddedColumns, ", ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", s.ID, s.Format, s.Status, s.Records, s.Skipped, notes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	ok, empty, failed := m.Counts()
	fmt.Fprintf(w, "\n%d rows, %d columns (%s)\n", m.Rows, len(m.Columns), strings.Join(m.Columns, ", "))
	fmt.Fprintf(w, "sources: %d ok, %d empty, %d failed\n", ok, empty, failed)
	if m.Output != "" {
		fmt.Fprintf(w, "wrote %s\n", m.Output)
	}
	for _, s := range m.Sources {
		for _, d := range s.Diagnostics {
			fmt.Fprintf(w, "  %s: %s\n", s.ID, d)
		}
	}
	return nil
}
