// Package schema reconciles heterogeneous source tables into one schema.
//
// The reconciled column list is the ordered union of every folded table's
// columns: a column keeps the position at which it was first seen. Columns
// are never renamed, merged or coerced.
package schema

import (
	"slices"

	"github.com/jackzampolin/shotlist/internal/table"
)

// FoldResult summarises a single fold.
type FoldResult struct {
	Rows  int      // rows appended
	Added []string // columns first seen in this table
}

// Reconciler accumulates source tables into a consolidated table.
// It is not safe for concurrent use; one run owns one Reconciler.
type Reconciler struct {
	columns []string
	known   map[string]bool
	rows    []table.ConsolidatedRow
}

// New returns an empty reconciler.
func New() *Reconciler {
	return &Reconciler{known: make(map[string]bool)}
}

// Columns returns the current ordered column union.
func (r *Reconciler) Columns() []string {
	return slices.Clone(r.columns)
}

// Len returns the number of rows folded so far.
func (r *Reconciler) Len() int {
	return len(r.rows)
}

// Fold appends src to the running table. New columns are appended in the
// order src declares them; each row is copied and keyed to the full column
// list as it stands after the fold, missing cells set to "". src is never
// modified. Columns and rows of src are committed together.
func (r *Reconciler) Fold(src *table.SourceTable) FoldResult {
	var added []string
	for _, col := range src.Columns {
		if !r.known[col] && !slices.Contains(added, col) {
			added = append(added, col)
		}
	}
	columns := append(slices.Clone(r.columns), added...)

	rows := make([]table.ConsolidatedRow, 0, len(src.Rows))
	for _, row := range src.Rows {
		values := make(table.Row, len(columns))
		for _, col := range columns {
			values[col] = row[col]
		}
		rows = append(rows, table.ConsolidatedRow{Source: src.ID, Values: values})
	}

	r.columns = columns
	for _, col := range added {
		r.known[col] = true
	}
	r.rows = append(r.rows, rows...)

	return FoldResult{Rows: len(rows), Added: added}
}

// Table finalises the consolidated table: every row, including rows folded
// before later columns appeared, is padded to the final column union.
// The returned table shares nothing with the reconciler.
func (r *Reconciler) Table() *table.Consolidated {
	out := &table.Consolidated{
		Columns: slices.Clone(r.columns),
		Rows:    make([]table.ConsolidatedRow, len(r.rows)),
	}
	for i, row := range r.rows {
		values := make(table.Row, len(r.columns))
		for _, col := range r.columns {
			values[col] = row.Values[col]
		}
		out.Rows[i] = table.ConsolidatedRow{Source: row.Source, Values: values}
	}
	return out
}

// Snapshot returns the rows as emitted, without finalisation padding.
func (r *Reconciler) Snapshot() []table.ConsolidatedRow {
	out := make([]table.ConsolidatedRow, len(r.rows))
	for i, row := range r.rows {
		out[i] = table.ConsolidatedRow{Source: row.Source, Values: row.Values.Clone()}
	}
	return out
}
