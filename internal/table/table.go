// Package table holds the tabular types shared by extraction, reconciliation
// and consolidation, plus their CSV and markdown codecs.
package table

import (
	"fmt"
	"slices"
)

// Column names of a table built from shot/prompt records.
const (
	ColumnScene  = "Scene"
	ColumnShot   = "Shot"
	ColumnPrompt = "Prompt"
)

// RecordColumns is the column order of a record table.
var RecordColumns = []string{ColumnScene, ColumnShot, ColumnPrompt}

// Row maps column name to cell value.
type Row map[string]string

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Record is one scene/shot/prompt triple. A missing shot is "", never omitted.
type Record struct {
	Scene  string `json:"scene"`
	Shot   string `json:"shot"`
	Prompt string `json:"prompt"`
}

// Row renders the record with the record column names.
func (r Record) Row() Row {
	return Row{
		ColumnScene:  r.Scene,
		ColumnShot:   r.Shot,
		ColumnPrompt: r.Prompt,
	}
}

// SourceTable is the tabular form of a single input source.
// Every row carries exactly the keys listed in Columns.
type SourceTable struct {
	ID      string
	Columns []string
	Rows    []Row
}

// FromRecords builds a source table with the record columns.
func FromRecords(id string, records []Record) *SourceTable {
	t := &SourceTable{
		ID:      id,
		Columns: slices.Clone(RecordColumns),
		Rows:    make([]Row, 0, len(records)),
	}
	for _, rec := range records {
		t.Rows = append(t.Rows, rec.Row())
	}
	return t
}

// Len returns the number of rows.
func (t *SourceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Validate checks that every row has exactly the declared columns.
func (t *SourceTable) Validate() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c] {
			return fmt.Errorf("table %s: duplicate column %q", t.ID, c)
		}
		seen[c] = true
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("table %s: row %d has %d cells, want %d", t.ID, i, len(row), len(t.Columns))
		}
		for k := range row {
			if !seen[k] {
				return fmt.Errorf("table %s: row %d has undeclared column %q", t.ID, i, k)
			}
		}
	}
	return nil
}

// ConsolidatedRow is a row of the consolidated table along with the
// identifier of the source it came from.
type ConsolidatedRow struct {
	Source string
	Values Row
}

// Consolidated is the merged table: the ordered union of all source columns
// and every source row in processing order.
type Consolidated struct {
	Columns []string
	Rows    []ConsolidatedRow
}

// Len returns the number of rows.
func (c *Consolidated) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Rows)
}
