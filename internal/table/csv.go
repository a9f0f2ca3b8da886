package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Diagnostic describes input that was skipped.
type Diagnostic struct {
	Line   int    `json:"line" yaml:"line"`
	Reason string `json:"reason" yaml:"reason"`
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %s", d.Line, d.Reason)
	}
	return d.Reason
}

// ReadResult is the outcome of reading a CSV source.
type ReadResult struct {
	Table       *SourceTable
	Skipped     int
	Diagnostics []Diagnostic
}

// ReadCSV reads a header-first CSV document into a source table.
//
// Rows are read tolerantly: short rows are padded with "", and rows with
// quoting errors or more fields than the header are skipped with a
// diagnostic. A quote left open on one line skips only that line; reading
// resumes on the next. Only I/O failures and an unreadable header are
// errors. An empty document yields an empty table.
func ReadCSV(id string, r io.Reader) (*ReadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	lines := lineOffsets(data)

	res := &ReadResult{Table: &SourceTable{ID: id}}

	// base is the line number in data of the reader's first line.
	base := 1
	cr := newCSVReader(data)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", id, err)
	}
	columns := normalizeHeader(header)
	res.Table.Columns = columns

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, fmt.Errorf("read %s: %w", id, err)
			}
			startLine := base + pe.StartLine - 1
			res.skip(startLine, pe.Err.Error())
			if pe.Line > pe.StartLine {
				if startLine >= len(lines) {
					break
				}
				base = startLine + 1
				cr = newCSVReader(data[lines[startLine]:])
			}
			continue
		}
		line, _ := cr.FieldPos(0)
		line += base - 1

		rec = trimTrailingEmpty(rec, len(columns))
		if len(rec) > len(columns) {
			res.skip(line, fmt.Sprintf("row has %d fields, header has %d", len(rec), len(columns)))
			continue
		}
		if isBlank(rec) {
			res.skip(line, "blank row")
			continue
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		res.Table.Rows = append(res.Table.Rows, row)
	}

	return res, nil
}

func newCSVReader(data []byte) *csv.Reader {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	return cr
}

// lineOffsets returns the byte offset at which each line of data starts;
// offsets[n-1] is the start of line n.
func lineOffsets(data []byte) []int {
	offsets := []int{0}
	for i, b := range data {
		if b == '\n' && i+1 < len(data) {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

func (r *ReadResult) skip(line int, reason string) {
	r.Skipped++
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Line: line, Reason: reason})
}

// normalizeHeader trims names, strips a UTF-8 BOM, names blank columns and
// suffixes duplicates so every column name is unique.
func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		unique := name
		for n := 1; seen[unique]; n++ {
			unique = fmt.Sprintf("%s.%d", name, n)
		}
		seen[unique] = true
		columns[i] = unique
	}
	return columns
}

// sourceColumnName suffixes name the way normalizeHeader does when the
// table already has a column called name.
func sourceColumnName(name string, columns []string) string {
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		seen[col] = true
	}
	unique := name
	for n := 1; seen[unique]; n++ {
		unique = fmt.Sprintf("%s.%d", name, n)
	}
	return unique
}

// trimTrailingEmpty drops empty cells beyond width, which trailing commas produce.
func trimTrailingEmpty(rec []string, width int) []string {
	for len(rec) > width && rec[len(rec)-1] == "" {
		rec = rec[:len(rec)-1]
	}
	return rec
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteOptions controls CSV serialisation of a consolidated table.
type WriteOptions struct {
	// SourceColumn, when set, appends a column holding each row's source id.
	SourceColumn string
}

// WriteCSV writes the table as CSV: a header line, then one line per row.
// Fields containing commas, quotes or newlines are quoted with inner quotes
// doubled; line endings are \n.
func (c *Consolidated) WriteCSV(w io.Writer, opts WriteOptions) error {
	header := append([]string(nil), c.Columns...)
	if opts.SourceColumn != "" {
		header = append(header, sourceColumnName(opts.SourceColumn, c.Columns))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(header))
	for i, row := range c.Rows {
		for j, col := range c.Columns {
			record[j] = row.Values[col]
		}
		if opts.SourceColumn != "" {
			record[len(record)-1] = row.Source
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV writes the source table as CSV in the same format as
// Consolidated.WriteCSV.
func (t *SourceTable) WriteCSV(w io.Writer) error {
	c := &Consolidated{Columns: t.Columns, Rows: make([]ConsolidatedRow, len(t.Rows))}
	for i, row := range t.Rows {
		c.Rows[i] = ConsolidatedRow{Source: t.ID, Values: row}
	}
	return c.WriteCSV(w, WriteOptions{})
}
