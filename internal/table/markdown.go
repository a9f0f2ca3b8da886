package table

import (
	"fmt"
	"regexp"
	"strings"
)

var separatorRow = regexp.MustCompile(`^\|?\s*:?-{3,}`)

// ParseMarkdownTable reads a | Scene | Shot | Prompt | markdown table, as
// produced by a model asked to tabulate image prompts.
//
// Lines before the first header row are ignored. Separator rows and
// repeated header rows are dropped; rows without exactly three cells are
// skipped with a diagnostic. Bold markers inside prompts are removed.
func ParseMarkdownTable(text string) ([]Record, []Diagnostic) {
	var (
		records     []Record
		diagnostics []Diagnostic
		inTable     bool
	)

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if !strings.Contains(line, "|") {
			continue
		}
		cells := splitCells(line)
		if isHeaderRow(cells) {
			inTable = true
			continue
		}
		if !inTable || separatorRow.MatchString(line) {
			continue
		}
		if len(cells) != 3 {
			diagnostics = append(diagnostics, Diagnostic{
				Line:   i + 1,
				Reason: fmt.Sprintf("table row has %d cells, want 3", len(cells)),
			})
			continue
		}
		records = append(records, Record{
			Scene:  cells[0],
			Shot:   cells[1],
			Prompt: strings.ReplaceAll(cells[2], "**", ""),
		})
	}

	if !inTable && strings.TrimSpace(text) != "" {
		diagnostics = append(diagnostics, Diagnostic{Reason: "no table header with a Scene column found"})
	}
	return records, diagnostics
}

func isHeaderRow(cells []string) bool {
	return len(cells) > 0 && strings.EqualFold(strings.Trim(cells[0], "* "), ColumnScene)
}

// splitCells splits a table row on unescaped pipes, dropping the outer ones.
func splitCells(line string) []string {
	line = strings.TrimPrefix(line, "|")
	if strings.HasSuffix(line, "|") && !strings.HasSuffix(line, `\|`) {
		line = line[:len(line)-1]
	}

	var (
		cells []string
		cur   strings.Builder
	)
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\\' && i+1 < len(line) && line[i+1] == '|':
			cur.WriteByte('|')
			i++
		case line[i] == '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(line[i])
		}
	}
	cells = append(cells, strings.TrimSpace(cur.String()))
	return cells
}
