package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jackzampolin/shotlist/internal/table"
)

func src(id string, columns []string, rows ...table.Row) *table.SourceTable {
	return &table.SourceTable{ID: id, Columns: columns, Rows: rows}
}

func TestReconciler_ColumnUnion(t *testing.T) {
	r := New()
	r.Fold(src("a", []string{"Scene", "Shot"}, table.Row{"Scene": "1", "Shot": "1A"}))
	res := r.Fold(src("b", []string{"Scene", "Shot", "Notes"}, table.Row{"Scene": "2", "Shot": "2A", "Notes": "rain"}))

	if diff := cmp.Diff([]string{"Notes"}, res.Added); diff != "" {
		t.Errorf("Added mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Scene", "Shot", "Notes"}, r.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	got := r.Table()
	want := []table.ConsolidatedRow{
		{Source: "a", Values: table.Row{"Scene": "1", "Shot": "1A", "Notes": ""}},
		{Source: "b", Values: table.Row{"Scene": "2", "Shot": "2A", "Notes": "rain"}},
	}
	if diff := cmp.Diff(want, got.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestReconciler_FirstSeenOrder(t *testing.T) {
	r := New()
	r.Fold(src("a", []string{"B", "A"}))
	r.Fold(src("b", []string{"C", "A", "D", "B"}))
	r.Fold(src("c", []string{"E", "C"}))

	if diff := cmp.Diff([]string{"B", "A", "C", "D", "E"}, r.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestReconciler_EmissionKeysVersusFinalPadding(t *testing.T) {
	r := New()
	r.Fold(src("a", []string{"Scene"}, table.Row{"Scene": "1"}))
	r.Fold(src("b", []string{"Scene", "Notes"}, table.Row{"Scene": "2", "Notes": "x"}))

	snap := r.Snapshot()
	if _, ok := snap[0].Values["Notes"]; ok {
		t.Error("row emitted before Notes appeared should not carry it until finalisation")
	}
	if len(snap[1].Values) != 2 {
		t.Errorf("second row keys = %v, want Scene and Notes", snap[1].Values)
	}

	final := r.Table()
	for i, row := range final.Rows {
		if len(row.Values) != len(final.Columns) {
			t.Errorf("row %d has %d keys, want %d", i, len(row.Values), len(final.Columns))
		}
	}
}

func TestReconciler_Idempotence(t *testing.T) {
	tbl := src("a", []string{"Scene", "Shot"},
		table.Row{"Scene": "1", "Shot": "1A"},
		table.Row{"Scene": "1", "Shot": "1B"},
	)

	r := New()
	r.Fold(tbl)
	res := r.Fold(tbl)

	if len(res.Added) != 0 {
		t.Errorf("second fold added columns %v", res.Added)
	}
	if diff := cmp.Diff([]string{"Scene", "Shot"}, r.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	rows := r.Table().Rows
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if diff := cmp.Diff(rows[:2], rows[2:]); diff != "" {
		t.Errorf("row blocks differ (-first +second):\n%s", diff)
	}
}

func TestReconciler_DoesNotMutateSource(t *testing.T) {
	row := table.Row{"Scene": "1"}
	tbl := src("a", []string{"Scene"}, row)

	r := New()
	r.Fold(src("z", []string{"Notes"}))
	r.Fold(tbl)

	out := r.Table()
	out.Rows[0].Values["Scene"] = "changed"

	if len(row) != 1 || row["Scene"] != "1" {
		t.Errorf("source row was modified: %v", row)
	}
	if diff := cmp.Diff([]string{"Scene"}, tbl.Columns); diff != "" {
		t.Errorf("source columns modified (-want +got):\n%s", diff)
	}
	if r.Table().Rows[0].Values["Scene"] != "1" {
		t.Error("finalised table shares rows with the reconciler")
	}
}

func TestReconciler_DuplicateColumnsInOneSource(t *testing.T) {
	r := New()
	res := r.Fold(src("a", []string{"Scene", "Scene"}))
	if diff := cmp.Diff([]string{"Scene"}, res.Added); diff != "" {
		t.Errorf("Added mismatch (-want +got):\n%s", diff)
	}
}
