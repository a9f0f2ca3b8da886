package natsort

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"file2.csv", "file10.csv", -1},
		{"file10.csv", "file2.csv", 1},
		{"a10.csv", "b.csv", -1},
		{"Scene2", "scene10", -1},
		{"scene1.csv", "scene10.csv", -1},
		{"file01", "file1", -1}, // tie broken by literal bytes
		{"A", "a", -1},
		{"abc", "abc1", -1},
		{"10a", "a10", -1},
		{"same", "same", 0},
		{"", "a", -1},
		{"99999999999999999999999", "100000000000000000000000", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSort(t *testing.T) {
	ids := []string{"scene10.csv", "Scene2.csv", "scene1.csv", "b.csv", "a10.csv", "scene01.csv"}
	Sort(ids)

	want := []string{"a10.csv", "b.csv", "scene01.csv", "scene1.csv", "Scene2.csv", "scene10.csv"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("Sort mismatch (-want +got):\n%s", diff)
	}
}

func TestSortFunc(t *testing.T) {
	type file struct{ name string }
	files := []file{{"part10"}, {"part9"}, {"part1"}}
	SortFunc(files, func(f file) string { return f.name })

	got := []string{files[0].name, files[1].name, files[2].name}
	if diff := cmp.Diff([]string{"part1", "part9", "part10"}, got); diff != "" {
		t.Errorf("SortFunc mismatch (-want +got):\n%s", diff)
	}
}

func TestCompare_TotalOrder(t *testing.T) {
	sample := []string{
		"", "a", "A", "a1", "a01", "a001", "a2", "a10", "A10", "b", "B1",
		"1", "01", "10", "1a", "x-2", "x-10", "scene", "Scene", "scène2",
	}

	for _, a := range sample {
		if Compare(a, a) != 0 {
			t.Errorf("Compare(%q, %q) != 0", a, a)
		}
		for _, b := range sample {
			ab, ba := Compare(a, b), Compare(b, a)
			if ab != -ba {
				t.Errorf("antisymmetry violated: Compare(%q,%q)=%d Compare(%q,%q)=%d", a, b, ab, b, a, ba)
			}
			if a != b && ab == 0 {
				t.Errorf("distinct identifiers %q and %q compare equal", a, b)
			}
			for _, c := range sample {
				if Compare(a, b) < 0 && Compare(b, c) < 0 && Compare(a, c) >= 0 {
					t.Errorf("transitivity violated: %q < %q < %q", a, b, c)
				}
			}
		}
	}
}

func TestSort_Deterministic(t *testing.T) {
	base := []string{"t3", "T3", "t03", "t20", "t2", "u", "U1"}
	want := append([]string(nil), base...)
	Sort(want)

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), base...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		Sort(shuffled)
		if diff := cmp.Diff(want, shuffled); diff != "" {
			t.Fatalf("order depends on input permutation (-want +got):\n%s", diff)
		}
	}
}
