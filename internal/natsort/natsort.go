// Package natsort orders identifiers the way people read them:
// "scene2" before "scene10", case ignored for text.
//
// An identifier is split into maximal runs of ASCII digits and non-digits.
// Runs are compared pairwise:
//   - digit vs digit: by numeric magnitude, leading zeros ignored
//   - text vs text: case-insensitively, by code point
//   - digit vs text: the digit run sorts first
//
// An identifier whose runs are exhausted sorts first. Identifiers that tie
// under these rules are ordered by their literal bytes, so Compare is a
// strict total order.
package natsort

import (
	"slices"
	"strings"
)

type run struct {
	text   string
	digits bool
}

func split(s string) []run {
	var runs []run
	start := 0
	for i := 0; i < len(s); i++ {
		if i == start {
			continue
		}
		if isDigit(s[i]) != isDigit(s[start]) {
			runs = append(runs, run{text: s[start:i], digits: isDigit(s[start])})
			start = i
		}
	}
	if start < len(s) {
		runs = append(runs, run{text: s[start:], digits: isDigit(s[start])})
	}
	return runs
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Compare returns -1, 0 or +1 as a orders before, equal to, or after b.
// It returns 0 only when a == b.
func Compare(a, b string) int {
	if c := compareRuns(split(a), split(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Less reports whether a orders before b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Sort sorts identifiers in place.
func Sort(ids []string) {
	slices.SortStableFunc(ids, Compare)
}

// SortFunc sorts items in place by the natural order of key(item).
func SortFunc[T any](items []T, key func(T) string) {
	slices.SortStableFunc(items, func(a, b T) int { return Compare(key(a), key(b)) })
}

func compareRuns(a, b []run) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		ra, rb := a[i], b[i]
		var c int
		switch {
		case ra.digits && rb.digits:
			c = compareNumeric(ra.text, rb.text)
		case ra.digits:
			c = -1
		case rb.digits:
			c = 1
		default:
			c = strings.Compare(strings.ToLower(ra.text), strings.ToLower(rb.text))
		}
		if c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// compareNumeric compares two digit strings by value without parsing them,
// so arbitrarily long runs never overflow.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
