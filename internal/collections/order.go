// Package collections derives grouped, ordered outfit collections from a flat
// outfit list and keeps the per-session expansion state in step with them.
// Everything here is pure: no I/O, no clocks, no shared state.
package collections

import (
	"cmp"
	"slices"
	"strings"

	"github.com/erazemk/omara/internal/model"
)

// Compare orders collection names: favorites first, default second, then
// the rest case-insensitively. Names that differ only in case fall back to
// byte order, so Compare is a strict total order over distinct names.
func Compare(a, b string) int {
	if a == b {
		return 0
	}
	if c := cmp.Compare(rank(a), rank(b)); c != 0 {
		return c
	}
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func rank(name string) int {
	switch name {
	case model.FavoritesCollection:
		return 0
	case model.DefaultCollection:
		return 1
	default:
		return 2
	}
}

// SortNames returns a sorted, de-duplicated copy of names.
func SortNames(names []string) []string {
	out := slices.Clone(names)
	slices.SortFunc(out, Compare)
	return slices.Compact(out)
}
