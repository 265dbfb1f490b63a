package collections

import (
	"slices"

	"github.com/erazemk/omara/internal/model"
)

// ExpansionState records which groups a session keeps expanded. It lives in
// memory only and is reset when the session's owner changes.
type ExpansionState struct {
	// Open is the set of expanded group names, in canonical order.
	Open []string `json:"expanded"`
	// Seen holds the group names present at the previous merge. Only names
	// missing from it count as newly appeared.
	Seen []string `json:"-"`
	// AutoOpened is set once the first non-empty load has opened the
	// favorites and default groups.
	AutoOpened bool `json:"-"`
}

// IsOpen reports whether name is expanded.
func (s ExpansionState) IsOpen(name string) bool {
	return slices.Contains(s.Open, name)
}

// Expand returns a copy of s with name expanded.
func (s ExpansionState) Expand(name string) ExpansionState {
	if s.IsOpen(name) {
		return s
	}
	s.Open = SortNames(append(slices.Clone(s.Open), name))
	return s
}

// Collapse returns a copy of s with name collapsed.
func (s ExpansionState) Collapse(name string) ExpansionState {
	if !s.IsOpen(name) {
		return s
	}
	s.Open = slices.DeleteFunc(slices.Clone(s.Open), func(n string) bool { return n == name })
	return s
}

// Toggle flips name between expanded and collapsed.
func (s ExpansionState) Toggle(name string) ExpansionState {
	if s.IsOpen(name) {
		return s.Collapse(name)
	}
	return s.Expand(name)
}

// Merge folds the current groups into prev:
//   - names that no longer exist are dropped from the open set;
//   - the first non-empty load opens favorites and the default group once;
//   - afterwards, a group that newly appears is opened when it is favorites,
//     the default group, or has outfits. Groups the user collapsed stay
//     collapsed because they are not new.
func Merge(groups []Group, prev ExpansionState) ExpansionState {
	sizes := make(map[string]int, len(groups))
	for _, g := range groups {
		sizes[g.Name] = len(g.Outfits)
	}

	open := make([]string, 0, len(prev.Open)+2)
	for _, name := range prev.Open {
		if _, ok := sizes[name]; ok {
			open = append(open, name)
		}
	}

	next := ExpansionState{AutoOpened: prev.AutoOpened}

	if !prev.AutoOpened {
		if len(groups) > 0 {
			if _, ok := sizes[model.FavoritesCollection]; ok {
				open = append(open, model.FavoritesCollection)
			}
			if sizes[model.DefaultCollection] > 0 {
				open = append(open, model.DefaultCollection)
			}
			next.AutoOpened = true
		}
	} else {
		for _, g := range groups {
			if slices.Contains(prev.Seen, g.Name) || slices.Contains(open, g.Name) {
				continue
			}
			if g.Name == model.FavoritesCollection || g.Name == model.DefaultCollection || len(g.Outfits) > 0 {
				open = append(open, g.Name)
			}
		}
	}

	next.Open = SortNames(open)
	next.Seen = SortNames(Names(groups))
	return next
}
