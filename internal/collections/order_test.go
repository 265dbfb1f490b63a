package collections

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/omara/internal/model"
)

func TestCompareReservedNamesFirst(t *testing.T) {
	got := SortNames([]string{"work", "General", "Trips", "Favoritos", "beach", "Work"})
	assert.Equal(t, []string{"Favoritos", "General", "beach", "Trips", "Work", "work"}, got)
}

func TestCompareCaseInsensitive(t *testing.T) {
	assert.Negative(t, Compare("apple", "Banana"))
	assert.Positive(t, Compare("banana", "Apple"))
	// Case-only differences still order strictly.
	assert.NotZero(t, Compare("Work", "work"))
	assert.Equal(t, -Compare("Work", "work"), Compare("work", "Work"))
}

func TestCompareStrictTotalOrder(t *testing.T) {
	names := []string{
		model.FavoritesCollection, model.DefaultCollection, "general", "favoritos",
		"Work", "work", "WORK", "Trips", "trips", "a", "B", "Ärmel", "zeta", "10", "9",
	}

	for _, a := range names {
		assert.Zero(t, Compare(a, a), "irreflexive on %q", a)
		for _, b := range names {
			if a == b {
				continue
			}
			ab, ba := Compare(a, b), Compare(b, a)
			require.NotZero(t, ab, "distinct names %q and %q compare equal", a, b)
			require.Equal(t, -ab, ba, "antisymmetry for %q, %q", a, b)
			for _, c := range names {
				if ab < 0 && Compare(b, c) < 0 {
					require.Negative(t, Compare(a, c), "transitivity %q < %q < %q", a, b, c)
				}
			}
		}
	}
}

func TestSortNamesStableAcrossCalls(t *testing.T) {
	names := []string{"Work", "Favoritos", "trips", "General", "Beach", "Work"}
	want := SortNames(names)

	r := rand.New(rand.NewPCG(1, 2))
	for range 50 {
		shuffled := slices.Clone(names)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, SortNames(shuffled))
	}
	assert.Equal(t, []string{"Favoritos", "General", "Beach", "trips", "Work"}, want)
}

func TestSortNamesDoesNotMutateInput(t *testing.T) {
	in := []string{"b", "a"}
	SortNames(in)
	assert.Equal(t, []string{"b", "a"}, in)
}
