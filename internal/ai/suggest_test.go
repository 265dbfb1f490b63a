package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/omara/internal/imaging"
)

var inventory = []InventoryEntry{
	{ID: "c1", Image: "/api/clothing/c1/image", Type: "Shirt", Color: "white", Season: "Summer", Material: "Linen"},
	{ID: "c2", Image: "/api/clothing/c2/image", Type: "Pants", Color: "navy", Season: "All Season", Material: "Wool"},
	{ID: "c3", Image: "/img/placeholder.svg", Type: "Shirt", Color: "white", Season: "Summer", Material: "Linen"},
}

func suggest(t *testing.T, response string) *Suggestion {
	t.Helper()
	s, err := NewService(&fakeModel{response: response}, time.Second, 4).
		SuggestOutfit(context.Background(), SuggestRequest{Occasion: "garden party", Inventory: inventory})
	require.NoError(t, err)
	return s
}

func TestSuggestStates(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     SuggestionState
	}{
		{"both", `{"outfitSuggestion":[{"id":"c1","type":"Shirt","color":"white"}],"reasoning":"Light and airy."}`, StateBoth},
		{"items only", `{"outfitSuggestion":[{"id":"c2","type":"Pants","color":"navy"}]}`, StateItemsOnly},
		{"reasoning only", `{"reasoning":"Nothing suits a garden party."}`, StateReasoningOnly},
		{"empty list without reasoning", `{"outfitSuggestion":[]}`, StateEmpty},
		{"empty object", `{}`, StateEmpty},
		{"blank reasoning", `{"outfitSuggestion":[],"reasoning":"  "}`, StateEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := suggest(t, tt.response)
			assert.Equal(t, tt.want, s.State())
			assert.NotNil(t, s.Items)
		})
	}
}

func TestSuggestMatchesByID(t *testing.T) {
	s := suggest(t, `{"outfitSuggestion":[
		{"id":"c3","type":"shirt","color":"WHITE"},
		{"id":"c2","type":"Pants","color":"navy"}
	]}`)
	require.Len(t, s.Items, 2)
	assert.Equal(t, "c3", s.Items[0].ItemID)
	assert.Equal(t, "/img/placeholder.svg", s.Items[0].Image, "fields come from the inventory")
	assert.Equal(t, "c2", s.Items[1].ItemID)
}

func TestSuggestFallsBackToDescriptionOncePerItem(t *testing.T) {
	s := suggest(t, `{"outfitSuggestion":[
		{"id":"?","type":"Shirt","color":"white","season":"Summer","material":"Linen"},
		{"id":"","type":"Shirt","color":"white","season":"Summer","material":"Linen"},
		{"id":"","type":"Shirt","color":"white","season":"Summer","material":"Linen"}
	]}`)
	require.Len(t, s.Items, 3)
	assert.Equal(t, "c1", s.Items[0].ItemID)
	assert.Equal(t, "c3", s.Items[1].ItemID, "identical items resolve to distinct entries")
	assert.False(t, s.Items[2].Resolved(), "no inventory item left to match")
	assert.Equal(t, "Shirt", s.Items[2].Type)
}

func TestSuggestDuplicateIDUsesNextMatch(t *testing.T) {
	s := suggest(t, `{"outfitSuggestion":[
		{"id":"c1","type":"Shirt","color":"white","season":"Summer","material":"Linen"},
		{"id":"c1","type":"Shirt","color":"white","season":"Summer","material":"Linen"}
	]}`)
	require.Len(t, s.Items, 2)
	assert.Equal(t, "c1", s.Items[0].ItemID)
	assert.Equal(t, "c3", s.Items[1].ItemID)
}

func TestSuggestUnknownItemKept(t *testing.T) {
	s := suggest(t, `{"outfitSuggestion":[{"id":"zz","type":"Hat","color":"red"}],"reasoning":"A hat."}`)
	require.Len(t, s.Items, 1)
	assert.False(t, s.Items[0].Resolved())
	assert.Equal(t, StateBoth, s.State())
}

func TestSuggestValidation(t *testing.T) {
	model := &fakeModel{response: `{}`}
	svc := NewService(model, time.Second, 4)

	tests := []struct {
		name  string
		req   SuggestRequest
		field string
	}{
		{"blank occasion", SuggestRequest{Occasion: "   ", Inventory: inventory}, "occasion"},
		{"long occasion", SuggestRequest{Occasion: strings.Repeat("x", MaxOccasionLength+1), Inventory: inventory}, "occasion"},
		{"no inventory", SuggestRequest{Occasion: "dinner"}, "inventory"},
		{"entry without id", SuggestRequest{Occasion: "dinner", Inventory: []InventoryEntry{{Type: "Shirt"}}}, "id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := svc.SuggestOutfit(context.Background(), tt.req)
			assert.Nil(t, s)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Zero(t, model.calls)
}

func TestSuggestPromptAndMedia(t *testing.T) {
	photo := &imaging.Photo{Data: []byte{0xff, 0xd8, 0xff}, MIME: "image/jpeg"}
	inv := []InventoryEntry{
		{ID: "a", Type: "Shirt", Photo: photo},
		{ID: "b", Type: "Pants", Photo: photo},
		{ID: "c", Type: "Shoes"},
	}
	model := &fakeModel{response: `{}`}
	_, err := NewService(model, time.Second, 1).SuggestOutfit(context.Background(), SuggestRequest{Occasion: "hike", Inventory: inv})
	require.NoError(t, err)

	assert.Len(t, model.last.Media, 1, "photos are capped")
	assert.Contains(t, model.last.Prompt, "Occasion: hike")
	assert.Contains(t, model.last.Prompt, `"id":"c"`)
	assert.Contains(t, model.last.Prompt, "Photo 1 shows item a.")
	assert.Equal(t, suggestionSchema, model.last.Schema)
}

func TestSuggestRemoteFailure(t *testing.T) {
	svc := NewService(&fakeModel{err: context.DeadlineExceeded}, time.Second, 4)
	s, err := svc.SuggestOutfit(context.Background(), SuggestRequest{Occasion: "x", Inventory: inventory})
	assert.Nil(t, s)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
