package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/erazemk/omara/internal/imaging"
)

// MaxOccasionLength bounds the occasion text.
const MaxOccasionLength = 500

// InventoryEntry is one clothing item offered to the model.
type InventoryEntry struct {
	ID       string `json:"id" validate:"required"`
	Image    string `json:"image"`
	Type     string `json:"type"`
	Color    string `json:"color"`
	Season   string `json:"season"`
	Material string `json:"material"`
	// Photo is attached inline when set, up to the service's image limit.
	Photo *imaging.Photo `json:"-"`
}

// SuggestRequest asks for an outfit for an occasion.
type SuggestRequest struct {
	Occasion  string           `json:"occasion" validate:"required,max=500"`
	Inventory []InventoryEntry `json:"inventory" validate:"dive"`
}

// SuggestedItem is one chosen garment. ItemID is empty when the model's
// choice could not be matched to the inventory it was given.
type SuggestedItem struct {
	ItemID   string `json:"item_id"`
	Image    string `json:"image"`
	Type     string `json:"type"`
	Color    string `json:"color"`
	Season   string `json:"season"`
	Material string `json:"material"`
}

// Resolved reports whether the item was matched to the inventory.
func (i SuggestedItem) Resolved() bool {
	return i.ItemID != ""
}

// SuggestionState says which optional parts of a suggestion are present.
type SuggestionState string

const (
	StateBoth          SuggestionState = "both"
	StateItemsOnly     SuggestionState = "items_only"
	StateReasoningOnly SuggestionState = "reasoning_only"
	StateEmpty         SuggestionState = "empty"
)

// Suggestion is the model's answer. Both parts are optional; an empty
// suggestion is a valid result, not an error.
type Suggestion struct {
	Items        []SuggestedItem `json:"items"`
	Reasoning    string          `json:"reasoning"`
	HasItems     bool            `json:"has_items"`
	HasReasoning bool            `json:"has_reasoning"`
}

// State classifies the suggestion.
func (s *Suggestion) State() SuggestionState {
	switch {
	case s.HasItems && s.HasReasoning:
		return StateBoth
	case s.HasItems:
		return StateItemsOnly
	case s.HasReasoning:
		return StateReasoningOnly
	}
	return StateEmpty
}

// MarshalJSON adds the derived state to the encoded suggestion.
func (s Suggestion) MarshalJSON() ([]byte, error) {
	type plain Suggestion
	return json.Marshal(struct {
		plain
		State SuggestionState `json:"state"`
	}{plain(s), s.State()})
}

// rawSuggestion mirrors the response schema. Pointers tell an absent field
// from an empty one.
type rawSuggestion struct {
	OutfitSuggestion *[]rawItem `json:"outfitSuggestion"`
	Reasoning        *string    `json:"reasoning"`
}

type rawItem struct {
	ID       string `json:"id"`
	Image    string `json:"image"`
	Type     string `json:"type"`
	Color    string `json:"color"`
	Season   string `json:"season"`
	Material string `json:"material"`
}

var itemSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"id":       {Type: genai.TypeString, Description: "The id of the chosen inventory item, copied exactly"},
		"image":    {Type: genai.TypeString},
		"type":     {Type: genai.TypeString},
		"color":    {Type: genai.TypeString},
		"season":   {Type: genai.TypeString},
		"material": {Type: genai.TypeString},
	},
	Required: []string{"id", "type", "color"},
}

var suggestionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"outfitSuggestion": {Type: genai.TypeArray, Items: itemSchema},
		"reasoning":        {Type: genai.TypeString, Description: "Why these items suit the occasion"},
	},
	PropertyOrdering: []string{"outfitSuggestion", "reasoning"},
}

// SuggestOutfit asks the model to pick items from the inventory for the
// occasion. Chosen items are matched back to the inventory by id, falling
// back to their descriptive fields; each inventory item is used at most once.
func (s *Service) SuggestOutfit(ctx context.Context, req SuggestRequest) (*Suggestion, error) {
	req.Occasion = strings.TrimSpace(req.Occasion)
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}
	if len(req.Inventory) == 0 {
		return nil, &ValidationError{Field: "inventory", Message: "add clothing before asking for a suggestion"}
	}

	prompt, media, err := s.suggestPrompt(req)
	if err != nil {
		return nil, err
	}

	var raw rawSuggestion
	if err := s.generate(ctx, "suggest", Request{Prompt: prompt, Media: media, Schema: suggestionSchema}, &raw); err != nil {
		return nil, err
	}

	out := &Suggestion{Items: []SuggestedItem{}}
	if raw.OutfitSuggestion != nil {
		out.Items = matchItems(*raw.OutfitSuggestion, req.Inventory)
		out.HasItems = len(out.Items) > 0
	}
	if raw.Reasoning != nil {
		out.Reasoning = strings.TrimSpace(*raw.Reasoning)
		out.HasReasoning = out.Reasoning != ""
	}
	return out, nil
}

func (s *Service) suggestPrompt(req SuggestRequest) (string, []imaging.Photo, error) {
	entries, err := json.Marshal(req.Inventory)
	if err != nil {
		return "", nil, fmt.Errorf("encoding inventory: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a personal stylist. Put together one outfit for the occasion below ")
	b.WriteString("using only items from the inventory. For every chosen item copy its id and ")
	b.WriteString("descriptive fields exactly as given. Explain the choice briefly in reasoning. ")
	b.WriteString("If nothing fits, return an empty outfitSuggestion and say why.\n\n")
	fmt.Fprintf(&b, "Occasion: %s\n\nInventory:\n%s\n", req.Occasion, entries)

	var media []imaging.Photo
	for _, e := range req.Inventory {
		if e.Photo == nil || len(media) >= s.maxImages {
			continue
		}
		media = append(media, *e.Photo)
		fmt.Fprintf(&b, "Photo %d shows item %s.\n", len(media), e.ID)
	}
	return b.String(), media, nil
}

// matchItems resolves the model's choices against the inventory. An echoed
// id wins when it names an unused item; otherwise the first unused item with
// the same descriptive fields is taken. Choices that match nothing are kept
// unresolved.
func matchItems(chosen []rawItem, inventory []InventoryEntry) []SuggestedItem {
	byID := make(map[string]int, len(inventory))
	for i, e := range inventory {
		byID[e.ID] = i
	}
	used := make([]bool, len(inventory))

	out := make([]SuggestedItem, 0, len(chosen))
	for _, c := range chosen {
		idx := -1
		if i, ok := byID[strings.TrimSpace(c.ID)]; ok && !used[i] {
			idx = i
		} else {
			for i, e := range inventory {
				if !used[i] && sameDescription(c, e) {
					idx = i
					break
				}
			}
		}

		if idx < 0 {
			out = append(out, SuggestedItem{
				Image: c.Image, Type: c.Type, Color: c.Color, Season: c.Season, Material: c.Material,
			})
			continue
		}
		used[idx] = true
		e := inventory[idx]
		out = append(out, SuggestedItem{
			ItemID: e.ID, Image: e.Image, Type: e.Type, Color: e.Color, Season: e.Season, Material: e.Material,
		})
	}
	return out
}

func sameDescription(c rawItem, e InventoryEntry) bool {
	eq := func(a, b string) bool {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	if c.Image != "" && e.Image != "" && c.Image != e.Image {
		return false
	}
	return eq(c.Type, e.Type) && eq(c.Color, e.Color) && eq(c.Season, e.Season) && eq(c.Material, e.Material)
}
