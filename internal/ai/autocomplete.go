package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/erazemk/omara/internal/imaging"
)

// ImagePayload is an inline photo with its declared media type.
type ImagePayload struct {
	MIMEType string `json:"mime_type" validate:"required,oneof=image/jpeg image/png image/webp"`
	Data     []byte `json:"data" validate:"required"`
}

// ClothingDetails are the attributes the model fills in from a photo.
type ClothingDetails struct {
	Type   string `json:"type" validate:"required"`
	Color  string `json:"color" validate:"required"`
	Season string `json:"season" validate:"required"`
	Fabric string `json:"fabric" validate:"required"`
}

const autocompletePrompt = `You are helping someone catalogue their wardrobe.
Look at the photo of a single clothing item and describe it.
Return the garment type (for example Shirt, Jeans, Coat), its main color,
the season it suits best (Spring, Summer, Autumn, Winter or All Season)
and its fabric. Keep every value short.`

var detailsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"type":   {Type: genai.TypeString, Description: "Garment type"},
		"color":  {Type: genai.TypeString, Description: "Main color"},
		"season": {Type: genai.TypeString, Description: "Season the garment suits"},
		"fabric": {Type: genai.TypeString, Description: "Fabric or material"},
	},
	Required:         []string{"type", "color", "season", "fabric"},
	PropertyOrdering: []string{"type", "color", "season", "fabric"},
}

// AutocompleteClothingDetails asks the model for type, color, season and
// fabric of the pictured garment. On any failure it returns nil: callers
// never see a partially filled result.
func (s *Service) AutocompleteClothingDetails(ctx context.Context, p ImagePayload) (*ClothingDetails, error) {
	if err := s.checkRequest(p); err != nil {
		return nil, err
	}
	if _, err := imaging.Verify(p.MIMEType, p.Data); err != nil {
		return nil, &ValidationError{Field: "image", Message: err.Error()}
	}
	photo, err := imaging.Resize(p.Data, imaging.ModelDimension)
	if err != nil {
		return nil, &ValidationError{Field: "image", Message: err.Error()}
	}

	var details ClothingDetails
	err = s.generate(ctx, "autocomplete", Request{
		Prompt: autocompletePrompt,
		Media:  []imaging.Photo{*photo},
		Schema: detailsSchema,
	}, &details)
	if err != nil {
		return nil, err
	}

	details.Type = strings.TrimSpace(details.Type)
	details.Color = strings.TrimSpace(details.Color)
	details.Season = strings.TrimSpace(details.Season)
	details.Fabric = strings.TrimSpace(details.Fabric)
	if err := s.validate.Struct(details); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return &details, nil
}
