package api

import (
	"database/sql"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/ai"
	"github.com/erazemk/omara/internal/imaging"
	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/store"
)

// AIHandler exposes the assistant exchanges.
type AIHandler struct {
	DB      *sql.DB
	AI      *ai.Service
	Limiter *ai.Limiter
}

type autocompleteRequest struct {
	// Image is a base64 data URL.
	Image string `json:"image" validate:"required"`
}

type suggestRequest struct {
	Occasion string `json:"occasion" validate:"required,max=500"`
}

// allow checks that the assistant is configured and the caller has budget
// left. On failure it writes the response and returns false.
func (h *AIHandler) allow(w http.ResponseWriter, r *http.Request) bool {
	if !h.AI.Enabled() {
		storeError(w, ai.ErrUnavailable, "call assistant")
		return false
	}
	if !h.Limiter.Allow(ownerID(r)) {
		storeError(w, ai.ErrRateLimited, "call assistant")
		return false
	}
	return true
}

// Autocomplete handles POST /api/ai/autocomplete.
func (h *AIHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	var req autocompleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	photo, err := imaging.ParseDataURL(req.Image)
	if err != nil {
		fieldError(w, "image", err.Error())
		return
	}
	if !h.allow(w, r) {
		return
	}

	details, err := h.AI.AutocompleteClothingDetails(r.Context(), ai.ImagePayload{MIMEType: photo.MIME, Data: photo.Data})
	if err != nil {
		h.fail(w, err, "autocomplete clothing details")
		return
	}
	jsonResponse(w, http.StatusOK, details)
}

// Suggest handles POST /api/ai/suggest. The inventory is the caller's
// current wardrobe.
func (h *AIHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.allow(w, r) {
		return
	}

	owner := ownerID(r)
	wardrobe, err := store.ListClothing(r.Context(), h.DB, owner, model.ClothingFilter{})
	if err != nil {
		storeError(w, err, "load wardrobe")
		return
	}

	inventory := make([]ai.InventoryEntry, 0, len(wardrobe))
	photos := 0
	for _, item := range wardrobe {
		entry := ai.InventoryEntry{
			ID:       item.ID,
			Image:    item.ImageURL,
			Type:     item.Type,
			Color:    item.Color,
			Season:   item.Season,
			Material: item.Fabric,
		}
		if item.HasPhoto() && photos < h.AI.MaxImages() {
			if photo := h.modelPhoto(r, owner, item.ID); photo != nil {
				entry.Photo = photo
				photos++
			}
		}
		inventory = append(inventory, entry)
	}

	suggestion, err := h.AI.SuggestOutfit(r.Context(), ai.SuggestRequest{Occasion: req.Occasion, Inventory: inventory})
	if err != nil {
		h.fail(w, err, "suggest outfit")
		return
	}

	zap.L().Info("outfit suggested", zap.String("user", owner), zap.String("state", string(suggestion.State())),
		zap.Int("items", len(suggestion.Items)))
	jsonResponse(w, http.StatusOK, suggestion)
}

// modelPhoto loads an item's photo scaled down for the model. Photos that
// cannot be loaded are skipped; the item is still offered by description.
func (h *AIHandler) modelPhoto(r *http.Request, owner, itemID string) *imaging.Photo {
	data, _, err := store.GetClothingImage(r.Context(), h.DB, owner, itemID)
	if err != nil || data == nil {
		return nil
	}
	photo, err := imaging.Resize(data, imaging.ModelDimension)
	if err != nil {
		zap.L().Warn("skipping unreadable photo", zap.String("item", itemID), zap.Error(err))
		return nil
	}
	return photo
}

// fail reports an exchange failure. Remote failures are a bad gateway, not
// an internal error.
func (h *AIHandler) fail(w http.ResponseWriter, err error, action string) {
	var verr *ai.ValidationError
	if errors.As(err, &verr) || errors.Is(err, ai.ErrBadResponse) || errors.Is(err, ai.ErrUnavailable) {
		storeError(w, err, action)
		return
	}
	zap.L().Error(action, zap.Error(err))
	jsonError(w, http.StatusBadGateway, "the assistant is unavailable, try again")
}
