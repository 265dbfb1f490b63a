package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/live"
	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/store"
)

// OutfitsHandler handles the outfit endpoints.
type OutfitsHandler struct {
	DB  *sql.DB
	Hub *live.Hub
}

type outfitRequest struct {
	Name           string   `json:"name" validate:"required,max=200"`
	ItemIDs        []string `json:"item_ids"`
	CollectionName string   `json:"collection_name" validate:"max=100"`
	Description    string   `json:"description" validate:"max=2000"`
	IsFavorite     bool     `json:"is_favorite"`
}

func (req *outfitRequest) input() store.OutfitInput {
	return store.OutfitInput{
		Name:           req.Name,
		ItemIDs:        req.ItemIDs,
		CollectionName: req.CollectionName,
		Description:    req.Description,
		IsFavorite:     req.IsFavorite,
	}
}

// outfitResponse is an outfit with its items resolved. Ids of items that
// have been deleted are listed in MissingItemIDs.
type outfitResponse struct {
	model.Outfit
	Items          []model.ClothingItem `json:"items"`
	MissingItemIDs []string             `json:"missing_item_ids"`
}

func resolveOutfits(outfits []model.Outfit, wardrobe []model.ClothingItem) []outfitResponse {
	byID := make(map[string]model.ClothingItem, len(wardrobe))
	for _, item := range wardrobe {
		byID[item.ID] = item
	}

	out := make([]outfitResponse, 0, len(outfits))
	for _, o := range outfits {
		resp := outfitResponse{Outfit: o, Items: []model.ClothingItem{}, MissingItemIDs: []string{}}
		if resp.ItemIDs == nil {
			resp.ItemIDs = []string{}
		}
		for _, id := range o.ItemIDs {
			if item, ok := byID[id]; ok {
				resp.Items = append(resp.Items, item)
			} else {
				resp.MissingItemIDs = append(resp.MissingItemIDs, id)
			}
		}
		out = append(out, resp)
	}
	return out
}

// resolve loads the owner's wardrobe and resolves outfits against it.
func (h *OutfitsHandler) resolve(r *http.Request, outfits ...model.Outfit) ([]outfitResponse, error) {
	wardrobe, err := store.ListClothing(r.Context(), h.DB, ownerID(r), model.ClothingFilter{})
	if err != nil {
		return nil, err
	}
	return resolveOutfits(outfits, wardrobe), nil
}

// List handles GET /api/outfits.
func (h *OutfitsHandler) List(w http.ResponseWriter, r *http.Request) {
	outfits, err := store.ListOutfits(r.Context(), h.DB, ownerID(r))
	if err != nil {
		storeError(w, err, "list outfits")
		return
	}
	resp, err := h.resolve(r, outfits...)
	if err != nil {
		storeError(w, err, "list outfits")
		return
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Create handles POST /api/outfits.
func (h *OutfitsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req outfitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner := ownerID(r)
	outfit, err := store.CreateOutfit(r.Context(), h.DB, owner, req.input())
	recordMutation("create_outfit", err, false)
	if err != nil {
		storeError(w, err, "create outfit")
		return
	}

	publish(r, h.Hub, owner, live.Outfits)
	zap.L().Info("outfit created", zap.String("user", owner), zap.String("outfit", outfit.ID),
		zap.String("collection", outfit.CollectionName))
	h.respond(w, r, http.StatusCreated, outfit)
}

// Get handles GET /api/outfits/{id}.
func (h *OutfitsHandler) Get(w http.ResponseWriter, r *http.Request) {
	outfit, err := store.GetOutfit(r.Context(), h.DB, ownerID(r), r.PathValue("id"))
	if err != nil {
		storeError(w, err, "get outfit")
		return
	}
	if outfit == nil {
		jsonError(w, http.StatusNotFound, "outfit not found")
		return
	}
	h.respond(w, r, http.StatusOK, outfit)
}

// Update handles PUT /api/outfits/{id}. The favorite flag is not changed
// here; use the favorite endpoint.
func (h *OutfitsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req outfitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner, id := ownerID(r), r.PathValue("id")
	err := store.UpdateOutfit(r.Context(), h.DB, owner, id, req.input())
	recordMutation("update_outfit", err, false)
	if err != nil {
		storeError(w, err, "update outfit")
		return
	}

	outfit, err := store.GetOutfit(r.Context(), h.DB, owner, id)
	if err != nil {
		storeError(w, err, "get outfit")
		return
	}
	publish(r, h.Hub, owner, live.Outfits)
	h.respond(w, r, http.StatusOK, outfit)
}

// Delete handles DELETE /api/outfits/{id}. Referenced clothing is kept.
func (h *OutfitsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, id := ownerID(r), r.PathValue("id")
	err := store.DeleteOutfit(r.Context(), h.DB, owner, id)
	recordMutation("delete_outfit", err, false)
	if err != nil {
		storeError(w, err, "delete outfit")
		return
	}

	publish(r, h.Hub, owner, live.Outfits)
	zap.L().Info("outfit deleted", zap.String("user", owner), zap.String("outfit", id))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "outfit deleted"})
}

// ToggleFavorite handles POST /api/outfits/{id}/favorite.
func (h *OutfitsHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	owner, id := ownerID(r), r.PathValue("id")
	outfit, err := store.ToggleFavorite(r.Context(), h.DB, owner, id)
	recordMutation("toggle_favorite", err, false)
	if err != nil {
		storeError(w, err, "update favorite")
		return
	}

	publish(r, h.Hub, owner, live.Outfits)
	h.respond(w, r, http.StatusOK, outfit)
}

func (h *OutfitsHandler) respond(w http.ResponseWriter, r *http.Request, status int, outfit *model.Outfit) {
	if outfit == nil {
		jsonError(w, http.StatusNotFound, "outfit not found")
		return
	}
	resp, err := h.resolve(r, *outfit)
	if err != nil {
		storeError(w, err, "resolve outfit items")
		return
	}
	jsonResponse(w, status, resp[0])
}
