package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/collections"
	"github.com/erazemk/omara/internal/live"
	"github.com/erazemk/omara/internal/store"
)

// CollectionsHandler handles the collection endpoints. Collections are not
// stored on their own: they exist while at least one outfit names them.
type CollectionsHandler struct {
	DB  *sql.DB
	Hub *live.Hub
}

type collectionsResponse struct {
	Names  []string            `json:"names"`
	Groups []collections.Group `json:"groups"`
}

type createCollectionRequest struct {
	Name      string   `json:"name"`
	OutfitIDs []string `json:"outfit_ids"`
}

type renameCollectionRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/collections: the grouped view in canonical order and
// the real collection names in use.
func (h *CollectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	outfits, err := store.ListOutfits(r.Context(), h.DB, ownerID(r))
	if err != nil {
		storeError(w, err, "list collections")
		return
	}
	jsonResponse(w, http.StatusOK, collectionsResponse{
		Names:  collections.CollectionNames(outfits),
		Groups: collections.GroupOutfits(outfits),
	})
}

// Create handles POST /api/collections.
func (h *CollectionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner := ownerID(r)
	res, err := store.CreateCollectionAndAssign(r.Context(), h.DB, owner, req.Name, req.OutfitIDs)
	h.finish(w, r, "create_collection", res, err)
}

// Rename handles PUT /api/collections/{name}.
func (h *CollectionsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameCollectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner := ownerID(r)
	res, err := store.RenameCollection(r.Context(), h.DB, owner, r.PathValue("name"), req.Name)
	h.finish(w, r, "rename_collection", res, err)
}

// Delete handles DELETE /api/collections/{name}. The outfits move to the
// default collection.
func (h *CollectionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	res, err := store.DeleteCollection(r.Context(), h.DB, owner, r.PathValue("name"))
	h.finish(w, r, "delete_collection", res, err)
}

func (h *CollectionsHandler) finish(w http.ResponseWriter, r *http.Request, kind string, res *store.MutationResult, err error) {
	recordMutation(kind, err, res != nil && res.NoOp)
	if err != nil {
		storeError(w, err, "update collection")
		return
	}

	owner := ownerID(r)
	if !res.NoOp {
		publish(r, h.Hub, owner, live.Outfits)
	}
	zap.L().Info("collection mutation", zap.String("user", owner), zap.String("kind", kind),
		zap.Int("updated", res.Updated), zap.Bool("no_op", res.NoOp))
	jsonResponse(w, http.StatusOK, res)
}
