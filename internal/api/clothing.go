package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/imaging"
	"github.com/erazemk/omara/internal/live"
	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/store"
)

// ClothingHandler handles the wardrobe endpoints.
type ClothingHandler struct {
	DB  *sql.DB
	Hub *live.Hub
}

type clothingRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Type     string `json:"type" validate:"max=100"`
	Color    string `json:"color" validate:"max=100"`
	Season   string `json:"season" validate:"max=100"`
	Fabric   string `json:"fabric" validate:"max=100"`
	ImageURL string `json:"image_url" validate:"omitempty,http_url"`
	// Image is an optional data URL; it is normalised to JPEG.
	Image string `json:"image"`
}

type clothingOptions struct {
	Types   []string `json:"types"`
	Seasons []string `json:"seasons"`
	Fabrics []string `json:"fabrics"`
}

// input turns the request into store input, decoding the inline photo.
// On failure it writes the response and returns false.
func (req *clothingRequest) input(w http.ResponseWriter) (store.ClothingInput, bool) {
	in := store.ClothingInput{
		Name:     req.Name,
		Type:     req.Type,
		Color:    req.Color,
		Season:   req.Season,
		Fabric:   req.Fabric,
		ImageURL: req.ImageURL,
	}
	if req.Image == "" {
		return in, true
	}

	photo, err := imaging.ParseDataURL(req.Image)
	if err != nil {
		fieldError(w, "image", err.Error())
		return in, false
	}
	normalised, err := imaging.Resize(photo.Data, imaging.MaxDimension)
	if err != nil {
		fieldError(w, "image", err.Error())
		return in, false
	}
	in.Image, in.ImageMime = normalised.Data, normalised.MIME
	return in, true
}

// List handles GET /api/clothing.
func (h *ClothingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := store.ListClothing(r.Context(), h.DB, ownerID(r), model.ClothingFilter{
		Type:   q.Get("type"),
		Season: q.Get("season"),
		Fabric: q.Get("fabric"),
		Query:  q.Get("q"),
	})
	if err != nil {
		storeError(w, err, "list clothing")
		return
	}
	if items == nil {
		items = []model.ClothingItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Options handles GET /api/clothing/options.
func (h *ClothingHandler) Options(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, clothingOptions{
		Types:   model.ClothingTypes,
		Seasons: model.ClothingSeasons,
		Fabrics: model.ClothingFabrics,
	})
}

// Create handles POST /api/clothing.
func (h *ClothingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clothingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, ok := req.input(w)
	if !ok {
		return
	}

	owner := ownerID(r)
	item, err := store.CreateClothingItem(r.Context(), h.DB, owner, in)
	recordMutation("create_clothing", err, false)
	if err != nil {
		storeError(w, err, "create clothing item")
		return
	}

	publish(r, h.Hub, owner, live.Clothing)
	zap.L().Info("clothing item created", zap.String("user", owner), zap.String("item", item.ID))
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/clothing/{id}.
func (h *ClothingHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetClothingItem(r.Context(), h.DB, ownerID(r), r.PathValue("id"))
	if err != nil {
		storeError(w, err, "get clothing item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "clothing item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/clothing/{id}.
func (h *ClothingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req clothingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, ok := req.input(w)
	if !ok {
		return
	}

	owner, id := ownerID(r), r.PathValue("id")
	err := store.UpdateClothingItem(r.Context(), h.DB, owner, id, in)
	recordMutation("update_clothing", err, false)
	if err != nil {
		storeError(w, err, "update clothing item")
		return
	}

	item, err := store.GetClothingItem(r.Context(), h.DB, owner, id)
	if err != nil {
		storeError(w, err, "get clothing item")
		return
	}
	publish(r, h.Hub, owner, live.Clothing)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/clothing/{id}. Outfits keep the id.
func (h *ClothingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, id := ownerID(r), r.PathValue("id")
	err := store.DeleteClothingItem(r.Context(), h.DB, owner, id)
	recordMutation("delete_clothing", err, false)
	if err != nil {
		storeError(w, err, "delete clothing item")
		return
	}

	publish(r, h.Hub, owner, live.Clothing)
	zap.L().Info("clothing item deleted", zap.String("user", owner), zap.String("item", id))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "clothing item deleted"})
}

// UploadImage handles PUT /api/clothing/{id}/image with a multipart "image"
// file.
func (h *ClothingHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		fieldError(w, "image", "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		fieldError(w, "image", "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Process(file)
	if err != nil {
		fieldError(w, "image", err.Error())
		return
	}

	owner, id := ownerID(r), r.PathValue("id")
	err = store.SetClothingImage(r.Context(), h.DB, owner, id, photo.Data, photo.MIME)
	recordMutation("upload_image", err, false)
	if err != nil {
		storeError(w, err, "save image")
		return
	}

	publish(r, h.Hub, owner, live.Clothing)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/clothing/{id}/image.
func (h *ClothingHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := store.GetClothingImage(r.Context(), h.DB, ownerID(r), r.PathValue("id"))
	if err != nil {
		storeError(w, err, "get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
