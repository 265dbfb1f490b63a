package api

import (
	"database/sql"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/store"
)

// ProfileHandler lets a user read and edit their own account details.
type ProfileHandler struct {
	DB *sql.DB
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name" validate:"max=100"`
	PhotoURL    string `json:"photo_url" validate:"omitempty,http_url"`
}

// Get handles GET /api/profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := store.GetUser(r.Context(), h.DB, ownerID(r))
	if err != nil {
		storeError(w, err, "get profile")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/profile.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := ownerID(r)
	if err := store.UpdateUserProfile(r.Context(), h.DB, id, strings.TrimSpace(req.DisplayName), strings.TrimSpace(req.PhotoURL)); err != nil {
		storeError(w, err, "update profile")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get profile")
		return
	}
	zap.L().Info("profile updated", zap.String("user", user.Email))
	jsonResponse(w, http.StatusOK, user)
}
