package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/omara/internal/ai"
	"github.com/erazemk/omara/internal/live"
	"github.com/erazemk/omara/internal/metrics"
	"github.com/erazemk/omara/internal/model"
)

// Deps are the shared services the handlers run against.
type Deps struct {
	DB        *sql.DB
	JWTSecret string
	Hub       *live.Hub
	// AI may be disabled; the AI endpoints then answer 503.
	AI      *ai.Service
	Limiter *ai.Limiter
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	if d.Hub == nil {
		d.Hub = live.NewHub(d.DB)
	}
	mux := http.NewServeMux()
	streams := newStreamRegistry()

	authHandler := &AuthHandler{DB: d.DB, JWTSecret: d.JWTSecret, Streams: streams}
	profileHandler := &ProfileHandler{DB: d.DB}
	usersHandler := &UsersHandler{DB: d.DB, Streams: streams}
	clothingHandler := &ClothingHandler{DB: d.DB, Hub: d.Hub}
	outfitsHandler := &OutfitsHandler{DB: d.DB, Hub: d.Hub}
	collectionsHandler := &CollectionsHandler{DB: d.DB, Hub: d.Hub}
	aiHandler := &AIHandler{DB: d.DB, AI: d.AI, Limiter: d.Limiter}
	streamHandler := &StreamHandler{DB: d.DB, Hub: d.Hub, Streams: streams}

	authMW := AuthMiddleware(d.JWTSecret, d.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }

	// Public.
	mux.HandleFunc("POST /api/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/password-reset", authHandler.RequestPasswordReset)
	mux.HandleFunc("POST /api/auth/password-reset/confirm", authHandler.ConfirmPasswordReset)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// Account.
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("GET /api/profile", authed(profileHandler.Get))
	mux.Handle("PUT /api/profile", authed(profileHandler.Update))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Wardrobe.
	mux.Handle("GET /api/clothing", authed(clothingHandler.List))
	mux.Handle("POST /api/clothing", authed(clothingHandler.Create))
	mux.Handle("GET /api/clothing/options", authed(clothingHandler.Options))
	mux.Handle("GET /api/clothing/{id}", authed(clothingHandler.Get))
	mux.Handle("PUT /api/clothing/{id}", authed(clothingHandler.Update))
	mux.Handle("DELETE /api/clothing/{id}", authed(clothingHandler.Delete))
	mux.Handle("PUT /api/clothing/{id}/image", authed(clothingHandler.UploadImage))
	mux.Handle("GET /api/clothing/{id}/image", authed(clothingHandler.GetImage))

	// Outfits.
	mux.Handle("GET /api/outfits", authed(outfitsHandler.List))
	mux.Handle("POST /api/outfits", authed(outfitsHandler.Create))
	mux.Handle("GET /api/outfits/{id}", authed(outfitsHandler.Get))
	mux.Handle("PUT /api/outfits/{id}", authed(outfitsHandler.Update))
	mux.Handle("DELETE /api/outfits/{id}", authed(outfitsHandler.Delete))
	mux.Handle("POST /api/outfits/{id}/favorite", authed(outfitsHandler.ToggleFavorite))

	// Collections.
	mux.Handle("GET /api/collections", authed(collectionsHandler.List))
	mux.Handle("POST /api/collections", authed(collectionsHandler.Create))
	mux.Handle("PUT /api/collections/{name}", authed(collectionsHandler.Rename))
	mux.Handle("DELETE /api/collections/{name}", authed(collectionsHandler.Delete))

	// Assistant.
	mux.Handle("POST /api/ai/autocomplete", authed(aiHandler.Autocomplete))
	mux.Handle("POST /api/ai/suggest", authed(aiHandler.Suggest))

	// Live view.
	mux.Handle("GET /api/stream", authed(streamHandler.Serve))

	return mux
}
