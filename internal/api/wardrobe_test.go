package api

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/erazemk/omara/internal/collections"
	"github.com/erazemk/omara/internal/db"
	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/store"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	img.Set(3, 3, color.RGBA{0, 128, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func pngDataURL(t *testing.T) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))
}

func (s *testServer) createClothing(t *testing.T, token string, body map[string]string) model.ClothingItem {
	t.Helper()
	var item model.ClothingItem
	if status := s.do(t, "POST", "/api/clothing", token, body, &item); status != http.StatusCreated {
		t.Fatalf("create clothing: %d", status)
	}
	return item
}

func (s *testServer) createOutfit(t *testing.T, token string, body map[string]any) outfitResponse {
	t.Helper()
	var o outfitResponse
	if status := s.do(t, "POST", "/api/outfits", token, body, &o); status != http.StatusCreated {
		t.Fatalf("create outfit: %d", status)
	}
	return o
}

func TestClothingFlow(t *testing.T) {
	s := setupTestServer(t)
	token := s.signup(t, "ana@example.com")

	shirt := s.createClothing(t, token, map[string]string{
		"name": "Linen shirt", "type": "Shirt", "season": "Summer", "fabric": "Linen", "image": pngDataURL(t),
	})
	s.createClothing(t, token, map[string]string{"name": "Wool coat", "type": "Coat", "season": "Winter"})

	if shirt.ImageURL != "/api/clothing/"+shirt.ID+"/image" || shirt.ImageMime != "image/jpeg" {
		t.Errorf("expected inline JPEG photo, got %q (%s)", shirt.ImageURL, shirt.ImageMime)
	}

	var items []model.ClothingItem
	s.do(t, "GET", "/api/clothing?season=summer", token, nil, &items)
	if len(items) != 1 || items[0].ID != shirt.ID {
		t.Errorf("expected only the shirt for summer, got %v", items)
	}

	req, _ := authRequest("GET", s.URL+"/api/clothing/"+shirt.ID+"/image", token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get image: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/jpeg" || len(data) == 0 {
		t.Errorf("unexpected image response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	var opts clothingOptions
	s.do(t, "GET", "/api/clothing/options", token, nil, &opts)
	if !slices.Contains(opts.Seasons, "All Season") {
		t.Errorf("expected season options, got %v", opts.Seasons)
	}

	var errResp errorResponse
	status := s.do(t, "POST", "/api/clothing", token, map[string]string{
		"name": "Bad", "image": "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("text")),
	}, &errResp)
	if status != http.StatusBadRequest || errResp.Field != "image" {
		t.Errorf("expected image rejection, got %d %+v", status, errResp)
	}

	status = s.do(t, "POST", "/api/clothing", token, map[string]string{"name": ""}, &errResp)
	if status != http.StatusBadRequest || errResp.Field != "name" {
		t.Errorf("expected name rejection, got %d %+v", status, errResp)
	}
}

func TestUploadClothingImage(t *testing.T) {
	s := setupTestServer(t)
	token := s.signup(t, "ana@example.com")
	item := s.createClothing(t, token, map[string]string{"name": "Scarf"})
	if item.ImageURL != model.PlaceholderImageURL {
		t.Errorf("expected placeholder, got %q", item.ImageURL)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("image", "scarf.png")
	part.Write(pngBytes(t))
	mw.Close()

	req, _ := http.NewRequest("PUT", s.URL+"/api/clothing/"+item.ID+"/image", &body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload: %d", resp.StatusCode)
	}

	var got model.ClothingItem
	s.do(t, "GET", "/api/clothing/"+item.ID, token, nil, &got)
	if !got.HasPhoto() {
		t.Errorf("expected stored photo, got %+v", got)
	}
}

func TestOutfitResolvesItems(t *testing.T) {
	s := setupTestServer(t)
	token := s.signup(t, "ana@example.com")

	shirt := s.createClothing(t, token, map[string]string{"name": "Shirt"})
	pants := s.createClothing(t, token, map[string]string{"name": "Pants"})
	o := s.createOutfit(t, token, map[string]any{
		"name": "Office", "item_ids": []string{shirt.ID, pants.ID, "gone", shirt.ID},
	})

	if len(o.ItemIDs) != 3 || len(o.Items) != 2 || !slices.Equal(o.MissingItemIDs, []string{"gone"}) {
		t.Errorf("unexpected resolution %+v", o)
	}
	if o.CollectionName != model.DefaultCollection {
		t.Errorf("expected default collection, got %q", o.CollectionName)
	}

	if status := s.do(t, "DELETE", "/api/clothing/"+pants.ID, token, nil, nil); status != http.StatusOK {
		t.Fatalf("delete clothing: %d", status)
	}

	var got outfitResponse
	s.do(t, "GET", "/api/outfits/"+o.ID, token, nil, &got)
	if len(got.ItemIDs) != 3 || len(got.Items) != 1 || len(got.MissingItemIDs) != 2 {
		t.Errorf("expected deleted item reported missing, got %+v", got)
	}
}

func TestOutfitRejectsFavoritesCollection(t *testing.T) {
	s := setupTestServer(t)
	token := s.signup(t, "ana@example.com")

	var errResp errorResponse
	status := s.do(t, "POST", "/api/outfits", token, map[string]any{
		"name": "x", "collection_name": model.FavoritesCollection,
	}, &errResp)
	if status != http.StatusBadRequest || errResp.Field != "collection_name" {
		t.Errorf("expected collection_name rejection, got %d %+v", status, errResp)
	}
}

func TestFavoriteToggle(t *testing.T) {
	s := setupTestServer(t)
	token := s.signup(t, "ana@example.com")
	o := s.createOutfit(t, token, map[string]any{"name": "Date", "collection_name": "Evening"})

	var got outfitResponse
	if status := s.do(t, "POST", "/api/outfits/"+o.ID+"/favorite", token, nil, &got); status != http.StatusOK {
		t.Fatalf("toggle favorite: %d", status)
	}
	if !got.IsFavorite || got.CollectionName != "Evening" {
		t.Errorf("expected favorite in Evening, got %+v", got.Outfit)
	}

	var view collectionsResponse
	s.do(t, "GET", "/api/collections", token, nil, &view)
	names := collections.Names(view.Groups)
	if !slices.Equal(names, []string{model.FavoritesCollection, "Evening"}) {
		t.Errorf("unexpected groups %v", names)
	}
	if !slices.Equal(view.Names, []string{"Evening"}) {
		t.Errorf("unexpected collection names %v", view.Names)
	}
}

func TestCollectionsFlow(t *testing.T) {
	s := setupTestServer(t)
	token := s.signup(t, "ana@example.com")
	o1 := s.createOutfit(t, token, map[string]any{"name": "o1"})
	o2 := s.createOutfit(t, token, map[string]any{"name": "o2"})

	var res store.MutationResult
	status := s.do(t, "POST", "/api/collections", token, map[string]any{
		"name": "Trips", "outfit_ids": []string{o1.ID, o2.ID},
	}, &res)
	if status != http.StatusOK || res.Updated != 2 {
		t.Fatalf("create collection: %d %+v", status, res)
	}

	var errResp errorResponse
	status = s.do(t, "POST", "/api/collections", token, map[string]any{"name": "Empty"}, &errResp)
	if status != http.StatusBadRequest || errResp.Field != "outfit_ids" {
		t.Errorf("expected selection required, got %d %+v", status, errResp)
	}

	status = s.do(t, "PUT", "/api/collections/General", token, map[string]string{"name": "Other"}, &errResp)
	if status != http.StatusBadRequest || errResp.Field != "name" {
		t.Errorf("expected reserved name rejection, got %d %+v", status, errResp)
	}

	status = s.do(t, "PUT", "/api/collections/Trips", token, map[string]string{"name": "Trips"}, &res)
	if status != http.StatusOK || !res.NoOp {
		t.Errorf("expected same-name rename to be a no-op, got %d %+v", status, res)
	}

	status = s.do(t, "PUT", "/api/collections/Trips", token, map[string]string{"name": "Holidays"}, &res)
	if status != http.StatusOK || res.Updated != 2 {
		t.Errorf("rename: %d %+v", status, res)
	}

	status = s.do(t, "DELETE", "/api/collections/Holidays", token, nil, &res)
	if status != http.StatusOK || res.Updated != 2 {
		t.Errorf("delete: %d %+v", status, res)
	}

	var view collectionsResponse
	s.do(t, "GET", "/api/collections", token, nil, &view)
	if names := collections.Names(view.Groups); !slices.Equal(names, []string{model.DefaultCollection}) {
		t.Errorf("expected only General left, got %v", names)
	}

	status = s.do(t, "DELETE", "/api/collections/Nothing", token, nil, &res)
	if status != http.StatusOK || !res.NoOp {
		t.Errorf("expected empty delete to be a no-op, got %d %+v", status, res)
	}
}

func TestOwnerIsolation(t *testing.T) {
	s := setupTestServer(t)
	alice := s.signup(t, "alice@example.com")
	bob := s.signup(t, "bob@example.com")

	o := s.createOutfit(t, alice, map[string]any{"name": "Secret"})
	item := s.createClothing(t, alice, map[string]string{"name": "Hat"})

	for _, path := range []string{"/api/outfits/" + o.ID, "/api/clothing/" + item.ID} {
		if status := s.do(t, "GET", path, bob, nil, nil); status != http.StatusNotFound {
			t.Errorf("expected 404 for %s as another owner, got %d", path, status)
		}
	}
	if status := s.do(t, "DELETE", "/api/outfits/"+o.ID, bob, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 deleting another owner's outfit, got %d", status)
	}

	var errResp errorResponse
	status := s.do(t, "POST", "/api/collections", bob, map[string]any{
		"name": "Stolen", "outfit_ids": []string{o.ID},
	}, &errResp)
	if status != http.StatusNotFound {
		t.Errorf("expected 404 assigning another owner's outfit, got %d", status)
	}

	var outfits []outfitResponse
	s.do(t, "GET", "/api/outfits", bob, nil, &outfits)
	if len(outfits) != 0 {
		t.Errorf("expected bob to see no outfits, got %d", len(outfits))
	}
}

func TestOutfitVanishedBeforeReread(t *testing.T) {
	h := &OutfitsHandler{DB: db.NewTestDB(t)}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/outfits/gone/favorite", nil)

	h.respond(rec, req, http.StatusOK, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an outfit deleted before the re-read, got %d", rec.Code)
	}
}

func TestCollectionReservedNamesIgnoreCase(t *testing.T) {
	s := setupTestServer(t)
	token := s.signup(t, "ana@example.com")
	o := s.createOutfit(t, token, map[string]any{"name": "o1", "collection_name": "general"})
	if o.CollectionName != model.DefaultCollection {
		t.Errorf("expected %q, got %q", model.DefaultCollection, o.CollectionName)
	}

	for _, name := range []string{"general", "FAVORITOS"} {
		var errResp errorResponse
		status := s.do(t, "POST", "/api/collections", token, map[string]any{
			"name": name, "outfit_ids": []string{o.ID},
		}, &errResp)
		if status != http.StatusBadRequest || errResp.Field != "name" {
			t.Errorf("%q: expected reserved name rejection, got %d %+v", name, status, errResp)
		}
	}
}
