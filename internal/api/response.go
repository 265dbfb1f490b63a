package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/ai"
	"github.com/erazemk/omara/internal/store"
)

// maxBodyBytes caps JSON request bodies. Inline photos ride in JSON as data
// URLs, so this leaves room for one.
const maxBodyBytes = 16 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Warn("encoding response", zap.Error(err))
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorResponse{Error: message})
}

// fieldError reports a validation failure next to the offending field.
func fieldError(w http.ResponseWriter, field, message string) {
	jsonResponse(w, http.StatusBadRequest, errorResponse{Error: message, Field: field})
}

// decodeJSON decodes and validates a JSON request body. On failure it writes
// the response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			fieldError(w, fe.Field(), describeField(fe))
			return false
		}
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " required"
	case "email":
		return "invalid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "url", "http_url":
		return "invalid URL"
	}
	return "invalid " + fe.Field()
}

// storeError maps store and AI errors to responses. Anything unrecognised is
// logged and reported as a generic failure of action.
func storeError(w http.ResponseWriter, err error, action string) {
	var serr *store.ValidationError
	var aerr *ai.ValidationError
	switch {
	case errors.As(err, &serr):
		fieldError(w, serr.Field, serr.Message)
	case errors.As(err, &aerr):
		fieldError(w, aerr.Field, aerr.Message)
	case errors.Is(err, store.ErrNotAuthenticated):
		jsonError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ai.ErrUnavailable):
		jsonError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ai.ErrRateLimited):
		jsonError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, ai.ErrBadResponse):
		zap.L().Warn(action, zap.Error(err))
		jsonError(w, http.StatusBadGateway, "the assistant returned an unusable answer, try again")
	default:
		zap.L().Error(action, zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// isClientError reports whether err is the caller's fault rather than ours.
func isClientError(err error) bool {
	var serr *store.ValidationError
	var aerr *ai.ValidationError
	return errors.As(err, &serr) || errors.As(err, &aerr) ||
		errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrNotAuthenticated)
}
