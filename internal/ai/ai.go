// Package ai defines the two structured exchanges with the generative model:
// clothing attribute autocompletion from a photo, and outfit suggestion from
// an occasion plus the caller's inventory.
//
// Every exchange is single shot. Requests are validated before anything is
// sent and responses are validated before anything is returned; a failed
// exchange returns no partial result.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"google.golang.org/genai"

	"github.com/erazemk/omara/internal/imaging"
	"github.com/erazemk/omara/internal/metrics"
)

var (
	// ErrUnavailable is returned when no model is configured.
	ErrUnavailable = errors.New("AI is not configured")
	// ErrRateLimited is returned when an owner exceeds the request budget.
	ErrRateLimited = errors.New("too many AI requests, try again shortly")
	// ErrBadResponse wraps responses that do not satisfy the schema.
	ErrBadResponse = errors.New("model returned an unusable response")
)

// ValidationError rejects a request before it is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Request is one schema-constrained generation call.
type Request struct {
	Prompt string
	Media  []imaging.Photo
	Schema *genai.Schema
}

// Model produces a JSON document conforming to req.Schema.
type Model interface {
	GenerateJSON(ctx context.Context, req Request) ([]byte, error)
}

// Service runs the exchanges against a Model.
type Service struct {
	model     Model
	timeout   time.Duration
	maxImages int
	validate  *validator.Validate
}

// NewService wraps model. A nil model makes every exchange return
// ErrUnavailable.
func NewService(model Model, timeout time.Duration, maxImages int) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	return &Service{model: model, timeout: timeout, maxImages: maxImages, validate: v}
}

// Enabled reports whether a model is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.model != nil
}

// MaxImages is the number of inventory photos attached to a suggestion
// request.
func (s *Service) MaxImages() int {
	if s == nil {
		return 0
	}
	return s.maxImages
}

// generate runs one call and decodes the JSON result into out.
func (s *Service) generate(ctx context.Context, op string, req Request, out any) error {
	if !s.Enabled() {
		return ErrUnavailable
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	data, err := s.model.GenerateJSON(ctx, req)
	if err != nil {
		metrics.ObserveAI(op, "error", time.Since(start))
		return fmt.Errorf("calling model: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		metrics.ObserveAI(op, "invalid", time.Since(start))
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	metrics.ObserveAI(op, "ok", time.Since(start))
	return nil
}

// checkRequest turns validator failures into a ValidationError on the first
// offending field.
func (s *Service) checkRequest(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fe.Field(), Message: describe(fe)}
	}
	return err
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "invalid"
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
