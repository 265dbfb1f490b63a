// Package imaging normalises clothing photos before they are stored or sent
// to the model.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// MaxDimension is the maximum width or height for stored photos.
const MaxDimension = 1024

// ModelDimension bounds photos attached to model requests.
const ModelDimension = 512

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 85

// MaxUploadBytes caps a single photo upload.
const MaxUploadBytes = 10 << 20

// Allowed lists the photo media types we accept.
var Allowed = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ErrUnsupported is returned for payloads that are not JPEG, PNG or WebP.
var ErrUnsupported = errors.New("unsupported image format")

// Photo is an image payload with its media type.
type Photo struct {
	Data []byte
	MIME string
}

// Process reads a photo, checks its format from the bytes, downscales it to
// MaxDimension and re-encodes it as JPEG.
func Process(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("image larger than %d bytes", MaxUploadBytes)
	}
	return Resize(data, MaxDimension)
}

// Resize decodes data, scales it so neither side exceeds maxDim and returns
// it as JPEG.
func Resize(data []byte, maxDim int) (*Photo, error) {
	mime, err := Sniff(data)
	if err != nil {
		return nil, err
	}

	img, err := decode(data, mime)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = downscale(img, maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return &Photo{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

// Sniff detects the media type from the leading bytes and rejects anything
// not in Allowed.
func Sniff(data []byte) (string, error) {
	detected := http.DetectContentType(data)
	if !Allowed[detected] {
		return "", fmt.Errorf("%w: %s (only JPEG, PNG and WebP accepted)", ErrUnsupported, detected)
	}
	return detected, nil
}

// ParseDataURL decodes a "data:<mime>;base64,<payload>" string. The declared
// media type must agree with the bytes.
func ParseDataURL(s string) (*Photo, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return nil, errors.New("not a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errors.New("data URL has no payload")
	}
	declared, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return nil, errors.New("data URL is not base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding data URL: %w", err)
	}
	return Verify(declared, data)
}

// Verify checks that data is a supported image matching the declared type.
// An empty declared type is filled in from the bytes.
func Verify(declared string, data []byte) (*Photo, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}
	detected, err := Sniff(data)
	if err != nil {
		return nil, err
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared != "" && declared != detected {
		return nil, fmt.Errorf("declared %s but got %s", declared, detected)
	}
	return &Photo{Data: data, MIME: detected}, nil
}

func decode(data []byte, mime string) (image.Image, error) {
	r := bytes.NewReader(data)
	switch mime {
	case "image/jpeg":
		return jpeg.Decode(r)
	case "image/png":
		return png.Decode(r)
	case "image/webp":
		return webp.Decode(r)
	}
	return nil, ErrUnsupported
}

// downscale keeps the aspect ratio and never upscales.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
