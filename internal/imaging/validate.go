// Package imaging gates uploaded image bytes before any network call or
// inference work. It validates size and format only; no persistence, no
// transformation.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
)

// MaxImageBytes is the upload ceiling: 10 MiB.
const MaxImageBytes = 10 * 1024 * 1024

// Distinct sentinel errors so callers can show different user-facing messages
// for each rejection reason.
var (
	ErrTooLarge          = errors.New("image exceeds 10 MiB limit")
	ErrUnsupportedFormat = errors.New("unsupported image format, use JPEG or PNG")
	ErrUndecodable       = errors.New("image data could not be decoded")
)

var allowedTypes = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
}

// DecodedImage is the validated result handed to the inference engine.
type DecodedImage struct {
	Data   []byte
	Image  image.Image
	Format string // "jpeg" or "png"
	Width  int
	Height int
}

// Validate checks the size ceiling and format whitelist, then decodes.
// The size check runs first so oversized payloads are rejected before any
// decoding cost.
func Validate(data []byte) (*DecodedImage, error) {
	if len(data) > MaxImageBytes {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, ErrUndecodable
	}

	// Sniff before decoding so a well-formed GIF fails as unsupported rather
	// than undecodable.
	contentType := http.DetectContentType(data)
	format, ok := allowedTypes[contentType]
	if !ok {
		return nil, ErrUnsupportedFormat
	}

	img, decodedFormat, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if decodedFormat != format {
		return nil, ErrUnsupportedFormat
	}

	bounds := img.Bounds()
	return &DecodedImage{
		Data:   data,
		Image:  img,
		Format: decodedFormat,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
