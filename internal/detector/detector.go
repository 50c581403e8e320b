// Package detector wraps the object-detection model behind a narrow
// interface. The pipeline consumes detections; it never reimplements or
// inspects the model itself.
package detector

import (
	"errors"

	"sediment-analysis-backend/internal/imaging"
)

// ErrEngineUnavailable reports that no engine was loaded at process start.
var ErrEngineUnavailable = errors.New("inference engine unavailable")

// RawDetection is one model-reported element before taxonomy normalization.
// Coordinates are xyxy in pixels of the original image, x1<=x2, y1<=y2.
type RawDetection struct {
	ClassIndex int
	Confidence float32
	X1, Y1     float64
	X2, Y2     float64
}

// Engine is loaded once at process start and must tolerate concurrent Detect
// calls from multiple in-flight requests.
type Engine interface {
	Detect(img *imaging.DecodedImage) ([]RawDetection, error)
	ModelName() string
}
