package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOutputRows_SkipsLowConfidenceRows(t *testing.T) {
	raw := []float32{
		// x1, y1, x2, y2, conf, class
		10, 10, 50, 50, 0.91, 0,
		5, 5, 20, 20, 0.80, 5,
		1, 1, 2, 2, 0.10, 3, // below floor, NMS padding
	}

	detections := parseOutputRows(raw, 6, 1.0, 1.0, 0.25)
	assert.Len(t, detections, 2)
	assert.Equal(t, 0, detections[0].ClassIndex)
	assert.Equal(t, 5, detections[1].ClassIndex)
	assert.InDelta(t, 0.91, detections[0].Confidence, 1e-6)
}

func TestParseOutputRows_ScalesToOriginalPixels(t *testing.T) {
	raw := []float32{100, 100, 200, 200, 0.5, 1}

	detections := parseOutputRows(raw, 6, 2.0, 0.5, 0.25)
	assert.Len(t, detections, 1)
	assert.InDelta(t, 200.0, detections[0].X1, 1e-9)
	assert.InDelta(t, 400.0, detections[0].X2, 1e-9)
	assert.InDelta(t, 50.0, detections[0].Y1, 1e-9)
	assert.InDelta(t, 100.0, detections[0].Y2, 1e-9)
}

func TestParseOutputRows_NormalizesInvertedBoxes(t *testing.T) {
	raw := []float32{50, 60, 10, 20, 0.5, 1}

	detections := parseOutputRows(raw, 6, 1.0, 1.0, 0.25)
	assert.Len(t, detections, 1)
	assert.LessOrEqual(t, detections[0].X1, detections[0].X2)
	assert.LessOrEqual(t, detections[0].Y1, detections[0].Y2)
}

func TestParseOutputRows_RejectsNarrowStride(t *testing.T) {
	raw := []float32{1, 2, 3, 4}
	assert.Empty(t, parseOutputRows(raw, 4, 1.0, 1.0, 0.25))
}
