package detector_test

import (
	"bytes"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sediment-analysis-backend/internal/detector"
	"sediment-analysis-backend/internal/imaging"
)

func testImage(t *testing.T) *imaging.DecodedImage {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil))
	decoded, err := imaging.Validate(buf.Bytes())
	require.NoError(t, err)
	return decoded
}

func TestRemoteEngine_Detect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"detections":[
			{"class_id":0,"confidence":0.91,"bbox":{"x1":10,"y1":10,"x2":50,"y2":50}},
			{"class_id":5,"confidence":0.80,"bbox":{"x1":5,"y1":5,"x2":20,"y2":20}},
			{"class_id":3,"confidence":0.05,"bbox":{"x1":0,"y1":0,"x2":1,"y2":1}}
		]}`))
	}))
	defer server.Close()

	engine := detector.NewRemoteEngine(server.URL, 0.25)
	detections, err := engine.Detect(testImage(t))
	require.NoError(t, err)

	// The 0.05 detection is below the confidence floor.
	require.Len(t, detections, 2)
	assert.Equal(t, 0, detections[0].ClassIndex)
	assert.InDelta(t, 0.91, detections[0].Confidence, 1e-6)
	assert.Equal(t, 50.0, detections[0].X2)
	assert.Equal(t, 5, detections[1].ClassIndex)
}

func TestRemoteEngine_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	engine := detector.NewRemoteEngine(server.URL, 0.25)
	_, err := engine.Detect(testImage(t))
	assert.Error(t, err)
}

func TestRemoteEngine_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	engine := detector.NewRemoteEngine(server.URL, 0.25)
	_, err := engine.Detect(testImage(t))
	assert.Error(t, err)
}
