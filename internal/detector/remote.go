package detector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"sediment-analysis-backend/internal/imaging"
)

// RemoteEngine delegates inference to a model-serving sidecar over HTTP.
// Each request is a one-shot call; retries, if any, are the sidecar's
// concern.
type RemoteEngine struct {
	baseURL       string
	httpClient    *http.Client
	minConfidence float32
}

type remotePrediction struct {
	Detections []struct {
		ClassID    int     `json:"class_id"`
		Confidence float32 `json:"confidence"`
		BBox       struct {
			X1 float64 `json:"x1"`
			Y1 float64 `json:"y1"`
			X2 float64 `json:"x2"`
			Y2 float64 `json:"y2"`
		} `json:"bbox"`
	} `json:"detections"`
}

func NewRemoteEngine(baseURL string, minConfidence float64) *RemoteEngine {
	return &RemoteEngine{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		minConfidence: float32(minConfidence),
	}
}

func (e *RemoteEngine) ModelName() string {
	return "remote"
}

func (e *RemoteEngine) Detect(img *imaging.DecodedImage) ([]RawDetection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image."+img.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(img.Data)); err != nil {
		return nil, fmt.Errorf("failed to copy image data: %w", err)
	}
	writer.Close()

	req, err := http.NewRequest("POST", e.baseURL+"/predict", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status %d", resp.StatusCode)
	}

	var result remotePrediction
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	detections := make([]RawDetection, 0, len(result.Detections))
	for _, d := range result.Detections {
		if d.Confidence < e.minConfidence {
			continue
		}
		detections = append(detections, RawDetection{
			ClassIndex: d.ClassID,
			Confidence: d.Confidence,
			X1:         d.BBox.X1,
			Y1:         d.BBox.Y1,
			X2:         d.BBox.X2,
			Y2:         d.BBox.Y2,
		})
	}
	return detections, nil
}
