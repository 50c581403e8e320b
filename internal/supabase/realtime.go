package supabase

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
)

// RealtimeClient publishes analysis lifecycle events so the clinician UI can
// refresh without polling. Publishing is best-effort: a failure here never
// fails the pipeline run that triggered it.
type RealtimeClient struct {
	client *supabase.Client
}

func NewRealtimeClient(client *supabase.Client) *RealtimeClient {
	return &RealtimeClient{
		client: client,
	}
}

func (r *RealtimeClient) PublishEvent(channel string, event string, payload map[string]interface{}) error {
	// The Supabase Go client has no direct Realtime publish; row inserts on
	// images/analysis_results trigger Realtime automatically. This remains a
	// seam for explicit event publishing via the Realtime REST API.
	return nil
}

func (r *RealtimeClient) PublishVisitEvent(visitID uuid.UUID, event string, payload map[string]interface{}) error {
	channel := fmt.Sprintf("visit:%s", visitID.String())
	return r.PublishEvent(channel, event, payload)
}

// Event payloads
func AnalysisCompletedPayload(visitID, imageID, analysisID uuid.UUID, totalDetections int) map[string]interface{} {
	return map[string]interface{}{
		"visit_id":         visitID.String(),
		"image_id":         imageID.String(),
		"analysis_id":      analysisID.String(),
		"status":           "completed",
		"total_detections": totalDetections,
	}
}

func AnalysisFailedPayload(visitID uuid.UUID, stage string) map[string]interface{} {
	return map[string]interface{}{
		"visit_id": visitID.String(),
		"status":   "failed",
		"stage":    stage,
	}
}
