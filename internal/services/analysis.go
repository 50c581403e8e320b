// Package services holds the detection pipeline: the one orchestration in
// this system with real design content. One call takes an authenticated
// upload through authorization, validation, blob storage, inference and the
// two record inserts, with a compensating blob delete on partial failure.
package services

import (
	"errors"
	"log"
	"math"

	"github.com/google/uuid"
	"sediment-analysis-backend/internal/apperr"
	"sediment-analysis-backend/internal/detector"
	"sediment-analysis-backend/internal/imaging"
	"sediment-analysis-backend/internal/labels"
	"sediment-analysis-backend/internal/models"
	"sediment-analysis-backend/internal/supabase"
)

// RecordStore is the slice of the record store the pipeline needs. A missing
// visit is reported with an error satisfying supabase.IsNotFound.
type RecordStore interface {
	GetVisit(visitID uuid.UUID) (*models.Visit, error)
	CreateImage(img *models.ImageRecord) error
	CreateAnalysis(analysis *models.AnalysisRecord) error
}

// ObjectStore writes and deletes blobs. Upload must be non-overwriting.
type ObjectStore interface {
	Upload(storagePath string, data []byte, contentType string) error
	Delete(storagePath string) error
}

// EventPublisher emits best-effort lifecycle events; failures are ignored.
type EventPublisher interface {
	PublishVisitEvent(visitID uuid.UUID, event string, payload map[string]interface{}) error
}

type AnalysisService struct {
	store   RecordStore
	objects ObjectStore
	engine  detector.Engine
	events  EventPublisher
}

func NewAnalysisService(store RecordStore, objects ObjectStore, engine detector.Engine, events EventPublisher) *AnalysisService {
	return &AnalysisService{
		store:   store,
		objects: objects,
		engine:  engine,
		events:  events,
	}
}

// AnalysisInput is one upload to run through the pipeline. DoctorID always
// comes from the verified credential, never from the request body.
type AnalysisInput struct {
	DoctorID         uuid.UUID
	VisitID          uuid.UUID
	OriginalFilename string
	ContentType      string
	Data             []byte
}

// Analyze runs the pipeline strictly in order: authorize, validate, upload
// blob, run inference, persist image, persist analysis. There are no retries
// and no partial-success response. After the blob upload, any failure up to
// and including the image insert deletes the blob; once the image row exists
// the blob is referenced and is left in place even if the analysis insert
// fails (that orphan is reconciled out of band).
func (s *AnalysisService) Analyze(in AnalysisInput) (*models.AnalyzeResponse, error) {
	// Inference is the expensive stage; refuse up front when no engine was
	// loaded rather than after writes have happened.
	if s.engine == nil {
		return nil, apperr.New(apperr.Dependency, "engine", "inference engine unavailable")
	}

	// AUTHORIZING: ownership check before any write or inference work.
	visit, err := s.store.GetVisit(in.VisitID)
	if err != nil {
		if supabase.IsNotFound(err) {
			return nil, apperr.Wrap(apperr.NotFound, "authorize", "visit not found", err)
		}
		return nil, apperr.Wrap(apperr.Dependency, "authorize", "failed to validate visit", err)
	}
	if visit.DoctorID != in.DoctorID {
		return nil, apperr.New(apperr.Authorization, "authorize", "no permission to access this visit")
	}

	// VALIDATING_IMAGE
	decoded, err := imaging.Validate(in.Data)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "validate", validationMessage(err), err)
	}

	// UPLOADING_BLOB: unique, non-overwriting path under the owner's prefix.
	storagePath := supabase.ObjectPath(in.DoctorID, in.VisitID, in.OriginalFilename)
	if err := s.objects.Upload(storagePath, in.Data, in.ContentType); err != nil {
		return nil, apperr.Wrap(apperr.Dependency, "upload", "failed to store image", err)
	}

	// RUNNING_INFERENCE: from here on the blob exists, so failures compensate.
	raw, err := s.engine.Detect(decoded)
	if err != nil {
		s.compensate(storagePath)
		s.publishFailed(in.VisitID, "inference")
		return nil, apperr.Wrap(apperr.Dependency, "inference", "failed to run detection model", err)
	}

	counts, detections := normalizeDetections(raw)

	// PERSISTING_IMAGE
	img := &models.ImageRecord{
		DoctorID:         in.DoctorID,
		VisitID:          in.VisitID,
		StoragePath:      storagePath,
		OriginalFilename: in.OriginalFilename,
		ContentType:      contentTypeOrDefault(in.ContentType),
	}
	if err := s.store.CreateImage(img); err != nil {
		s.compensate(storagePath)
		s.publishFailed(in.VisitID, "persist_image")
		return nil, apperr.Wrap(apperr.Dependency, "persist_image", "failed to save image record", err)
	}

	// PERSISTING_ANALYSIS: the blob is referenced by the image row now, so a
	// failure here leaves both for out-of-band reconciliation.
	analysis := &models.AnalysisRecord{
		DoctorID:   in.DoctorID,
		ImageID:    img.ID,
		ModelName:  s.engine.ModelName(),
		Counts:     counts,
		Detections: detections,
	}
	if err := s.store.CreateAnalysis(analysis); err != nil {
		s.publishFailed(in.VisitID, "persist_analysis")
		return nil, apperr.Wrap(apperr.Dependency, "persist_analysis", "failed to save analysis record", err)
	}

	if s.events != nil {
		_ = s.events.PublishVisitEvent(in.VisitID, "analysis_completed",
			supabase.AnalysisCompletedPayload(in.VisitID, img.ID, analysis.ID, len(detections)))
	}

	return &models.AnalyzeResponse{
		Success:         true,
		ImageID:         img.ID.String(),
		AnalysisID:      analysis.ID.String(),
		StoragePath:     storagePath,
		Counts:          counts,
		Detections:      detections,
		TotalDetections: len(detections),
	}, nil
}

// normalizeDetections maps raw detections into the clinical taxonomy and
// accumulates per-class counts. Every known class appears in the counts even
// at zero; unrecognized indices are tallied under "unknown". The sum of
// counts always equals the number of detections.
func normalizeDetections(raw []detector.RawDetection) (map[string]int, []models.Detection) {
	counts := labels.EmptyCounts()
	detections := make([]models.Detection, 0, len(raw))

	for _, r := range raw {
		name := labels.Resolve(r.ClassIndex)
		detections = append(detections, models.Detection{
			ClassID:    r.ClassIndex,
			ClassName:  name,
			Confidence: round(float64(r.Confidence), 4),
			BBox: models.BoundingBox{
				X1: round(r.X1, 2),
				Y1: round(r.Y1, 2),
				X2: round(r.X2, 2),
				Y2: round(r.Y2, 2),
			},
		})
		counts[name]++
	}
	return counts, detections
}

func round(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

// compensate removes a blob that no record will ever reference. Best-effort:
// its own failure is logged and never masks the original cause.
func (s *AnalysisService) compensate(storagePath string) {
	if err := s.objects.Delete(storagePath); err != nil {
		log.Printf("pipeline: compensating delete of %s failed: %v", storagePath, err)
	}
}

func (s *AnalysisService) publishFailed(visitID uuid.UUID, stage string) {
	if s.events != nil {
		_ = s.events.PublishVisitEvent(visitID, "analysis_failed", supabase.AnalysisFailedPayload(visitID, stage))
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		return "image too large (maximum 10MB)"
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		return "unsupported image format, use JPEG or PNG"
	default:
		return "could not process image"
	}
}

func contentTypeOrDefault(contentType string) string {
	if contentType == "" {
		return "image/jpeg"
	}
	return contentType
}
