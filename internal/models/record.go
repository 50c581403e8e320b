package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Every record carries the owning clinician's id as a denormalized
// authorization column. The value is always stamped from the verified
// credential, never taken from a request body.

type Patient struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Code      string
	Alias     sql.NullString // from the optional patient_details table
	CreatedAt time.Time
}

type Case struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	PatientID   uuid.UUID
	Title       string
	PatientCode sql.NullString // denormalized for list views
	CreatedAt   time.Time
}

type Visit struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	CaseID    uuid.UUID
	VisitDate time.Time
}

type ImageRecord struct {
	ID               uuid.UUID
	DoctorID         uuid.UUID
	VisitID          uuid.UUID
	StoragePath      string
	OriginalFilename string
	ContentType      string
	CreatedAt        time.Time
}

// BoundingBox is axis-aligned in pixel coordinates, x1<=x2 and y1<=y2.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Detection is one model-reported element, normalized into the clinical
// vocabulary. Confidence is rounded to 4 decimals and coordinates to 2 so the
// persisted jsonb is stable across runs.
type Detection struct {
	ClassID    int         `json:"class_id"`
	ClassName  string      `json:"class_name"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}

type AnalysisRecord struct {
	ID         uuid.UUID
	DoctorID   uuid.UUID
	ImageID    uuid.UUID
	ModelName  string
	Counts     map[string]int
	Detections []Detection
	CreatedAt  time.Time
}

// VisitContext is the visit -> case -> patient chain embedded into an
// analysis detail response. Any level may be nil when the related row could
// not be resolved; the analysis itself is still returned.
type VisitContext struct {
	ID        uuid.UUID    `json:"id"`
	VisitDate time.Time    `json:"visit_date"`
	Case      *CaseContext `json:"case,omitempty"`
}

type CaseContext struct {
	ID      uuid.UUID       `json:"id"`
	Title   string          `json:"title"`
	Patient *PatientContext `json:"patient,omitempty"`
}

type PatientContext struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
}
