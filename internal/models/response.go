package models

import "time"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type AnalyzeResponse struct {
	Success         bool           `json:"success"`
	ImageID         string         `json:"image_id"`
	AnalysisID      string         `json:"analysis_id"`
	StoragePath     string         `json:"storage_path"`
	Counts          map[string]int `json:"counts"`
	Detections      []Detection    `json:"detections"`
	TotalDetections int            `json:"total_detections"`
}

type PatientResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Alias     string    `json:"alias,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type PatientsResponse struct {
	Patients []PatientResponse `json:"patients"`
}

type CaseResponse struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	Title       string    `json:"title"`
	PatientCode string    `json:"patient_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type CasesResponse struct {
	Cases []CaseResponse `json:"cases"`
}

type VisitResponse struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"case_id"`
	VisitDate time.Time `json:"visit_date"`
}

type VisitsResponse struct {
	Visits []VisitResponse `json:"visits"`
}

type ImageResponse struct {
	ID               string    `json:"id"`
	VisitID          string    `json:"visit_id"`
	StoragePath      string    `json:"storage_path"`
	OriginalFilename string    `json:"original_filename"`
	ContentType      string    `json:"content_type"`
	CreatedAt        time.Time `json:"created_at"`
}

type ImagesResponse struct {
	Images []ImageResponse `json:"images"`
}

// AnalysisResponse embeds its image context. Image is null rather than the
// whole record being omitted when the related image cannot be resolved.
type AnalysisResponse struct {
	ID         string         `json:"id"`
	ImageID    string         `json:"image_id"`
	ModelName  string         `json:"model_name"`
	Counts     map[string]int `json:"counts"`
	Detections []Detection    `json:"detections"`
	CreatedAt  time.Time      `json:"created_at"`
	Image      *AnalysisImage `json:"image"`
}

type AnalysisImage struct {
	ID               string        `json:"id"`
	StoragePath      string        `json:"storage_path"`
	OriginalFilename string        `json:"original_filename"`
	ContentType      string        `json:"content_type"`
	VisitID          string        `json:"visit_id"`
	CreatedAt        time.Time     `json:"created_at"`
	Visit            *VisitContext `json:"visit,omitempty"`
}

type AnalysesResponse struct {
	Analysis []AnalysisResponse `json:"analysis"`
}

type SignedURLResponse struct {
	SignedURL   string `json:"signed_url"`
	ExpiresIn   int    `json:"expires_in"`
	StoragePath string `json:"storage_path"`
}
