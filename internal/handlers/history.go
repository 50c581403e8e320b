package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"sediment-analysis-backend/internal/models"
	"sediment-analysis-backend/internal/supabase"
)

// HistoryHandler serves the clinician's read-only record surface. Every query
// is filtered by the verified clinician id; there is no cross-tenant view.
type HistoryHandler struct {
	dbClient *supabase.DatabaseClient
}

func NewHistoryHandler(dbClient *supabase.DatabaseClient) *HistoryHandler {
	return &HistoryHandler{
		dbClient: dbClient,
	}
}

// ListPatients handles GET /history/patients. An optional search term matches
// patient code or alias, case-insensitively.
func (h *HistoryHandler) ListPatients(c *gin.Context) {
	doctorID, ok := requireUserID(c)
	if !ok {
		return
	}

	patients, err := h.dbClient.ListPatients(doctorID, c.Query("search"))
	if err != nil {
		log.Printf("history: list patients: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list patients"})
		return
	}

	resp := models.PatientsResponse{Patients: make([]models.PatientResponse, 0, len(patients))}
	for _, p := range patients {
		resp.Patients = append(resp.Patients, models.PatientResponse{
			ID:        p.ID.String(),
			Code:      p.Code,
			Alias:     p.Alias.String,
			CreatedAt: p.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// ListCases handles GET /history/cases with an optional patient_id filter.
func (h *HistoryHandler) ListCases(c *gin.Context) {
	doctorID, ok := requireUserID(c)
	if !ok {
		return
	}

	patientID, ok := optionalUUIDQuery(c, "patient_id")
	if !ok {
		return
	}

	cases, err := h.dbClient.ListCases(doctorID, patientID)
	if err != nil {
		log.Printf("history: list cases: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list cases"})
		return
	}

	resp := models.CasesResponse{Cases: make([]models.CaseResponse, 0, len(cases))}
	for _, cs := range cases {
		resp.Cases = append(resp.Cases, models.CaseResponse{
			ID:          cs.ID.String(),
			PatientID:   cs.PatientID.String(),
			Title:       cs.Title,
			PatientCode: cs.PatientCode.String,
			CreatedAt:   cs.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// ListVisits handles GET /history/visits with an optional case_id filter.
func (h *HistoryHandler) ListVisits(c *gin.Context) {
	doctorID, ok := requireUserID(c)
	if !ok {
		return
	}

	caseID, ok := optionalUUIDQuery(c, "case_id")
	if !ok {
		return
	}

	visits, err := h.dbClient.ListVisits(doctorID, caseID)
	if err != nil {
		log.Printf("history: list visits: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list visits"})
		return
	}

	resp := models.VisitsResponse{Visits: make([]models.VisitResponse, 0, len(visits))}
	for _, v := range visits {
		resp.Visits = append(resp.Visits, models.VisitResponse{
			ID:        v.ID.String(),
			CaseID:    v.CaseID.String(),
			VisitDate: v.VisitDate,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// ListImages handles GET /history/images. visit_id is required and ownership
// of the visit is checked before any image row is read.
func (h *HistoryHandler) ListImages(c *gin.Context) {
	doctorID, ok := requireUserID(c)
	if !ok {
		return
	}

	visitIDStr := c.Query("visit_id")
	if visitIDStr == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "visit_id is required"})
		return
	}
	visitID, err := uuid.Parse(visitIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid visit_id"})
		return
	}

	visit, err := h.dbClient.GetVisit(visitID)
	if err != nil {
		if supabase.IsNotFound(err) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "visit not found"})
			return
		}
		log.Printf("history: get visit %s: %v", visitID, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load visit"})
		return
	}
	if visit.DoctorID != doctorID {
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "no permission to access this visit"})
		return
	}

	images, err := h.dbClient.ListImages(visitID, doctorID)
	if err != nil {
		log.Printf("history: list images for visit %s: %v", visitID, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list images"})
		return
	}

	resp := models.ImagesResponse{Images: make([]models.ImageResponse, 0, len(images))}
	for _, img := range images {
		resp.Images = append(resp.Images, imageResponse(img))
	}
	c.JSON(http.StatusOK, resp)
}

// ListAnalyses handles GET /history/analysis with optional visit_id or
// image_id filters.
func (h *HistoryHandler) ListAnalyses(c *gin.Context) {
	doctorID, ok := requireUserID(c)
	if !ok {
		return
	}

	visitID, ok := optionalUUIDQuery(c, "visit_id")
	if !ok {
		return
	}
	imageID, ok := optionalUUIDQuery(c, "image_id")
	if !ok {
		return
	}

	analyses, err := h.dbClient.ListAnalyses(doctorID, visitID, imageID)
	if err != nil {
		log.Printf("history: list analyses: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list analyses"})
		return
	}

	resp := models.AnalysesResponse{Analysis: make([]models.AnalysisResponse, 0, len(analyses))}
	for _, a := range analyses {
		resp.Analysis = append(resp.Analysis, analysisResponse(a.Analysis, a.Image, nil))
	}
	c.JSON(http.StatusOK, resp)
}

// GetAnalysis handles GET /history/analysis/:analysis_id and returns the
// analysis with its image and the visit -> case -> patient chain.
func (h *HistoryHandler) GetAnalysis(c *gin.Context) {
	doctorID, ok := requireUserID(c)
	if !ok {
		return
	}

	analysisID, err := uuid.Parse(c.Param("analysis_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid analysis_id"})
		return
	}

	detail, err := h.dbClient.GetAnalysis(analysisID, doctorID)
	if err != nil {
		if supabase.IsNotFound(err) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "analysis not found"})
			return
		}
		log.Printf("history: get analysis %s: %v", analysisID, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load analysis"})
		return
	}

	c.JSON(http.StatusOK, analysisResponse(detail.Analysis, detail.Image, detail.Visit))
}

func optionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid " + name})
		return nil, false
	}
	return &id, true
}

func imageResponse(img models.ImageRecord) models.ImageResponse {
	return models.ImageResponse{
		ID:               img.ID.String(),
		VisitID:          img.VisitID.String(),
		StoragePath:      img.StoragePath,
		OriginalFilename: img.OriginalFilename,
		ContentType:      img.ContentType,
		CreatedAt:        img.CreatedAt,
	}
}

func analysisResponse(a models.AnalysisRecord, img *models.ImageRecord, visit *models.VisitContext) models.AnalysisResponse {
	resp := models.AnalysisResponse{
		ID:         a.ID.String(),
		ImageID:    a.ImageID.String(),
		ModelName:  a.ModelName,
		Counts:     a.Counts,
		Detections: a.Detections,
		CreatedAt:  a.CreatedAt,
	}
	if img != nil {
		resp.Image = &models.AnalysisImage{
			ID:               img.ID.String(),
			StoragePath:      img.StoragePath,
			OriginalFilename: img.OriginalFilename,
			ContentType:      img.ContentType,
			VisitID:          img.VisitID.String(),
			CreatedAt:        img.CreatedAt,
			Visit:            visit,
		}
	}
	return resp
}
