package handlers

import (
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"sediment-analysis-backend/internal/apperr"
	"sediment-analysis-backend/internal/middleware"
	"sediment-analysis-backend/internal/models"
	"sediment-analysis-backend/internal/services"
)

// Analyzer runs one upload through the detection pipeline.
type Analyzer interface {
	Analyze(in services.AnalysisInput) (*models.AnalyzeResponse, error)
}

type PredictHandler struct {
	analyzer Analyzer
}

func NewPredictHandler(analyzer Analyzer) *PredictHandler {
	return &PredictHandler{
		analyzer: analyzer,
	}
}

// Predict handles POST /predict: multipart form with an image file and a
// visit_id field. The owning clinician comes from the verified credential.
func (h *PredictHandler) Predict(c *gin.Context) {
	doctorID, ok := requireUserID(c)
	if !ok {
		return
	}

	visitIDStr := c.PostForm("visit_id")
	if visitIDStr == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "visit_id is required"})
		return
	}
	visitID, err := uuid.Parse(visitIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid visit_id"})
		return
	}

	fileHeader, err := formImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "no image uploaded",
			Message: "provide the image in a 'file' or 'image' form field",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read uploaded file"})
		return
	}

	resp, err := h.analyzer.Analyze(services.AnalysisInput{
		DoctorID:         doctorID,
		VisitID:          visitID,
		OriginalFilename: fileHeader.Filename,
		ContentType:      fileHeader.Header.Get("Content-Type"),
		Data:             data,
	})
	if err != nil {
		log.Printf("predict: visit %s: %v", visitID, err)
		c.JSON(apperr.Status(err), models.ErrorResponse{Error: apperr.PublicMessage(err)})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// formImage accepts the canonical "file" field and the "image" alias some
// clients still send.
func formImage(c *gin.Context) (*multipart.FileHeader, error) {
	fh, err := c.FormFile("file")
	if err == nil {
		return fh, nil
	}
	return c.FormFile("image")
}

// requireUserID pulls the verified clinician id set by the auth middleware.
func requireUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid user id"})
		return uuid.Nil, false
	}
	return id, true
}
