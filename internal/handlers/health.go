package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"sediment-analysis-backend/internal/models"
)

// HealthHandler answers liveness probes. It is registered outside the
// authenticated group.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status: "ok",
	})
}

func RootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "sediment-analysis-backend",
		"status":  "ok",
	})
}
