package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"sediment-analysis-backend/internal/models"
	"sediment-analysis-backend/internal/supabase"
)

// SignedURLIssuer mints short-lived download URLs for stored objects.
type SignedURLIssuer interface {
	Bucket() string
	CreateSignedURL(storagePath string, expiresIn int) (string, error)
}

// ImageFinder looks up an image record by its storage path.
type ImageFinder interface {
	FindImageByPath(storagePath string, doctorID uuid.UUID) (*models.ImageRecord, error)
}

type StorageHandler struct {
	issuer SignedURLIssuer
	images ImageFinder
}

func NewStorageHandler(issuer SignedURLIssuer, images ImageFinder) *StorageHandler {
	return &StorageHandler{
		issuer: issuer,
		images: images,
	}
}

// SignedURL handles GET /storage/signed-url?storage_path=... The path prefix
// is the authorization boundary: the first segment must be the caller's own
// id. A missing image row is logged but does not block issuance, so blobs
// whose records were lost stay reachable by their owner.
func (h *StorageHandler) SignedURL(c *gin.Context) {
	doctorID, ok := requireUserID(c)
	if !ok {
		return
	}

	storagePath := c.Query("storage_path")
	if storagePath == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "storage_path is required"})
		return
	}

	// Tolerate clients that send the bucket-qualified path.
	storagePath = strings.TrimPrefix(storagePath, h.issuer.Bucket()+"/")

	segments := strings.Split(storagePath, "/")
	if len(segments) < 3 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid storage_path"})
		return
	}
	if segments[0] != doctorID.String() {
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "no permission to access this file"})
		return
	}

	if h.images != nil {
		if _, err := h.images.FindImageByPath(storagePath, doctorID); err != nil {
			log.Printf("storage: no image record for %s: %v", storagePath, err)
		}
	}

	signedURL, err := h.issuer.CreateSignedURL(storagePath, int(supabase.SignedURLTTL.Seconds()))
	if err != nil {
		log.Printf("storage: sign %s: %v", storagePath, err)
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist") {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create signed url"})
		return
	}

	c.JSON(http.StatusOK, models.SignedURLResponse{
		SignedURL:   signedURL,
		ExpiresIn:   int(supabase.SignedURLTTL.Seconds()),
		StoragePath: storagePath,
	})
}
