package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sediment-analysis-backend/internal/middleware"
	"sediment-analysis-backend/internal/models"
)

type fakeIssuer struct {
	bucket  string
	signErr error
	signed  []string
}

func (f *fakeIssuer) Bucket() string { return f.bucket }

func (f *fakeIssuer) CreateSignedURL(storagePath string, expiresIn int) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	f.signed = append(f.signed, storagePath)
	return "https://example.supabase.co/storage/v1/object/sign/" + storagePath + "?token=abc", nil
}

type fakeFinder struct {
	err   error
	calls []string
}

func (f *fakeFinder) FindImageByPath(storagePath string, doctorID uuid.UUID) (*models.ImageRecord, error) {
	f.calls = append(f.calls, storagePath)
	if f.err != nil {
		return nil, f.err
	}
	return &models.ImageRecord{StoragePath: storagePath, DoctorID: doctorID}, nil
}

func storageRouter(doctorID uuid.UUID, issuer SignedURLIssuer, finder ImageFinder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, doctorID.String())
	})
	handler := NewStorageHandler(issuer, finder)
	router.GET("/storage/signed-url", handler.SignedURL)
	return router
}

func TestSignedURLHappyPath(t *testing.T) {
	doctorID := uuid.New()
	issuer := &fakeIssuer{bucket: "urine-images"}
	finder := &fakeFinder{}
	router := storageRouter(doctorID, issuer, finder)

	path := fmt.Sprintf("%s/%s/20240101_120000_abcd1234.jpg", doctorID, uuid.New())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/storage/signed-url?storage_path="+path, nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.SignedURLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, path, resp.StoragePath)
	assert.Equal(t, 60, resp.ExpiresIn)
	assert.Contains(t, resp.SignedURL, path)
	assert.Equal(t, []string{path}, finder.calls)
}

func TestSignedURLStripsBucketPrefix(t *testing.T) {
	doctorID := uuid.New()
	issuer := &fakeIssuer{bucket: "urine-images"}
	router := storageRouter(doctorID, issuer, &fakeFinder{})

	path := fmt.Sprintf("%s/%s/20240101_120000_abcd1234.jpg", doctorID, uuid.New())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/storage/signed-url?storage_path=urine-images/"+path, nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, issuer.signed, 1)
	assert.Equal(t, path, issuer.signed[0])
}

func TestSignedURLForeignPrefixForbidden(t *testing.T) {
	doctorID := uuid.New()
	router := storageRouter(doctorID, &fakeIssuer{bucket: "urine-images"}, &fakeFinder{})

	path := fmt.Sprintf("%s/%s/20240101_120000_abcd1234.jpg", uuid.New(), uuid.New())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/storage/signed-url?storage_path="+path, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSignedURLMalformedPath(t *testing.T) {
	doctorID := uuid.New()
	router := storageRouter(doctorID, &fakeIssuer{bucket: "urine-images"}, &fakeFinder{})

	for _, path := range []string{"", doctorID.String(), doctorID.String() + "/only-two"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/storage/signed-url?storage_path="+path, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "path %q", path)
	}
}

func TestSignedURLMissingRecordStillIssues(t *testing.T) {
	doctorID := uuid.New()
	issuer := &fakeIssuer{bucket: "urine-images"}
	finder := &fakeFinder{err: errors.New("sql: no rows in result set")}
	router := storageRouter(doctorID, issuer, finder)

	path := fmt.Sprintf("%s/%s/20240101_120000_abcd1234.jpg", doctorID, uuid.New())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/storage/signed-url?storage_path="+path, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, issuer.signed, 1)
}

func TestSignedURLObjectMissing(t *testing.T) {
	doctorID := uuid.New()
	issuer := &fakeIssuer{bucket: "urine-images", signErr: errors.New("object not found")}
	router := storageRouter(doctorID, issuer, &fakeFinder{})

	path := fmt.Sprintf("%s/%s/20240101_120000_abcd1234.jpg", doctorID, uuid.New())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/storage/signed-url?storage_path="+path, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSignedURLIssuerFailure(t *testing.T) {
	doctorID := uuid.New()
	issuer := &fakeIssuer{bucket: "urine-images", signErr: errors.New("upstream 503")}
	router := storageRouter(doctorID, issuer, &fakeFinder{})

	path := fmt.Sprintf("%s/%s/20240101_120000_abcd1234.jpg", doctorID, uuid.New())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/storage/signed-url?storage_path="+path, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
