package supabase

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"
)

// SignedURLTTL is how long issued read URLs stay valid. Deliberately short:
// URLs are reissued on demand, never cached.
const SignedURLTTL = 60 * time.Second

type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, serviceRoleKey, bucket string) (*StorageClient, error) {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil)

	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

func (s *StorageClient) Bucket() string {
	return s.bucket
}

// ObjectPath builds the storage path for an uploaded image:
// {doctor_id}/{visit_id}/{timestamp}_{random}.{ext}. The timestamp plus an
// 8-char random suffix keeps paths unique even for identical filenames
// submitted to the same visit within the same second. The leading segment is
// what every later access check compares against the caller's identity.
func ObjectPath(doctorID, visitID uuid.UUID, originalFilename string) string {
	ext := filepath.Ext(originalFilename)
	if ext == "" {
		ext = ".jpg"
	}
	timestamp := time.Now().Format("20060102_150405")
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s/%s/%s_%s%s", doctorID.String(), visitID.String(), timestamp, suffix, ext)
}

// Upload writes the blob without overwriting: an existing object at the same
// path makes the store reject the write.
func (s *StorageClient) Upload(storagePath string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	upsert := false
	_, err := s.client.UploadFile(s.bucket, storagePath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

func (s *StorageClient) Delete(storagePath string) error {
	_, err := s.client.RemoveFile(s.bucket, []string{storagePath})
	return err
}

// CreateSignedURL mints a short-lived read URL for a stored object. The
// collaborator's response shape is loosely specified, so the result goes
// through NormalizeSignedURL before being returned.
func (s *StorageClient) CreateSignedURL(storagePath string, expiresIn int) (string, error) {
	resp, err := s.client.CreateSignedUrl(s.bucket, storagePath, expiresIn)
	if err != nil {
		return "", err
	}
	return NormalizeSignedURL(s.baseURL, resp.SignedURL)
}

// NormalizeSignedURL resolves the signed-URL value returned by the storage
// API into an absolute URL. Extraction rules, in order:
//  1. an absolute http(s) URL is used as-is
//  2. a path starting with "/" is joined to {base}/storage/v1
//  3. any other non-empty value is treated as relative to {base}/storage/v1/
//  4. an empty value is a normalization failure
func NormalizeSignedURL(baseURL, signed string) (string, error) {
	base := strings.TrimSuffix(baseURL, "/")
	switch {
	case strings.HasPrefix(signed, "http://"), strings.HasPrefix(signed, "https://"):
		return signed, nil
	case strings.HasPrefix(signed, "/"):
		return base + "/storage/v1" + signed, nil
	case signed != "":
		return base + "/storage/v1/" + signed, nil
	default:
		return "", fmt.Errorf("storage returned no signed URL")
	}
}
