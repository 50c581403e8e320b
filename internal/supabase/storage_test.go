package supabase_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sediment-analysis-backend/internal/supabase"
)

func TestObjectPath_Structure(t *testing.T) {
	doctorID := uuid.New()
	visitID := uuid.New()

	path := supabase.ObjectPath(doctorID, visitID, "sample.png")
	parts := strings.Split(path, "/")

	require.Len(t, parts, 3)
	assert.Equal(t, doctorID.String(), parts[0])
	assert.Equal(t, visitID.String(), parts[1])
	assert.True(t, strings.HasSuffix(parts[2], ".png"))
}

func TestObjectPath_UniquePerCall(t *testing.T) {
	doctorID := uuid.New()
	visitID := uuid.New()

	a := supabase.ObjectPath(doctorID, visitID, "same.jpg")
	b := supabase.ObjectPath(doctorID, visitID, "same.jpg")
	assert.NotEqual(t, a, b)
}

func TestObjectPath_DefaultExtension(t *testing.T) {
	path := supabase.ObjectPath(uuid.New(), uuid.New(), "no-extension")
	assert.True(t, strings.HasSuffix(path, ".jpg"))
}

func TestNormalizeSignedURL(t *testing.T) {
	base := "https://example.supabase.co"

	tests := []struct {
		name    string
		signed  string
		want    string
		wantErr bool
	}{
		{
			name:   "absolute url passes through",
			signed: "https://cdn.example.com/object/sign/bucket/a.jpg?token=t",
			want:   "https://cdn.example.com/object/sign/bucket/a.jpg?token=t",
		},
		{
			name:   "leading slash joined to storage base",
			signed: "/object/sign/bucket/a.jpg?token=t",
			want:   "https://example.supabase.co/storage/v1/object/sign/bucket/a.jpg?token=t",
		},
		{
			name:   "bare relative path joined to storage base",
			signed: "object/sign/bucket/a.jpg?token=t",
			want:   "https://example.supabase.co/storage/v1/object/sign/bucket/a.jpg?token=t",
		},
		{
			name:    "empty value fails",
			signed:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := supabase.NormalizeSignedURL(base, tt.signed)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeSignedURL_TrailingSlashBase(t *testing.T) {
	got, err := supabase.NormalizeSignedURL("https://example.supabase.co/", "/object/sign/b/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://example.supabase.co/storage/v1/object/sign/b/a.jpg", got)
}
