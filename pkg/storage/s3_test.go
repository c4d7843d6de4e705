package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateVideoFileType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		filename    string
		want        bool
	}{
		{"mp4 by content type", "video/mp4", "clip.bin", true},
		{"mov by extension only", "", "clip.MOV", true},
		{"webm both", "video/webm", "clip.webm", true},
		{"image rejected", "image/png", "clip.png", false},
		{"no hints rejected", "", "clip", false},
		{"mkv rejected", "video/x-matroska", "clip.mkv", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateVideoFileType(tt.contentType, tt.filename))
		})
	}
}

func TestVideoKey(t *testing.T) {
	assert.Equal(t, "videos/u1/v1.mp4", VideoKey("u1", "v1", "holiday.mp4"))
	assert.Equal(t, "videos/u1/v1.webm", VideoKey("u1", "v1", "clip.WEBM"))
	// unknown extensions normalize to .mp4
	assert.Equal(t, "videos/u1/v1.mp4", VideoKey("u1", "v1", "weird.xyz"))
}

func TestContentTypeForFilename(t *testing.T) {
	assert.Equal(t, "video/quicktime", ContentTypeForFilename("a.mov"))
	assert.Equal(t, "application/octet-stream", ContentTypeForFilename("a.txt"))
}
