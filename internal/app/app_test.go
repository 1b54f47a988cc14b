package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateBuildID(t *testing.T) {
	id := generateBuildID()
	assert.Len(t, id, 12)
	assert.Equal(t, id, generateBuildID())
}

func TestContentTypeForExt(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".js", "application/javascript"},
		{".css", "text/css"},
		{".svg", "image/svg+xml"},
		{".html", "text/html; charset=utf-8"},
		{".ICO", "image/x-icon"},
		{".bin", "application/octet-stream"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, contentTypeForExt(tt.ext), tt.ext)
	}
}
