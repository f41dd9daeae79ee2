package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"wallpaperd/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseByteRange(t *testing.T) {
	tests := []struct {
		name        string
		first, last string
		size        int64
		start, end  int64
		ok          bool
	}{
		{"bounded", "0", "9", 100, 0, 9, true},
		{"open ended", "90", "", 100, 90, 99, true},
		{"end clamped", "50", "500", 100, 50, 99, true},
		{"suffix", "", "10", 100, 90, 99, true},
		{"suffix larger than file", "", "500", 100, 0, 99, true},
		{"start past end", "100", "", 100, 0, 0, false},
		{"end before start", "10", "5", 100, 0, 0, false},
		{"negative start", "-1", "5", 100, 0, 0, false},
		{"zero suffix", "", "0", 100, 0, 0, false},
		{"garbage", "a", "b", 100, 0, 0, false},
		{"empty file", "0", "", 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := parseByteRange(tt.first, tt.last, tt.size)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.start, start)
				assert.Equal(t, tt.end, end)
			}
		})
	}
}

func TestStreamFileRejectsUnsatisfiableRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.mov"), []byte("0123456789"), 0644))

	r := gin.New()
	r.GET("/stream/*filepath", NewFileHandler(services.NewFileService(), dir).StreamFile)

	tests := []struct {
		rangeHeader    string
		expectedStatus int
		contentRange   string
	}{
		{"bytes=2-5", http.StatusPartialContent, "bytes 2-5/10"},
		{"bytes=-3", http.StatusPartialContent, "bytes 7-9/10"},
		{"bytes=20-", http.StatusRequestedRangeNotSatisfiable, "bytes */10"},
		{"items=0-1", http.StatusRequestedRangeNotSatisfiable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.rangeHeader, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/stream/clip.mov", nil)
			req.Header.Set("Range", tt.rangeHeader)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.contentRange, w.Header().Get("Content-Range"))
		})
	}
}
