package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"wallpaperd/services"

	"github.com/gin-gonic/gin"
)

// streamable lists the file extensions that may be streamed
var streamable = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".heic": true,
	".mov": true, ".mp4": true,
}

// FileHandler handles file management endpoints
type FileHandler struct {
	fileService services.FileService
	root        string
}

// NewFileHandler creates a new file handler serving files under root
func NewFileHandler(fs services.FileService, root string) *FileHandler {
	return &FileHandler{
		fileService: fs,
		root:        root,
	}
}

// ListFiles returns a list of all discovered wallpaper files
func (h *FileHandler) ListFiles(c *gin.Context) {
	// Scan for wallpaper files
	files, err := h.fileService.ScanWallpaperFiles(h.root)
	if err != nil {
		log.Printf("Error scanning wallpaper files: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to scan files",
			"details": err.Error(),
		})
		return
	}

	// Return the file list
	c.JSON(http.StatusOK, gin.H{
		"files": files,
		"count": len(files),
	})
}

// StreamFile streams a wallpaper image or live photo video with support for range requests
func (h *FileHandler) StreamFile(c *gin.Context) {
	requestedPath := strings.TrimPrefix(c.Param("filepath"), "/")

	fullPath, status, reason := h.resolve(requestedPath)
	if status != http.StatusOK {
		c.JSON(status, gin.H{
			"error": reason,
			"path":  requestedPath,
		})
		return
	}

	file, err := os.Open(fullPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to open file",
			"details": err.Error(),
		})
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "file access error",
			"details": err.Error(),
		})
		return
	}

	// Set appropriate headers for media streaming
	c.Header("Content-Type", h.fileService.GetContentType(requestedPath))
	c.Header("Content-Length", strconv.FormatInt(info.Size(), 10))
	c.Header("Accept-Ranges", "bytes")
	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("Access-Control-Allow-Origin", "*")

	if rangeHeader := c.GetHeader("Range"); rangeHeader != "" {
		h.handleRangeRequest(c, file, info.Size(), rangeHeader)
		return
	}

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		log.Printf("Error streaming file %s: %v", requestedPath, err)
	}
}

// resolve maps a requested relative path to a streamable regular file under
// the wallpaper root. Any status other than 200 comes with a reason.
func (h *FileHandler) resolve(requested string) (string, int, string) {
	if err := h.fileService.ValidateFilePath(requested); err != nil {
		return "", http.StatusForbidden, "path security violation: " + err.Error()
	}
	if !streamable[strings.ToLower(filepath.Ext(requested))] {
		return "", http.StatusForbidden, "only wallpaper images and .mov/.mp4 videos can be streamed"
	}

	root, err := filepath.Abs(h.root)
	if err != nil {
		return "", http.StatusInternalServerError, "server configuration error"
	}
	full := filepath.Join(root, requested)
	if !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", http.StatusForbidden, "path traversal not allowed"
	}

	info, err := os.Stat(full)
	switch {
	case os.IsNotExist(err):
		return "", http.StatusNotFound, "file not found"
	case err != nil:
		return "", http.StatusInternalServerError, "file access error"
	case info.IsDir():
		return "", http.StatusBadRequest, "path is a directory, not a file"
	}
	return full, http.StatusOK, ""
}

// handleRangeRequest handles HTTP range requests so video players can seek
func (h *FileHandler) handleRangeRequest(c *gin.Context, file *os.File, fileSize int64, rangeHeader string) {
	// Parse range header (e.g., "bytes=0-1023" or "bytes=1024-")
	if !strings.HasPrefix(rangeHeader, "bytes=") {
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	rangeSpec := strings.TrimPrefix(rangeHeader, "bytes=")
	ranges := strings.Split(rangeSpec, "-")

	if len(ranges) != 2 {
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	start, end, ok := parseByteRange(ranges[0], ranges[1], fileSize)
	if !ok {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	contentLength := end - start + 1

	// Seek to start position
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to seek file",
		})
		return
	}

	// Streaming headers are already set; only the length changes
	c.Header("Content-Length", strconv.FormatInt(contentLength, 10))
	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	c.Status(http.StatusPartialContent)

	// Copy only the requested range
	if _, err := io.CopyN(c.Writer, file, contentLength); err != nil {
		log.Printf("Error streaming range %d-%d: %v", start, end, err)
	}
}

// parseByteRange resolves one "start-end" range spec against size. A missing
// start is a suffix range ("-500" is the last 500 bytes).
func parseByteRange(first, last string, size int64) (start, end int64, ok bool) {
	if size <= 0 {
		return 0, 0, false
	}

	if first == "" {
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, false
	}

	end = size - 1
	if last != "" {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil || end < start {
			return 0, 0, false
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, true
}
