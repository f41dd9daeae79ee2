package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"wallpaperd/types"

	"github.com/disintegration/imaging"
)

// FileService interface defines methods for wallpaper file management
type FileService interface {
	ScanWallpaperFiles(rootPath string) ([]types.WallpaperFile, error)
	ExtractImageMetadata(filePath string) *types.WallpaperMetadata
	ValidateFilePath(path string) error
	GetContentType(filePath string) string
}

// fileService implements the FileService interface
type fileService struct{}

// NewFileService creates a new file service
func NewFileService() FileService {
	return &fileService{}
}

// ScanWallpaperFiles recursively scans a directory for wallpaper images and
// live photo videos. Hidden directories such as the thumbnail cache are skipped.
func (fs *fileService) ScanWallpaperFiles(rootPath string) ([]types.WallpaperFile, error) {
	var files []types.WallpaperFile

	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Printf("Error accessing path %s: %v", path, err)
			return nil // Continue walking, don't fail entire scan
		}

		if info.IsDir() {
			if path != rootPath && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		kind, format := classify(path)
		if kind == "" {
			return nil
		}

		relativePath, err := filepath.Rel(rootPath, path)
		if err != nil {
			relativePath = path // fallback to absolute path
		}

		file := types.WallpaperFile{
			Filename: info.Name(),
			Path:     filepath.ToSlash(relativePath),
			Size:     info.Size(),
			Format:   format,
			Kind:     kind,
		}
		if kind == "image" {
			file.Metadata = fs.ExtractImageMetadata(path)
		}
		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// classify returns the kind and format of a wallpaper file, or "" if it is not one
func classify(path string) (kind, format string) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "jpg", "jpeg":
		return "image", "jpg"
	case "png", "heic", "gif", "bmp", "tiff":
		return "image", ext
	case "mov", "mp4":
		return "video", ext
	default:
		return "", ""
	}
}

// GetContentType returns the appropriate MIME type for a wallpaper file
func (fs *fileService) GetContentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".heic":
		return "image/heic"
	case ".gif":
		return "image/gif"
	case ".mov":
		return "video/quicktime"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

// ExtractImageMetadata reads the image dimensions, falling back to the file name only
func (fs *fileService) ExtractImageMetadata(filePath string) *types.WallpaperMetadata {
	base := filepath.Base(filePath)
	metadata := &types.WallpaperMetadata{
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
	}

	// Dimensions honor EXIF orientation, so portrait photos report portrait sizes
	img, err := imaging.Open(filePath, imaging.AutoOrientation(true))
	if err != nil {
		log.Printf("Warning: Could not decode image %s: %v", filePath, err)
		return metadata
	}
	bounds := img.Bounds()
	metadata.Width = bounds.Dx()
	metadata.Height = bounds.Dy()
	return metadata
}

// ValidateFilePath checks for path traversal attempts and other security issues
func (fs *fileService) ValidateFilePath(path string) error {
	// Check for path traversal attempts
	if strings.Contains(path, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	// Check for absolute paths
	if strings.HasPrefix(path, "/") {
		return fmt.Errorf("absolute paths not allowed")
	}

	// Check for empty path
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path not allowed")
	}

	return nil
}
