package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"wallpaperd/types"

	"github.com/disintegration/imaging"
)

// Thumbnails are rendered at twice the 175x301 grid cell size.
const (
	ThumbnailWidth  = 350
	ThumbnailHeight = 602
)

// LivePhotoProcessor resolves a wallpaper asset into something the UI can render.
type LivePhotoProcessor interface {
	Resolve(ctx context.Context, asset types.WallpaperAsset) (types.DisplayableAsset, error)
}

// livePhotoProcessor resolves assets from the local filesystem
type livePhotoProcessor struct {
	cacheDir string
}

// NewLivePhotoProcessor creates a processor that writes thumbnails into cacheDir
func NewLivePhotoProcessor(cacheDir string) LivePhotoProcessor {
	return &livePhotoProcessor{cacheDir: cacheDir}
}

// Resolve decodes the image, renders a thumbnail and checks the video of live photos
func (p *livePhotoProcessor) Resolve(ctx context.Context, asset types.WallpaperAsset) (types.DisplayableAsset, error) {
	if err := ctx.Err(); err != nil {
		return types.DisplayableAsset{}, err
	}
	if asset.ImagePath == "" {
		return types.DisplayableAsset{}, fmt.Errorf("%w: no image path for %s", types.ErrFileMissing, asset.Name)
	}
	if err := checkFile(asset.ImagePath); err != nil {
		return types.DisplayableAsset{}, err
	}

	img, err := imaging.Open(asset.ImagePath, imaging.AutoOrientation(true))
	if err != nil {
		return types.DisplayableAsset{}, fmt.Errorf("decode image %s: %w", asset.ImagePath, err)
	}
	bounds := img.Bounds()

	displayable := types.DisplayableAsset{
		Name:        asset.Name,
		ImagePath:   asset.ImagePath,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		IsLivePhoto: asset.IsLivePhoto,
	}

	if asset.IsLivePhoto {
		if asset.VideoPath == "" {
			return types.DisplayableAsset{}, fmt.Errorf("%w: live photo %s has no video", types.ErrFileMissing, asset.Name)
		}
		if !IsVideoFile(asset.VideoPath) {
			return types.DisplayableAsset{}, fmt.Errorf("unsupported video format %s", filepath.Ext(asset.VideoPath))
		}
		if err := checkFile(asset.VideoPath); err != nil {
			return types.DisplayableAsset{}, err
		}
		displayable.VideoPath = asset.VideoPath
	}

	if err := ctx.Err(); err != nil {
		return types.DisplayableAsset{}, err
	}

	thumbPath, err := p.writeThumbnail(asset.Name, img)
	if err != nil {
		return types.DisplayableAsset{}, err
	}
	displayable.ThumbnailPath = thumbPath

	return displayable, nil
}

func (p *livePhotoProcessor) writeThumbnail(name string, img image.Image) (string, error) {
	if p.cacheDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(p.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("create thumbnail dir: %w", err)
	}

	thumb := imaging.Fill(img, ThumbnailWidth, ThumbnailHeight, imaging.Center, imaging.Lanczos)
	path := filepath.Join(p.cacheDir, SafeFilename(name)+".jpg")
	if err := imaging.Save(thumb, path, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("save thumbnail: %w", err)
	}
	return path, nil
}

// checkFile returns an error wrapping ErrFileMissing when path is absent
func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", types.ErrFileMissing, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	return nil
}

// IsVideoFile reports whether path has a supported live-photo video extension
func IsVideoFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mov", ".mp4":
		return true
	default:
		return false
	}
}

// SafeFilename turns a wallpaper name into a filesystem-safe base name. The
// readable part is lossy, so a short hash of the full name keeps distinct
// names on distinct files.
func SafeFilename(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('_')
		}
	}
	readable := b.String()
	if readable == "" {
		readable = "wallpaper"
	}

	sum := sha256.Sum256([]byte(name))
	return readable + "-" + hex.EncodeToString(sum[:4])
}
