package types

// WallpaperFile represents a wallpaper file discovered on disk (image or video)
type WallpaperFile struct {
	Filename string             `json:"filename"`
	Path     string             `json:"path"`
	Size     int64              `json:"size"`
	Format   string             `json:"format"` // "jpg", "png", "heic", "mov", "mp4"
	Kind     string             `json:"kind"`   // "image" or "video"
	Metadata *WallpaperMetadata `json:"metadata,omitempty"`
}

// WallpaperMetadata represents metadata for an image file
type WallpaperMetadata struct {
	Name   string `json:"name,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}
