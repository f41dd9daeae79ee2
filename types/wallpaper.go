package types

import (
	"errors"
	"time"
)

var (
	// ErrFileMissing is the generic failure used when a resolution has no native cause.
	ErrFileMissing = errors.New("file does not exist")

	// ErrIllegalTransition is returned when a state change is not in the transition table.
	ErrIllegalTransition = errors.New("illegal state transition")

	// ErrNotFailed is returned when a retry is requested for an item that has not failed.
	ErrNotFailed = errors.New("item is not in failure state")

	// ErrUnknownCommand is returned for menu commands the view-model does not know.
	ErrUnknownCommand = errors.New("unknown menu command")
)

// WallpaperAsset is a wallpaper owned by the persistence layer
type WallpaperAsset struct {
	Name        string    `json:"name"`
	ImagePath   string    `json:"imagePath"`
	VideoPath   string    `json:"videoPath,omitempty"`
	IsLivePhoto bool      `json:"isLivePhoto"`
	DateAdded   time.Time `json:"dateAdded"`
}

// CatalogEntry describes a pregenerated wallpaper available for download
type CatalogEntry struct {
	Name        string    `json:"name"`
	ImageURL    string    `json:"imageUrl"`
	VideoURL    string    `json:"videoUrl,omitempty"`
	IsLivePhoto bool      `json:"isLivePhoto"`
	DateAdded   time.Time `json:"dateAdded"`
}

// DisplayableAsset is the resolved, ready-to-render form of a wallpaper
type DisplayableAsset struct {
	Name          string `json:"name"`
	ImagePath     string `json:"imagePath"`
	VideoPath     string `json:"videoPath,omitempty"`
	ThumbnailPath string `json:"thumbnailPath,omitempty"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	IsLivePhoto   bool   `json:"isLivePhoto"`
}

// IsZero reports whether the asset carries no image.
func (d DisplayableAsset) IsZero() bool {
	return d.ImagePath == ""
}
