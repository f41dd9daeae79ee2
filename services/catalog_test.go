package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"wallpaperd/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `{
  "wallpapers": [
    {"name": "Aurora", "imageUrl": "https://cdn.example.com/aurora.png", "dateAdded": "2024-05-01T10:00:00Z"},
    {"name": "Dunes", "imageUrl": "https://cdn.example.com/dunes.heic", "videoUrl": "https://cdn.example.com/dunes.mp4?sig=1", "isLivePhoto": true},
    {"name": "Aurora", "imageUrl": "https://cdn.example.com/aurora-2.png"}
  ]
}`

func TestCatalogFetchesManifestOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testManifest))
	}))
	defer srv.Close()

	c, err := NewCatalog(srv.URL+"/manifest.json", time.Second)
	require.NoError(t, err)

	entries, err := c.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Aurora", entries[0].Name)
	assert.Equal(t, "https://cdn.example.com/aurora.png", entries[0].ImageURL)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), entries[0].DateAdded.UTC())
	assert.True(t, entries[1].IsLivePhoto)
}

func TestCatalogReadsLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	writeTestFile(t, path, []byte(testManifest))

	c, err := NewCatalog(path, 0)
	require.NoError(t, err)
	entries, err := c.Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCatalogRejectsInvalidManifests(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"not json", `{"wallpapers": [`},
		{"missing list", `{}`},
		{"missing name", `{"wallpapers": [{"imageUrl": "https://x/a.png"}]}`},
		{"empty image url", `{"wallpapers": [{"name": "A", "imageUrl": ""}]}`},
		{"live photo without video", `{"wallpapers": [{"name": "A", "imageUrl": "https://x/a.png", "isLivePhoto": true}]}`},
		{"bad date", `{"wallpapers": [{"name": "A", "imageUrl": "https://x/a.png", "dateAdded": "yesterday"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "manifest.json")
			writeTestFile(t, path, []byte(tt.manifest))

			c, err := NewCatalog(path, 0)
			require.NoError(t, err)
			_, err = c.Entries(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestCatalogErrors(t *testing.T) {
	c, err := NewCatalog("", 0)
	require.NoError(t, err)
	_, err = c.Entries(context.Background())
	assert.ErrorIs(t, err, ErrNoCatalog)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err = NewCatalog(srv.URL, time.Second)
	require.NoError(t, err)
	_, err = c.Entries(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestAssetForEntry(t *testing.T) {
	still := AssetForEntry("/walls", types.CatalogEntry{Name: "Northern Lights", ImageURL: "https://cdn/x/lights.PNG"})
	assert.Equal(t, "Northern Lights", still.Name)
	assert.Equal(t, filepath.Join("/walls", SafeFilename("Northern Lights")+".png"), still.ImagePath)
	assert.Empty(t, still.VideoPath)

	live := AssetForEntry("/walls", types.CatalogEntry{Name: "Dunes", ImageURL: "https://cdn/dunes", VideoURL: "https://cdn/dunes.mp4?sig=1", IsLivePhoto: true})
	assert.Equal(t, filepath.Join("/walls", SafeFilename("Dunes")+".jpg"), live.ImagePath)
	assert.Equal(t, filepath.Join("/walls", SafeFilename("Dunes")+".mp4"), live.VideoPath)
	assert.True(t, live.IsLivePhoto)
}

func TestAssetForEntryKeepsLookalikeNamesApart(t *testing.T) {
	paths := make(map[string]string)
	for _, name := range []string{"Sunset Beach", "Sunset.Beach", "夕焼け", "山"} {
		asset := AssetForEntry("/w", types.CatalogEntry{Name: name, ImageURL: "https://cdn/x.jpg"})
		if other, ok := paths[asset.ImagePath]; ok {
			t.Errorf("%q and %q share %s", other, name, asset.ImagePath)
		}
		paths[asset.ImagePath] = name
	}
}

func TestLocalFilesPresent(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "a.png")
	video := filepath.Join(dir, "a.mov")
	writeTestImage(t, image, 4, 4)

	assert.False(t, LocalFilesPresent(types.WallpaperAsset{}))
	assert.True(t, LocalFilesPresent(types.WallpaperAsset{ImagePath: image}))
	assert.False(t, LocalFilesPresent(types.WallpaperAsset{ImagePath: image, IsLivePhoto: true, VideoPath: video}))

	writeTestFile(t, video, []byte("moov"))
	assert.True(t, LocalFilesPresent(types.WallpaperAsset{ImagePath: image, IsLivePhoto: true, VideoPath: video}))
	assert.False(t, LocalFilesPresent(types.WallpaperAsset{ImagePath: dir}))
}
