package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"wallpaperd/types"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrNoCatalog is returned when no catalog source is configured.
var ErrNoCatalog = errors.New("no catalog configured")

const manifestSchemaID = "inmemory://wallpaper-manifest"

// manifestSchema describes the pregenerated wallpaper manifest.
const manifestSchema = `{
  "type": "object",
  "required": ["wallpapers"],
  "properties": {
    "wallpapers": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "imageUrl"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "imageUrl": {"type": "string", "minLength": 1},
          "videoUrl": {"type": "string"},
          "isLivePhoto": {"type": "boolean"},
          "dateAdded": {"type": "string", "format": "date-time"}
        },
        "if": {"properties": {"isLivePhoto": {"const": true}}, "required": ["isLivePhoto"]},
        "then": {"required": ["videoUrl"], "properties": {"videoUrl": {"minLength": 1}}}
      }
    }
  }
}`

// Catalog lists the wallpapers available for download
type Catalog interface {
	Entries(ctx context.Context) ([]types.CatalogEntry, error)
}

type manifest struct {
	Wallpapers []types.CatalogEntry `json:"wallpapers"`
}

// manifestCatalog reads a JSON manifest from an HTTP URL or a local file
type manifestCatalog struct {
	source string
	client *http.Client
	schema *jsonschema.Schema
}

// NewCatalog creates a catalog for source, which is an http(s) URL or a file path
func NewCatalog(source string, timeout time.Duration) (Catalog, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(manifestSchemaID, strings.NewReader(manifestSchema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(manifestSchemaID)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &manifestCatalog{
		source: source,
		client: &http.Client{Timeout: timeout},
		schema: schema,
	}, nil
}

// Entries fetches, validates and decodes the manifest
func (c *manifestCatalog) Entries(ctx context.Context) ([]types.CatalogEntry, error) {
	if c.source == "" {
		return nil, ErrNoCatalog
	}

	data, err := c.read(ctx)
	if err != nil {
		return nil, err
	}
	return parseManifest(c.schema, data)
}

func (c *manifestCatalog) read(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(c.source, "http://") && !strings.HasPrefix(c.source, "https://") {
		data, err := os.ReadFile(c.source)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog response error: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return data, nil
}

// parseManifest validates data against schema and decodes its entries.
// Duplicate names keep the first entry.
func parseManifest(schema *jsonschema.Schema, data []byte) ([]types.CatalogEntry, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}

	var m manifest
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	seen := make(map[string]bool, len(m.Wallpapers))
	entries := make([]types.CatalogEntry, 0, len(m.Wallpapers))
	for _, e := range m.Wallpapers {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		entries = append(entries, e)
	}
	return entries, nil
}

// AssetForEntry returns where the entry's files live under dir
func AssetForEntry(dir string, entry types.CatalogEntry) types.WallpaperAsset {
	base := SafeFilename(entry.Name)
	asset := types.WallpaperAsset{
		Name:        entry.Name,
		ImagePath:   filepath.Join(dir, base+urlExt(entry.ImageURL, ".jpg")),
		IsLivePhoto: entry.IsLivePhoto,
		DateAdded:   entry.DateAdded,
	}
	if entry.IsLivePhoto {
		asset.VideoPath = filepath.Join(dir, base+urlExt(entry.VideoURL, ".mov"))
	}
	return asset
}

// EntryForAsset builds a catalog entry for a stored asset that is not in the catalog
func EntryForAsset(asset types.WallpaperAsset) types.CatalogEntry {
	return types.CatalogEntry{
		Name:        asset.Name,
		IsLivePhoto: asset.IsLivePhoto,
		DateAdded:   asset.DateAdded,
	}
}

// LocalFilesPresent reports whether every file the asset needs exists on disk
func LocalFilesPresent(asset types.WallpaperAsset) bool {
	if asset.ImagePath == "" || !fileExists(asset.ImagePath) {
		return false
	}
	if asset.IsLivePhoto {
		return asset.VideoPath != "" && fileExists(asset.VideoPath)
	}
	return true
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func urlExt(raw, fallback string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fallback
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" || len(ext) > 5 {
		return fallback
	}
	return ext
}
