package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"wallpaperd/types"

	"go.etcd.io/bbolt"
)

const (
	WallpapersBucketName = "wallpapers"
	SettingsBucketName   = "settings"

	settingsKey = "user"
)

// ErrNotFound is returned when a wallpaper is not in the store.
var ErrNotFound = errors.New("wallpaper not found")

// Store persists saved wallpapers and user settings in a bbolt file.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the database at path and ensures its buckets exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{WallpapersBucketName, SettingsBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[STORE] database opened path=%s", path)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveWallpaper inserts or replaces a wallpaper keyed by its name.
func (s *Store) SaveWallpaper(asset types.WallpaperAsset) error {
	if asset.Name == "" {
		return fmt.Errorf("wallpaper name required")
	}
	if asset.DateAdded.IsZero() {
		asset.DateAdded = time.Now().UTC()
	}

	data, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("encode wallpaper: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(WallpapersBucketName)).Put([]byte(asset.Name), data)
	})
}

// GetWallpaper returns the saved wallpaper with the given name.
func (s *Store) GetWallpaper(name string) (types.WallpaperAsset, error) {
	var asset types.WallpaperAsset
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(WallpapersBucketName)).Get([]byte(name))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &asset)
	})
	if err != nil {
		return types.WallpaperAsset{}, err
	}
	return asset, nil
}

// DeleteWallpaper removes a saved wallpaper. Deleting a missing one is not an error.
func (s *Store) DeleteWallpaper(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(WallpapersBucketName)).Delete([]byte(name))
	})
}

// ListWallpapers returns all saved wallpapers ordered by name.
func (s *Store) ListWallpapers() ([]types.WallpaperAsset, error) {
	var assets []types.WallpaperAsset
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(WallpapersBucketName)).ForEach(func(k, v []byte) error {
			var asset types.WallpaperAsset
			if err := json.Unmarshal(v, &asset); err != nil {
				log.Printf("[STORE] skipping corrupt wallpaper record key=%s err=%v", k, err)
				return nil
			}
			assets = append(assets, asset)
			return nil
		})
	})
	return assets, err
}

// RecentWallpapers returns up to limit wallpapers, newest first.
func (s *Store) RecentWallpapers(limit int) ([]types.WallpaperAsset, error) {
	assets, err := s.ListWallpapers()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].DateAdded.After(assets[j].DateAdded)
	})

	if limit > 0 && len(assets) > limit {
		assets = assets[:limit]
	}
	return assets, nil
}

// LoadSettings returns the stored settings, or defaults when none were saved.
func (s *Store) LoadSettings(defaults types.Settings) (types.Settings, error) {
	settings := defaults
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(SettingsBucketName)).Get([]byte(settingsKey))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &settings)
	})
	if err != nil {
		return defaults, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// SaveSettings persists the settings.
func (s *Store) SaveSettings(settings types.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(SettingsBucketName)).Put([]byte(settingsKey), data)
	})
}
