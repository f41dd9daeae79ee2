package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the service configuration. Values come from an optional YAML
// file and are overridden by environment variables.
type Config struct {
	Env        string     `yaml:"env" env:"WALLPAPER_ENV" env-default:"local"`
	HTTPServer HTTPServer `yaml:"http-server"`
	Storage    Storage    `yaml:"storage"`
	Catalog    Catalog    `yaml:"catalog"`
	Downloads  Downloads  `yaml:"downloads"`
	Resolver   Resolver   `yaml:"resolver"`
}

type HTTPServer struct {
	Port        int           `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	Timeout     time.Duration `yaml:"timeout" env:"SERVER_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	CORSOrigins []string      `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:","`
}

type Storage struct {
	WallpaperDir string `yaml:"wallpaper_dir" env:"WALLPAPER_DIR"`
	CacheDir     string `yaml:"cache_dir" env:"WALLPAPER_CACHE_DIR"`
	DBPath       string `yaml:"db_path" env:"WALLPAPER_DB"`
}

type Catalog struct {
	URL     string        `yaml:"url" env:"CATALOG_URL"`
	Timeout time.Duration `yaml:"timeout" env:"CATALOG_TIMEOUT" env-default:"15s"`
}

type Downloads struct {
	Workers     int `yaml:"workers" env:"DOWNLOAD_WORKERS" env-default:"2"`
	RecentLimit int `yaml:"recent_limit" env:"RECENT_LIMIT" env-default:"10"`
}

type Resolver struct {
	// LossyFailures maps every resolution failure to the generic
	// "file does not exist" error instead of keeping the cause.
	LossyFailures bool `yaml:"lossy_failures" env:"LOSSY_FAILURES" env-default:"false"`
}

// Load reads configuration from path (if it exists) and the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			cfg.applyDefaults()
			return &cfg, nil
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.WallpaperDir == "" {
		c.Storage.WallpaperDir = GetWallpaperLocation()
	}
	if c.Storage.CacheDir == "" {
		c.Storage.CacheDir = filepath.Join(c.Storage.WallpaperDir, ".thumbnails")
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = filepath.Join(c.Storage.WallpaperDir, "wallpapers.db")
	}
	if len(c.HTTPServer.CORSOrigins) == 0 {
		c.HTTPServer.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Downloads.Workers < 1 {
		c.Downloads.Workers = 1
	}
	if c.Downloads.Workers > 10 {
		c.Downloads.Workers = 10
	}
	if c.Downloads.RecentLimit <= 0 {
		c.Downloads.RecentLimit = 10
	}
}

// GetWallpaperLocation returns the default directory wallpapers are stored in.
func GetWallpaperLocation() string {
	// First check environment variable for custom location
	if customPath := os.Getenv("WALLPAPER_DIR"); customPath != "" {
		return customPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if can't get home dir
		return filepath.Join(".", "wallpapers")
	}

	return filepath.Join(homeDir, "Pictures", "Wallpapers")
}
