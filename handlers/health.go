package handlers

import (
	"net/http"
	"time"

	"wallpaperd/services"

	"github.com/gin-gonic/gin"
)

// Version of the service reported by the health endpoints
const Version = "1.0.0"

// HealthHandler handles health check endpoints
type HealthHandler struct {
	menu         *services.MenuService
	wallpaperDir string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(menu *services.MenuService, wallpaperDir string) *HealthHandler {
	return &HealthHandler{
		menu:         menu,
		wallpaperDir: wallpaperDir,
	}
}

// HealthCheck returns the health status of the service
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "wallpaperd",
		"version":   Version,
		"timestamp": time.Now().Unix(),
	})
}

// APIStatus returns the status of the API
func (h *HealthHandler) APIStatus(c *gin.Context) {
	counts := make(map[string]int)
	for _, item := range h.menu.Items() {
		counts[string(item.State().Kind())]++
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "wallpaperd API is running",
		"wallpaper_dir": h.wallpaperDir,
		"wallpapers":    counts,
	})
}
