package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"wallpaperd/services"
	"wallpaperd/types"

	"github.com/gin-gonic/gin"
)

// SettingsHandler handles settings-related endpoints
type SettingsHandler struct {
	menu *services.MenuService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(menu *services.MenuService) *SettingsHandler {
	return &SettingsHandler{menu: menu}
}

// validatePath validates that the path exists and is writable
func validatePath(path string) error {
	if path == "" {
		return errors.New("path is required")
	}

	// Check if path exists
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Try to create the directory
			if err := os.MkdirAll(path, 0755); err != nil {
				return err
			}
		} else {
			return err
		}
	} else if !info.IsDir() {
		return errors.New("path is not a directory")
	}

	// Test write permissions by creating a temporary file
	testFile := filepath.Join(path, ".wallpaperd-write-test")
	file, err := os.Create(testFile)
	if err != nil {
		return err
	}
	file.Close()
	os.Remove(testFile)

	return nil
}

// GetSettings returns the current settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.menu.Settings())
}

// UpdateSettings updates the user settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var newSettings types.Settings
	if err := c.ShouldBindJSON(&newSettings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid settings format",
			"details": err.Error(),
		})
		return
	}

	// Validate the download location path
	if err := validatePath(newSettings.DownloadLocation); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid download location",
			"details": err.Error(),
		})
		return
	}

	// Save the settings
	if err := h.menu.UpdateSettings(newSettings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to save settings",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Settings updated successfully",
		"settings": h.menu.Settings(),
	})
}
