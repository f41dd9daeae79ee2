package handlers

import (
	"errors"
	"log"
	"net/http"

	"wallpaperd/services"
	"wallpaperd/types"

	"github.com/gin-gonic/gin"
)

// MenuHandler handles the menu screen endpoints
type MenuHandler struct {
	menu *services.MenuService
}

// NewMenuHandler creates a new menu handler
func NewMenuHandler(menu *services.MenuService) *MenuHandler {
	return &MenuHandler{menu: menu}
}

// GetMenu returns the menu state with the wallpaper grid and the recent list
func (h *MenuHandler) GetMenu(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":      h.menu.State(),
		"wallpapers": itemViews(h.menu.Items()),
		"recent":     itemViews(h.menu.Recent()),
	})
}

// HandleCommand applies a menu command such as newWallpaper or dismissSheet
func (h *MenuHandler) HandleCommand(c *gin.Context) {
	cmd := types.MenuCommand(c.Param("command"))
	state, err := h.menu.Handle(cmd)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, types.ErrUnknownCommand) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error":   "command failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state": state,
	})
}

// Sync reloads the wallpaper grid and the recent list
func (h *MenuHandler) Sync(c *gin.Context) {
	if err := h.menu.Load(c.Request.Context()); err != nil {
		log.Printf("Menu sync failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "failed to sync wallpapers",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "wallpapers synced",
		"total":   len(h.menu.Items()),
		"recent":  len(h.menu.Recent()),
	})
}

// Recent returns the saved wallpapers, newest first, each with its resolved state
func (h *MenuHandler) Recent(c *gin.Context) {
	recent, err := h.menu.RecentWallpapers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to load recent wallpapers",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallpapers": itemViews(recent),
		"total":      len(recent),
	})
}

func itemViews(items []*services.Item) []services.ItemView {
	views := make([]services.ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, item.View())
	}
	return views
}
