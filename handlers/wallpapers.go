package handlers

import (
	"errors"
	"log"
	"net/http"

	"wallpaperd/services"
	"wallpaperd/types"
	"wallpaperd/websocket"

	"github.com/gin-gonic/gin"
)

// WallpaperHandler handles the pregenerated wallpaper grid endpoints
type WallpaperHandler struct {
	menu    *services.MenuService
	machine *services.ItemMachine
	hub     websocket.Hub
}

// NewWallpaperHandler creates a new wallpaper handler
func NewWallpaperHandler(menu *services.MenuService, machine *services.ItemMachine, hub websocket.Hub) *WallpaperHandler {
	return &WallpaperHandler{
		menu:    menu,
		machine: machine,
		hub:     hub,
	}
}

// ListWallpapers returns every wallpaper with its state
func (h *WallpaperHandler) ListWallpapers(c *gin.Context) {
	views := itemViews(h.menu.Items())
	c.JSON(http.StatusOK, gin.H{
		"wallpapers": views,
		"total":      len(views),
	})
}

// GetWallpaper returns a single wallpaper by name
func (h *WallpaperHandler) GetWallpaper(c *gin.Context) {
	item, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"wallpaper": item.View(),
	})
}

// Appear reports the wallpaper's cell as visible and runs the action its state calls for
func (h *WallpaperHandler) Appear(c *gin.Context) {
	item, ok := h.lookup(c)
	if !ok {
		return
	}

	action := h.machine.OnAppear(item)
	c.JSON(http.StatusAccepted, gin.H{
		"action":    action,
		"wallpaper": item.View(),
	})
}

// Retry moves a failed wallpaper back to loading or needsDownload
func (h *WallpaperHandler) Retry(c *gin.Context) {
	item, ok := h.lookup(c)
	if !ok {
		return
	}

	if err := h.machine.Retry(item); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, types.ErrNotFailed) || errors.Is(err, types.ErrIllegalTransition) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{
			"error":   "wallpaper cannot be retried",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "wallpaper retry scheduled",
		"wallpaper": item.View(),
	})
}

// Select opens a wallpaper; only resolved wallpapers can be selected
func (h *WallpaperHandler) Select(c *gin.Context) {
	item, ok := h.lookup(c)
	if !ok {
		return
	}

	success, resolved := item.State().(types.Success)
	if !resolved || !h.machine.CanSelect(item) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "wallpaper is not ready",
			"details": "state is " + string(item.State().Kind()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"asset": success.Asset,
	})
}

// HandleWebSocketConnection streams state changes of one wallpaper
func (h *WallpaperHandler) HandleWebSocketConnection(c *gin.Context) {
	item, ok := h.lookup(c)
	if !ok {
		return
	}
	h.serveWebSocket(c, item.Name(), item)
}

// HandleWebSocketAllConnection streams state changes of every wallpaper
func (h *WallpaperHandler) HandleWebSocketAllConnection(c *gin.Context) {
	h.serveWebSocket(c, websocket.AllItems, h.menu.Items()...)
}

func (h *WallpaperHandler) serveWebSocket(c *gin.Context, key string, items ...*services.Item) {
	upgrader := websocket.GetUpgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, key)

	// Current states first, so the client does not wait for the next change
	snapshot := make([]types.StateMessage, 0, len(items))
	for _, item := range items {
		state := item.State()
		snapshot = append(snapshot, services.StateMessage(item, nil, state))
	}
	client.Snapshot(snapshot...)

	h.hub.RegisterClient(client)

	// Start client pumps
	client.StartPumps()
}

func (h *WallpaperHandler) lookup(c *gin.Context) (*services.Item, bool) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "wallpaper name is required",
		})
		return nil, false
	}

	item, ok := h.menu.Item(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "wallpaper not found",
			"name":  name,
		})
		return nil, false
	}
	return item, true
}
