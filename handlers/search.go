package handlers

import (
	"net/http"
	"strings"

	"wallpaperd/services"
	"wallpaperd/types"

	"github.com/gin-gonic/gin"
)

var searchableStates = map[types.StateKind]bool{
	types.StateInitial:       true,
	types.StateLoading:       true,
	types.StateNeedsDownload: true,
	types.StateDownloading:   true,
	types.StateSuccess:       true,
	types.StateFailure:       true,
}

// SearchHandler handles wallpaper search endpoints
type SearchHandler struct {
	menu *services.MenuService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(menu *services.MenuService) *SearchHandler {
	return &SearchHandler{menu: menu}
}

// Search filters wallpapers by a name substring and optionally by state
func (h *SearchHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	state := types.StateKind(c.Query("state"))

	if query == "" && state == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "query parameter 'q' or 'state' is required",
		})
		return
	}

	// Validate state filter
	if state != "" && !searchableStates[state] {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "state parameter must be one of initial, loading, needsDownload, downloading, success, failure",
		})
		return
	}

	needle := strings.ToLower(query)
	results := make([]services.ItemView, 0)
	for _, item := range h.menu.Items() {
		if needle != "" && !strings.Contains(strings.ToLower(item.Name()), needle) {
			continue
		}
		view := item.View()
		if state != "" && view.State.State != state {
			continue
		}
		results = append(results, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"state":   state,
		"results": results,
	})
}
