package handlers

import (
	"errors"
	"net/http"

	"wallpaperd/services"
	"wallpaperd/types"

	"github.com/gin-gonic/gin"
)

// DownloadHandler handles download management endpoints
type DownloadHandler struct {
	queue services.DownloadQueue
	menu  *services.MenuService
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(queue services.DownloadQueue, menu *services.MenuService) *DownloadHandler {
	return &DownloadHandler{
		queue: queue,
		menu:  menu,
	}
}

// QueueWallpaper queues a download for a wallpaper that needs one
func (h *DownloadHandler) QueueWallpaper(c *gin.Context) {
	name := c.Param("name")
	item, ok := h.menu.Item(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "wallpaper not found",
			"name":  name,
		})
		return
	}

	job, err := h.queue.Enqueue(item)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, types.ErrIllegalTransition):
			status = http.StatusConflict
		case errors.Is(err, services.ErrQueueStopped):
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error":   "wallpaper download not queued",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Wallpaper download queued successfully",
		"job":     job,
	})
}

// GetAllJobs returns all download jobs
func (h *DownloadHandler) GetAllJobs(c *gin.Context) {
	jobs := h.queue.GetAllJobs()
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// GetJob returns a specific download job by ID
func (h *DownloadHandler) GetJob(c *gin.Context) {
	jobID := c.Param("jobId")
	job, exists := h.queue.GetJob(jobID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job": job,
	})
}

// CancelJob cancels a download job
func (h *DownloadHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("jobId")
	cancelled := h.queue.CancelJob(jobID)
	if !cancelled {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job cannot be cancelled (not found or already processing)",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "job cancelled successfully",
	})
}
