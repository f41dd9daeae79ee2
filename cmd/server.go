package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"wallpaperd/handlers"
	"wallpaperd/metrics"
	"wallpaperd/middleware"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the HTTP API for app
func NewRouter(app *App) *gin.Engine {
	downloadHandler := handlers.NewDownloadHandler(app.Queue, app.Menu)
	wallpaperHandler := handlers.NewWallpaperHandler(app.Menu, app.Machine, app.Hub)
	menuHandler := handlers.NewMenuHandler(app.Menu)
	fileHandler := handlers.NewFileHandler(app.Files, app.Config.Storage.WallpaperDir)
	searchHandler := handlers.NewSearchHandler(app.Menu)
	healthHandler := handlers.NewHealthHandler(app.Menu, app.Config.Storage.WallpaperDir)
	settingsHandler := handlers.NewSettingsHandler(app.Menu)

	// Setup router
	r := gin.New()

	// Apply middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Logging())
	r.Use(middleware.CORS(app.Config.HTTPServer.CORSOrigins))
	r.Use(middleware.Security())
	r.Use(middleware.Metrics(app.Gateway))

	// Health check and metrics endpoints
	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(metrics.HandlerFor(app.Registry)))

	// API routes group
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", healthHandler.APIStatus)
		apiGroup.GET("/search", searchHandler.Search)

		// Menu screen
		menuGroup := apiGroup.Group("/menu")
		{
			menuGroup.GET("", menuHandler.GetMenu)
			menuGroup.POST("/sync", menuHandler.Sync)
			menuGroup.POST("/commands/:command", menuHandler.HandleCommand)
		}
		apiGroup.GET("/recent", menuHandler.Recent)

		// Wallpaper grid
		wallpapersGroup := apiGroup.Group("/wallpapers")
		{
			wallpapersGroup.GET("", wallpaperHandler.ListWallpapers)
			wallpapersGroup.GET("/:name", wallpaperHandler.GetWallpaper)
			wallpapersGroup.POST("/:name/appear", wallpaperHandler.Appear)
			wallpapersGroup.POST("/:name/retry", wallpaperHandler.Retry)
			wallpapersGroup.POST("/:name/select", wallpaperHandler.Select)
		}

		// Download Management Endpoints
		downloadsGroup := apiGroup.Group("/downloads")
		{
			downloadsGroup.POST("/wallpaper/:name", downloadHandler.QueueWallpaper)
			downloadsGroup.GET("", downloadHandler.GetAllJobs)
			downloadsGroup.GET("/:jobId", downloadHandler.GetJob)
			downloadsGroup.DELETE("/:jobId", downloadHandler.CancelJob)
		}

		// WebSocket endpoints for real-time state changes
		wsGroup := apiGroup.Group("/ws")
		{
			wsGroup.GET("/wallpapers/:name", wallpaperHandler.HandleWebSocketConnection)
			wsGroup.GET("/wallpapers", wallpaperHandler.HandleWebSocketAllConnection)
		}

		// File discovery and streaming endpoints
		apiGroup.GET("/files", fileHandler.ListFiles)
		apiGroup.GET("/files/stream/*filepath", fileHandler.StreamFile)

		// Settings endpoints
		apiGroup.GET("/settings", settingsHandler.GetSettings)
		apiGroup.POST("/settings", settingsHandler.UpdateSettings)
	}

	return r
}

// StartWebServer serves the API until ctx is cancelled
func StartWebServer(ctx context.Context, app *App) error {
	// Set production mode if not specified
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	} else if app.Config.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	app.Start()

	// Load the menu in the background so the server answers immediately
	go func() {
		if err := app.Menu.Load(ctx); err != nil {
			log.Printf("Initial wallpaper sync failed: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.Config.HTTPServer.Port),
		Handler:      NewRouter(app),
		ReadTimeout:  app.Config.HTTPServer.Timeout,
		WriteTimeout: 0, // streams and WebSockets stay open
		IdleTimeout:  app.Config.HTTPServer.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("wallpaperd web server starting on port %d", app.Config.HTTPServer.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
