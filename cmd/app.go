package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"wallpaperd/config"
	"wallpaperd/metrics"
	"wallpaperd/services"
	"wallpaperd/storage"
	"wallpaperd/types"
	"wallpaperd/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "wallpaperd"

// App wires the services shared by the server and the CLI commands
type App struct {
	Config    *config.Config
	Store     *storage.Store
	Hub       websocket.Hub
	Registry  *prometheus.Registry
	Metrics   *metrics.Prom
	Gateway   metrics.GatewayMetrics
	Processor services.LivePhotoProcessor
	Fetcher   *services.Fetcher
	Queue     services.DownloadQueue
	Machine   *services.ItemMachine
	Menu      *services.MenuService
	Files     services.FileService
}

// NewApp opens the store and builds every service. Background work runs on ctx.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := os.MkdirAll(cfg.Storage.WallpaperDir, 0755); err != nil {
		return nil, fmt.Errorf("create wallpaper dir: %w", err)
	}

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}

	catalog, err := services.NewCatalog(cfg.Catalog.URL, cfg.Catalog.Timeout)
	if err != nil {
		store.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := metrics.NewPromWithRegisterer(metricsNamespace, registry)
	gateway := metrics.NewGatewayProm(metricsNamespace, registry)

	hub := websocket.NewHub()
	go hub.Run()

	processor := services.NewLivePhotoProcessor(cfg.Storage.CacheDir)
	fetcher := services.NewFetcher(nil)
	queue := services.NewDownloadQueue(ctx, cfg.Downloads.Workers, services.QueueDeps{
		Hub:       hub,
		Fetcher:   fetcher,
		Saver:     store,
		Processor: processor,
		Metrics:   prom,
	})
	machine := services.NewItemMachine(ctx, processor, queue,
		services.WithLossyFailures(cfg.Resolver.LossyFailures),
		services.WithMetrics(prom),
	)

	menu := services.NewMenuService(catalog, store, cfg.Storage.WallpaperDir, types.Settings{
		DownloadLocation: cfg.Storage.WallpaperDir,
		RecentLimit:      cfg.Downloads.RecentLimit,
	}, services.WithRecentProcessor(processor))
	menu.Observe(services.HubObserver(hub))
	menu.Observe(services.MetricsObserver(prom))

	return &App{
		Config:    cfg,
		Store:     store,
		Hub:       hub,
		Registry:  registry,
		Metrics:   prom,
		Gateway:   gateway,
		Processor: processor,
		Fetcher:   fetcher,
		Queue:     queue,
		Machine:   machine,
		Menu:      menu,
		Files:     services.NewFileService(),
	}, nil
}

// Start starts the download workers
func (a *App) Start() {
	a.Queue.Start()
}

// Close drains the download queue, waits for resolutions and closes the store
func (a *App) Close() error {
	a.Queue.Stop()
	a.Machine.Wait()
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	log.Printf("Wallpaper services stopped")
	return nil
}
