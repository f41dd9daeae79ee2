package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"wallpaperd/metrics"
	"wallpaperd/types"
	"wallpaperd/websocket"

	"github.com/google/uuid"
)

// ErrQueueStopped is returned when a download is requested after Stop.
var ErrQueueStopped = errors.New("download queue stopped")

// WallpaperSaver persists downloaded wallpapers
type WallpaperSaver interface {
	SaveWallpaper(asset types.WallpaperAsset) error
}

// DownloadQueue interface defines the methods for managing wallpaper downloads
type DownloadQueue interface {
	Downloader
	Start()
	Stop()
	Enqueue(item *Item) (*types.DownloadJob, error)
	GetJob(id string) (*types.DownloadJob, bool)
	GetAllJobs() []*types.DownloadJob
	CancelJob(id string) bool
}

// jobQueue manages download jobs
type jobQueue struct {
	jobs       map[string]*types.DownloadJob
	items      map[string]*Item // job ID -> item
	queue      chan string
	mu         sync.RWMutex
	sendMu     sync.RWMutex // guards queue sends against close
	maxWorkers int
	stopped    bool
	stopOnce   sync.Once
	wg         sync.WaitGroup

	ctx       context.Context
	hub       websocket.Hub
	fetcher   *Fetcher
	saver     WallpaperSaver
	processor LivePhotoProcessor
	metrics   metrics.Metrics
}

// QueueDeps bundles the collaborators of the download queue
type QueueDeps struct {
	Hub       websocket.Hub
	Fetcher   *Fetcher
	Saver     WallpaperSaver
	Processor LivePhotoProcessor
	Metrics   metrics.Metrics
}

// NewDownloadQueue creates a new download queue; jobs run on ctx
func NewDownloadQueue(ctx context.Context, maxWorkers int, deps QueueDeps) DownloadQueue {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if deps.Fetcher == nil {
		deps.Fetcher = NewFetcher(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}
	return &jobQueue{
		jobs:       make(map[string]*types.DownloadJob),
		items:      make(map[string]*Item),
		queue:      make(chan string, 100), // Buffer for 100 jobs
		maxWorkers: maxWorkers,
		ctx:        ctx,
		hub:        deps.Hub,
		fetcher:    deps.Fetcher,
		saver:      deps.Saver,
		processor:  deps.Processor,
		metrics:    deps.Metrics,
	}
}

// DownloadAndSave queues a download for the item; errors are logged
func (jq *jobQueue) DownloadAndSave(item *Item) {
	if _, err := jq.Enqueue(item); err != nil {
		log.Printf("Download for %s not queued: %v", item.Name(), err)
	}
}

// Enqueue moves the item from needsDownload to downloading and queues a job.
// An item that is not in needsDownload is rejected, so each item has at most
// one active job.
func (jq *jobQueue) Enqueue(item *Item) (*types.DownloadJob, error) {
	if jq.isStopped() {
		return nil, ErrQueueStopped
	}

	if err := item.CompareAndSet(types.StateNeedsDownload, types.Downloading{}); err != nil {
		return nil, err
	}

	entry := item.Entry()
	total := 1
	if entry.IsLivePhoto {
		total = 2
	}
	job := &types.DownloadJob{
		ID:          uuid.New().String(),
		Status:      types.JobStatusQueued,
		Name:        item.Name(),
		IsLivePhoto: entry.IsLivePhoto,
		Total:       total,
		CreatedAt:   time.Now(),
	}

	jq.mu.Lock()
	jq.jobs[job.ID] = job
	jq.items[job.ID] = item
	snapshot := *job
	jq.mu.Unlock()

	jq.sendMu.RLock()
	if jq.isStopped() {
		jq.sendMu.RUnlock()
		jq.failStopped(snapshot.ID, item)
		return nil, ErrQueueStopped
	}
	jq.queue <- job.ID
	jq.sendMu.RUnlock()

	jq.broadcast(&snapshot, "status", fmt.Sprintf("%s download queued", job.Name))
	return &snapshot, nil
}

func (jq *jobQueue) isStopped() bool {
	jq.mu.RLock()
	defer jq.mu.RUnlock()
	return jq.stopped
}

// failStopped fails a job that was registered after Stop
func (jq *jobQueue) failStopped(id string, item *Item) {
	jq.setJobStatus(id, types.JobStatusFailed, ErrQueueStopped.Error())
	item.CompareAndSet(types.StateDownloading, types.Failure{Err: ErrQueueStopped})
}

// GetJob retrieves a copy of a job by ID
func (jq *jobQueue) GetJob(id string) (*types.DownloadJob, bool) {
	jq.mu.RLock()
	defer jq.mu.RUnlock()
	job, exists := jq.jobs[id]
	if !exists {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// GetAllJobs returns copies of all jobs, oldest first
func (jq *jobQueue) GetAllJobs() []*types.DownloadJob {
	jq.mu.RLock()
	defer jq.mu.RUnlock()

	jobs := make([]*types.DownloadJob, 0, len(jq.jobs))
	for _, job := range jq.jobs {
		snapshot := *job
		jobs = append(jobs, &snapshot)
	}
	sortJobs(jobs)
	return jobs
}

// CancelJob cancels a queued job and fails its item
func (jq *jobQueue) CancelJob(id string) bool {
	jq.mu.Lock()
	job, exists := jq.jobs[id]
	if !exists || job.Status != types.JobStatusQueued {
		jq.mu.Unlock()
		return false
	}
	job.Status = types.JobStatusCancelled
	now := time.Now()
	job.CompletedAt = &now
	item := jq.items[id]
	snapshot := *job
	jq.mu.Unlock()

	if err := item.CompareAndSet(types.StateDownloading, types.Failure{Err: context.Canceled}); err != nil {
		log.Printf("Cancelled job %s but item %s did not fail: %v", id, item.Name(), err)
	}
	jq.metrics.IncDownload(string(types.JobStatusCancelled))
	jq.broadcast(&snapshot, "error", "download cancelled")
	return true
}

// setJobStatus updates job status and returns a snapshot
func (jq *jobQueue) setJobStatus(id string, status types.JobStatus, errorMsg string) *types.DownloadJob {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	job, exists := jq.jobs[id]
	if !exists {
		return nil
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}

	now := time.Now()
	if status == types.JobStatusProcessing && job.StartedAt == nil {
		job.StartedAt = &now
	} else if status.IsFinished() {
		job.CompletedAt = &now
	}
	snapshot := *job
	return &snapshot
}

// updateJobProgress records a fetched file
func (jq *jobQueue) updateJobProgress(id string, bytes int64) *types.DownloadJob {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	job, exists := jq.jobs[id]
	if !exists {
		return nil
	}
	job.Progress++
	job.Bytes += bytes
	snapshot := *job
	return &snapshot
}

// Start begins processing jobs
func (jq *jobQueue) Start() {
	for i := 0; i < jq.maxWorkers; i++ {
		jq.wg.Add(1)
		go jq.worker()
	}
}

// Stop stops accepting jobs and waits for the workers to drain the queue
func (jq *jobQueue) Stop() {
	jq.stopOnce.Do(func() {
		jq.mu.Lock()
		jq.stopped = true
		jq.mu.Unlock()

		jq.sendMu.Lock()
		close(jq.queue)
		jq.sendMu.Unlock()
	})
	jq.wg.Wait()
}

// worker processes jobs from the queue
func (jq *jobQueue) worker() {
	defer jq.wg.Done()

	for id := range jq.queue {
		jq.mu.RLock()
		job, ok := jq.jobs[id]
		item := jq.items[id]
		cancelled := ok && job.Status == types.JobStatusCancelled
		jq.mu.RUnlock()
		if !ok || cancelled {
			continue
		}

		started := jq.setJobStatus(id, types.JobStatusProcessing, "")
		jq.broadcast(started, "status", fmt.Sprintf("Started downloading %s", item.Name()))

		displayable, err := jq.process(id, item)
		if err != nil {
			failed := jq.setJobStatus(id, types.JobStatusFailed, err.Error())
			if setErr := item.CompareAndSet(types.StateDownloading, types.Failure{Err: err}); setErr != nil {
				log.Printf("Job %s: %v", id, setErr)
			}
			jq.metrics.IncDownload(string(types.JobStatusFailed))
			jq.broadcast(failed, "error", err.Error())
			log.Printf("Job %s for %s failed: %v", id, item.Name(), err)
			continue
		}

		completed := jq.setJobStatus(id, types.JobStatusCompleted, "")
		if setErr := item.CompareAndSet(types.StateDownloading, types.Success{Asset: displayable}); setErr != nil {
			log.Printf("Job %s: %v", id, setErr)
		}
		jq.metrics.IncDownload(string(types.JobStatusCompleted))
		jq.broadcast(completed, "complete", fmt.Sprintf("%s download completed", item.Name()))
		log.Printf("Job %s for %s completed successfully", id, item.Name())
	}
}

// process fetches the item's files, saves the wallpaper and resolves it
func (jq *jobQueue) process(id string, item *Item) (types.DisplayableAsset, error) {
	entry := item.Entry()
	asset := item.Asset()

	n, err := jq.fetcher.Fetch(jq.ctx, entry.ImageURL, asset.ImagePath)
	if err != nil {
		return types.DisplayableAsset{}, fmt.Errorf("failed to download image: %w", err)
	}
	jq.broadcast(jq.updateJobProgress(id, n), "progress", "image downloaded")

	if entry.IsLivePhoto {
		n, err := jq.fetcher.Fetch(jq.ctx, entry.VideoURL, asset.VideoPath)
		if err != nil {
			return types.DisplayableAsset{}, fmt.Errorf("failed to download video: %w", err)
		}
		jq.broadcast(jq.updateJobProgress(id, n), "progress", "video downloaded")
	}

	if jq.saver != nil {
		if asset.DateAdded.IsZero() {
			asset.DateAdded = time.Now().UTC()
		}
		if err := jq.saver.SaveWallpaper(asset); err != nil {
			return types.DisplayableAsset{}, fmt.Errorf("failed to save wallpaper: %w", err)
		}
	}

	displayable, err := jq.processor.Resolve(jq.ctx, asset)
	if err != nil {
		return types.DisplayableAsset{}, fmt.Errorf("failed to process wallpaper: %w", err)
	}
	return displayable, nil
}

// broadcast sends a job update to the item's WebSocket subscribers
func (jq *jobQueue) broadcast(job *types.DownloadJob, msgType, message string) {
	if jq.hub == nil || job == nil {
		return
	}

	progress := 0.0
	if job.Total > 0 {
		progress = float64(job.Progress) / float64(job.Total) * 100
	}
	if job.Status == types.JobStatusCompleted {
		progress = 100.0
	}

	state := types.StateDownloading
	jq.mu.RLock()
	if item, ok := jq.items[job.ID]; ok {
		state = item.State().Kind()
	}
	jq.mu.RUnlock()

	jq.hub.Broadcast(types.StateMessage{
		Name:     job.Name,
		Type:     msgType,
		State:    state,
		JobID:    job.ID,
		Progress: progress,
		Message:  message,
	})
}

func sortJobs(jobs []*types.DownloadJob) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
}
