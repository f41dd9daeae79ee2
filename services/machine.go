package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"wallpaperd/metrics"
	"wallpaperd/types"
)

// Action is what OnAppear decided to do for an item
type Action string

const (
	ActionNone     Action = "none"
	ActionResolve  Action = "resolve"
	ActionDownload Action = "download"
	ActionSkipped  Action = "skipped" // a resolution for the item is already in flight
)

// Downloader fetches and persists an item's assets. It is fire-and-forget:
// the implementation moves the item to downloading and later to a terminal state.
type Downloader interface {
	DownloadAndSave(item *Item)
}

// MachineOption configures an ItemMachine
type MachineOption func(*ItemMachine)

// WithLossyFailures maps every failed resolution to types.ErrFileMissing,
// discarding the cause.
func WithLossyFailures(lossy bool) MachineOption {
	return func(m *ItemMachine) { m.lossy = lossy }
}

// WithMetrics sets the metrics sink
func WithMetrics(mt metrics.Metrics) MachineOption {
	return func(m *ItemMachine) {
		if mt != nil {
			m.metrics = mt
		}
	}
}

// ItemMachine decides what each item needs when it becomes visible and
// records the outcome on the item.
type ItemMachine struct {
	ctx        context.Context
	processor  LivePhotoProcessor
	downloader Downloader
	lossy      bool
	metrics    metrics.Metrics

	mu        sync.Mutex
	resolving map[string]uint64 // item name -> attempt token
	attempt   uint64
	wg        sync.WaitGroup
}

// NewItemMachine creates a state machine. Actions run on ctx, not on the
// context of whoever reported the item visible, so they outlive the caller.
func NewItemMachine(ctx context.Context, processor LivePhotoProcessor, downloader Downloader, opts ...MachineOption) *ItemMachine {
	m := &ItemMachine{
		ctx:        ctx,
		processor:  processor,
		downloader: downloader,
		metrics:    metrics.Noop{},
		resolving:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnAppear inspects the item's state and dispatches at most one action.
// The decision is synchronous; the action's result is applied asynchronously.
func (m *ItemMachine) OnAppear(item *Item) Action {
	switch s := item.State().(type) {
	case types.Initial:
		log.Printf("Wallpaper %s is initial, waiting for sync", item.Name())
		return ActionNone

	case types.Loading:
		token, ok := m.acquire(item.Name())
		if !ok {
			log.Printf("Wallpaper %s is already resolving, skipping", item.Name())
			return ActionSkipped
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer m.release(item.Name(), token)
			m.resolve(item)
		}()
		return ActionResolve

	case types.NeedsDownload:
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.downloader.DownloadAndSave(item)
		}()
		return ActionDownload

	case types.Downloading:
		log.Printf("Wallpaper %s is downloading", item.Name())
		return ActionNone

	case types.Success:
		return ActionNone

	case types.Failure:
		log.Printf("Wallpaper %s failed: %v", item.Name(), s.Error())
		return ActionNone

	default:
		panic(fmt.Sprintf("unknown item state %T", s))
	}
}

// CanSelect reports whether the item can be opened.
func (m *ItemMachine) CanSelect(item *Item) bool {
	return CanSelect(item.State())
}

// CanSelect is true if and only if state is success.
func CanSelect(state types.ItemState) bool {
	_, ok := state.(types.Success)
	return ok
}

// Retry moves a failed item back to loading when its files are on disk, or to
// needsDownload otherwise. The in-flight entry for the item is cleared.
func (m *ItemMachine) Retry(item *Item) error {
	if _, ok := item.State().(types.Failure); !ok {
		return fmt.Errorf("%w: %s is %s", types.ErrNotFailed, item.Name(), item.State().Kind())
	}

	m.mu.Lock()
	delete(m.resolving, item.Name())
	m.metrics.SetResolving(len(m.resolving))
	m.mu.Unlock()

	var next types.ItemState = types.NeedsDownload{}
	if LocalFilesPresent(item.Asset()) {
		next = types.Loading{}
	}
	return item.CompareAndSet(types.StateFailure, next)
}

// Resolving reports whether a resolution for name is in flight.
func (m *ItemMachine) Resolving(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.resolving[name]
	return ok
}

// Wait blocks until every dispatched action has returned.
func (m *ItemMachine) Wait() {
	m.wg.Wait()
}

func (m *ItemMachine) acquire(name string) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.resolving[name]; busy {
		return 0, false
	}
	m.attempt++
	m.resolving[name] = m.attempt
	m.metrics.SetResolving(len(m.resolving))
	return m.attempt, true
}

// release clears the in-flight entry unless a retry already replaced it.
func (m *ItemMachine) release(name string, token uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolving[name] == token {
		delete(m.resolving, name)
	}
	m.metrics.SetResolving(len(m.resolving))
}

func (m *ItemMachine) resolve(item *Item) {
	state := ResolveState(m.ctx, item.Asset(), m.processor)

	var next types.ItemState
	switch s := state.(type) {
	case types.Success:
		m.metrics.IncResolution("success")
		next = s
	case types.Failure:
		m.metrics.IncResolution("failure")
		next = types.Failure{Err: m.failureCause(s.Err)}
	default:
		m.metrics.IncResolution("failure")
		next = types.Failure{Err: m.failureCause(nil)}
	}

	if err := item.CompareAndSet(types.StateLoading, next); err != nil {
		log.Printf("Dropping resolution result for %s: %v", item.Name(), err)
		return
	}
	if f, ok := next.(types.Failure); ok {
		log.Printf("Wallpaper %s resolution failed: %v", item.Name(), f.Err)
	}
}

func (m *ItemMachine) failureCause(err error) error {
	if m.lossy || err == nil {
		return types.ErrFileMissing
	}
	return err
}

// ResolveState runs the processor for asset and reports the outcome as a state.
func ResolveState(ctx context.Context, asset types.WallpaperAsset, processor LivePhotoProcessor) types.ItemState {
	displayable, err := processor.Resolve(ctx, asset)
	if err != nil {
		return types.Failure{Err: err}
	}
	if displayable.IsZero() {
		return types.Failure{Err: fmt.Errorf("%w: no image resolved for %s", types.ErrFileMissing, asset.Name)}
	}
	return types.Success{Asset: displayable}
}
