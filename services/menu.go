package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"wallpaperd/types"

	"golang.org/x/sync/errgroup"
)

// recentResolvers bounds how many recent wallpapers are resolved at once
const recentResolvers = 4

// Styles offered by the new wallpaper sheet
var Styles = []string{"Fantasy", "Anime", "Nature", "Mountains"}

// WallpaperStore is the persistence the menu reads from
type WallpaperStore interface {
	WallpaperSaver
	ListWallpapers() ([]types.WallpaperAsset, error)
	RecentWallpapers(limit int) ([]types.WallpaperAsset, error)
	LoadSettings(defaults types.Settings) (types.Settings, error)
	SaveSettings(settings types.Settings) error
}

// MenuService is the view-model of the menu screen: the pregenerated
// wallpaper grid, the recent list and the sheet/onboarding flags.
type MenuService struct {
	catalog   Catalog
	store     WallpaperStore
	processor LivePhotoProcessor
	dir       string
	observers []Observer

	mu       sync.RWMutex
	items    []*Item
	index    map[string]*Item
	recent   []*Item
	state    types.MenuState
	settings types.Settings
}

// MenuOption configures a MenuService
type MenuOption func(*MenuService)

// WithRecentProcessor resolves recent wallpapers with p when they are loaded
func WithRecentProcessor(p LivePhotoProcessor) MenuOption {
	return func(m *MenuService) { m.processor = p }
}

// NewMenuService creates the menu view-model. Items are downloaded into dir.
// Settings are read from the store, falling back to defaults.
func NewMenuService(catalog Catalog, store WallpaperStore, dir string, defaults types.Settings, opts ...MenuOption) *MenuService {
	settings := defaults
	if store != nil {
		loaded, err := store.LoadSettings(defaults)
		if err != nil {
			log.Printf("[MENU] Could not load settings, using defaults: %v", err)
		} else {
			settings = loaded
		}
	}

	m := &MenuService{
		catalog:  catalog,
		store:    store,
		dir:      dir,
		index:    make(map[string]*Item),
		settings: settings,
		state: types.MenuState{
			ShowOnboarding: !settings.OnboardingCompleted,
			Styles:         append([]string(nil), Styles...),
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Observe attaches o to every item the menu creates from now on
func (m *MenuService) Observe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// SyncWallpapers refreshes the pregenerated wallpaper list from the catalog,
// falling back to saved wallpapers when the catalog is unavailable. Items in
// the initial state advance to loading when their files are on disk, or to
// needsDownload otherwise. Existing items keep their state.
func (m *MenuService) SyncWallpapers(ctx context.Context) ([]*Item, error) {
	var savedList []types.WallpaperAsset
	if m.store != nil {
		var err error
		if savedList, err = m.store.ListWallpapers(); err != nil {
			return nil, fmt.Errorf("list saved wallpapers: %w", err)
		}
	}
	saved := make(map[string]types.WallpaperAsset, len(savedList))
	for _, a := range savedList {
		saved[a.Name] = a
	}

	type pair struct {
		asset types.WallpaperAsset
		entry types.CatalogEntry
	}
	var pairs []pair

	entries, err := m.fetchCatalog(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[MENU] Catalog unavailable, using %d saved wallpapers: %v", len(saved), err)
		for _, a := range savedList {
			pairs = append(pairs, pair{asset: a, entry: EntryForAsset(a)})
		}
	} else {
		for _, e := range entries {
			asset, ok := saved[e.Name]
			if !ok {
				asset = AssetForEntry(m.dir, e)
			}
			pairs = append(pairs, pair{asset: asset, entry: e})
		}
	}

	m.mu.Lock()
	items := make([]*Item, 0, len(pairs))
	index := make(map[string]*Item, len(pairs))
	var created []*Item
	for _, p := range pairs {
		item, ok := m.index[p.asset.Name]
		if !ok {
			item = NewItem(p.asset, p.entry)
			for _, o := range m.observers {
				item.Subscribe(o)
			}
			created = append(created, item)
		}
		items = append(items, item)
		index[item.Name()] = item
	}
	m.items = items
	m.index = index
	m.mu.Unlock()

	for _, item := range items {
		advance(item)
	}
	log.Printf("[MENU] Synced %d wallpapers (%d new)", len(items), len(created))
	return items, nil
}

func (m *MenuService) fetchCatalog(ctx context.Context) ([]types.CatalogEntry, error) {
	if m.catalog == nil {
		return nil, ErrNoCatalog
	}
	return m.catalog.Entries(ctx)
}

// advance moves an initial item to the state its files call for
func advance(item *Item) {
	if item.State().Kind() != types.StateInitial {
		return
	}
	var next types.ItemState = types.NeedsDownload{}
	if LocalFilesPresent(item.Asset()) {
		next = types.Loading{}
	}
	if err := item.CompareAndSet(types.StateInitial, next); err != nil {
		log.Printf("[MENU] Could not advance %s: %v", item.Name(), err)
	}
}

// RecentWallpapers loads saved wallpapers, newest first, limited by settings.
// Each one is resolved before it is returned, so its state says whether it
// can be displayed and selected.
func (m *MenuService) RecentWallpapers(ctx context.Context) ([]*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.store == nil {
		return nil, nil
	}

	limit := m.Settings().RecentLimit
	assets, err := m.store.RecentWallpapers(limit)
	if err != nil {
		return nil, fmt.Errorf("load recent wallpapers: %w", err)
	}

	recent := make([]*Item, len(assets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recentResolvers)
	for n, asset := range assets {
		item := NewItem(asset, EntryForAsset(asset))
		recent[n] = item
		g.Go(func() error {
			m.resolveRecent(gctx, item)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.recent = recent
	m.mu.Unlock()
	return recent, nil
}

// resolveRecent moves a saved wallpaper to success or failure. Without a
// processor, wallpapers whose files are on disk stay loading.
func (m *MenuService) resolveRecent(ctx context.Context, item *Item) {
	if err := item.SetState(types.Loading{}); err != nil {
		log.Printf("[MENU] Could not load recent wallpaper %s: %v", item.Name(), err)
		return
	}

	var next types.ItemState
	switch {
	case m.processor != nil:
		next = ResolveState(ctx, item.Asset(), m.processor)
	case !LocalFilesPresent(item.Asset()):
		next = types.Failure{Err: fmt.Errorf("%w: %s", types.ErrFileMissing, item.Name())}
	default:
		return
	}
	if err := item.CompareAndSet(types.StateLoading, next); err != nil {
		log.Printf("[MENU] Could not resolve recent wallpaper %s: %v", item.Name(), err)
	}
}

// Load runs the wallpaper sync and the recent list load concurrently
func (m *MenuService) Load(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := m.SyncWallpapers(ctx)
		return err
	})
	g.Go(func() error {
		_, err := m.RecentWallpapers(ctx)
		return err
	})
	return g.Wait()
}

// Handle applies a menu command and returns the resulting state
func (m *MenuService) Handle(cmd types.MenuCommand) (types.MenuState, error) {
	m.mu.Lock()
	switch cmd {
	case types.CommandNewWallpaper:
		m.state.SheetIsShown = true
	case types.CommandDismissSheet:
		m.state.SheetIsShown = false
	case types.CommandDismissOnboarding:
		m.state.ShowOnboarding = false
		m.settings.OnboardingCompleted = true
		settings := m.settings
		state := m.copyState()
		m.mu.Unlock()
		if err := m.saveSettings(settings); err != nil {
			return state, err
		}
		return state, nil
	default:
		m.mu.Unlock()
		return m.State(), fmt.Errorf("%w: %q", types.ErrUnknownCommand, cmd)
	}
	state := m.copyState()
	m.mu.Unlock()
	return state, nil
}

// State returns a copy of the menu state
func (m *MenuService) State() types.MenuState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copyState()
}

func (m *MenuService) copyState() types.MenuState {
	state := m.state
	state.Styles = append([]string(nil), m.state.Styles...)
	return state
}

// Settings returns the current settings
func (m *MenuService) Settings() types.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// UpdateSettings validates, applies and persists settings
func (m *MenuService) UpdateSettings(settings types.Settings) error {
	if settings.RecentLimit < 0 {
		return errors.New("recentLimit must not be negative")
	}
	if settings.RecentLimit == 0 {
		settings.RecentLimit = 10
	}

	m.mu.Lock()
	m.settings = settings
	m.state.ShowOnboarding = !settings.OnboardingCompleted
	m.mu.Unlock()
	return m.saveSettings(settings)
}

func (m *MenuService) saveSettings(settings types.Settings) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.SaveSettings(settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Items returns the pregenerated wallpapers in catalog order
func (m *MenuService) Items() []*Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Item(nil), m.items...)
}

// Item looks up an item by name
func (m *MenuService) Item(name string) (*Item, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.index[name]
	return item, ok
}

// Recent returns the recent list from the last load
func (m *MenuService) Recent() []*Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Item(nil), m.recent...)
}
