package services

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"wallpaperd/types"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

var errNetwork = errors.New("network unreachable")

// writeTestImage writes a solid PNG or JPEG, chosen by the extension of path
func writeTestImage(t *testing.T, path string, width, height int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	img := imaging.New(width, height, color.NRGBA{R: 40, G: 90, B: 160, A: 255})
	require.NoError(t, imaging.Save(img, path))
}

// writeTestFile writes arbitrary bytes, e.g. a stand-in video
func writeTestFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

// fakeProcessor returns a canned result and counts calls. When block is set,
// Resolve waits on it before returning.
type fakeProcessor struct {
	mu     sync.Mutex
	calls  int
	result types.DisplayableAsset
	err    error
	block  chan struct{}
}

func (p *fakeProcessor) Resolve(ctx context.Context, asset types.WallpaperAsset) (types.DisplayableAsset, error) {
	p.mu.Lock()
	p.calls++
	block := p.block
	p.mu.Unlock()

	if block != nil {
		<-block
	}
	return p.result, p.err
}

func (p *fakeProcessor) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeDownloader records the items it was asked to download
type fakeDownloader struct {
	mu    sync.Mutex
	items []string
	then  func(item *Item)
}

func (d *fakeDownloader) DownloadAndSave(item *Item) {
	d.mu.Lock()
	d.items = append(d.items, item.Name())
	then := d.then
	d.mu.Unlock()
	if then != nil {
		then(item)
	}
}

func (d *fakeDownloader) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.items...)
}

// memStore is an in-memory WallpaperStore
type memStore struct {
	mu         sync.Mutex
	wallpapers map[string]types.WallpaperAsset
	settings   *types.Settings
	saveErr    error
}

func newMemStore(assets ...types.WallpaperAsset) *memStore {
	s := &memStore{wallpapers: make(map[string]types.WallpaperAsset)}
	for _, a := range assets {
		s.wallpapers[a.Name] = a
	}
	return s
}

func (s *memStore) SaveWallpaper(asset types.WallpaperAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.wallpapers[asset.Name] = asset
	return nil
}

func (s *memStore) ListWallpapers() ([]types.WallpaperAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.WallpaperAsset, 0, len(s.wallpapers))
	for _, a := range s.wallpapers {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) RecentWallpapers(limit int) ([]types.WallpaperAsset, error) {
	out, _ := s.ListWallpapers()
	sort.Slice(out, func(i, j int) bool { return out[i].DateAdded.After(out[j].DateAdded) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) LoadSettings(defaults types.Settings) (types.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return defaults, nil
	}
	return *s.settings, nil
}

func (s *memStore) SaveSettings(settings types.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &settings
	return nil
}

func (s *memStore) Saved(name string) (types.WallpaperAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.wallpapers[name]
	return a, ok
}

// staticCatalog returns fixed entries or an error
type staticCatalog struct {
	entries []types.CatalogEntry
	err     error
}

func (c staticCatalog) Entries(ctx context.Context) ([]types.CatalogEntry, error) {
	return c.entries, c.err
}

// itemIn returns an item forced into state through legal transitions
func itemIn(t *testing.T, asset types.WallpaperAsset, state types.ItemState) *Item {
	t.Helper()
	item := NewItem(asset, types.CatalogEntry{Name: asset.Name, IsLivePhoto: asset.IsLivePhoto})
	path := map[types.StateKind][]types.ItemState{
		types.StateInitial:       nil,
		types.StateLoading:       {types.Loading{}},
		types.StateNeedsDownload: {types.NeedsDownload{}},
		types.StateDownloading:   {types.NeedsDownload{}, types.Downloading{}},
		types.StateSuccess:       {types.Loading{}, state},
		types.StateFailure:       {types.Loading{}, state},
	}[state.Kind()]
	for _, s := range path {
		require.NoError(t, item.SetState(s))
	}
	return item
}

func waitForState(t *testing.T, item *Item, kind types.StateKind) {
	t.Helper()
	require.Eventually(t, func() bool {
		return item.State().Kind() == kind
	}, 2*time.Second, 5*time.Millisecond, "item %s never reached %s", item.Name(), kind)
}
