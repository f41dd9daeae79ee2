package services

import (
	"fmt"
	"sync"
	"time"

	"wallpaperd/types"
)

// Observer is notified after every state change of an item. Notifications for
// one item are delivered one at a time, in transition order.
type Observer func(item *Item, prev, next types.ItemState)

type subscription struct {
	id int
	fn Observer
}

type change struct {
	prev, next types.ItemState
}

// Item is a displayable wallpaper tracked through its display lifecycle.
// The asset and catalog entry are fixed at creation; only the state changes.
type Item struct {
	asset types.WallpaperAsset
	entry types.CatalogEntry

	mu        sync.RWMutex
	state     types.ItemState
	observers []subscription // registration order
	nextID    int
	pending   []change
	notifying bool
}

// NewItem creates an item in the initial state.
func NewItem(asset types.WallpaperAsset, entry types.CatalogEntry) *Item {
	return &Item{
		asset: asset,
		entry: entry,
		state: types.Initial{},
	}
}

// Name returns the item's unique name.
func (i *Item) Name() string { return i.asset.Name }

// Asset returns the wallpaper asset the item displays.
func (i *Item) Asset() types.WallpaperAsset { return i.asset }

// Entry returns the catalog entry used to download the item.
func (i *Item) Entry() types.CatalogEntry { return i.entry }

// State returns the current state.
func (i *Item) State() types.ItemState {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// SetState moves the item to next if the transition table allows it.
func (i *Item) SetState(next types.ItemState) error {
	return i.transition(func(prev types.ItemState) error {
		return types.ValidateTransition(prev.Kind(), next.Kind())
	}, next)
}

// CompareAndSet moves the item to next only if it is currently in the expected kind.
func (i *Item) CompareAndSet(expected types.StateKind, next types.ItemState) error {
	return i.transition(func(prev types.ItemState) error {
		if prev.Kind() != expected {
			return fmt.Errorf("%w: expected %s, item %s is %s", types.ErrIllegalTransition, expected, i.Name(), prev.Kind())
		}
		return types.ValidateTransition(prev.Kind(), next.Kind())
	}, next)
}

// Reset returns a terminal item to the initial state.
func (i *Item) Reset() error {
	return i.SetState(types.Initial{})
}

func (i *Item) transition(check func(prev types.ItemState) error, next types.ItemState) error {
	i.mu.Lock()
	prev := i.state
	if err := check(prev); err != nil {
		i.mu.Unlock()
		return err
	}
	i.state = next
	i.pending = append(i.pending, change{prev: prev, next: next})

	// Another goroutine is already delivering; it picks this change up in order.
	if i.notifying {
		i.mu.Unlock()
		return nil
	}
	i.notifying = true
	for len(i.pending) > 0 {
		batch := i.pending
		i.pending = nil
		observers := append([]subscription(nil), i.observers...)
		i.mu.Unlock()

		for _, c := range batch {
			for _, o := range observers {
				o.fn(i, c.prev, c.next)
			}
		}

		i.mu.Lock()
	}
	i.notifying = false
	i.mu.Unlock()
	return nil
}

// Subscribe registers an observer and returns a func that removes it.
func (i *Item) Subscribe(o Observer) (unsubscribe func()) {
	i.mu.Lock()
	id := i.nextID
	i.nextID++
	i.observers = append(i.observers, subscription{id: id, fn: o})
	i.mu.Unlock()

	return func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		for n, sub := range i.observers {
			if sub.id == id {
				i.observers = append(i.observers[:n:n], i.observers[n+1:]...)
				return
			}
		}
	}
}

// ItemView is the JSON representation of an item
type ItemView struct {
	Name        string          `json:"name"`
	IsLivePhoto bool            `json:"isLivePhoto"`
	DateAdded   time.Time       `json:"dateAdded"`
	Selectable  bool            `json:"selectable"`
	State       types.StateView `json:"state"`
}

// View returns a snapshot of the item for the API.
func (i *Item) View() ItemView {
	state := i.State()
	return ItemView{
		Name:        i.asset.Name,
		IsLivePhoto: i.asset.IsLivePhoto,
		DateAdded:   i.asset.DateAdded,
		Selectable:  CanSelect(state),
		State:       types.ViewOf(state),
	}
}
