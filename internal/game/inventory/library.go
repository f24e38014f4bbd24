package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Store persists the item library as a whole.
type Store interface {
	LoadItems(ctx context.Context) ([]*Item, error)
	SaveItems(ctx context.Context, items []*Item) error
}

// Library is an in-memory cache of item definitions backed by a Store.
// It is safe for concurrent use.
type Library struct {
	mu     sync.RWMutex
	store  Store
	items  map[string]*Item
	logger *zap.Logger
}

// NewLibrary returns an empty Library over store. store may be nil.
func NewLibrary(store Store, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{store: store, items: make(map[string]*Item), logger: logger}
}

// Reload replaces the cache with the store's contents. On error the cache is unchanged.
func (l *Library) Reload(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	items, err := l.store.LoadItems(ctx)
	if err != nil {
		return fmt.Errorf("loading item library: %w", err)
	}
	next := make(map[string]*Item, len(items))
	for _, it := range items {
		if it == nil || it.ID == "" {
			continue
		}
		next[it.ID] = it
	}
	l.mu.Lock()
	l.items = next
	l.mu.Unlock()
	l.logger.Debug("item library loaded", zap.Int("count", len(next)))
	return nil
}

// Flush writes the cache back to the store.
func (l *Library) Flush(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.SaveItems(ctx, l.All()); err != nil {
		return fmt.Errorf("saving item library: %w", err)
	}
	return nil
}

// Put validates and stores it, replacing any item with the same id.
func (l *Library) Put(it *Item) error {
	if err := it.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	l.items[it.ID] = it
	l.mu.Unlock()
	return nil
}

// Delete removes the item with id.
func (l *Library) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.items[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(l.items, id)
	return nil
}

// Get returns the item with id.
func (l *Library) Get(id string) (*Item, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	it, ok := l.items[id]
	return it, ok
}

// FindByName returns the item whose name matches case-insensitively.
func (l *Library) FindByName(name string) (*Item, bool) {
	for _, it := range l.All() {
		if strings.EqualFold(it.Name, name) {
			return it, true
		}
	}
	return nil, false
}

// All returns the items sorted by name, then id.
func (l *Library) All() []*Item {
	l.mu.RLock()
	out := make([]*Item, 0, len(l.items))
	for _, it := range l.items {
		out = append(out, it)
	}
	l.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Names returns the item names in library order.
func (l *Library) Names() []string {
	all := l.All()
	names := make([]string, len(all))
	for i, it := range all {
		names[i] = it.Name
	}
	return names
}
