package usage

import (
	"log"
	"sync"
)

var (
	mu          sync.RWMutex
	globalStore *Store
)

// Init opens the global store at path, or at DefaultPath when path is
// empty. Calling it again while a store is open is a no-op.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if globalStore != nil {
		return nil
	}

	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return err
		}
	}

	store, err := NewStore(path)
	if err != nil {
		log.Printf("usage: failed to initialize store: %v", err)
		return err
	}
	globalStore = store
	return nil
}

// Record counts one event. It does nothing until Init succeeds.
func Record(event Event) {
	RecordN(event, 1)
}

// RecordN adds n to the event count.
func RecordN(event Event, n int64) {
	mu.RLock()
	store := globalStore
	mu.RUnlock()

	if store == nil {
		return
	}
	if err := store.Add(event, n); err != nil {
		log.Printf("usage: failed to record %s: %v", event, err)
	}
}

// Totals returns cumulative counts, or nil when no store is open.
func Totals() map[Event]int64 {
	mu.RLock()
	store := globalStore
	mu.RUnlock()

	if store == nil {
		return nil
	}

	totals, err := store.Totals()
	if err != nil {
		log.Printf("usage: failed to get totals: %v", err)
		return nil
	}
	return totals
}

// Close closes the global store.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if globalStore == nil {
		return nil
	}
	err := globalStore.Close()
	globalStore = nil
	return err
}

// SetStoreForTesting replaces the global store.
func SetStoreForTesting(store *Store) {
	mu.Lock()
	defer mu.Unlock()
	globalStore = store
}
