package statechart

import (
	"maps"
	"sync"

	"github.com/stateforward/statechart.go/muid"
)

// Instance holds the active configuration of one running copy of a model:
// which state is current in each entered region, keyed by qualified names.
// Setting an empty state clears the region.
type Instance interface {
	SetCurrent(region, state string)
	GetCurrent(region string) (string, bool)
}

// Store is the default in-memory Instance. It is safe for concurrent use,
// though a single instance must still be evaluated by one caller at a time.
type Store struct {
	mutex   sync.RWMutex
	id      string
	current map[string]string
}

// NewStore returns an empty store. Without an explicit ID it is given a MUID.
func NewStore(maybeID ...string) *Store {
	store := &Store{current: map[string]string{}}
	if len(maybeID) > 0 && maybeID[0] != "" {
		store.id = maybeID[0]
	} else {
		store.id = muid.MakeString()
	}
	return store
}

// ID returns the store identity.
func (store *Store) ID() string {
	return store.id
}

// SetCurrent records state as current in region, or clears region when state is empty.
func (store *Store) SetCurrent(region, state string) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if state == "" {
		delete(store.current, region)
		return
	}
	store.current[region] = state
}

// GetCurrent returns the state recorded for region.
func (store *Store) GetCurrent(region string) (string, bool) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	state, ok := store.current[region]
	return state, ok
}

// Snapshot copies every entry, history keys included.
func (store *Store) Snapshot() map[string]string {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return maps.Clone(store.current)
}

// Restore replaces the content of the store with entries.
func (store *Store) Restore(entries map[string]string) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.current = make(map[string]string, len(entries))
	for region, state := range entries {
		if state != "" {
			store.current[region] = state
		}
	}
}
