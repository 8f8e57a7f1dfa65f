package source

import (
	"fmt"
	"sync"
)

// Registry holds the list of configured data sources. All mutations replace
// the backing slice wholesale so readers holding a snapshot never observe a
// partially updated record. Subscribers are pinged after every change.
type Registry struct {
	mu      sync.RWMutex
	sources []DataSource

	lmu       sync.RWMutex
	listeners map[chan struct{}]struct{}
}

// NewRegistry creates a registry seeded with the given sources. Any seeded
// source that claims to be loaded is demoted to verification_needed: the
// claim comes from rehydrated state and the live database has not confirmed
// the table exists yet.
func NewRegistry(initial []DataSource) *Registry {
	sources := make([]DataSource, len(initial))
	copy(sources, initial)
	for i := range sources {
		if sources[i].LoadingStatus == StatusLoaded {
			sources[i].LoadingStatus = StatusVerificationNeeded
		}
	}
	return &Registry{
		sources:   sources,
		listeners: make(map[chan struct{}]struct{}),
	}
}

// Snapshot returns a copy of the current source list.
func (r *Registry) Snapshot() []DataSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]DataSource, len(r.sources))
	copy(out, r.sources)
	return out
}

// Get returns the source with the given id.
func (r *Registry) Get(id string) (DataSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ds := range r.sources {
		if ds.ID == id {
			return ds, true
		}
	}
	return DataSource{}, false
}

// Add appends a source. Table names must be unique within the registry.
func (r *Registry) Add(ds DataSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sources {
		if existing.TableName == ds.TableName {
			return fmt.Errorf("table name %q is already in use by source %s", ds.TableName, existing.ID)
		}
	}
	next := make([]DataSource, len(r.sources), len(r.sources)+1)
	copy(next, r.sources)
	r.sources = append(next, ds)
	r.notifyLocked()
	return nil
}

// Remove deletes the source with the given id. Removing an unknown id is a
// no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make([]DataSource, 0, len(r.sources))
	for _, ds := range r.sources {
		if ds.ID != id {
			next = append(next, ds)
		}
	}
	if len(next) == len(r.sources) {
		return
	}
	r.sources = next
	r.notifyLocked()
}

// SetStatus updates a source's loading status. The error message is kept only
// for failed status; any other status clears it.
func (r *Registry) SetStatus(id string, status LoadingStatus, loadErr string) {
	r.update(id, func(ds *DataSource) {
		ds.LoadingStatus = status
		if status == StatusFailed {
			ds.LoadingError = loadErr
		} else {
			ds.LoadingError = ""
		}
	})
}

// SetSchema records the introspected column list for a source.
func (r *Registry) SetSchema(id string, cols []Column) {
	r.update(id, func(ds *DataSource) {
		ds.Schema = cols
	})
}

// update applies fn to a copy of the identified source and swaps in a new
// slice. Unknown ids are ignored; the loader may race with a user removal and
// a write for a removed source must not resurrect it.
func (r *Registry) update(id string, fn func(*DataSource)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := -1
	for i := range r.sources {
		if r.sources[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	next := make([]DataSource, len(r.sources))
	copy(next, r.sources)
	fn(&next[idx])
	r.sources = next
	r.notifyLocked()
}

// Subscribe returns a channel that receives a ping after every registry
// change. Callers must Unsubscribe when done.
func (r *Registry) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	r.lmu.Lock()
	r.listeners[ch] = struct{}{}
	r.lmu.Unlock()
	return ch
}

// Unsubscribe removes and closes a listener channel.
func (r *Registry) Unsubscribe(ch chan struct{}) {
	r.lmu.Lock()
	delete(r.listeners, ch)
	r.lmu.Unlock()
	close(ch)
}

// notifyLocked pings all listeners without blocking. A listener whose channel
// is full will catch up on its next read.
func (r *Registry) notifyLocked() {
	r.lmu.RLock()
	defer r.lmu.RUnlock()
	for ch := range r.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
