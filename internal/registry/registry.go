// Package registry interns a per-URI reader/writer lock so that concurrent
// requests targeting the same path are serialized while requests on
// distinct paths proceed independently.
package registry

import (
	"fmt"
	"sync"

	"github.com/cubbit/httpfs/internal/rwlock"
)

// Entry is one registry slot: a path, its reference count, and the lock
// serializing access to that path.
type Entry struct {
	path     string
	refcount int
	lock     rwlock.Lock
}

// Lock returns the entry's embedded RWLock.
func (e *Entry) Lock() rwlock.Lock {
	return e.lock
}

// Registry is a fixed-size table of Entry slots, sized to the worker pool.
// Lookup is a linear scan under a single mutex: at most one lock per active
// URI is needed at any instant, and the number of simultaneously-in-use
// slots is bounded above by the worker count, so the registry never
// overflows in practice.
type Registry struct {
	mu     sync.Mutex
	slots  []Entry
	policy rwlock.Policy
	n      int
}

// New constructs a Registry with the given capacity, where every slot's lock
// uses the given fairness policy (and N, meaningful only for NWay).
func New(capacity int, policy rwlock.Policy, n int) (*Registry, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("registry: capacity must be > 0, got %d", capacity)
	}

	slots := make([]Entry, capacity)
	for i := range slots {
		lock, err := rwlock.New(policy, n)
		if err != nil {
			return nil, fmt.Errorf("registry: constructing slot %d: %w", i, err)
		}
		slots[i].lock = lock
	}

	return &Registry{slots: slots, policy: policy, n: n}, nil
}

// Acquire returns the Entry for path, creating it on first reference and
// bumping its refcount on every subsequent call. The caller must pair every
// Acquire with a Release.
func (r *Registry) Acquire(path string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.slots {
		if r.slots[i].path == path && r.slots[i].refcount > 0 {
			r.slots[i].refcount++
			return &r.slots[i], nil
		}
	}

	for i := range r.slots {
		if r.slots[i].refcount == 0 {
			r.slots[i].path = path
			r.slots[i].refcount = 1
			return &r.slots[i], nil
		}
	}

	return nil, fmt.Errorf("registry: no free slot for %q; registry capacity (%d) is smaller than the active worker count", path, len(r.slots))
}

// Release decrements entry's refcount. When it reaches zero, the slot's path
// is cleared and becomes available for a different URI; the underlying lock
// is retained (already idle by the caller's contract) for reuse.
func (r *Registry) Release(entry *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.refcount--
	if entry.refcount == 0 {
		entry.path = ""
	}
}

// Cap returns the registry's fixed capacity.
func (r *Registry) Cap() int {
	return len(r.slots)
}
