// Package registry tracks which satellites currently have a pending or
// in-flight recording job. It is the single synchronization point between
// scheduler ticks and job workers: a slot is acquired atomically before a
// worker starts and released when the worker exits, on every exit path.
package registry

import (
	"sort"
	"sync"
	"time"
)

// Entry describes the job occupying a slot.
type Entry struct {
	JobID     string    `json:"job_id"`
	Satellite string    `json:"satellite"`
	Since     time.Time `json:"since"`
}

// Registry is a mutex-guarded satellite-name → job-handle map. The zero
// value is not usable; call New.
type Registry struct {
	mu     sync.Mutex
	active map[string]Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{active: make(map[string]Entry)}
}

// TryAcquire atomically claims the slot for name. It returns true and
// stores e iff no job currently holds the name. The check and the set
// happen under one lock so two overlapping scheduler ticks cannot both
// claim the same satellite. The critical section performs no I/O.
func (r *Registry) TryAcquire(name string, e Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.active[name]; held {
		return false
	}
	r.active[name] = e
	return true
}

// Release frees the slot for name. Releasing a name that is not held is a
// no-op, so workers can release unconditionally on every exit path.
func (r *Registry) Release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, name)
}

// Held reports whether a job currently occupies the slot for name.
func (r *Registry) Held(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, held := r.active[name]
	return held
}

// Active returns a copy of the current entries, sorted by satellite name.
func (r *Registry) Active() []Entry {
	r.mu.Lock()
	entries := make([]Entry, 0, len(r.active))
	for _, e := range r.active {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Satellite < entries[j].Satellite })
	return entries
}
