// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/layershell/present"
)

// Names of the backends that ship with layershell.
const (
	// BackendSoftware presents from host memory. It is always available.
	BackendSoftware = "software"
	// BackendNative uploads frames to textures of a host's gogpu/wgpu
	// device.
	BackendNative = "native"
)

// Factory opens a presentation device for one surface. A Factory may be
// called once per surface; the device it returns belongs to the caller.
type Factory func(t Target) (present.Device, error)

// Entry describes a registered backend.
type Entry struct {
	Name string

	// Priority orders OpenBest's candidates, highest first. GPU backends
	// use 100 and CPU backends 10.
	Priority int

	Factory Factory

	// Available is asked before every Open. It never is nil in entries
	// returned by Get.
	Available func() bool
}

// Registry maps backend names to factories. The zero value is ready to
// use, and a Registry is safe for concurrent use.
//
// Most programs use the package-level functions, which act on a shared
// registry that backends fill from their init functions.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

var defaultRegistry Registry

// NewRegistry returns an empty registry, mainly for tests.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds a backend to the shared registry. See Registry.Register.
func Register(name string, priority int, factory Factory, available func() bool) {
	defaultRegistry.Register(name, priority, factory, available)
}

// Unregister removes a backend from the shared registry.
func Unregister(name string) { defaultRegistry.Unregister(name) }

// List returns the names in the shared registry, best first.
func List() []string { return defaultRegistry.List() }

// Available returns the names in the shared registry whose backend can be
// opened now, best first.
func Available() []string { return defaultRegistry.Available() }

// Get returns a copy of the shared registry's entry for name.
func Get(name string) (*Entry, bool) { return defaultRegistry.Get(name) }

// Open opens the named backend of the shared registry for t.
func Open(name string, t Target) (present.Device, error) {
	return defaultRegistry.Open(name, t)
}

// OpenBest opens the best backend of the shared registry that succeeds
// for t.
func OpenBest(t Target) (present.Device, error) {
	return defaultRegistry.OpenBest(t)
}

// Named defers Open(name, ...) until a surface asks for a device, so the
// backend is resolved at attach time.
func Named(name string) Factory {
	return func(t Target) (present.Device, error) {
		return Open(name, t)
	}
}

// Best defers OpenBest until a surface asks for a device.
func Best() Factory { return OpenBest }

// Register adds or replaces the backend called name. A nil available
// means the backend can always be opened.
func (r *Registry) Register(name string, priority int, factory Factory, available func() bool) {
	if available == nil {
		available = func() bool { return true }
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[string]Entry)
	}
	r.entries[name] = Entry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes the backend called name, if any.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	delete(r.entries, name)
	r.mu.Unlock()
}

// List returns every registered name by descending priority. Equal
// priorities are ordered by name.
func (r *Registry) List() []string {
	return names(r.ranked(false))
}

// Available is List restricted to backends that report themselves
// available.
func (r *Registry) Available() []string {
	return names(r.ranked(true))
}

// Get returns a copy of the entry for name.
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return &e, true
}

// Open calls the factory of the backend called name. It fails with
// *NotFoundError or *UnavailableError before calling the factory.
func (r *Registry) Open(name string, t Target) (present.Device, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	switch {
	case !ok:
		return nil, &NotFoundError{Name: name}
	case !e.Available():
		return nil, &UnavailableError{Name: name}
	}
	return e.Factory(t)
}

// OpenBest tries the available backends by priority and returns the first
// device opened. If every factory fails, the error joins all failures.
func (r *Registry) OpenBest(t Target) (present.Device, error) {
	candidates := r.ranked(true)
	if len(candidates) == 0 {
		return nil, ErrNoBackendAvailable
	}
	var errs []error
	for _, e := range candidates {
		dev, err := e.Factory(t)
		if err == nil {
			return dev, nil
		}
		errs = append(errs, fmt.Errorf("backend %s: %w", e.Name, err))
	}
	return nil, errors.Join(errs...)
}

// ranked snapshots the entries, best first.
func (r *Registry) ranked(onlyAvailable bool) []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()

	// Availability checks run without the lock; they may be slow.
	if onlyAvailable {
		out = slices.DeleteFunc(out, func(e Entry) bool { return !e.Available() })
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

func names(entries []Entry) []string {
	if len(entries) == 0 {
		return nil
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

// ErrNoBackendAvailable is returned by OpenBest when no registered backend
// is available.
var ErrNoBackendAvailable = errors.New("backend: no backend available")

// NotFoundError reports an Open of a name nobody registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string { return "backend: not found: " + e.Name }

// UnavailableError reports an Open of a backend that cannot run here,
// such as the native backend without a GPU device.
type UnavailableError struct {
	Name string
}

func (e *UnavailableError) Error() string { return "backend: unavailable: " + e.Name }
