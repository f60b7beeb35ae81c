// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Presenter is the presentation engine attached to a record.
// Detach must wait for all GPU work targeting the surface to finish.
type Presenter interface {
	Detach() error
}

// Record is the registry entry for one live surface.
type Record struct {
	Surface

	mu        sync.Mutex
	presenter Presenter
}

// Attach binds a presentation engine to the record.
func (r *Record) Attach(p Presenter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.presenter != nil {
		return fmt.Errorf("%w: %v", ErrAlreadyAttached, r.ID())
	}
	r.presenter = p
	return nil
}

// Presenter returns the attached engine, if any.
func (r *Record) Presenter() (Presenter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presenter, r.presenter != nil
}

// Detach releases the attached engine and forgets it. It is a no-op when
// nothing is attached.
func (r *Record) Detach() error {
	r.mu.Lock()
	p := r.presenter
	r.presenter = nil
	r.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Detach()
}

// Registry maps surface identities to their records.
//
// A Registry holds at most one record per ID. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	records map[ID]*Record
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[ID]*Record),
	}
}

// Register adds s to the registry.
//
// Registering an ID that is already present is a contract violation: it
// returns a *DuplicateError and leaves the registry unchanged.
func (r *Registry) Register(s Surface) (*Record, error) {
	if s == nil {
		return nil, errors.New("surface: nil surface")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.records == nil {
		r.records = make(map[ID]*Record)
	}
	if _, ok := r.records[s.ID()]; ok {
		return nil, &DuplicateError{ID: s.ID()}
	}
	rec := &Record{Surface: s}
	r.records[s.ID()] = rec
	return rec, nil
}

// Lookup returns the record for id.
func (r *Registry) Lookup(id ID) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}

// Unregister detaches the record's presentation engine and removes it.
//
// The record is removed even when detaching fails; the detach error is
// returned so the caller can decide whether the device is still usable.
func (r *Registry) Unregister(id ID) error {
	r.mu.Lock()
	rec, ok := r.records[id]
	if ok {
		delete(r.records, id)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %v", ErrNotRegistered, id)
	}
	if err := rec.Detach(); err != nil {
		return fmt.Errorf("surface: detach %v: %w", id, err)
	}
	return nil
}

// Len returns the number of registered surfaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// IDs returns the registered identities in ascending order.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]ID, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Errors.
var (
	// ErrContract marks misuse that leaves routing state inconsistent.
	ErrContract = errors.New("surface: contract violation")

	// ErrAlreadyRegistered is matched by *DuplicateError.
	ErrAlreadyRegistered = errors.New("surface: already registered")

	// ErrNotRegistered is returned for identities with no record.
	ErrNotRegistered = errors.New("surface: not registered")

	// ErrAlreadyAttached is returned when a record already has an engine.
	ErrAlreadyAttached = errors.New("surface: presenter already attached")
)

// DuplicateError indicates a second registration of a live identity.
type DuplicateError struct {
	ID ID
}

func (e *DuplicateError) Error() string {
	return "surface: already registered: " + e.ID.String()
}

// Unwrap returns the sentinel errors matched by e.
func (e *DuplicateError) Unwrap() []error {
	return []error{ErrAlreadyRegistered, ErrContract}
}
