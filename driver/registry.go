// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"fmt"
	"sort"
	"sync"
)

// Options carries driver-independent construction parameters. Native holds
// backend-specific handles (for example a wgpu HAL device and queue, or the
// Vulkan instance/device bundle) and is interpreted by the selected factory.
type Options struct {
	// Label names the device for debugging.
	Label string

	// Native carries backend-specific initialization data. Factories
	// document the concrete type they expect; nil means the factory
	// creates or discovers its own resources.
	Native any
}

// Factory constructs a Device from options.
type Factory func(opts Options) (Device, error)

// Entry describes a registered driver.
type Entry struct {
	// Name is the unique driver identifier.
	Name string

	// Priority determines selection order (higher = preferred).
	// Conventionally: 100 for native GPU drivers, 50 for portable GPU
	// drivers, 10 for pure software.
	Priority int

	// Factory creates device instances.
	Factory Factory

	// Available reports whether the driver can run on this system.
	Available func() bool
}

// registry maps driver names to entries.
type registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

var global = &registry{}

// Register adds a driver to the global registry. Drivers call this from
// their init functions. A nil available probe means always available.
// Registering an existing name replaces the previous entry.
func Register(name string, priority int, factory Factory, available func() bool) {
	global.register(name, priority, factory, available)
}

// Unregister removes a driver from the global registry.
func Unregister(name string) {
	global.mu.Lock()
	defer global.mu.Unlock()
	delete(global.entries, name)
}

// List returns all registered driver names sorted by priority, highest
// first.
func List() []string {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.sortedNames(false)
}

// Available returns the names of drivers whose availability probe passes,
// sorted by priority.
func Available() []string {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.sortedNames(true)
}

// Lookup returns a copy of the registry entry for name.
func Lookup(name string) (Entry, bool) {
	global.mu.RLock()
	defer global.mu.RUnlock()
	e, ok := global.entries[name]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// New opens a device from the named driver.
func New(name string, opts Options) (Device, error) {
	global.mu.RLock()
	e, ok := global.entries[name]
	global.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("driver: open %q: %w", name, ErrNotRegistered)
	}
	if e.Available != nil && !e.Available() {
		return nil, fmt.Errorf("driver: open %q: %w", name, ErrNoneAvailable)
	}
	return e.Factory(opts)
}

// Default opens a device from the best available driver, trying candidates
// in priority order until one succeeds.
func Default(opts Options) (Device, error) {
	global.mu.RLock()
	names := global.sortedNames(true)
	global.mu.RUnlock()

	if len(names) == 0 {
		return nil, ErrNoneAvailable
	}

	var lastErr error
	for _, name := range names {
		dev, err := New(name, opts)
		if err == nil {
			return dev, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (r *registry) register(name string, priority int, factory Factory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*Entry)
	}
	if available == nil {
		available = func() bool { return true }
	}
	r.entries[name] = &Entry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// sortedNames returns driver names sorted by priority, highest first.
// Caller must hold at least a read lock.
func (r *registry) sortedNames(onlyAvailable bool) []string {
	if len(r.entries) == 0 {
		return nil
	}

	type cand struct {
		name     string
		priority int
	}
	cands := make([]cand, 0, len(r.entries))
	for name, e := range r.entries {
		if onlyAvailable && e.Available != nil && !e.Available() {
			continue
		}
		cands = append(cands, cand{name: name, priority: e.Priority})
	}

	sort.Slice(cands, func(i, j int) bool {
		return cands[i].priority > cands[j].priority
	})

	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = c.name
	}
	return names
}
