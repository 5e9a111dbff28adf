// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/driver"
)

// passKey identifies one cached render pass.
type passKey struct {
	index int
	op    gputypes.LoadOp
	ui    bool
}

// PassStats reports render-pass cache effectiveness.
type PassStats struct {
	Len     int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// PassCache wraps a swapchain and memoizes RenderPass and UIRenderPass
// lookups per slot index and load op. The cache invalidates itself when
// the wrapped swapchain announces an image-set change (Updatable), and
// after every SetIndirectRenderSize that goes through it.
//
// Unlike the core chain, PassCache is safe for concurrent lookups: render
// passes are shared read-mostly state.
type PassCache struct {
	Wrap

	mu      sync.RWMutex
	entries map[passKey]driver.RenderPass

	// Statistics (atomic for zero-allocation reads)
	hits   atomic.Uint64
	misses atomic.Uint64
}

var _ Swapchain = (*PassCache)(nil)

// NewPassCache wraps next with render-pass memoization. When next (or
// anything it wraps) is Updatable, the cache registers its invalidation
// hook so resizes and replacements rebuild it automatically.
func NewPassCache(next Swapchain) *PassCache {
	pc := &PassCache{
		Wrap:    Wrap{next},
		entries: make(map[passKey]driver.RenderPass),
	}
	if u, ok := AsUpdatable(next); ok {
		u.OnUpdate(pc.Invalidate)
	}
	return pc
}

// RenderPass returns the cached render pass for a slot and load op,
// fetching it from the wrapped swapchain on first use.
func (pc *PassCache) RenderPass(index int, op gputypes.LoadOp) (driver.RenderPass, error) {
	return pc.lookup(passKey{index: index, op: op}, func() (driver.RenderPass, error) {
		return pc.Swapchain.RenderPass(index, op)
	})
}

// UIRenderPass returns the cached native-resolution load pass for a slot.
func (pc *PassCache) UIRenderPass(index int) (driver.RenderPass, error) {
	return pc.lookup(passKey{index: index, op: gputypes.LoadOpLoad, ui: true}, func() (driver.RenderPass, error) {
		return pc.Swapchain.UIRenderPass(index)
	})
}

// lookup is double-checked: read lock on the fast path, write lock with a
// re-check before filling. Errors are never cached.
func (pc *PassCache) lookup(key passKey, fetch func() (driver.RenderPass, error)) (driver.RenderPass, error) {
	pc.mu.RLock()
	rp, ok := pc.entries[key]
	pc.mu.RUnlock()
	if ok {
		pc.hits.Add(1)
		return rp, nil
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()
	if rp, ok := pc.entries[key]; ok {
		pc.hits.Add(1)
		return rp, nil
	}
	pc.misses.Add(1)
	rp, err := fetch()
	if err != nil {
		return nil, err
	}
	pc.entries[key] = rp
	return rp, nil
}

// SetIndirectRenderSize forwards the resize and, when it succeeds, drops
// every cached pass: the wrapped swapchain rebuilt them.
func (pc *PassCache) SetIndirectRenderSize(width, height uint32) error {
	if err := pc.Swapchain.SetIndirectRenderSize(width, height); err != nil {
		return err
	}
	pc.Invalidate()
	return nil
}

// Invalidate drops every cached render pass. It runs automatically after
// image-set changes; call it directly only when mutating the wrapped
// swapchain behind the cache's back.
func (pc *PassCache) Invalidate() {
	pc.mu.Lock()
	pc.entries = make(map[passKey]driver.RenderPass)
	pc.mu.Unlock()
	Logger().Debug("render-pass cache invalidated")
}

// Stats returns current cache statistics.
func (pc *PassCache) Stats() PassStats {
	hits := pc.hits.Load()
	misses := pc.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	pc.mu.RLock()
	n := len(pc.entries)
	pc.mu.RUnlock()

	return PassStats{
		Len:     n,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}

// ResetStats resets the hit and miss counters to zero.
func (pc *PassCache) ResetStats() {
	pc.hits.Store(0)
	pc.misses.Store(0)
}
