// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"errors"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestPassCacheHitMiss(t *testing.T) {
	_, c := newTestHeadless(t, 64, 64)
	pc := NewPassCache(c)

	first, err := pc.RenderPass(0, gputypes.LoadOpClear)
	if err != nil {
		t.Fatalf("RenderPass() = %v", err)
	}
	second, err := pc.RenderPass(0, gputypes.LoadOpClear)
	if err != nil {
		t.Fatalf("RenderPass() = %v", err)
	}
	if first != second {
		t.Error("cached lookup returned a different pass")
	}

	direct, _ := c.RenderPass(0, gputypes.LoadOpClear)
	if first != direct {
		t.Error("cached pass differs from the wrapped swapchain's")
	}

	stats := pc.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses, want 1 and 1", stats.Hits, stats.Misses)
	}
	if stats.Len != 1 {
		t.Errorf("Stats().Len = %d, want 1", stats.Len)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("Stats().HitRate = %v, want 0.5", stats.HitRate)
	}
}

func TestPassCacheDistinctKeys(t *testing.T) {
	_, _, c := newTestWindowed(t, 800, 600, 2, gputypes.TextureFormatUndefined)
	pc := NewPassCache(c)

	clear0, _ := pc.RenderPass(0, gputypes.LoadOpClear)
	load0, _ := pc.RenderPass(0, gputypes.LoadOpLoad)
	clear1, _ := pc.RenderPass(1, gputypes.LoadOpClear)
	ui0, err := pc.UIRenderPass(0)
	if err != nil {
		t.Fatalf("UIRenderPass() = %v", err)
	}

	if clear0 == load0 || clear0 == clear1 {
		t.Error("distinct keys returned the same pass")
	}
	// Without indirection UIRenderPass and the load pass are the same
	// object, but they must occupy separate cache entries.
	if ui0 != load0 {
		t.Error("UIRenderPass(0) differs from RenderPass(0, load) without indirection")
	}
	if got := pc.Stats().Len; got != 4 {
		t.Errorf("Stats().Len = %d, want 4", got)
	}
}

func TestPassCacheDoesNotCacheErrors(t *testing.T) {
	_, c := newTestHeadless(t, 64, 64)
	pc := NewPassCache(c)

	if _, err := pc.RenderPass(99, gputypes.LoadOpClear); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("RenderPass(99) = %v, want ErrOutOfRange", err)
	}
	stats := pc.Stats()
	if stats.Len != 0 {
		t.Errorf("Stats().Len = %d after failed lookup, want 0", stats.Len)
	}
	if stats.Misses != 1 {
		t.Errorf("Stats().Misses = %d, want 1", stats.Misses)
	}
}

func TestPassCacheInvalidate(t *testing.T) {
	_, c := newTestHeadless(t, 64, 64)
	pc := NewPassCache(c)

	if _, err := pc.RenderPass(0, gputypes.LoadOpClear); err != nil {
		t.Fatalf("RenderPass() = %v", err)
	}
	pc.Invalidate()

	if got := pc.Stats().Len; got != 0 {
		t.Errorf("Stats().Len = %d after Invalidate, want 0", got)
	}
	// Counters survive invalidation; only ResetStats clears them.
	if got := pc.Stats().Misses; got != 1 {
		t.Errorf("Stats().Misses = %d after Invalidate, want 1", got)
	}

	pc.ResetStats()
	stats := pc.Stats()
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("Stats() = %d hits, %d misses after ResetStats, want 0 and 0", stats.Hits, stats.Misses)
	}
}

func TestPassCacheInvalidatesOnGuardUpdate(t *testing.T) {
	dev, _, c := newTestWindowed(t, 800, 600, 2, gputypes.TextureFormatUndefined)
	g, err := NewGuard(c, dev.GraphicsQueue(), GuardConfig{AbsorbOutOfDate: true})
	if err != nil {
		t.Fatalf("NewGuard() = %v", err)
	}
	pc := NewPassCache(g)

	old, err := pc.RenderPass(0, gputypes.LoadOpClear)
	if err != nil {
		t.Fatalf("RenderPass() = %v", err)
	}

	// Resize through the guard rebuilds the image set and must drop the
	// cached passes automatically.
	r, ok := AsResizable(pc)
	if !ok {
		t.Fatal("AsResizable(passCache) = false, want true via wrapped guard")
	}
	if err := r.Resize(1024, 768); err != nil {
		t.Fatalf("Resize() = %v", err)
	}
	if got := pc.Stats().Len; got != 0 {
		t.Errorf("Stats().Len = %d after resize, want 0", got)
	}

	fresh, err := pc.RenderPass(0, gputypes.LoadOpClear)
	if err != nil {
		t.Fatalf("RenderPass() after resize = %v", err)
	}
	if fresh == old {
		t.Error("cache returned the pre-resize pass after invalidation")
	}
}

func TestPassCacheSetIndirectRenderSize(t *testing.T) {
	_, _, c := newTestWindowed(t, 1024, 768, 2, gputypes.TextureFormatUndefined)
	pc := NewPassCache(c)

	direct, err := pc.RenderPass(0, gputypes.LoadOpClear)
	if err != nil {
		t.Fatalf("RenderPass() = %v", err)
	}

	if err := pc.SetIndirectRenderSize(800, 600); err != nil {
		t.Fatalf("SetIndirectRenderSize() = %v", err)
	}

	indirect, err := pc.RenderPass(0, gputypes.LoadOpClear)
	if err != nil {
		t.Fatalf("RenderPass() after indirect enable = %v", err)
	}
	if indirect == direct {
		t.Error("cache still serves the presentable pass after indirect enable")
	}
	if indirect.ColorImage().Width() != 800 {
		t.Errorf("indirect pass width = %d, want 800", indirect.ColorImage().Width())
	}
}

func TestPassCacheConcurrentLookups(t *testing.T) {
	_, c := newTestHeadless(t, 64, 64)
	pc := NewPassCache(c)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < DefaultImageCount; i++ {
				if _, err := pc.RenderPass(i, gputypes.LoadOpClear); err != nil {
					t.Errorf("RenderPass(%d) = %v", i, err)
				}
				if _, err := pc.RenderPass(i, gputypes.LoadOpLoad); err != nil {
					t.Errorf("RenderPass(%d) = %v", i, err)
				}
			}
		}()
	}
	wg.Wait()

	if got := pc.Stats().Len; got != 2*DefaultImageCount {
		t.Errorf("Stats().Len = %d, want %d", got, 2*DefaultImageCount)
	}
}

func TestPassCacheResize(t *testing.T) {
	// PassCache forwards the optional Resizable capability through Unwrap.
	_, c := newTestHeadless(t, 64, 64)
	pc := NewPassCache(c)

	r, ok := AsResizable(pc)
	if !ok {
		t.Fatal("AsResizable(passCache) = false, want true via wrapped chain")
	}
	if err := r.Resize(128, 128); err != nil {
		t.Fatalf("Resize() = %v", err)
	}
	if pc.Width() != 128 {
		t.Errorf("Width() = %d after resize, want 128", pc.Width())
	}
}
