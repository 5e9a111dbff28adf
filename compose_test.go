// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/driver"
	"github.com/gogpu/swapchain/driver/null"
)

func TestCreateDefault(t *testing.T) {
	dev := null.New()
	s, err := Create(dev, Config{Width: 640, Height: 480})
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	defer s.Destroy()

	if _, ok := s.(*Chain); !ok {
		t.Errorf("Create() without options = %T, want *Chain", s)
	}
}

func TestCreateStackOrder(t *testing.T) {
	dev := null.New()
	surf, err := null.NewSurface(dev, 800, 600, gputypes.TextureFormatBGRA8Unorm, 2)
	if err != nil {
		t.Fatalf("NewSurface() = %v", err)
	}
	s, err := Create(dev, Config{Surface: surf},
		WithVirtualResolution(1920, 1080),
		WithPostProcess(func(cmd driver.CommandBuffer) {}),
		WithRenderPassCache(),
		WithAbsorbTransient(),
	)
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	defer s.Destroy()

	// Outer to inner: virtual target, overlay, pass cache, guard, chain.
	v, ok := s.(*Virtual)
	if !ok {
		t.Fatalf("stack top = %T, want *Virtual", s)
	}
	pp, ok := v.Unwrap().(*PostProcess)
	if !ok {
		t.Fatalf("under Virtual = %T, want *PostProcess", v.Unwrap())
	}
	pc, ok := pp.Unwrap().(*PassCache)
	if !ok {
		t.Fatalf("under PostProcess = %T, want *PassCache", pp.Unwrap())
	}
	g, ok := pc.Unwrap().(*Guard)
	if !ok {
		t.Fatalf("under PassCache = %T, want *Guard", pc.Unwrap())
	}
	if _, ok := g.Unwrap().(*Chain); !ok {
		t.Fatalf("under Guard = %T, want *Chain", g.Unwrap())
	}

	// Rendering goes to the virtual target, UI to the presentable image.
	img, err := s.ColorImage(0)
	if err != nil {
		t.Fatalf("ColorImage(0) = %v", err)
	}
	if img.Width() != 1920 {
		t.Errorf("ColorImage(0).Width() = %d, want 1920", img.Width())
	}
	ui, err := s.UIRenderPass(0)
	if err != nil {
		t.Fatalf("UIRenderPass(0) = %v", err)
	}
	if ui.ColorImage() != surf.Images()[0] {
		t.Error("UIRenderPass(0) is not bound to the surface image")
	}
}

func TestCreateFrameThroughStack(t *testing.T) {
	dev := null.New()
	surf, err := null.NewSurface(dev, 800, 600, gputypes.TextureFormatBGRA8Unorm, 2)
	if err != nil {
		t.Fatalf("NewSurface() = %v", err)
	}
	var overlays int
	s, err := Create(dev, Config{Surface: surf},
		WithVirtualResolution(1280, 720),
		WithPostProcess(func(cmd driver.CommandBuffer) { overlays++ }),
		WithRenderPassCache(),
		WithAbsorbTransient(),
	)
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	defer s.Destroy()

	idx, err := s.AcquireNextImage(NoTimeout, nil, nil)
	if err != nil {
		t.Fatalf("AcquireNextImage() = %v", err)
	}
	sem, _ := dev.CreateSemaphore()
	if err := s.Present(idx, []driver.Semaphore{sem}); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	if overlays != 1 {
		t.Errorf("overlay callback ran %d times, want 1", overlays)
	}

	// One composite submission, then one overlay submission, each waiting
	// on the previous stage, with the present waiting on the overlay.
	subs := nullQueue(t, dev).Submissions()
	if len(subs) != 2 {
		t.Fatalf("SubmitCount = %d, want 2", len(subs))
	}
	composite, overlay := subs[0], subs[1]
	if len(composite.Waits) != 1 || composite.Waits[0] != sem {
		t.Error("composite does not wait on the caller's semaphore")
	}
	if len(overlay.Waits) != 1 || overlay.Waits[0] != composite.Signals[0] {
		t.Error("overlay does not wait on the composite")
	}
	if waits := surf.LastPresentWaits(); len(waits) != 1 || waits[0] != overlay.Signals[0] {
		t.Error("present does not wait on the overlay")
	}
}

func TestCreateAbsorbsTransient(t *testing.T) {
	dev := null.New()
	surf, err := null.NewSurface(dev, 800, 600, gputypes.TextureFormatBGRA8Unorm, 2)
	if err != nil {
		t.Fatalf("NewSurface() = %v", err)
	}
	s, err := Create(dev, Config{Surface: surf},
		WithVirtualResolution(1280, 720),
		WithAbsorbTransient(),
	)
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	defer s.Destroy()

	g, ok := s.(*Virtual).Unwrap().(*Guard)
	if !ok {
		t.Fatal("guard not found under the virtual wrapper")
	}

	surf.NextAcquireErr = driver.ErrSurfaceOutOfDate
	if _, err := s.AcquireNextImage(NoTimeout, nil, nil); err != nil {
		t.Fatalf("AcquireNextImage() = %v, want absorbed nil", err)
	}
	if !g.NeedUpdate() {
		t.Error("NeedUpdate() = false after absorbed transient")
	}

	// The guard rebuilds the surface-sized chain; the virtual target keeps
	// its fixed resolution.
	r, ok := AsResizable(s)
	if !ok {
		t.Fatal("AsResizable() = false, want guard")
	}
	if err := r.Resize(1024, 768); err != nil {
		t.Fatalf("Resize() = %v", err)
	}
	if g.NeedUpdate() {
		t.Error("NeedUpdate() = true after resize")
	}
	if got := s.Width(); got != 1280 {
		t.Errorf("Width() = %d after surface resize, want virtual 1280", got)
	}
	if got := surf.Recreates(); got != 1 {
		t.Errorf("surface Recreates() = %d, want 1", got)
	}
}

func TestCreateGuardPolicy(t *testing.T) {
	dev := null.New()
	surf, err := null.NewSurface(dev, 800, 600, gputypes.TextureFormatBGRA8Unorm, 2)
	if err != nil {
		t.Fatalf("NewSurface() = %v", err)
	}
	// Absorb out-of-date only: suboptimal still reaches the caller.
	s, err := Create(dev, Config{Surface: surf}, WithGuard(GuardConfig{AbsorbOutOfDate: true}))
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	defer s.Destroy()

	idx, err := s.AcquireNextImage(NoTimeout, nil, nil)
	if err != nil {
		t.Fatalf("AcquireNextImage() = %v", err)
	}
	surf.NextPresentErr = driver.ErrSurfaceSuboptimal
	if err := s.Present(idx, nil); !errors.Is(err, driver.ErrSurfaceSuboptimal) {
		t.Errorf("Present() = %v, want ErrSurfaceSuboptimal passthrough", err)
	}
}

func TestCreateCleansUpOnError(t *testing.T) {
	dev := null.New()

	// Post-processing needs a presentable image, so a headless config must
	// fail and release the chain it already built.
	_, err := Create(dev, Config{Width: 640, Height: 480},
		WithPostProcess(func(cmd driver.CommandBuffer) {}),
		WithRenderPassCache(),
	)
	if !errors.Is(err, ErrCreationFailed) {
		t.Fatalf("Create() = %v, want ErrCreationFailed", err)
	}
	if got := dev.AliveImages(); got != 0 {
		t.Errorf("AliveImages() = %d after failed Create, want 0", got)
	}
	if got := dev.AliveRenderPasses(); got != 0 {
		t.Errorf("AliveRenderPasses() = %d after failed Create, want 0", got)
	}
	if got := dev.AliveSemaphores(); got != 0 {
		t.Errorf("AliveSemaphores() = %d after failed Create, want 0", got)
	}
}

func TestCreateInvalidConfig(t *testing.T) {
	dev := null.New()
	if _, err := Create(dev, Config{}); !errors.Is(err, ErrCreationFailed) {
		t.Errorf("Create(empty config) = %v, want ErrCreationFailed", err)
	}
	if got := dev.AliveImages(); got != 0 {
		t.Errorf("AliveImages() = %d after failed Create, want 0", got)
	}
}
