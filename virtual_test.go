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

// newTestVirtual wraps a windowed 800x600 chain with a virtual target of the
// given size.
func newTestVirtual(t *testing.T, width, height uint32) (*null.Device, *null.Surface, *Virtual) {
	t.Helper()
	dev, surf, c := newTestWindowed(t, 800, 600, 2, gputypes.TextureFormatUndefined)
	v, err := NewVirtual(c, dev, width, height)
	if err != nil {
		t.Fatalf("NewVirtual() = %v", err)
	}
	t.Cleanup(v.Destroy)
	return dev, surf, v
}

func TestNewVirtualValidation(t *testing.T) {
	dev, _, c := newTestWindowed(t, 800, 600, 2, gputypes.TextureFormatUndefined)

	if _, err := NewVirtual(nil, dev, 64, 64); !errors.Is(err, ErrNilArgument) {
		t.Errorf("NewVirtual(nil next) = %v, want ErrNilArgument", err)
	}
	if _, err := NewVirtual(c, nil, 64, 64); !errors.Is(err, ErrNilArgument) {
		t.Errorf("NewVirtual(nil device) = %v, want ErrNilArgument", err)
	}
	if _, err := NewVirtual(c, dev, 0, 64); !errors.Is(err, driver.ErrInvalidSize) {
		t.Errorf("NewVirtual(0 width) = %v, want ErrInvalidSize", err)
	}
	if _, err := NewVirtual(c, dev, 64, 0); !errors.Is(err, driver.ErrInvalidSize) {
		t.Errorf("NewVirtual(0 height) = %v, want ErrInvalidSize", err)
	}
}

func TestVirtualGeometry(t *testing.T) {
	_, surf, v := newTestVirtual(t, 1920, 1080)

	if v.Width() != 1920 || v.Height() != 1080 {
		t.Errorf("size = %dx%d, want 1920x1080", v.Width(), v.Height())
	}
	if got, want := v.RenderArea(), RenderArea(1920, 1080); got != want {
		t.Errorf("RenderArea() = %+v, want %+v", got, want)
	}
	if got, want := v.AspectRatio(), float32(1920)/float32(1080); got != want {
		t.Errorf("AspectRatio() = %v, want %v", got, want)
	}

	// Rendering targets the virtual image, not the surface image.
	img, err := v.ColorImage(0)
	if err != nil {
		t.Fatalf("ColorImage(0) = %v", err)
	}
	if img.Width() != 1920 {
		t.Errorf("ColorImage(0).Width() = %d, want 1920", img.Width())
	}
	if img == surf.Images()[0] {
		t.Error("ColorImage(0) is the surface image, want virtual image")
	}
	pass, err := v.RenderPass(0, gputypes.LoadOpClear)
	if err != nil {
		t.Fatalf("RenderPass() = %v", err)
	}
	if pass.ColorImage() != img {
		t.Error("RenderPass(0) is not bound to the virtual image")
	}

	// UI still draws on the presentable image at native resolution.
	ui, err := v.UIRenderPass(0)
	if err != nil {
		t.Fatalf("UIRenderPass() = %v", err)
	}
	if ui.ColorImage() != surf.Images()[0] {
		t.Error("UIRenderPass(0) is not bound to the surface image")
	}
	if got := ui.RenderArea(); got.Width != 800 || got.Height != 600 {
		t.Errorf("UIRenderPass area = %dx%d, want 800x600", got.Width, got.Height)
	}
}

func TestVirtualDepthFollowsWrapped(t *testing.T) {
	dev, _, c := newTestWindowed(t, 800, 600, 2, gputypes.TextureFormatDepth24PlusStencil8)
	v, err := NewVirtual(c, dev, 640, 360)
	if err != nil {
		t.Fatalf("NewVirtual() = %v", err)
	}
	defer v.Destroy()

	depth, err := v.DepthImage(0)
	if err != nil {
		t.Fatalf("DepthImage(0) = %v", err)
	}
	if depth.Width() != 640 || depth.Height() != 360 {
		t.Errorf("depth size = %dx%d, want 640x360", depth.Width(), depth.Height())
	}
	if got := depth.Format(); got != gputypes.TextureFormatDepth24PlusStencil8 {
		t.Errorf("depth format = %v, want wrapped depth format", got)
	}
}

func TestVirtualPresentComposites(t *testing.T) {
	dev, surf, v := newTestVirtual(t, 1920, 1080)
	q := nullQueue(t, dev)

	idx, err := v.AcquireNextImage(NoTimeout, nil, nil)
	if err != nil {
		t.Fatalf("AcquireNextImage() = %v", err)
	}
	sem, _ := dev.CreateSemaphore()
	if err := v.Present(idx, []driver.Semaphore{sem}); err != nil {
		t.Fatalf("Present() = %v", err)
	}

	sub, ok := q.LastSubmission()
	if !ok {
		t.Fatal("no composite submission recorded")
	}
	if len(sub.Waits) != 1 || sub.Waits[0] != sem {
		t.Errorf("composite waits = %v, want caller semaphore", sub.Waits)
	}
	if len(sub.Signals) != 1 {
		t.Fatalf("composite signals %d semaphores, want 1", len(sub.Signals))
	}
	if waits := surf.LastPresentWaits(); len(waits) != 1 || waits[0] != sub.Signals[0] {
		t.Error("present does not wait on the composite submission")
	}

	src, _ := v.ColorImage(idx)
	dst := surf.Images()[idx]
	var clear, copied bool
	ops := sub.Ops[0]
	for _, op := range ops {
		switch o := op.(type) {
		case null.OpBeginRenderPass:
			clear = o.Info.Pass.LoadOp() == gputypes.LoadOpClear &&
				o.Info.Pass.ColorImage() == dst &&
				o.Info.ClearColor == CompositeSurround
		case null.OpCopy:
			copied = o.Src == src && o.Dst == dst
			// 1920x1080 centered onto 800x600 crops the source.
			if o.Copy.SrcOffset.X != 560 || o.Copy.SrcOffset.Y != 240 {
				t.Errorf("SrcOffset = %+v, want 560,240", o.Copy.SrcOffset)
			}
			if o.Copy.DstOffset.X != 0 || o.Copy.DstOffset.Y != 0 {
				t.Errorf("DstOffset = %+v, want 0,0", o.Copy.DstOffset)
			}
			if o.Copy.Extent.Width != 800 || o.Copy.Extent.Height != 600 {
				t.Errorf("Extent = %+v, want 800x600", o.Copy.Extent)
			}
		}
	}
	if !clear {
		t.Error("composite did not clear the surface image with the surround color")
	}
	if !copied {
		t.Error("composite did not copy the virtual image onto the surface image")
	}
	if tr, ok := ops[len(ops)-1].(null.OpTransition); !ok || tr.To != driver.ImageLayoutPresent {
		t.Error("composite did not leave the surface image in the present layout")
	}
}

func TestVirtualAbsorbsAcquireError(t *testing.T) {
	dev, surf, v := newTestVirtual(t, 1280, 720)
	q := nullQueue(t, dev)

	surf.NextAcquireErr = driver.ErrSurfaceOutOfDate
	sem, _ := dev.CreateSemaphore()
	fence := &null.Fence{}

	idx, err := v.AcquireNextImage(NoTimeout, sem, fence)
	if err != nil {
		t.Fatalf("AcquireNextImage() = %v, want absorbed nil", err)
	}
	if idx != 0 {
		t.Errorf("AcquireNextImage() = %d, want 0", idx)
	}

	// The caller's sync objects are signaled through an empty submission so
	// the frame loop does not deadlock.
	ns, ok := sem.(*null.Semaphore)
	if !ok || !ns.Signaled() {
		t.Error("caller semaphore not signaled after absorbed acquire")
	}
	if !fence.Signaled() {
		t.Error("caller fence not signaled after absorbed acquire")
	}
	sub, ok := q.LastSubmission()
	if !ok {
		t.Fatal("no signaling submission recorded")
	}
	if len(sub.Ops) != 0 {
		t.Errorf("absorbing submission carries %d command buffers, want 0", len(sub.Ops))
	}

	// The next frame proceeds normally.
	if _, err := v.AcquireNextImage(NoTimeout, nil, nil); err != nil {
		t.Errorf("AcquireNextImage() after absorbed error = %v", err)
	}
}

func TestVirtualAbsorbsPresentError(t *testing.T) {
	dev, surf, v := newTestVirtual(t, 1280, 720)

	idx, err := v.AcquireNextImage(NoTimeout, nil, nil)
	if err != nil {
		t.Fatalf("AcquireNextImage() = %v", err)
	}
	surf.NextPresentErr = driver.ErrSurfaceSuboptimal
	if err := v.Present(idx, nil); err != nil {
		t.Errorf("Present() = %v, want absorbed nil", err)
	}
	if got := nullQueue(t, dev).SubmitCount(); got == 0 {
		t.Error("composite submission skipped on absorbed present")
	}
}

func TestVirtualPassesThroughNonTransient(t *testing.T) {
	_, surf, v := newTestVirtual(t, 1280, 720)

	surf.NextAcquireErr = errors.New("device lost")
	_, err := v.AcquireNextImage(NoTimeout, nil, nil)
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("AcquireNextImage() = %v, want wrapped ErrBackend", err)
	}
	if IsTransient(err) {
		t.Errorf("AcquireNextImage() = %v, unexpectedly transient", err)
	}
}

func TestVirtualUpdateRenderArea(t *testing.T) {
	tests := []struct {
		name    string
		area    driver.Rect
		wantErr bool
	}{
		{"full", driver.Rect{Width: 1280, Height: 720}, false},
		{"inset", driver.Rect{X: 100, Y: 50, Width: 800, Height: 600}, false},
		{"zero extent", driver.Rect{Width: 0, Height: 720}, true},
		{"negative origin", driver.Rect{X: -1, Y: 0, Width: 64, Height: 64}, true},
		{"exceeds width", driver.Rect{X: 1000, Y: 0, Width: 600, Height: 64}, true},
		{"exceeds height", driver.Rect{X: 0, Y: 700, Width: 64, Height: 64}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, v := newTestVirtual(t, 1280, 720)
			err := v.UpdateRenderArea(tt.area)
			if tt.wantErr {
				if !errors.Is(err, ErrOutOfRange) {
					t.Fatalf("UpdateRenderArea(%+v) = %v, want ErrOutOfRange", tt.area, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateRenderArea(%+v) = %v", tt.area, err)
			}
			if got := v.RenderArea(); got != tt.area {
				t.Errorf("RenderArea() = %+v, want %+v", got, tt.area)
			}
			vp := v.Viewport(0, 1)
			if vp.X != float32(tt.area.X) || vp.Width != float32(tt.area.Width) {
				t.Errorf("Viewport() = %+v, want area %+v", vp, tt.area)
			}
			if got, want := v.AspectRatio(), AspectRatio(tt.area.Width, tt.area.Height); got != want {
				t.Errorf("AspectRatio() = %v, want %v", got, want)
			}
		})
	}
}

func TestVirtualSetIndirectRenderSize(t *testing.T) {
	dev, _, v := newTestVirtual(t, 1280, 720)

	if err := v.SetIndirectRenderSize(0, 0); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("SetIndirectRenderSize(0, 0) = %v, want ErrUnsupported", err)
	}

	before, _ := v.ColorImage(0)
	if err := v.SetIndirectRenderSize(1280, 720); err != nil {
		t.Fatalf("SetIndirectRenderSize(same) = %v", err)
	}
	after, _ := v.ColorImage(0)
	if before != after {
		t.Error("same-size SetIndirectRenderSize recreated the target")
	}

	if err := v.UpdateRenderArea(driver.Rect{Width: 640, Height: 360}); err != nil {
		t.Fatalf("UpdateRenderArea() = %v", err)
	}
	if err := v.SetIndirectRenderSize(2560, 1440); err != nil {
		t.Fatalf("SetIndirectRenderSize(2560, 1440) = %v", err)
	}
	if v.Width() != 2560 || v.Height() != 1440 {
		t.Errorf("size = %dx%d, want 2560x1440", v.Width(), v.Height())
	}
	after, _ = v.ColorImage(0)
	if after == before {
		t.Error("resize did not recreate the virtual target")
	}
	// The render area resets to cover the new target.
	if got, want := v.RenderArea(), RenderArea(2560, 1440); got != want {
		t.Errorf("RenderArea() = %+v, want %+v", got, want)
	}
	if got := nullQueue(t, dev).WaitIdleCount(); got == 0 {
		t.Error("resize did not drain the queue first")
	}
}

func TestVirtualDestroy(t *testing.T) {
	dev, _, c := newTestWindowed(t, 800, 600, 2, gputypes.TextureFormatUndefined)
	v, err := NewVirtual(c, dev, 1280, 720)
	if err != nil {
		t.Fatalf("NewVirtual() = %v", err)
	}

	v.Destroy()
	v.Destroy() // idempotent

	if got := dev.AliveImages(); got != 0 {
		t.Errorf("AliveImages() = %d after destroy, want 0", got)
	}
	if got := dev.AliveCommandBuffers(); got != 0 {
		t.Errorf("AliveCommandBuffers() = %d after destroy, want 0", got)
	}
	if _, err := v.ColorImage(0); !errors.Is(err, ErrDestroyed) {
		t.Errorf("ColorImage() after destroy = %v, want ErrDestroyed", err)
	}
	if err := v.Present(0, nil); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Present() after destroy = %v, want ErrDestroyed", err)
	}
}
