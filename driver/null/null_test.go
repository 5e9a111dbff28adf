// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package null

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/driver"
)

func testImageDesc(label string, w, h uint32) driver.ImageDescriptor {
	return driver.ImageDescriptor{
		Label:         label,
		Width:         w,
		Height:        h,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         driver.DefaultImageUsage,
		InitialLayout: driver.ImageLayoutPresent,
	}
}

func TestCreateImageValidatesSize(t *testing.T) {
	dev := New()

	tests := []struct {
		name string
		w, h uint32
	}{
		{"zero width", 0, 100},
		{"zero height", 100, 0},
		{"both zero", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dev.CreateImage(testImageDesc("bad", tt.w, tt.h))
			if !errors.Is(err, driver.ErrInvalidSize) {
				t.Errorf("CreateImage() error = %v, want ErrInvalidSize", err)
			}
		})
	}
}

func TestImageBudget(t *testing.T) {
	dev := New()
	dev.MaxImages = 2

	for i := 0; i < 2; i++ {
		if _, err := dev.CreateImage(testImageDesc("ok", 8, 8)); err != nil {
			t.Fatalf("CreateImage(%d) error = %v", i, err)
		}
	}
	_, err := dev.CreateImage(testImageDesc("over", 8, 8))
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("CreateImage() error = %v, want ErrBudgetExhausted", err)
	}
	if got := dev.AliveImages(); got != 2 {
		t.Errorf("AliveImages() = %d, want 2", got)
	}
}

func TestDestroyImageIdempotent(t *testing.T) {
	dev := New()
	img, err := dev.CreateImage(testImageDesc("img", 8, 8))
	if err != nil {
		t.Fatalf("CreateImage() error = %v", err)
	}

	dev.DestroyImage(img)
	dev.DestroyImage(img)
	dev.DestroyImage(nil)

	if got := dev.AliveImages(); got != 0 {
		t.Errorf("AliveImages() = %d, want 0", got)
	}
	if log := dev.DestroyLog(); len(log) != 1 {
		t.Errorf("DestroyLog() = %v, want one entry", log)
	}
}

func TestCreateRenderPassRequiresColor(t *testing.T) {
	dev := New()
	_, err := dev.CreateRenderPass(driver.RenderPassDescriptor{Label: "no-color"})
	if !errors.Is(err, ErrNilResource) {
		t.Errorf("CreateRenderPass() error = %v, want ErrNilResource", err)
	}
}

func TestCommandBufferStateMachine(t *testing.T) {
	dev := New()
	cb, err := dev.CreateCommandBuffer()
	if err != nil {
		t.Fatalf("CreateCommandBuffer() error = %v", err)
	}

	if err := cb.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := cb.Begin(); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Begin() error = %v, want ErrAlreadyRecording", err)
	}
	if err := cb.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if err := cb.End(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("second End() error = %v, want ErrNotRecording", err)
	}

	// Reuse after End.
	if err := cb.Begin(); err != nil {
		t.Errorf("Begin() after End error = %v", err)
	}
}

func TestRecordOutsideScopePanics(t *testing.T) {
	dev := New()
	cb, _ := dev.CreateCommandBuffer()

	defer func() {
		if recover() == nil {
			t.Error("recording outside Begin/End did not panic")
		}
	}()
	cb.EndRenderPass()
}

func TestSubmitRejectsOpenRecording(t *testing.T) {
	dev := New()
	cb, _ := dev.CreateCommandBuffer()
	if err := cb.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	err := dev.GraphicsQueue().Submit([]driver.CommandBuffer{cb}, nil, nil, nil)
	if !errors.Is(err, ErrNotFinished) {
		t.Errorf("Submit() error = %v, want ErrNotFinished", err)
	}
}

func TestSubmitSignalsAndExecutes(t *testing.T) {
	dev := New()
	queue := dev.GraphicsQueue().(*Queue)

	img, _ := dev.CreateImage(testImageDesc("target", 16, 16))
	pass, err := dev.CreateRenderPass(driver.RenderPassDescriptor{
		Label:      "clear",
		ColorImage: img,
		LoadOp:     gputypes.LoadOpClear,
	})
	if err != nil {
		t.Fatalf("CreateRenderPass() error = %v", err)
	}

	cb, _ := dev.CreateCommandBuffer()
	if err := cb.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	cb.TransitionImageLayout(img, driver.ImageLayoutPresent, driver.ImageLayoutRenderTarget)
	cb.BeginRenderPass(driver.RenderPassBeginInfo{
		Pass:       pass,
		ClearColor: gputypes.Color{R: 0.5, G: 0.5, B: 0.5, A: 0},
	})
	cb.EndRenderPass()
	cb.TransitionImageLayout(img, driver.ImageLayoutRenderTarget, driver.ImageLayoutPresent)
	if err := cb.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	sem, _ := dev.CreateSemaphore()
	fence := &Fence{}
	if err := queue.Submit([]driver.CommandBuffer{cb}, nil, []driver.Semaphore{sem}, fence); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if !sem.(*Semaphore).Signaled() {
		t.Error("signal semaphore not signaled after Submit")
	}
	if !fence.Signaled() {
		t.Error("fence not signaled after Submit")
	}

	ni := img.(*Image)
	if got := ni.Fill(); got != (gputypes.Color{R: 0.5, G: 0.5, B: 0.5, A: 0}) {
		t.Errorf("Fill() = %v, want gray clear", got)
	}
	if got := ni.Layout(); got != driver.ImageLayoutPresent {
		t.Errorf("Layout() = %v, want Present", got)
	}
}

func TestCopyPropagatesFill(t *testing.T) {
	dev := New()
	queue := dev.GraphicsQueue().(*Queue)

	src, _ := dev.CreateImage(testImageDesc("src", 8, 8))
	dst, _ := dev.CreateImage(testImageDesc("dst", 16, 16))
	src.(*Image).fill = gputypes.Color{R: 1, G: 0, B: 0, A: 1}

	cb, _ := dev.CreateCommandBuffer()
	if err := cb.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	cb.CopyImageToImage(driver.ImageCopy{
		Extent: gputypes.Extent3D{Width: 8, Height: 8, DepthOrArrayLayers: 1},
	}, src, dst)
	if err := cb.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if err := queue.Submit([]driver.CommandBuffer{cb}, nil, nil, nil); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if got := dst.(*Image).Fill(); got != (gputypes.Color{R: 1, G: 0, B: 0, A: 1}) {
		t.Errorf("dst Fill() = %v, want copied red", got)
	}
}

func TestEmptySubmission(t *testing.T) {
	dev := New()
	queue := dev.GraphicsQueue().(*Queue)
	sem, _ := dev.CreateSemaphore()

	if err := queue.Submit(nil, nil, []driver.Semaphore{sem}, nil); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	sub, ok := queue.LastSubmission()
	if !ok {
		t.Fatal("LastSubmission() empty")
	}
	if len(sub.Ops) != 0 {
		t.Errorf("empty submission Ops = %d entries, want 0", len(sub.Ops))
	}
	if !sem.(*Semaphore).Signaled() {
		t.Error("empty submission did not signal semaphore")
	}
}

func TestSurfaceRoundRobinAndInjection(t *testing.T) {
	dev := New()
	surf, err := NewSurface(dev, 640, 480, gputypes.TextureFormatBGRA8Unorm, 3)
	if err != nil {
		t.Fatalf("NewSurface() error = %v", err)
	}

	for want := 0; want < 4; want++ {
		idx, err := surf.AcquireNextImage(0, nil, nil)
		if err != nil {
			t.Fatalf("AcquireNextImage() error = %v", err)
		}
		if idx != want%3 {
			t.Errorf("acquire %d = %d, want %d", want, idx, want%3)
		}
	}

	surf.NextAcquireErr = driver.ErrSurfaceOutOfDate
	if _, err := surf.AcquireNextImage(0, nil, nil); !errors.Is(err, driver.ErrSurfaceOutOfDate) {
		t.Errorf("injected acquire error = %v, want ErrSurfaceOutOfDate", err)
	}
	if _, err := surf.AcquireNextImage(0, nil, nil); err != nil {
		t.Errorf("error injection not one-shot: %v", err)
	}
}

func TestSurfaceRecreate(t *testing.T) {
	dev := New()
	surf, err := NewSurface(dev, 640, 480, gputypes.TextureFormatBGRA8Unorm, 2)
	if err != nil {
		t.Fatalf("NewSurface() error = %v", err)
	}

	if err := surf.Recreate(800, 600); err != nil {
		t.Fatalf("Recreate() error = %v", err)
	}
	w, h := surf.Extent()
	if w != 800 || h != 600 {
		t.Errorf("Extent() = %dx%d, want 800x600", w, h)
	}
	if got := surf.ImageCount(); got != 2 {
		t.Errorf("ImageCount() = %d, want 2", got)
	}
	if got := surf.Images()[0].Width(); got != 800 {
		t.Errorf("image width after recreate = %d, want 800", got)
	}
}

func TestSessionLockStep(t *testing.T) {
	dev := New()
	sess, err := NewSession(dev, 1024, 1024,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatDepth24PlusStencil8, 3)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		ci, err := sess.AcquireColorImage()
		if err != nil {
			t.Fatalf("AcquireColorImage() error = %v", err)
		}
		di, err := sess.AcquireDepthImage()
		if err != nil {
			t.Fatalf("AcquireDepthImage() error = %v", err)
		}
		if ci != di {
			t.Errorf("acquire %d: color %d, depth %d, want lock-step", i, ci, di)
		}
	}

	sess.ForceDivergence = true
	ci, _ := sess.AcquireColorImage()
	di, _ := sess.AcquireDepthImage()
	if ci == di {
		t.Error("ForceDivergence produced matching indices")
	}
}

func TestRegisteredAsNull(t *testing.T) {
	if _, ok := driver.Lookup("null"); !ok {
		t.Fatal(`driver "null" not registered`)
	}
	dev, err := driver.New("null", driver.Options{Label: "test"})
	if err != nil {
		t.Fatalf("driver.New() error = %v", err)
	}
	if _, ok := dev.(*Device); !ok {
		t.Errorf("driver.New() = %T, want *null.Device", dev)
	}
}
