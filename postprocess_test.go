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

func TestNewPostProcessValidation(t *testing.T) {
	dev, _, c := newTestWindowed(t, 800, 600, 2, gputypes.TextureFormatUndefined)
	fn := func(cmd driver.CommandBuffer) {}

	if _, err := NewPostProcess(nil, dev, fn); !errors.Is(err, ErrNilArgument) {
		t.Errorf("NewPostProcess(nil next) = %v, want ErrNilArgument", err)
	}
	if _, err := NewPostProcess(c, nil, fn); !errors.Is(err, ErrNilArgument) {
		t.Errorf("NewPostProcess(nil device) = %v, want ErrNilArgument", err)
	}
	if _, err := NewPostProcess(c, dev, nil); !errors.Is(err, ErrNilArgument) {
		t.Errorf("NewPostProcess(nil fn) = %v, want ErrNilArgument", err)
	}
}

func TestNewPostProcessRejectsHeadless(t *testing.T) {
	dev, c := newTestHeadless(t, 64, 64)
	_, err := NewPostProcess(c, dev, func(cmd driver.CommandBuffer) {})
	if !errors.Is(err, ErrCreationFailed) {
		t.Errorf("NewPostProcess(headless) = %v, want ErrCreationFailed", err)
	}
}

func TestPostProcessPresent(t *testing.T) {
	dev, surf, c := newTestWindowed(t, 800, 600, 2, gputypes.TextureFormatUndefined)

	var called int
	pp, err := NewPostProcess(c, dev, func(cmd driver.CommandBuffer) {
		called++
		cmd.SetScissors([]driver.Rect{{Width: 32, Height: 32}})
	})
	if err != nil {
		t.Fatalf("NewPostProcess() = %v", err)
	}
	defer pp.Destroy()

	idx, err := pp.AcquireNextImage(NoTimeout, nil, nil)
	if err != nil {
		t.Fatalf("AcquireNextImage() = %v", err)
	}
	sem, _ := dev.CreateSemaphore()
	if err := pp.Present(idx, []driver.Semaphore{sem}); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	if called != 1 {
		t.Fatalf("overlay callback ran %d times, want 1", called)
	}

	sub, ok := nullQueue(t, dev).LastSubmission()
	if !ok {
		t.Fatal("no overlay submission recorded")
	}
	if len(sub.Waits) != 1 || sub.Waits[0] != sem {
		t.Errorf("overlay waits = %v, want caller semaphore", sub.Waits)
	}
	if len(sub.Signals) != 1 {
		t.Fatalf("overlay signals %d semaphores, want 1", len(sub.Signals))
	}

	// The present is sequenced after the overlay, not the caller.
	waits := surf.LastPresentWaits()
	if len(waits) != 1 || waits[0] != sub.Signals[0] {
		t.Error("present does not wait on the overlay submission")
	}

	// The overlay draws over the native-resolution presentable image and
	// leaves it in the present layout.
	ops := sub.Ops[0]
	var sawLoadPass bool
	for _, op := range ops {
		if o, ok := op.(null.OpBeginRenderPass); ok {
			sawLoadPass = o.Info.Pass.LoadOp() == gputypes.LoadOpLoad &&
				o.Info.Pass.ColorImage() == surf.Images()[idx]
		}
	}
	if !sawLoadPass {
		t.Error("overlay did not draw through the native load pass")
	}
	if tr, ok := ops[len(ops)-1].(null.OpTransition); !ok || tr.To != driver.ImageLayoutPresent {
		t.Error("overlay did not return the image to the present layout")
	}
}

func TestPostProcessPresentOutOfRange(t *testing.T) {
	dev, _, c := newTestWindowed(t, 800, 600, 2, gputypes.TextureFormatUndefined)
	pp, err := NewPostProcess(c, dev, func(cmd driver.CommandBuffer) {})
	if err != nil {
		t.Fatalf("NewPostProcess() = %v", err)
	}
	defer pp.Destroy()

	if err := pp.Present(-1, nil); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Present(-1) = %v, want ErrOutOfRange", err)
	}
	if err := pp.Present(2, nil); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Present(2) = %v, want ErrOutOfRange", err)
	}
}

func TestPostProcessDestroy(t *testing.T) {
	dev, _, c := newTestWindowed(t, 800, 600, 2, gputypes.TextureFormatUndefined)
	pp, err := NewPostProcess(c, dev, func(cmd driver.CommandBuffer) {})
	if err != nil {
		t.Fatalf("NewPostProcess() = %v", err)
	}

	pp.Destroy()
	pp.Destroy() // idempotent

	if got := dev.AliveCommandBuffers(); got != 0 {
		t.Errorf("AliveCommandBuffers() = %d after destroy, want 0", got)
	}
	if got := dev.AliveSemaphores(); got != 0 {
		t.Errorf("AliveSemaphores() = %d after destroy, want 0", got)
	}
	if err := pp.Present(0, nil); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Present() after destroy = %v, want ErrDestroyed", err)
	}
}
