// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/swapchain/driver"
)

// GuardConfig selects which transient presentation errors a Guard absorbs.
type GuardConfig struct {
	// AbsorbOutOfDate converts ErrSurfaceOutOfDate from acquire and
	// present into success plus the need-update flag, deferring the resize
	// decision to the render loop.
	AbsorbOutOfDate bool

	// SuboptimalIsOutOfDate treats ErrSurfaceSuboptimal exactly like
	// ErrSurfaceOutOfDate. Without it, suboptimal results pass through.
	SuboptimalIsOutOfDate bool
}

// Guard wraps a swapchain and absorbs transient presentation errors so the
// render loop is not interrupted by every frame-timing hiccup. An absorbed
// error sets an internal need-update flag instead; the loop polls
// NeedUpdate and triggers Resize or Replace when convenient. Until then
// frames keep presenting at the old size; the surface simply drops them.
type Guard struct {
	Wrap
	queue driver.Queue
	cfg   GuardConfig

	needUpdate bool
	hooks      []func()
}

var _ Swapchain = (*Guard)(nil)
var _ Resizable = (*Guard)(nil)
var _ Updatable = (*Guard)(nil)

// NewGuard wraps next with transient-error absorption per cfg. The queue
// is used to signal caller synchronization when an absorbed acquire never
// reached the backend.
func NewGuard(next Swapchain, queue driver.Queue, cfg GuardConfig) (*Guard, error) {
	if next == nil {
		return nil, fmt.Errorf("swapchain: new guard: next: %w", ErrNilArgument)
	}
	if queue == nil {
		return nil, fmt.Errorf("swapchain: new guard: queue: %w", ErrNilArgument)
	}
	return &Guard{Wrap: Wrap{next}, queue: queue, cfg: cfg}, nil
}

// absorbs reports whether err is configured away.
func (g *Guard) absorbs(err error) bool {
	switch {
	case errors.Is(err, ErrSurfaceOutOfDate):
		return g.cfg.AbsorbOutOfDate
	case errors.Is(err, ErrSurfaceSuboptimal):
		return g.cfg.SuboptimalIsOutOfDate && g.cfg.AbsorbOutOfDate
	default:
		return false
	}
}

// AcquireNextImage forwards to the wrapped swapchain. An absorbed transient
// error yields slot 0 and an empty submission signaling the caller's
// semaphore and fence, so caller-visible synchronization still fires even
// though no image was acquired.
func (g *Guard) AcquireNextImage(timeout time.Duration, signal driver.Semaphore, fence driver.Fence) (int, error) {
	idx, err := g.Swapchain.AcquireNextImage(timeout, signal, fence)
	if err == nil || !g.absorbs(err) {
		return idx, err
	}
	g.needUpdate = true
	Logger().Warn("absorbed transient acquire error", "error", err)
	if signal != nil || fence != nil {
		var signals []driver.Semaphore
		if signal != nil {
			signals = []driver.Semaphore{signal}
		}
		if serr := g.queue.Submit(nil, nil, signals, fence); serr != nil {
			return 0, normalizeBackend("signal after absorbed acquire", serr)
		}
	}
	return 0, nil
}

// Present forwards to the wrapped swapchain, converting absorbed transient
// errors into success plus the need-update flag.
func (g *Guard) Present(imageIndex int, waits []driver.Semaphore) error {
	err := g.Swapchain.Present(imageIndex, waits)
	if err == nil || !g.absorbs(err) {
		return err
	}
	g.needUpdate = true
	Logger().Warn("absorbed transient present error", "error", err)
	return nil
}

// NeedUpdate reports whether a transient error was absorbed since the last
// Resize, Replace or SetNeedUpdate(false).
func (g *Guard) NeedUpdate() bool { return g.needUpdate }

// SetNeedUpdate overrides the need-update flag, for render loops that
// learn about resizes from the window system rather than from absorbed
// errors.
func (g *Guard) SetNeedUpdate(v bool) { g.needUpdate = v }

// OnUpdate registers fn to run after every Resize or Replace. Wrappers
// caching objects derived from the image set register their invalidation
// here.
func (g *Guard) OnUpdate(fn func()) {
	if fn != nil {
		g.hooks = append(g.hooks, fn)
	}
}

func (g *Guard) fireUpdate() {
	for _, fn := range g.hooks {
		fn()
	}
}

// Resize rebuilds the wrapped swapchain's presentable images at the new
// size, clears the need-update flag, and fires the update hooks. It fails
// with errors.ErrUnsupported when nothing in the wrapped stack can resize.
func (g *Guard) Resize(width, height uint32) error {
	r, ok := AsResizable(g.Swapchain)
	if !ok {
		return fmt.Errorf("swapchain: guard resize: %w", errors.ErrUnsupported)
	}
	if err := r.Resize(width, height); err != nil {
		return err
	}
	g.needUpdate = false
	g.fireUpdate()
	Logger().Info("guard resized swapchain", "width", width, "height", height)
	return nil
}

// Replace swaps the wrapped swapchain for next, destroys the old one,
// clears the need-update flag, and fires the update hooks. Use it when a
// resize is not enough, for example after the surface itself was
// recreated.
func (g *Guard) Replace(next Swapchain) error {
	if next == nil {
		return fmt.Errorf("swapchain: guard replace: next: %w", ErrNilArgument)
	}
	old := g.Swapchain
	g.Swapchain = next
	g.needUpdate = false
	old.Destroy()
	g.fireUpdate()
	Logger().Info("guard replaced swapchain")
	return nil
}
