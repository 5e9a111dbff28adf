// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"fmt"
	"math"
	"time"

	"github.com/gogpu/swapchain/driver"
)

// presenter is the per-mode half of the frame loop. The chain owns all
// state (targets, slots, current index); a presenter only implements the
// acquire and present contract for its mode. Selecting the variant at
// construction keeps the state machine free of mode conditionals.
type presenter interface {
	kind() string
	headless() bool
	acquire(c *Chain, timeout time.Duration, signal driver.Semaphore, fence driver.Fence) (int, error)

	// present performs the backend presentation step. The chain has
	// already flushed any open recording; presentWaits carries either the
	// caller's semaphores or the slot's post-process semaphore.
	present(c *Chain, imageIndex int, presentWaits []driver.Semaphore) error
}

// timeoutNanos converts the public timeout convention to the driver's:
// negative blocks indefinitely.
func timeoutNanos(timeout time.Duration) uint64 {
	if timeout < 0 {
		return math.MaxUint64
	}
	return uint64(timeout)
}

// windowedPresenter presents through a real driver surface.
type windowedPresenter struct {
	surface driver.Surface
}

func (windowedPresenter) kind() string   { return "windowed" }
func (windowedPresenter) headless() bool { return false }

func (p windowedPresenter) acquire(c *Chain, timeout time.Duration, signal driver.Semaphore, fence driver.Fence) (int, error) {
	idx, err := p.surface.AcquireNextImage(timeoutNanos(timeout), signal, fence)
	if err != nil {
		return idx, normalizeBackend("acquire image", err)
	}
	c.current = idx
	return idx, nil
}

func (p windowedPresenter) present(c *Chain, imageIndex int, presentWaits []driver.Semaphore) error {
	if err := p.surface.Present(imageIndex, presentWaits); err != nil {
		return normalizeBackend("present image", err)
	}
	return nil
}

// headlessPresenter simulates presentation with command-buffer submissions
// only, so caller-visible synchronization still fires without a surface.
type headlessPresenter struct{}

func (headlessPresenter) kind() string   { return "headless" }
func (headlessPresenter) headless() bool { return true }

// acquire advances the current slot round-robin over the indirect target's
// image count. There is no real acquire to wait on, so an empty submission
// signals the caller's semaphore and fence.
func (headlessPresenter) acquire(c *Chain, _ time.Duration, signal driver.Semaphore, fence driver.Fence) (int, error) {
	c.current = (c.current + 1) % len(c.slots)
	if err := c.submitEmpty(c.current, nil, signal, fence); err != nil {
		return 0, err
	}
	return c.current, nil
}

// present submits an empty command buffer on the tracked current slot
// waiting on the caller's semaphores. There is no presentation target.
func (headlessPresenter) present(c *Chain, _ int, presentWaits []driver.Semaphore) error {
	return c.submitEmpty(c.current, presentWaits, nil, nil)
}

// xrPresenter presents through an XR runtime session. The runtime owns
// synchronization: acquire panics when handed a semaphore or fence, and
// the color/depth swapchains must stay in lock-step.
type xrPresenter struct {
	session driver.XRSession
}

func (xrPresenter) kind() string   { return "xr" }
func (xrPresenter) headless() bool { return false }

func (p xrPresenter) acquire(c *Chain, _ time.Duration, signal driver.Semaphore, fence driver.Fence) (int, error) {
	if signal != nil || fence != nil {
		panic("swapchain: XR acquire synchronizes through the runtime; semaphore and fence must be nil")
	}
	colorIdx, err := p.session.AcquireColorImage()
	if err != nil {
		return 0, normalizeBackend("acquire XR color image", err)
	}
	if len(p.session.DepthImages()) > 0 {
		depthIdx, err := p.session.AcquireDepthImage()
		if err != nil {
			return 0, normalizeBackend("acquire XR depth image", err)
		}
		if depthIdx != colorIdx {
			panic(fmt.Sprintf("swapchain: XR color/depth swapchains diverged: color %d, depth %d", colorIdx, depthIdx))
		}
	}
	c.current = colorIdx
	return colorIdx, nil
}

func (p xrPresenter) present(c *Chain, imageIndex int, presentWaits []driver.Semaphore) error {
	// The runtime picks up recorded work through the queue; presentWaits
	// already sequenced it. Releasing hands the images back for reuse.
	if err := p.session.ReleaseImages(); err != nil {
		return normalizeBackend("release XR images", err)
	}
	return nil
}
