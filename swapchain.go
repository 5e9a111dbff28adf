// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/driver"
)

// NoTimeout makes AcquireNextImage block until an image is available.
const NoTimeout time.Duration = -1

// RecordFunc records commands into an open render pass. The command buffer
// is mid-recording with viewport and scissor already set to the full render
// area; implementations must not call Begin, End, BeginRenderPass or
// EndRenderPass on it.
type RecordFunc func(cmd driver.CommandBuffer)

// ImageProvider exposes the per-slot images of a swapchain and the geometry
// they share.
type ImageProvider interface {
	// ImageCount returns the number of swap slots.
	ImageCount() int

	// ColorFormat returns the format of the color images.
	ColorFormat() gputypes.TextureFormat

	// DepthFormat returns the format of the depth images, or
	// gputypes.TextureFormatUndefined when the swapchain has no depth.
	DepthFormat() gputypes.TextureFormat

	// Width returns the render width in pixels: the indirect target's when
	// indirect rendering is active, the presentable images' otherwise.
	Width() uint32

	// Height returns the render height in pixels.
	Height() uint32

	// ColorImage returns the color image for a slot index. It returns
	// ErrOutOfRange when index is at or beyond the live image count and
	// ErrDestroyed after Destroy.
	ColorImage(index int) (driver.Image, error)

	// DepthImage returns the depth image for a slot index, subject to the
	// same errors as ColorImage. Swapchains without a depth format return
	// ErrOutOfRange for every index.
	DepthImage(index int) (driver.Image, error)
}

// RenderPassProvider exposes the cached per-slot render passes.
type RenderPassProvider interface {
	// RenderPass returns the render pass for a slot index with the given
	// color load op: gputypes.LoadOpClear wipes the attachments at pass
	// begin, gputypes.LoadOpLoad preserves them. The clear and load passes
	// for one index are distinct objects sharing the same attachments.
	RenderPass(index int, op gputypes.LoadOp) (driver.RenderPass, error)

	// UIRenderPass returns the load-op render pass bound to the presentable
	// image for a slot index. Unlike RenderPass it never redirects to an
	// indirect target: UI always draws at native surface resolution.
	UIRenderPass(index int) (driver.RenderPass, error)
}

// Presenter drives the acquire/present frame loop.
type Presenter interface {
	// AcquireNextImage blocks until the next presentable image is
	// available, at most timeout (NoTimeout blocks indefinitely; 0 polls),
	// and returns its slot index. On success the signal semaphore and
	// fence, when non-nil, are signaled once the image is ready for
	// rendering. Transient conditions surface as ErrSurfaceOutOfDate or
	// ErrSurfaceSuboptimal.
	//
	// XR swapchains synchronize through the runtime: passing a semaphore
	// or fence on that path is a contract violation and panics.
	AcquireNextImage(timeout time.Duration, signal driver.Semaphore, fence driver.Fence) (int, error)

	// Present queues the slot's image for presentation after the wait
	// semaphores signal. Any compositing or overlay work recorded for the
	// slot is flushed first and sequenced before the presentation engine
	// sees the image.
	Present(imageIndex int, waits []driver.Semaphore) error

	// CurrentImageIndex returns the most recently acquired slot index.
	CurrentImageIndex() int
}

// Swapchain is the uniform presentation surface the render loop drives,
// regardless of whether frames go to a window, an XR runtime, or nowhere
// at all. Implementations are not safe for concurrent use: command
// submission is single-threaded per instance.
type Swapchain interface {
	ImageProvider
	RenderPassProvider
	Presenter

	// IsHeadless reports whether the swapchain was built without a surface
	// or XR session. Headless presentation is simulated through command
	// buffer submission only.
	IsHeadless() bool

	// SetIndirectRenderSize switches the resolution the application renders
	// at. Non-zero dimensions allocate an offscreen target that Present
	// composites onto the presentable image; 0,0 disables indirection.
	// Calling it with the live indirect dimensions is a no-op. Headless
	// swapchains keep an indirect target at the configured resolution, so
	// 0,0 restores that size there. The resize waits for the queue to
	// drain before touching images.
	SetIndirectRenderSize(width, height uint32) error

	// RecordUI records an overlay callback against the presentable image
	// for a slot at native surface resolution, preserving existing
	// contents. The recording stays open and is flushed by Present.
	// RecordUI panics on a headless swapchain.
	RecordUI(imageIndex int, fn RecordFunc) error

	// RenderArea returns the rectangle rendering should cover.
	RenderArea() driver.Rect

	// Viewport returns a full-area viewport with the given depth range.
	Viewport(minDepth, maxDepth float32) driver.Viewport

	// AspectRatio returns the render width over height.
	AspectRatio() float32

	// WaitIdle blocks until all work submitted to the graphics queue has
	// completed.
	WaitIdle() error

	// Destroy releases every owned resource: indirect and presentable
	// targets, per-slot semaphores and command buffers. Destroy is
	// idempotent; all other operations fail with ErrDestroyed afterwards.
	Destroy()
}

// Resizable is implemented by swapchains that can rebuild their presentable
// images at a new size, typically after the window system reports a resize.
type Resizable interface {
	// Resize waits for the queue to drain, recreates the underlying
	// surface at the new size, and rebuilds the presentable target.
	Resize(width, height uint32) error
}

// Updatable is implemented by swapchains that can notify dependents after
// their image set changed (resize, surface replacement). Wrappers caching
// derived objects register an invalidation hook here.
type Updatable interface {
	// OnUpdate registers fn to run after every image-set change.
	OnUpdate(fn func())
}

// ColorImageAt returns the color image for a slot index, or nil when the
// index is out of range. Convenience form of [ImageProvider.ColorImage]
// for call sites that already validated the index.
func ColorImageAt(s ImageProvider, index int) driver.Image {
	img, err := s.ColorImage(index)
	if err != nil {
		return nil
	}
	return img
}

// DepthImageAt returns the depth image for a slot index, or nil when the
// index is out of range or the swapchain has no depth images.
func DepthImageAt(s ImageProvider, index int) driver.Image {
	img, err := s.DepthImage(index)
	if err != nil {
		return nil
	}
	return img
}

// RenderPassAt returns the render pass for a slot index and load op, or nil
// when the index is out of range.
func RenderPassAt(s RenderPassProvider, index int, op gputypes.LoadOp) driver.RenderPass {
	rp, err := s.RenderPass(index, op)
	if err != nil {
		return nil
	}
	return rp
}

// UIRenderPassAt returns the native-resolution load pass for a slot index,
// or nil when the index is out of range.
func UIRenderPassAt(s RenderPassProvider, index int) driver.RenderPass {
	rp, err := s.UIRenderPass(index)
	if err != nil {
		return nil
	}
	return rp
}
