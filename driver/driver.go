// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"image"

	"github.com/gogpu/gputypes"
)

// Device creates and destroys the GPU resources a swapchain owns. Every
// Create has a matching Destroy; destroying a resource twice or destroying
// nil is a no-op so teardown paths can run unconditionally.
//
// Implementations must be safe for concurrent resource creation, since the
// registry may hand one device to several swapchains.
type Device interface {
	// CreateImage allocates a fresh image per the descriptor.
	CreateImage(desc ImageDescriptor) (Image, error)

	// WrapImage adopts a backend-native image handle (for example an
	// image owned by a presentation surface) without allocating memory.
	// Destroying a wrapped image releases the wrapper only, never the
	// underlying native memory.
	WrapImage(native any, desc ImageDescriptor) (Image, error)

	// DestroyImage releases an image created or wrapped by this device.
	DestroyImage(img Image)

	// CreateRenderPass builds a render pass over the descriptor's
	// attachments.
	CreateRenderPass(desc RenderPassDescriptor) (RenderPass, error)

	// DestroyRenderPass releases a render pass.
	DestroyRenderPass(rp RenderPass)

	// CreateSemaphore creates a GPU-GPU synchronization primitive.
	CreateSemaphore() (Semaphore, error)

	// DestroySemaphore releases a semaphore.
	DestroySemaphore(sem Semaphore)

	// CreateCommandBuffer allocates a command buffer ready for Begin.
	CreateCommandBuffer() (CommandBuffer, error)

	// DestroyCommandBuffer releases a command buffer.
	DestroyCommandBuffer(cb CommandBuffer)

	// GraphicsQueue returns the queue swapchain submissions go to.
	GraphicsQueue() Queue
}

// Queue accepts command buffer submissions. Submission order is the only
// ordering guarantee; completion is observed through fences and semaphores.
type Queue interface {
	// Submit enqueues command buffers. The GPU waits for every semaphore
	// in waits before executing, signals every semaphore in signals when
	// done, and signals fence (if non-nil) when all work completes.
	// Empty submissions (no command buffers) are valid and useful purely
	// for their signal side effects.
	Submit(cmds []CommandBuffer, waits, signals []Semaphore, fence Fence) error

	// WaitIdle blocks until all submitted work on this queue completes.
	WaitIdle() error
}

// CommandBuffer records GPU work between Begin and End. Recording methods
// outside an open Begin/End scope are programmer errors; implementations
// panic rather than return an error, matching the submission-time validation
// of WebGPU-style APIs.
//
// A command buffer cycles Begin -> record -> End -> submit and may be reused
// for the next frame after the submission completes.
type CommandBuffer interface {
	// Begin opens a recording scope. Begin on an already-recording buffer
	// is an error.
	Begin() error

	// End closes the recording scope, making the buffer submittable.
	End() error

	// BeginRenderPass starts the render pass described by info.
	BeginRenderPass(info RenderPassBeginInfo)

	// EndRenderPass ends the open render pass.
	EndRenderPass()

	// TransitionImageLayout records a layout transition for img.
	TransitionImageLayout(img Image, from, to ImageLayout)

	// CopyImageToImage records a region copy from src to dst.
	CopyImageToImage(cp ImageCopy, src, dst Image)

	// SetViewports sets the active viewports.
	SetViewports(viewports []Viewport)

	// SetScissors sets the active scissor rectangles.
	SetScissors(scissors []Rect)
}

// Image is a device-owned or surface-owned 2D image.
type Image interface {
	// Width returns the image width in pixels.
	Width() uint32

	// Height returns the image height in pixels.
	Height() uint32

	// Format returns the pixel format.
	Format() gputypes.TextureFormat

	// Usage returns the usage flags the image was created with.
	Usage() gputypes.TextureUsage
}

// ImageReader is an optional Image capability: reading the image contents
// back to the CPU. Backends whose images live in host-visible or readback
// memory implement it; callers discover it with a type assertion.
type ImageReader interface {
	// ReadPixels blocks until pending writes to the image complete and
	// returns its contents as RGBA.
	ReadPixels() (*image.RGBA, error)
}

// RenderPass is a compiled render pass, bound to its attachments. Two passes
// over the same attachments that differ only in load op are distinct
// instances.
type RenderPass interface {
	// ColorImage returns the color attachment.
	ColorImage() Image

	// DepthImage returns the depth/stencil attachment, or nil.
	DepthImage() Image

	// LoadOp returns the color attachment load operation.
	LoadOp() gputypes.LoadOp

	// RenderArea returns the full-attachment render area.
	RenderArea() Rect
}

// Semaphore is an opaque GPU-GPU synchronization handle. Implementations are
// backend-specific; callers only pass semaphores between Submit, surface
// acquire, and present.
type Semaphore interface{}

// Fence is an opaque GPU-CPU synchronization handle, signaled when submitted
// work completes.
type Fence interface{}

// Surface is a platform presentation surface: the window-system half of a
// windowed swapchain. The windowed presenter drives acquire and present
// through it and wraps its images into the device target.
type Surface interface {
	// ImageCount returns the number of presentable images the surface
	// cycles through.
	ImageCount() int

	// Images returns the surface-owned presentable images, wrapped as
	// driver images. The slice is owned by the surface.
	Images() []Image

	// Format returns the surface's color format.
	Format() gputypes.TextureFormat

	// Extent returns the current surface dimensions in pixels.
	Extent() (width, height uint32)

	// AcquireNextImage blocks up to timeoutNanos for the next presentable
	// image, returning its index. signal and fence (either may be nil)
	// are signaled when the image is ready to be written.
	//
	// Returns ErrSurfaceOutOfDate or ErrSurfaceSuboptimal for transient
	// surface mismatches.
	AcquireNextImage(timeoutNanos uint64, signal Semaphore, fence Fence) (int, error)

	// Present queues imageIndex for display after every semaphore in
	// waits signals.
	//
	// Returns ErrSurfaceOutOfDate or ErrSurfaceSuboptimal for transient
	// surface mismatches.
	Present(imageIndex int, waits []Semaphore) error

	// Recreate rebuilds the surface's swapchain at the given size,
	// invalidating previously returned images.
	Recreate(width, height uint32) error

	// Destroy releases the surface's swapchain resources. Idempotent.
	Destroy()
}

// XRSession is the XR-runtime half of an XR swapchain: a color image
// sequence and an optional depth image sequence whose acquisition the
// runtime synchronizes internally.
type XRSession interface {
	// ColorImages returns the runtime-owned color images.
	ColorImages() []Image

	// DepthImages returns the runtime-owned depth images, or nil when
	// the session has no depth swapchain.
	DepthImages() []Image

	// ColorFormat returns the color image format.
	ColorFormat() gputypes.TextureFormat

	// DepthFormat returns the depth image format, or
	// gputypes.TextureFormatUndefined without a depth swapchain.
	DepthFormat() gputypes.TextureFormat

	// Extent returns the per-eye image dimensions.
	Extent() (width, height uint32)

	// AcquireColorImage acquires and waits for the next color image,
	// returning its index. The runtime synchronizes internally; no
	// semaphore or fence is involved.
	AcquireColorImage() (int, error)

	// AcquireDepthImage acquires and waits for the next depth image.
	// Only valid when DepthImages is non-empty. The returned index must
	// stay in lock-step with the color index; divergence is a runtime
	// contract violation.
	AcquireDepthImage() (int, error)

	// ReleaseImages releases the currently acquired color (and depth)
	// images back to the runtime, making them presentable.
	ReleaseImages() error
}
