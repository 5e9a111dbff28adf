// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/driver"
)

// Clear values used by the compositing preamble.
var (
	// CompositeSurround is the neutral gray the preamble paints around the
	// composited region when the indirect image does not cover the whole
	// presentable image.
	CompositeSurround = gputypes.Color{R: 0.5, G: 0.5, B: 0.5, A: 0}

	// DefaultClearDepthStencil is the depth/stencil clear applied by clear
	// render passes that carry a depth attachment.
	DefaultClearDepthStencil = driver.DepthStencilValue{Depth: 1, Stencil: 0xFF}
)

// Chain is the core swapchain state machine. It owns up to two targets:
// the presentable one bound to the surface or XR session, and an optional
// indirect one when rendering happens at a different resolution or fully
// headless. Each slot additionally carries a command buffer and a
// post-process semaphore.
//
// Chain is not safe for concurrent use.
type Chain struct {
	dev   driver.Device
	queue driver.Queue
	cfg   Config

	pres presenter

	// deviceTarget holds what the surface or XR runtime actually presents.
	// Inactive only in headless mode.
	deviceTarget target

	// indirectTarget holds the offscreen images rendering goes to when the
	// render resolution differs from the surface, or always when headless.
	indirectTarget target

	slots   []slot
	current int

	destroyed bool
}

var _ Swapchain = (*Chain)(nil)
var _ Resizable = (*Chain)(nil)

// New builds a swapchain for the device per cfg. The presentation mode
// follows the configuration: cfg.Surface selects windowed, cfg.XR selects
// XR, neither selects headless. The returned chain owns every resource it
// allocated and releases them in Destroy.
func New(dev driver.Device, cfg Config) (*Chain, error) {
	if dev == nil {
		return nil, fmt.Errorf("swapchain: new: device: %w", ErrNilArgument)
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	queue := dev.GraphicsQueue()
	if queue == nil {
		return nil, fmt.Errorf("swapchain: new: graphics queue: %w", ErrNilArgument)
	}

	c := &Chain{dev: dev, queue: queue, cfg: cfg}

	var err error
	switch {
	case cfg.XR != nil:
		err = c.initXR()
	case cfg.Surface != nil:
		err = c.initWindowed()
	default:
		err = c.initHeadless()
	}
	if err != nil {
		return nil, err
	}

	count := c.renderTarget().imageCount()
	c.slots, err = newSlots(dev, count)
	if err != nil {
		c.indirectTarget.destroy(dev)
		c.deviceTarget.destroy(dev)
		return nil, err
	}
	// Initialize so the first headless acquire advances to slot 0.
	c.current = count - 1

	Logger().Info("swapchain created",
		"mode", c.pres.kind(),
		"width", c.renderTarget().width,
		"height", c.renderTarget().height,
		"images", count,
		"format", c.cfg.ColorFormat)
	return c, nil
}

func (c *Chain) initWindowed() error {
	surf := c.cfg.Surface
	w, h := surf.Extent()
	if w == 0 || h == 0 {
		return fmt.Errorf("swapchain: surface reports zero extent: %w", ErrCreationFailed)
	}
	count := surf.ImageCount()
	if count == 0 {
		return fmt.Errorf("swapchain: surface reports zero images: %w", ErrCreationFailed)
	}
	if c.cfg.ImageCount > 0 && c.cfg.ImageCount != count {
		Logger().Warn("clamping image count to surface",
			"requested", c.cfg.ImageCount, "surface", count)
	}
	if f := surf.Format(); c.cfg.ColorFormat != gputypes.TextureFormatUndefined && c.cfg.ColorFormat != f {
		Logger().Warn("surface format overrides configured color format",
			"requested", c.cfg.ColorFormat, "surface", f)
	}
	c.cfg.ColorFormat = surf.Format()

	err := c.deviceTarget.create(c.dev, targetParams{
		label:        c.cfg.Label + "/device",
		width:        w,
		height:       h,
		imageCount:   count,
		colorFormat:  c.cfg.ColorFormat,
		depthFormat:  c.cfg.DepthFormat,
		colorHandles: surf.Images(),
	})
	if err != nil {
		return err
	}
	c.pres = windowedPresenter{surface: surf}
	return nil
}

func (c *Chain) initHeadless() error {
	err := c.indirectTarget.create(c.dev, targetParams{
		label:       c.cfg.Label + "/indirect",
		width:       c.cfg.Width,
		height:      c.cfg.Height,
		imageCount:  c.cfg.ImageCount,
		colorFormat: c.cfg.ColorFormat,
		depthFormat: c.cfg.DepthFormat,
	})
	if err != nil {
		return err
	}
	c.pres = headlessPresenter{}
	return nil
}

func (c *Chain) initXR() error {
	sess := c.cfg.XR
	colorHandles := sess.ColorImages()
	if len(colorHandles) == 0 {
		return fmt.Errorf("swapchain: XR session reports zero images: %w", ErrCreationFailed)
	}
	w, h := sess.Extent()
	depthHandles := sess.DepthImages()
	c.cfg.ColorFormat = sess.ColorFormat()
	c.cfg.DepthFormat = sess.DepthFormat()

	err := c.deviceTarget.create(c.dev, targetParams{
		label:        c.cfg.Label + "/device",
		width:        w,
		height:       h,
		imageCount:   len(colorHandles),
		colorFormat:  c.cfg.ColorFormat,
		depthFormat:  c.cfg.DepthFormat,
		colorHandles: colorHandles,
		depthHandles: depthHandles,
	})
	if err != nil {
		return err
	}
	c.pres = xrPresenter{session: sess}
	return nil
}

// renderTarget returns the target rendering goes to: the indirect one when
// active, the presentable one otherwise.
func (c *Chain) renderTarget() *target {
	if c.indirectTarget.active() {
		return &c.indirectTarget
	}
	return &c.deviceTarget
}

// isIndirect reports whether rendering is redirected through the offscreen
// target.
func (c *Chain) isIndirect() bool { return c.indirectTarget.active() }

// IsHeadless reports whether the chain was built without a surface or XR
// session.
func (c *Chain) IsHeadless() bool { return c.pres.headless() }

// ImageCount returns the number of swap slots.
func (c *Chain) ImageCount() int { return len(c.slots) }

// ColorFormat returns the format of the color images.
func (c *Chain) ColorFormat() gputypes.TextureFormat { return c.cfg.ColorFormat }

// DepthFormat returns the format of the depth images, or
// gputypes.TextureFormatUndefined when the chain has no depth.
func (c *Chain) DepthFormat() gputypes.TextureFormat { return c.cfg.DepthFormat }

// Width returns the render width: the indirect target's when indirect
// rendering is active, the presentable images' otherwise.
func (c *Chain) Width() uint32 { return c.renderTarget().width }

// Height returns the render height.
func (c *Chain) Height() uint32 { return c.renderTarget().height }

// CurrentImageIndex returns the most recently acquired slot index.
func (c *Chain) CurrentImageIndex() int { return c.current }

// ColorImage returns the color image rendering should target for a slot.
func (c *Chain) ColorImage(index int) (driver.Image, error) {
	if c.destroyed {
		return nil, fmt.Errorf("swapchain: color image: %w", ErrDestroyed)
	}
	t := c.renderTarget()
	if index < 0 || index >= t.imageCount() {
		return nil, fmt.Errorf("swapchain: color image %d of %d: %w", index, t.imageCount(), ErrOutOfRange)
	}
	return t.colorImages[index], nil
}

// DepthImage returns the depth image for a slot.
func (c *Chain) DepthImage(index int) (driver.Image, error) {
	if c.destroyed {
		return nil, fmt.Errorf("swapchain: depth image: %w", ErrDestroyed)
	}
	t := c.renderTarget()
	if index < 0 || index >= len(t.depthImages) {
		return nil, fmt.Errorf("swapchain: depth image %d of %d: %w", index, len(t.depthImages), ErrOutOfRange)
	}
	return t.depthImages[index], nil
}

// RenderPass returns the render pass rendering should use for a slot with
// the given load op. The clear and load passes for one slot are distinct
// objects sharing the same attachments.
func (c *Chain) RenderPass(index int, op gputypes.LoadOp) (driver.RenderPass, error) {
	if c.destroyed {
		return nil, fmt.Errorf("swapchain: render pass: %w", ErrDestroyed)
	}
	t := c.renderTarget()
	if index < 0 || index >= t.imageCount() {
		return nil, fmt.Errorf("swapchain: render pass %d of %d: %w", index, t.imageCount(), ErrOutOfRange)
	}
	return t.pass(index, op), nil
}

// UIRenderPass returns the load-op pass bound to the presentable image for
// a slot. Unlike RenderPass it never redirects to the indirect target: UI
// draws at native surface resolution.
func (c *Chain) UIRenderPass(index int) (driver.RenderPass, error) {
	if c.destroyed {
		return nil, fmt.Errorf("swapchain: ui render pass: %w", ErrDestroyed)
	}
	if index < 0 || index >= c.deviceTarget.imageCount() {
		return nil, fmt.Errorf("swapchain: ui render pass %d of %d: %w", index, c.deviceTarget.imageCount(), ErrOutOfRange)
	}
	return c.deviceTarget.loadPasses[index], nil
}

// RenderArea returns the rectangle rendering should cover.
func (c *Chain) RenderArea() driver.Rect {
	return RenderArea(c.Width(), c.Height())
}

// Viewport returns a full-area viewport with the given depth range.
func (c *Chain) Viewport(minDepth, maxDepth float32) driver.Viewport {
	vp := FullViewport(c.Width(), c.Height())
	vp.MinDepth, vp.MaxDepth = minDepth, maxDepth
	return vp
}

// AspectRatio returns the render width over height.
func (c *Chain) AspectRatio() float32 {
	return AspectRatio(c.Width(), c.Height())
}

// SetIndirectRenderSize switches the resolution the application renders at.
// Matching the live indirect dimensions is a no-op; anything else drains
// the queue, destroys the old indirect target, and allocates a new one at
// exactly width x height. 0,0 disables indirection, except headless chains
// which recreate the sole target at the configured resolution instead.
func (c *Chain) SetIndirectRenderSize(width, height uint32) error {
	if c.destroyed {
		return fmt.Errorf("swapchain: set indirect render size: %w", ErrDestroyed)
	}
	if c.IsHeadless() && width == 0 && height == 0 {
		width, height = c.cfg.Width, c.cfg.Height
	}
	if width == c.indirectTarget.width && height == c.indirectTarget.height {
		return nil
	}

	if err := c.queue.WaitIdle(); err != nil {
		return normalizeBackend("wait idle before resize", err)
	}
	c.indirectTarget.destroy(c.dev)
	if width == 0 || height == 0 {
		Logger().Info("indirect rendering disabled")
		return nil
	}

	err := c.indirectTarget.create(c.dev, targetParams{
		label:       c.cfg.Label + "/indirect",
		width:       width,
		height:      height,
		imageCount:  len(c.slots),
		colorFormat: c.cfg.ColorFormat,
		depthFormat: c.cfg.DepthFormat,
	})
	if err != nil {
		return err
	}
	Logger().Info("indirect target created", "width", width, "height", height)
	return nil
}

// AcquireNextImage returns the slot index to render into next. See
// [Presenter.AcquireNextImage] for the synchronization contract.
func (c *Chain) AcquireNextImage(timeout time.Duration, signal driver.Semaphore, fence driver.Fence) (int, error) {
	if c.destroyed {
		return 0, fmt.Errorf("swapchain: acquire: %w", ErrDestroyed)
	}
	return c.pres.acquire(c, timeout, signal, fence)
}

// Present queues the slot's image for presentation. When indirect rendering
// is active the compositing preamble is recorded first; any open recording
// on the slot is then flushed in a submission that waits on the caller's
// semaphores and signals the slot's post-process semaphore, and the backend
// present waits on that semaphore instead. Without pending recording the
// present waits directly on the caller's semaphores.
func (c *Chain) Present(imageIndex int, waits []driver.Semaphore) error {
	if c.destroyed {
		return fmt.Errorf("swapchain: present: %w", ErrDestroyed)
	}
	if imageIndex < 0 || imageIndex >= len(c.slots) {
		return fmt.Errorf("swapchain: present image %d of %d: %w", imageIndex, len(c.slots), ErrOutOfRange)
	}
	if c.pres.headless() {
		return c.pres.present(c, imageIndex, waits)
	}

	if c.isIndirect() {
		if err := c.RecordPreamble(imageIndex); err != nil {
			return err
		}
	}

	presentWaits := waits
	s := &c.slots[imageIndex]
	if s.recording {
		if err := s.cmd.End(); err != nil {
			return normalizeBackend("end slot recording", err)
		}
		s.recording = false
		err := c.queue.Submit([]driver.CommandBuffer{s.cmd}, waits, []driver.Semaphore{s.postProcess}, nil)
		if err != nil {
			return normalizeBackend("submit slot recording", err)
		}
		presentWaits = []driver.Semaphore{s.postProcess}
	}
	return c.pres.present(c, imageIndex, presentWaits)
}

// RecordPreamble opens the slot's command buffer and, when indirect
// rendering is active, records the compositing sequence: clear the
// presentable image to the surround gray and copy the overlapping region
// from the indirect image, centered on whichever side is larger. It is
// idempotent per frame, doing nothing when headless or when the slot is
// already recording, and leaves the recording open for Present to flush.
func (c *Chain) RecordPreamble(imageIndex int) error {
	if c.destroyed {
		return fmt.Errorf("swapchain: record preamble: %w", ErrDestroyed)
	}
	if c.pres.headless() {
		return nil
	}
	if imageIndex < 0 || imageIndex >= len(c.slots) {
		return fmt.Errorf("swapchain: record preamble %d of %d: %w", imageIndex, len(c.slots), ErrOutOfRange)
	}
	s := &c.slots[imageIndex]
	if s.recording {
		return nil
	}
	if err := s.cmd.Begin(); err != nil {
		return normalizeBackend("begin slot recording", err)
	}
	s.recording = true

	if c.isIndirect() {
		recordComposite(s.cmd,
			c.indirectTarget.colorImages[imageIndex],
			c.deviceTarget.colorImages[imageIndex],
			c.deviceTarget.clearPasses[imageIndex])
	}
	return nil
}

// RecordUI records an overlay callback against the presentable image for a
// slot, at native surface resolution, preserving existing contents. The
// slot recording stays open; Present flushes it. RecordUI panics on a
// headless chain, which has no native-resolution surface to draw on.
func (c *Chain) RecordUI(imageIndex int, fn RecordFunc) error {
	if c.pres.headless() {
		panic("swapchain: RecordUI requires a presentation surface")
	}
	if c.destroyed {
		return fmt.Errorf("swapchain: record ui: %w", ErrDestroyed)
	}
	if fn == nil {
		return fmt.Errorf("swapchain: record ui: callback: %w", ErrNilArgument)
	}
	if imageIndex < 0 || imageIndex >= len(c.slots) {
		return fmt.Errorf("swapchain: record ui %d of %d: %w", imageIndex, len(c.slots), ErrOutOfRange)
	}
	if err := c.RecordPreamble(imageIndex); err != nil {
		return err
	}

	cmd := c.slots[imageIndex].cmd
	img := c.deviceTarget.colorImages[imageIndex]
	w, h := c.deviceTarget.width, c.deviceTarget.height

	cmd.TransitionImageLayout(img, driver.ImageLayoutPresent, driver.ImageLayoutRenderTarget)
	cmd.BeginRenderPass(driver.RenderPassBeginInfo{
		Pass:       c.deviceTarget.loadPasses[imageIndex],
		RenderArea: RenderArea(w, h),
	})
	cmd.SetViewports([]driver.Viewport{FullViewport(w, h)})
	cmd.SetScissors([]driver.Rect{RenderArea(w, h)})
	fn(cmd)
	cmd.EndRenderPass()
	cmd.TransitionImageLayout(img, driver.ImageLayoutRenderTarget, driver.ImageLayoutPresent)
	return nil
}

// Resize rebuilds the presentable target after the surface changed size.
// Windowed chains recreate the surface; headless chains treat the new size
// as the configured resolution. XR extents are fixed by the runtime.
func (c *Chain) Resize(width, height uint32) error {
	if c.destroyed {
		return fmt.Errorf("swapchain: resize: %w", ErrDestroyed)
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("swapchain: resize to %dx%d: %w", width, height, ErrCreationFailed)
	}

	switch p := c.pres.(type) {
	case headlessPresenter:
		c.cfg.Width, c.cfg.Height = width, height
		return c.SetIndirectRenderSize(width, height)
	case windowedPresenter:
		if err := c.queue.WaitIdle(); err != nil {
			return normalizeBackend("wait idle before resize", err)
		}
		c.deviceTarget.destroy(c.dev)
		if err := p.surface.Recreate(width, height); err != nil {
			return normalizeBackend("recreate surface", err)
		}
		w, h := p.surface.Extent()
		err := c.deviceTarget.create(c.dev, targetParams{
			label:        c.cfg.Label + "/device",
			width:        w,
			height:       h,
			imageCount:   p.surface.ImageCount(),
			colorFormat:  c.cfg.ColorFormat,
			depthFormat:  c.cfg.DepthFormat,
			colorHandles: p.surface.Images(),
		})
		if err != nil {
			return err
		}
		if count := c.deviceTarget.imageCount(); count != len(c.slots) {
			Logger().Warn("surface image count changed on resize",
				"old", len(c.slots), "new", count)
			destroySlots(c.dev, c.slots)
			c.slots, err = newSlots(c.dev, count)
			if err != nil {
				return err
			}
			c.current = count - 1
		}
		Logger().Info("presentable target resized", "width", w, "height", h)
		return nil
	default:
		return fmt.Errorf("swapchain: resize: %s presentation is fixed-size: %w", c.pres.kind(), ErrBackend)
	}
}

// WaitIdle blocks until all work submitted to the graphics queue completed.
func (c *Chain) WaitIdle() error {
	if c.destroyed {
		return fmt.Errorf("swapchain: wait idle: %w", ErrDestroyed)
	}
	if err := c.queue.WaitIdle(); err != nil {
		return normalizeBackend("wait idle", err)
	}
	return nil
}

// Destroy releases everything the chain owns: the indirect target, the
// presentable target, and the per-slot semaphores and command buffers, in
// that order. Destroy is idempotent.
func (c *Chain) Destroy() {
	if c.destroyed {
		return
	}
	if err := c.queue.WaitIdle(); err != nil {
		Logger().Warn("wait idle during destroy", "error", err)
	}
	c.indirectTarget.destroy(c.dev)
	c.deviceTarget.destroy(c.dev)
	destroySlots(c.dev, c.slots)
	c.slots = nil
	c.destroyed = true
	Logger().Debug("swapchain destroyed")
}

// submitEmpty begins and immediately ends the slot's command buffer and
// submits it with the given synchronization, the headless stand-in for a
// real acquire or present.
func (c *Chain) submitEmpty(slotIndex int, waits []driver.Semaphore, signal driver.Semaphore, fence driver.Fence) error {
	s := &c.slots[slotIndex]
	if err := s.cmd.Begin(); err != nil {
		return normalizeBackend("begin empty submission", err)
	}
	if err := s.cmd.End(); err != nil {
		return normalizeBackend("end empty submission", err)
	}
	var signals []driver.Semaphore
	if signal != nil {
		signals = []driver.Semaphore{signal}
	}
	if err := c.queue.Submit([]driver.CommandBuffer{s.cmd}, waits, signals, fence); err != nil {
		return normalizeBackend("submit empty submission", err)
	}
	return nil
}

// recordComposite records the clear-and-centered-copy sequence that
// composites src onto dst: dst is cleared through clearPass so the surround
// shows CompositeSurround wherever src does not cover it, then the
// overlapping region of src is copied in, centered on whichever side is
// larger on each axis.
func recordComposite(cmd driver.CommandBuffer, src, dst driver.Image, clearPass driver.RenderPass) {
	cmd.TransitionImageLayout(dst, driver.ImageLayoutPresent, driver.ImageLayoutRenderTarget)
	cmd.BeginRenderPass(driver.RenderPassBeginInfo{
		Pass:              clearPass,
		RenderArea:        RenderArea(dst.Width(), dst.Height()),
		ClearColor:        CompositeSurround,
		ClearDepthStencil: DefaultClearDepthStencil,
	})
	cmd.EndRenderPass()
	cmd.TransitionImageLayout(dst, driver.ImageLayoutRenderTarget, driver.ImageLayoutCopyDst)
	cmd.TransitionImageLayout(src, driver.ImageLayoutPresent, driver.ImageLayoutCopySrc)
	cmd.CopyImageToImage(CenteredCopy(src.Width(), src.Height(), dst.Width(), dst.Height()), src, dst)
	cmd.TransitionImageLayout(src, driver.ImageLayoutCopySrc, driver.ImageLayoutPresent)
	cmd.TransitionImageLayout(dst, driver.ImageLayoutCopyDst, driver.ImageLayoutPresent)
}
