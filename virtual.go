// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/driver"
)

// Virtual wraps a swapchain with a fixed-resolution offscreen target. The
// application renders into the virtual images regardless of what the window
// system does; every Present composites the virtual image onto the wrapped
// swapchain's image with the centered copy, surrounded by CompositeSurround
// where the sizes differ.
//
// Because the render resolution never changes, Virtual absorbs transient
// surface errors on acquire and present: the caller's semaphores and fence
// are still signaled and the frame is dropped. Pair it with a Guard when
// the application wants to observe those conditions and rebuild.
//
// RenderArea can be narrowed to a sub-rectangle of the virtual target with
// UpdateRenderArea, for letterboxed or editor-style layouts.
type Virtual struct {
	Wrap

	dev   driver.Device
	queue driver.Queue

	tgt   target
	slots []slot
	area  driver.Rect

	destroyed bool
}

var _ Swapchain = (*Virtual)(nil)

// NewVirtual wraps next with a fixed width x height render target, one image
// per wrapped slot, matching the wrapped color and depth formats.
func NewVirtual(next Swapchain, dev driver.Device, width, height uint32) (*Virtual, error) {
	if next == nil {
		return nil, fmt.Errorf("swapchain: new virtual: next: %w", ErrNilArgument)
	}
	if dev == nil {
		return nil, fmt.Errorf("swapchain: new virtual: device: %w", ErrNilArgument)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("swapchain: new virtual: %dx%d: %w", width, height, driver.ErrInvalidSize)
	}
	count := next.ImageCount()
	if count == 0 {
		return nil, fmt.Errorf("swapchain: new virtual: wrapped swapchain has no images: %w", ErrCreationFailed)
	}

	v := &Virtual{
		Wrap:  Wrap{next},
		dev:   dev,
		queue: dev.GraphicsQueue(),
		area:  RenderArea(width, height),
	}
	err := v.tgt.create(dev, targetParams{
		label:       "virtual",
		width:       width,
		height:      height,
		imageCount:  count,
		colorFormat: next.ColorFormat(),
		depthFormat: next.DepthFormat(),
	})
	if err != nil {
		return nil, err
	}
	v.slots, err = newSlots(dev, count)
	if err != nil {
		v.tgt.destroy(dev)
		return nil, err
	}
	return v, nil
}

// Width returns the virtual render width.
func (v *Virtual) Width() uint32 { return v.tgt.width }

// Height returns the virtual render height.
func (v *Virtual) Height() uint32 { return v.tgt.height }

// ColorImage returns the virtual color image for a slot.
func (v *Virtual) ColorImage(index int) (driver.Image, error) {
	if v.destroyed {
		return nil, fmt.Errorf("swapchain: virtual color image: %w", ErrDestroyed)
	}
	if index < 0 || index >= v.tgt.imageCount() {
		return nil, fmt.Errorf("swapchain: virtual color image %d of %d: %w", index, v.tgt.imageCount(), ErrOutOfRange)
	}
	return v.tgt.colorImages[index], nil
}

// DepthImage returns the virtual depth image for a slot.
func (v *Virtual) DepthImage(index int) (driver.Image, error) {
	if v.destroyed {
		return nil, fmt.Errorf("swapchain: virtual depth image: %w", ErrDestroyed)
	}
	if index < 0 || index >= len(v.tgt.depthImages) {
		return nil, fmt.Errorf("swapchain: virtual depth image %d of %d: %w", index, len(v.tgt.depthImages), ErrOutOfRange)
	}
	return v.tgt.depthImages[index], nil
}

// RenderPass returns the virtual target's render pass for a slot and load
// op. UIRenderPass is not overridden: UI still draws on the presentable
// image at native resolution.
func (v *Virtual) RenderPass(index int, op gputypes.LoadOp) (driver.RenderPass, error) {
	if v.destroyed {
		return nil, fmt.Errorf("swapchain: virtual render pass: %w", ErrDestroyed)
	}
	if index < 0 || index >= v.tgt.imageCount() {
		return nil, fmt.Errorf("swapchain: virtual render pass %d of %d: %w", index, v.tgt.imageCount(), ErrOutOfRange)
	}
	return v.tgt.pass(index, op), nil
}

// RenderArea returns the active render rectangle within the virtual target.
func (v *Virtual) RenderArea() driver.Rect { return v.area }

// Viewport returns a viewport covering the active render rectangle with the
// given depth range.
func (v *Virtual) Viewport(minDepth, maxDepth float32) driver.Viewport {
	return driver.Viewport{
		X:        float32(v.area.X),
		Y:        float32(v.area.Y),
		Width:    float32(v.area.Width),
		Height:   float32(v.area.Height),
		MinDepth: minDepth,
		MaxDepth: maxDepth,
	}
}

// AspectRatio returns the active render rectangle's width over height.
func (v *Virtual) AspectRatio() float32 {
	return AspectRatio(v.area.Width, v.area.Height)
}

// UpdateRenderArea narrows rendering to a sub-rectangle of the virtual
// target. The rectangle must be non-empty, non-negative, and inside the
// target bounds.
func (v *Virtual) UpdateRenderArea(r driver.Rect) error {
	if v.destroyed {
		return fmt.Errorf("swapchain: update render area: %w", ErrDestroyed)
	}
	if r.Width == 0 || r.Height == 0 || r.X < 0 || r.Y < 0 ||
		uint32(r.X)+r.Width > v.tgt.width || uint32(r.Y)+r.Height > v.tgt.height {
		return fmt.Errorf("swapchain: render area %dx%d at %d,%d outside %dx%d target: %w",
			r.Width, r.Height, r.X, r.Y, v.tgt.width, v.tgt.height, ErrOutOfRange)
	}
	v.area = r
	return nil
}

// SetIndirectRenderSize recreates the virtual target at the new resolution
// and resets the render area to cover it. The target cannot be disabled:
// 0,0 is rejected.
func (v *Virtual) SetIndirectRenderSize(width, height uint32) error {
	if v.destroyed {
		return fmt.Errorf("swapchain: set virtual render size: %w", ErrDestroyed)
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("swapchain: virtual rendering cannot be disabled: %w", errors.ErrUnsupported)
	}
	if width == v.tgt.width && height == v.tgt.height {
		return nil
	}
	if err := v.queue.WaitIdle(); err != nil {
		return normalizeBackend("wait idle before virtual resize", err)
	}

	count := v.tgt.imageCount()
	colorFormat := v.ColorFormat()
	depthFormat := v.DepthFormat()
	v.tgt.destroy(v.dev)
	err := v.tgt.create(v.dev, targetParams{
		label:       "virtual",
		width:       width,
		height:      height,
		imageCount:  count,
		colorFormat: colorFormat,
		depthFormat: depthFormat,
	})
	if err != nil {
		return err
	}
	v.area = RenderArea(width, height)
	Logger().Info("virtual target resized", "width", width, "height", height)
	return nil
}

// AcquireNextImage acquires from the wrapped swapchain. Transient surface
// errors are absorbed: the caller's semaphore and fence are signaled through
// an empty submission and slot 0 is returned, dropping the frame.
func (v *Virtual) AcquireNextImage(timeout time.Duration, signal driver.Semaphore, fence driver.Fence) (int, error) {
	if v.destroyed {
		return 0, fmt.Errorf("swapchain: virtual acquire: %w", ErrDestroyed)
	}
	index, err := v.Swapchain.AcquireNextImage(timeout, signal, fence)
	if err == nil {
		return index, nil
	}
	if !IsTransient(err) {
		return index, err
	}
	Logger().Warn("virtual swapchain absorbed transient acquire error", "error", err)
	if signal != nil || fence != nil {
		var signals []driver.Semaphore
		if signal != nil {
			signals = []driver.Semaphore{signal}
		}
		if serr := v.queue.Submit(nil, nil, signals, fence); serr != nil {
			return 0, normalizeBackend("signal absorbed acquire", serr)
		}
	}
	return 0, nil
}

// Present composites the slot's virtual image onto the wrapped swapchain's
// image and presents it. The composite submission waits on the caller's
// semaphores and the wrapped present waits on the composite. Transient
// surface errors from the wrapped present are absorbed.
func (v *Virtual) Present(imageIndex int, waits []driver.Semaphore) error {
	if v.destroyed {
		return fmt.Errorf("swapchain: virtual present: %w", ErrDestroyed)
	}
	if imageIndex < 0 || imageIndex >= len(v.slots) {
		return fmt.Errorf("swapchain: virtual present %d of %d: %w", imageIndex, len(v.slots), ErrOutOfRange)
	}
	dst, err := v.Swapchain.ColorImage(imageIndex)
	if err != nil {
		return err
	}
	clearPass, err := v.Swapchain.RenderPass(imageIndex, gputypes.LoadOpClear)
	if err != nil {
		return err
	}

	s := &v.slots[imageIndex]
	if err := s.cmd.Begin(); err != nil {
		return normalizeBackend("begin virtual composite", err)
	}
	recordComposite(s.cmd, v.tgt.colorImages[imageIndex], dst, clearPass)
	if err := s.cmd.End(); err != nil {
		return normalizeBackend("end virtual composite", err)
	}
	if err := v.queue.Submit([]driver.CommandBuffer{s.cmd}, waits, []driver.Semaphore{s.postProcess}, nil); err != nil {
		return normalizeBackend("submit virtual composite", err)
	}

	err = v.Swapchain.Present(imageIndex, []driver.Semaphore{s.postProcess})
	if err != nil && IsTransient(err) {
		Logger().Warn("virtual swapchain absorbed transient present error", "error", err)
		return nil
	}
	return err
}

// Destroy drains the queue, releases the virtual target and per-slot
// resources, and destroys the wrapped swapchain. Idempotent.
func (v *Virtual) Destroy() {
	if v.destroyed {
		return
	}
	if err := v.queue.WaitIdle(); err != nil {
		Logger().Warn("wait idle during virtual destroy", "error", err)
	}
	destroySlots(v.dev, v.slots)
	v.slots = nil
	v.tgt.destroy(v.dev)
	v.destroyed = true
	v.Swapchain.Destroy()
}
