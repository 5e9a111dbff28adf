// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"fmt"

	"github.com/gogpu/swapchain/driver"
)

// PostProcess wraps a swapchain and records a caller-supplied overlay pass
// over the presentable image on every Present, at native surface resolution
// and preserving existing contents. The overlay submission waits on the
// caller's present semaphores and the final present waits on the overlay
// instead, so the overlay always lands after the frame's rendering and
// before the presentation engine reads the image.
//
// The wrapper allocates one command buffer and one semaphore per slot at
// construction.
type PostProcess struct {
	Wrap

	dev   driver.Device
	queue driver.Queue
	fn    RecordFunc

	slots     []slot
	destroyed bool
}

var _ Swapchain = (*PostProcess)(nil)

// NewPostProcess wraps next with an overlay pass recorded by fn on every
// Present. Headless swapchains have no presentable image to draw over and
// are rejected.
func NewPostProcess(next Swapchain, dev driver.Device, fn RecordFunc) (*PostProcess, error) {
	if next == nil {
		return nil, fmt.Errorf("swapchain: new post-process: next: %w", ErrNilArgument)
	}
	if dev == nil {
		return nil, fmt.Errorf("swapchain: new post-process: device: %w", ErrNilArgument)
	}
	if fn == nil {
		return nil, fmt.Errorf("swapchain: new post-process: record callback: %w", ErrNilArgument)
	}
	if next.IsHeadless() {
		return nil, fmt.Errorf("swapchain: new post-process: headless swapchain has no presentable image: %w", ErrCreationFailed)
	}
	slots, err := newSlots(dev, next.ImageCount())
	if err != nil {
		return nil, err
	}
	return &PostProcess{
		Wrap:  Wrap{next},
		dev:   dev,
		queue: dev.GraphicsQueue(),
		fn:    fn,
		slots: slots,
	}, nil
}

// Present records the overlay pass over the slot's presentable image and
// chains it between the caller's rendering and the wrapped present: the
// overlay waits on waits, and the wrapped Present waits on the overlay.
func (p *PostProcess) Present(imageIndex int, waits []driver.Semaphore) error {
	if p.destroyed {
		return fmt.Errorf("swapchain: post-process present: %w", ErrDestroyed)
	}
	if imageIndex < 0 || imageIndex >= len(p.slots) {
		return fmt.Errorf("swapchain: post-process present %d of %d: %w", imageIndex, len(p.slots), ErrOutOfRange)
	}
	pass, err := p.Swapchain.UIRenderPass(imageIndex)
	if err != nil {
		return err
	}
	img := pass.ColorImage()
	area := pass.RenderArea()

	s := &p.slots[imageIndex]
	cmd := s.cmd
	if err := cmd.Begin(); err != nil {
		return normalizeBackend("begin post-process recording", err)
	}
	cmd.TransitionImageLayout(img, driver.ImageLayoutPresent, driver.ImageLayoutRenderTarget)
	cmd.BeginRenderPass(driver.RenderPassBeginInfo{
		Pass:       pass,
		RenderArea: area,
	})
	cmd.SetViewports([]driver.Viewport{FullViewport(area.Width, area.Height)})
	cmd.SetScissors([]driver.Rect{area})
	p.fn(cmd)
	cmd.EndRenderPass()
	cmd.TransitionImageLayout(img, driver.ImageLayoutRenderTarget, driver.ImageLayoutPresent)
	if err := cmd.End(); err != nil {
		return normalizeBackend("end post-process recording", err)
	}

	if err := p.queue.Submit([]driver.CommandBuffer{cmd}, waits, []driver.Semaphore{s.postProcess}, nil); err != nil {
		return normalizeBackend("submit post-process recording", err)
	}
	return p.Swapchain.Present(imageIndex, []driver.Semaphore{s.postProcess})
}

// Destroy drains the queue, releases the wrapper's per-slot resources, and
// destroys the wrapped swapchain. Idempotent.
func (p *PostProcess) Destroy() {
	if p.destroyed {
		return
	}
	if err := p.queue.WaitIdle(); err != nil {
		Logger().Warn("wait idle during post-process destroy", "error", err)
	}
	destroySlots(p.dev, p.slots)
	p.slots = nil
	p.destroyed = true
	p.Swapchain.Destroy()
}
