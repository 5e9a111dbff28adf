// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package null

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/driver"
)

// Errors specific to the null driver.
var (
	// ErrBudgetExhausted indicates a creation budget set for failure
	// injection was exceeded.
	ErrBudgetExhausted = errors.New("null: creation budget exhausted")

	// ErrNilResource indicates a required resource argument was nil.
	ErrNilResource = errors.New("null: nil resource")
)

func init() {
	driver.Register("null", 10, func(opts driver.Options) (driver.Device, error) {
		dev := New()
		dev.label = opts.Label
		return dev, nil
	}, nil)
}

// Device is an in-memory driver.Device. The zero value is not usable; call
// New.
//
// Creation budgets inject failures: when Max* is non-zero, the corresponding
// Create call fails once the number of live resources of that kind reaches
// the budget. Tests use this to verify all-or-nothing construction.
type Device struct {
	// MaxImages caps live images (0 = unlimited).
	MaxImages int

	// MaxRenderPasses caps live render passes (0 = unlimited).
	MaxRenderPasses int

	// MaxSemaphores caps live semaphores (0 = unlimited).
	MaxSemaphores int

	// MaxCommandBuffers caps live command buffers (0 = unlimited).
	MaxCommandBuffers int

	label string

	mu           sync.Mutex
	queue        *Queue
	images       map[*Image]struct{}
	renderPasses map[*RenderPass]struct{}
	semaphores   map[*Semaphore]struct{}
	cmdBuffers   map[*CommandBuffer]struct{}

	// destroyLog records resource labels in destruction order. Tests
	// assert teardown ordering against it.
	destroyLog []string
}

var _ driver.Device = (*Device)(nil)

// New creates an empty null device.
func New() *Device {
	d := &Device{
		images:       make(map[*Image]struct{}),
		renderPasses: make(map[*RenderPass]struct{}),
		semaphores:   make(map[*Semaphore]struct{}),
		cmdBuffers:   make(map[*CommandBuffer]struct{}),
	}
	d.queue = &Queue{device: d}
	return d
}

// CreateImage allocates an in-memory image.
func (d *Device) CreateImage(desc driver.ImageDescriptor) (driver.Image, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", driver.ErrInvalidSize, desc.Width, desc.Height)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.MaxImages > 0 && len(d.images) >= d.MaxImages {
		return nil, fmt.Errorf("create image %q: %w", desc.Label, ErrBudgetExhausted)
	}

	img := &Image{
		desc:   desc,
		layout: desc.InitialLayout,
		fill:   gputypes.Color{},
	}
	d.images[img] = struct{}{}
	return img, nil
}

// WrapImage adopts native as an image without allocating. The null driver
// accepts any native payload and keeps it for inspection.
func (d *Device) WrapImage(native any, desc driver.ImageDescriptor) (driver.Image, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", driver.ErrInvalidSize, desc.Width, desc.Height)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	img := &Image{
		desc:    desc,
		layout:  desc.InitialLayout,
		native:  native,
		wrapped: true,
	}
	d.images[img] = struct{}{}
	return img, nil
}

// DestroyImage releases an image. Destroying nil or an already destroyed
// image is a no-op.
func (d *Device) DestroyImage(img driver.Image) {
	ni, ok := img.(*Image)
	if !ok || ni == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, live := d.images[ni]; !live {
		return
	}
	delete(d.images, ni)
	d.destroyLog = append(d.destroyLog, ni.desc.Label)
}

// CreateRenderPass builds a render pass over the descriptor's attachments.
func (d *Device) CreateRenderPass(desc driver.RenderPassDescriptor) (driver.RenderPass, error) {
	if desc.ColorImage == nil {
		return nil, fmt.Errorf("create render pass %q: %w", desc.Label, ErrNilResource)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.MaxRenderPasses > 0 && len(d.renderPasses) >= d.MaxRenderPasses {
		return nil, fmt.Errorf("create render pass %q: %w", desc.Label, ErrBudgetExhausted)
	}

	rp := &RenderPass{desc: desc}
	d.renderPasses[rp] = struct{}{}
	return rp, nil
}

// DestroyRenderPass releases a render pass. Idempotent.
func (d *Device) DestroyRenderPass(rp driver.RenderPass) {
	np, ok := rp.(*RenderPass)
	if !ok || np == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, live := d.renderPasses[np]; !live {
		return
	}
	delete(d.renderPasses, np)
	d.destroyLog = append(d.destroyLog, np.desc.Label)
}

// CreateSemaphore creates an in-memory semaphore.
func (d *Device) CreateSemaphore() (driver.Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.MaxSemaphores > 0 && len(d.semaphores) >= d.MaxSemaphores {
		return nil, fmt.Errorf("create semaphore: %w", ErrBudgetExhausted)
	}

	sem := &Semaphore{}
	d.semaphores[sem] = struct{}{}
	return sem, nil
}

// DestroySemaphore releases a semaphore. Idempotent.
func (d *Device) DestroySemaphore(sem driver.Semaphore) {
	ns, ok := sem.(*Semaphore)
	if !ok || ns == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, live := d.semaphores[ns]; !live {
		return
	}
	delete(d.semaphores, ns)
	d.destroyLog = append(d.destroyLog, "semaphore")
}

// CreateCommandBuffer allocates a command buffer in the initial state.
func (d *Device) CreateCommandBuffer() (driver.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.MaxCommandBuffers > 0 && len(d.cmdBuffers) >= d.MaxCommandBuffers {
		return nil, fmt.Errorf("create command buffer: %w", ErrBudgetExhausted)
	}

	cb := &CommandBuffer{}
	d.cmdBuffers[cb] = struct{}{}
	return cb, nil
}

// DestroyCommandBuffer releases a command buffer. Idempotent.
func (d *Device) DestroyCommandBuffer(cb driver.CommandBuffer) {
	nc, ok := cb.(*CommandBuffer)
	if !ok || nc == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, live := d.cmdBuffers[nc]; !live {
		return
	}
	delete(d.cmdBuffers, nc)
	d.destroyLog = append(d.destroyLog, "commandBuffer")
}

// GraphicsQueue returns the device's single queue.
func (d *Device) GraphicsQueue() driver.Queue {
	return d.queue
}

// AliveImages returns the number of live images.
func (d *Device) AliveImages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.images)
}

// AliveRenderPasses returns the number of live render passes.
func (d *Device) AliveRenderPasses() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.renderPasses)
}

// AliveSemaphores returns the number of live semaphores.
func (d *Device) AliveSemaphores() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.semaphores)
}

// AliveCommandBuffers returns the number of live command buffers.
func (d *Device) AliveCommandBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.cmdBuffers)
}

// DestroyLog returns resource labels in the order they were destroyed.
func (d *Device) DestroyLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.destroyLog))
	copy(out, d.destroyLog)
	return out
}

// ResetDestroyLog clears the destruction log.
func (d *Device) ResetDestroyLog() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyLog = nil
}

// Image is an in-memory image carrying layout and fill-color state.
type Image struct {
	desc    driver.ImageDescriptor
	layout  driver.ImageLayout
	fill    gputypes.Color
	native  any
	wrapped bool
}

var (
	_ driver.Image       = (*Image)(nil)
	_ driver.ImageReader = (*Image)(nil)
)

// Width returns the image width in pixels.
func (i *Image) Width() uint32 { return i.desc.Width }

// Height returns the image height in pixels.
func (i *Image) Height() uint32 { return i.desc.Height }

// Format returns the pixel format.
func (i *Image) Format() gputypes.TextureFormat { return i.desc.Format }

// Usage returns the usage flags.
func (i *Image) Usage() gputypes.TextureUsage { return i.desc.Usage }

// Label returns the debug label.
func (i *Image) Label() string { return i.desc.Label }

// Layout returns the image's current layout, as applied by executed
// submissions.
func (i *Image) Layout() driver.ImageLayout { return i.layout }

// Fill returns the image's current fill color, as applied by executed clear
// passes and copies.
func (i *Image) Fill() gputypes.Color { return i.fill }

// Wrapped reports whether the image adopted a native handle.
func (i *Image) Wrapped() bool { return i.wrapped }

// Native returns the wrapped native payload, or nil.
func (i *Image) Native() any { return i.native }

// ReadPixels snapshots the image as RGBA: every pixel carries the current
// fill color. It implements driver.ImageReader.
func (i *Image) ReadPixels() (*image.RGBA, error) {
	out := image.NewRGBA(image.Rect(0, 0, int(i.desc.Width), int(i.desc.Height)))
	c := color.RGBA{
		R: channel(i.fill.R),
		G: channel(i.fill.G),
		B: channel(i.fill.B),
		A: channel(i.fill.A),
	}
	draw.Draw(out, out.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return out, nil
}

// channel converts a normalized color channel to 8-bit, clamping to [0, 1].
func channel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xFF
	}
	return uint8(v*255 + 0.5)
}

// RenderPass is an in-memory render pass.
type RenderPass struct {
	desc driver.RenderPassDescriptor
}

var _ driver.RenderPass = (*RenderPass)(nil)

// ColorImage returns the color attachment.
func (r *RenderPass) ColorImage() driver.Image { return r.desc.ColorImage }

// DepthImage returns the depth attachment, or nil.
func (r *RenderPass) DepthImage() driver.Image { return r.desc.DepthImage }

// LoadOp returns the color load operation.
func (r *RenderPass) LoadOp() gputypes.LoadOp { return r.desc.LoadOp }

// Label returns the debug label.
func (r *RenderPass) Label() string { return r.desc.Label }

// RenderArea returns the full-attachment render area.
func (r *RenderPass) RenderArea() driver.Rect {
	return driver.Rect{
		Width:  r.desc.ColorImage.Width(),
		Height: r.desc.ColorImage.Height(),
	}
}

// Semaphore is an in-memory semaphore tracking whether it was signaled.
type Semaphore struct {
	signaled bool
}

// Signaled reports whether any submission signaled this semaphore.
func (s *Semaphore) Signaled() bool { return s.signaled }

// Fence is an in-memory fence tracking whether it was signaled.
type Fence struct {
	signaled bool
}

// Signaled reports whether any submission signaled this fence.
func (f *Fence) Signaled() bool { return f.signaled }
