// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/swapchain"
	"github.com/gogpu/swapchain/driver"
)

// Device errors.
var (
	// ErrNoVulkan indicates the Vulkan HAL backend is not linked in or
	// failed to register.
	ErrNoVulkan = errors.New("wgpu: vulkan backend not available")

	// ErrNoAdapter indicates instance enumeration found no GPU.
	ErrNoAdapter = errors.New("wgpu: no GPU adapters found")

	// ErrNilHandles indicates NativeHandles was missing its device or
	// queue.
	ErrNilHandles = errors.New("wgpu: nil native handles")

	// ErrDeviceDestroyed indicates resource creation after Destroy.
	ErrDeviceDestroyed = errors.New("wgpu: device destroyed")
)

func init() {
	driver.Register("wgpu", 50, func(opts driver.Options) (driver.Device, error) {
		return NewDevice(opts)
	}, func() bool {
		_, ok := hal.GetBackend(gputypes.BackendVulkan)
		return ok
	})
}

// NativeHandles adopts an existing HAL device and queue, passed through
// driver.Options.Native. Adoption shares the device with a renderer that
// already owns it: the caller keeps ownership, and Destroy releases only
// resources this backend created.
type NativeHandles struct {
	Device hal.Device
	Queue  hal.Queue
}

// Device is a driver.Device over a HAL device. Construct with NewDevice or
// through the driver registry under the name "wgpu".
type Device struct {
	label    string
	instance hal.Instance
	dev      hal.Device
	halQueue hal.Queue
	queue    *Queue

	// owns is true for standalone devices created by discovery; adopted
	// devices stay caller-owned.
	owns bool

	mu        sync.Mutex
	destroyed bool
}

var _ driver.Device = (*Device)(nil)

// NewDevice opens a device per opts. A nil Native discovers a Vulkan
// adapter and opens a standalone device; *NativeHandles adopts the caller's
// device and queue.
func NewDevice(opts driver.Options) (*Device, error) {
	d := &Device{label: opts.Label}
	if d.label == "" {
		d.label = "wgpu"
	}

	switch native := opts.Native.(type) {
	case nil:
		if err := d.open(); err != nil {
			return nil, err
		}
	case *NativeHandles:
		if native == nil || native.Device == nil || native.Queue == nil {
			return nil, fmt.Errorf("wgpu: new device %q: %w", d.label, ErrNilHandles)
		}
		d.dev = native.Device
		d.halQueue = native.Queue
	default:
		return nil, fmt.Errorf("wgpu: new device %q: unsupported native payload %T", d.label, opts.Native)
	}

	timeline, err := d.dev.CreateFence()
	if err != nil {
		d.release()
		return nil, fmt.Errorf("wgpu: new device %q: create timeline fence: %w", d.label, err)
	}
	d.queue = &Queue{dev: d, timeline: timeline}
	return d, nil
}

// open creates a standalone Vulkan-backed device, preferring discrete then
// integrated adapters.
func (d *Device) open() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("wgpu: open %q: %w", d.label, ErrNoVulkan)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: open %q: create instance: %w", d.label, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return fmt.Errorf("wgpu: open %q: %w", d.label, ErrNoAdapter)
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("wgpu: open %q: adapter %q: %w", d.label, selected.Info.Name, err)
	}

	d.instance = instance
	d.dev = openDev.Device
	d.halQueue = openDev.Queue
	d.owns = true

	swapchain.Logger().Info("wgpu: standalone device opened",
		"label", d.label, "adapter", selected.Info.Name)
	return nil
}

// CreateImage allocates a HAL texture with a full-resource view.
func (d *Device) CreateImage(desc driver.ImageDescriptor) (driver.Image, error) {
	if err := d.alive(); err != nil {
		return nil, fmt.Errorf("create image %q: %w", desc.Label, err)
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", driver.ErrInvalidSize, desc.Width, desc.Height)
	}

	tex, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create image %q: %w", desc.Label, err)
	}
	view, err := d.dev.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: desc.Label + "/view",
	})
	if err != nil {
		d.dev.DestroyTexture(tex)
		return nil, fmt.Errorf("wgpu: create image %q: create view: %w", desc.Label, err)
	}
	return &Image{dev: d, tex: tex, view: view, desc: desc}, nil
}

// WrapImage adopts a caller-owned hal.Texture, creating only the view.
func (d *Device) WrapImage(native any, desc driver.ImageDescriptor) (driver.Image, error) {
	if err := d.alive(); err != nil {
		return nil, fmt.Errorf("wrap image %q: %w", desc.Label, err)
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", driver.ErrInvalidSize, desc.Width, desc.Height)
	}
	tex, ok := native.(hal.Texture)
	if !ok || tex == nil {
		return nil, fmt.Errorf("wgpu: wrap image %q: native %T is not a hal.Texture", desc.Label, native)
	}

	view, err := d.dev.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: desc.Label + "/view",
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: wrap image %q: create view: %w", desc.Label, err)
	}
	return &Image{dev: d, tex: tex, view: view, desc: desc, wrapped: true}, nil
}

// DestroyImage releases an image. Wrapped images keep their underlying
// texture. Idempotent.
func (d *Device) DestroyImage(img driver.Image) {
	n, ok := img.(*Image)
	if !ok || n == nil {
		return
	}
	if n.destroyed.Swap(true) {
		return
	}
	d.dev.DestroyTextureView(n.view)
	if !n.wrapped {
		d.dev.DestroyTexture(n.tex)
	}
}

// CreateRenderPass builds a pass over the descriptor's attachments. The HAL
// rebuilds its pass state on every begin, so the pass owns no GPU resources;
// creation validates attachments and fixes the load op.
func (d *Device) CreateRenderPass(desc driver.RenderPassDescriptor) (driver.RenderPass, error) {
	if err := d.alive(); err != nil {
		return nil, fmt.Errorf("create render pass %q: %w", desc.Label, err)
	}
	color, ok := desc.ColorImage.(*Image)
	if !ok || color == nil {
		return nil, fmt.Errorf("wgpu: create render pass %q: color image %T", desc.Label, desc.ColorImage)
	}
	if color.desc.Usage&gputypes.TextureUsageRenderAttachment == 0 {
		return nil, fmt.Errorf("wgpu: create render pass %q: color image usage lacks RenderAttachment", desc.Label)
	}

	rp := &RenderPass{desc: desc, color: color}
	if desc.DepthImage != nil {
		depth, ok := desc.DepthImage.(*Image)
		if !ok || depth == nil {
			return nil, fmt.Errorf("wgpu: create render pass %q: depth image %T", desc.Label, desc.DepthImage)
		}
		rp.depth = depth
	}
	return rp, nil
}

// DestroyRenderPass releases a render pass. Passes own no GPU resources, so
// this is a no-op.
func (d *Device) DestroyRenderPass(driver.RenderPass) {}

// CreateSemaphore returns a stateless ordering token; the single HAL
// timeline already orders submissions.
func (d *Device) CreateSemaphore() (driver.Semaphore, error) {
	if err := d.alive(); err != nil {
		return nil, fmt.Errorf("create semaphore: %w", err)
	}
	return &Semaphore{}, nil
}

// DestroySemaphore releases a semaphore. No-op.
func (d *Device) DestroySemaphore(driver.Semaphore) {}

// CreateCommandBuffer allocates a command buffer ready for Begin.
func (d *Device) CreateCommandBuffer() (driver.CommandBuffer, error) {
	if err := d.alive(); err != nil {
		return nil, fmt.Errorf("create command buffer: %w", err)
	}
	return &CommandBuffer{dev: d, label: d.label + "/cmd"}, nil
}

// DestroyCommandBuffer releases a command buffer and its HAL resources.
func (d *Device) DestroyCommandBuffer(cb driver.CommandBuffer) {
	c, ok := cb.(*CommandBuffer)
	if !ok || c == nil {
		return
	}
	c.destroy()
}

// CreateFence creates a fence for observing submission completion. Fences
// are points on the queue timeline; see Fence.
func (d *Device) CreateFence() (*Fence, error) {
	if err := d.alive(); err != nil {
		return nil, fmt.Errorf("create fence: %w", err)
	}
	return &Fence{q: d.queue}, nil
}

// GraphicsQueue returns the queue swapchain submissions go to.
func (d *Device) GraphicsQueue() driver.Queue { return d.queue }

// Destroy waits for pending work and releases the device. Adopted HAL
// handles stay alive; standalone devices are closed. Idempotent.
func (d *Device) Destroy() {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.destroyed = true
	d.mu.Unlock()

	if err := d.queue.WaitIdle(); err != nil {
		swapchain.Logger().Warn("wgpu: destroy: wait idle failed", "label", d.label, "error", err)
	}
	d.dev.DestroyFence(d.queue.timeline)
	d.release()
}

// alive reports an error once the device is destroyed.
func (d *Device) alive() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return ErrDeviceDestroyed
	}
	return nil
}

// release closes owned HAL objects.
func (d *Device) release() {
	if !d.owns {
		return
	}
	if d.dev != nil {
		d.dev.Destroy()
		d.dev = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}

// RenderPass is a pass description bound to its attachments. Two passes over
// the same attachments that differ only in load op are distinct instances.
type RenderPass struct {
	desc  driver.RenderPassDescriptor
	color *Image
	depth *Image
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
		Width:  r.color.desc.Width,
		Height: r.color.desc.Height,
	}
}
