// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	vk "github.com/goki/vulkan"

	"github.com/gogpu/swapchain"
	"github.com/gogpu/swapchain/driver"
)

// Device errors.
var (
	// ErrNilHandles indicates NativeHandles was absent or missing its
	// physical device, logical device, or queue.
	ErrNilHandles = errors.New("vulkan: nil native handles")

	// ErrDeviceDestroyed indicates resource creation after Destroy.
	ErrDeviceDestroyed = errors.New("vulkan: device destroyed")

	// ErrUnsupportedFormat indicates a texture format with no Vulkan
	// mapping in this backend.
	ErrUnsupportedFormat = errors.New("vulkan: unsupported texture format")

	// ErrNoMemoryType indicates no device memory type satisfied an
	// allocation's requirements.
	ErrNoMemoryType = errors.New("vulkan: no suitable memory type")
)

func init() {
	// No availability probe: the loader and handles belong to the adopting
	// application, so availability is only decidable at open time.
	// driver.Default falls through to the next backend when opening
	// without handles fails.
	driver.Register("vulkan", 100, func(opts driver.Options) (driver.Device, error) {
		return NewDevice(opts)
	}, nil)
}

// NativeHandles adopts the application's Vulkan objects, passed through
// driver.Options.Native. The caller keeps ownership of all of them and must
// have initialized the loader (vk.Init) before opening the device.
//
// PresentQueue and PresentFamily are only consulted when PresentQueue is
// non-nil; by default presentation shares Queue and QueueFamily.
type NativeHandles struct {
	PhysicalDevice vk.PhysicalDevice
	Device         vk.Device

	// Queue is the graphics queue submissions go to.
	Queue vk.Queue

	// QueueFamily is Queue's family index, used for the command pool and
	// swapchain image sharing.
	QueueFamily uint32

	// PresentQueue is the queue presentation goes to when it lives on a
	// different family. Nil means Queue.
	PresentQueue vk.Queue

	// PresentFamily is PresentQueue's family index. Read only when
	// PresentQueue is non-nil.
	PresentFamily uint32
}

// Device is a driver.Device over an adopted Vulkan logical device.
// Construct with NewDevice or through the driver registry under the name
// "vulkan".
type Device struct {
	label         string
	phys          vk.PhysicalDevice
	dev           vk.Device
	queue         *Queue
	presentQueue  vk.Queue
	gfxFamily     uint32
	presentFamily uint32
	memProps      vk.PhysicalDeviceMemoryProperties
	pool          vk.CommandPool

	mu        sync.Mutex
	destroyed bool
}

var _ driver.Device = (*Device)(nil)

// NewDevice adopts the Vulkan handles in opts.Native, which must be a
// *NativeHandles. The device allocates its own command pool; everything else
// stays caller-owned.
func NewDevice(opts driver.Options) (*Device, error) {
	d := &Device{label: opts.Label}
	if d.label == "" {
		d.label = "vulkan"
	}

	switch native := opts.Native.(type) {
	case *NativeHandles:
		if native == nil || native.PhysicalDevice == nil || native.Device == nil || native.Queue == nil {
			return nil, fmt.Errorf("vulkan: new device %q: %w", d.label, ErrNilHandles)
		}
		d.phys = native.PhysicalDevice
		d.dev = native.Device
		d.gfxFamily = native.QueueFamily
		d.presentQueue = native.PresentQueue
		d.presentFamily = native.PresentFamily
		if d.presentQueue == nil {
			d.presentQueue = native.Queue
			d.presentFamily = native.QueueFamily
		}
		d.queue = &Queue{dev: d, q: native.Queue}
	case nil:
		return nil, fmt.Errorf("vulkan: new device %q: %w", d.label, ErrNilHandles)
	default:
		return nil, fmt.Errorf("vulkan: new device %q: unsupported native payload %T", d.label, opts.Native)
	}

	vk.GetPhysicalDeviceMemoryProperties(d.phys, &d.memProps)
	d.memProps.Deref()
	for i := range d.memProps.MemoryTypes {
		d.memProps.MemoryTypes[i].Deref()
	}

	var pool vk.CommandPool
	res := vk.CreateCommandPool(d.dev, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: d.gfxFamily,
	}, nil, &pool)
	if err := vk.Error(res); err != nil {
		return nil, fmt.Errorf("vulkan: new device %q: create command pool: %w", d.label, err)
	}
	d.pool = pool

	swapchain.Logger().Info("vulkan: device adopted",
		"label", d.label, "queueFamily", d.gfxFamily)
	return d, nil
}

// CreateImage allocates a device-local image with bound memory and a
// full-resource view.
func (d *Device) CreateImage(desc driver.ImageDescriptor) (driver.Image, error) {
	if err := d.alive(); err != nil {
		return nil, fmt.Errorf("create image %q: %w", desc.Label, err)
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", driver.ErrInvalidSize, desc.Width, desc.Height)
	}
	format := toVkFormat(desc.Format)
	if format == vk.FormatUndefined {
		return nil, fmt.Errorf("create image %q: %w: %v", desc.Label, ErrUnsupportedFormat, desc.Format)
	}

	var img vk.Image
	res := vk.CreateImage(d.dev, &vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         toVkUsage(desc.Usage, desc.Format),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &img)
	if err := vk.Error(res); err != nil {
		return nil, fmt.Errorf("vulkan: create image %q: %w", desc.Label, err)
	}

	var memReq vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.dev, img, &memReq)
	memReq.Deref()

	typeIndex, err := d.findMemoryType(memReq.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(d.dev, img, nil)
		return nil, fmt.Errorf("vulkan: create image %q: %w", desc.Label, err)
	}

	var mem vk.DeviceMemory
	res = vk.AllocateMemory(d.dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: typeIndex,
	}, nil, &mem)
	if err := vk.Error(res); err != nil {
		vk.DestroyImage(d.dev, img, nil)
		return nil, fmt.Errorf("vulkan: create image %q: allocate memory: %w", desc.Label, err)
	}
	if err := vk.Error(vk.BindImageMemory(d.dev, img, mem, 0)); err != nil {
		vk.FreeMemory(d.dev, mem, nil)
		vk.DestroyImage(d.dev, img, nil)
		return nil, fmt.Errorf("vulkan: create image %q: bind memory: %w", desc.Label, err)
	}

	view, err := d.createView(img, format, aspectFor(desc.Format))
	if err != nil {
		vk.FreeMemory(d.dev, mem, nil)
		vk.DestroyImage(d.dev, img, nil)
		return nil, fmt.Errorf("vulkan: create image %q: create view: %w", desc.Label, err)
	}

	n := &Image{dev: d, img: img, mem: mem, view: view, vkFormat: format, desc: desc}
	n.layout.Store(uint32(desc.InitialLayout))
	return n, nil
}

// WrapImage adopts a caller-owned vk.Image (a swapchain or XR runtime image),
// creating only the view. Destroying the wrapper never touches the native
// image or its memory.
func (d *Device) WrapImage(native any, desc driver.ImageDescriptor) (driver.Image, error) {
	if err := d.alive(); err != nil {
		return nil, fmt.Errorf("wrap image %q: %w", desc.Label, err)
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", driver.ErrInvalidSize, desc.Width, desc.Height)
	}
	img, ok := native.(vk.Image)
	if !ok {
		return nil, fmt.Errorf("vulkan: wrap image %q: native %T is not a vk.Image", desc.Label, native)
	}
	format := toVkFormat(desc.Format)
	if format == vk.FormatUndefined {
		return nil, fmt.Errorf("wrap image %q: %w: %v", desc.Label, ErrUnsupportedFormat, desc.Format)
	}

	view, err := d.createView(img, format, aspectFor(desc.Format))
	if err != nil {
		return nil, fmt.Errorf("vulkan: wrap image %q: create view: %w", desc.Label, err)
	}

	n := &Image{dev: d, img: img, view: view, vkFormat: format, desc: desc, wrapped: true}
	n.layout.Store(uint32(desc.InitialLayout))
	return n, nil
}

// DestroyImage releases an image. Wrapped images keep their underlying
// vk.Image and memory. Idempotent.
func (d *Device) DestroyImage(img driver.Image) {
	n, ok := img.(*Image)
	if !ok || n == nil {
		return
	}
	if n.destroyed.Swap(true) {
		return
	}
	vk.DestroyImageView(d.dev, n.view, nil)
	if !n.wrapped {
		vk.DestroyImage(d.dev, n.img, nil)
		vk.FreeMemory(d.dev, n.mem, nil)
	}
}

// CreateRenderPass compiles a vk.RenderPass over the descriptor's attachments
// and binds it to a framebuffer. The pass finishes with attachments still in
// attachment layout; presentation transitions are recorded separately.
func (d *Device) CreateRenderPass(desc driver.RenderPassDescriptor) (driver.RenderPass, error) {
	if err := d.alive(); err != nil {
		return nil, fmt.Errorf("create render pass %q: %w", desc.Label, err)
	}
	color, ok := desc.ColorImage.(*Image)
	if !ok || color == nil {
		return nil, fmt.Errorf("vulkan: create render pass %q: color image %T", desc.Label, desc.ColorImage)
	}
	if color.desc.Usage&gputypes.TextureUsageRenderAttachment == 0 {
		return nil, fmt.Errorf("vulkan: create render pass %q: color image usage lacks RenderAttachment", desc.Label)
	}

	var depth *Image
	if desc.DepthImage != nil {
		depth, ok = desc.DepthImage.(*Image)
		if !ok || depth == nil {
			return nil, fmt.Errorf("vulkan: create render pass %q: depth image %T", desc.Label, desc.DepthImage)
		}
		if depth.desc.Width != color.desc.Width || depth.desc.Height != color.desc.Height {
			return nil, fmt.Errorf("vulkan: create render pass %q: depth extent %dx%d != color %dx%d: %w",
				desc.Label, depth.desc.Width, depth.desc.Height, color.desc.Width, color.desc.Height,
				driver.ErrInvalidSize)
		}
	}

	loadOp := toVkLoadOp(desc.LoadOp)
	initialLayout := vk.ImageLayoutUndefined
	if loadOp == vk.AttachmentLoadOpLoad {
		initialLayout = vk.ImageLayoutColorAttachmentOptimal
	}

	attachments := []vk.AttachmentDescription{{
		Format:         color.vkFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         loadOp,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  initialLayout,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}}
	colorRef := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{colorRef},
	}
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	if depth != nil {
		depthInitial := vk.ImageLayoutUndefined
		if loadOp == vk.AttachmentLoadOpLoad {
			depthInitial = vk.ImageLayoutDepthStencilAttachmentOptimal
		}
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         depth.vkFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOp,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  loadOp,
			StencilStoreOp: vk.AttachmentStoreOpStore,
			InitialLayout:  depthInitial,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		depthRef := vk.AttachmentReference{
			Attachment: 1,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		subpass.PDepthStencilAttachment = &depthRef
		dependency.SrcStageMask |= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
		dependency.DstStageMask |= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
		dependency.DstAccessMask |= vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	}

	var pass vk.RenderPass
	res := vk.CreateRenderPass(d.dev, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}, nil, &pass)
	if err := vk.Error(res); err != nil {
		return nil, fmt.Errorf("vulkan: create render pass %q: %w", desc.Label, err)
	}

	views := []vk.ImageView{color.view}
	if depth != nil {
		views = append(views, depth.view)
	}
	var fb vk.Framebuffer
	res = vk.CreateFramebuffer(d.dev, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           color.desc.Width,
		Height:          color.desc.Height,
		Layers:          1,
	}, nil, &fb)
	if err := vk.Error(res); err != nil {
		vk.DestroyRenderPass(d.dev, pass, nil)
		return nil, fmt.Errorf("vulkan: create render pass %q: create framebuffer: %w", desc.Label, err)
	}

	return &RenderPass{desc: desc, color: color, depth: depth, pass: pass, fb: fb}, nil
}

// DestroyRenderPass releases the pass and its framebuffer. Idempotent.
func (d *Device) DestroyRenderPass(rp driver.RenderPass) {
	r, ok := rp.(*RenderPass)
	if !ok || r == nil {
		return
	}
	if r.destroyed.Swap(true) {
		return
	}
	vk.DestroyFramebuffer(d.dev, r.fb, nil)
	vk.DestroyRenderPass(d.dev, r.pass, nil)
}

// CreateSemaphore creates a binary Vulkan semaphore.
func (d *Device) CreateSemaphore() (driver.Semaphore, error) {
	if err := d.alive(); err != nil {
		return nil, fmt.Errorf("create semaphore: %w", err)
	}
	var sem vk.Semaphore
	res := vk.CreateSemaphore(d.dev, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &sem)
	if err := vk.Error(res); err != nil {
		return nil, fmt.Errorf("vulkan: create semaphore: %w", err)
	}
	return &Semaphore{dev: d, sem: sem}, nil
}

// DestroySemaphore releases a semaphore. Idempotent.
func (d *Device) DestroySemaphore(sem driver.Semaphore) {
	s, ok := sem.(*Semaphore)
	if !ok || s == nil {
		return
	}
	if s.destroyed.Swap(true) {
		return
	}
	vk.DestroySemaphore(d.dev, s.sem, nil)
}

// CreateCommandBuffer allocates a primary command buffer from the device
// pool, ready for Begin.
func (d *Device) CreateCommandBuffer() (driver.CommandBuffer, error) {
	if err := d.alive(); err != nil {
		return nil, fmt.Errorf("create command buffer: %w", err)
	}
	bufs := make([]vk.CommandBuffer, 1)
	res := vk.AllocateCommandBuffers(d.dev, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, bufs)
	if err := vk.Error(res); err != nil {
		return nil, fmt.Errorf("vulkan: create command buffer: %w", err)
	}
	return &CommandBuffer{dev: d, cb: bufs[0]}, nil
}

// DestroyCommandBuffer returns a command buffer to the pool. Idempotent.
func (d *Device) DestroyCommandBuffer(cb driver.CommandBuffer) {
	c, ok := cb.(*CommandBuffer)
	if !ok || c == nil {
		return
	}
	if c.destroyed.Swap(true) {
		return
	}
	vk.FreeCommandBuffers(d.dev, d.pool, 1, []vk.CommandBuffer{c.cb})
}

// CreateFence creates a fence for observing submission completion. The fence
// starts signaled so a wait before any submission returns immediately;
// attaching it to a submission or acquire resets it first.
func (d *Device) CreateFence() (*Fence, error) {
	if err := d.alive(); err != nil {
		return nil, fmt.Errorf("create fence: %w", err)
	}
	var f vk.Fence
	res := vk.CreateFence(d.dev, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}, nil, &f)
	if err := vk.Error(res); err != nil {
		return nil, fmt.Errorf("vulkan: create fence: %w", err)
	}
	return &Fence{dev: d, fence: f}, nil
}

// DestroyFence releases a fence. Idempotent.
func (d *Device) DestroyFence(f *Fence) {
	if f == nil || f.destroyed.Swap(true) {
		return
	}
	vk.DestroyFence(d.dev, f.fence, nil)
}

// GraphicsQueue returns the queue swapchain submissions go to.
func (d *Device) GraphicsQueue() driver.Queue { return d.queue }

// Destroy waits for the device to go idle and releases the command pool.
// Adopted handles stay caller-owned. Idempotent.
func (d *Device) Destroy() {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.destroyed = true
	d.mu.Unlock()

	if err := vk.Error(vk.DeviceWaitIdle(d.dev)); err != nil {
		swapchain.Logger().Warn("vulkan: destroy: wait idle failed", "label", d.label, "error", err)
	}
	vk.DestroyCommandPool(d.dev, d.pool, nil)
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

// createView builds a full-resource 2D view over img.
func (d *Device) createView(img vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	var view vk.ImageView
	res := vk.CreateImageView(d.dev, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}, nil, &view)
	if err := vk.Error(res); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

// findMemoryType picks a memory type matching the requirement bits and
// property flags.
func (d *Device) findMemoryType(typeBits uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < d.memProps.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		if d.memProps.MemoryTypes[i].PropertyFlags&props == props {
			return i, nil
		}
	}
	return 0, ErrNoMemoryType
}

// RenderPass is a compiled vk.RenderPass bound to a framebuffer over its
// attachments.
type RenderPass struct {
	desc  driver.RenderPassDescriptor
	color *Image
	depth *Image
	pass  vk.RenderPass
	fb    vk.Framebuffer

	destroyed atomic.Bool
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
