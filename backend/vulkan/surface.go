// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	vk "github.com/goki/vulkan"

	"github.com/gogpu/swapchain"
	"github.com/gogpu/swapchain/driver"
)

// ErrSurfaceDestroyed indicates surface use after Destroy.
var ErrSurfaceDestroyed = errors.New("vulkan: surface destroyed")

// SurfaceOptions configure NewSurface.
type SurfaceOptions struct {
	// Label prefixes the debug labels of the wrapped swapchain images.
	// Empty means "surface".
	Label string

	// Format is the preferred color format. When the surface cannot
	// provide it, the first surface format with a driver mapping wins.
	// Zero means BGRA8UnormSrgb.
	Format gputypes.TextureFormat

	// PresentMode is the requested pacing. Falls back to FIFO, the one
	// mode every surface supports.
	PresentMode driver.PresentMode

	// Width and Height size the swapchain when the window system leaves
	// the extent to the application. Most platforms dictate the extent
	// and ignore these.
	Width  uint32
	Height uint32
}

// Surface owns a vk.Swapchain built over an adopted vk.Surface. The adopting
// application creates the vk.Surface (through GLFW, SDL, or the platform
// extension directly) and keeps ownership of it; Destroy releases only the
// swapchain and its image wrappers.
type Surface struct {
	dev  *Device
	surf vk.Surface
	opts SurfaceOptions

	mu        sync.Mutex
	swapchain vk.Swapchain
	images    []driver.Image
	format    gputypes.TextureFormat
	width     uint32
	height    uint32
	destroyed bool
}

var _ driver.Surface = (*Surface)(nil)

// NewSurface builds a swapchain over a caller-created surface.
func NewSurface(dev *Device, surf vk.Surface, opts SurfaceOptions) (*Surface, error) {
	if err := dev.alive(); err != nil {
		return nil, fmt.Errorf("new surface: %w", err)
	}
	if surf == vk.NullSurface {
		return nil, fmt.Errorf("vulkan: new surface: %w", ErrNilHandles)
	}
	if opts.Label == "" {
		opts.Label = "surface"
	}
	if opts.Format == gputypes.TextureFormatUndefined {
		opts.Format = gputypes.TextureFormatBGRA8UnormSrgb
	}

	s := &Surface{dev: dev, surf: surf, opts: opts}
	if err := s.rebuild(opts.Width, opts.Height); err != nil {
		return nil, err
	}
	return s, nil
}

// rebuild negotiates surface support and builds a fresh swapchain, chaining
// the previous one through OldSwapchain. Callers hold s.mu (or are the
// constructor).
func (s *Surface) rebuild(width, height uint32) error {
	d := s.dev

	var caps vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(d.phys, s.surf, &caps)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("vulkan: surface %q: query capabilities: %w", s.opts.Label, err)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	var formatCount uint32
	res = vk.GetPhysicalDeviceSurfaceFormats(d.phys, s.surf, &formatCount, nil)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("vulkan: surface %q: query formats: %w", s.opts.Label, err)
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(d.phys, s.surf, &formatCount, formats)
	for i := range formats {
		formats[i].Deref()
	}
	surfFormat, format, err := pickFormat(formats, s.opts.Format)
	if err != nil {
		return fmt.Errorf("vulkan: surface %q: %w", s.opts.Label, err)
	}

	var modeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(d.phys, s.surf, &modeCount, nil)
	modes := make([]vk.PresentMode, modeCount)
	vk.GetPhysicalDeviceSurfacePresentModes(d.phys, s.surf, &modeCount, modes)

	extent := chooseExtent(caps, width, height)
	if extent.Width == 0 || extent.Height == 0 {
		return fmt.Errorf("vulkan: surface %q: %w: %dx%d",
			s.opts.Label, driver.ErrInvalidSize, extent.Width, extent.Height)
	}

	// Transfer usage enables captures and indirect-target blits; drop the
	// bits the surface cannot provide.
	usage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|
		vk.ImageUsageTransferSrcBit|
		vk.ImageUsageTransferDstBit) & caps.SupportedUsageFlags
	if usage&vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) == 0 {
		return fmt.Errorf("vulkan: surface %q: surface does not support color attachment", s.opts.Label)
	}

	preTransform := caps.CurrentTransform
	if caps.SupportedTransforms&vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit) != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}

	// One of these is guaranteed to be set.
	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, candidate := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(candidate) != 0 {
			compositeAlpha = candidate
			break
		}
	}

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.surf,
		MinImageCount:    chooseImageCount(caps),
		ImageFormat:      surfFormat.Format,
		ImageColorSpace:  surfFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       usage,
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      pickPresentMode(modes, s.opts.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     s.swapchain,
	}
	if d.gfxFamily != d.presentFamily {
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = 2
		info.PQueueFamilyIndices = []uint32{d.gfxFamily, d.presentFamily}
	}

	var newChain vk.Swapchain
	res = vk.CreateSwapchain(d.dev, &info, nil, &newChain)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("vulkan: surface %q: create swapchain: %w", s.opts.Label, err)
	}

	// The old swapchain is retired by OldSwapchain chaining; its wrappers
	// and handle can go now.
	s.releaseImages()
	if s.swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(d.dev, s.swapchain, nil)
	}
	s.swapchain = newChain

	var imageCount uint32
	res = vk.GetSwapchainImages(d.dev, newChain, &imageCount, nil)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("vulkan: surface %q: query images: %w", s.opts.Label, err)
	}
	raw := make([]vk.Image, imageCount)
	vk.GetSwapchainImages(d.dev, newChain, &imageCount, raw)

	imgUsage := gputypes.TextureUsageRenderAttachment
	if usage&vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) != 0 {
		imgUsage |= gputypes.TextureUsageCopySrc
	}
	if usage&vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) != 0 {
		imgUsage |= gputypes.TextureUsageCopyDst
	}

	s.images = make([]driver.Image, len(raw))
	for i, img := range raw {
		wrapped, err := d.WrapImage(img, driver.ImageDescriptor{
			Label:         fmt.Sprintf("%s/image[%d]", s.opts.Label, i),
			Width:         extent.Width,
			Height:        extent.Height,
			Format:        format,
			Usage:         imgUsage,
			InitialLayout: driver.ImageLayoutUndefined,
		})
		if err != nil {
			s.releaseImages()
			vk.DestroySwapchain(d.dev, s.swapchain, nil)
			s.swapchain = vk.NullSwapchain
			return fmt.Errorf("vulkan: surface %q: wrap image %d: %w", s.opts.Label, i, err)
		}
		s.images[i] = wrapped
	}
	s.format = format
	s.width = extent.Width
	s.height = extent.Height

	swapchain.Logger().Info("vulkan: swapchain built",
		"label", s.opts.Label,
		"width", s.width, "height", s.height,
		"images", len(s.images), "format", format)
	return nil
}

// releaseImages destroys the swapchain image wrappers. The underlying images
// stay owned by the swapchain.
func (s *Surface) releaseImages() {
	for _, img := range s.images {
		s.dev.DestroyImage(img)
	}
	s.images = nil
}

// ImageCount returns the number of swapchain images.
func (s *Surface) ImageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// Images returns the wrapped swapchain images. Recreate and Destroy
// invalidate them.
func (s *Surface) Images() []driver.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images
}

// Format returns the negotiated color format.
func (s *Surface) Format() gputypes.TextureFormat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

// Extent returns the current swapchain dimensions.
func (s *Surface) Extent() (width, height uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// AcquireNextImage blocks up to timeoutNanos for the next presentable image.
// A suboptimal result still carries a valid index; the caller decides when to
// recreate.
func (s *Surface) AcquireNextImage(timeoutNanos uint64, signal driver.Semaphore, fence driver.Fence) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return 0, fmt.Errorf("vulkan: acquire: %w", ErrSurfaceDestroyed)
	}

	var sem vk.Semaphore
	if signal != nil {
		ss, ok := signal.(*Semaphore)
		if !ok {
			return 0, fmt.Errorf("vulkan: acquire: foreign signal semaphore %T", signal)
		}
		sem = ss.sem
	}
	vkFence := vk.NullFence
	if fence != nil {
		f, ok := fence.(*Fence)
		if !ok {
			return 0, fmt.Errorf("vulkan: acquire: foreign fence %T", fence)
		}
		if err := f.Reset(); err != nil {
			return 0, fmt.Errorf("vulkan: acquire: %w", err)
		}
		vkFence = f.fence
	}

	var idx uint32
	res := vk.AcquireNextImage(s.dev.dev, s.swapchain, timeoutNanos, sem, vkFence, &idx)
	switch res {
	case vk.Success:
		return int(idx), nil
	case vk.Suboptimal:
		return int(idx), driver.ErrSurfaceSuboptimal
	case vk.ErrorOutOfDate:
		return 0, driver.ErrSurfaceOutOfDate
	default:
		return 0, vkResultErr("acquire", res)
	}
}

// Present queues imageIndex for display after every semaphore in waits
// signals.
func (s *Surface) Present(imageIndex int, waits []driver.Semaphore) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return fmt.Errorf("vulkan: present: %w", ErrSurfaceDestroyed)
	}
	if imageIndex < 0 || imageIndex >= len(s.images) {
		count := len(s.images)
		s.mu.Unlock()
		return fmt.Errorf("vulkan: present: image index %d out of range [0,%d)", imageIndex, count)
	}
	chain := s.swapchain
	s.mu.Unlock()

	var sems []vk.Semaphore
	for _, w := range waits {
		if w == nil {
			continue
		}
		sem, ok := w.(*Semaphore)
		if !ok {
			return fmt.Errorf("vulkan: present: foreign wait semaphore %T", w)
		}
		sems = append(sems, sem.sem)
	}

	info := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{chain},
		PImageIndices:  []uint32{uint32(imageIndex)},
	}
	if len(sems) > 0 {
		info.WaitSemaphoreCount = uint32(len(sems))
		info.PWaitSemaphores = sems
	}

	// The present queue may alias the graphics queue, and vkQueue access
	// is externally synchronized, so presentation shares the queue mutex.
	q := s.dev.queue
	q.mu.Lock()
	res := vk.QueuePresent(s.dev.presentQueue, &info)
	q.mu.Unlock()

	switch res {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		return driver.ErrSurfaceSuboptimal
	case vk.ErrorOutOfDate:
		return driver.ErrSurfaceOutOfDate
	default:
		return vkResultErr("present", res)
	}
}

// Recreate rebuilds the swapchain at the given size, invalidating previously
// returned images.
func (s *Surface) Recreate(width, height uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return fmt.Errorf("vulkan: recreate: %w", ErrSurfaceDestroyed)
	}
	// In-flight frames may still reference the retiring images.
	if err := s.dev.queue.WaitIdle(); err != nil {
		return fmt.Errorf("vulkan: recreate: %w", err)
	}
	return s.rebuild(width, height)
}

// Destroy releases the image wrappers and the swapchain. The adopted
// vk.Surface stays caller-owned. Idempotent.
func (s *Surface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.destroyed = true

	if err := s.dev.queue.WaitIdle(); err != nil {
		swapchain.Logger().Warn("vulkan: surface destroy: wait idle failed",
			"label", s.opts.Label, "error", err)
	}
	s.releaseImages()
	if s.swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(s.dev.dev, s.swapchain, nil)
		s.swapchain = vk.NullSwapchain
	}
}

// pickFormat returns the surface format to render through: the preferred
// format when the surface offers it, the first offering with a driver mapping
// otherwise. A single Undefined entry means the surface accepts any format, a
// legacy behavior some platforms keep.
func pickFormat(formats []vk.SurfaceFormat, preferred gputypes.TextureFormat) (vk.SurfaceFormat, gputypes.TextureFormat, error) {
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		if vkf := toVkFormat(preferred); vkf != vk.FormatUndefined {
			return vk.SurfaceFormat{Format: vkf, ColorSpace: formats[0].ColorSpace}, preferred, nil
		}
		return vk.SurfaceFormat{}, gputypes.TextureFormatUndefined, ErrUnsupportedFormat
	}
	if vkf := toVkFormat(preferred); vkf != vk.FormatUndefined {
		for _, f := range formats {
			if f.Format == vkf {
				return f, preferred, nil
			}
		}
	}
	for _, f := range formats {
		if mapped := fromVkFormat(f.Format); mapped != gputypes.TextureFormatUndefined {
			return f, mapped, nil
		}
	}
	return vk.SurfaceFormat{}, gputypes.TextureFormatUndefined, ErrUnsupportedFormat
}

// chooseExtent resolves the swapchain extent. The surface dictates it through
// CurrentExtent; the MaxUint32 sentinel leaves it to the application, clamped
// to the supported range.
func chooseExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clampExtent(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clampExtent(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// clampExtent clamps v to [lo, hi], treating hi of zero as unbounded.
func clampExtent(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

// chooseImageCount asks for one image beyond the minimum so acquire rarely
// blocks on the presentation engine, within the surface maximum (zero means
// unbounded).
func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// pickPresentMode returns the requested mode when the surface supports it and
// FIFO otherwise, the one mode support is mandatory for.
func pickPresentMode(modes []vk.PresentMode, want driver.PresentMode) vk.PresentMode {
	target := toVkPresentMode(want)
	for _, m := range modes {
		if m == target {
			return m
		}
	}
	return vk.PresentModeFifo
}
