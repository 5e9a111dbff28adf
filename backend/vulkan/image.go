// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	stderrors "errors"
	"fmt"
	"image"
	"sync/atomic"
	"unsafe"

	"github.com/gogpu/gputypes"
	vk "github.com/goki/vulkan"

	"github.com/gogpu/swapchain/driver"
)

// ErrImageDestroyed indicates a read from a destroyed image.
var ErrImageDestroyed = stderrors.New("vulkan: image destroyed")

// Image is a vk.Image with bound memory and a full-resource view, or a
// wrapped caller-owned image (swapchain and XR runtime images).
type Image struct {
	dev      *Device
	img      vk.Image
	mem      vk.DeviceMemory
	view     vk.ImageView
	vkFormat vk.Format
	desc     driver.ImageDescriptor
	wrapped  bool

	// layout tracks the most recently recorded driver layout so readback
	// can issue a correct barrier. Recording updates it eagerly; the GPU
	// catches up at submit.
	layout    atomic.Uint32
	destroyed atomic.Bool
}

var (
	_ driver.Image       = (*Image)(nil)
	_ driver.ImageReader = (*Image)(nil)
)

// Width returns the image width in pixels.
func (n *Image) Width() uint32 { return n.desc.Width }

// Height returns the image height in pixels.
func (n *Image) Height() uint32 { return n.desc.Height }

// Format returns the pixel format.
func (n *Image) Format() gputypes.TextureFormat { return n.desc.Format }

// Usage returns the usage flags the image was created with.
func (n *Image) Usage() gputypes.TextureUsage { return n.desc.Usage }

func (n *Image) currentLayout() driver.ImageLayout {
	return driver.ImageLayout(n.layout.Load())
}

func (n *Image) setLayout(l driver.ImageLayout) {
	n.layout.Store(uint32(l))
}

// ReadPixels blocks until pending writes to the image complete and returns
// its contents as RGBA. The image must have been created with copy-source
// usage. The read copies through a host-visible staging buffer on a one-shot
// command buffer, so it is meant for captures and tests, not per-frame use.
func (n *Image) ReadPixels() (*image.RGBA, error) {
	if n.destroyed.Load() {
		return nil, fmt.Errorf("vulkan: read pixels %q: %w", n.desc.Label, ErrImageDestroyed)
	}
	if isDepthFormat(n.desc.Format) || toVkFormat(n.desc.Format) == vk.FormatUndefined {
		return nil, fmt.Errorf("vulkan: read pixels %q: format %v: %w",
			n.desc.Label, n.desc.Format, stderrors.ErrUnsupported)
	}
	if n.desc.Usage&gputypes.TextureUsageCopySrc == 0 {
		return nil, fmt.Errorf("vulkan: read pixels %q: usage lacks CopySrc: %w",
			n.desc.Label, stderrors.ErrUnsupported)
	}

	d := n.dev
	if err := d.alive(); err != nil {
		return nil, fmt.Errorf("read pixels %q: %w", n.desc.Label, err)
	}

	// Vulkan buffer-image copies are tightly packed with BufferRowLength
	// zero, so the staging buffer needs no row padding.
	size := vk.DeviceSize(n.desc.Width) * vk.DeviceSize(n.desc.Height) * 4

	var buf vk.Buffer
	res := vk.CreateBuffer(d.dev, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buf)
	if err := vk.Error(res); err != nil {
		return nil, fmt.Errorf("vulkan: read pixels %q: create staging: %w", n.desc.Label, err)
	}
	defer vk.DestroyBuffer(d.dev, buf, nil)

	var memReq vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.dev, buf, &memReq)
	memReq.Deref()
	typeIndex, err := d.findMemoryType(memReq.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, fmt.Errorf("vulkan: read pixels %q: %w", n.desc.Label, err)
	}
	var mem vk.DeviceMemory
	res = vk.AllocateMemory(d.dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: typeIndex,
	}, nil, &mem)
	if err := vk.Error(res); err != nil {
		return nil, fmt.Errorf("vulkan: read pixels %q: allocate staging: %w", n.desc.Label, err)
	}
	defer vk.FreeMemory(d.dev, mem, nil)
	if err := vk.Error(vk.BindBufferMemory(d.dev, buf, mem, 0)); err != nil {
		return nil, fmt.Errorf("vulkan: read pixels %q: bind staging: %w", n.desc.Label, err)
	}

	if err := n.copyToBuffer(buf); err != nil {
		return nil, err
	}

	var pData unsafe.Pointer
	if err := vk.Error(vk.MapMemory(d.dev, mem, 0, size, 0, &pData)); err != nil {
		return nil, fmt.Errorf("vulkan: read pixels %q: map staging: %w", n.desc.Label, err)
	}
	src := unsafe.Slice((*byte)(pData), int(size))

	out := image.NewRGBA(image.Rect(0, 0, int(n.desc.Width), int(n.desc.Height)))
	if n.desc.Format == gputypes.TextureFormatBGRA8Unorm || n.desc.Format == gputypes.TextureFormatBGRA8UnormSrgb {
		for i := 0; i+3 < len(src); i += 4 {
			out.Pix[i+0] = src[i+2]
			out.Pix[i+1] = src[i+1]
			out.Pix[i+2] = src[i+0]
			out.Pix[i+3] = src[i+3]
		}
	} else {
		copy(out.Pix, src)
	}
	vk.UnmapMemory(d.dev, mem)
	return out, nil
}

// copyToBuffer records and runs a one-shot transfer of the full image into
// buf, waiting for completion. The image is returned to its prior layout.
func (n *Image) copyToBuffer(buf vk.Buffer) error {
	d := n.dev

	bufs := make([]vk.CommandBuffer, 1)
	res := vk.AllocateCommandBuffers(d.dev, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, bufs)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("vulkan: read pixels %q: allocate command buffer: %w", n.desc.Label, err)
	}
	cmd := bufs[0]
	defer vk.FreeCommandBuffers(d.dev, d.pool, 1, bufs)

	res = vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("vulkan: read pixels %q: begin: %w", n.desc.Label, err)
	}

	prior := n.currentLayout()
	recordBarrier(cmd, n, toVkLayout(prior), vk.ImageLayoutTransferSrcOptimal)
	vk.CmdCopyImageToBuffer(cmd, n.img, vk.ImageLayoutTransferSrcOptimal, buf, 1, []vk.BufferImageCopy{{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{
			Width:  n.desc.Width,
			Height: n.desc.Height,
			Depth:  1,
		},
	}})
	// An image that was never rendered to has no layout to restore; it
	// stays a transfer source.
	if prior != driver.ImageLayoutUndefined {
		recordBarrier(cmd, n, vk.ImageLayoutTransferSrcOptimal, toVkLayout(prior))
	} else {
		n.setLayout(driver.ImageLayoutCopySrc)
	}
	if err := vk.Error(vk.EndCommandBuffer(cmd)); err != nil {
		return fmt.Errorf("vulkan: read pixels %q: end: %w", n.desc.Label, err)
	}

	q := d.queue
	q.mu.Lock()
	res = vk.QueueSubmit(q.q, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}}, vk.NullFence)
	if res == vk.Success {
		res = vk.QueueWaitIdle(q.q)
	}
	q.mu.Unlock()
	return vkResultErr(fmt.Sprintf("read pixels %q", n.desc.Label), res)
}

// recordBarrier records a full-resource layout transition for img.
func recordBarrier(cmd vk.CommandBuffer, img *Image, from, to vk.ImageLayout) {
	srcStage, srcAccess := srcSync(from)
	dstStage, dstAccess := dstSync(to)
	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.img,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFor(img.desc.Format),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}})
}
