// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"errors"
	"fmt"
	"sync/atomic"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/swapchain/driver"
)

// Command buffer errors.
var (
	// ErrAlreadyRecording indicates Begin was called twice without End.
	ErrAlreadyRecording = errors.New("vulkan: command buffer already recording")

	// ErrNotRecording indicates End was called without an open Begin.
	ErrNotRecording = errors.New("vulkan: command buffer not recording")
)

// CommandBuffer records swapchain work into a pooled primary command buffer.
//
// Begin resets the buffer and opens a recording scope; End seals it for
// Queue.Submit. Recording methods outside Begin/End panic, per the driver
// contract.
type CommandBuffer struct {
	dev *Device
	cb  vk.CommandBuffer

	recording bool
	finished  bool
	inPass    bool
	err       error

	destroyed atomic.Bool
}

var _ driver.CommandBuffer = (*CommandBuffer)(nil)

// Begin resets the buffer and opens a recording scope. The pool is created
// with the reset bit, so per-buffer reset is enough to recycle it each frame.
func (c *CommandBuffer) Begin() error {
	if c.recording {
		return fmt.Errorf("vulkan: begin: %w", ErrAlreadyRecording)
	}
	if err := vk.Error(vk.ResetCommandBuffer(c.cb, 0)); err != nil {
		return fmt.Errorf("vulkan: begin: reset: %w", err)
	}
	res := vk.BeginCommandBuffer(c.cb, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	})
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("vulkan: begin: %w", err)
	}
	c.recording = true
	c.finished = false
	c.err = nil
	return nil
}

// End seals the recording for submission. A record error (an empty copy
// extent) surfaces here and leaves the buffer unsubmittable.
func (c *CommandBuffer) End() error {
	if !c.recording {
		return fmt.Errorf("vulkan: end: %w", ErrNotRecording)
	}
	if c.inPass {
		panic("vulkan: End with an open render pass")
	}
	c.recording = false

	// Close the Vulkan recording scope even when a record error is
	// pending, so the buffer can be reset and reused.
	res := vk.EndCommandBuffer(c.cb)
	if c.err != nil {
		return c.err
	}
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("vulkan: end: %w", err)
	}
	c.finished = true
	return nil
}

// BeginRenderPass starts the pass over its compiled framebuffer. A zero
// info.RenderArea spans the full attachment. Clear values apply when the pass
// was built with a clear load op.
func (c *CommandBuffer) BeginRenderPass(info driver.RenderPassBeginInfo) {
	c.mustRecord()
	rp, ok := info.Pass.(*RenderPass)
	if !ok || rp == nil {
		panic(fmt.Sprintf("vulkan: begin render pass: foreign render pass %T", info.Pass))
	}
	if c.inPass {
		panic("vulkan: render pass already open")
	}

	area := info.RenderArea
	if area.Width == 0 || area.Height == 0 {
		area = rp.RenderArea()
	}
	clears := []vk.ClearValue{vk.NewClearValue([]float32{
		float32(info.ClearColor.R),
		float32(info.ClearColor.G),
		float32(info.ClearColor.B),
		float32(info.ClearColor.A),
	})}
	if rp.depth != nil {
		clears = append(clears, vk.NewClearDepthStencil(
			info.ClearDepthStencil.Depth, info.ClearDepthStencil.Stencil))
	}

	vk.CmdBeginRenderPass(c.cb, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.pass,
		Framebuffer: rp.fb,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: area.X, Y: area.Y},
			Extent: vk.Extent2D{Width: area.Width, Height: area.Height},
		},
		ClearValueCount: uint32(len(clears)),
		PClearValues:    clears,
	}, vk.SubpassContentsInline)
	c.inPass = true

	// The subpass delivers attachments in attachment layout.
	rp.color.setLayout(driver.ImageLayoutRenderTarget)
	if rp.depth != nil {
		rp.depth.setLayout(driver.ImageLayoutDepthStencil)
	}
}

// EndRenderPass ends the open render pass.
func (c *CommandBuffer) EndRenderPass() {
	c.mustRecord()
	if !c.inPass {
		panic("vulkan: EndRenderPass without an open render pass")
	}
	vk.CmdEndRenderPass(c.cb)
	c.inPass = false
}

// TransitionImageLayout records a pipeline barrier moving img between layouts.
// Transitioning from Undefined discards contents.
func (c *CommandBuffer) TransitionImageLayout(img driver.Image, from, to driver.ImageLayout) {
	c.mustRecord()
	n, ok := img.(*Image)
	if !ok || n == nil {
		panic(fmt.Sprintf("vulkan: transition: foreign image %T", img))
	}
	if from == to {
		return
	}
	src := from
	if n.currentLayout() == driver.ImageLayoutUndefined && from != driver.ImageLayoutUndefined {
		// First transition of a fresh image. The caller names the
		// steady-state layout, but the image has never been placed in
		// it; Undefined is the valid old layout until then.
		src = driver.ImageLayoutUndefined
	}
	recordBarrier(c.cb, n, toVkLayout(src), toVkLayout(to))
	n.setLayout(to)
}

// CopyImageToImage records a region copy from src to dst. Both images must be
// transitioned to the transfer layouts before the copy executes.
func (c *CommandBuffer) CopyImageToImage(cp driver.ImageCopy, src, dst driver.Image) {
	c.mustRecord()
	s, ok := src.(*Image)
	if !ok || s == nil {
		panic(fmt.Sprintf("vulkan: copy: foreign source image %T", src))
	}
	d, ok := dst.(*Image)
	if !ok || d == nil {
		panic(fmt.Sprintf("vulkan: copy: foreign destination image %T", dst))
	}
	if c.err != nil {
		return
	}
	if cp.Extent.Width == 0 || cp.Extent.Height == 0 {
		c.fail(fmt.Errorf("vulkan: copy: %w: empty extent", driver.ErrInvalidSize))
		return
	}

	layers := vk.ImageSubresourceLayers{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		MipLevel:       0,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
	vk.CmdCopyImage(c.cb,
		s.img, vk.ImageLayoutTransferSrcOptimal,
		d.img, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageCopy{{
			SrcSubresource: layers,
			SrcOffset: vk.Offset3D{
				X: int32(cp.SrcOffset.X),
				Y: int32(cp.SrcOffset.Y),
			},
			DstSubresource: layers,
			DstOffset: vk.Offset3D{
				X: int32(cp.DstOffset.X),
				Y: int32(cp.DstOffset.Y),
			},
			Extent: vk.Extent3D{
				Width:  cp.Extent.Width,
				Height: cp.Extent.Height,
				Depth:  1,
			},
		}})
}

// SetViewports records dynamic viewport state.
func (c *CommandBuffer) SetViewports(viewports []driver.Viewport) {
	c.mustRecord()
	if len(viewports) == 0 {
		return
	}
	vps := make([]vk.Viewport, len(viewports))
	for i, v := range viewports {
		vps[i] = vk.Viewport{
			X:        v.X,
			Y:        v.Y,
			Width:    v.Width,
			Height:   v.Height,
			MinDepth: v.MinDepth,
			MaxDepth: v.MaxDepth,
		}
	}
	vk.CmdSetViewport(c.cb, 0, uint32(len(vps)), vps)
}

// SetScissors records dynamic scissor state.
func (c *CommandBuffer) SetScissors(scissors []driver.Rect) {
	c.mustRecord()
	if len(scissors) == 0 {
		return
	}
	rects := make([]vk.Rect2D, len(scissors))
	for i, r := range scissors {
		rects[i] = vk.Rect2D{
			Offset: vk.Offset2D{X: r.X, Y: r.Y},
			Extent: vk.Extent2D{Width: r.Width, Height: r.Height},
		}
	}
	vk.CmdSetScissor(c.cb, 0, uint32(len(rects)), rects)
}

func (c *CommandBuffer) mustRecord() {
	if !c.recording {
		panic("vulkan: recording into a command buffer outside Begin/End")
	}
}

func (c *CommandBuffer) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}
