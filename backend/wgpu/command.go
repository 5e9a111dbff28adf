// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/swapchain/driver"
)

// Command buffer errors.
var (
	// ErrAlreadyRecording indicates Begin was called twice without End.
	ErrAlreadyRecording = errors.New("wgpu: command buffer already recording")

	// ErrNotRecording indicates End was called without an open Begin.
	ErrNotRecording = errors.New("wgpu: command buffer not recording")
)

// copyPitchAlignment is the BytesPerRow alignment WebGPU (and DX12) require
// for texture-buffer transfers.
const copyPitchAlignment = 256

// alignPitch rounds a row pitch up to copyPitchAlignment.
func alignPitch(bytesPerRow uint32) uint32 {
	return (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// pendingCopy is the host-side half of a recorded image copy. The encoder
// copies the source region into staging; the queue reads staging back and
// uploads it into the destination once the batch completes.
type pendingCopy struct {
	staging     hal.Buffer
	size        uint64
	bytesPerRow uint32
	dst         *Image
	region      driver.ImageCopy
}

// CommandBuffer records swapchain work through a HAL command encoder.
//
// Begin creates a fresh encoder and End seals it into a submittable HAL
// command buffer; reusing the driver-level buffer for the next frame frees
// the previous HAL buffer once its submission retires. Recording methods
// outside Begin/End panic, per the driver contract.
type CommandBuffer struct {
	dev   *Device
	label string

	recording bool
	encoder   hal.CommandEncoder
	pass      hal.RenderPassEncoder
	halBuf    hal.CommandBuffer
	copies    []pendingCopy
	err       error

	// submitted is the timeline value of the last submission that
	// included this buffer, 0 before the first submit.
	submitted uint64
}

var _ driver.CommandBuffer = (*CommandBuffer)(nil)

// Begin opens a recording scope on a fresh encoder, reclaiming the HAL
// buffer of the previous recording.
func (c *CommandBuffer) Begin() error {
	if c.recording {
		return fmt.Errorf("wgpu: begin %q: %w", c.label, ErrAlreadyRecording)
	}
	c.reclaim()

	encoder, err := c.dev.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: c.label,
	})
	if err != nil {
		return fmt.Errorf("wgpu: begin %q: create command encoder: %w", c.label, err)
	}
	if err := encoder.BeginEncoding(c.label); err != nil {
		return fmt.Errorf("wgpu: begin %q: begin encoding: %w", c.label, err)
	}

	c.encoder = encoder
	c.recording = true
	c.err = nil
	return nil
}

// End seals the recording into a submittable HAL command buffer. A record
// error (staging allocation failure, unsupported copy format) surfaces here
// and discards the encoding.
func (c *CommandBuffer) End() error {
	if !c.recording {
		return fmt.Errorf("wgpu: end %q: %w", c.label, ErrNotRecording)
	}
	if c.pass != nil {
		panic("wgpu: End with an open render pass")
	}
	c.recording = false

	if c.err != nil {
		c.encoder.DiscardEncoding()
		c.encoder = nil
		c.dev.queue.destroyStagings(c.copies)
		c.copies = nil
		return c.err
	}

	buf, err := c.encoder.EndEncoding()
	c.encoder = nil
	if err != nil {
		c.dev.queue.destroyStagings(c.copies)
		c.copies = nil
		return fmt.Errorf("wgpu: end %q: %w", c.label, err)
	}
	c.halBuf = buf
	return nil
}

// BeginRenderPass starts the pass described by info over the attachments it
// was built with. The HAL pass always spans the full attachment; a narrower
// info.RenderArea constrains the caller's own scissor state, which this
// backend does not manage.
func (c *CommandBuffer) BeginRenderPass(info driver.RenderPassBeginInfo) {
	c.mustRecord()
	rp, ok := info.Pass.(*RenderPass)
	if !ok || rp == nil {
		panic(fmt.Sprintf("wgpu: begin render pass: foreign render pass %T", info.Pass))
	}
	if c.pass != nil {
		panic("wgpu: render pass already open")
	}

	desc := &hal.RenderPassDescriptor{
		Label: rp.desc.Label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       rp.color.view,
			LoadOp:     rp.desc.LoadOp,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: info.ClearColor,
		}},
	}
	if rp.depth != nil {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              rp.depth.view,
			DepthLoadOp:       rp.desc.LoadOp,
			DepthStoreOp:      gputypes.StoreOpStore,
			DepthClearValue:   info.ClearDepthStencil.Depth,
			StencilLoadOp:     rp.desc.LoadOp,
			StencilStoreOp:    gputypes.StoreOpStore,
			StencilClearValue: info.ClearDepthStencil.Stencil,
		}
	}
	c.pass = c.encoder.BeginRenderPass(desc)
}

// EndRenderPass ends the open render pass.
func (c *CommandBuffer) EndRenderPass() {
	c.mustRecord()
	if c.pass == nil {
		panic("wgpu: EndRenderPass without an open render pass")
	}
	c.pass.End()
	c.pass = nil
}

// TransitionImageLayout records a usage barrier moving img between the HAL
// usage states the layouts map to.
func (c *CommandBuffer) TransitionImageLayout(img driver.Image, from, to driver.ImageLayout) {
	c.mustRecord()
	n, ok := img.(*Image)
	if !ok || n == nil {
		panic(fmt.Sprintf("wgpu: transition: foreign image %T", img))
	}
	if from == to {
		return
	}
	c.encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: n.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: usageFor(from),
			NewUsage: usageFor(to),
		},
	}})
}

// CopyImageToImage records a region copy from src to dst.
//
// The HAL has no texture-to-texture copy, so the copy is split: the encoder
// copies the source region into a staging buffer, and the queue resolves the
// staging buffer into the destination when the submission completes. The
// copy is visible to everything submitted afterwards.
func (c *CommandBuffer) CopyImageToImage(cp driver.ImageCopy, src, dst driver.Image) {
	c.mustRecord()
	s, ok := src.(*Image)
	if !ok || s == nil {
		panic(fmt.Sprintf("wgpu: copy: foreign source image %T", src))
	}
	d, ok := dst.(*Image)
	if !ok || d == nil {
		panic(fmt.Sprintf("wgpu: copy: foreign destination image %T", dst))
	}
	if c.err != nil {
		return
	}

	if cp.Extent.Width == 0 || cp.Extent.Height == 0 {
		c.fail(fmt.Errorf("wgpu: copy %q: %w: empty extent", c.label, driver.ErrInvalidSize))
		return
	}
	bpp := bytesPerPixel(s.desc.Format)
	if bpp == 0 || bytesPerPixel(d.desc.Format) == 0 {
		c.fail(fmt.Errorf("wgpu: copy %q: format %v to %v: %w",
			c.label, s.desc.Format, d.desc.Format, errors.ErrUnsupported))
		return
	}

	pitch := alignPitch(cp.Extent.Width * bpp)
	size := uint64(pitch) * uint64(cp.Extent.Height)
	staging, err := c.dev.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: c.label + "/copy_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		c.fail(fmt.Errorf("wgpu: copy %q: create staging buffer: %w", c.label, err))
		return
	}

	c.encoder.CopyTextureToBuffer(s.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  pitch,
			RowsPerImage: cp.Extent.Height,
		},
		TextureBase: hal.ImageCopyTexture{
			Texture:  s.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: cp.SrcOffset.X, Y: cp.SrcOffset.Y, Z: 0},
			Aspect:   gputypes.TextureAspectAll,
		},
		Size: hal.Extent3D{
			Width:              cp.Extent.Width,
			Height:             cp.Extent.Height,
			DepthOrArrayLayers: 1,
		},
	}})
	c.copies = append(c.copies, pendingCopy{
		staging:     staging,
		size:        size,
		bytesPerRow: pitch,
		dst:         d,
		region:      cp,
	})
}

// SetViewports enforces the recording contract and records nothing: the HAL
// binds viewport state through its pipeline encoders, outside this backend's
// scope.
func (c *CommandBuffer) SetViewports(_ []driver.Viewport) {
	c.mustRecord()
}

// SetScissors enforces the recording contract and records nothing, like
// SetViewports.
func (c *CommandBuffer) SetScissors(_ []driver.Rect) {
	c.mustRecord()
}

func (c *CommandBuffer) mustRecord() {
	if !c.recording {
		panic("wgpu: recording into a command buffer outside Begin/End")
	}
}

func (c *CommandBuffer) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// reclaim frees the previous recording's HAL buffer and any staging buffers
// a never-submitted recording left behind. A submitted buffer is freed only
// after its submission retires.
func (c *CommandBuffer) reclaim() {
	if c.halBuf != nil {
		if c.submitted > 0 {
			// Bounded wait; per-slot reuse means the submission has
			// normally retired long before the next Begin.
			_ = c.dev.queue.waitValue(c.submitted, gpuTimeout)
		}
		c.dev.dev.FreeCommandBuffer(c.halBuf)
		c.halBuf = nil
		c.submitted = 0
	}
	c.dev.queue.destroyStagings(c.copies)
	c.copies = nil
}

// destroy releases everything the buffer holds. Called by the device.
func (c *CommandBuffer) destroy() {
	if c.recording {
		c.encoder.DiscardEncoding()
		c.encoder = nil
		c.recording = false
	}
	c.reclaim()
}

// usageFor maps a driver image layout to the HAL usage state backing it.
// Present maps to RenderAttachment: this backend is headless, so presentable
// images rest as render attachments between frames.
func usageFor(layout driver.ImageLayout) gputypes.TextureUsage {
	switch layout {
	case driver.ImageLayoutRenderTarget, driver.ImageLayoutPresent:
		return gputypes.TextureUsageRenderAttachment
	case driver.ImageLayoutCopySrc:
		return gputypes.TextureUsageCopySrc
	case driver.ImageLayoutCopyDst:
		return gputypes.TextureUsageCopyDst
	case driver.ImageLayoutDepthStencil:
		return gputypes.TextureUsageRenderAttachment
	case driver.ImageLayoutSampled:
		return gputypes.TextureUsageTextureBinding
	default:
		return 0
	}
}

// bytesPerPixel returns the pixel stride of the copyable color formats, or 0
// for formats the copy path does not support.
func bytesPerPixel(format gputypes.TextureFormat) uint32 {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatBGRA8UnormSrgb:
		return 4
	default:
		return 0
	}
}
