// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/swapchain/driver"
)

// ErrImageDestroyed indicates an operation on an image after DestroyImage.
var ErrImageDestroyed = errors.New("wgpu: image destroyed")

// Image is a HAL texture with a full-resource view. Wrapped images adopt a
// caller-owned texture; destroying them releases only the view.
type Image struct {
	dev       *Device
	tex       hal.Texture
	view      hal.TextureView
	desc      driver.ImageDescriptor
	wrapped   bool
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

// ReadPixels blocks until submitted work completes and returns the image
// contents as RGBA. The image needs a 4-byte color format and CopySrc usage;
// anything else reports errors.ErrUnsupported.
//
// The readback rides the queue timeline: transition to CopySrc, copy into a
// staging buffer with WebGPU row alignment, wait, read, transition back.
func (n *Image) ReadPixels() (*image.RGBA, error) {
	if n.destroyed.Load() {
		return nil, fmt.Errorf("wgpu: read pixels %q: %w", n.desc.Label, ErrImageDestroyed)
	}
	bpp := bytesPerPixel(n.desc.Format)
	if bpp == 0 {
		return nil, fmt.Errorf("wgpu: read pixels %q: format %v: %w",
			n.desc.Label, n.desc.Format, errors.ErrUnsupported)
	}
	if n.desc.Usage&gputypes.TextureUsageCopySrc == 0 {
		return nil, fmt.Errorf("wgpu: read pixels %q: usage lacks CopySrc: %w",
			n.desc.Label, errors.ErrUnsupported)
	}

	dev := n.dev
	w, h := n.desc.Width, n.desc.Height
	pitch := alignPitch(w * bpp)
	size := uint64(pitch) * uint64(h)

	staging, err := dev.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: n.desc.Label + "/readback_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: read pixels %q: create staging buffer: %w", n.desc.Label, err)
	}
	defer dev.dev.DestroyBuffer(staging)

	encoder, err := dev.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: n.desc.Label + "/readback",
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: read pixels %q: create command encoder: %w", n.desc.Label, err)
	}
	if err := encoder.BeginEncoding(n.desc.Label + "/readback"); err != nil {
		return nil, fmt.Errorf("wgpu: read pixels %q: begin encoding: %w", n.desc.Label, err)
	}

	// Swapchain images rest in attachment usage between frames. Move to
	// CopySrc for the transfer and restore afterwards so the next frame's
	// barriers see the expected state.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: n.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(n.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  pitch,
			RowsPerImage: h,
		},
		TextureBase: hal.ImageCopyTexture{
			Texture:  n.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: 0, Y: 0, Z: 0},
			Aspect:   gputypes.TextureAspectAll,
		},
		Size: hal.Extent3D{
			Width:              w,
			Height:             h,
			DepthOrArrayLayers: 1,
		},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: n.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	buf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: read pixels %q: end encoding: %w", n.desc.Label, err)
	}
	defer dev.dev.FreeCommandBuffer(buf)

	value, err := dev.queue.submitRaw([]hal.CommandBuffer{buf})
	if err != nil {
		return nil, fmt.Errorf("wgpu: read pixels %q: %w", n.desc.Label, err)
	}
	if err := dev.queue.waitValue(value, gpuTimeout); err != nil {
		return nil, fmt.Errorf("wgpu: read pixels %q: %w", n.desc.Label, err)
	}

	data := make([]byte, size)
	if err := dev.halQueue.ReadBuffer(staging, 0, data); err != nil {
		return nil, fmt.Errorf("wgpu: read pixels %q: readback: %w", n.desc.Label, err)
	}

	// Strip row padding and swizzle BGRA to RGBA where needed.
	bgra := n.desc.Format == gputypes.TextureFormatBGRA8Unorm ||
		n.desc.Format == gputypes.TextureFormatBGRA8UnormSrgb
	rowBytes := int(w * bpp)
	out := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for y := 0; y < int(h); y++ {
		src := data[y*int(pitch) : y*int(pitch)+rowBytes]
		dst := out.Pix[y*out.Stride : y*out.Stride+rowBytes]
		if !bgra {
			copy(dst, src)
			continue
		}
		for x := 0; x < rowBytes; x += 4 {
			dst[x+0] = src[x+2]
			dst[x+1] = src[x+1]
			dst[x+2] = src[x+0]
			dst[x+3] = src[x+3]
		}
	}
	return out, nil
}
