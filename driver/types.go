// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"github.com/gogpu/gputypes"
)

// ImageLayout describes which access pattern an image is currently arranged
// for. WebGPU-style backends track layouts implicitly and treat transitions
// as no-ops; Vulkan-class backends turn them into pipeline barriers.
type ImageLayout uint32

// Image layouts.
const (
	// ImageLayoutUndefined is the layout of an image whose contents are
	// not yet defined. Transitioning away from it discards contents.
	ImageLayoutUndefined ImageLayout = iota

	// ImageLayoutPresent is the layout required for presentation.
	// Presentable images rest in this layout between frames.
	ImageLayoutPresent

	// ImageLayoutRenderTarget is the layout for color attachment output.
	ImageLayoutRenderTarget

	// ImageLayoutCopySrc is the layout for transfer reads.
	ImageLayoutCopySrc

	// ImageLayoutCopyDst is the layout for transfer writes.
	ImageLayoutCopyDst

	// ImageLayoutDepthStencil is the layout for depth/stencil attachment
	// output.
	ImageLayoutDepthStencil

	// ImageLayoutSampled is the layout for shader sampling.
	ImageLayoutSampled
)

// String returns a human-readable layout name.
func (l ImageLayout) String() string {
	switch l {
	case ImageLayoutUndefined:
		return "Undefined"
	case ImageLayoutPresent:
		return "Present"
	case ImageLayoutRenderTarget:
		return "RenderTarget"
	case ImageLayoutCopySrc:
		return "CopySrc"
	case ImageLayoutCopyDst:
		return "CopyDst"
	case ImageLayoutDepthStencil:
		return "DepthStencil"
	case ImageLayoutSampled:
		return "Sampled"
	default:
		return "Unknown"
	}
}

// PresentMode selects how presentation is paced against the display.
type PresentMode uint32

// Present modes.
const (
	// PresentModeFIFO queues frames and presents on vertical blank.
	// Always available; the default.
	PresentModeFIFO PresentMode = iota

	// PresentModeMailbox replaces the queued frame with the newest one,
	// presenting on vertical blank without backpressure.
	PresentModeMailbox

	// PresentModeImmediate presents without waiting for vertical blank.
	PresentModeImmediate
)

// String returns a human-readable present mode name.
func (m PresentMode) String() string {
	switch m {
	case PresentModeFIFO:
		return "FIFO"
	case PresentModeMailbox:
		return "Mailbox"
	case PresentModeImmediate:
		return "Immediate"
	default:
		return "Unknown"
	}
}

// Rect is an integer rectangle with a signed origin, used for render areas
// and scissors.
type Rect struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}

// Viewport is a floating-point viewport with a depth range.
type Viewport struct {
	X        float32
	Y        float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

// DepthStencilValue holds the clear values for a depth/stencil attachment.
type DepthStencilValue struct {
	Depth   float32
	Stencil uint32
}

// ImageCopy describes a region copy between two images. Offsets may differ
// per side so a smaller image can be centered on a larger one.
type ImageCopy struct {
	SrcOffset gputypes.Origin3D
	DstOffset gputypes.Origin3D
	Extent    gputypes.Extent3D
}

// ImageDescriptor describes an image to create or wrap.
type ImageDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Width and Height are the image dimensions in pixels. Both must be
	// non-zero.
	Width  uint32
	Height uint32

	// Format is the pixel format.
	Format gputypes.TextureFormat

	// Usage declares how the image will be used.
	Usage gputypes.TextureUsage

	// InitialLayout is the layout the image starts in.
	InitialLayout ImageLayout
}

// RenderPassDescriptor describes a render pass over one color attachment and
// an optional depth/stencil attachment.
type RenderPassDescriptor struct {
	// Label is an optional debug label.
	Label string

	// ColorImage is the color attachment. Required.
	ColorImage Image

	// DepthImage is the depth/stencil attachment. Nil when the pass has
	// no depth attachment.
	DepthImage Image

	// LoadOp is the color attachment load operation. LoadOpClear passes
	// clear to black on begin; LoadOpLoad passes preserve existing
	// contents.
	LoadOp gputypes.LoadOp
}

// RenderPassBeginInfo carries the per-begin parameters of a render pass.
// Clear values only apply when the pass was built with a clear load op.
type RenderPassBeginInfo struct {
	Pass              RenderPass
	RenderArea        Rect
	ClearColor        gputypes.Color
	ClearDepthStencil DepthStencilValue
}

// DefaultImageUsage is the usage applied to freshly allocated presentable
// color images: they serve as render targets, blit endpoints, and sampled or
// storage inputs for post-processing.
const DefaultImageUsage = gputypes.TextureUsageRenderAttachment |
	gputypes.TextureUsageCopySrc |
	gputypes.TextureUsageCopyDst |
	gputypes.TextureUsageTextureBinding |
	gputypes.TextureUsageStorageBinding

// DefaultDepthUsage is the usage applied to freshly allocated depth/stencil
// images.
const DefaultDepthUsage = gputypes.TextureUsageRenderAttachment
