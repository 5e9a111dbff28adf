// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"github.com/gogpu/gputypes"
	vk "github.com/goki/vulkan"

	"github.com/gogpu/swapchain/driver"
)

// toVkFormat maps a texture format onto its Vulkan equivalent, or
// vk.FormatUndefined when the backend does not handle the format.
func toVkFormat(f gputypes.TextureFormat) vk.Format {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case gputypes.TextureFormatRGBA8UnormSrgb:
		return vk.FormatR8g8b8a8Srgb
	case gputypes.TextureFormatBGRA8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case gputypes.TextureFormatBGRA8UnormSrgb:
		return vk.FormatB8g8r8a8Srgb
	case gputypes.TextureFormatDepth24PlusStencil8:
		return vk.FormatD24UnormS8Uint
	default:
		return vk.FormatUndefined
	}
}

// fromVkFormat is the inverse of toVkFormat. Unknown formats map to
// gputypes.TextureFormatUndefined.
func fromVkFormat(f vk.Format) gputypes.TextureFormat {
	switch f {
	case vk.FormatR8g8b8a8Unorm:
		return gputypes.TextureFormatRGBA8Unorm
	case vk.FormatR8g8b8a8Srgb:
		return gputypes.TextureFormatRGBA8UnormSrgb
	case vk.FormatB8g8r8a8Unorm:
		return gputypes.TextureFormatBGRA8Unorm
	case vk.FormatB8g8r8a8Srgb:
		return gputypes.TextureFormatBGRA8UnormSrgb
	case vk.FormatD24UnormS8Uint:
		return gputypes.TextureFormatDepth24PlusStencil8
	default:
		return gputypes.TextureFormatUndefined
	}
}

// isDepthFormat reports whether f carries a depth aspect.
func isDepthFormat(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatDepth24PlusStencil8
}

// aspectFor returns the image aspect flags matching a format.
func aspectFor(f gputypes.TextureFormat) vk.ImageAspectFlags {
	if isDepthFormat(f) {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

// toVkUsage maps texture usage flags onto Vulkan image usage flags.
// RenderAttachment resolves per format: depth formats become depth/stencil
// attachments, everything else a color attachment.
func toVkUsage(u gputypes.TextureUsage, f gputypes.TextureFormat) vk.ImageUsageFlags {
	var out vk.ImageUsageFlags
	if u&gputypes.TextureUsageRenderAttachment != 0 {
		if isDepthFormat(f) {
			out |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
		} else {
			out |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
		}
	}
	if u&gputypes.TextureUsageCopySrc != 0 {
		out |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	}
	if u&gputypes.TextureUsageCopyDst != 0 {
		out |= vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	}
	if u&gputypes.TextureUsageTextureBinding != 0 {
		out |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	if u&gputypes.TextureUsageStorageBinding != 0 {
		out |= vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	}
	return out
}

// toVkLayout maps a driver layout onto a Vulkan image layout.
func toVkLayout(l driver.ImageLayout) vk.ImageLayout {
	switch l {
	case driver.ImageLayoutUndefined:
		return vk.ImageLayoutUndefined
	case driver.ImageLayoutPresent:
		return vk.ImageLayoutPresentSrc
	case driver.ImageLayoutRenderTarget:
		return vk.ImageLayoutColorAttachmentOptimal
	case driver.ImageLayoutCopySrc:
		return vk.ImageLayoutTransferSrcOptimal
	case driver.ImageLayoutCopyDst:
		return vk.ImageLayoutTransferDstOptimal
	case driver.ImageLayoutDepthStencil:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case driver.ImageLayoutSampled:
		return vk.ImageLayoutShaderReadOnlyOptimal
	default:
		return vk.ImageLayoutUndefined
	}
}

// toVkLoadOp maps a load op onto its Vulkan attachment load op.
func toVkLoadOp(op gputypes.LoadOp) vk.AttachmentLoadOp {
	if op == gputypes.LoadOpLoad {
		return vk.AttachmentLoadOpLoad
	}
	return vk.AttachmentLoadOpClear
}

// toVkPresentMode maps a driver present mode onto its Vulkan equivalent.
// FIFO is the fallback; it is the only mode Vulkan requires a device to support.
func toVkPresentMode(m driver.PresentMode) vk.PresentMode {
	switch m {
	case driver.PresentModeMailbox:
		return vk.PresentModeMailbox
	case driver.PresentModeImmediate:
		return vk.PresentModeImmediate
	default:
		return vk.PresentModeFifo
	}
}

// srcSync returns the pipeline stage and access mask to wait on when
// transitioning an image out of the given layout.
func srcSync(l vk.ImageLayout) (vk.PipelineStageFlags, vk.AccessFlags) {
	switch l {
	case vk.ImageLayoutUndefined:
		return vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), 0
	case vk.ImageLayoutPresentSrc:
		// The acquire semaphore orders against the presentation engine;
		// no memory access to flush.
		return vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), 0
	case vk.ImageLayoutColorAttachmentOptimal:
		return vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	case vk.ImageLayoutTransferSrcOptimal:
		return vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.AccessFlags(vk.AccessTransferReadBit)
	case vk.ImageLayoutTransferDstOptimal:
		return vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.AccessFlags(vk.AccessTransferWriteBit)
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
			vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			vk.AccessFlags(vk.AccessShaderReadBit)
	default:
		return vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), 0
	}
}

// dstSync returns the pipeline stage and access mask to block when
// transitioning an image into the given layout.
func dstSync(l vk.ImageLayout) (vk.PipelineStageFlags, vk.AccessFlags) {
	switch l {
	case vk.ImageLayoutPresentSrc:
		// Presentation reads are synchronized by the present wait
		// semaphores, not by the barrier.
		return vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit), 0
	case vk.ImageLayoutColorAttachmentOptimal:
		return vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	case vk.ImageLayoutTransferSrcOptimal:
		return vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.AccessFlags(vk.AccessTransferReadBit)
	case vk.ImageLayoutTransferDstOptimal:
		return vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.AccessFlags(vk.AccessTransferWriteBit)
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
			vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit|vk.AccessDepthStencilAttachmentWriteBit)
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			vk.AccessFlags(vk.AccessShaderReadBit)
	default:
		return vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), 0
	}
}
