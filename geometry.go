// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/driver"
)

// RenderArea returns a rectangle covering a full width x height target.
func RenderArea(width, height uint32) driver.Rect {
	return driver.Rect{X: 0, Y: 0, Width: width, Height: height}
}

// FullViewport returns a viewport covering a full width x height target
// with the standard 0..1 depth range.
func FullViewport(width, height uint32) driver.Viewport {
	return driver.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(width),
		Height:   float32(height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

// AspectRatio returns width divided by height, or 0 when height is zero.
func AspectRatio(width, height uint32) float32 {
	if height == 0 {
		return 0
	}
	return float32(width) / float32(height)
}

// CenteredCopy returns the region that composites a srcWidth x srcHeight
// image onto a dstWidth x dstHeight image. Each axis copies the minimum of
// the two sizes; on whichever side is larger, the offset centers the
// smaller image. Compositing 800x600 onto 1024x768 therefore copies an
// 800x600 extent to destination offset (112, 84).
func CenteredCopy(srcWidth, srcHeight, dstWidth, dstHeight uint32) driver.ImageCopy {
	var cp driver.ImageCopy
	cp.Extent = gputypes.Extent3D{
		Width:              min(srcWidth, dstWidth),
		Height:             min(srcHeight, dstHeight),
		DepthOrArrayLayers: 1,
	}
	if dstWidth > srcWidth {
		cp.DstOffset.X = (dstWidth - srcWidth) / 2
	} else {
		cp.SrcOffset.X = (srcWidth - dstWidth) / 2
	}
	if dstHeight > srcHeight {
		cp.DstOffset.Y = (dstHeight - srcHeight) / 2
	} else {
		cp.SrcOffset.Y = (srcHeight - dstHeight) / 2
	}
	return cp
}
