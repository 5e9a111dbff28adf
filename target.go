// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/driver"
)

// target bundles the GPU resources bound to one resolution: the per-slot
// color images, optional depth images, and the clear/load render-pass pair
// backing each slot. A swapchain owns up to two targets: one for the
// presentable images and one for indirect (offscreen) rendering.
type target struct {
	width  uint32
	height uint32

	colorImages []driver.Image
	depthImages []driver.Image
	clearPasses []driver.RenderPass
	loadPasses  []driver.RenderPass

	// ownsColor/ownsDepth record whether the images were allocated here or
	// wrap handles owned by a surface or XR runtime. Borrowed images are
	// never destroyed by the target.
	ownsColor bool
	ownsDepth bool
}

// targetParams carries everything needed to build one target.
type targetParams struct {
	label       string
	width       uint32
	height      uint32
	imageCount  int
	colorFormat gputypes.TextureFormat
	depthFormat gputypes.TextureFormat

	// colorHandles, when non-empty, are surface- or runtime-owned images
	// to adopt instead of allocating. depthHandles likewise.
	colorHandles []driver.Image
	depthHandles []driver.Image
}

// create builds the target all-or-nothing: color images, then depth images,
// then the clear and load render passes. Any failure tears down everything
// already created and returns a creation-failure error; the target is never
// left partially constructed. Dimensions are set only once every resource
// exists.
func (t *target) create(dev driver.Device, p targetParams) error {
	switch {
	case len(p.colorHandles) > 0:
		t.colorImages = append([]driver.Image(nil), p.colorHandles...)
		t.ownsColor = false
	default:
		t.ownsColor = true
		for i := 0; i < p.imageCount; i++ {
			img, err := dev.CreateImage(driver.ImageDescriptor{
				Label:         fmt.Sprintf("%s/color[%d]", p.label, i),
				Width:         p.width,
				Height:        p.height,
				Format:        p.colorFormat,
				Usage:         driver.DefaultImageUsage,
				InitialLayout: driver.ImageLayoutPresent,
			})
			if err != nil {
				t.destroy(dev)
				return creationErr(fmt.Sprintf("create color image %d", i), err)
			}
			t.colorImages = append(t.colorImages, img)
		}
	}

	switch {
	case len(p.depthHandles) > 0:
		t.depthImages = append([]driver.Image(nil), p.depthHandles...)
		t.ownsDepth = false
	case p.depthFormat != gputypes.TextureFormatUndefined:
		t.ownsDepth = true
		for i := 0; i < len(t.colorImages); i++ {
			img, err := dev.CreateImage(driver.ImageDescriptor{
				Label:         fmt.Sprintf("%s/depth[%d]", p.label, i),
				Width:         p.width,
				Height:        p.height,
				Format:        p.depthFormat,
				Usage:         driver.DefaultDepthUsage,
				InitialLayout: driver.ImageLayoutDepthStencil,
			})
			if err != nil {
				t.destroy(dev)
				return creationErr(fmt.Sprintf("create depth image %d", i), err)
			}
			t.depthImages = append(t.depthImages, img)
		}
	}

	if len(t.colorImages) == 0 {
		panic("swapchain: building render passes for a target with no color images")
	}

	for i, img := range t.colorImages {
		var depth driver.Image
		if i < len(t.depthImages) {
			depth = t.depthImages[i]
		}
		clearPass, err := dev.CreateRenderPass(driver.RenderPassDescriptor{
			Label:      fmt.Sprintf("%s/clear[%d]", p.label, i),
			ColorImage: img,
			DepthImage: depth,
			LoadOp:     gputypes.LoadOpClear,
		})
		if err != nil {
			t.destroy(dev)
			return creationErr(fmt.Sprintf("create clear pass %d", i), err)
		}
		t.clearPasses = append(t.clearPasses, clearPass)

		loadPass, err := dev.CreateRenderPass(driver.RenderPassDescriptor{
			Label:      fmt.Sprintf("%s/load[%d]", p.label, i),
			ColorImage: img,
			DepthImage: depth,
			LoadOp:     gputypes.LoadOpLoad,
		})
		if err != nil {
			t.destroy(dev)
			return creationErr(fmt.Sprintf("create load pass %d", i), err)
		}
		t.loadPasses = append(t.loadPasses, loadPass)
	}

	t.width = p.width
	t.height = p.height
	return nil
}

// destroy tears the target down in strict reverse order of creation: load
// and clear passes, depth images, color images. Borrowed images stay alive.
// Destroying an empty target is a no-op, so destroy is idempotent and
// doubles as the rollback path for a failed create.
func (t *target) destroy(dev driver.Device) {
	for i := len(t.loadPasses) - 1; i >= 0; i-- {
		dev.DestroyRenderPass(t.loadPasses[i])
	}
	for i := len(t.clearPasses) - 1; i >= 0; i-- {
		dev.DestroyRenderPass(t.clearPasses[i])
	}
	if t.ownsDepth {
		for i := len(t.depthImages) - 1; i >= 0; i-- {
			dev.DestroyImage(t.depthImages[i])
		}
	}
	if t.ownsColor {
		for i := len(t.colorImages) - 1; i >= 0; i-- {
			dev.DestroyImage(t.colorImages[i])
		}
	}
	t.loadPasses = nil
	t.clearPasses = nil
	t.depthImages = nil
	t.colorImages = nil
	t.width = 0
	t.height = 0
}

// active reports whether the target holds live resources.
func (t *target) active() bool {
	return t.width != 0 && t.height != 0
}

// imageCount returns the number of live color images.
func (t *target) imageCount() int { return len(t.colorImages) }

// pass returns the render pass for index with the given load op.
func (t *target) pass(index int, op gputypes.LoadOp) driver.RenderPass {
	if op == gputypes.LoadOpClear {
		return t.clearPasses[index]
	}
	return t.loadPasses[index]
}
