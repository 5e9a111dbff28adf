// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"testing"

	"github.com/gogpu/swapchain/driver"
)

func TestRenderArea(t *testing.T) {
	got := RenderArea(1920, 1080)
	want := driver.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	if got != want {
		t.Errorf("RenderArea(1920, 1080) = %+v, want %+v", got, want)
	}
}

func TestFullViewport(t *testing.T) {
	vp := FullViewport(800, 600)
	if vp.X != 0 || vp.Y != 0 {
		t.Errorf("FullViewport origin = (%v, %v), want (0, 0)", vp.X, vp.Y)
	}
	if vp.Width != 800 || vp.Height != 600 {
		t.Errorf("FullViewport size = %vx%v, want 800x600", vp.Width, vp.Height)
	}
	if vp.MinDepth != 0 || vp.MaxDepth != 1 {
		t.Errorf("FullViewport depth = [%v, %v], want [0, 1]", vp.MinDepth, vp.MaxDepth)
	}
}

func TestAspectRatio(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
		want          float32
	}{
		{"16:9", 1920, 1080, 1920.0 / 1080.0},
		{"4:3", 800, 600, 800.0 / 600.0},
		{"square", 512, 512, 1},
		{"zero height", 800, 0, 0},
		{"zero both", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AspectRatio(tt.width, tt.height); got != tt.want {
				t.Errorf("AspectRatio(%d, %d) = %v, want %v", tt.width, tt.height, got, tt.want)
			}
		})
	}
}

func TestCenteredCopy(t *testing.T) {
	tests := []struct {
		name                   string
		srcW, srcH, dstW, dstH uint32
		wantSrcX, wantSrcY     uint32
		wantDstX, wantDstY     uint32
		wantW, wantH           uint32
	}{
		{
			name: "equal sizes",
			srcW: 800, srcH: 600, dstW: 800, dstH: 600,
			wantW: 800, wantH: 600,
		},
		{
			name: "small source centered on larger destination",
			srcW: 800, srcH: 600, dstW: 1024, dstH: 768,
			wantDstX: 112, wantDstY: 84,
			wantW: 800, wantH: 600,
		},
		{
			name: "large source cropped to smaller destination",
			srcW: 1920, srcH: 1080, dstW: 1280, dstH: 720,
			wantSrcX: 320, wantSrcY: 180,
			wantW: 1280, wantH: 720,
		},
		{
			name: "mixed axes",
			srcW: 800, srcH: 1000, dstW: 1000, dstH: 800,
			wantDstX: 100, wantSrcY: 100,
			wantW: 800, wantH: 800,
		},
		{
			name: "odd difference truncates",
			srcW: 5, srcH: 5, dstW: 8, dstH: 8,
			wantDstX: 1, wantDstY: 1,
			wantW: 5, wantH: 5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := CenteredCopy(tt.srcW, tt.srcH, tt.dstW, tt.dstH)
			if cp.SrcOffset.X != tt.wantSrcX || cp.SrcOffset.Y != tt.wantSrcY {
				t.Errorf("SrcOffset = (%d, %d), want (%d, %d)",
					cp.SrcOffset.X, cp.SrcOffset.Y, tt.wantSrcX, tt.wantSrcY)
			}
			if cp.DstOffset.X != tt.wantDstX || cp.DstOffset.Y != tt.wantDstY {
				t.Errorf("DstOffset = (%d, %d), want (%d, %d)",
					cp.DstOffset.X, cp.DstOffset.Y, tt.wantDstX, tt.wantDstY)
			}
			if cp.Extent.Width != tt.wantW || cp.Extent.Height != tt.wantH {
				t.Errorf("Extent = %dx%d, want %dx%d",
					cp.Extent.Width, cp.Extent.Height, tt.wantW, tt.wantH)
			}
			if cp.Extent.DepthOrArrayLayers != 1 {
				t.Errorf("Extent.DepthOrArrayLayers = %d, want 1", cp.Extent.DepthOrArrayLayers)
			}
			if cp.SrcOffset.Z != 0 || cp.DstOffset.Z != 0 {
				t.Errorf("Z offsets = (%d, %d), want (0, 0)", cp.SrcOffset.Z, cp.DstOffset.Z)
			}
		})
	}
}
