// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/swapchain/driver"
)

// Capture reads back the color image for a slot as RGBA. Call WaitIdle
// first when the image may still have work in flight.
//
// The backend must expose readback on its images (driver.ImageReader);
// GPU-only backends return errors.ErrUnsupported.
func Capture(s ImageProvider, index int) (*image.RGBA, error) {
	img, err := s.ColorImage(index)
	if err != nil {
		return nil, err
	}
	r, ok := img.(driver.ImageReader)
	if !ok {
		return nil, fmt.Errorf("swapchain: capture: image readback: %w", errors.ErrUnsupported)
	}
	out, err := r.ReadPixels()
	if err != nil {
		return nil, normalizeBackend("read pixels", err)
	}
	return out, nil
}

// CaptureScaled captures the color image for a slot and scales it to
// width x height. A nil scaler defaults to xdraw.ApproxBiLinear; pass
// xdraw.CatmullRom for higher quality at higher cost.
func CaptureScaled(s ImageProvider, index, width, height int, scaler xdraw.Scaler) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("swapchain: capture scaled to %dx%d: %w", width, height, driver.ErrInvalidSize)
	}
	src, err := Capture(s, index)
	if err != nil {
		return nil, err
	}
	if scaler == nil {
		scaler = xdraw.ApproxBiLinear
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// SavePNG captures the color image for a slot and writes it to path as PNG.
func SavePNG(s ImageProvider, index int, path string) error {
	img, err := Capture(s, index)
	if err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return png.Encode(f, img)
}
