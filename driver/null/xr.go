// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package null

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/driver"
)

// Session is an in-memory XR session with a color image sequence and an
// optional depth image sequence. Acquisition advances both sequences in
// lock-step; ForceDivergence makes the next depth acquire return a
// mismatched index for testing the lock-step invariant.
type Session struct {
	// ForceDivergence makes the next AcquireDepthImage return an index
	// that does not match the color index.
	ForceDivergence bool

	device      *Device
	width       uint32
	height      uint32
	colorFormat gputypes.TextureFormat
	depthFormat gputypes.TextureFormat
	colorImages []driver.Image
	depthImages []driver.Image
	current     int
	releases    int
}

var _ driver.XRSession = (*Session)(nil)

// NewSession creates an XR session. depthFormat may be
// gputypes.TextureFormatUndefined to omit the depth swapchain.
func NewSession(dev *Device, width, height uint32, colorFormat, depthFormat gputypes.TextureFormat, imageCount int) (*Session, error) {
	if width == 0 || height == 0 || imageCount <= 0 {
		return nil, fmt.Errorf("%w: %dx%d, %d images", driver.ErrInvalidSize, width, height, imageCount)
	}

	s := &Session{
		device:      dev,
		width:       width,
		height:      height,
		colorFormat: colorFormat,
		depthFormat: depthFormat,
		current:     -1,
	}

	for i := 0; i < imageCount; i++ {
		img, err := dev.WrapImage(i, driver.ImageDescriptor{
			Label:         fmt.Sprintf("xr/color[%d]", i),
			Width:         width,
			Height:        height,
			Format:        colorFormat,
			Usage:         driver.DefaultImageUsage,
			InitialLayout: driver.ImageLayoutPresent,
		})
		if err != nil {
			return nil, err
		}
		s.colorImages = append(s.colorImages, img)
	}

	if depthFormat != gputypes.TextureFormatUndefined {
		for i := 0; i < imageCount; i++ {
			img, err := dev.WrapImage(i, driver.ImageDescriptor{
				Label:         fmt.Sprintf("xr/depth[%d]", i),
				Width:         width,
				Height:        height,
				Format:        depthFormat,
				Usage:         driver.DefaultDepthUsage,
				InitialLayout: driver.ImageLayoutDepthStencil,
			})
			if err != nil {
				return nil, err
			}
			s.depthImages = append(s.depthImages, img)
		}
	}
	return s, nil
}

// ColorImages returns the runtime-owned color images.
func (s *Session) ColorImages() []driver.Image { return s.colorImages }

// DepthImages returns the runtime-owned depth images, or nil.
func (s *Session) DepthImages() []driver.Image { return s.depthImages }

// ColorFormat returns the color format.
func (s *Session) ColorFormat() gputypes.TextureFormat { return s.colorFormat }

// DepthFormat returns the depth format, or TextureFormatUndefined.
func (s *Session) DepthFormat() gputypes.TextureFormat { return s.depthFormat }

// Extent returns the per-eye image dimensions.
func (s *Session) Extent() (uint32, uint32) { return s.width, s.height }

// AcquireColorImage advances to the next color image and returns its index.
func (s *Session) AcquireColorImage() (int, error) {
	s.current = (s.current + 1) % len(s.colorImages)
	return s.current, nil
}

// AcquireDepthImage returns the depth image index matching the acquired
// color image, unless ForceDivergence is set.
func (s *Session) AcquireDepthImage() (int, error) {
	if len(s.depthImages) == 0 {
		return 0, fmt.Errorf("acquire depth image: %w", ErrNilResource)
	}
	if s.ForceDivergence {
		s.ForceDivergence = false
		return (s.current + 1) % len(s.depthImages), nil
	}
	return s.current, nil
}

// ReleaseImages returns the acquired images to the runtime.
func (s *Session) ReleaseImages() error {
	s.releases++
	return nil
}

// Releases returns the number of ReleaseImages calls.
func (s *Session) Releases() int { return s.releases }
