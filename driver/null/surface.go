// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package null

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/driver"
)

// Surface is an in-memory presentation surface. Images rotate round-robin on
// acquire; NextAcquireErr and NextPresentErr inject one-shot transient
// errors so tests can drive the out-of-date and suboptimal paths.
type Surface struct {
	// NextAcquireErr is returned (and cleared) by the next
	// AcquireNextImage call.
	NextAcquireErr error

	// NextPresentErr is returned (and cleared) by the next Present call.
	NextPresentErr error

	device *Device
	format gputypes.TextureFormat
	width  uint32
	height uint32
	images []driver.Image
	next   int

	acquires   int
	presents   int
	recreates  int
	destroyed  bool
	lastWaits  []driver.Semaphore
	lastIndex  int
	lastSignal driver.Semaphore
}

var _ driver.Surface = (*Surface)(nil)

// NewSurface creates a surface with imageCount presentable images of the
// given size and format.
func NewSurface(dev *Device, width, height uint32, format gputypes.TextureFormat, imageCount int) (*Surface, error) {
	if width == 0 || height == 0 || imageCount <= 0 {
		return nil, fmt.Errorf("%w: %dx%d, %d images", driver.ErrInvalidSize, width, height, imageCount)
	}

	s := &Surface{
		device: dev,
		format: format,
		width:  width,
		height: height,
	}
	if err := s.buildImages(imageCount); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Surface) buildImages(count int) error {
	s.images = s.images[:0]
	for i := 0; i < count; i++ {
		img, err := s.device.WrapImage(i, driver.ImageDescriptor{
			Label:         fmt.Sprintf("surface/color[%d]", i),
			Width:         s.width,
			Height:        s.height,
			Format:        s.format,
			Usage:         driver.DefaultImageUsage,
			InitialLayout: driver.ImageLayoutPresent,
		})
		if err != nil {
			return err
		}
		s.images = append(s.images, img)
	}
	return nil
}

// ImageCount returns the number of presentable images.
func (s *Surface) ImageCount() int { return len(s.images) }

// Images returns the surface-owned images.
func (s *Surface) Images() []driver.Image { return s.images }

// Format returns the surface color format.
func (s *Surface) Format() gputypes.TextureFormat { return s.format }

// Extent returns the surface dimensions.
func (s *Surface) Extent() (uint32, uint32) { return s.width, s.height }

// AcquireNextImage returns the next image index round-robin and signals the
// given semaphore and fence.
func (s *Surface) AcquireNextImage(timeoutNanos uint64, signal driver.Semaphore, fence driver.Fence) (int, error) {
	s.acquires++
	if err := s.NextAcquireErr; err != nil {
		s.NextAcquireErr = nil
		return 0, err
	}

	idx := s.next
	s.next = (s.next + 1) % len(s.images)

	if ns, ok := signal.(*Semaphore); ok && ns != nil {
		ns.signaled = true
	}
	if nf, ok := fence.(*Fence); ok && nf != nil {
		nf.signaled = true
	}
	s.lastSignal = signal
	s.lastIndex = idx
	return idx, nil
}

// Present records the presentation request.
func (s *Surface) Present(imageIndex int, waits []driver.Semaphore) error {
	s.presents++
	s.lastIndex = imageIndex
	s.lastWaits = append([]driver.Semaphore(nil), waits...)
	if err := s.NextPresentErr; err != nil {
		s.NextPresentErr = nil
		return err
	}
	return nil
}

// Recreate rebuilds the image set at the new size.
func (s *Surface) Recreate(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: %dx%d", driver.ErrInvalidSize, width, height)
	}

	count := len(s.images)
	for _, img := range s.images {
		s.device.DestroyImage(img)
	}
	s.width, s.height = width, height
	s.next = 0
	s.recreates++
	return s.buildImages(count)
}

// Destroy releases the surface images. Idempotent.
func (s *Surface) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	for _, img := range s.images {
		s.device.DestroyImage(img)
	}
	s.images = nil
}

// Acquires returns the number of AcquireNextImage calls.
func (s *Surface) Acquires() int { return s.acquires }

// Presents returns the number of Present calls.
func (s *Surface) Presents() int { return s.presents }

// Recreates returns the number of Recreate calls.
func (s *Surface) Recreates() int { return s.recreates }

// LastPresentWaits returns the wait semaphores of the most recent Present.
func (s *Surface) LastPresentWaits() []driver.Semaphore { return s.lastWaits }

// LastIndex returns the image index of the most recent acquire or present.
func (s *Surface) LastIndex() int { return s.lastIndex }
