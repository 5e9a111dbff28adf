// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "errors"

// Errors returned by driver implementations. Swapchain-level code matches
// them with errors.Is after any amount of wrapping.
var (
	// ErrInvalidSize indicates an image or surface dimension was zero or
	// otherwise unusable.
	ErrInvalidSize = errors.New("driver: invalid size")

	// ErrSurfaceOutOfDate indicates the presentation surface no longer
	// matches the swapchain and must be recreated before further use.
	// Transient: the caller decides whether to resize now or keep going.
	ErrSurfaceOutOfDate = errors.New("driver: surface out of date")

	// ErrSurfaceSuboptimal indicates presentation still works but the
	// surface properties no longer match optimally. Transient.
	ErrSurfaceSuboptimal = errors.New("driver: surface suboptimal")

	// ErrNotRegistered indicates no driver with the requested name exists
	// in the registry.
	ErrNotRegistered = errors.New("driver: not registered")

	// ErrNoneAvailable indicates no registered driver passed its
	// availability probe.
	ErrNoneAvailable = errors.New("driver: none available")

	// ErrDeviceLost indicates the device became unusable and every
	// resource created from it is gone.
	ErrDeviceLost = errors.New("driver: device lost")
)
