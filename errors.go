// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"errors"
	"fmt"

	"github.com/gogpu/swapchain/driver"
)

// Sentinel errors returned by swapchain operations. Wrap sites add context
// with fmt.Errorf("...: %w", err), so callers match with errors.Is.
var (
	// ErrOutOfRange reports an image index at or beyond the live image
	// count. Error-returning getters leave their result zero on this path.
	ErrOutOfRange = errors.New("swapchain: image index out of range")

	// ErrNilArgument reports a required argument (device, queue, callback)
	// missing at an API boundary.
	ErrNilArgument = errors.New("swapchain: required argument is nil")

	// ErrCreationFailed reports that allocating a GPU resource for a target
	// failed. The target is fully rolled back before this is returned.
	ErrCreationFailed = errors.New("swapchain: resource creation failed")

	// ErrBackend tags opaque driver failures that are neither transient
	// nor part of this package's taxonomy.
	ErrBackend = errors.New("swapchain: backend failure")

	// ErrDestroyed reports an operation on a swapchain after Destroy.
	ErrDestroyed = errors.New("swapchain: swapchain already destroyed")
)

// Transient presentation errors are shared with the driver package so that
// an error surfaced by a backend matches at either layer.
var (
	// ErrSurfaceOutOfDate reports that the surface no longer matches the
	// swapchain and must be recreated before presenting again.
	ErrSurfaceOutOfDate = driver.ErrSurfaceOutOfDate

	// ErrSurfaceSuboptimal reports that presentation still works but the
	// surface properties no longer match the swapchain exactly.
	ErrSurfaceSuboptimal = driver.ErrSurfaceSuboptimal
)

// IsTransient reports whether err is one of the transient presentation
// errors (ErrSurfaceOutOfDate, ErrSurfaceSuboptimal). Transient errors are
// absorbable: the frame is lost but the swapchain state is intact, and a
// resize or recreate restores normal presentation.
func IsTransient(err error) bool {
	return errors.Is(err, ErrSurfaceOutOfDate) || errors.Is(err, ErrSurfaceSuboptimal)
}

// normalizeBackend maps a driver error into the package taxonomy: transient
// sentinels pass through untouched so IsTransient keeps working, anything
// else is tagged ErrBackend while preserving the original for inspection.
func normalizeBackend(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) {
		return fmt.Errorf("swapchain: %s: %w", op, err)
	}
	return fmt.Errorf("swapchain: %s: %w: %w", op, ErrBackend, err)
}

// creationErr tags a resource-allocation failure with ErrCreationFailed
// while preserving the driver error.
func creationErr(op string, err error) error {
	return fmt.Errorf("swapchain: %s: %w: %w", op, ErrCreationFailed, err)
}
