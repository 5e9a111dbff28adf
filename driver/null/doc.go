// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package null provides a pure Go, in-memory implementation of the driver
// interfaces. No GPU is involved: images track a fill color and layout,
// command buffers record their operations, and queue submission applies
// recorded clears and copies so tests and headless capture can observe
// results.
//
// The device keeps counters and destruction logs that tests use to verify
// resource lifetimes, and offers creation budgets to inject allocation
// failures:
//
//	dev := null.New()
//	dev.MaxImages = 2 // third CreateImage call fails
//
// The driver registers itself as "null" at priority 10.
package null
