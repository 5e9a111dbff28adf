// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package swapchain manages presentable-image lifetimes for the GoGPU
// ecosystem: acquiring swap images, compositing virtual (offscreen) render
// targets onto surface-owned images, presenting frames, and caching the
// per-image render passes behind it all.
//
// # Overview
//
// A Swapchain cycles through N swap slots. Each slot bundles a color image,
// an optional depth image, a clear and a load render pass, a command buffer
// for compositing work, and a semaphore that sequences that work before the
// final present. The core state machine comes in three flavors selected at
// construction: windowed (a real driver.Surface), headless (no surface at
// all, presentation is simulated), and XR (lock-step color/depth image
// acquisition driven by the runtime).
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/swapchain"
//	    "github.com/gogpu/swapchain/driver"
//	    _ "github.com/gogpu/swapchain/driver/null" // headless reference driver
//	)
//
//	dev, _ := driver.Default(driver.Options{Label: "demo"})
//	sc, _ := swapchain.Create(dev, swapchain.Config{
//	    Width: 800, Height: 600, ImageCount: 2,
//	})
//	defer sc.Destroy()
//
//	idx, _ := sc.AcquireNextImage(swapchain.NoTimeout, nil, nil)
//	// ... record rendering against swapchain.ColorImageAt(sc, idx) ...
//	_ = sc.Present(idx, nil)
//
// # Indirect Rendering
//
// When the application renders at a different resolution than the surface,
// SetIndirectRenderSize allocates an offscreen target. Present then records
// a preamble that clears the surface image to neutral gray and copies the
// overlapping region from the offscreen image, centered on whichever side
// is larger.
//
// # Wrappers
//
// Cross-cutting behavior composes over the core via decorators that share
// the Swapchain interface: Guard absorbs transient surface errors into a
// deferred-update flag, PassCache memoizes render-pass lookups, PostProcess
// injects a recording callback into the present path, and Virtual redirects
// rendering through its own fixed-resolution target. Create assembles the
// stack from functional options.
//
// # Drivers
//
// GPU work goes through the driver package contract. Importing a backend
// package registers it: driver/null (in-memory reference), backend/wgpu
// (offscreen rendering over gogpu/wgpu), backend/vulkan (windowed
// presentation over goki/vulkan).
package swapchain

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
