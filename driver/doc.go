// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package driver defines the GPU capability consumed by the swapchain
// package: device-side resource creation (images, render passes, semaphores,
// command buffers), queue submission, and the per-platform presentation
// surfaces the windowed and XR presenters drive.
//
// The package is a contract, not an implementation. Concrete drivers live in
// their own packages and register themselves here:
//
//   - driver/null: pure Go in-memory driver for tests and headless capture
//   - backend/wgpu: gogpu/wgpu HAL driver (offscreen rendering)
//   - backend/vulkan: goki/vulkan driver with real windowed presentation
//
// # Type vocabulary
//
// Formats, usages, load ops, colors, extents, and origins reuse
// github.com/gogpu/gputypes so values flow between this module and the rest
// of the gogpu ecosystem without conversion. The package adds only what
// WebGPU-style APIs leave implicit: explicit [ImageLayout] transitions and
// [PresentMode], which Vulkan-class backends need spelled out.
//
// # Registration
//
// Drivers register a factory with a priority and an availability probe:
//
//	func init() {
//	    driver.Register("vulkan", 100, newDevice, vulkanAvailable)
//	}
//
// Applications either pick a driver by name with [Get] or take the best
// available one with [Default].
package driver
