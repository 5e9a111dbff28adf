// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package vulkan implements the swapchain driver interface over goki/vulkan.
// It is the windowed backend: it owns real swapchains, semaphores, fences,
// and pipeline barriers, and maps the driver's layout transitions onto
// vkCmdPipelineBarrier.
//
// The backend registers itself as "vulkan" with native-GPU priority. It
// never creates a Vulkan instance or device of its own: the adopting
// application owns the loader, instance, surface, and logical device
// (typically created alongside its windowing layer), and hands them over
// through *NativeHandles in driver.Options.Native. Opening without handles
// fails, which makes driver.Default fall through to the next backend.
//
// NewSurface turns a caller-created vk.Surface into a driver.Surface with a
// freshly built swapchain; Recreate rebuilds it in place on resize, chaining
// through OldSwapchain so in-flight frames drain cleanly.
package vulkan
