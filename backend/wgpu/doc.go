// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements the swapchain driver interface over a gogpu/wgpu
// HAL device. It targets headless rendering: images are plain HAL textures,
// submissions ride the HAL queue's single in-order timeline, and image
// readback goes through a staging buffer, which makes the backend a natural
// fit for offscreen capture and tests.
//
// The backend registers itself as "wgpu" with portable-GPU priority.
// Windowed presentation is out of its scope; use the vulkan backend for
// surfaces.
//
// Pass *NativeHandles in driver.Options.Native to adopt an existing HAL
// device (shared with a renderer); with a nil Native the factory creates a
// standalone Vulkan-backed device.
package wgpu
