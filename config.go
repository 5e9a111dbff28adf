// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/driver"
)

// Defaults applied by Config.withDefaults when a field is zero.
const (
	// DefaultImageCount is the number of swap slots used when the
	// configuration does not name one and no surface dictates it.
	DefaultImageCount = 2

	// DefaultColorFormat is the color format for headless swapchains when
	// the configuration does not name one. Windowed swapchains always use
	// the surface's own format.
	DefaultColorFormat = gputypes.TextureFormatRGBA8Unorm
)

// Config describes the swapchain to build. Exactly one presentation mode
// applies: windowed when Surface is set, XR when XR is set, headless when
// neither is.
type Config struct {
	// Label prefixes the debug labels of every resource the swapchain
	// allocates.
	Label string

	// Width and Height are the render resolution. Windowed and XR
	// swapchains take their presentable extent from the surface or session
	// instead; for headless swapchains this is the resolution of the sole
	// render target and must be non-zero.
	Width  uint32
	Height uint32

	// ImageCount is the number of swap slots for headless swapchains.
	// Windowed and XR swapchains inherit the count from the surface or
	// session; a differing non-zero value here is clamped with a warning.
	ImageCount int

	// ColorFormat is the color image format. Zero means the surface's
	// format (windowed), the session's (XR), or DefaultColorFormat
	// (headless).
	ColorFormat gputypes.TextureFormat

	// DepthFormat enables depth images when non-zero. Headless and
	// indirect targets allocate one depth image per color image in this
	// format.
	DepthFormat gputypes.TextureFormat

	// PresentMode is a hint for backends that expose presentation timing.
	PresentMode driver.PresentMode

	// Surface selects windowed presentation.
	Surface driver.Surface

	// XR selects presentation through an XR runtime. Mutually exclusive
	// with Surface.
	XR driver.XRSession
}

// withDefaults returns cfg with zero fields replaced by their defaults.
func (cfg Config) withDefaults() Config {
	if cfg.Label == "" {
		cfg.Label = "swapchain"
	}
	// Windowed and XR chains inherit count and format from the surface or
	// session; only headless chains need defaults.
	if cfg.Surface == nil && cfg.XR == nil {
		if cfg.ImageCount <= 0 {
			cfg.ImageCount = DefaultImageCount
		}
		if cfg.ColorFormat == gputypes.TextureFormatUndefined {
			cfg.ColorFormat = DefaultColorFormat
		}
	}
	return cfg
}

// validate reports configuration errors that no default can repair.
func (cfg Config) validate() error {
	if cfg.Surface != nil && cfg.XR != nil {
		return fmt.Errorf("swapchain: config names both a surface and an XR session: %w", ErrCreationFailed)
	}
	if cfg.Surface == nil && cfg.XR == nil && (cfg.Width == 0 || cfg.Height == 0) {
		return fmt.Errorf("swapchain: headless config requires a non-zero size, got %dx%d: %w",
			cfg.Width, cfg.Height, ErrCreationFailed)
	}
	return nil
}

// DeviceProvider provides GPU device access from a host application.
//
// This is the integration point between the swapchain and GPU frameworks
// like gogpu: the host implements DeviceProvider and hands it over, so the
// swapchain can follow the surface format the host already negotiated.
//
// DeviceProvider is an alias for gpucontext.DeviceProvider, providing a
// package-local name while maintaining full compatibility with the
// gpucontext ecosystem.
type DeviceProvider = gpucontext.DeviceProvider

// FormatFromProvider returns the surface format negotiated by a host
// application's device provider, or DefaultColorFormat when the provider is
// nil or reports no format.
func FormatFromProvider(p DeviceProvider) gputypes.TextureFormat {
	if p == nil {
		return DefaultColorFormat
	}
	if f := p.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		return f
	}
	return DefaultColorFormat
}

// ConfigFromProvider builds a headless Config at the given size whose color
// format follows the host application's negotiated surface format. The
// returned Config can be adjusted before passing it to New or Create.
func ConfigFromProvider(p DeviceProvider, width, height uint32) Config {
	return Config{
		Width:       width,
		Height:      height,
		ColorFormat: FormatFromProvider(p),
	}
}
