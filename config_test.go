// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/driver/null"
)

// mockDevice implements gpucontext.Device for testing.
type mockDevice struct{}

func (m *mockDevice) Poll(wait bool) {}
func (m *mockDevice) Destroy()       {}

// mockQueue implements gpucontext.Queue for testing.
type mockQueue struct{}

// mockAdapter implements gpucontext.Adapter for testing.
type mockAdapter struct{}

// mockProvider implements gpucontext.DeviceProvider for testing.
type mockProvider struct {
	format gputypes.TextureFormat
}

func (m *mockProvider) Device() gpucontext.Device             { return &mockDevice{} }
func (m *mockProvider) Queue() gpucontext.Queue               { return &mockQueue{} }
func (m *mockProvider) Adapter() gpucontext.Adapter           { return &mockAdapter{} }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return m.format }

func TestConfigWithDefaultsHeadless(t *testing.T) {
	cfg := Config{Width: 640, Height: 480}.withDefaults()

	if cfg.Label != "swapchain" {
		t.Errorf("Label = %q, want %q", cfg.Label, "swapchain")
	}
	if cfg.ImageCount != DefaultImageCount {
		t.Errorf("ImageCount = %d, want %d", cfg.ImageCount, DefaultImageCount)
	}
	if cfg.ColorFormat != DefaultColorFormat {
		t.Errorf("ColorFormat = %v, want %v", cfg.ColorFormat, DefaultColorFormat)
	}
}

func TestConfigWithDefaultsKeepsExplicit(t *testing.T) {
	cfg := Config{
		Label:       "game",
		Width:       640,
		Height:      480,
		ImageCount:  3,
		ColorFormat: gputypes.TextureFormatBGRA8Unorm,
	}.withDefaults()

	if cfg.Label != "game" {
		t.Errorf("Label = %q, want %q", cfg.Label, "game")
	}
	if cfg.ImageCount != 3 {
		t.Errorf("ImageCount = %d, want 3", cfg.ImageCount)
	}
	if cfg.ColorFormat != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("ColorFormat = %v, want %v", cfg.ColorFormat, gputypes.TextureFormatBGRA8Unorm)
	}
}

func TestConfigWithDefaultsWindowedDefersToSurface(t *testing.T) {
	// Windowed configs must not invent a count or format: the surface
	// dictates both at creation time.
	surf, err := null.NewSurface(null.New(), 800, 600, gputypes.TextureFormatBGRA8Unorm, 3)
	if err != nil {
		t.Fatalf("NewSurface() = %v", err)
	}
	cfg := Config{Surface: surf}.withDefaults()

	if cfg.ImageCount != 0 {
		t.Errorf("ImageCount = %d, want 0 (surface decides)", cfg.ImageCount)
	}
	if cfg.ColorFormat != gputypes.TextureFormatUndefined {
		t.Errorf("ColorFormat = %v, want Undefined (surface decides)", cfg.ColorFormat)
	}
}

func TestConfigValidate(t *testing.T) {
	dev := null.New()
	surf, err := null.NewSurface(dev, 800, 600, gputypes.TextureFormatBGRA8Unorm, 2)
	if err != nil {
		t.Fatalf("NewSurface() = %v", err)
	}
	sess, err := null.NewSession(dev, 1024, 1024, gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatUndefined, 2)
	if err != nil {
		t.Fatalf("NewSession() = %v", err)
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"headless ok", Config{Width: 640, Height: 480}, nil},
		{"windowed ok without size", Config{Surface: surf}, nil},
		{"xr ok without size", Config{XR: sess}, nil},
		{"headless zero width", Config{Height: 480}, ErrCreationFailed},
		{"headless zero height", Config{Width: 640}, ErrCreationFailed},
		{"surface and xr", Config{Surface: surf, XR: sess}, ErrCreationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormatFromProvider(t *testing.T) {
	tests := []struct {
		name string
		p    DeviceProvider
		want gputypes.TextureFormat
	}{
		{"nil provider", nil, DefaultColorFormat},
		{"negotiated format", &mockProvider{format: gputypes.TextureFormatBGRA8Unorm}, gputypes.TextureFormatBGRA8Unorm},
		{"undefined format", &mockProvider{}, DefaultColorFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFromProvider(tt.p); got != tt.want {
				t.Errorf("FormatFromProvider() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigFromProvider(t *testing.T) {
	p := &mockProvider{format: gputypes.TextureFormatBGRA8Unorm}
	cfg := ConfigFromProvider(p, 1280, 720)

	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("size = %dx%d, want 1280x720", cfg.Width, cfg.Height)
	}
	if cfg.ColorFormat != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("ColorFormat = %v, want %v", cfg.ColorFormat, gputypes.TextureFormatBGRA8Unorm)
	}
	if cfg.Surface != nil || cfg.XR != nil {
		t.Error("ConfigFromProvider should build a headless config")
	}
}
