// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/swapchain/driver"
	"github.com/gogpu/swapchain/driver/null"
)

// clearSlot submits a clear of slot 0 so the captured image has a known
// color.
func clearSlot(t *testing.T, dev *null.Device, c *Chain, clear gputypes.Color) {
	t.Helper()
	pass, err := c.RenderPass(0, gputypes.LoadOpClear)
	if err != nil {
		t.Fatalf("RenderPass() = %v", err)
	}
	cmd, err := dev.CreateCommandBuffer()
	if err != nil {
		t.Fatalf("CreateCommandBuffer() = %v", err)
	}
	if err := cmd.Begin(); err != nil {
		t.Fatalf("Begin() = %v", err)
	}
	cmd.BeginRenderPass(driver.RenderPassBeginInfo{
		Pass:       pass,
		RenderArea: c.RenderArea(),
		ClearColor: clear,
	})
	cmd.EndRenderPass()
	if err := cmd.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if err := dev.GraphicsQueue().Submit([]driver.CommandBuffer{cmd}, nil, nil, nil); err != nil {
		t.Fatalf("Submit() = %v", err)
	}
}

func TestCapture(t *testing.T) {
	dev, c := newTestHeadless(t, 64, 48)
	clearSlot(t, dev, c, gputypes.Color{R: 1, G: 0.5, B: 0, A: 1})

	img, err := Capture(c, 0)
	if err != nil {
		t.Fatalf("Capture() = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Fatalf("bounds = %v, want 64x48", b)
	}
	want := color.RGBA{R: 0xFF, G: 0x80, B: 0x00, A: 0xFF}
	if got := img.RGBAAt(0, 0); got != want {
		t.Errorf("RGBAAt(0, 0) = %v, want %v", got, want)
	}
	if got := img.RGBAAt(63, 47); got != want {
		t.Errorf("RGBAAt(63, 47) = %v, want %v", got, want)
	}
}

func TestCaptureOutOfRange(t *testing.T) {
	_, c := newTestHeadless(t, 64, 48)
	if _, err := Capture(c, 99); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Capture(99) = %v, want ErrOutOfRange", err)
	}
}

func TestCaptureScaled(t *testing.T) {
	dev, c := newTestHeadless(t, 64, 48)
	clearSlot(t, dev, c, gputypes.Color{R: 0, G: 0, B: 1, A: 1})

	img, err := CaptureScaled(c, 0, 16, 12, nil)
	if err != nil {
		t.Fatalf("CaptureScaled() = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 12 {
		t.Fatalf("bounds = %v, want 16x12", b)
	}
	// A uniform source stays uniform under any scaler.
	want := color.RGBA{B: 0xFF, A: 0xFF}
	if got := img.RGBAAt(8, 6); got != want {
		t.Errorf("RGBAAt(8, 6) = %v, want %v", got, want)
	}

	if _, err := CaptureScaled(c, 0, 0, 12, nil); !errors.Is(err, driver.ErrInvalidSize) {
		t.Errorf("CaptureScaled(0 width) = %v, want ErrInvalidSize", err)
	}
	if _, err := CaptureScaled(c, 0, 16, -1, xdraw.CatmullRom); !errors.Is(err, driver.ErrInvalidSize) {
		t.Errorf("CaptureScaled(negative height) = %v, want ErrInvalidSize", err)
	}
}

func TestSavePNG(t *testing.T) {
	dev, c := newTestHeadless(t, 32, 24)
	clearSlot(t, dev, c, gputypes.Color{R: 0, G: 1, B: 0, A: 1})

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := SavePNG(c, 0, path); err != nil {
		t.Fatalf("SavePNG() = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	defer func() {
		_ = f.Close()
	}()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("decoded bounds = %v, want 32x24", b)
	}
	got := color.RGBAModel.Convert(decoded.At(16, 12))
	if want := (color.RGBA{G: 0xFF, A: 0xFF}); got != want {
		t.Errorf("decoded pixel = %v, want %v", got, want)
	}
}

// opaqueImage is a driver image without readback support.
type opaqueImage struct{}

func (opaqueImage) Width() uint32                  { return 4 }
func (opaqueImage) Height() uint32                 { return 4 }
func (opaqueImage) Format() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }
func (opaqueImage) Usage() gputypes.TextureUsage   { return driver.DefaultImageUsage }

// opaqueProvider serves opaqueImage for every slot.
type opaqueProvider struct{}

func (opaqueProvider) ImageCount() int                     { return 1 }
func (opaqueProvider) ColorFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }
func (opaqueProvider) DepthFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }
func (opaqueProvider) Width() uint32                       { return 4 }
func (opaqueProvider) Height() uint32                      { return 4 }

func (opaqueProvider) ColorImage(index int) (driver.Image, error) {
	return opaqueImage{}, nil
}

func (opaqueProvider) DepthImage(index int) (driver.Image, error) {
	return nil, ErrOutOfRange
}

func TestCaptureUnsupported(t *testing.T) {
	_, err := Capture(opaqueProvider{}, 0)
	if !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("Capture() = %v, want ErrUnsupported", err)
	}
}
