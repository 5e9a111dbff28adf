// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command swapinfo lists the registered swapchain drivers and optionally
// renders a few headless frames through one of them, saving the last frame
// as a PNG.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/swapchain"
	"github.com/gogpu/swapchain/driver"

	_ "github.com/gogpu/swapchain/backend/vulkan"
	_ "github.com/gogpu/swapchain/backend/wgpu"
	_ "github.com/gogpu/swapchain/driver/null"
)

func main() {
	var (
		name   = flag.String("driver", "", "driver to open (empty picks the best available)")
		render = flag.Bool("render", false, "render test frames and capture the last one")
		width  = flag.Uint("width", 800, "swapchain width")
		height = flag.Uint("height", 600, "swapchain height")
		frames = flag.Int("frames", 3, "frames to render")
		output = flag.String("output", "swapinfo.png", "output file for the captured frame")
	)
	flag.Parse()

	printDrivers()

	if !*render {
		return
	}

	dev, err := openDevice(*name)
	if err != nil {
		log.Fatalf("Open device: %v", err)
	}
	if err := renderFrames(dev, uint32(*width), uint32(*height), *frames, *output); err != nil {
		log.Fatalf("Render: %v", err)
	}
}

func printDrivers() {
	names := driver.List()
	if len(names) == 0 {
		fmt.Println("no drivers registered")
		return
	}
	fmt.Printf("%-10s %8s  %s\n", "DRIVER", "PRIORITY", "AVAILABLE")
	for _, n := range names {
		e, ok := driver.Lookup(n)
		if !ok {
			continue
		}
		fmt.Printf("%-10s %8d  %v\n", e.Name, e.Priority, e.Available())
	}
}

func openDevice(name string) (driver.Device, error) {
	opts := driver.Options{Label: "swapinfo"}
	if name != "" {
		return driver.New(name, opts)
	}
	return driver.Default(opts)
}

func renderFrames(dev driver.Device, width, height uint32, frames int, output string) error {
	sc, err := swapchain.Create(dev, swapchain.Config{
		Label:  "swapinfo",
		Width:  width,
		Height: height,
	})
	if err != nil {
		return err
	}
	defer sc.Destroy()

	cmd, err := dev.CreateCommandBuffer()
	if err != nil {
		return err
	}
	defer dev.DestroyCommandBuffer(cmd)

	queue := dev.GraphicsQueue()
	last := 0
	for i := 0; i < frames; i++ {
		idx, err := sc.AcquireNextImage(swapchain.NoTimeout, nil, nil)
		if err != nil {
			return err
		}
		if err := recordClear(cmd, sc, idx, shade(i, frames)); err != nil {
			return err
		}
		if err := queue.Submit([]driver.CommandBuffer{cmd}, nil, nil, nil); err != nil {
			return err
		}
		if err := sc.Present(idx, nil); err != nil {
			return err
		}
		// The single command buffer is reused next frame, so drain the
		// queue before recording into it again.
		if err := queue.WaitIdle(); err != nil {
			return err
		}
		last = idx
	}

	if err := sc.WaitIdle(); err != nil {
		return err
	}
	if err := swapchain.SavePNG(sc, last, output); err != nil {
		return err
	}
	log.Printf("Frame saved to %s (%dx%d)", output, width, height)
	return nil
}

// recordClear records a full-frame clear of the slot's color image.
func recordClear(cmd driver.CommandBuffer, sc swapchain.Swapchain, index int, color gputypes.Color) error {
	img, err := sc.ColorImage(index)
	if err != nil {
		return err
	}
	pass, err := sc.RenderPass(index, gputypes.LoadOpClear)
	if err != nil {
		return err
	}
	if err := cmd.Begin(); err != nil {
		return err
	}
	cmd.TransitionImageLayout(img, driver.ImageLayoutPresent, driver.ImageLayoutRenderTarget)
	cmd.BeginRenderPass(driver.RenderPassBeginInfo{
		Pass:              pass,
		ClearColor:        color,
		ClearDepthStencil: driver.DepthStencilValue{Depth: 1},
	})
	cmd.SetViewports([]driver.Viewport{sc.Viewport(0, 1)})
	cmd.SetScissors([]driver.Rect{sc.RenderArea()})
	cmd.EndRenderPass()
	cmd.TransitionImageLayout(img, driver.ImageLayoutRenderTarget, driver.ImageLayoutPresent)
	return cmd.End()
}

// shade picks a distinct clear color per frame so successive captures are
// visibly different.
func shade(i, n int) gputypes.Color {
	t := float64(i+1) / float64(n)
	return gputypes.Color{R: 0.1 + 0.3*t, G: 0.2, B: 0.6 - 0.2*t, A: 1}
}
