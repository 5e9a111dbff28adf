// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"github.com/gogpu/swapchain/driver"
)

// Option configures the swapchain stack built by Create.
//
// Example:
//
//	// Windowed swapchain that renders at a fixed 1920x1080, survives
//	// window resizes, and caches render-pass lookups.
//	sc, err := swapchain.Create(dev, cfg,
//		swapchain.WithVirtualResolution(1920, 1080),
//		swapchain.WithAbsorbTransient(),
//		swapchain.WithRenderPassCache(),
//	)
type Option func(*createOptions)

// createOptions holds the optional wrapper configuration for Create.
type createOptions struct {
	virtualWidth  uint32
	virtualHeight uint32
	postProcess   RecordFunc
	passCache     bool
	guard         bool
	guardCfg      GuardConfig
}

// WithVirtualResolution renders every frame at a fixed width x height and
// composites it onto the presentable image, centered, with the surround
// color filling the difference. See [Virtual].
func WithVirtualResolution(width, height uint32) Option {
	return func(o *createOptions) {
		o.virtualWidth, o.virtualHeight = width, height
	}
}

// WithPostProcess records fn over the presentable image on every Present,
// after the frame's rendering and any virtual compositing. See [PostProcess].
func WithPostProcess(fn RecordFunc) Option {
	return func(o *createOptions) {
		o.postProcess = fn
	}
}

// WithRenderPassCache memoizes RenderPass and UIRenderPass lookups per slot.
// See [PassCache].
func WithRenderPassCache() Option {
	return func(o *createOptions) {
		o.passCache = true
	}
}

// WithAbsorbTransient converts transient surface errors on acquire and
// present into a NeedUpdate flag instead of surfacing them, treating
// suboptimal surfaces as out of date. See [Guard].
func WithAbsorbTransient() Option {
	return func(o *createOptions) {
		o.guard = true
		o.guardCfg = GuardConfig{AbsorbOutOfDate: true, SuboptimalIsOutOfDate: true}
	}
}

// WithGuard wraps the chain in a [Guard] with explicit absorption settings.
// WithAbsorbTransient is the common shorthand.
func WithGuard(cfg GuardConfig) Option {
	return func(o *createOptions) {
		o.guard = true
		o.guardCfg = cfg
	}
}

// Create builds a swapchain and the requested wrapper stack around it, inner
// to outer: Guard, then the render-pass cache, then post-process, then the
// virtual-resolution target. That order makes the cache invalidate on guard
// updates, lets post-process draw over composited output, and records the
// virtual composite before the overlay.
//
// On error nothing is leaked: wrappers built so far are destroyed along with
// the chain.
func Create(dev driver.Device, cfg Config, opts ...Option) (Swapchain, error) {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	chain, err := New(dev, cfg)
	if err != nil {
		return nil, err
	}
	var s Swapchain = chain

	if o.guard {
		g, err := NewGuard(s, dev.GraphicsQueue(), o.guardCfg)
		if err != nil {
			s.Destroy()
			return nil, err
		}
		s = g
	}
	if o.passCache {
		s = NewPassCache(s)
	}
	if o.postProcess != nil {
		pp, err := NewPostProcess(s, dev, o.postProcess)
		if err != nil {
			s.Destroy()
			return nil, err
		}
		s = pp
	}
	if o.virtualWidth != 0 && o.virtualHeight != 0 {
		v, err := NewVirtual(s, dev, o.virtualWidth, o.virtualHeight)
		if err != nil {
			s.Destroy()
			return nil, err
		}
		s = v
	}
	return s, nil
}
