// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

// Wrap is the forwarding base every decorator embeds. It holds the wrapped
// swapchain as an embedded interface, so a decorator inherits every method
// and overrides only the ones it changes.
type Wrap struct {
	Swapchain
}

// Unwrap returns the wrapped swapchain.
func (w *Wrap) Unwrap() Swapchain { return w.Swapchain }

// Unwrapper is implemented by decorators that expose the swapchain they
// wrap. AsResizable and AsUpdatable walk it to find optional capabilities
// anywhere in a wrapper stack.
type Unwrapper interface {
	Unwrap() Swapchain
}

// AsResizable returns the first swapchain in the stack that implements
// Resizable, unwrapping decorators as needed.
func AsResizable(s Swapchain) (Resizable, bool) {
	for s != nil {
		if r, ok := s.(Resizable); ok {
			return r, true
		}
		u, ok := s.(Unwrapper)
		if !ok {
			return nil, false
		}
		s = u.Unwrap()
	}
	return nil, false
}

// AsUpdatable returns the first swapchain in the stack that implements
// Updatable, unwrapping decorators as needed.
func AsUpdatable(s Swapchain) (Updatable, bool) {
	for s != nil {
		if u, ok := s.(Updatable); ok {
			return u, true
		}
		uw, ok := s.(Unwrapper)
		if !ok {
			return nil, false
		}
		s = uw.Unwrap()
	}
	return nil, false
}
