// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/swapchain/driver"
)

// ErrNotFinished indicates a submitted command buffer had an open recording
// scope or was never recorded.
var ErrNotFinished = errors.New("vulkan: submitted command buffer not finished")

// Semaphore wraps a binary vk.Semaphore.
type Semaphore struct {
	dev *Device
	sem vk.Semaphore

	destroyed atomic.Bool
}

var _ driver.Semaphore = (*Semaphore)(nil)

// Fence wraps a vk.Fence. Fences are created signaled; attaching one to
// Submit or Surface.AcquireNextImage resets it first, so the usual frame
// pacing loop is just Wait then Submit.
type Fence struct {
	dev   *Device
	fence vk.Fence

	destroyed atomic.Bool
}

var _ driver.Fence = (*Fence)(nil)

// Wait blocks until the fence signals or timeout elapses. It reports true
// when the fence is signaled. A non-positive timeout polls.
func (f *Fence) Wait(timeout time.Duration) (bool, error) {
	var ns uint64
	if timeout > 0 {
		ns = uint64(timeout.Nanoseconds())
	}
	res := vk.WaitForFences(f.dev.dev, 1, []vk.Fence{f.fence}, vk.True, ns)
	switch res {
	case vk.Success:
		return true, nil
	case vk.Timeout:
		return false, nil
	default:
		return false, vkResultErr("wait for fence", res)
	}
}

// Reset returns the fence to the unsignaled state.
func (f *Fence) Reset() error {
	if err := vk.Error(vk.ResetFences(f.dev.dev, 1, []vk.Fence{f.fence})); err != nil {
		return fmt.Errorf("vulkan: reset fence: %w", err)
	}
	return nil
}

// Queue submits command buffers to the adopted graphics queue. vkQueue
// access must be externally synchronized, so every submission and present
// goes through the queue mutex.
type Queue struct {
	dev *Device

	mu sync.Mutex
	q  vk.Queue
}

var _ driver.Queue = (*Queue)(nil)

// Submit enqueues command buffers, waiting on waits at the color output
// stage and signaling signals and fence on completion. A submission without
// command buffers is valid and used purely for its signal side effects.
func (q *Queue) Submit(cmds []driver.CommandBuffer, waits, signals []driver.Semaphore, fence driver.Fence) error {
	handles := make([]vk.CommandBuffer, 0, len(cmds))
	for _, cmd := range cmds {
		cb, ok := cmd.(*CommandBuffer)
		if !ok || cb == nil {
			return fmt.Errorf("vulkan: submit: foreign command buffer %T", cmd)
		}
		if cb.recording || !cb.finished {
			return fmt.Errorf("vulkan: submit: %w", ErrNotFinished)
		}
		handles = append(handles, cb.cb)
	}

	waitSems, err := semHandles("wait", waits)
	if err != nil {
		return err
	}
	sigSems, err := semHandles("signal", signals)
	if err != nil {
		return err
	}
	// One wait stage per wait semaphore: acquired images are first touched
	// as color attachments.
	var stages []vk.PipelineStageFlags
	if len(waitSems) > 0 {
		stages = make([]vk.PipelineStageFlags, len(waitSems))
		for i := range stages {
			stages[i] = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
		}
	}

	vkFence := vk.NullFence
	if fence != nil {
		f, ok := fence.(*Fence)
		if !ok || f == nil {
			return fmt.Errorf("vulkan: submit: foreign fence %T", fence)
		}
		if err := f.Reset(); err != nil {
			return err
		}
		vkFence = f.fence
	}

	info := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waitSems)),
		PWaitSemaphores:      waitSems,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(handles)),
		PCommandBuffers:      handles,
		SignalSemaphoreCount: uint32(len(sigSems)),
		PSignalSemaphores:    sigSems,
	}

	q.mu.Lock()
	res := vk.QueueSubmit(q.q, 1, []vk.SubmitInfo{info}, vkFence)
	q.mu.Unlock()
	return vkResultErr("submit", res)
}

// WaitIdle blocks until all submitted work on this queue completes.
func (q *Queue) WaitIdle() error {
	q.mu.Lock()
	res := vk.QueueWaitIdle(q.q)
	q.mu.Unlock()
	return vkResultErr("wait idle", res)
}

// semHandles unwraps driver semaphores, skipping nil entries and rejecting
// foreign implementations.
func semHandles(kind string, sems []driver.Semaphore) ([]vk.Semaphore, error) {
	if len(sems) == 0 {
		return nil, nil
	}
	out := make([]vk.Semaphore, 0, len(sems))
	for _, sem := range sems {
		if sem == nil {
			continue
		}
		s, ok := sem.(*Semaphore)
		if !ok || s == nil {
			return nil, fmt.Errorf("vulkan: submit: foreign %s semaphore %T", kind, sem)
		}
		out = append(out, s.sem)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// vkResultErr converts a non-success result into an error, mapping device
// loss onto the driver sentinel.
func vkResultErr(op string, res vk.Result) error {
	switch res {
	case vk.Success:
		return nil
	case vk.ErrorDeviceLost:
		return fmt.Errorf("vulkan: %s: %w", op, driver.ErrDeviceLost)
	default:
		return fmt.Errorf("vulkan: %s: %w", op, vk.Error(res))
	}
}
