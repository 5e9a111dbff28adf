// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/swapchain/driver"
)

// gpuTimeout bounds fence waits issued on behalf of the caller: WaitIdle,
// deferred copy resolution, and command buffer reclamation. A GPU that has
// not finished swapchain-sized work after this long is considered lost.
const gpuTimeout = 5 * time.Second

// Queue errors.
var (
	// ErrNotFinished indicates a submitted command buffer had an open
	// recording scope.
	ErrNotFinished = errors.New("wgpu: submitted command buffer not finished")

	// ErrTimeout indicates the GPU did not signal a fence within
	// gpuTimeout.
	ErrTimeout = errors.New("wgpu: fence wait timed out")
)

// Semaphore is a stateless driver.Semaphore token. The HAL queue executes
// submissions on a single in-order timeline, so cross-submission ordering
// holds without a GPU object; semaphores exist to satisfy the driver
// contract.
type Semaphore struct{}

var _ driver.Semaphore = (*Semaphore)(nil)

// Fence marks a point on the queue timeline. It is stamped with the
// timeline value of the submission it was attached to; Wait blocks until
// the GPU passes that value. The zero point (never submitted, or attached
// to an empty submission on an idle queue) is always signaled.
type Fence struct {
	q *Queue

	mu    sync.Mutex
	value uint64
}

var _ driver.Fence = (*Fence)(nil)

// Wait blocks until the fence's submission completes or timeout elapses.
// It reports true when the fence is signaled.
func (f *Fence) Wait(timeout time.Duration) (bool, error) {
	f.mu.Lock()
	v := f.value
	f.mu.Unlock()

	if v == 0 {
		return true, nil
	}
	if err := f.q.waitValue(v, timeout); err != nil {
		if errors.Is(err, ErrTimeout) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (f *Fence) stamp(value uint64) {
	f.mu.Lock()
	f.value = value
	f.mu.Unlock()
}

// Queue submits command buffers to the HAL queue. Every submission signals
// the next value of a single timeline fence, so WaitIdle and fence waits
// reduce to waiting for a timeline point.
type Queue struct {
	dev *Device

	mu       sync.Mutex
	timeline hal.Fence
	last     uint64
}

var _ driver.Queue = (*Queue)(nil)

// Submit enqueues command buffers behind all previously submitted work.
//
// The wait and signal semaphore lists are accepted for contract parity and
// otherwise unused: the single HAL timeline already orders submissions, so
// the dependencies they express hold by construction. An empty submission
// records no GPU work and stamps the fence at the current timeline point.
//
// Submissions containing deferred image copies block until the GPU finishes
// the batch, then resolve the copies host-side before returning; later
// submissions therefore observe the copied contents.
func (q *Queue) Submit(cmds []driver.CommandBuffer, _, _ []driver.Semaphore, fence driver.Fence) error {
	halCmds := make([]hal.CommandBuffer, 0, len(cmds))
	var copies []pendingCopy
	bufs := make([]*CommandBuffer, 0, len(cmds))

	for _, cmd := range cmds {
		cb, ok := cmd.(*CommandBuffer)
		if !ok || cb == nil {
			return fmt.Errorf("wgpu: submit: foreign command buffer %T", cmd)
		}
		if cb.recording {
			return fmt.Errorf("wgpu: submit %q: %w", cb.label, ErrNotFinished)
		}
		if cb.halBuf == nil {
			return fmt.Errorf("wgpu: submit %q: %w", cb.label, ErrNotFinished)
		}
		halCmds = append(halCmds, cb.halBuf)
		copies = append(copies, cb.copies...)
		bufs = append(bufs, cb)
	}

	if len(halCmds) == 0 {
		if f, ok := fence.(*Fence); ok && f != nil {
			q.mu.Lock()
			v := q.last
			q.mu.Unlock()
			f.stamp(v)
		}
		return nil
	}

	q.mu.Lock()
	q.last++
	v := q.last
	err := q.dev.halQueue.Submit(halCmds, q.timeline, v)
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}

	for _, cb := range bufs {
		cb.submitted = v
		cb.copies = nil
	}
	if len(copies) > 0 {
		if err := q.resolveCopies(v, copies); err != nil {
			return err
		}
	}
	if f, ok := fence.(*Fence); ok && f != nil {
		f.stamp(v)
	}
	return nil
}

// WaitIdle blocks until all submitted work completes.
func (q *Queue) WaitIdle() error {
	q.mu.Lock()
	v := q.last
	q.mu.Unlock()

	if v == 0 {
		return nil
	}
	return q.waitValue(v, gpuTimeout)
}

// submitRaw submits already-encoded HAL command buffers on the timeline and
// returns the value that signals their completion. Internal paths (image
// readback) use it to stay ordered with driver-level submissions.
func (q *Queue) submitRaw(cmds []hal.CommandBuffer) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.last++
	if err := q.dev.halQueue.Submit(cmds, q.timeline, q.last); err != nil {
		return 0, fmt.Errorf("wgpu: submit: %w", err)
	}
	return q.last, nil
}

// waitValue blocks until the timeline passes value.
func (q *Queue) waitValue(value uint64, timeout time.Duration) error {
	q.mu.Lock()
	timeline := q.timeline
	q.mu.Unlock()

	ok, err := q.dev.dev.Wait(timeline, value, timeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w after %v", ErrTimeout, timeout)
	}
	return nil
}

// resolveCopies performs the host-side half of recorded image copies: wait
// for the batch holding the texture-to-buffer halves, read each staging
// buffer back, and upload the region into the destination texture.
func (q *Queue) resolveCopies(value uint64, copies []pendingCopy) error {
	if err := q.waitValue(value, gpuTimeout); err != nil {
		q.destroyStagings(copies)
		return err
	}

	for i := range copies {
		cp := &copies[i]
		data := make([]byte, cp.size)
		if err := q.dev.halQueue.ReadBuffer(cp.staging, 0, data); err != nil {
			q.destroyStagings(copies[i:])
			return fmt.Errorf("wgpu: copy readback: %w", err)
		}
		q.dev.halQueue.WriteTexture(&hal.ImageCopyTexture{
			Texture:  cp.dst.tex,
			MipLevel: 0,
			Origin: hal.Origin3D{
				X: cp.region.DstOffset.X,
				Y: cp.region.DstOffset.Y,
				Z: 0,
			},
			Aspect: gputypes.TextureAspectAll,
		}, data, &hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  cp.bytesPerRow,
			RowsPerImage: cp.region.Extent.Height,
		}, &hal.Extent3D{
			Width:              cp.region.Extent.Width,
			Height:             cp.region.Extent.Height,
			DepthOrArrayLayers: 1,
		})
		q.dev.dev.DestroyBuffer(cp.staging)
		cp.staging = nil
	}
	return nil
}

func (q *Queue) destroyStagings(copies []pendingCopy) {
	for i := range copies {
		if copies[i].staging != nil {
			q.dev.dev.DestroyBuffer(copies[i].staging)
			copies[i].staging = nil
		}
	}
}
