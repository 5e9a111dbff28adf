// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package swapchain

import (
	"fmt"

	"github.com/gogpu/swapchain/driver"
)

// slot bundles the recording state of one swap slot: the command buffer
// compositing and overlay work is recorded into, the open-recording flag,
// and the semaphore sequencing that work before the final present. Keeping
// the three together removes the parallel-array bookkeeping they would
// otherwise need.
type slot struct {
	cmd         driver.CommandBuffer
	recording   bool
	postProcess driver.Semaphore
}

// newSlots allocates one command buffer and one post-process semaphore per
// slot. On failure everything already allocated is released.
func newSlots(dev driver.Device, count int) ([]slot, error) {
	slots := make([]slot, 0, count)
	for i := 0; i < count; i++ {
		cmd, err := dev.CreateCommandBuffer()
		if err != nil {
			destroySlots(dev, slots)
			return nil, creationErr(fmt.Sprintf("create command buffer %d", i), err)
		}
		sem, err := dev.CreateSemaphore()
		if err != nil {
			dev.DestroyCommandBuffer(cmd)
			destroySlots(dev, slots)
			return nil, creationErr(fmt.Sprintf("create post-process semaphore %d", i), err)
		}
		slots = append(slots, slot{cmd: cmd, postProcess: sem})
	}
	return slots, nil
}

// destroySlots releases the per-slot resources in reverse order.
func destroySlots(dev driver.Device, slots []slot) {
	for i := len(slots) - 1; i >= 0; i-- {
		dev.DestroySemaphore(slots[i].postProcess)
		dev.DestroyCommandBuffer(slots[i].cmd)
	}
}
