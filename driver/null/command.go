// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package null

import (
	"errors"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/driver"
)

// Command buffer errors.
var (
	// ErrAlreadyRecording indicates Begin was called twice without End.
	ErrAlreadyRecording = errors.New("null: command buffer already recording")

	// ErrNotRecording indicates End was called without an open Begin.
	ErrNotRecording = errors.New("null: command buffer not recording")

	// ErrNotFinished indicates a submitted command buffer had an open
	// recording scope.
	ErrNotFinished = errors.New("null: submitted command buffer not finished")
)

// Op is one recorded command buffer operation. Tests type-switch over the
// concrete Op* types to assert recorded sequences.
type Op interface {
	isOp()
}

// OpBeginRenderPass records BeginRenderPass.
type OpBeginRenderPass struct {
	Info driver.RenderPassBeginInfo
}

// OpEndRenderPass records EndRenderPass.
type OpEndRenderPass struct{}

// OpTransition records TransitionImageLayout.
type OpTransition struct {
	Image driver.Image
	From  driver.ImageLayout
	To    driver.ImageLayout
}

// OpCopy records CopyImageToImage.
type OpCopy struct {
	Copy driver.ImageCopy
	Src  driver.Image
	Dst  driver.Image
}

// OpSetViewports records SetViewports.
type OpSetViewports struct {
	Viewports []driver.Viewport
}

// OpSetScissors records SetScissors.
type OpSetScissors struct {
	Scissors []driver.Rect
}

func (OpBeginRenderPass) isOp() {}
func (OpEndRenderPass) isOp()   {}
func (OpTransition) isOp()      {}
func (OpCopy) isOp()            {}
func (OpSetViewports) isOp()    {}
func (OpSetScissors) isOp()     {}

// Command buffer states.
const (
	cbInitial = iota
	cbRecording
	cbExecutable
)

// CommandBuffer records operations into an op list.
//
// State machine:
//
//	Initial -> Begin() -> Recording -> End() -> Executable -> Begin() -> ...
//
// Recording methods outside the Recording state panic, per the driver
// contract.
type CommandBuffer struct {
	state int
	ops   []Op

	// beginCount and endCount track lifecycle calls across reuse, for
	// tests that assert a buffer was begun exactly once per frame.
	beginCount int
	endCount   int
}

var _ driver.CommandBuffer = (*CommandBuffer)(nil)

// Begin opens a recording scope, resetting previously recorded ops.
func (c *CommandBuffer) Begin() error {
	if c.state == cbRecording {
		return ErrAlreadyRecording
	}
	c.state = cbRecording
	c.ops = c.ops[:0]
	c.beginCount++
	return nil
}

// End closes the recording scope.
func (c *CommandBuffer) End() error {
	if c.state != cbRecording {
		return ErrNotRecording
	}
	c.state = cbExecutable
	c.endCount++
	return nil
}

// BeginRenderPass records a render pass begin.
func (c *CommandBuffer) BeginRenderPass(info driver.RenderPassBeginInfo) {
	c.record(OpBeginRenderPass{Info: info})
}

// EndRenderPass records a render pass end.
func (c *CommandBuffer) EndRenderPass() {
	c.record(OpEndRenderPass{})
}

// TransitionImageLayout records a layout transition.
func (c *CommandBuffer) TransitionImageLayout(img driver.Image, from, to driver.ImageLayout) {
	c.record(OpTransition{Image: img, From: from, To: to})
}

// CopyImageToImage records a region copy.
func (c *CommandBuffer) CopyImageToImage(cp driver.ImageCopy, src, dst driver.Image) {
	c.record(OpCopy{Copy: cp, Src: src, Dst: dst})
}

// SetViewports records a viewport update.
func (c *CommandBuffer) SetViewports(viewports []driver.Viewport) {
	vps := make([]driver.Viewport, len(viewports))
	copy(vps, viewports)
	c.record(OpSetViewports{Viewports: vps})
}

// SetScissors records a scissor update.
func (c *CommandBuffer) SetScissors(scissors []driver.Rect) {
	rects := make([]driver.Rect, len(scissors))
	copy(rects, scissors)
	c.record(OpSetScissors{Scissors: rects})
}

func (c *CommandBuffer) record(op Op) {
	if c.state != cbRecording {
		panic("null: recording into a command buffer outside Begin/End")
	}
	c.ops = append(c.ops, op)
}

// Recording reports whether the buffer has an open recording scope.
func (c *CommandBuffer) Recording() bool { return c.state == cbRecording }

// Ops returns the recorded operations of the most recent recording scope.
func (c *CommandBuffer) Ops() []Op {
	out := make([]Op, len(c.ops))
	copy(out, c.ops)
	return out
}

// BeginCount returns how many times Begin succeeded over the buffer's
// lifetime.
func (c *CommandBuffer) BeginCount() int { return c.beginCount }

// Submission is one recorded queue submission.
type Submission struct {
	// Ops holds the operation list of each submitted command buffer, in
	// submission order. Empty submissions have no entries.
	Ops [][]Op

	// Waits and Signals are the semaphores the submission waited on and
	// signaled.
	Waits   []driver.Semaphore
	Signals []driver.Semaphore

	// Fence is the completion fence, or nil.
	Fence driver.Fence
}

// Queue is an in-memory driver.Queue. Submission immediately "executes"
// recorded work: clears and copies update image fill colors, transitions
// update image layouts, and wait/signal semaphores plus the fence are marked
// signaled.
type Queue struct {
	device *Device

	mu          sync.Mutex
	submissions []Submission
	waitIdles   int
}

var _ driver.Queue = (*Queue)(nil)

// Submit validates, records, and executes a submission.
func (q *Queue) Submit(cmds []driver.CommandBuffer, waits, signals []driver.Semaphore, fence driver.Fence) error {
	sub := Submission{
		Waits:   append([]driver.Semaphore(nil), waits...),
		Signals: append([]driver.Semaphore(nil), signals...),
		Fence:   fence,
	}

	for _, cb := range cmds {
		nc, ok := cb.(*CommandBuffer)
		if !ok || nc == nil {
			return ErrNilResource
		}
		if nc.state != cbExecutable {
			return ErrNotFinished
		}
		sub.Ops = append(sub.Ops, nc.Ops())
		q.execute(nc.ops)
	}

	for _, sem := range signals {
		if ns, ok := sem.(*Semaphore); ok {
			ns.signaled = true
		}
	}
	if nf, ok := fence.(*Fence); ok && nf != nil {
		nf.signaled = true
	}

	q.mu.Lock()
	q.submissions = append(q.submissions, sub)
	q.mu.Unlock()
	return nil
}

// execute applies recorded ops to image state. Copies propagate the source
// fill color; region geometry is recorded but not rasterized.
func (q *Queue) execute(ops []Op) {
	for _, op := range ops {
		switch o := op.(type) {
		case OpBeginRenderPass:
			if o.Info.Pass != nil && o.Info.Pass.LoadOp() == gputypes.LoadOpClear {
				if img, ok := o.Info.Pass.ColorImage().(*Image); ok {
					img.fill = o.Info.ClearColor
				}
			}
		case OpTransition:
			if img, ok := o.Image.(*Image); ok {
				img.layout = o.To
			}
		case OpCopy:
			src, sok := o.Src.(*Image)
			dst, dok := o.Dst.(*Image)
			if sok && dok {
				dst.fill = src.fill
			}
		}
	}
}

// WaitIdle records the call and returns immediately: in-memory work is
// always complete.
func (q *Queue) WaitIdle() error {
	q.mu.Lock()
	q.waitIdles++
	q.mu.Unlock()
	return nil
}

// Submissions returns a copy of all recorded submissions.
func (q *Queue) Submissions() []Submission {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Submission, len(q.submissions))
	copy(out, q.submissions)
	return out
}

// LastSubmission returns the most recent submission.
func (q *Queue) LastSubmission() (Submission, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.submissions) == 0 {
		return Submission{}, false
	}
	return q.submissions[len(q.submissions)-1], true
}

// SubmitCount returns the number of recorded submissions.
func (q *Queue) SubmitCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.submissions)
}

// WaitIdleCount returns the number of WaitIdle calls.
func (q *Queue) WaitIdleCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waitIdles
}
