package wgpuhal

import (
	"sync/atomic"
	"time"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/clusterforge/hal"
)

// Queue adapts a wgpu.Queue to hal.Queue.
type Queue struct{ queue *wgpu.Queue }

var _ hal.Queue = (*Queue)(nil)

func (q *Queue) Submit(buffers []hal.CmdBuffer) hal.Fence {
	native := make([]*wgpu.CommandBuffer, len(buffers))
	for i, b := range buffers {
		native[i] = b.(*CmdBuffer).buf
	}
	q.queue.Submit(native...)
	return newFence(q.queue)
}

// SubmitWithSwapchain submits buffers, then presents sc's currently
// acquired surface texture. The acquired texture must have been obtained
// via sc.Acquire earlier in the frame.
func (q *Queue) SubmitWithSwapchain(buffers []hal.CmdBuffer, sc hal.Swapchain) hal.Fence {
	fence := q.Submit(buffers)
	sc.(*Swapchain).present()
	return fence
}

func (q *Queue) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) {
	q.queue.WriteBuffer(buf.(*Buffer).buf, offset, data)
}

func (q *Queue) WriteTexture(tex hal.Texture, data []byte, bytesPerRow, rowsPerImage uint32) {
	t := tex.(*Texture)
	q.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: t.tex},
		data,
		&wgpu.TextureDataLayout{BytesPerRow: bytesPerRow, RowsPerImage: rowsPerImage},
		&wgpu.Extent3D{Width: t.w, Height: t.h, DepthOrArrayLayers: t.d},
	)
}

func (q *Queue) WaitIdle() { q.queue.Submit() }

// fence adapts wgpu's OnSubmittedWorkDone callback to hal.Fence's
// poll/wait contract, since wgpu has no standalone fence object: Submit
// itself registers the callback and Wait blocks on a channel it closes.
type fence struct {
	done   chan struct{}
	signal atomic.Bool
}

func newFence(q *wgpu.Queue) *fence {
	f := &fence{done: make(chan struct{})}
	q.OnSubmittedWorkDone(func(status wgpu.QueueWorkDoneStatus) {
		f.signal.Store(true)
		close(f.done)
	})
	return f
}

var _ hal.Fence = (*fence)(nil)

func (f *fence) Wait(timeout time.Duration) bool {
	select {
	case <-f.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (f *fence) Reset() {
	f.done = make(chan struct{})
	f.signal.Store(false)
}

func (f *fence) IsSignaled() bool { return f.signal.Load() }
