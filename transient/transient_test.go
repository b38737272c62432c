package transient

import (
	"testing"
	"unsafe"

	"github.com/gekko3d/clusterforge/hal"
)

type fakeBuffer struct {
	data []byte
}

func (b *fakeBuffer) Destroy()      {}
func (b *fakeBuffer) Size() uint64  { return uint64(len(b.data)) }
func (b *fakeBuffer) Visible() bool { return true }
func (b *fakeBuffer) Bytes() []byte { return b.data }

type fakeDevice struct{}

func (d *fakeDevice) CreateBuffer(size uint64, usage hal.Usage, label string) (hal.Buffer, error) {
	return &fakeBuffer{data: make([]byte, size)}, nil
}
func (d *fakeDevice) CreateTexture(w, h, dep uint32, f hal.PixelFormat, m uint32, u hal.Usage, l string) (hal.Texture, error) {
	return nil, nil
}
func (d *fakeDevice) CreateSampler() (hal.Sampler, error) { return nil, nil }
func (d *fakeDevice) CreateShaderModule(code []byte, label string) (hal.ShaderModule, error) {
	return nil, nil
}
func (d *fakeDevice) CreateBindGroupLayout() (hal.BindGroupLayout, error) { return nil, nil }
func (d *fakeDevice) CreateBindGroup(l hal.BindGroupLayout) (hal.BindGroup, error) {
	return nil, nil
}
func (d *fakeDevice) CreatePipelineLayout(l []hal.BindGroupLayout) (hal.PipelineLayout, error) {
	return nil, nil
}
func (d *fakeDevice) CreateRenderPipeline(desc hal.RenderPipelineDescriptor) (hal.Pipeline, error) {
	return nil, nil
}
func (d *fakeDevice) CreateComputePipeline(desc hal.ComputePipelineDescriptor) (hal.Pipeline, error) {
	return nil, nil
}
func (d *fakeDevice) CreateQuerySet(count uint32) (hal.QuerySet, error) { return nil, nil }
func (d *fakeDevice) CreateSwapchain(w, h uint32, f hal.PixelFormat) (hal.Swapchain, error) {
	return nil, nil
}
func (d *fakeDevice) NewCmdEncoder() hal.CmdEncoder { return nil }
func (d *fakeDevice) WaitIdle()                     {}
func (d *fakeDevice) FlipProjectionRequired() bool   { return false }

var _ hal.Device = (*fakeDevice)(nil)

type vertex struct {
	Pos [3]float32
	UV  [2]float32
}

func newTestPool(t *testing.T, desc Descriptor) *Pool {
	t.Helper()
	p, err := New(&fakeDevice{}, desc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestPool_UniformOffsetsAreAligned(t *testing.T) {
	p := newTestPool(t, Descriptor{UniformCapacity: 4096, FramesInFlight: 2})
	p.BeginFrame(0)

	for i := 0; i < 5; i++ {
		alloc := AllocateUniform[[17]byte](p)
		if !alloc.Valid {
			t.Fatalf("allocation %d unexpectedly invalid", i)
		}
		if alloc.Offset%UniformAlignment != 0 {
			t.Errorf("offset %d not aligned to %d", alloc.Offset, UniformAlignment)
		}
	}
}

func TestPool_BeginFrameResetsCursor(t *testing.T) {
	p := newTestPool(t, Descriptor{VertexCapacity: 1024, FramesInFlight: 2})
	p.BeginFrame(0)

	a := AllocateVertices(p, []vertex{{}, {}})
	if a.Offset != 0 {
		t.Fatalf("expected first allocation at offset 0, got %d", a.Offset)
	}

	p.BeginFrame(1)
	b := AllocateVertices(p, []vertex{{}})
	if b.Offset != 0 {
		t.Errorf("expected offset 0 after begin_frame, got %d", b.Offset)
	}
}

func TestPool_OverflowReturnsInvalidAndStaysFailed(t *testing.T) {
	p := newTestPool(t, Descriptor{VertexCapacity: 32, FramesInFlight: 1})
	p.BeginFrame(0)

	big := make([]vertex, 10) // far exceeds 32 bytes
	alloc := AllocateVertices(p, big)
	if alloc.Valid {
		t.Fatalf("expected overflow to be invalid")
	}

	// A small request that would otherwise fit must still fail: once a
	// ring overflows, no invalid allocation is followed by a valid one in
	// the same frame.
	small := AllocateVertices(p, []vertex{{}})
	if small.Valid {
		t.Errorf("expected subsequent allocation in the same frame to stay invalid")
	}
	if p.Stats().Vertex.BytesUsed != 0 {
		t.Errorf("failed allocations must not advance bytes_used")
	}

	// After begin_frame, the same allocation succeeds again.
	p.BeginFrame(1)
	retry := AllocateVertices(p, []vertex{{}})
	if !retry.Valid {
		t.Errorf("expected allocation to succeed after begin_frame reset")
	}
}

func TestPool_IndicesWriteThroughToBuffer(t *testing.T) {
	p := newTestPool(t, Descriptor{IndexCapacity: 256, FramesInFlight: 1})
	p.BeginFrame(0)

	idx := []uint16{0, 1, 2, 2, 1, 3}
	alloc := AllocateIndices(p, idx)
	if !alloc.Valid {
		t.Fatalf("expected valid allocation")
	}
	if len(alloc.Data) != len(idx)*2 {
		t.Errorf("expected %d bytes, got %d", len(idx)*2, len(alloc.Data))
	}
	if alloc.Data[2] != 1 || alloc.Data[4] != 2 {
		t.Errorf("index bytes not written through as expected: %v", alloc.Data)
	}
}

func TestPool_WriteUniformRoundTrips(t *testing.T) {
	type camera struct {
		ViewProj [16]float32
		Pad      [4]float32
	}
	p := newTestPool(t, Descriptor{UniformCapacity: 1024, FramesInFlight: 1})
	p.BeginFrame(0)

	alloc := AllocateUniform[camera](p)
	WriteUniform(alloc, camera{ViewProj: [16]float32{1: 1, 5: 1, 10: 1, 15: 1}})

	got := *(*camera)(unsafe.Pointer(&alloc.Data[0]))
	if got.ViewProj[5] != 1 {
		t.Errorf("expected round-tripped value, got %+v", got)
	}
}
