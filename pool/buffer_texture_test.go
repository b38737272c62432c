package pool

import (
	"errors"
	"testing"

	"github.com/gekko3d/clusterforge/hal"
)

// fakeDevice is a minimal hal.Device stub exercising only what BufferPool
// and TexturePool call.
type fakeDevice struct {
	failBuffers  bool
	failTextures bool
}

type fakeBuffer struct {
	size      uint64
	destroyed *int
	data      []byte
}

func (b *fakeBuffer) Destroy()      { *b.destroyed++ }
func (b *fakeBuffer) Size() uint64  { return b.size }
func (b *fakeBuffer) Visible() bool { return true }
func (b *fakeBuffer) Bytes() []byte {
	if b.data == nil {
		b.data = make([]byte, b.size)
	}
	return b.data
}

type fakeTexture struct {
	w, h, d   uint32
	destroyed *int
}

func (t *fakeTexture) Destroy()                         { *t.destroyed++ }
func (t *fakeTexture) NewView() (hal.TextureView, error) { return nil, nil }
func (t *fakeTexture) Width() uint32                     { return t.w }
func (t *fakeTexture) Height() uint32                    { return t.h }
func (t *fakeTexture) Depth() uint32                     { return t.d }

func (d *fakeDevice) CreateBuffer(size uint64, usage hal.Usage, label string) (hal.Buffer, error) {
	if d.failBuffers {
		return nil, errors.New("device out of memory")
	}
	destroyed := 0
	return &fakeBuffer{size: size, destroyed: &destroyed}, nil
}

func (d *fakeDevice) CreateTexture(w, h, dep uint32, format hal.PixelFormat, mips uint32, usage hal.Usage, label string) (hal.Texture, error) {
	if d.failTextures {
		return nil, errors.New("device out of memory")
	}
	destroyed := 0
	return &fakeTexture{w: w, h: h, d: dep, destroyed: &destroyed}, nil
}

func (d *fakeDevice) CreateSampler() (hal.Sampler, error)                { return nil, nil }
func (d *fakeDevice) CreateShaderModule(code []byte, label string) (hal.ShaderModule, error) {
	return nil, nil
}
func (d *fakeDevice) CreateBindGroupLayout() (hal.BindGroupLayout, error)  { return nil, nil }
func (d *fakeDevice) CreateBindGroup(l hal.BindGroupLayout) (hal.BindGroup, error) { return nil, nil }
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
func (d *fakeDevice) NewCmdEncoder() hal.CmdEncoder     { return nil }
func (d *fakeDevice) WaitIdle()                         {}
func (d *fakeDevice) FlipProjectionRequired() bool       { return false }

var _ hal.Device = (*fakeDevice)(nil)

func TestBufferPool_CreateAndRelease(t *testing.T) {
	dev := &fakeDevice{}
	bp := NewBufferPool(dev, 2, nil)

	h, err := bp.CreateBuffer(1024, hal.UsageVertex, "vtx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	size, ok := bp.GetSize(h)
	if !ok || size != 1024 {
		t.Errorf("expected size 1024, got %d (ok=%v)", size, ok)
	}

	buf, _ := bp.GetBuffer(h)
	fb := buf.(*fakeBuffer)

	bp.ReleaseBuffer(h, 0)
	if bp.IsValid(h) {
		t.Errorf("handle should be dead immediately after release")
	}
	if *fb.destroyed != 0 {
		t.Errorf("buffer destroyed before deferred delay elapsed")
	}

	bp.Tick(2)
	if *fb.destroyed != 1 {
		t.Errorf("expected buffer destroyed after 2 frames, destroyed=%d", *fb.destroyed)
	}
}

func TestBufferPool_CreateFailureRollsBackSlot(t *testing.T) {
	dev := &fakeDevice{failBuffers: true}
	bp := NewBufferPool(dev, 2, nil)

	h, err := bp.CreateBuffer(16, hal.UsageUniform, "bad")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if h.IsValid() {
		t.Errorf("expected an invalid handle on failure")
	}
	if bp.Stats().Allocated != 0 {
		t.Errorf("failed allocation must not occupy a slot")
	}
}

func TestTexturePool_CreateTexture2D(t *testing.T) {
	dev := &fakeDevice{}
	tp := NewTexturePool(dev, 2, nil)

	h, err := tp.CreateTexture2D(64, 32, hal.FormatRGBA8Unorm, hal.UsageSampled, 1, "tex")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w, ht, d, ok := tp.GetDimensions(h)
	if !ok || w != 64 || ht != 32 || d != 1 {
		t.Errorf("unexpected dimensions %d x %d x %d (ok=%v)", w, ht, d, ok)
	}
	format, ok := tp.GetFormat(h)
	if !ok || format != hal.FormatRGBA8Unorm {
		t.Errorf("unexpected format %v", format)
	}
}

func TestTexturePool_InvalidHandleIsTotal(t *testing.T) {
	tp := NewTexturePool(&fakeDevice{}, 2, nil)
	inv := Invalid[TextureKind]()

	if _, _, _, ok := tp.GetDimensions(inv); ok {
		t.Errorf("expected GetDimensions to fail on invalid handle")
	}
	if _, ok := tp.GetFormat(inv); ok {
		t.Errorf("expected GetFormat to fail on invalid handle")
	}
	tp.ReleaseTexture(inv, 0) // must not panic
}
