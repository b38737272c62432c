package renderer

import (
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/clusterforge/hal"
	"github.com/gekko3d/clusterforge/lighting"
	"github.com/gekko3d/clusterforge/mesh"
	"github.com/gekko3d/clusterforge/rendergraph"
	"github.com/gekko3d/clusterforge/world"
)

type fakeBuffer struct {
	size uint64
	data []byte
}

func (b *fakeBuffer) Destroy()      {}
func (b *fakeBuffer) Size() uint64  { return b.size }
func (b *fakeBuffer) Visible() bool { return true }
func (b *fakeBuffer) Bytes() []byte {
	if b.data == nil {
		b.data = make([]byte, b.size)
	}
	return b.data
}

type fakeDevice struct{ fail bool }

func (d *fakeDevice) CreateBuffer(size uint64, usage hal.Usage, label string) (hal.Buffer, error) {
	if d.fail {
		return nil, errors.New("oom")
	}
	return &fakeBuffer{size: size}, nil
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
func (d *fakeDevice) FlipProjectionRequired() bool  { return false }

var _ hal.Device = (*fakeDevice)(nil)

type fakeQueue struct{ writes int }

func (q *fakeQueue) Submit(buffers []hal.CmdBuffer) hal.Fence { return nil }
func (q *fakeQueue) SubmitWithSwapchain(buffers []hal.CmdBuffer, sc hal.Swapchain) hal.Fence {
	return nil
}
func (q *fakeQueue) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) {
	q.writes++
	copy(buf.Bytes()[offset:], data)
}
func (q *fakeQueue) WriteTexture(tex hal.Texture, data []byte, bytesPerRow, rowsPerImage uint32) {}
func (q *fakeQueue) WaitIdle()                                                                   {}

var _ hal.Queue = (*fakeQueue)(nil)

type fakeFence struct {
	signaled bool
	waits    int
}

func (f *fakeFence) Wait(timeout time.Duration) bool { f.waits++; return f.signaled }
func (f *fakeFence) Reset()                          { f.signaled = false }
func (f *fakeFence) IsSignaled() bool                { return f.signaled }

var _ hal.Fence = (*fakeFence)(nil)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(&fakeDevice{}, &fakeQueue{}, Descriptor{}, nil)
	require.NoError(t, err)
	return r
}

func TestRenderer_SingleCubeOneDirectionalLight(t *testing.T) {
	r := newTestRenderer(t)
	r.BeginFrame(0)

	cpu := mesh.Cube(0.5, mesh.MaterialID(1))
	meshHandle, err := r.Uploader.Upload(cpu, 0, "cube")
	require.NoError(t, err)

	gm, ok := r.Meshes.Get(meshHandle)
	require.True(t, ok)
	if gm.VertexCount != 24 || gm.IndexCount != 36 {
		t.Errorf("expected 24 verts/36 indices, got %d/%d", gm.VertexCount, gm.IndexCount)
	}

	r.World.CreateStaticMesh(world.StaticMeshProxy{
		Transform: mgl32.Ident4(),
		Mesh:      meshHandle,
		Material:  1,
	})

	light := world.LightProxy{
		Kind:      world.LightDirectional,
		Direction: mgl32.Vec3{0.5, -1, 0.3},
		Color:     mgl32.Vec3{1, 0.95, 0.9},
		Intensity: 1.5,
	}
	r.World.CreateLight(light)

	var lights []world.LightProxy
	r.World.ForEachLight(func(h world.LightHandle, l *world.LightProxy) bool {
		lights = append(lights, *l)
		return true
	})
	r.Clusters.AssignLights(lights)

	r.World.ForEachStaticMesh(func(h world.StaticMeshHandle, p *world.StaticMeshProxy) bool {
		r.Draws.AddInstance(p.Mesh, p.Material, mesh.GPUInstance{World: p.Transform}, mesh.LayerOpaque)
		return true
	})
	trianglesOf := func(h mesh.MeshHandle) uint32 {
		gm, ok := r.Meshes.Get(h)
		if !ok {
			return 0
		}
		return gm.IndexCount / 3
	}
	batches := r.Draws.BuildBatches(func(mesh.MeshHandle, mesh.MaterialID) mesh.PipelineID { return 0 }, trianglesOf)

	stats := r.Stats()
	if stats.DrawCalls != 1 {
		t.Errorf("expected 1 draw call, got %d", stats.DrawCalls)
	}
	if stats.Triangles != 12 {
		t.Errorf("expected 12 triangles, got %d", stats.Triangles)
	}
	if stats.BatchCount != 1 {
		t.Errorf("expected 1 batch, got %d", stats.BatchCount)
	}
	if len(batches) != 1 || batches[0].InstanceCount != 1 {
		t.Errorf("expected a single batch of 1 instance, got %+v", batches)
	}
	if r.World.CountLights() != 1 {
		t.Errorf("expected light_count=1, got %d", r.World.CountLights())
	}
}

func TestRenderer_BeginFrameResetsDrawsAndGraph(t *testing.T) {
	r := newTestRenderer(t)
	r.BeginFrame(0)

	cpu := mesh.Cube(0.5, mesh.MaterialID(1))
	meshHandle, err := r.Uploader.Upload(cpu, 0, "cube")
	require.NoError(t, err)
	r.Draws.AddInstance(meshHandle, 1, mesh.GPUInstance{World: mgl32.Ident4()}, mesh.LayerOpaque)

	target := r.Graph.CreateTexture("target", rendergraph.RenderTarget(64, 64, hal.FormatRGBA8Unorm))
	r.Graph.AddGraphicsPass("Pass").
		Color(0, rendergraph.ColorAttachment{Handle: target}).
		Flags(rendergraph.NeverCull)

	r.BeginFrame(1)

	batches := r.Draws.BuildBatches(func(mesh.MeshHandle, mesh.MaterialID) mesh.PipelineID { return 0 }, nil)
	if len(batches) != 0 {
		t.Errorf("expected BeginFrame to clear prior-frame draw submissions, got %d batches", len(batches))
	}
	require.NoError(t, r.Graph.Compile())
	if n := r.Graph.Stats().PassCount; n != 0 {
		t.Errorf("expected BeginFrame to clear prior-frame graph passes, got %d", n)
	}
}

func TestRenderer_FenceTimeoutResetsAllInFlightFences(t *testing.T) {
	r, err := New(&fakeDevice{}, &fakeQueue{}, Descriptor{FramesInFlight: 2, FenceTimeout: time.Millisecond}, nil)
	require.NoError(t, err)

	f0 := &fakeFence{signaled: false}
	f1 := &fakeFence{signaled: true}
	r.SetFrameFence(0, f0)
	r.SetFrameFence(1, f1)

	r.BeginFrame(2) // slot 0 again; f0 never signals -> timeout path

	if f1.signaled {
		t.Errorf("expected timeout handling to reset every in-flight fence, including slot 1's")
	}
}

func TestRenderer_StatsReportsActiveShadowMaps(t *testing.T) {
	r := newTestRenderer(t)
	r.BeginFrame(0)

	if _, ok := r.Shadows.AllocateLocalShadow(0, 512, mgl32.Ident4(), 0.1, 100); !ok {
		t.Fatalf("expected atlas to have room for one local shadow")
	}

	stats := r.Stats()
	want := r.Shadows.Cascades.Count() + 1
	if stats.ActiveShadowMaps != want {
		t.Errorf("expected %d active shadow maps (cascades + 1 local), got %d", want, stats.ActiveShadowMaps)
	}
}

func TestLightingGridDescriptorWired(t *testing.T) {
	r, err := New(&fakeDevice{}, &fakeQueue{}, Descriptor{Clusters: lighting.GridDescriptor{GX: 8, GY: 6, GZ: 16}}, nil)
	require.NoError(t, err)
	gx, gy, gz := r.Clusters.Dimensions()
	if gx != 8 || gy != 6 || gz != 16 {
		t.Errorf("expected configured grid dimensions 8x6x16, got %dx%dx%d", gx, gy, gz)
	}
}
