package mesh

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/clusterforge/hal"
	"github.com/gekko3d/clusterforge/pool"
	"github.com/gekko3d/clusterforge/transient"
)

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

type fakeDevice struct {
	fail      bool
	failAfter int // when > 0, creations after the first failAfter fail
	created   int
}

func (d *fakeDevice) CreateBuffer(size uint64, usage hal.Usage, label string) (hal.Buffer, error) {
	if d.fail || (d.failAfter > 0 && d.created >= d.failAfter) {
		return nil, errors.New("oom")
	}
	d.created++
	destroyed := 0
	return &fakeBuffer{size: size, destroyed: &destroyed}, nil
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
func (d *fakeDevice) NewCmdEncoder() hal.CmdEncoder   { return nil }
func (d *fakeDevice) WaitIdle()                       {}
func (d *fakeDevice) FlipProjectionRequired() bool     { return false }

var _ hal.Device = (*fakeDevice)(nil)

type fakeQueue struct {
	writes int
}

func (q *fakeQueue) Submit(buffers []hal.CmdBuffer) hal.Fence                       { return nil }
func (q *fakeQueue) SubmitWithSwapchain(buffers []hal.CmdBuffer, sc hal.Swapchain) hal.Fence { return nil }
func (q *fakeQueue) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) {
	q.writes++
	copy(buf.Bytes()[offset:], data)
}
func (q *fakeQueue) WriteTexture(tex hal.Texture, data []byte, bytesPerRow, rowsPerImage uint32) {}
func (q *fakeQueue) WaitIdle()                                                       {}

var _ hal.Queue = (*fakeQueue)(nil)

func TestMeshUploader_UploadRoundTrips(t *testing.T) {
	dev := &fakeDevice{}
	bp := pool.NewBufferPool(dev, 2, nil)
	mp := NewMeshPool()
	q := &fakeQueue{}
	up := NewMeshUploader(bp, mp, q, nil)

	cpu := Cube(0.5, MaterialID(1))
	h, err := up.Upload(cpu, 0, "cube")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gm, ok := mp.Get(h)
	if !ok {
		t.Fatalf("expected mesh to resolve")
	}
	if gm.VertexCount != 24 || gm.IndexCount != 36 {
		t.Errorf("expected 24 verts/36 indices, got %d/%d", gm.VertexCount, gm.IndexCount)
	}
	if q.writes != 2 {
		t.Errorf("expected 2 queue writes, got %d", q.writes)
	}
}

func TestMeshUploader_UploadFailureRollsBackVertexBuffer(t *testing.T) {
	dev := &fakeDevice{}
	bp := pool.NewBufferPool(dev, 2, nil)
	mp := NewMeshPool()
	up := NewMeshUploader(bp, mp, &fakeQueue{}, nil)

	cpu := Cube(0.5, MaterialID(1))
	dev.failAfter = 1 // the vertex buffer succeeds, the index buffer fails
	if _, err := up.Upload(cpu, 0, "cube"); err == nil {
		t.Fatalf("expected an error")
	}
	if bp.Stats().Allocated != 0 {
		t.Errorf("expected no buffers left allocated after rollback, got %d", bp.Stats().Allocated)
	}
}

func TestMeshDrawSystem_BuildBatchesGroupsContiguous(t *testing.T) {
	mh1 := pool.Handle[GPUMeshKind]{Index: 0, Generation: 1}
	mh2 := pool.Handle[GPUMeshKind]{Index: 1, Generation: 1}

	s := NewMeshDrawSystem(nil)
	s.instances = append(s.instances,
		instanceSubmission{mesh: mh1, material: 1, layer: LayerOpaque},
		instanceSubmission{mesh: mh1, material: 1, layer: LayerOpaque},
		instanceSubmission{mesh: mh2, material: 1, layer: LayerOpaque},
	)
	pipelineOf := func(MeshHandle, MaterialID) PipelineID { return 0 }

	// BuildBatches writes through s.transient; exercise the grouping logic
	// directly against pre-seeded instances instead (transient write is
	// covered by the transient package's own tests).
	batches := groupInstances(s.instances, pipelineOf)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].InstanceCount != 2 || batches[0].Mesh != mh1 {
		t.Errorf("unexpected first batch: %+v", batches[0])
	}
	if batches[1].InstanceCount != 1 || batches[1].Mesh != mh2 {
		t.Errorf("unexpected second batch: %+v", batches[1])
	}
}

func TestMeshDrawSystem_BuildBatchesParallelMatchesSerial(t *testing.T) {
	dev := &fakeDevice{}
	tp, err := transient.New(dev, transient.Descriptor{VertexCapacity: 1 << 16, FramesInFlight: 1}, nil)
	if err != nil {
		t.Fatalf("unexpected error constructing transient pool: %v", err)
	}
	tp.BeginFrame(0)

	mh1 := pool.Handle[GPUMeshKind]{Index: 0, Generation: 1}
	mh2 := pool.Handle[GPUMeshKind]{Index: 1, Generation: 1}
	seed := []instanceSubmission{
		{mesh: mh1, material: 1, layer: LayerOpaque},
		{mesh: mh1, material: 1, layer: LayerOpaque},
		{mesh: mh2, material: 2, layer: LayerOpaque},
		{mesh: mh2, material: 2, layer: LayerOpaque},
		{mesh: mh1, material: 1, layer: LayerTransparent},
	}
	pipelineOf := func(m MeshHandle, mat MaterialID) PipelineID { return PipelineID(mat) }

	serial := NewMeshDrawSystem(tp)
	serial.instances = append(serial.instances, seed...)
	serialBatches := serial.BuildBatches(pipelineOf, nil)

	parallel := NewMeshDrawSystem(tp)
	parallel.instances = append(parallel.instances, seed...)
	parallelBatches := parallel.BuildBatchesParallel(pipelineOf, nil, 3)

	if len(serialBatches) != len(parallelBatches) {
		t.Fatalf("expected matching batch counts, got serial=%d parallel=%d", len(serialBatches), len(parallelBatches))
	}
	for i := range serialBatches {
		if serialBatches[i] != parallelBatches[i] {
			t.Errorf("batch %d mismatch: serial=%+v parallel=%+v", i, serialBatches[i], parallelBatches[i])
		}
	}
}

func TestMeshDrawSystem_AddSkinnedInstanceWritesBoneRange(t *testing.T) {
	dev := &fakeDevice{}
	tp, err := transient.New(dev, transient.Descriptor{VertexCapacity: 1 << 16, BoneCapacity: 1 << 16, FramesInFlight: 1}, nil)
	if err != nil {
		t.Fatalf("unexpected error constructing transient pool: %v", err)
	}
	tp.BeginFrame(0)

	mh := pool.Handle[GPUMeshKind]{Index: 0, Generation: 1}
	s := NewMeshDrawSystem(tp)

	skinA := []mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4(), mgl32.Ident4()}
	baseA := s.AddSkinnedInstance(mh, 1, GPUInstance{}, skinA, LayerOpaque)
	skinB := []mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()}
	baseB := s.AddSkinnedInstance(mh, 1, GPUInstance{}, skinB, LayerOpaque)

	if baseA != 0 {
		t.Errorf("expected first skinned instance to start at bone index 0, got %d", baseA)
	}
	if baseB != uint32(len(skinA)) {
		t.Errorf("expected second skinned instance to start after the first's %d bones, got %d", len(skinA), baseB)
	}

	pipelineOf := func(MeshHandle, MaterialID) PipelineID { return 0 }
	batches := s.BuildBatches(pipelineOf, nil)
	if len(batches) != 1 || batches[0].InstanceCount != 2 {
		t.Fatalf("expected the two skinned instances to batch together, got %+v", batches)
	}

	if s.instances[0].boneBase != baseA || s.instances[0].boneCount != uint32(len(skinA)) {
		t.Errorf("first submission carries wrong bone range: %+v", s.instances[0])
	}
	if s.instances[1].boneBase != baseB || s.instances[1].boneCount != uint32(len(skinB)) {
		t.Errorf("second submission carries wrong bone range: %+v", s.instances[1])
	}

	boneStats := tp.Stats().Bones
	wantBytes := uint64(len(skinA)+len(skinB)) * uint64(unsafe.Sizeof(mgl32.Mat4{}))
	if boneStats.BytesUsed != wantBytes {
		t.Errorf("expected bone ring to hold %d bytes, got %d", wantBytes, boneStats.BytesUsed)
	}
}

func TestMeshDrawSystem_StatsReportsDrawCallsTrianglesAndBatches(t *testing.T) {
	dev := &fakeDevice{}
	tp, err := transient.New(dev, transient.Descriptor{VertexCapacity: 1 << 16, FramesInFlight: 1}, nil)
	if err != nil {
		t.Fatalf("unexpected error constructing transient pool: %v", err)
	}
	tp.BeginFrame(0)

	mh1 := pool.Handle[GPUMeshKind]{Index: 0, Generation: 1}
	mh2 := pool.Handle[GPUMeshKind]{Index: 1, Generation: 1}

	s := NewMeshDrawSystem(tp)
	s.AddInstance(mh1, 1, GPUInstance{}, LayerOpaque)
	s.AddInstance(mh1, 1, GPUInstance{}, LayerOpaque)
	s.AddInstance(mh2, 1, GPUInstance{}, LayerOpaque)

	trianglesOf := func(h MeshHandle) uint32 {
		if h == mh1 {
			return 12
		}
		return 6
	}
	batches := s.BuildBatches(func(MeshHandle, MaterialID) PipelineID { return 0 }, trianglesOf)

	got := s.Stats()
	want := DrawStats{DrawCalls: 3, Triangles: 12 + 12 + 6, BatchCount: len(batches)}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}
