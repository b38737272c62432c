package visibility

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/clusterforge/geom"
)

func testViewProjection() mgl32.Mat4 {
	proj := mgl32.Perspective(math.Pi/4, 16.0/9.0, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	return proj.Mul4(view)
}

func TestFrustumCuller_PlaneNormalsAreUnitLength(t *testing.T) {
	f := NewFrustumCuller(testViewProjection())
	for i, p := range f.Planes() {
		l := p.Normal.Len()
		if l < 0.99 || l > 1.01 {
			t.Errorf("plane %d normal length = %v, want ~1", i, l)
		}
	}
}

func TestFrustumCuller_AABBCases(t *testing.T) {
	f := NewFrustumCuller(testViewProjection())

	if r := f.TestAABB(geom.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}); r == Outside {
		t.Errorf("origin-straddling box should not be Outside, got %v", r)
	}
	if r := f.TestAABB(geom.AABB{Min: mgl32.Vec3{-1, -1, -100}, Max: mgl32.Vec3{1, 1, -95}}); r != Outside {
		t.Errorf("far-behind box should be Outside, got %v", r)
	}
	if r := f.TestAABB(geom.AABB{Min: mgl32.Vec3{100, -1, -1}, Max: mgl32.Vec3{102, 1, 1}}); r != Outside {
		t.Errorf("far-right box should be Outside, got %v", r)
	}
	if r := f.TestSphere(mgl32.Vec3{0, 0, 0}, 1); r == Outside {
		t.Errorf("origin sphere should be visible, got %v", r)
	}
	if r := f.TestSphere(mgl32.Vec3{0, 0, 20}, 1); r != Outside {
		t.Errorf("sphere behind camera should be Outside, got %v", r)
	}
}

func TestDrawKeys_OpaqueAscendingTransparentDescending(t *testing.T) {
	near := OpaqueKey(LayerOpaque, 1, 2, 3, 0.1)
	far := OpaqueKey(LayerOpaque, 1, 2, 3, 0.9)
	if !(near < far) {
		t.Errorf("expected opaque_key(0.1) < opaque_key(0.9), got %d vs %d", near, far)
	}

	tNear := TransparentKey(LayerTransparent, 1, 2, 3, 0.1)
	tFar := TransparentKey(LayerTransparent, 1, 2, 3, 0.9)
	if !(tNear > tFar) {
		t.Errorf("expected transparent_key(0.1) > transparent_key(0.9), got %d vs %d", tNear, tFar)
	}
}

func TestDrawBatcher_CoalescesAdjacentCommands(t *testing.T) {
	b := NewDrawBatcher()
	b.AddOpaque(1, 1, 1, 0, 4, 0.1)
	b.AddOpaque(1, 1, 1, 4, 4, 0.2)
	b.AddOpaque(1, 1, 2, 0, 4, 0.05)

	_, batches := b.BuildBatches()
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d: %+v", len(batches), batches)
	}
	// Sort keys bucket by (pipeline, material, mesh) ahead of depth, so
	// mesh 1's bucket (lower mesh id) sorts before mesh 2's regardless of
	// depth.
	if batches[0].Mesh != 1 || batches[0].CommandCount != 2 {
		t.Errorf("expected mesh 1's two commands coalesced first, got %+v", batches[0])
	}
	if batches[1].Mesh != 2 {
		t.Errorf("expected mesh 2 batch second, got %+v", batches[1])
	}
}

func TestVisibilitySystem_TestAABB_MaskAndStats(t *testing.T) {
	vs := NewVisibilitySystem()
	vs.SetViews([]RenderView{
		{Frustum: NewFrustumCuller(testViewProjection()), Near: 0.1, Far: 100},
	})

	visible, mask := vs.TestAABB(geom.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}})
	if !visible || mask&1 == 0 {
		t.Errorf("expected origin box visible in view 0, got visible=%v mask=%b", visible, mask)
	}
	visible, _ = vs.TestAABB(geom.AABB{Min: mgl32.Vec3{1000, 1000, 1000}, Max: mgl32.Vec3{1001, 1001, 1001}})
	if visible {
		t.Errorf("expected far-away box to be culled")
	}

	stats := vs.Stats()
	if stats.Tested != 2 || stats.Visible != 1 || stats.Culled != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestVisibilitySystem_TestAABBsParallelMatchesSerial(t *testing.T) {
	boxes := []geom.AABB{
		{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}},
		{Min: mgl32.Vec3{1000, 1000, 1000}, Max: mgl32.Vec3{1001, 1001, 1001}},
		{Min: mgl32.Vec3{-2, -2, -2}, Max: mgl32.Vec3{2, 2, 2}},
		{Min: mgl32.Vec3{-1, -1, -100}, Max: mgl32.Vec3{1, 1, -95}},
	}

	serial := NewVisibilitySystem()
	serial.SetViews([]RenderView{{Frustum: NewFrustumCuller(testViewProjection()), Near: 0.1, Far: 100}})
	var wantVisible []bool
	var wantMasks []uint64
	for _, b := range boxes {
		v, m := serial.TestAABB(b)
		wantVisible = append(wantVisible, v)
		wantMasks = append(wantMasks, m)
	}

	parallel := NewVisibilitySystem()
	parallel.SetViews([]RenderView{{Frustum: NewFrustumCuller(testViewProjection()), Near: 0.1, Far: 100}})
	gotVisible, gotMasks := parallel.TestAABBsParallel(boxes, 3)

	for i := range boxes {
		if gotVisible[i] != wantVisible[i] || gotMasks[i] != wantMasks[i] {
			t.Errorf("box %d: parallel=(%v,%b) serial=(%v,%b)", i, gotVisible[i], gotMasks[i], wantVisible[i], wantMasks[i])
		}
	}

	stats := parallel.Stats()
	if stats.Tested != len(boxes) {
		t.Errorf("expected tested=%d, got %d", len(boxes), stats.Tested)
	}
}
