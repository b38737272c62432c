package visibility

import (
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/clusterforge/geom"
)

// RenderView is one active camera view participating in this frame's
// visibility test.
type RenderView struct {
	Frustum FrustumCuller
	ViewZAxis mgl32.Vec3 // view-space forward, used to project positions for depth()
	Position  mgl32.Vec3
	Near, Far float32
}

// MaxViews bounds the view bitmask to 64 bits.
const MaxViews = 64

// Stats reports per-frame visibility counters.
type Stats struct {
	Tested  int
	Visible int
	Culled  int
}

// VisibilitySystem aggregates per-object visibility across every active
// RenderView for one frame.
type VisibilitySystem struct {
	mu     sync.Mutex
	views  []RenderView
	tested int64
	visible int64
}

// NewVisibilitySystem constructs an empty visibility system.
func NewVisibilitySystem() *VisibilitySystem { return &VisibilitySystem{} }

// SetViews replaces the active view list for this frame.
func (s *VisibilitySystem) SetViews(views []RenderView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(views) > MaxViews {
		views = views[:MaxViews]
	}
	s.views = views
	atomic.StoreInt64(&s.tested, 0)
	atomic.StoreInt64(&s.visible, 0)
}

// TestAABB runs box against every active view, returning whether any view
// accepted it and a bitmask with bit i set iff view i accepted.
func (s *VisibilitySystem) TestAABB(box geom.AABB) (bool, uint64) {
	s.mu.Lock()
	views := s.views
	s.mu.Unlock()

	var mask uint64
	for i, v := range views {
		if v.Frustum.TestAABB(box) != Outside {
			mask |= 1 << uint(i)
		}
	}
	atomic.AddInt64(&s.tested, 1)
	visible := mask != 0
	if visible {
		atomic.AddInt64(&s.visible, 1)
	}
	return visible, mask
}

// TestAABBsParallel runs TestAABB over boxes, fanning out across
// workerCount goroutines operating on disjoint index ranges of the result
// slices. workerCount <= 1 runs serially. Each goroutine only writes the
// index range it was handed and only reads the shared, already-published
// view list, so nothing written here outlives this call.
func (s *VisibilitySystem) TestAABBsParallel(boxes []geom.AABB, workerCount int) (visible []bool, masks []uint64) {
	s.mu.Lock()
	views := s.views
	s.mu.Unlock()

	visible = make([]bool, len(boxes))
	masks = make([]uint64, len(boxes))
	if len(boxes) == 0 {
		return visible, masks
	}

	testRange := func(start, end int) {
		var tested, visCount int64
		for i := start; i < end; i++ {
			var mask uint64
			for vi, v := range views {
				if v.Frustum.TestAABB(boxes[i]) != Outside {
					mask |= 1 << uint(vi)
				}
			}
			masks[i] = mask
			visible[i] = mask != 0
			tested++
			if visible[i] {
				visCount++
			}
		}
		atomic.AddInt64(&s.tested, tested)
		atomic.AddInt64(&s.visible, visCount)
	}

	if workerCount <= 1 {
		testRange(0, len(boxes))
		return visible, masks
	}

	chunkSize := (len(boxes) + workerCount - 1) / workerCount
	var wg sync.WaitGroup
	for start := 0; start < len(boxes); start += chunkSize {
		end := start + chunkSize
		if end > len(boxes) {
			end = len(boxes)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			testRange(start, end)
		}(start, end)
	}
	wg.Wait()
	return visible, masks
}

// Depth linearizes the distance from viewIndex's camera to position into
// [0,1] via (|view_z| - near) / (far - near).
func (s *VisibilitySystem) Depth(viewIndex int, position mgl32.Vec3) float32 {
	s.mu.Lock()
	views := s.views
	s.mu.Unlock()
	if viewIndex < 0 || viewIndex >= len(views) {
		return 0
	}
	v := views[viewIndex]
	viewZ := position.Sub(v.Position).Dot(v.ViewZAxis)
	if viewZ < 0 {
		viewZ = -viewZ
	}
	denom := v.Far - v.Near
	if denom <= 0 {
		return 0
	}
	d := (viewZ - v.Near) / denom
	if d < 0 {
		d = 0
	}
	if d > 1 {
		d = 1
	}
	return d
}

// Stats reports cumulative tested/visible/culled counters for the current
// frame. Reset implicitly by SetViews.
func (s *VisibilitySystem) Stats() Stats {
	tested := atomic.LoadInt64(&s.tested)
	visible := atomic.LoadInt64(&s.visible)
	return Stats{Tested: int(tested), Visible: int(visible), Culled: int(tested - visible)}
}

// BatchCuller tests a slice of AABBs against one view-projection in bulk,
// used when per-object visibility bookkeeping isn't needed.
type BatchCuller struct {
	frustum FrustumCuller
}

// NewBatchCuller extracts a frustum from viewProjection for bulk testing.
func NewBatchCuller(viewProjection mgl32.Mat4) BatchCuller {
	return BatchCuller{frustum: NewFrustumCuller(viewProjection)}
}

// TestAll returns a bitset (one bool per input, true = visible) for boxes.
func (c BatchCuller) TestAll(boxes []geom.AABB) []bool {
	out := make([]bool, len(boxes))
	for i, b := range boxes {
		out[i] = c.frustum.TestAABB(b) != Outside
	}
	return out
}
