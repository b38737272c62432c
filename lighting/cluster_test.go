package lighting

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/clusterforge/world"
)

func TestClusterGrid_SliceMonotonic(t *testing.T) {
	g := NewClusterGrid(GridDescriptor{GX: 16, GY: 9, GZ: 24, Near: 0.1, Far: 1000})

	if s := g.Slice(0.1); s != 0 {
		t.Errorf("slice(near) = %d, want 0", s)
	}
	if s := g.Slice(1000); s != 23 {
		t.Errorf("slice(far) = %d, want 23", s)
	}
	prev := -1
	for _, d := range []float32{0.1, 1, 10, 50, 200, 999} {
		s := g.Slice(d)
		if s < prev {
			t.Errorf("slice(%v) = %d is less than previous %d, expected non-decreasing", d, s, prev)
		}
		prev = s
	}
}

func TestClusterGrid_ClusterIndex(t *testing.T) {
	g := NewClusterGrid(GridDescriptor{GX: 16, GY: 9, GZ: 24})
	if idx := g.ClusterIndex(3, 2, 1); idx != 3+2*16+1*16*9 {
		t.Errorf("unexpected cluster index %d", idx)
	}
}

func TestClusterGrid_AssignLights_CapAndCoverage(t *testing.T) {
	g := NewClusterGrid(GridDescriptor{GX: 8, GY: 6, GZ: 16, Near: 0.1, Far: 100})
	invProj := mgl32.Perspective(1, 16.0/9.0, 0.1, 100).Inv()
	g.BuildAABBs(invProj)

	var lights []world.LightProxy
	for x := -2; x <= 2; x++ {
		for y := -2; y <= 2; y++ {
			lights = append(lights, world.LightProxy{
				Kind:     world.LightPoint,
				Position: mgl32.Vec3{float32(x) * 2, float32(y) * 2, -20},
				Range:    8,
			})
		}
	}
	g.AssignLights(lights)

	if len(lights) != 25 {
		t.Fatalf("test setup error: expected 25 lights, got %d", len(lights))
	}

	gx, gy, gz := g.Dimensions()
	overlapFound := false
	for z := 0; z < gz; z++ {
		for y := 0; y < gy; y++ {
			for x := 0; x < gx; x++ {
				n := len(g.ClusterLights(x, y, z))
				if n > MaxLightsPerCluster {
					t.Fatalf("cluster (%d,%d,%d) has %d lights, exceeds cap", x, y, z, n)
				}
				if n >= 2 {
					overlapFound = true
				}
			}
		}
	}
	if !overlapFound {
		t.Errorf("expected at least one cluster to overlap >= 2 lights")
	}
}
