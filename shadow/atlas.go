package shadow

import "github.com/go-gl/mathgl/mgl32"

// AtlasDescriptor configures the shadow atlas's total size and per-region
// size bounds.
type AtlasDescriptor struct {
	Size           uint32
	MinRegionSize  uint32
	MaxRegionSize  uint32
}

func (d AtlasDescriptor) withDefaults() AtlasDescriptor {
	if d.Size == 0 {
		d.Size = 4096
	}
	if d.MinRegionSize == 0 {
		d.MinRegionSize = 256
	}
	if d.MaxRegionSize == 0 {
		d.MaxRegionSize = 1024
	}
	return d
}

// Region is one allocated tile of the atlas.
type Region struct {
	X, Y, Size  uint32
	LightIndex  uint32
	ViewProj    mgl32.Mat4
	Near, Far   float32
}

// Atlas allocates fixed-size, power-of-two regions from a single large
// depth texture. Internally the atlas is a grid
// of MinRegionSize cells; a region of size R occupies an R/MinRegionSize
// square of cells snapped to an R-aligned boundary, scanned in row-major
// order for the first all-free placement. Sharing one occupancy grid
// across size classes is what keeps a 256px and a 1024px region from ever
// overlapping, regardless of allocation order.
type Atlas struct {
	desc     AtlasDescriptor
	gridSide uint32 // Size / MinRegionSize
	occupied []bool // gridSide*gridSide, row-major
	byLight  map[uint32]Region
}

// NewAtlas constructs an atlas with desc's configuration (defaults: 4096
// atlas, 256 min region, 1024 max region).
func NewAtlas(desc AtlasDescriptor) *Atlas {
	desc = desc.withDefaults()
	side := desc.Size / desc.MinRegionSize
	return &Atlas{
		desc:     desc,
		gridSide: side,
		occupied: make([]bool, side*side),
		byLight:  make(map[uint32]Region),
	}
}

// RegionSize rounds requested up to the smallest power of two >=
// MinRegionSize, capped at MaxRegionSize.
func (a *Atlas) RegionSize(requested uint32) uint32 {
	size := a.desc.MinRegionSize
	for size < requested && size < a.desc.MaxRegionSize {
		size *= 2
	}
	if size > a.desc.MaxRegionSize {
		size = a.desc.MaxRegionSize
	}
	return size
}

// BeginFrame frees every previously allocated region.
func (a *Atlas) BeginFrame() {
	for k := range a.byLight {
		delete(a.byLight, k)
	}
	for i := range a.occupied {
		a.occupied[i] = false
	}
}

func (a *Atlas) cellIndex(cx, cy uint32) int { return int(cy*a.gridSide + cx) }

// Allocate reserves the first free, R-aligned square of cells for
// RegionSize(requestedSize), returning false if the atlas has no room
// left.
func (a *Atlas) Allocate(lightIndex uint32, requestedSize uint32) (Region, bool) {
	size := a.RegionSize(requestedSize)
	cellsPerSide := size / a.desc.MinRegionSize

	for cy := uint32(0); cy+cellsPerSide <= a.gridSide; cy += cellsPerSide {
		for cx := uint32(0); cx+cellsPerSide <= a.gridSide; cx += cellsPerSide {
			if a.regionFree(cx, cy, cellsPerSide) {
				a.markOccupied(cx, cy, cellsPerSide)
				r := Region{X: cx * a.desc.MinRegionSize, Y: cy * a.desc.MinRegionSize, Size: size, LightIndex: lightIndex}
				a.byLight[lightIndex] = r
				return r, true
			}
		}
	}
	return Region{}, false
}

func (a *Atlas) regionFree(cx, cy, cellsPerSide uint32) bool {
	for y := cy; y < cy+cellsPerSide; y++ {
		for x := cx; x < cx+cellsPerSide; x++ {
			if a.occupied[a.cellIndex(x, y)] {
				return false
			}
		}
	}
	return true
}

func (a *Atlas) markOccupied(cx, cy, cellsPerSide uint32) {
	for y := cy; y < cy+cellsPerSide; y++ {
		for x := cx; x < cx+cellsPerSide; x++ {
			a.occupied[a.cellIndex(x, y)] = true
		}
	}
}

// AllocateCubeFaces allocates six contiguous regions of RegionSize(size)
// for a point light's six cube faces, using
// 1<<31 | (lightIndex*8+face) as each face's distinct allocation key so it
// doesn't collide with the entry of any light index below 1<<31.
func (a *Atlas) AllocateCubeFaces(lightIndex uint32, size uint32) ([6]Region, bool) {
	var faces [6]Region
	for face := 0; face < 6; face++ {
		r, ok := a.Allocate(1<<31|(lightIndex*8+uint32(face)), size)
		if !ok {
			return faces, false
		}
		faces[face] = r
	}
	return faces, true
}

// Lookup returns lightIndex's allocated region, if any.
func (a *Atlas) Lookup(lightIndex uint32) (Region, bool) {
	r, ok := a.byLight[lightIndex]
	return r, ok
}

// AllocatedCount returns the number of regions currently allocated (cleared
// each BeginFrame).
func (a *Atlas) AllocatedCount() int { return len(a.byLight) }

// OccupiedArea returns the sum of size^2 over every currently allocated
// region.
func (a *Atlas) OccupiedArea() uint64 {
	var total uint64
	for _, r := range a.byLight {
		total += uint64(r.Size) * uint64(r.Size)
	}
	return total
}

// SetViewProj updates lightIndex's region with its computed view-projection
// and near/far, leaving placement untouched.
func (a *Atlas) SetViewProj(lightIndex uint32, viewProj mgl32.Mat4, near, far float32) {
	r, ok := a.byLight[lightIndex]
	if !ok {
		return
	}
	r.ViewProj, r.Near, r.Far = viewProj, near, far
	a.byLight[lightIndex] = r
}
