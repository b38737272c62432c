package visibility

import "sort"

// Layer mirrors mesh.Layer; kept independent so visibility has no import
// dependency on mesh. Draw commands here reference mesh/material/pipeline
// only as opaque numeric ids.
type Layer uint8

const (
	LayerOpaque Layer = iota
	LayerTransparent
	LayerOverlay
)

// DrawCommand is one packed, sortable draw.
type DrawCommand struct {
	SortKey        uint64
	Pipeline       uint32
	Material       uint32
	Mesh           uint32
	InstanceOffset uint32
	InstanceCount  uint32
	ViewDepth      float32
	Layer          Layer
	insertionIndex uint32
}

// depthBits is the number of bits of the packed key spent on quantized
// depth.
const depthBits = 12

func quantizeDepth(depth float32) uint64 {
	if depth < 0 {
		depth = 0
	}
	if depth > 1 {
		depth = 1
	}
	return uint64(depth * float32((1<<depthBits)-1))
}

// OpaqueKey packs (layer, pipeline, material, mesh, depth) so ascending
// sort gives front-to-back ordering within each (pipeline,material,mesh)
// bucket.
func OpaqueKey(layer Layer, pipeline, material, mesh uint32, depth float32) uint64 {
	d := quantizeDepth(depth)
	return packKey(layer, pipeline, material, mesh, d)
}

// TransparentKey is OpaqueKey with depth inverted so ascending sort gives
// back-to-front ordering.
func TransparentKey(layer Layer, pipeline, material, mesh uint32, depth float32) uint64 {
	d := uint64((1<<depthBits)-1) - quantizeDepth(depth)
	return packKey(layer, pipeline, material, mesh, d)
}

func packKey(layer Layer, pipeline, material, mesh uint32, depthBitsValue uint64) uint64 {
	return uint64(layer)<<60 |
		uint64(pipeline&0xFFFF)<<44 |
		uint64(material&0xFFFF)<<28 |
		uint64(mesh&0xFFFF)<<12 |
		(depthBitsValue & ((1 << depthBits) - 1))
}

// Batch is a contiguous run of DrawCommands sharing (pipeline, material,
// mesh) after sorting.
type Batch struct {
	Pipeline     uint32
	Material     uint32
	Mesh         uint32
	Layer        Layer
	FirstCommand int
	CommandCount int
}

// DrawBatcher accumulates DrawCommands for a frame and coalesces them into
// Batches.
type DrawBatcher struct {
	commands []DrawCommand
}

// NewDrawBatcher constructs an empty batcher.
func NewDrawBatcher() *DrawBatcher { return &DrawBatcher{} }

// Reset clears all commands for a new frame.
func (b *DrawBatcher) Reset() { b.commands = b.commands[:0] }

// AddOpaque pushes an opaque draw command with a front-to-back sort key.
func (b *DrawBatcher) AddOpaque(pipeline, material, mesh uint32, instanceOffset, instanceCount uint32, depth float32) {
	b.add(LayerOpaque, pipeline, material, mesh, instanceOffset, instanceCount, depth, OpaqueKey(LayerOpaque, pipeline, material, mesh, depth))
}

// AddTransparent pushes a transparent draw command with a back-to-front
// sort key.
func (b *DrawBatcher) AddTransparent(pipeline, material, mesh uint32, instanceOffset, instanceCount uint32, depth float32) {
	b.add(LayerTransparent, pipeline, material, mesh, instanceOffset, instanceCount, depth, TransparentKey(LayerTransparent, pipeline, material, mesh, depth))
}

func (b *DrawBatcher) add(layer Layer, pipeline, material, mesh, instanceOffset, instanceCount uint32, depth float32, key uint64) {
	b.commands = append(b.commands, DrawCommand{
		SortKey: key, Pipeline: pipeline, Material: material, Mesh: mesh,
		InstanceOffset: instanceOffset, InstanceCount: instanceCount,
		ViewDepth: depth, Layer: layer, insertionIndex: uint32(len(b.commands)),
	})
}

// BuildBatches sorts each layer independently by sort key (ties broken by
// mesh id, then insertion index) and coalesces adjacent commands
// sharing (pipeline, material, mesh) into Batches. Returns the commands in
// their final sorted order alongside the batches (callers need the sorted
// commands to resolve each batch's instance ranges).
func (b *DrawBatcher) BuildBatches() ([]DrawCommand, []Batch) {
	sorted := make([]DrawCommand, len(b.commands))
	copy(sorted, b.commands)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, c := sorted[i], sorted[j]
		if a.Layer != c.Layer {
			return a.Layer < c.Layer
		}
		if a.SortKey != c.SortKey {
			return a.SortKey < c.SortKey
		}
		if a.Mesh != c.Mesh {
			return a.Mesh < c.Mesh
		}
		return a.insertionIndex < c.insertionIndex
	})

	if len(sorted) == 0 {
		return sorted, nil
	}
	batches := make([]Batch, 0, len(sorted))
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[start].Layer == sorted[i].Layer &&
			sorted[start].Pipeline == sorted[i].Pipeline &&
			sorted[start].Material == sorted[i].Material &&
			sorted[start].Mesh == sorted[i].Mesh {
			continue
		}
		first := sorted[start]
		batches = append(batches, Batch{
			Pipeline: first.Pipeline, Material: first.Material, Mesh: first.Mesh,
			Layer: first.Layer, FirstCommand: start, CommandCount: i - start,
		})
		start = i
	}
	return sorted, batches
}
