package lighting

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/clusterforge/world"
)

// GPULightKind mirrors world.LightKindValue as a std140-friendly uint32.
type GPULightKind uint32

const (
	GPULightDirectional GPULightKind = iota
	GPULightPoint
	GPULightSpot
	GPULightArea
)

// GPULight is the 64-byte std140-packed light record the lighting pass
// consumes: position+range, direction+spot cos, color+intensity, kind,
// shadow index, padding.
type GPULight struct {
	Position     [3]float32
	Range        float32
	Direction    [3]float32
	SpotAngleCos float32
	Color        [3]float32
	Intensity    float32
	Kind         uint32
	ShadowIndex  int32
	_padding     [2]uint32
}

// PackLight converts a world.LightProxy into its GPU representation.
func PackLight(l world.LightProxy) GPULight {
	var kind GPULightKind
	switch l.Kind {
	case world.LightDirectional:
		kind = GPULightDirectional
	case world.LightPoint:
		kind = GPULightPoint
	case world.LightSpot:
		kind = GPULightSpot
	case world.LightArea:
		kind = GPULightArea
	}
	return GPULight{
		Position:     [3]float32{l.Position.X(), l.Position.Y(), l.Position.Z()},
		Range:        l.Range,
		Direction:    [3]float32{l.Direction.X(), l.Direction.Y(), l.Direction.Z()},
		SpotAngleCos: l.OuterCos,
		Color:        [3]float32{l.Color.X(), l.Color.Y(), l.Color.Z()},
		Intensity:    l.Intensity,
		Kind:         uint32(kind),
		ShadowIndex:  l.ShadowIndex,
	}
}

// ClusterScale/ClusterBias are the per-frame constants shaders need to map
// a fragment's (screen_xy, view_z) into a cluster index in one MAD + log.
type ClusterScale struct{ X, Y float32 }
type ClusterBias struct{ A, B float32 }

// Uniforms is the ambient/sun/cluster uniform block uploaded once per
// frame.
type Uniforms struct {
	AmbientColor     mgl32.Vec3
	AmbientIntensity float32
	SunDirection     mgl32.Vec3
	SunColor         mgl32.Vec3
	SunIntensity     float32
	LightCount       uint32
	Scale            ClusterScale
	Bias             ClusterBias
}

// ComputeClusterScale returns (GX/screen_w, GY/screen_h).
func ComputeClusterScale(gx, gy int, screenW, screenH float32) ClusterScale {
	var s ClusterScale
	if screenW != 0 {
		s.X = float32(gx) / screenW
	}
	if screenH != 0 {
		s.Y = float32(gy) / screenH
	}
	return s
}

// ComputeClusterBias returns (log(far/near)/GZ, -log(near)*GZ/log(far/near)).
func ComputeClusterBias(gz int, near, far float32) ClusterBias {
	logRatio := math.Log(float64(far) / float64(near))
	a := float32(logRatio / float64(gz))
	b := float32(-math.Log(float64(near)) * float64(gz) / logRatio)
	return ClusterBias{A: a, B: b}
}
