// Package camera implements the first-person and orbit cameras that drive the raymarched
// and planar fields: the yaw/pitch pose, its view basis, the input state and the per-frame controllers.
package camera

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Pose is a camera position and orientation. Yaw rotates about the world Y axis and
// pitch tilts the view up (positive) or down. With zero yaw and pitch the camera looks down -Z.
type Pose struct {
	Position ms3.Vec
	Yaw      float32
	Pitch    float32
}

// Forward returns the unit direction of travel for the W key.
func Forward(yaw, pitch float32) ms3.Vec {
	sy, cy := math32.Sincos(yaw)
	sp, cp := math32.Sincos(pitch)
	return ms3.Vec{X: cp * sy, Y: sp, Z: -cp * cy}
}

// Right returns the horizontal unit direction of travel for the D key.
func Right(yaw float32) ms3.Vec {
	sy, cy := math32.Sincos(yaw)
	return ms3.Vec{X: cy, Y: 0, Z: sy}
}

// Forward returns the pose's movement direction. See [Forward].
func (p Pose) Forward() ms3.Vec { return Forward(p.Yaw, p.Pitch) }

// Right returns the pose's strafe direction. See [Right].
func (p Pose) Right() ms3.Vec { return Right(p.Yaw) }

// Basis returns the view basis of the pose.
func (p Pose) Basis() Basis { return NewBasis(p.Yaw, p.Pitch) }

// Basis is the orthonormal 3x3 view matrix stored as columns.
// A view ray through screen coordinate uv is C0*uv.x + C1*uv.y - C2.
type Basis struct {
	C0, C1, C2 ms3.Vec
}

// NewBasis returns the view basis for yaw and pitch.
func NewBasis(yaw, pitch float32) Basis {
	sy, cy := math32.Sincos(yaw)
	sp, cp := math32.Sincos(pitch)
	return Basis{
		C0: ms3.Vec{X: cy, Y: 0, Z: -sy},
		C1: ms3.Vec{X: sy * sp, Y: cp, Z: cy * sp},
		C2: ms3.Vec{X: sy * cp, Y: -sp, Z: cp * cy},
	}
}

// Apply returns the matrix-vector product of the basis and v.
func (b Basis) Apply(v ms3.Vec) ms3.Vec {
	return ms3.Add(ms3.Add(ms3.Scale(v.X, b.C0), ms3.Scale(v.Y, b.C1)), ms3.Scale(v.Z, b.C2))
}

// ViewRay returns the unit ray direction through screen coordinate uv.
func (b Basis) ViewRay(uv ms2.Vec) ms3.Vec {
	return ms3.Unit(b.Apply(ms3.Vec{X: uv.X, Y: uv.Y, Z: -1}))
}

// Array returns the basis in column-major order, the layout of a GLSL mat3 uniform.
func (b Basis) Array() [9]float32 {
	return [9]float32{
		b.C0.X, b.C0.Y, b.C0.Z,
		b.C1.X, b.C1.Y, b.C1.Z,
		b.C2.X, b.C2.Y, b.C2.Z,
	}
}

// UV maps a fragment coordinate to screen coordinates centered on the viewport
// and scaled so the vertical axis spans [-0.5, 0.5].
func UV(frag, resolution ms2.Vec) ms2.Vec {
	return ms2.Vec{
		X: (frag.X - 0.5*resolution.X) / resolution.Y,
		Y: (frag.Y - 0.5*resolution.Y) / resolution.Y,
	}
}

// PlanarUV maps a fragment coordinate to the plane of a 2D field. Both axes
// span [-1/zoom, 1/zoom] before the horizontal axis is stretched by the aspect ratio.
func PlanarUV(frag, resolution ms2.Vec, zoom float32) ms2.Vec {
	uv := ms2.Vec{
		X: (frag.X/resolution.X*2 - 1) / zoom,
		Y: (frag.Y/resolution.Y*2 - 1) / zoom,
	}
	uv.X *= resolution.X / resolution.Y
	return uv
}

// FragCoord returns the fragment coordinate of the center of image pixel (i,j).
// Image rows grow downwards while fragment coordinates grow upwards.
func FragCoord(i, j, height int) ms2.Vec {
	return ms2.Vec{X: float32(i) + 0.5, Y: float32(height-j) - 0.5}
}
