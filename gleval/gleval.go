package gleval

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// SDF3 implements a 3D distance field in vectorized
// form suitable for running on GPU.
type SDF3 interface {
	// Evaluate evaluates the distance field over pos positions.
	// dist and pos must be of same length.  Resulting distances are stored
	// in dist.
	Evaluate(pos []ms3.Vec, dist []float32, userData any) error
	// Bounds returns the SDF's bounding box such that all of the shape is contained within.
	Bounds() ms3.Box
}

// SDF2 implements a 2D scalar field in vectorized
// form suitable for running on GPU.
type SDF2 interface {
	// Evaluate evaluates the field over pos positions.
	// dist and pos must be of same length.  Resulting values are stored
	// in dist.
	Evaluate(pos []ms2.Vec, dist []float32, userData any) error
	// Bounds returns the field's bounding box.
	Bounds() ms2.Box
}

// Distancer is a field that can be sampled one point at a time on the CPU.
// Single point sampling is what sphere tracing does at every step, it also
// exposes the inner iteration count used by step-count shading.
type Distancer interface {
	// Distance returns a conservative lower bound on the distance from p to the nearest
	// surface and the number of inner iterations needed to compute it.
	Distance(p ms3.Vec) (dist float32, steps int)
}

var (
	errEmptyBuffers         = errors.New("empty buffers")
	errMismatchBufferLength = errors.New("position and distance buffer length mismatch")
)

// SanitizeDistance replaces field samples a marcher cannot advance by.
// NaN and -Inf become 0 so the ray terminates as a hit, +Inf becomes beyond so the ray terminates as a miss.
// degenerate is true when d was replaced.
func SanitizeDistance(d, beyond float32) (sanitized float32, degenerate bool) {
	switch {
	case math32.IsNaN(d), math32.IsInf(d, -1):
		return 0, true
	case math32.IsInf(d, 1):
		return beyond, true
	}
	return d, false
}

// EvaluateAt evaluates s at the single position p. It is the 1×1 probe used
// to query the field at the camera position.
func EvaluateAt(s SDF3, p ms3.Vec, userData any) (float32, error) {
	if s == nil {
		return 0, errors.New("nil SDF3")
	}
	var pos = [1]ms3.Vec{p}
	var dist [1]float32
	err := s.Evaluate(pos[:], dist[:], userData)
	if err != nil {
		return 0, err
	}
	return dist[0], nil
}

// DistanceSDF3 adapts a [Distancer] to the batched [SDF3] interface.
type DistanceSDF3 struct {
	Field Distancer
	BB    ms3.Box
}

// Evaluate implements [SDF3] by sampling the field at each position.
func (ds *DistanceSDF3) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	for i, p := range pos {
		dist[i], _ = ds.Field.Distance(p)
	}
	return nil
}

// Bounds returns the SDF's bounding box.
func (ds *DistanceSDF3) Bounds() ms3.Box {
	return ds.BB
}
