package glrender

import (
	"errors"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gmarch/gleval"
)

// MarchConfig holds the sphere tracing constants.
type MarchConfig struct {
	// Epsilon is the surface threshold. A sample closer than Epsilon is a hit.
	Epsilon float32
	// MaxDist is the far plane. Rays travelling past it miss.
	MaxDist float32
	// MaxSteps caps the number of field samples per ray.
	MaxSteps int
}

// DefaultMarchConfig returns the constants used for the Mandelbulb.
func DefaultMarchConfig() MarchConfig {
	return MarchConfig{Epsilon: 0.001, MaxDist: 200, MaxSteps: 100}
}

// Validate returns an error if the configuration can not terminate a march.
func (mc MarchConfig) Validate() error {
	switch {
	case !(mc.Epsilon > 0):
		return errors.New("march epsilon must be positive")
	case !(mc.MaxDist > 0):
		return errors.New("march max distance must be positive")
	case mc.MaxSteps <= 0:
		return errors.New("march max steps must be positive")
	}
	return nil
}

// MarchResult is the outcome of tracing one ray.
type MarchResult struct {
	// Depth is the distance travelled to the hit, or MaxDist on a miss.
	Depth float32
	// Steps is the number of field samples taken.
	Steps int
	// FieldSteps is the inner iteration count returned by the last field sample.
	FieldSteps int
	// Hit is true when the last sample was closer than Epsilon.
	Hit bool
	// Degenerate is true when any sample was NaN or infinite and had to be replaced.
	Degenerate bool
}

// March sphere traces the ray ro+t*rd through the field. rd should be unit length.
// The march stops at the first sample closer than Epsilon, when depth exceeds MaxDist,
// or after MaxSteps samples. Running out of steps reports a miss at MaxDist.
func March(f gleval.Distancer, ro, rd ms3.Vec, cfg MarchConfig) (res MarchResult) {
	beyond := 2 * cfg.MaxDist
	var depth float32
	for res.Steps < cfg.MaxSteps {
		p := ms3.Add(ro, ms3.Scale(depth, rd))
		d, fieldSteps := f.Distance(p)
		res.Steps++
		res.FieldSteps = fieldSteps
		d, degenerate := gleval.SanitizeDistance(d, beyond)
		res.Degenerate = res.Degenerate || degenerate
		if d < cfg.Epsilon {
			res.Depth = depth
			res.Hit = true
			return res
		}
		depth += d
		if depth > cfg.MaxDist {
			break
		}
	}
	res.Depth = cfg.MaxDist
	return res
}
