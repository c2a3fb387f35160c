package gmarch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chewxy/math32"
)

const (
	// MandelbulbRFloor is the smallest radius the Mandelbulb estimator works with.
	// It keeps acos(z/r) and ln(r) finite when an orbit lands on the origin.
	MandelbulbRFloor = 1e-6
	largenum         = 1e20
)

// Builder wraps all field construction logic.
// Provides error handling strategies with panics or error accumulation during field generation.
type Builder struct {
	NoDimensionPanic bool
	accumErrs        []error
}

func (bld *Builder) Err() error {
	if len(bld.accumErrs) == 0 {
		return nil
	}
	return errors.Join(bld.accumErrs...)
}

// ClearErrors discards all errors accumulated so far.
func (bld *Builder) ClearErrors() {
	bld.accumErrs = bld.accumErrs[:0]
}

func (bld *Builder) shapeErrorf(msg string, args ...any) {
	if !bld.NoDimensionPanic {
		panic(fmt.Sprintf(msg, args...))
	}
	bld.accumErrs = append(bld.accumErrs, fmt.Errorf(msg, args...))
}

// FieldConfig holds the named constants that parametrize the distance fields.
// Fields ignore the options that do not apply to them.
type FieldConfig struct {
	// Power is the Mandelbulb fractal exponent.
	Power float32
	// Spacing is the lattice period of the repeated-sphere field.
	Spacing float32
	// Radius is the sphere radius used by the sphere and lattice fields.
	Radius float32
	// Bailout is the divergence radius of iterative fields.
	Bailout float32
	// MaxIterations caps the inner loop of iterative fields.
	MaxIterations int
}

// DefaultFieldConfig returns the parameters used by the demos for v.
func DefaultFieldConfig(v Variant) FieldConfig {
	switch v {
	case VariantLatticeSphere:
		return FieldConfig{Spacing: 1.4, Radius: 0.5}
	case VariantJulia2D, VariantMandelbrot2D:
		return FieldConfig{Bailout: 2, MaxIterations: 100}
	default:
		return FieldConfig{Power: 8, Bailout: 4, MaxIterations: 100}
	}
}

// Variant selects which distance field a demo renders.
type Variant uint8

const (
	VariantMandelbulb Variant = iota
	VariantLatticeSphere
	VariantJulia2D
	VariantMandelbrot2D
	numVariants
)

var variantNames = [numVariants]string{
	VariantMandelbulb:    "mandelbulb",
	VariantLatticeSphere: "lattice",
	VariantJulia2D:       "julia",
	VariantMandelbrot2D:  "mandelbrot",
}

func (v Variant) String() string {
	if v >= numVariants {
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
	return variantNames[v]
}

// Is3D reports whether the variant is raymarched. Planar variants are iteration-count fields.
func (v Variant) Is3D() bool {
	return v == VariantMandelbulb || v == VariantLatticeSphere
}

// ParseVariant returns the variant named s, case insensitive.
func ParseVariant(s string) (Variant, error) {
	for i, name := range variantNames {
		if strings.EqualFold(s, name) {
			return Variant(i), nil
		}
	}
	return 0, fmt.Errorf("unknown variant %q, want one of %s", s, strings.Join(variantNames[:], ", "))
}

// NewField3 creates the raymarched field selected by v.
func (bld *Builder) NewField3(v Variant, cfg FieldConfig) Field3 {
	switch v {
	case VariantMandelbulb:
		return bld.NewMandelbulb(cfg.Power, cfg.MaxIterations, cfg.Bailout)
	case VariantLatticeSphere:
		return bld.NewLatticeSpheres(cfg.Spacing, cfg.Radius)
	}
	bld.shapeErrorf("variant %s is not a 3D field", v)
	return &sphere{r: 1}
}

// NewField2 creates the planar iteration field selected by v.
func (bld *Builder) NewField2(v Variant, cfg FieldConfig) *Julia {
	switch v {
	case VariantJulia2D:
		return bld.NewJulia(cfg.MaxIterations, cfg.Bailout)
	case VariantMandelbrot2D:
		return bld.NewMandelbrot(cfg.MaxIterations, cfg.Bailout)
	}
	bld.shapeErrorf("variant %s is not a planar field", v)
	return &Julia{maxIter: 1, bailout: 2}
}

func clampf(v, Min, Max float32) float32 {
	if v < Min {
		return Min
	} else if v > Max {
		return Max
	}
	return v
}

func isBad(f float32) bool {
	return math32.IsNaN(f) || math32.IsInf(f, 0)
}
