package gmarch

import (
	"strconv"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gmarch/glbuild"
)

// NewJulia creates the planar Julia iteration-count field z ← z²+c starting at z=p.
// The constant c starts at the origin and is usually driven by the cursor, see [CursorToC].
func (bld *Builder) NewJulia(maxIterations int, bailout float32) *Julia {
	bld.validatePlanar(maxIterations, bailout)
	return &Julia{maxIter: maxIterations, bailout: bailout}
}

// NewMandelbrot creates the planar Mandelbrot iteration-count field z ← z²+p starting at z=0.
func (bld *Builder) NewMandelbrot(maxIterations int, bailout float32) *Julia {
	bld.validatePlanar(maxIterations, bailout)
	return &Julia{maxIter: maxIterations, bailout: bailout, mandelbrot: true}
}

func (bld *Builder) validatePlanar(maxIterations int, bailout float32) {
	if maxIterations <= 0 {
		bld.shapeErrorf("zero or negative iteration count")
	}
	if !(bailout > 0) || isBad(bailout) {
		bld.shapeErrorf("invalid bailout %v", bailout)
	}
}

// Julia is a planar iteration-count field. Its value at a point is the number of
// iterations before the orbit escapes divided by the iteration cap, so it lies in [0,1].
type Julia struct {
	c          ms2.Vec
	maxIter    int
	bailout    float32
	mandelbrot bool
}

// SetC sets the Julia constant. It has no effect on Mandelbrot fields.
func (j *Julia) SetC(c ms2.Vec) { j.c = c }

// C returns the Julia constant.
func (j *Julia) C() ms2.Vec { return j.c }

// MaxIterations returns the iteration cap of the field.
func (j *Julia) MaxIterations() int { return j.maxIter }

// Iterations returns the number of iterations the orbit of p survived without escaping the bailout radius.
func (j *Julia) Iterations(p ms2.Vec) int {
	z, c := p, j.c
	if j.mandelbrot {
		z, c = ms2.Vec{}, p
	}
	b2 := j.bailout * j.bailout
	iterations := 0
	for i := 0; i < j.maxIter; i++ {
		z = ms2.Vec{X: z.X*z.X - z.Y*z.Y + c.X, Y: 2*z.X*z.Y + c.Y}
		if z.X*z.X+z.Y*z.Y > b2 {
			break
		}
		iterations++
	}
	return iterations
}

// Intensity returns the field value at p in [0,1].
func (j *Julia) Intensity(p ms2.Vec) float32 {
	return float32(j.Iterations(p)) / float32(j.maxIter)
}

// Evaluate stores the field intensity at each position in dist.
func (j *Julia) Evaluate(pos []ms2.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	}
	for i, p := range pos {
		dist[i] = j.Intensity(p)
	}
	return nil
}

func (j *Julia) AppendShaderName(b []byte) []byte {
	if j.mandelbrot {
		b = append(b, "mandelbrot"...)
	} else {
		b = append(b, "julia"...)
	}
	b = glbuild.AppendFloat(b, 'n', 'p', j.bailout)
	b = append(b, 'i')
	b = strconv.AppendInt(b, int64(j.maxIter), 10)
	return b
}

func (j *Julia) AppendShaderBody(b []byte) []byte {
	if j.mandelbrot {
		b = append(b, "vec2 z = vec2(0.0);\nvec2 c = p;\n"...)
	} else {
		b = append(b, "vec2 z = p;\nvec2 c = "+glbuild.ParamC+";\n"...)
	}
	b = glbuild.AppendIntDecl(b, "maxIterations", j.maxIter)
	b = glbuild.AppendFloatDecl(b, "bailout", j.bailout)
	b = append(b, `int iterations = 0;
for (int i = 0; i < maxIterations; i++) {
	z = vec2(z.x * z.x - z.y * z.y, 2.0 * z.x * z.y) + c;
	if (length(z) > bailout) break;
	iterations++;
}
return float(iterations) / float(maxIterations);`...)
	return b
}

func (j *Julia) AppendShaderParams(params []glbuild.Param) []glbuild.Param {
	if j.mandelbrot {
		return params
	}
	return append(params, glbuild.Param{Name: glbuild.ParamC, Value: j.c})
}

func (j *Julia) Bounds() ms2.Box {
	r := j.bailout
	return ms2.Box{Min: ms2.Vec{X: -r, Y: -r}, Max: ms2.Vec{X: r, Y: r}}
}

// CMapping selects how a cursor position maps to the Julia constant.
type CMapping uint8

const (
	// CMapDirect uses the normalized cursor position as c.
	CMapDirect CMapping = iota
	// CMapSinusoid combines two sinusoidal terms of the normalized cursor position.
	CMapSinusoid
)

// CursorToC maps a cursor position in pixels to the Julia constant. The cursor is first
// normalized to [-1,1] on both axes so the center of the viewport maps to c=(0,0) for both mappings.
func CursorToC(cursor, resolution ms2.Vec, mapping CMapping) ms2.Vec {
	if resolution.X <= 0 || resolution.Y <= 0 {
		return ms2.Vec{}
	}
	m := ms2.Vec{
		X: cursor.X/resolution.X*2 - 1,
		Y: cursor.Y/resolution.Y*2 - 1,
	}
	if mapping != CMapSinusoid {
		return m
	}
	s2x, c2x := math32.Sincos(2 * m.X)
	s2y, c2y := math32.Sincos(2 * m.Y)
	c := ms2.Vec{X: s2x * c2y, Y: c2x * s2y}
	c.X += 0.2 * math32.Sin(m.X) * math32.Cos(5*m.Y)
	c.Y += 0.2 * math32.Cos(8*m.X) * math32.Sin(10*m.Y)
	return c
}
