package gmarch

import (
	"strconv"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gmarch/glbuild"
)

// Field3 is a raymarchable distance field. It can be evaluated on the CPU one point
// at a time or in batches and generates its own GLSL for the GPU.
type Field3 interface {
	glbuild.Shader3D
	// Distance returns a conservative lower bound on the distance from p to the
	// nearest surface and the number of inner iterations used to compute it.
	Distance(p ms3.Vec) (dist float32, steps int)
	// Evaluate evaluates the field over pos positions and stores the result in dist.
	Evaluate(pos []ms3.Vec, dist []float32, userData any) error
}

// NewMandelbulb creates the Mandelbulb distance estimator of exponent power.
// maxIterations caps the orbit iteration and bailout is the escape radius.
func (bld *Builder) NewMandelbulb(power float32, maxIterations int, bailout float32) Field3 {
	if !(power > 0) || isBad(power) {
		bld.shapeErrorf("invalid mandelbulb power %v", power)
	}
	if maxIterations <= 0 {
		bld.shapeErrorf("zero or negative mandelbulb iteration count")
	}
	if !(bailout > 0) || isBad(bailout) {
		bld.shapeErrorf("invalid mandelbulb bailout %v", bailout)
	}
	return &mandelbulb{power: power, maxIter: maxIterations, bailout: bailout}
}

type mandelbulb struct {
	power   float32
	maxIter int
	bailout float32
}

func (m *mandelbulb) AppendShaderName(b []byte) []byte {
	b = append(b, "mandelbulb"...)
	b = glbuild.AppendFloat(b, 'n', 'p', m.bailout)
	b = append(b, 'i')
	b = strconv.AppendInt(b, int64(m.maxIter), 10)
	return b
}

func (m *mandelbulb) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendFloatDecl(b, "bailout", m.bailout)
	b = glbuild.AppendFloatDecl(b, "rfloor", MandelbulbRFloor)
	b = append(b, `vec3 z = p;
float dr = 1.0;
float r = 0.0;
steps = 0;
for (int i = 0; i < `...)
	b = strconv.AppendInt(b, int64(m.maxIter), 10)
	b = append(b, `; i++) {
	r = length(z);
	steps = i;
	if (r > bailout) break;
	r = max(r, rfloor);
	float theta = acos(clamp(z.z / r, -1.0, 1.0)) * `+glbuild.ParamPower+`;
	float phi = atan(z.y, z.x) * `+glbuild.ParamPower+`;
	dr = pow(r, `+glbuild.ParamPower+` - 1.0) * `+glbuild.ParamPower+` * dr + 1.0;
	float zr = pow(r, `+glbuild.ParamPower+`);
	z = zr * vec3(sin(theta) * cos(phi), sin(phi) * sin(theta), cos(theta)) + p;
}
r = max(r, rfloor);
return max(0.0, 0.5 * log(r) * r / dr);`...)
	return b
}

func (m *mandelbulb) AppendShaderParams(params []glbuild.Param) []glbuild.Param {
	return append(params, glbuild.Param{Name: glbuild.ParamPower, Value: m.power})
}

func (m *mandelbulb) Bounds() ms3.Box {
	r := m.bailout
	return ms3.Box{
		Min: ms3.Vec{X: -r, Y: -r, Z: -r},
		Max: ms3.Vec{X: r, Y: r, Z: r},
	}
}

// NewSphere creates a sphere centered at the origin of radius r.
func (bld *Builder) NewSphere(r float32) Field3 {
	valid := r > 0
	if !valid {
		bld.shapeErrorf("zero or negative sphere radius")
	}
	return &sphere{r: r}
}

type sphere struct {
	r float32
}

func (s *sphere) AppendShaderName(b []byte) []byte {
	b = append(b, "sphere"...)
	b = glbuild.AppendFloat(b, 'n', 'p', s.r)
	return b
}

func (s *sphere) AppendShaderBody(b []byte) []byte {
	b = append(b, "steps = 0;\nreturn length(p)-"...)
	b = glbuild.AppendFloat(b, '-', '.', s.r)
	b = append(b, ';')
	return b
}

func (s *sphere) AppendShaderParams(params []glbuild.Param) []glbuild.Param {
	return params
}

func (s *sphere) Bounds() ms3.Box {
	return ms3.Box{
		Min: ms3.Vec{X: -s.r, Y: -s.r, Z: -s.r},
		Max: ms3.Vec{X: s.r, Y: s.r, Z: s.r},
	}
}

// NewLatticeSpheres creates an infinite lattice of spheres of radius r centered
// on every point of the cubic grid of period spacing.
func (bld *Builder) NewLatticeSpheres(spacing, r float32) Field3 {
	if !(spacing > 0) || isBad(spacing) {
		bld.shapeErrorf("invalid lattice spacing %v", spacing)
	}
	if r <= 0 {
		bld.shapeErrorf("zero or negative sphere radius")
	} else if 2*r > spacing {
		bld.shapeErrorf("lattice spheres of radius %v overlap at spacing %v", r, spacing)
	}
	return &lattice{spacing: spacing, r: r}
}

type lattice struct {
	spacing float32
	r       float32
}

func (l *lattice) AppendShaderName(b []byte) []byte {
	b = append(b, "lattice"...)
	b = glbuild.AppendFloat(b, 'n', 'p', l.r)
	return b
}

func (l *lattice) AppendShaderBody(b []byte) []byte {
	// Rounding is floor(x+0.5) so ties land on the same cell as the CPU evaluator.
	b = append(b, "steps = 0;\nvec3 q = p - "+glbuild.ParamSpacing+" * floor(p / "+glbuild.ParamSpacing+" + 0.5);\nreturn length(q)-"...)
	b = glbuild.AppendFloat(b, '-', '.', l.r)
	b = append(b, ';')
	return b
}

func (l *lattice) AppendShaderParams(params []glbuild.Param) []glbuild.Param {
	return append(params, glbuild.Param{Name: glbuild.ParamSpacing, Value: l.spacing})
}

func (l *lattice) Bounds() ms3.Box {
	return ms3.Box{
		Min: ms3.Vec{X: -largenum, Y: -largenum, Z: -largenum},
		Max: ms3.Vec{X: largenum, Y: largenum, Z: largenum},
	}
}
