package glbuild

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

const (
	VersionStr        = "#version 460\n"
	computeVersionStr = "#version 430\n"
)

// Uniforms written by the frame driver every frame. Field parameter uniforms
// are named by the fields themselves through [Shader.AppendShaderParams].
const (
	UniformResolution = "uResolution"
	UniformCamPos     = "uCamPos"
	UniformCamMatrix  = "uCamMatrix"
	UniformZoom       = "uZoom"
)

// Names of the field parameters read by shader bodies.
const (
	ParamPower   = "uPower"
	ParamSpacing = "uSpacing"
	ParamC       = "uC"
)

// Shader stores information for automatically generating distance field
// shader programs and evaluating them correctly on a GPU.
type Shader interface {
	// AppendShaderName appends the name of the GL shader function
	// to the buffer and returns the result. It should be unique to that shader.
	AppendShaderName(b []byte) []byte
	// AppendShaderBody appends the body of the shader function to the
	// buffer and returns the result.
	AppendShaderBody(b []byte) []byte
	// AppendShaderParams appends the named parameters the body reads.
	// Fragment programs declare them as uniforms so they can change every frame,
	// compute programs inline them as constants.
	AppendShaderParams(params []Param) []Param
}

// Shader3D generates the body of a GLSL function with signature
//
//	float name(vec3 p, out int steps)
//
// returning a conservative distance to the surface and the inner iteration count.
type Shader3D interface {
	Shader
	// Bounds returns the Shader3D's bounding box where the field is negative.
	Bounds() ms3.Box
}

// Shader2D generates the body of a GLSL function with signature
//
//	float name(vec2 p)
//
// returning a scalar in [0,1] used directly as intensity.
type Shader2D interface {
	Shader
	Bounds() ms2.Box
}

// Param is a named shader parameter. Value is a float32 or a [ms2.Vec].
type Param struct {
	Name  string
	Value any
}

// Shading selects how a marcher fragment program converts a march result to color.
type Shading uint8

const (
	// ShadeSteps shades hits by the field's inner iteration count, misses black.
	ShadeSteps Shading = iota
	// ShadeDepth shades by inverse travelled depth blended from black to blue.
	ShadeDepth
)

// MarchConsts are the sphere tracing constants baked into a marcher program.
type MarchConsts struct {
	Epsilon  float32
	MaxDist  float32
	MaxSteps int
	Shading  Shading
}

// Programmer implements shader generation logic for Shader type.
type Programmer struct {
	scratch       []byte
	params        []Param
	computeHeader []byte
	// Invocations size in X (local group size) to give each compute work group.
	invocX int
}

var defaultComputeHeader = []byte("#shader compute\n" + computeVersionStr)

// NewDefaultProgrammer returns a Programmer with reasonable default parameters for use with glgl package on the local machine.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		scratch:       make([]byte, 0, 1024),
		computeHeader: defaultComputeHeader,
		invocX:        32,
	}
}

// SetComputeInvocations sets the work group local-sizes. x*y*z must be less than maximum number of invocations.
func (p *Programmer) SetComputeInvocations(x, y, z int) {
	if y != 1 || z != 1 {
		panic("unsupported")
	} else if x < 1 {
		panic("zero or negative X invocation size")
	}
	p.invocX = x
}

// ComputeInvocations returns the worker group invocation size in x y and z.
func (p *Programmer) ComputeInvocations() (int, int, int) {
	return p.invocX, 1, 1
}

// VertexSource is the full-screen quad vertex program shared by all fragment programs.
// The quad is drawn as two triangles from a 2D position attribute aPos.
const VertexSource = `#version 460
in vec2 aPos;
void main() {
    gl_Position = vec4(aPos, 0.0, 1.0);
}
`

// FullScreenQuad holds the two triangles covering clip space in aPos layout.
var FullScreenQuad = [12]float32{
	-1.0, -1.0,
	1.0, -1.0,
	-1.0, 1.0,
	-1.0, 1.0,
	1.0, -1.0,
	1.0, 1.0,
}

// WriteSDFDecl writes the shader function declaration of s and returns its name.
func (p *Programmer) WriteSDFDecl(w io.Writer, s Shader) (baseName string, n int, err error) {
	var name []byte
	p.scratch, name, _ = AppendShaderSource(p.scratch[:0], s)
	baseName = string(name)
	n, err = w.Write(p.scratch)
	return baseName, n, err
}

func (p *Programmer) writeParams(w io.Writer, s Shader, asUniform bool) (n int, err error) {
	p.params = s.AppendShaderParams(p.params[:0])
	p.scratch = p.scratch[:0]
	for _, param := range p.params {
		if asUniform {
			p.scratch, err = AppendUniformDecl(p.scratch, param)
		} else {
			p.scratch, err = AppendConstDecl(p.scratch, param)
		}
		if err != nil {
			return 0, err
		}
	}
	return w.Write(p.scratch)
}

// WriteFragmentMarcher writes a fragment program that sphere traces s once per pixel.
// The program reads the uniforms [UniformResolution], [UniformCamPos], [UniformCamMatrix]
// and the parameters of s.
func (p *Programmer) WriteFragmentMarcher(w io.Writer, s Shader3D, mc MarchConsts) (n int, err error) {
	if mc.Epsilon <= 0 || mc.MaxDist <= 0 || mc.MaxSteps <= 0 {
		return 0, errors.New("invalid march constants")
	}
	var shade string
	switch mc.Shading {
	case ShadeSteps:
		shade = shadeStepsGLSL
	case ShadeDepth:
		shade = shadeDepthGLSL
	default:
		return 0, fmt.Errorf("unknown shading %d", mc.Shading)
	}
	ngot, err := io.WriteString(w, VersionStr+`out vec4 fragColor;
uniform vec2 `+UniformResolution+`;
uniform vec3 `+UniformCamPos+`;
uniform mat3 `+UniformCamMatrix+`;
`)
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = p.writeParams(w, s, true)
	n += ngot
	if err != nil {
		return n, err
	}
	baseName, ngot, err := p.WriteSDFDecl(w, s)
	n += ngot
	if err != nil {
		return n, err
	}
	b := p.scratch[:0]
	b = append(b, "\nconst float EPSILON="...)
	b = AppendFloat(b, '-', '.', mc.Epsilon)
	b = append(b, ";\nconst float MAX_DIST="...)
	b = AppendFloat(b, '-', '.', mc.MaxDist)
	b = append(b, ";\nconst int MAX_STEPS="...)
	b = strconv.AppendInt(b, int64(mc.MaxSteps), 10)
	b = append(b, ";\n\nfloat sdf(vec3 p, out int steps) { return "...)
	b = append(b, baseName...)
	b = append(b, "(p, steps); }\n"...)
	b = append(b, marcherFooter...)
	b = append(b, shade...)
	b = append(b, "}\n"...)
	p.scratch = b
	ngot, err = w.Write(b)
	n += ngot
	return n, err
}

const marcherFooter = `
float march(vec3 ro, vec3 rd, out int steps) {
    float depth = 0.0;
    for (int i = 0; i < MAX_STEPS; ++i) {
        float dist = sdf(ro + depth * rd, steps);
        if (isnan(dist) || isinf(dist)) {
            dist = dist > 0.0 ? 2.0 * MAX_DIST : 0.0;
        }
        if (dist < EPSILON) return depth;
        depth += dist;
        if (depth > MAX_DIST) return MAX_DIST;
    }
    return MAX_DIST;
}

void main() {
    vec2 uv = (gl_FragCoord.xy - 0.5 * ` + UniformResolution + `.xy) / ` + UniformResolution + `.y;
    vec3 rd = normalize(` + UniformCamMatrix + ` * vec3(uv, -1.0));
    int steps = 0;
    float dist = march(` + UniformCamPos + `, rd, steps);
`

const shadeStepsGLSL = `    if (dist < MAX_DIST) {
        fragColor = vec4(vec3(clamp(float(steps) / 20.0, 0.2, 1.0)), 1.0);
        return;
    }
    fragColor = vec4(vec3(0.0), 1.0);
`

const shadeDepthGLSL = `    float shade = clamp(1.0 / (dist + 1.0), 0.0, 1.0);
    fragColor = vec4(mix(vec3(0.0), vec3(0.0, 0.0, 1.0), shade), 1.0);
`

// WriteFragmentPlanar writes a fragment program that evaluates the planar field s once per pixel
// and outputs the result as grayscale. The program reads [UniformResolution], [UniformZoom] and the parameters of s.
func (p *Programmer) WriteFragmentPlanar(w io.Writer, s Shader2D) (n int, err error) {
	ngot, err := io.WriteString(w, VersionStr+`out vec4 fragColor;
uniform vec2 `+UniformResolution+`;
uniform float `+UniformZoom+`;
`)
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = p.writeParams(w, s, true)
	n += ngot
	if err != nil {
		return n, err
	}
	baseName, ngot, err := p.WriteSDFDecl(w, s)
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = fmt.Fprintf(w, `
void main() {
    vec2 uv = gl_FragCoord.xy / %[1]s;
    uv = (uv * 2.0 - 1.0) / %[2]s;
    uv.x *= %[1]s.x / %[1]s.y;
    fragColor = vec4(vec3(%[3]s(uv)), 1.0);
}
`, UniformResolution, UniformZoom, baseName)
	n += ngot
	return n, err
}

// WriteComputeSDF3 creates the bare bones I/O compute program for calculating
// the distance field at positions and writes it to the writer. Field parameters are inlined as constants.
func (p *Programmer) WriteComputeSDF3(w io.Writer, obj Shader3D) (int, error) {
	// Begin writing shader source code.
	n, err := w.Write(p.computeHeader)
	if err != nil {
		return n, err
	}
	ngot, err := p.writeParams(w, obj, false)
	n += ngot
	if err != nil {
		return n, err
	}
	baseName, ngot, err := p.WriteSDFDecl(w, obj)
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = fmt.Fprintf(w, `

layout(local_size_x = %d, local_size_y = 1, local_size_z = 1) in;

// Input: 3D positions at which to evaluate the field.
layout(rgba32f, binding = 0) uniform image2D in_tex;
// Output: Result of field evaluation are the distances. Maps to position buffer.
layout(r32f, binding = 1) uniform image2D out_tex;

void main() {
	ivec2 pixel_coords = ivec2(gl_GlobalInvocationID.xy);
	vec3 p = imageLoad(in_tex, pixel_coords).rgb;
	int steps = 0;
	float distance = %s(p, steps);
	imageStore(out_tex, pixel_coords, vec4(distance, 0.0, 0.0, 0.0));
}
`, p.invocX, baseName)
	n += ngot
	return n, err
}

// AppendShaderSource appends the GL code of a single shader to the dst byte buffer.  If dst's
// capacity is grown during the writing the buffer with augmented capacity is returned. If not the same input dst is returned.
// name and body byte slices pointing to the result buffer are also returned for convenience.
func AppendShaderSource(dst []byte, s Shader) (result, name, body []byte) {
	dst = append(dst, "float "...)
	nameStart := len(dst)
	dst = s.AppendShaderName(dst)
	nameEnd := len(dst)
	_, is3D := s.(Shader3D)
	if is3D {
		dst = append(dst, "(vec3 p, out int steps){\n"...)
	} else {
		dst = append(dst, "(vec2 p){\n"...)
	}
	bodyStart := len(dst)
	dst = s.AppendShaderBody(dst)
	bodyEnd := len(dst)
	dst = append(dst, "\n}\n"...)
	return dst, dst[nameStart:nameEnd], dst[bodyStart:bodyEnd]
}

// AppendUniformDecl appends a uniform declaration for param.
func AppendUniformDecl(b []byte, param Param) ([]byte, error) {
	typename, err := paramTypename(param)
	if err != nil {
		return b, err
	}
	b = append(b, "uniform "...)
	b = append(b, typename...)
	b = append(b, ' ')
	b = append(b, param.Name...)
	b = append(b, ';', '\n')
	return b, nil
}

// AppendConstDecl appends a constant declaration for param with its current value.
func AppendConstDecl(b []byte, param Param) ([]byte, error) {
	b = append(b, "const "...)
	switch v := param.Value.(type) {
	case float32:
		b = AppendFloatDecl(b, param.Name, v)
	case ms2.Vec:
		b = AppendVec2Decl(b, param.Name, v)
	case ms3.Vec:
		b = AppendVec3Decl(b, param.Name, v)
	default:
		return b[:len(b)-len("const ")], fmt.Errorf("unsupported parameter type %T for %q", param.Value, param.Name)
	}
	return b, nil
}

func paramTypename(param Param) (string, error) {
	switch param.Value.(type) {
	case float32:
		return "float", nil
	case ms2.Vec:
		return "vec2", nil
	case ms3.Vec:
		return "vec3", nil
	}
	return "", fmt.Errorf("unsupported parameter type %T for %q", param.Value, param.Name)
}

func AppendVec3Decl(b []byte, vec3Varname string, v ms3.Vec) []byte {
	b = append(b, "vec3 "...)
	b = append(b, vec3Varname...)
	b = append(b, "=vec3("...)
	arr := v.Array()
	b = AppendFloats(b, ',', '-', '.', arr[:]...)
	b = append(b, ')', ';', '\n')
	return b
}

func AppendVec2Decl(b []byte, vec2Varname string, v ms2.Vec) []byte {
	b = append(b, "vec2 "...)
	b = append(b, vec2Varname...)
	b = append(b, "=vec2("...)
	arr := v.Array()
	b = AppendFloats(b, ',', '-', '.', arr[:]...)
	b = append(b, ')', ';', '\n')
	return b
}

func AppendFloatDecl(b []byte, floatVarname string, v float32) []byte {
	b = append(b, "float "...)
	b = append(b, floatVarname...)
	b = append(b, '=')
	b = AppendFloat(b, '-', '.', v)
	b = append(b, ';', '\n')
	return b
}

func AppendIntDecl(b []byte, intVarname string, v int) []byte {
	b = append(b, "int "...)
	b = append(b, intVarname...)
	b = append(b, '=')
	b = strconv.AppendInt(b, int64(v), 10)
	b = append(b, ';', '\n')
	return b
}

const decimalDigits = 9

// AppendFloat appends v formatted as a GLSL literal. neg and decimal replace the
// minus sign and decimal point, which lets callers build identifier-safe names.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Finally trim zeroes.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}
