package gmarchaux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/draw"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gmarch"
	"github.com/soypat/gmarch/camera"
	"github.com/soypat/gmarch/glbuild"
	"github.com/soypat/gmarch/glrender"
)

// ErrNoProgram is returned by [Driver.Frame] when the driver has no compiled program.
// A failed compilation is terminal for the driver.
var ErrNoProgram = errors.New("no compiled program")

// ProgramHandle identifies a linked program on a [Surface].
type ProgramHandle uint32

// Surface is the rendering surface a [Driver] draws through.
type Surface interface {
	// CompileProgram compiles and links a vertex and fragment program.
	CompileProgram(vertexSource, fragmentSource string) (ProgramHandle, error)
	// SetUniform uploads a uniform of the program. value is one of
	// float32, [mgl32.Vec2], [mgl32.Vec3] or [mgl32.Mat3].
	SetUniform(prog ProgramHandle, name string, value any) error
	// DrawFullScreenQuad draws the two triangles covering the viewport with prog.
	DrawFullScreenQuad(prog ProgramHandle) error
}

// Uniform is a named per-frame program parameter.
type Uniform struct {
	Name  string
	Value any
}

// DriverConfig configures a [Driver].
type DriverConfig struct {
	Variant gmarch.Variant
	Field   gmarch.FieldConfig
	// March and Shading configure raymarched variants.
	March   glrender.MarchConfig
	Shading glbuild.Shading
	// Start is the initial camera pose of raymarched variants.
	Start camera.Pose
	// Zoom and Mapping configure planar variants.
	Zoom    float32
	Mapping gmarch.CMapping
	// Controller updates the camera every frame. If nil a free-fly controller
	// is used for raymarched variants and the pointer drives planar variants.
	Controller camera.Controller
	// FreeFly configures the default free-fly controller.
	FreeFly camera.FreeFlyConfig
	// HoverLook makes plain cursor motion turn the camera. By default looking
	// requires a captured pointer or a held button.
	HoverLook bool
	// AdaptiveSpeed sets the controller speed each frame from the field distance at the camera.
	AdaptiveSpeed bool
	// NewProbe creates the distance probe used by AdaptiveSpeed. If nil the field is probed on the CPU.
	NewProbe func(gmarch.Field3) (camera.Probe, error)
}

// DefaultDriverConfig returns the configuration of the demo for v.
func DefaultDriverConfig(v gmarch.Variant) DriverConfig {
	cfg := DriverConfig{
		Variant: v,
		Field:   gmarch.DefaultFieldConfig(v),
		March:   glrender.DefaultMarchConfig(),
		Shading: glbuild.ShadeSteps,
		Start:   camera.Pose{Position: ms3.Vec{Z: 4}},
		Zoom:    1,
		Mapping: gmarch.CMapDirect,
		FreeFly: camera.DefaultFreeFlyConfig(),
	}
	switch v {
	case gmarch.VariantMandelbulb:
		cfg.FreeFly.ClampPitch = false
	case gmarch.VariantLatticeSphere:
		cfg.March.MaxDist = 5000
		cfg.Shading = glbuild.ShadeDepth
		cfg.Start = camera.Pose{Position: ms3.Vec{X: 5, Y: 8, Z: 6}, Yaw: -math32.Pi / 2}
		cfg.FreeFly = camera.FreeFlyConfig{Sensitivity: 0.003, Speed: 0.1, ClampPitch: true}
	}
	return cfg
}

// Driver runs one demo: it owns the camera state and the input state, selects the field
// of its variant and supplies the per-frame uniforms to a [Surface].
// Driver is not safe for concurrent use. Input callbacks and frames must run on the same goroutine.
type Driver struct {
	cfg      DriverConfig
	field3   gmarch.Field3
	field2   *gmarch.Julia
	ctl      camera.Controller
	adaptive *camera.AdaptiveSpeed
	st       camera.State
	in       camera.InputState
	prog     ProgramHandle
	compiled bool
	initErr  error
}

// NewDriver validates cfg and builds the field of its variant.
func NewDriver(cfg DriverConfig) (*Driver, error) {
	if cfg.Variant.Is3D() {
		if err := cfg.March.Validate(); err != nil {
			return nil, err
		}
	} else if !(cfg.Zoom > 0) {
		return nil, fmt.Errorf("invalid zoom %v", cfg.Zoom)
	}
	d := &Driver{cfg: cfg}
	err := d.buildField()
	if err != nil {
		return nil, err
	}
	d.st.Pose = cfg.Start
	d.in.SetHoverLook(cfg.HoverLook)
	d.ctl = cfg.Controller
	if d.ctl == nil {
		if cfg.Variant.Is3D() {
			d.ctl, err = camera.NewFreeFly(cfg.FreeFly)
			if err != nil {
				return nil, err
			}
		} else {
			d.ctl = camera.CursorFollow{}
		}
	}
	if cfg.AdaptiveSpeed {
		inner, ok := d.ctl.(camera.SpeedController)
		if !ok || !cfg.Variant.Is3D() {
			return nil, errors.New("adaptive speed requires a raymarched variant and a speed controller")
		}
		// Init may replace the CPU probe with one created by NewProbe.
		d.adaptive = &camera.AdaptiveSpeed{Inner: inner, Probe: camera.FieldProbe{Field: d.field3}}
		d.ctl = d.adaptive
	}
	return d, nil
}

func (d *Driver) buildField() error {
	bld := gmarch.Builder{NoDimensionPanic: true}
	if d.cfg.Variant.Is3D() {
		field := bld.NewField3(d.cfg.Variant, d.cfg.Field)
		if err := bld.Err(); err != nil {
			return err
		}
		d.field3 = field
	} else {
		field := bld.NewField2(d.cfg.Variant, d.cfg.Field)
		if err := bld.Err(); err != nil {
			return err
		}
		d.field2 = field
	}
	return nil
}

// Variant returns the variant the driver renders.
func (d *Driver) Variant() gmarch.Variant { return d.cfg.Variant }

// Config returns the driver configuration.
func (d *Driver) Config() DriverConfig { return d.cfg }

// Field3 returns the raymarched field or nil for planar variants.
func (d *Driver) Field3() gmarch.Field3 { return d.field3 }

// Field2 returns the planar field or nil for raymarched variants.
func (d *Driver) Field2() *gmarch.Julia { return d.field2 }

// Input returns the input state window callbacks should write to.
func (d *Driver) Input() *camera.InputState { return &d.in }

// State returns the current camera state.
func (d *Driver) State() camera.State { return d.st }

// LastProbe returns the last distance probed by the adaptive speed controller.
func (d *Driver) LastProbe() float32 {
	if d.adaptive == nil {
		return 0
	}
	return d.adaptive.LastDistance
}

// FragmentSource returns the fragment program of the driver's field.
func (d *Driver) FragmentSource() (string, error) {
	var buf bytes.Buffer
	programmer := glbuild.NewDefaultProgrammer()
	var err error
	if d.field3 != nil {
		_, err = programmer.WriteFragmentMarcher(&buf, d.field3, glbuild.MarchConsts{
			Epsilon:  d.cfg.March.Epsilon,
			MaxDist:  d.cfg.March.MaxDist,
			MaxSteps: d.cfg.March.MaxSteps,
			Shading:  d.cfg.Shading,
		})
	} else {
		_, err = programmer.WriteFragmentPlanar(&buf, d.field2)
	}
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Init compiles the driver's program on the surface and creates the distance probe
// when adaptive speed is enabled. Init fails permanently: once a compilation fails
// every following Init and Frame call returns an error wrapping [ErrNoProgram].
func (d *Driver) Init(s Surface) error {
	if d.initErr != nil {
		return d.initErr
	} else if d.compiled {
		return nil
	}
	src, err := d.FragmentSource()
	if err == nil {
		d.prog, err = s.CompileProgram(glbuild.VertexSource, src)
	}
	if err != nil {
		d.initErr = fmt.Errorf("%w: %w", ErrNoProgram, err)
		return d.initErr
	}
	d.compiled = true
	return d.resetProbe()
}

func (d *Driver) resetProbe() error {
	if d.adaptive == nil {
		return nil
	}
	if old, ok := d.adaptive.Probe.(interface{ Delete() }); ok {
		old.Delete()
	}
	d.adaptive.Probe = camera.FieldProbe{Field: d.field3}
	if d.cfg.NewProbe == nil {
		return nil
	}
	probe, err := d.cfg.NewProbe(d.field3)
	if err != nil {
		return fmt.Errorf("creating distance probe: %w", err)
	}
	d.adaptive.Probe = probe
	return nil
}

// Power returns the Mandelbulb exponent.
func (d *Driver) Power() float32 { return d.cfg.Field.Power }

// SetPower changes the Mandelbulb exponent. The fragment program reads it as a
// uniform so no recompilation is needed.
func (d *Driver) SetPower(power float32) error {
	if d.cfg.Variant != gmarch.VariantMandelbulb {
		return fmt.Errorf("variant %s has no power parameter", d.cfg.Variant)
	}
	old := d.cfg.Field.Power
	d.cfg.Field.Power = power
	err := d.buildField()
	if err != nil {
		d.cfg.Field.Power = old
		return err
	}
	if d.compiled {
		return d.resetProbe()
	} else if d.adaptive != nil {
		d.adaptive.Probe = camera.FieldProbe{Field: d.field3}
	}
	return nil
}

// Step advances the camera state by one frame with elapsed seconds since the
// first frame and the viewport resolution.
func (d *Driver) Step(elapsed float32, resolution ms2.Vec) error {
	d.st.Time = elapsed
	d.st.Resolution = resolution
	err := d.ctl.Update(&d.st, &d.in)
	if err != nil {
		return err
	}
	if d.field2 != nil {
		d.field2.SetC(gmarch.CursorToC(d.st.Cursor, resolution, d.cfg.Mapping))
	}
	return nil
}

// Uniforms appends the uniforms of the current state to dst.
func (d *Driver) Uniforms(dst []Uniform) []Uniform {
	res := d.st.Resolution
	dst = append(dst, Uniform{Name: glbuild.UniformResolution, Value: mgl32.Vec2{res.X, res.Y}})
	var params []glbuild.Param
	if d.field3 != nil {
		pos := d.st.Pose.Position
		b := d.st.Pose.Basis()
		dst = append(dst,
			Uniform{Name: glbuild.UniformCamPos, Value: mgl32.Vec3{pos.X, pos.Y, pos.Z}},
			Uniform{Name: glbuild.UniformCamMatrix, Value: mgl32.Mat3FromCols(
				mgl32.Vec3{b.C0.X, b.C0.Y, b.C0.Z},
				mgl32.Vec3{b.C1.X, b.C1.Y, b.C1.Z},
				mgl32.Vec3{b.C2.X, b.C2.Y, b.C2.Z},
			)},
		)
		params = d.field3.AppendShaderParams(params)
	} else {
		dst = append(dst, Uniform{Name: glbuild.UniformZoom, Value: d.cfg.Zoom})
		params = d.field2.AppendShaderParams(params)
	}
	for _, p := range params {
		dst = append(dst, Uniform{Name: p.Name, Value: uniformValue(p.Value)})
	}
	return dst
}

func uniformValue(v any) any {
	switch v := v.(type) {
	case ms2.Vec:
		return mgl32.Vec2{v.X, v.Y}
	case ms3.Vec:
		return mgl32.Vec3{v.X, v.Y, v.Z}
	}
	return v
}

// Frame steps the camera, uploads the frame's uniforms and draws the full-screen quad.
func (d *Driver) Frame(s Surface, elapsed float32, resolution ms2.Vec) error {
	if !d.compiled {
		if d.initErr != nil {
			return d.initErr
		}
		return ErrNoProgram
	}
	err := d.Step(elapsed, resolution)
	if err != nil {
		return err
	}
	var buf [8]Uniform
	for _, u := range d.Uniforms(buf[:0]) {
		err = s.SetUniform(d.prog, u.Name, u.Value)
		if err != nil {
			return fmt.Errorf("setting uniform %s: %w", u.Name, err)
		}
	}
	return s.DrawFullScreenQuad(d.prog)
}

// RenderCPU renders the current state of the driver into img without a GPU.
// The raymarched variants trace one ray per pixel with the driver's march configuration.
func (d *Driver) RenderCPU(ctx context.Context, img draw.Image) error {
	if d.field2 != nil {
		return glrender.NewImageRenderer2(nil, 0).Render(ctx, d.field2, d.cfg.Zoom, img, nil)
	}
	shade := glrender.ShadeSteps
	if d.cfg.Shading == glbuild.ShadeDepth {
		shade = glrender.ShadeDepth
	}
	ir, err := glrender.NewImageRenderer3(d.cfg.March, shade, 0)
	if err != nil {
		return err
	}
	return ir.Render(ctx, d.field3, d.st.Pose, img)
}
