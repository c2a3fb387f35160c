//go:build !tinygo && cgo

package gmarchaux

import (
	"fmt"
	"log"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/gmarch"
	"github.com/soypat/gmarch/camera"
	"github.com/soypat/gmarch/glbuild"
	"github.com/soypat/gmarch/gleval"
)

// glSurface draws with the OpenGL context current on the calling goroutine.
type glSurface struct {
	progs    []glgl.Program
	uniforms locationCache
	vao, vbo uint32
	posAttr  uint32
}

func (s *glSurface) CompileProgram(vertexSource, fragmentSource string) (ProgramHandle, error) {
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   vertexSource + "\x00",
		Fragment: fragmentSource + "\x00",
	})
	if err != nil {
		return 0, fmt.Errorf("%s\n\n%w", fragmentSource, err)
	}
	prog.Bind()
	if s.vao == 0 {
		gl.GenVertexArrays(1, &s.vao)
		gl.BindVertexArray(s.vao)
		gl.GenBuffers(1, &s.vbo)
		gl.BindBuffer(gl.ARRAY_BUFFER, s.vbo)
		quad := glbuild.FullScreenQuad
		gl.BufferData(gl.ARRAY_BUFFER, 4*len(quad), gl.Ptr(quad[:]), gl.STATIC_DRAW)
	}
	s.posAttr, err = prog.AttribLocation("aPos\x00")
	if err != nil {
		prog.Delete()
		return 0, err
	}
	gl.EnableVertexAttribArray(s.posAttr)
	gl.VertexAttribPointer(s.posAttr, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))
	s.progs = append(s.progs, prog)
	return s.uniforms.add(), nil
}

func (s *glSurface) program(h ProgramHandle) (prog glgl.Program, err error) {
	if !s.uniforms.valid(h) {
		return prog, errBadHandle
	}
	return s.progs[h-1], nil
}

func (s *glSurface) SetUniform(h ProgramHandle, name string, value any) error {
	prog, err := s.program(h)
	if err != nil {
		return err
	}
	prog.Bind()
	loc, err := s.uniforms.location(h, name, func(name string) (int32, error) {
		return prog.UniformLocation(name + "\x00")
	})
	if err != nil {
		return err
	}
	switch v := value.(type) {
	case float32:
		gl.Uniform1f(loc, v)
	case mgl32.Vec2:
		gl.Uniform2fv(loc, 1, &v[0])
	case mgl32.Vec3:
		gl.Uniform3fv(loc, 1, &v[0])
	case mgl32.Mat3:
		gl.UniformMatrix3fv(loc, 1, false, &v[0])
	default:
		return fmt.Errorf("unsupported uniform type %T", value)
	}
	return nil
}

func (s *glSurface) DrawFullScreenQuad(h ProgramHandle) error {
	prog, err := s.program(h)
	if err != nil {
		return err
	}
	prog.Bind()
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.BindVertexArray(s.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	return nil
}

func (s *glSurface) delete() {
	for _, prog := range s.progs {
		prog.Delete()
	}
	if s.vbo != 0 {
		gl.DeleteBuffers(1, &s.vbo)
		gl.DeleteVertexArrays(1, &s.vao)
	}
}

var glfwKeys = map[glfw.Key]camera.Key{
	glfw.KeyW: camera.KeyForward,
	glfw.KeyS: camera.KeyBack,
	glfw.KeyA: camera.KeyLeft,
	glfw.KeyD: camera.KeyRight,
}

func ui(d *Driver, cfg UIConfig) error {
	logf := func(format string, args ...any) {
		if !cfg.Silent {
			log.Printf(format, args...)
		}
	}
	window, term, err := startGLFW(cfg.Width, cfg.Height, "gmarch "+d.Variant().String())
	if err != nil {
		return err
	}
	defer term()
	if cfg.GPUProbe && d.cfg.AdaptiveSpeed {
		// The compute program runs on the window's context so no extra context is needed.
		d.cfg.NewProbe = func(f gmarch.Field3) (camera.Probe, error) {
			sdf, err := gleval.NewComputeShaderSDF3(f)
			if err != nil {
				return nil, err
			}
			return gpuProbe{SDFProbe: camera.SDFProbe{SDF: sdf}, sdf: sdf}, nil
		}
	}
	surface := &glSurface{}
	defer surface.delete()
	err = d.Init(surface)
	if err != nil {
		return err
	}
	in := d.Input()
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if k, ok := glfwKeys[key]; ok {
			switch action {
			case glfw.Press:
				in.KeyDown(k)
			case glfw.Release:
				in.KeyUp(k)
			}
			return
		}
		if action == glfw.Release {
			return
		}
		switch key {
		case glfw.KeyEscape:
			if in.PointerLocked() {
				in.SetPointerLocked(false)
				window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			} else {
				window.SetShouldClose(true)
			}
		case glfw.KeyUp, glfw.KeyDown:
			if d.Variant() != gmarch.VariantMandelbulb {
				return
			}
			step := cfg.PowerStep
			if key == glfw.KeyDown {
				step = -step
			}
			err := d.SetPower(d.Power() + step)
			if err != nil {
				logf("set power: %v", err)
				return
			}
			logf("power %.2f", d.Power())
		}
	})
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		in.CursorMoved(float32(xpos), float32(ypos))
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft || !d.Variant().Is3D() {
			return
		}
		switch {
		case action == glfw.Press && !in.PointerLocked() && d.cfg.FreeFly.ClampPitch:
			// Pitch clamped presets look by dragging.
			in.SetDragging(true)
		case action == glfw.Press && !in.PointerLocked():
			in.SetPointerLocked(true)
			window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		case action == glfw.Release:
			in.SetDragging(false)
		}
	})
	window.SetFocusCallback(func(w *glfw.Window, focused bool) {
		if !focused {
			in.ReleaseAll()
		}
	})

	ctx := cfg.Context
	start := glfw.GetTime()
	lastLog := time.Now()
	frames := 0
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		width, height := window.GetFramebufferSize()
		gl.Viewport(0, 0, int32(width), int32(height))
		elapsed := float32(glfw.GetTime() - start)
		err = d.Frame(surface, elapsed, ms2.Vec{X: float32(width), Y: float32(height)})
		if err != nil {
			return err
		}
		window.SwapBuffers()
		glfw.PollEvents()
		frames++
		if since := time.Since(lastLog); since > 5*time.Second {
			st := d.State()
			logf("%.1f fps pos=%v yaw=%.3f pitch=%.3f probe=%.4g", float64(frames)/since.Seconds(),
				st.Pose.Position, st.Pose.Yaw, st.Pose.Pitch, d.LastProbe())
			frames = 0
			lastLog = time.Now()
		}
	}
	return nil
}

// gpuProbe releases its compute program when the driver replaces it.
type gpuProbe struct {
	camera.SDFProbe
	sdf *gleval.SDF3Compute
}

func (p gpuProbe) Delete() { p.sdf.Delete() }

func startGLFW(width, height int, title string) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err = glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
