package camera

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gmarch/gleval"
)

// MaxPitch is the pitch limit applied when pitch clamping is enabled.
// It stays just short of π/2 so the view never flips over the vertical.
const MaxPitch = math32.Pi/2 - 0.01

// State is the per-frame camera state owned by the render loop.
type State struct {
	// Pose is the 3D camera used by raymarched fields.
	Pose Pose
	// Cursor is the pixel position driving planar field parameters.
	Cursor ms2.Vec
	// Time is the elapsed time in seconds since the first frame.
	Time float32
	// Resolution is the viewport size in pixels.
	Resolution ms2.Vec
}

// Controller updates the camera state once per frame from the input state.
type Controller interface {
	Update(st *State, in *InputState) error
}

// FreeFlyConfig configures a [FreeFly] controller.
type FreeFlyConfig struct {
	// Sensitivity converts pointer motion in pixels to radians.
	Sensitivity float32
	// Speed is the distance moved per frame while a movement key is held.
	Speed float32
	// ClampPitch limits pitch to ±[MaxPitch]. When false the view may roll over the vertical.
	ClampPitch bool
	// WorldAxes moves along the world -Z and +X axes instead of the view's forward and right vectors.
	WorldAxes bool
}

// DefaultFreeFlyConfig returns the configuration of the Mandelbulb fly-through.
func DefaultFreeFlyConfig() FreeFlyConfig {
	return FreeFlyConfig{
		Sensitivity: 0.002,
		Speed:       0.01,
		ClampPitch:  true,
	}
}

// FreeFly is a WASD and mouse-look first-person controller.
type FreeFly struct {
	cfg FreeFlyConfig
}

// NewFreeFly returns a new free-fly controller.
func NewFreeFly(cfg FreeFlyConfig) (*FreeFly, error) {
	if !(cfg.Sensitivity > 0) {
		return nil, errors.New("zero or negative look sensitivity")
	} else if cfg.Speed < 0 || math32.IsNaN(cfg.Speed) {
		return nil, errors.New("negative or NaN speed")
	}
	return &FreeFly{cfg: cfg}, nil
}

// SetSpeed sets the distance moved per frame.
func (f *FreeFly) SetSpeed(speed float32) { f.cfg.Speed = speed }

// Speed returns the distance moved per frame.
func (f *FreeFly) Speed() float32 { return f.cfg.Speed }

// Update applies the look delta accumulated since the last frame then moves the
// camera along the held movement keys.
func (f *FreeFly) Update(st *State, in *InputState) error {
	pose := &st.Pose
	look := in.TakeLookDelta()
	pose.Yaw -= look.X * f.cfg.Sensitivity
	pose.Pitch -= look.Y * f.cfg.Sensitivity
	if f.cfg.ClampPitch {
		pose.Pitch = clampf(pose.Pitch, -MaxPitch, MaxPitch)
	}
	var fwd, right ms3.Vec
	if f.cfg.WorldAxes {
		fwd, right = ms3.Vec{Z: -1}, ms3.Vec{X: 1}
	} else {
		fwd, right = pose.Forward(), pose.Right()
	}
	var move ms3.Vec
	if in.Pressed(KeyForward) {
		move = ms3.Add(move, fwd)
	}
	if in.Pressed(KeyBack) {
		move = ms3.Sub(move, fwd)
	}
	if in.Pressed(KeyLeft) {
		move = ms3.Sub(move, right)
	}
	if in.Pressed(KeyRight) {
		move = ms3.Add(move, right)
	}
	pose.Position = ms3.Add(pose.Position, ms3.Scale(f.cfg.Speed, move))
	return nil
}

// SpeedController is a controller whose movement speed can be changed between frames.
type SpeedController interface {
	Controller
	SetSpeed(speed float32)
}

// Probe measures the field distance at a point, usually the camera position.
type Probe interface {
	ProbeDistance(p ms3.Vec) (float32, error)
}

// SDFProbe probes a vectorized field with a 1x1 evaluation. With a [gleval.SDF3Compute]
// the probe runs on the GPU and the result is read back.
type SDFProbe struct {
	SDF gleval.SDF3
}

func (p SDFProbe) ProbeDistance(pos ms3.Vec) (float32, error) {
	return gleval.EvaluateAt(p.SDF, pos, nil)
}

// FieldProbe probes a field on the CPU.
type FieldProbe struct {
	Field gleval.Distancer
}

func (p FieldProbe) ProbeDistance(pos ms3.Vec) (float32, error) {
	d, _ := p.Field.Distance(pos)
	return d, nil
}

// SpeedForDistance is the adaptive movement speed for a probed distance d.
// Speed shrinks as the camera moves away from the surface and a zero
// reading, which means the probe produced nothing, falls back to 0.005.
func SpeedForDistance(d float32) float32 {
	if d != 0 {
		return (250 - d) / 200000
	}
	return 0.005
}

// AdaptiveSpeed decorates a controller and sets its speed every frame from a probe
// of the field distance at the camera position.
type AdaptiveSpeed struct {
	Inner SpeedController
	Probe Probe
	// LastDistance is the most recent probed distance.
	LastDistance float32
}

func (a *AdaptiveSpeed) Update(st *State, in *InputState) error {
	d, err := a.Probe.ProbeDistance(st.Pose.Position)
	if err != nil {
		return fmt.Errorf("probing camera distance: %w", err)
	}
	if math32.IsNaN(d) || math32.IsInf(d, 0) {
		d = 0
	}
	a.LastDistance = d
	a.Inner.SetSpeed(SpeedForDistance(d))
	return a.Inner.Update(st, in)
}

// Orbit drives the camera along a horizontal circle of Radius around the origin,
// always facing the origin. The angle is Time*Speed radians.
type Orbit struct {
	Radius float32
	Speed  float32
	Height float32
}

func (o *Orbit) Update(st *State, in *InputState) error {
	t := st.Time * o.Speed
	s, c := math32.Sincos(t)
	st.Pose = Pose{
		Position: ms3.Vec{X: o.Radius * s, Y: o.Height, Z: o.Radius * c},
		Yaw:      t,
		Pitch:    math32.Atan2(-o.Height, o.Radius),
	}
	return nil
}

// CursorOrbit moves the parameter cursor along a circle around the viewport center
// of radius Radius*min(width,height) with angle Time*Speed radians.
type CursorOrbit struct {
	Radius float32
	Speed  float32
}

func (co *CursorOrbit) Update(st *State, in *InputState) error {
	res := st.Resolution
	r := math32.Min(res.X, res.Y) * co.Radius
	s, c := math32.Sincos(st.Time * co.Speed)
	st.Cursor = ms2.Vec{
		X: res.X/2 + c*r,
		Y: res.Y/2 + s*r,
	}
	return nil
}

// CursorFollow sets the parameter cursor to the pointer position.
type CursorFollow struct{}

func (CursorFollow) Update(st *State, in *InputState) error {
	st.Cursor = in.Cursor()
	return nil
}

func clampf(v, Min, Max float32) float32 {
	if v < Min {
		return Min
	} else if v > Max {
		return Max
	}
	return v
}
