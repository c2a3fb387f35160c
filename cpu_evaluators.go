package gmarch

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

var errMismatchBufferLength = errors.New("position and distance buffer length mismatch")

func (m *mandelbulb) Distance(pos ms3.Vec) (float32, int) {
	z := pos
	dr := float32(1)
	var r float32
	steps := 0
	power := m.power
	for i := 0; i < m.maxIter; i++ {
		r = ms3.Norm(z)
		steps = i
		if r > m.bailout {
			break
		}
		r = math32.Max(r, MandelbulbRFloor)
		theta := math32.Acos(clampf(z.Z/r, -1, 1)) * power
		phi := math32.Atan2(z.Y, z.X) * power
		dr = math32.Pow(r, power-1)*power*dr + 1
		zr := math32.Pow(r, power)
		sinTheta, cosTheta := math32.Sincos(theta)
		sinPhi, cosPhi := math32.Sincos(phi)
		z = ms3.Vec{
			X: zr*sinTheta*cosPhi + pos.X,
			Y: zr*sinPhi*sinTheta + pos.Y,
			Z: zr*cosTheta + pos.Z,
		}
	}
	r = math32.Max(r, MandelbulbRFloor)
	return math32.Max(0, 0.5*math32.Log(r)*r/dr), steps
}

func (m *mandelbulb) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	return evaluateField(m, pos, dist)
}

func (s *sphere) Distance(p ms3.Vec) (float32, int) {
	return ms3.Norm(p) - s.r, 0
}

func (s *sphere) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	}
	r := s.r
	for i, p := range pos {
		dist[i] = ms3.Norm(p) - r
	}
	return nil
}

func (l *lattice) Distance(p ms3.Vec) (float32, int) {
	s := l.spacing
	q := ms3.Vec{
		X: p.X - s*math32.Floor(p.X/s+0.5),
		Y: p.Y - s*math32.Floor(p.Y/s+0.5),
		Z: p.Z - s*math32.Floor(p.Z/s+0.5),
	}
	return ms3.Norm(q) - l.r, 0
}

func (l *lattice) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	return evaluateField(l, pos, dist)
}

func evaluateField(f Field3, pos []ms3.Vec, dist []float32) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	}
	for i, p := range pos {
		dist[i], _ = f.Distance(p)
	}
	return nil
}
