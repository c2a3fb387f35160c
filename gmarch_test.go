package gmarch_test

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gmarch"
	"github.com/soypat/gmarch/glbuild"
)

func TestMandelbulbBailout(t *testing.T) {
	var bld gmarch.Builder
	mb := bld.NewMandelbulb(8, 100, 4)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		dir := ms3.Unit(ms3.Vec{X: rng.Float32() - 0.5, Y: rng.Float32() - 0.5, Z: rng.Float32() - 0.5})
		p := ms3.Scale(4.01+10*rng.Float32(), dir)
		d, steps := mb.Distance(p)
		if math32.IsNaN(d) || math32.IsInf(d, 0) || d <= 0 {
			t.Fatalf("p=%v: want finite positive distance outside bailout, got %v", p, d)
		}
		if steps != 0 {
			t.Fatalf("p=%v: escaped point should stop at first iteration, got %d steps", p, steps)
		}
	}
	// Exact value outside bailout: 0.5*ln(r)*r with dr=1.
	d, _ := mb.Distance(ms3.Vec{X: 5})
	want := 0.5 * math32.Log(5) * 5
	if math32.Abs(d-want) > 1e-5 {
		t.Errorf("got %v, want %v", d, want)
	}
}

func TestMandelbulbDegenerate(t *testing.T) {
	var bld gmarch.Builder
	for _, maxIter := range []int{30, 100, 500} {
		mb := bld.NewMandelbulb(8, maxIter, 4)
		d, steps := mb.Distance(ms3.Vec{})
		if math32.IsNaN(d) || math32.IsInf(d, 0) || d < 0 {
			t.Errorf("maxIter=%d: origin distance %v not finite non-negative", maxIter, d)
		}
		if steps != maxIter-1 {
			t.Errorf("maxIter=%d: origin never escapes, want %d steps, got %d", maxIter, maxIter-1, steps)
		}
	}
	mb := bld.NewMandelbulb(8, 100, 4)
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 2000; i++ {
		p := ms3.Vec{X: 3 * (rng.Float32() - 0.5), Y: 3 * (rng.Float32() - 0.5), Z: 3 * (rng.Float32() - 0.5)}
		if i%10 == 0 {
			p.X, p.Y = 0, 0 // Points on the z axis exercise the acos clamp.
		}
		d, _ := mb.Distance(p)
		if math32.IsNaN(d) || math32.IsInf(d, 0) || d < 0 {
			t.Fatalf("p=%v: distance %v not finite non-negative", p, d)
		}
	}
}

func TestLatticePeriodic(t *testing.T) {
	const spacing, radius = 1.4, 0.5
	var bld gmarch.Builder
	lat := bld.NewLatticeSpheres(spacing, radius)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		p := ms3.Vec{X: 4 * (rng.Float32() - 0.5), Y: 4 * (rng.Float32() - 0.5), Z: 4 * (rng.Float32() - 0.5)}
		n := ms3.Vec{X: float32(rng.Intn(11) - 5), Y: float32(rng.Intn(11) - 5), Z: float32(rng.Intn(11) - 5)}
		q := ms3.Add(p, ms3.Scale(spacing, n))
		d1, _ := lat.Distance(p)
		d2, _ := lat.Distance(q)
		if math32.Abs(d1-d2) > 1e-4 {
			t.Fatalf("field(%v)=%v != field(%v)=%v", p, d1, q, d2)
		}
	}
	for _, test := range []struct {
		p    ms3.Vec
		want float32
	}{
		{p: ms3.Vec{}, want: -radius},
		{p: ms3.Vec{X: spacing}, want: -radius},
		{p: ms3.Vec{X: 1}, want: 0.4 - radius},
		{p: ms3.Vec{Y: -spacing / 2 + 0.1}, want: spacing/2 - 0.1 - radius},
	} {
		got, _ := lat.Distance(test.p)
		if math32.Abs(got-test.want) > 1e-5 {
			t.Errorf("field(%v)=%v, want %v", test.p, got, test.want)
		}
	}
}

func TestSphereEvaluate(t *testing.T) {
	var bld gmarch.Builder
	s := bld.NewSphere(0.5)
	pos := []ms3.Vec{{}, {Z: 4}, {X: 0.5}}
	dist := make([]float32, len(pos))
	err := s.Evaluate(pos, dist, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{-0.5, 3.5, 0}
	for i := range want {
		if dist[i] != want[i] {
			t.Errorf("pos %v: got %v, want %v", pos[i], dist[i], want[i])
		}
	}
	err = s.Evaluate(pos, dist[:1], nil)
	if err == nil {
		t.Error("expected buffer length mismatch error")
	}
}

func TestFieldEvaluateMatchesDistance(t *testing.T) {
	var bld gmarch.Builder
	for _, v := range []gmarch.Variant{gmarch.VariantMandelbulb, gmarch.VariantLatticeSphere} {
		f := bld.NewField3(v, gmarch.DefaultFieldConfig(v))
		pos := []ms3.Vec{{X: 0.3, Y: 0.1}, {Z: 2}, {X: -1, Y: 0.7, Z: 0.2}}
		dist := make([]float32, len(pos))
		err := f.Evaluate(pos, dist, nil)
		if err != nil {
			t.Fatal(err)
		}
		for i, p := range pos {
			want, _ := f.Distance(p)
			if dist[i] != want {
				t.Errorf("%s: Evaluate(%v)=%v, Distance=%v", v, p, dist[i], want)
			}
		}
	}
}

func TestJulia(t *testing.T) {
	var bld gmarch.Builder
	julia := bld.NewJulia(100, 2)
	res := ms2.Vec{X: 640, Y: 480}
	for _, mapping := range []gmarch.CMapping{gmarch.CMapDirect, gmarch.CMapSinusoid} {
		c := gmarch.CursorToC(ms2.Vec{X: 320, Y: 240}, res, mapping)
		if c != (ms2.Vec{}) {
			t.Errorf("mapping %d: cursor at center should give c=0, got %v", mapping, c)
		}
	}
	julia.SetC(ms2.Vec{})
	if it := julia.Iterations(ms2.Vec{}); it != 100 {
		t.Errorf("origin with c=0 should never escape, got %d iterations", it)
	}
	if v := julia.Intensity(ms2.Vec{}); v != 1 {
		t.Errorf("got intensity %v, want 1", v)
	}
	if it := julia.Iterations(ms2.Vec{X: 3}); it != 0 {
		t.Errorf("point outside bailout should escape immediately, got %d", it)
	}
	// z0=0.5: 0.25, 0.0625 ... converges for c=0, but with c=1 escapes: 1.25, 2.5625.
	julia.SetC(ms2.Vec{X: 1})
	if it := julia.Iterations(ms2.Vec{X: 0.5}); it != 1 {
		t.Errorf("got %d iterations, want 1", it)
	}
	c := gmarch.CursorToC(ms2.Vec{X: 640, Y: 0}, res, gmarch.CMapDirect)
	if c != (ms2.Vec{X: 1, Y: -1}) {
		t.Errorf("corner cursor direct mapping got %v", c)
	}
}

func TestMandelbrot(t *testing.T) {
	var bld gmarch.Builder
	mb := bld.NewMandelbrot(100, 2)
	pos := []ms2.Vec{{}, {X: -1}, {X: 2, Y: 2}, {X: 0.3}}
	dist := make([]float32, len(pos))
	err := mb.Evaluate(pos, dist, nil)
	if err != nil {
		t.Fatal(err)
	}
	if dist[0] != 1 || dist[1] != 1 {
		t.Errorf("points inside the set should have intensity 1, got %v %v", dist[0], dist[1])
	}
	if dist[2] != 0 {
		t.Errorf("point far outside should escape at once, got %v", dist[2])
	}
	if dist[3] <= 0 || dist[3] >= 1 {
		t.Errorf("point outside the set near its edge should take some iterations, got %v", dist[3])
	}
	// The constant is unused in Mandelbrot mode.
	mb.SetC(ms2.Vec{X: 5})
	if mb.Intensity(ms2.Vec{}) != 1 {
		t.Error("Mandelbrot field should ignore c")
	}
	if params := mb.AppendShaderParams(nil); len(params) != 0 {
		t.Errorf("Mandelbrot field should have no parameters, got %v", params)
	}
}

func TestBuilderErrors(t *testing.T) {
	bld := gmarch.Builder{NoDimensionPanic: true}
	bld.NewMandelbulb(0, 0, -1)
	bld.NewLatticeSpheres(1, 0.6)
	bld.NewSphere(-1)
	bld.NewJulia(0, 2)
	if bld.Err() == nil {
		t.Fatal("expected accumulated errors")
	}
	bld.ClearErrors()
	if bld.Err() != nil {
		t.Fatal("expected no errors after clear")
	}
	bld.NewField3(gmarch.VariantJulia2D, gmarch.FieldConfig{})
	if bld.Err() == nil {
		t.Error("planar variant as 3D field should error")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic from default builder")
		}
	}()
	var panicky gmarch.Builder
	panicky.NewSphere(0)
}

func TestParseVariant(t *testing.T) {
	for _, v := range []gmarch.Variant{gmarch.VariantMandelbulb, gmarch.VariantLatticeSphere, gmarch.VariantJulia2D, gmarch.VariantMandelbrot2D} {
		got, err := gmarch.ParseVariant(v.String())
		if err != nil || got != v {
			t.Errorf("ParseVariant(%q)=%v,%v", v.String(), got, err)
		}
	}
	if v, err := gmarch.ParseVariant("MandelBulb"); err != nil || v != gmarch.VariantMandelbulb {
		t.Error("ParseVariant should be case insensitive")
	}
	if _, err := gmarch.ParseVariant("torus"); err == nil {
		t.Error("expected error for unknown variant")
	}
	if !gmarch.VariantLatticeSphere.Is3D() || gmarch.VariantJulia2D.Is3D() {
		t.Error("Is3D mismatch")
	}
}

func TestShaderParams(t *testing.T) {
	var bld gmarch.Builder
	mb := bld.NewMandelbulb(6.5, 30, 4)
	params := mb.AppendShaderParams(nil)
	if len(params) != 1 || params[0].Name != glbuild.ParamPower || params[0].Value != float32(6.5) {
		t.Errorf("unexpected mandelbulb params %v", params)
	}
	lat := bld.NewLatticeSpheres(1.4, 0.5)
	params = lat.AppendShaderParams(nil)
	if len(params) != 1 || params[0].Name != glbuild.ParamSpacing || params[0].Value != float32(1.4) {
		t.Errorf("unexpected lattice params %v", params)
	}
	julia := bld.NewJulia(100, 2)
	julia.SetC(ms2.Vec{X: 0.25, Y: -0.5})
	params = julia.AppendShaderParams(nil)
	if len(params) != 1 || params[0].Value != (ms2.Vec{X: 0.25, Y: -0.5}) {
		t.Errorf("unexpected julia params %v", params)
	}
}
