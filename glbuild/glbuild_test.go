package glbuild_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gmarch"
	"github.com/soypat/gmarch/glbuild"
)

func TestWriteFragmentMarcher(t *testing.T) {
	var bld gmarch.Builder
	for _, obj := range []glbuild.Shader3D{
		bld.NewMandelbulb(8, 100, 4),
		bld.NewLatticeSpheres(1.4, 0.5),
		bld.NewSphere(1),
	} {
		programmer := glbuild.NewDefaultProgrammer()
		source := new(bytes.Buffer)
		mc := glbuild.MarchConsts{Epsilon: 0.001, MaxDist: 200, MaxSteps: 100, Shading: glbuild.ShadeSteps}
		n, err := programmer.WriteFragmentMarcher(source, obj, mc)
		if err != nil {
			t.Fatal(err)
		} else if n != source.Len() {
			t.Fatal("written length mismatch")
		}
		src := source.String()
		name := string(obj.AppendShaderName(nil))
		decl := "float " + name + "(vec3 p, out int steps)"
		if c := strings.Count(src, decl); c != 1 {
			t.Errorf("\n%s\nwant one declaration of %s, got %d", src, name, c)
		}
		for _, want := range []string{
			"uniform vec2 " + glbuild.UniformResolution + ";",
			"uniform vec3 " + glbuild.UniformCamPos + ";",
			"uniform mat3 " + glbuild.UniformCamMatrix + ";",
			"const float EPSILON=0.001;",
			"const float MAX_DIST=200.;",
			"const int MAX_STEPS=100;",
			"isnan(dist)",
		} {
			if !strings.Contains(src, want) {
				t.Errorf("\n%s\nmissing %q", src, want)
			}
		}
		for _, param := range obj.AppendShaderParams(nil) {
			if !strings.Contains(src, "uniform float "+param.Name+";") {
				t.Errorf("\n%s\nmissing uniform for parameter %s", src, param.Name)
			}
		}
	}
}

func TestWriteFragmentMarcherInvalid(t *testing.T) {
	var bld gmarch.Builder
	programmer := glbuild.NewDefaultProgrammer()
	var source bytes.Buffer
	_, err := programmer.WriteFragmentMarcher(&source, bld.NewSphere(1), glbuild.MarchConsts{Epsilon: 0.001, MaxDist: 0, MaxSteps: 10})
	if err == nil {
		t.Error("expected error for zero max distance")
	}
	_, err = programmer.WriteFragmentMarcher(&source, bld.NewSphere(1), glbuild.MarchConsts{Epsilon: 0.001, MaxDist: 10, MaxSteps: 10, Shading: 99})
	if err == nil {
		t.Error("expected error for unknown shading")
	}
}

func TestWriteFragmentPlanar(t *testing.T) {
	var bld gmarch.Builder
	julia := bld.NewJulia(100, 2)
	julia.SetC(ms2.Vec{X: 0.1, Y: 0.2})
	var source bytes.Buffer
	programmer := glbuild.NewDefaultProgrammer()
	_, err := programmer.WriteFragmentPlanar(&source, julia)
	if err != nil {
		t.Fatal(err)
	}
	src := source.String()
	for _, want := range []string{
		"uniform vec2 " + glbuild.ParamC + ";",
		"uniform float " + glbuild.UniformZoom + ";",
		"int maxIterations=100;",
		"float bailout=2.;",
		"(vec2 p)",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("\n%s\nmissing %q", src, want)
		}
	}

	source.Reset()
	_, err = programmer.WriteFragmentPlanar(&source, bld.NewMandelbrot(100, 2))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(source.String(), glbuild.ParamC) {
		t.Error("Mandelbrot program should not declare the Julia constant")
	}
}

func TestWriteComputeSDF3(t *testing.T) {
	var bld gmarch.Builder
	obj := bld.NewMandelbulb(7.5, 30, 4)
	var source bytes.Buffer
	programmer := glbuild.NewDefaultProgrammer()
	programmer.SetComputeInvocations(1, 1, 1)
	_, err := programmer.WriteComputeSDF3(&source, obj)
	if err != nil {
		t.Fatal(err)
	}
	src := source.String()
	for _, want := range []string{
		"#shader compute",
		"const float " + glbuild.ParamPower + "=7.5;",
		"local_size_x = 1,",
		"for (int i = 0; i < 30; i++)",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("\n%s\nmissing %q", src, want)
		}
	}
	if strings.Contains(src, "uniform float "+glbuild.ParamPower) {
		t.Error("compute program should inline parameters as constants")
	}
}

func TestAppendFloat(t *testing.T) {
	for _, test := range []struct {
		v            float32
		neg, decimal byte
		want         string
	}{
		{v: 1, neg: '-', decimal: '.', want: "1."},
		{v: 0.5, neg: '-', decimal: '.', want: "0.5"},
		{v: -2.25, neg: '-', decimal: '.', want: "-2.25"},
		{v: -2.25, neg: 'n', decimal: 'p', want: "n2p25"},
		{v: 4, neg: 'n', decimal: 'p', want: "4p"},
	} {
		got := string(glbuild.AppendFloat(nil, test.neg, test.decimal, test.v))
		if got != test.want {
			t.Errorf("AppendFloat(%v)=%q, want %q", test.v, got, test.want)
		}
	}
}

func TestShaderNamesUnique(t *testing.T) {
	var bld gmarch.Builder
	objs := []glbuild.Shader{
		bld.NewMandelbulb(8, 30, 4),
		bld.NewMandelbulb(8, 500, 4),
		bld.NewLatticeSpheres(1.4, 0.5),
		bld.NewSphere(0.5),
		bld.NewJulia(100, 2),
		bld.NewMandelbrot(100, 2),
	}
	seen := make(map[string]bool)
	for _, obj := range objs {
		name := string(obj.AppendShaderName(nil))
		if seen[name] {
			t.Errorf("duplicate shader name %q", name)
		}
		seen[name] = true
	}
}
