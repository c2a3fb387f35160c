//go:build !tinygo && cgo

package gmarch_test

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/gmarch"
	"github.com/soypat/gmarch/camera"
	"github.com/soypat/gmarch/gleval"
)

// Since GPU must be run in main thread we need to do some dark arts for GPU code to be code-covered.
func TestMain(m *testing.M) {
	runtime.LockOSThread()
	var exit int
	err := testGPU()
	if err != nil {
		exit = 1
		log.Println(err)
	}
	runtime.UnlockOSThread()
	os.Exit(m.Run() | exit)
}

func testGPU() error {
	term, err := gleval.Init1x1GLFW()
	if err != nil {
		log.Println("skipping GPU tests:", err)
		return nil
	}
	defer term()
	for _, test := range []func() error{
		testFieldsGPU,
		testProbeGPU,
	} {
		err = test()
		if err != nil {
			return err
		}
	}
	return nil
}

func testFieldsGPU() error {
	const bufsize = 1024
	rng := rand.New(rand.NewSource(1))
	bld := gmarch.Builder{NoDimensionPanic: true}
	fields := []gmarch.Field3{
		bld.NewSphere(1),
		bld.NewMandelbulb(8, 30, 4),
		bld.NewMandelbulb(3, 100, 4),
		bld.NewLatticeSpheres(1.4, 0.5),
	}
	if err := bld.Err(); err != nil {
		return err
	}
	pos := make([]ms3.Vec, bufsize)
	distGPU := make([]float32, bufsize)
	distCPU := make([]float32, bufsize)
	invoc := glgl.MaxComputeInvocations()
	for _, field := range fields {
		for i := range pos {
			pos[i] = ms3.Vec{X: 6 * (rng.Float32() - 0.5), Y: 6 * (rng.Float32() - 0.5), Z: 6 * (rng.Float32() - 0.5)}
		}
		sdf, err := gleval.NewComputeShaderSDF3(field)
		if err != nil {
			return err
		}
		err = sdf.Evaluate(pos, distGPU, nil)
		sdf.Delete()
		if err != nil {
			return err
		}
		err = field.Evaluate(pos, distCPU, nil)
		if err != nil {
			return err
		}
		name := string(field.AppendShaderName(nil))
		for i := range pos {
			diff := math32.Abs(distGPU[i] - distCPU[i])
			if diff > 1e-3*max(1, math32.Abs(distCPU[i])) {
				return fmt.Errorf("%s (invocations=%d): pos %v GPU distance %v, CPU distance %v", name, invoc, pos[i], distGPU[i], distCPU[i])
			}
		}
	}
	return nil
}

func testProbeGPU() error {
	var bld gmarch.Builder
	field := bld.NewMandelbulb(8, 100, 4)
	sdf, err := gleval.NewComputeShaderSDF3(field)
	if err != nil {
		return err
	}
	defer sdf.Delete()
	probe := camera.SDFProbe{SDF: sdf}
	p := ms3.Vec{Z: 4}
	got, err := probe.ProbeDistance(p)
	if err != nil {
		return err
	}
	want, _ := field.Distance(p)
	if math32.Abs(got-want) > 1e-3 {
		return fmt.Errorf("GPU probe at %v got %v, want %v", p, got, want)
	}
	return nil
}
