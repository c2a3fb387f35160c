//go:build !tinygo && cgo

package gleval

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/gmarch/glbuild"
)

// Init1x1GLFW starts a 1x1 sized GLFW so that user can start working with GPU.
// It returns a termination function that should be called when user is done running loads on GPU.
func Init1x1GLFW() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "compute",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// NewComputeGPUSDF3 instantiates a [SDF3] that runs on the GPU from glgl combined source code.
func NewComputeGPUSDF3(glglSourceCode io.Reader, bb ms3.Box) (*SDF3Compute, error) {
	combinedSource, err := glgl.ParseCombined(glglSourceCode)
	if err != nil {
		return nil, err
	}
	glprog, err := glgl.CompileProgram(combinedSource)
	if err != nil {
		return nil, errors.New(string(combinedSource.Compute) + "\n" + err.Error())
	}
	sdf := SDF3Compute{
		prog: glprog,
		bb:   bb,
	}
	return &sdf, nil
}

// NewComputeShaderSDF3 generates the compute program for s and compiles it.
// A GL context must be current on the calling goroutine.
func NewComputeShaderSDF3(s glbuild.Shader3D) (*SDF3Compute, error) {
	var source bytes.Buffer
	programmer := glbuild.NewDefaultProgrammer()
	_, err := programmer.WriteComputeSDF3(&source, s)
	if err != nil {
		return nil, fmt.Errorf("generating compute program: %w", err)
	}
	return NewComputeGPUSDF3(&source, s.Bounds())
}

// SDF3Compute evaluates a distance field with a GPU compute program.
type SDF3Compute struct {
	prog glgl.Program
	bb   ms3.Box
}

func (sdf *SDF3Compute) Bounds() ms3.Box {
	return sdf.bb
}

// Delete releases the GPU program.
func (sdf *SDF3Compute) Delete() {
	sdf.prog.Delete()
}

func (sdf *SDF3Compute) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	sdf.prog.Bind()
	defer sdf.prog.Unbind()
	posCfg := glgl.TextureImgConfig{
		Type:           glgl.Texture2D,
		Width:          len(pos),
		Height:         1,
		Access:         glgl.ReadOnly,
		Format:         gl.RGB,
		MinFilter:      gl.NEAREST,
		MagFilter:      gl.NEAREST,
		Xtype:          gl.FLOAT,
		InternalFormat: gl.RGBA32F,
		ImageUnit:      0,
	}
	posTex, err := glgl.NewTextureFromImage(posCfg, pos)
	if err != nil {
		return err
	}
	defer posTex.Delete()
	distCfg := glgl.TextureImgConfig{
		Type:           glgl.Texture2D,
		Width:          len(dist),
		Height:         1,
		Access:         glgl.WriteOnly,
		Format:         gl.RED,
		MinFilter:      gl.NEAREST,
		MagFilter:      gl.NEAREST,
		Xtype:          gl.FLOAT,
		InternalFormat: gl.R32F,
		ImageUnit:      1,
	}
	distTex, err := glgl.NewTextureFromImage(distCfg, dist)
	if err != nil {
		return err
	}
	defer distTex.Delete()
	err = sdf.prog.RunCompute(len(dist), 1, 1)
	if err != nil {
		return err
	}
	return glgl.GetImage(dist, distTex, distCfg)
}
