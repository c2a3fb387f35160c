package glrender

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gmarch/camera"
	"github.com/soypat/gmarch/gleval"
	"golang.org/x/sync/errgroup"
)

type setImage = interface {
	image.Image
	Set(x, y int, c color.Color)
}

// ImageRenderer3 renders raymarched fields to images on the CPU, one ray per pixel.
// Rows are traced in parallel, each pixel is independent of the others.
type ImageRenderer3 struct {
	cfg     MarchConfig
	shade   Shader
	workers int
}

// NewImageRenderer3 returns a renderer that traces with cfg and colors pixels with shade.
// A nil shade uses [ShadeSteps]. workers limits the number of rows traced concurrently,
// zero or negative uses GOMAXPROCS.
func NewImageRenderer3(cfg MarchConfig, shade Shader, workers int) (*ImageRenderer3, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if shade == nil {
		shade = ShadeSteps
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ImageRenderer3{cfg: cfg, shade: shade, workers: workers}, nil
}

// Config returns the march configuration of the renderer.
func (ir *ImageRenderer3) Config() MarchConfig { return ir.cfg }

// Render traces field from the camera pose into img. The image is the viewport:
// its bounds give the resolution and its top row is the top of the view.
// Render returns early with the context error if ctx is cancelled.
func (ir *ImageRenderer3) Render(ctx context.Context, field gleval.Distancer, pose camera.Pose, img setImage) error {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return errors.New("empty image")
	}
	res := ms2.Vec{X: float32(w), Y: float32(h)}
	basis := pose.Basis()
	ro := pose.Position
	rgba, _ := img.(*image.RGBA)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ir.workers)
	for j := 0; j < h; j++ {
		if gctx.Err() != nil {
			break
		}
		j := j // Per-iteration copy; go.mod targets go1.21 loop semantics.
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := 0; i < w; i++ {
				uv := camera.UV(camera.FragCoord(i, j, h), res)
				c := ir.shade(March(field, ro, basis.ViewRay(uv), ir.cfg), ir.cfg)
				if rgba != nil {
					rgba.SetRGBA(bounds.Min.X+i, bounds.Min.Y+j, c)
				} else {
					img.Set(bounds.Min.X+i, bounds.Min.Y+j, c)
				}
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return err
}

// MarchPixel traces the single ray through pixel (i,j) of a w×h viewport. It is the
// per-pixel contract Render applies to every pixel.
func MarchPixel(field gleval.Distancer, pose camera.Pose, i, j, w, h int, cfg MarchConfig) MarchResult {
	res := ms2.Vec{X: float32(w), Y: float32(h)}
	uv := camera.UV(camera.FragCoord(i, j, h), res)
	return March(field, pose.Position, pose.Basis().ViewRay(uv), cfg)
}

// ImageRenderer2 converts planar fields to images. Each row is evaluated in a
// single vectorized [gleval.SDF2.Evaluate] call.
type ImageRenderer2 struct {
	conv    func(float32) color.RGBA
	workers int
}

// NewImageRenderer2 instances a new [ImageRenderer2]. A nil conversion
// maps intensity to grayscale, see [IntensityGray].
func NewImageRenderer2(conversion func(float32) color.RGBA, workers int) *ImageRenderer2 {
	if conversion == nil {
		conversion = IntensityGray
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ImageRenderer2{conv: conversion, workers: workers}
}

// Render evaluates the planar field over the viewport with the given zoom and writes it to img.
// It uses userData as an argument to all [gleval.SDF2.Evaluate] calls which must be safe for concurrent use.
func (ir *ImageRenderer2) Render(ctx context.Context, sdf gleval.SDF2, zoom float32, img setImage, userData any) error {
	if !(zoom > 0) {
		return fmt.Errorf("invalid zoom %v", zoom)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return errors.New("empty image")
	}
	res := ms2.Vec{X: float32(w), Y: float32(h)}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ir.workers)
	for j := 0; j < h; j++ {
		if gctx.Err() != nil {
			break
		}
		j := j // Per-iteration copy; go.mod targets go1.21 loop semantics.
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pos := make([]ms2.Vec, w)
			dist := make([]float32, w)
			for i := range pos {
				pos[i] = camera.PlanarUV(camera.FragCoord(i, j, h), res, zoom)
			}
			err := sdf.Evaluate(pos, dist, userData)
			if err != nil {
				return fmt.Errorf("evaluating row %d: %w", j, err)
			}
			for i, v := range dist {
				img.Set(bounds.Min.X+i, bounds.Min.Y+j, ir.conv(v))
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return err
}
