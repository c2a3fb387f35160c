package glrender

import (
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms1"
)

// Shader converts a march result to a pixel color.
type Shader func(res MarchResult, cfg MarchConfig) color.RGBA

// ShadeSteps shades hits in gray proportional to the field's inner iteration
// count of the last sample, clamped to [0.2,1]. Misses are black.
func ShadeSteps(res MarchResult, cfg MarchConfig) color.RGBA {
	if res.Depth >= cfg.MaxDist {
		return color.RGBA{A: 255}
	}
	g := uint8(ms1.Clamp(float32(res.FieldSteps)/20, 0.2, 1) * math.MaxUint8)
	return color.RGBA{R: g, G: g, B: g, A: 255}
}

// ShadeDepth blends from black to blue by inverse travelled depth so nearby surfaces are brightest.
func ShadeDepth(res MarchResult, cfg MarchConfig) color.RGBA {
	shade := ms1.Clamp(1/(res.Depth+1), 0, 1)
	return color.RGBA{B: uint8(shade * math.MaxUint8), A: 255}
}

// IntensityGray maps a planar field intensity in [0,1] to grayscale.
func IntensityGray(v float32) color.RGBA {
	g := uint8(ms1.Clamp(v, 0, 1) * math.MaxUint8)
	return color.RGBA{R: g, G: g, B: g, A: 255}
}

// IntensityGradient returns a planar field color map that interpolates from c0 at
// intensity 0 to c1 at intensity 1 through HSV space.
// A great portion of the HSV logic is taken from Esme Lamb's (@dedelala)
// color manipulation work presented at Gophercon AU 2024.
// https://github.com/dedelala/disco/tree/main/color
func IntensityGradient(c0, c1 color.Color) func(float32) color.RGBA {
	h0, s0, v0 := colorToHSV(c0)
	h1, s1, v1 := colorToHSV(c1)
	return func(t float32) color.RGBA {
		t = ms1.Clamp(t, 0, 1)
		h, s, v := interpHSV(h0, s0, v0, h1, s1, v1, t)
		r, g, b := hsvToRGB(h, s, v)
		return color.RGBA{
			R: uint8(ms1.Clamp(r, 0, 1) * math.MaxUint8),
			G: uint8(ms1.Clamp(g, 0, 1) * math.MaxUint8),
			B: uint8(ms1.Clamp(b, 0, 1) * math.MaxUint8),
			A: 255,
		}
	}
}

func interpHSV(h0, s0, v0, h1, s1, v1, t float32) (h, s, v float32) {
	switch {
	case h1-h0 > 0.5:
		h0 += 1.0
	case h1-h0 < -0.5:
		h1 += 1.0
	}
	h = ms1.Interp(h0, h1, t)
	if h > 1 {
		h -= 1
	}
	s = ms1.Interp(s0, s1, t)
	v = ms1.Interp(v0, v1, t)
	return h, s, v
}

func colorToHSV(c color.Color) (h, s, v float32) {
	r0, g0, b0, _ := c.RGBA()
	return rgbToHSV(float32(r0>>8)/math.MaxUint8, float32(g0>>8)/math.MaxUint8, float32(b0>>8)/math.MaxUint8)
}

// hsvToRGB converts hue, saturation and brightness values on the range of 0.0
// to 1.0 to RGB floating point values on the range of 0.0 to 1.0
func hsvToRGB(h, s, v float32) (r, g, b float32) {
	var (
		c = s * v
		x = c * (1 - math.Abs(math.Mod(h*6, 2)-1))
		m = v - c
	)
	switch {
	case h <= 1.0/6:
		r, g, b = c, x, 0
	case h <= 2.0/6:
		r, g, b = x, c, 0
	case h <= 3.0/6:
		r, g, b = 0, c, x
	case h <= 4.0/6:
		r, g, b = 0, x, c
	case h <= 5.0/6:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

// rgbToHSV converts red, green, and blue floating point values on the range
// 0.0 to 1.0 to hue, saturation and brightness values on the range 0.0 to 1.0
func rgbToHSV(r, g, b float32) (h, s, v float32) {
	var (
		xmax = max(r, g, b)
		xmin = min(r, g, b)
		c    = xmax - xmin
	)
	v = xmax
	switch {
	case c == 0:
		h = 0
	case v == r:
		h = (g - b) / (c * 6)
	case v == g:
		h = 1.0/3 + (b-r)/(c*6)
	case v == b:
		h = 2.0/3 + (r-g)/(c*6)
	}
	if h < 0 {
		h += 1
	}
	if xmax > 0 {
		s = c / xmax
	}
	return h, s, v
}
