package gmarchaux

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"time"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/soypat/geometry/ms2"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
)

// UIConfig configures the interactive window opened by [UI].
type UIConfig struct {
	Width, Height int
	// Context cancels the render loop when done. May be nil.
	Context context.Context
	// GPUProbe runs the adaptive speed probe as a 1x1 compute evaluation instead of on the CPU.
	GPUProbe bool
	// PowerStep is the change of the Mandelbulb exponent per arrow key press.
	PowerStep float32
	// Silent disables logging of frame timings and parameter changes.
	Silent bool
}

// UI opens a window and runs the driver in it until the window is closed or the context is done.
// Clicking the window captures the pointer for mouse-look and Escape releases it.
// Holding the left button without capture drags the view. Up and Down change the Mandelbulb exponent.
func UI(d *Driver, cfg UIConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.New("invalid window size")
	}
	if cfg.PowerStep == 0 {
		cfg.PowerStep = 0.5
	}
	return ui(d, cfg)
}

// RenderConfig configures [RenderPNGFile].
type RenderConfig struct {
	Width, Height int
	// Supersample renders at Supersample times the output resolution and downsamples
	// the result. Values below 2 disable supersampling.
	Supersample int
	// Label is drawn over the top left corner of the image when not empty.
	Label string
	// Elapsed is the time in seconds since start passed to time-driven controllers.
	Elapsed float32
	Silent  bool
}

// RenderPNGFile steps the driver once and renders its state on the CPU to a PNG file with said filename.
func RenderPNGFile(ctx context.Context, filename string, d *Driver, cfg RenderConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.New("invalid image size")
	}
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	img, err := RenderImage(ctx, d, cfg)
	if err != nil {
		return err
	}
	watch := stopwatch()
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = png.Encode(fp, img)
	if err != nil {
		return err
	}
	err = fp.Sync()
	if err != nil {
		return err
	}
	log("wrote", filename, "in", watch())
	return nil
}

// RenderImage steps the driver once and renders its state on the CPU.
func RenderImage(ctx context.Context, d *Driver, cfg RenderConfig) (*image.RGBA, error) {
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	ss := max(cfg.Supersample, 1)
	w, h := cfg.Width*ss, cfg.Height*ss
	err := d.Step(cfg.Elapsed, ms2.Vec{X: float32(w), Y: float32(h)})
	if err != nil {
		return nil, err
	}
	watch := stopwatch()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	err = d.RenderCPU(ctx, img)
	if err != nil {
		return nil, err
	}
	log("rendered", d.Variant(), w, "x", h, "in", watch())
	if ss > 1 {
		dst := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
		img = dst
	}
	if cfg.Label != "" {
		err = DrawLabel(img, cfg.Label, 12)
		if err != nil {
			return nil, fmt.Errorf("drawing label: %w", err)
		}
	}
	return img, nil
}

var labelFont *truetype.Font

// DrawLabel draws text in white over the top left corner of dst with the Go Regular font.
func DrawLabel(dst *image.RGBA, text string, size float64) error {
	if labelFont == nil {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			return err
		}
		labelFont = f
	}
	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(labelFont)
	c.SetFontSize(size)
	c.SetClip(dst.Bounds())
	c.SetDst(dst)
	c.SetSrc(image.NewUniform(color.White))
	pt := freetype.Pt(dst.Rect.Min.X+4, dst.Rect.Min.Y+4+int(c.PointToFixed(size)>>6))
	_, err := c.DrawString(text, pt)
	return err
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
