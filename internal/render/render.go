// Package render rasterizes drawn shapes into a 2D slice image.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"runtime"

	starctx "github.com/leapstack-labs/fidgetstar/internal/starlark"
	"github.com/leapstack-labs/fidgetstar/pkg/tree"
	"golang.org/x/sync/errgroup"
)

// Options controls the sampled region and output size.
type Options struct {
	Width  int
	Height int
	// Extent is the half-width of the square sampled around the origin.
	Extent float64
	// Z is the slice plane.
	Z float64
}

// DefaultOptions returns a 512x512 image of [-1.5, 1.5]^2 at z = 0.
func DefaultOptions() Options {
	return Options{Width: 512, Height: 512, Extent: 1.5}
}

func (o Options) validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", o.Width, o.Height)
	}
	if !(o.Extent > 0) || math.IsInf(o.Extent, 1) {
		return errors.New("extent must be positive and finite")
	}
	if math.IsNaN(o.Z) || math.IsInf(o.Z, 0) {
		return errors.New("z must be finite")
	}
	return nil
}

// Pixel returns the model-space coordinates of the centre of pixel (px,
// py). The y axis points up.
func (o Options) Pixel(px, py int) (x, y float64) {
	scale := 2 * o.Extent / float64(max(o.Width, o.Height))
	x = (float64(px) + 0.5 - float64(o.Width)/2) * scale
	y = (float64(o.Height)/2 - float64(py) - 0.5) * scale
	return x, y
}

// Render samples every pixel centre. A shape covers a pixel where its
// value is negative; later shapes paint over earlier ones on a black
// background.
func Render(ctx context.Context, shapes []starctx.DrawShape, opts Options) (*image.RGBA, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	tapes := make([]*tree.Tape, len(shapes))
	colors := make([]color.RGBA, len(shapes))
	for i, s := range shapes {
		tapes[i] = tree.Compile(s.Tree)
		colors[i] = color.RGBA{R: s.Color.R, G: s.Color.G, B: s.Color.B, A: 255}
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	background := color.RGBA{A: 255}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for py := 0; py < opts.Height; py++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for px := 0; px < opts.Width; px++ {
				x, y := opts.Pixel(px, py)
				c := background
				for i := len(tapes) - 1; i >= 0; i-- {
					if tapes[i].Eval(x, y, opts.Z) < 0 {
						c = colors[i]
						break
					}
				}
				img.SetRGBA(px, py, c)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return img, nil
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
