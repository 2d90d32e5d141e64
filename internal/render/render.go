// Package render writes generated samples and score distributions to disk.
package render

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"eyescream-forge/internal/tensor"
)

const gridPad = 2

// GridImage tiles C×H×W images (C is 1 or 3, values in [0,1]) into rows of
// cols images.
func GridImage(images []*tensor.Tensor, cols int) (*image.NRGBA, error) {
	if len(images) == 0 {
		return nil, errors.New("render: no images")
	}
	if cols <= 0 {
		cols = int(math.Ceil(math.Sqrt(float64(len(images)))))
	}
	shape := images[0].Shape()
	if len(shape) != 3 || (shape[0] != 1 && shape[0] != 3) {
		return nil, errors.Errorf("render: want 1×H×W or 3×H×W images, got %v", shape)
	}
	c, h, w := shape[0], shape[1], shape[2]
	rows := (len(images) + cols - 1) / cols
	grid := image.NewNRGBA(image.Rect(0, 0, cols*(w+gridPad)+gridPad, rows*(h+gridPad)+gridPad))
	for i, img := range images {
		if got := img.Shape(); len(got) != 3 || got[0] != c || got[1] != h || got[2] != w {
			return nil, errors.Errorf("render: image %d has shape %v, want %v", i, got, shape)
		}
		ox := gridPad + (i%cols)*(w+gridPad)
		oy := gridPad + (i/cols)*(h+gridPad)
		data := img.Data()
		plane := h * w
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				p := y*w + x
				r := toByte(data[p])
				g, b := r, r
				if c == 3 {
					g, b = toByte(data[plane+p]), toByte(data[2*plane+p])
				}
				grid.SetNRGBA(ox+x, oy+y, color.NRGBA{R: r, G: g, B: b, A: 255})
			}
		}
	}
	return grid, nil
}

func toByte(v float64) uint8 {
	return uint8(math.Round(255 * math.Max(0, math.Min(1, v))))
}

// Grid writes GridImage to a PNG file.
func Grid(path string, images []*tensor.Tensor, cols int) error {
	img, err := GridImage(images, cols)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create grid")
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrap(err, "encode grid")
	}
	return errors.Wrap(f.Close(), "close grid")
}

// Histogram plots discriminator scores for real and generated images.
func Histogram(path string, realScores, fakeScores []float64, bins int) error {
	p := plot.New()
	p.Title.Text = "discriminator scores"
	p.X.Label.Text = "score"
	p.Y.Label.Text = "images"
	p.X.Min, p.X.Max = 0, 1

	for i, series := range []struct {
		name   string
		scores []float64
	}{{"real", realScores}, {"generated", fakeScores}} {
		if len(series.scores) == 0 {
			continue
		}
		h, err := plotter.NewHist(plotter.Values(series.scores), bins)
		if err != nil {
			return errors.Wrapf(err, "histogram %s", series.name)
		}
		h.FillColor = plotPalette[i]
		p.Add(h)
		p.Legend.Add(series.name, h)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrap(err, "save histogram")
	}
	return nil
}

var plotPalette = []color.Color{
	color.NRGBA{R: 60, G: 120, B: 200, A: 160},
	color.NRGBA{R: 220, G: 90, B: 60, A: 160},
}
