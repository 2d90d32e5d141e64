package dataset

import (
	"bufio"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"eyescream-forge/internal/tensor"
)

// decodeFile loads path as a channels×scale×scale tensor with values in [0,1].
func decodeFile(path string, scale, channels int) (*tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open image")
	}
	defer f.Close()

	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return toTensor(img, scale, channels)
}

// toTensor rescales img to a scale×scale square and converts it to planar
// channels. One channel is luminance.
func toTensor(img image.Image, scale, channels int) (*tensor.Tensor, error) {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, errors.New("empty image")
	}
	dst := image.NewRGBA(image.Rect(0, 0, scale, scale))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)

	plane := scale * scale
	data := make([]float64, channels*plane)
	for y := 0; y < scale; y++ {
		for x := 0; x < scale; x++ {
			px := dst.RGBAAt(x, y)
			r, g, b := float64(px.R)/255, float64(px.G)/255, float64(px.B)/255
			i := y*scale + x
			if channels == 1 {
				data[i] = math.Min(1, 0.299*r+0.587*g+0.114*b)
				continue
			}
			data[i] = r
			data[plane+i] = g
			data[2*plane+i] = b
		}
	}
	return tensor.FromSlice(data, channels, scale, scale)
}
