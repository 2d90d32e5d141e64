package dataset

import (
	"image"
	"image/jpeg"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// cropFraction is the side of each corner crop relative to the source.
const cropFraction = 0.875

// AugmentStats counts the files Augment wrote.
type AugmentStats struct {
	Inputs      int
	Unaugmented int
	Augmented   int
}

type variant struct {
	suffix string
	apply  func(image.Image) image.Image
}

// variants are the augmented copies written per input, before resizing.
var variants = []variant{
	{"orig", func(img image.Image) image.Image { return img }},
	{"flip", flipHorizontal},
	{"crop_tl", func(img image.Image) image.Image { return cornerCrop(img, 0, 0) }},
	{"crop_tr", func(img image.Image) image.Image { return cornerCrop(img, 1, 0) }},
	{"crop_bl", func(img image.Image) image.Image { return cornerCrop(img, 0, 1) }},
	{"crop_br", func(img image.Image) image.Image { return cornerCrop(img, 1, 1) }},
}

// Augment decodes every jpg under inputDir and writes a scale×scale copy to
// unaugDir plus flipped and corner-cropped scale×scale variants to augDir.
// Outputs are named after the input file, so rerunning overwrites them.
func Augment(inputDir, augDir, unaugDir string, scale int) (AugmentStats, error) {
	var stats AugmentStats
	if scale <= 0 {
		return stats, errors.Errorf("dataset: augment scale must be > 0 (got %d)", scale)
	}
	inputs, err := Find(inputDir, "jpg")
	if err != nil {
		return stats, errors.Wrap(err, "list inputs")
	}
	for _, dir := range []string{augDir, unaugDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return stats, errors.Wrap(err, "create augment dir")
		}
	}
	for _, path := range inputs {
		img, err := decodeImage(path)
		if err != nil {
			return stats, err
		}
		stats.Inputs++
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		if err := writeJPEG(filepath.Join(unaugDir, name+".jpg"), resize(img, scale)); err != nil {
			return stats, err
		}
		stats.Unaugmented++

		for _, v := range variants {
			out := filepath.Join(augDir, name+"_"+v.suffix+".jpg")
			if err := writeJPEG(out, resize(v.apply(img), scale)); err != nil {
				return stats, err
			}
			stats.Augmented++
		}
	}
	log.Printf("augmented inputs=%d unaug=%d aug=%d scale=%d", stats.Inputs, stats.Unaugmented, stats.Augmented, scale)
	return stats, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open image")
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.Wrapf(ErrInvalidImage, "%s: empty image", path)
	}
	return img, nil
}

func resize(img image.Image, scale int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, scale, scale))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func flipHorizontal(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(b.Dx()-1-x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// cornerCrop cuts a cropFraction-sized window from the corner picked by
// (right, bottom), each 0 or 1.
func cornerCrop(img image.Image, right, bottom int) image.Image {
	b := img.Bounds()
	w := max(int(float64(b.Dx())*cropFraction), 1)
	h := max(int(float64(b.Dy())*cropFraction), 1)
	x0 := b.Min.X + right*(b.Dx()-w)
	y0 := b.Min.Y + bottom*(b.Dy()-h)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Copy(dst, image.Point{}, img, image.Rect(x0, y0, x0+w, y0+h), draw.Src, nil)
	return dst
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create augmented image")
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: ingestQuality}); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return errors.Wrap(f.Close(), "close augmented image")
}
