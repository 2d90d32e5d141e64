package dataset

import (
	"bytes"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrInvalidImage is returned when uploaded bytes do not decode as an image.
var ErrInvalidImage = errors.New("dataset: invalid image")

const ingestQuality = 95

// Ingest verifies that r holds a decodable image and stores it as
// dir/name.jpg, returning the written path.
func Ingest(r io.Reader, dir, name string) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "read upload")
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", errors.Wrapf(ErrInvalidImage, "%s: %v", name, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return "", errors.Wrapf(ErrInvalidImage, "%s: empty image", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create input dir")
	}
	path := filepath.Join(dir, name+".jpg")
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create image")
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: ingestQuality}); err != nil {
		f.Close()
		return "", errors.Wrap(err, "encode jpeg")
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "close image")
	}
	return path, nil
}
