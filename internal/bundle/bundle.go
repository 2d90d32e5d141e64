// Package bundle packs a checkpoint and the augmented training images into a
// single tar archive, and restores such an archive into working directories.
package bundle

import (
	"archive/tar"
	"bufio"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"eyescream-forge/internal/dataset"
)

const (
	networkPrefix = "network/"
	imagesPrefix  = "images/"
)

// ErrDuplicateName is returned when two images would restore to the same file.
var ErrDuplicateName = errors.New("bundle: duplicate image name")

// Stats counts what was written or restored.
type Stats struct {
	Networks int
	Images   int
	Bytes    int64
}

// Write archives checkpointPath (if non-empty) and every *.ext file under
// imageDir into w. Images are stored by base name; two images with the same
// name in different subdirectories fail with ErrDuplicateName.
func Write(w io.Writer, checkpointPath, imageDir, ext string) (Stats, error) {
	var stats Stats
	tw := tar.NewWriter(w)
	if checkpointPath != "" {
		n, err := addFile(tw, networkPrefix+filepath.Base(checkpointPath), checkpointPath)
		if err != nil {
			return stats, err
		}
		stats.Networks++
		stats.Bytes += n
	}
	if imageDir != "" {
		images, err := dataset.Find(imageDir, ext)
		if err != nil {
			return stats, errors.Wrap(err, "list images")
		}
		// entries are flattened on restore, so names must be unique
		seen := make(map[string]string, len(images))
		for _, p := range images {
			base := filepath.Base(p)
			if prev, dup := seen[base]; dup {
				return stats, errors.Wrapf(ErrDuplicateName, "%s and %s", prev, p)
			}
			seen[base] = p
			n, err := addFile(tw, imagesPrefix+base, p)
			if err != nil {
				return stats, err
			}
			stats.Images++
			stats.Bytes += n
		}
	}
	if err := tw.Close(); err != nil {
		return stats, errors.Wrap(err, "close tar")
	}
	return stats, nil
}

func addFile(tw *tar.Writer, name, src string) (int64, error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, errors.Wrap(err, "open bundle entry")
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "stat bundle entry")
	}
	hdr := &tar.Header{Name: name, Size: info.Size(), Mode: 0o644, ModTime: info.ModTime()}
	if err := tw.WriteHeader(hdr); err != nil {
		return 0, errors.Wrapf(err, "write header %s", name)
	}
	n, err := io.Copy(tw, f)
	if err != nil {
		return n, errors.Wrapf(err, "write %s", name)
	}
	return n, nil
}

// Restore extracts network entries into networkDir and image entries into
// imageDir. Entries outside those two prefixes are ignored. It returns the
// restored checkpoint paths.
func Restore(ctx context.Context, r io.Reader, networkDir, imageDir string) ([]string, Stats, error) {
	var stats Stats
	var networks []string
	tr := tar.NewReader(bufio.NewReader(r))
	for {
		select {
		case <-ctx.Done():
			return networks, stats, ctx.Err()
		default:
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return networks, stats, errors.Wrap(err, "read tar")
		}
		if hdr.FileInfo().IsDir() {
			continue
		}

		var dir string
		switch {
		case strings.HasPrefix(hdr.Name, networkPrefix):
			dir = networkDir
		case strings.HasPrefix(hdr.Name, imagesPrefix):
			dir = imageDir
		default:
			continue
		}
		// entries are flattened to their base name so archives cannot escape dir
		base := path.Base(hdr.Name)
		if base == "." || base == "/" || base == ".." {
			continue
		}
		dst := filepath.Join(dir, base)
		n, err := extract(tr, dst)
		if err != nil {
			return networks, stats, err
		}
		stats.Bytes += n
		if dir == networkDir {
			stats.Networks++
			networks = append(networks, dst)
		} else {
			stats.Images++
		}
	}
	return networks, stats, nil
}

func extract(r io.Reader, dst string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, errors.Wrap(err, "create restore dir")
	}
	f, err := os.Create(dst)
	if err != nil {
		return 0, errors.Wrap(err, "create restored file")
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		return n, errors.Wrapf(err, "restore %s", dst)
	}
	return n, errors.Wrap(f.Close(), "close restored file")
}
