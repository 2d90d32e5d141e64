// Package checkpoint persists named network trees with encoding/gob.
package checkpoint

import (
	"bufio"
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"eyescream-forge/internal/nn"
)

const version = 1

// ErrVersion is returned for checkpoints written by an incompatible version.
var ErrVersion = errors.New("checkpoint: unsupported version")

type file struct {
	Version  int
	Networks map[string]nn.Layer
}

// Encode writes nets to w. Callers shrink networks first to keep cached
// activations out of the stream.
func Encode(w io.Writer, nets map[string]nn.Layer) error {
	if err := gob.NewEncoder(w).Encode(file{Version: version, Networks: nets}); err != nil {
		return errors.Wrap(err, "encode checkpoint")
	}
	return nil
}

// Decode reads networks written by Encode.
func Decode(r io.Reader) (map[string]nn.Layer, error) {
	var f file
	if err := gob.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decode checkpoint")
	}
	if f.Version != version {
		return nil, errors.Wrapf(ErrVersion, "got %d, want %d", f.Version, version)
	}
	return f.Networks, nil
}

// Save shrinks every network and writes them atomically to path.
func Save(path string, nets map[string]nn.Layer) (int64, error) {
	for _, net := range nets {
		nn.Shrink(net)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, errors.Wrap(err, "create checkpoint dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return 0, errors.Wrap(err, "create checkpoint")
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := Encode(bw, nets); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return 0, errors.Wrap(err, "flush checkpoint")
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return 0, errors.Wrap(err, "stat checkpoint")
	}
	if err := tmp.Close(); err != nil {
		return 0, errors.Wrap(err, "close checkpoint")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, errors.Wrap(err, "rename checkpoint")
	}
	return info.Size(), nil
}

// Load reads a checkpoint written by Save.
func Load(path string) (map[string]nn.Layer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open checkpoint")
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}
