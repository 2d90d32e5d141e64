// Package dataset loads image directories into tensor batches.
package dataset

import (
	"log"
	"math/rand/v2"
	"sort"

	"github.com/pkg/errors"

	"eyescream-forge/internal/tensor"
)

// Options configures a Loader.
type Options struct {
	Dirs      []string
	Extension string // with or without the leading dot, case-insensitive
	Scale     int    // output side length
	Channels  int    // 1 (luminance) or 3 (RGB)
	Seed      uint64
}

// Loader decodes images under the configured directories. The path list used
// for random sampling is scanned once and cached until Configure or
// ClearCache. A Loader is not safe for concurrent use.
type Loader struct {
	opts  Options
	rng   *rand.Rand
	paths []string
}

// NewLoader returns a loader configured with opts.
func NewLoader(opts Options) *Loader {
	l := &Loader{}
	l.Configure(opts)
	return l
}

// Configure replaces the options and drops the path cache. Values are
// checked by the next load.
func (l *Loader) Configure(opts Options) {
	opts.Dirs = append([]string(nil), opts.Dirs...)
	l.opts = opts
	l.rng = rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	l.paths = nil
}

// Options returns the current configuration.
func (l *Loader) Options() Options { return l.opts }

// ClearCache forgets the scanned path list.
func (l *Loader) ClearCache() { l.paths = nil }

// LoadRange decodes files [start, start+count) of the sorted path list,
// clamped to what exists.
func (l *Loader) LoadRange(start, count int) (*tensor.Batch, error) {
	if start < 0 || count < 0 {
		return nil, errors.Errorf("dataset: invalid range start=%d count=%d", start, count)
	}
	paths, err := l.ScanPaths()
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	start = min(start, len(paths))
	end := start + min(count, len(paths)-start)
	return l.decodeAll(paths[start:end])
}

// LoadRandom decodes min(count, available) files drawn without replacement.
func (l *Loader) LoadRandom(count int) (*tensor.Batch, error) {
	if count < 0 {
		return nil, errors.Errorf("dataset: invalid count %d", count)
	}
	if l.paths == nil {
		paths, err := l.ScanPaths()
		if err != nil {
			return nil, err
		}
		l.paths = paths
		log.Printf("dataset cached paths=%d dirs=%d", len(paths), len(l.opts.Dirs))
	}
	perm := l.rng.Perm(len(l.paths))
	n := min(count, len(perm))
	picked := make([]string, n)
	for i := range picked {
		picked[i] = l.paths[perm[i]]
	}
	return l.decodeAll(picked)
}

func (l *Loader) decodeAll(paths []string) (*tensor.Batch, error) {
	if len(paths) == 0 {
		return tensor.EmptyBatch(l.opts.Channels, l.opts.Scale, l.opts.Scale), nil
	}
	images := make([]*tensor.Tensor, len(paths))
	for i, path := range paths {
		img, err := decodeFile(path, l.opts.Scale, l.opts.Channels)
		if err != nil {
			return nil, err
		}
		images[i] = img
	}
	return tensor.BatchOf(images)
}
