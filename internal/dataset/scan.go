package dataset

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ConfigurationError reports a configured directory that yields no images.
type ConfigurationError struct {
	Dir       string
	Extension string
	Err       error
}

// Error names the directory and extension that matched nothing.
func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("dataset: no *.%s files under %q", e.Extension, e.Dir)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying walk or validation error, if any.
func (e *ConfigurationError) Unwrap() error { return e.Err }

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ScanPaths walks every configured directory recursively and returns the
// files whose extension matches, directory by directory in walk order.
func (l *Loader) ScanPaths() ([]string, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	ext := "." + normalizeExt(l.opts.Extension)
	var paths []string
	for _, dir := range l.opts.Dirs {
		found, err := scanDir(dir, ext)
		if err != nil {
			return nil, &ConfigurationError{Dir: dir, Extension: normalizeExt(l.opts.Extension), Err: err}
		}
		if len(found) == 0 {
			return nil, &ConfigurationError{Dir: dir, Extension: normalizeExt(l.opts.Extension)}
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

func scanDir(root, ext string) ([]string, error) {
	var entries []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(d.Name())) == ext {
			entries = append(entries, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return entries, nil
}

func (l *Loader) validate() error {
	o := l.opts
	bad := func(format string, args ...any) error {
		return &ConfigurationError{Extension: normalizeExt(o.Extension), Err: errors.Errorf(format, args...)}
	}
	switch {
	case len(o.Dirs) == 0:
		return bad("no directories configured")
	case normalizeExt(o.Extension) == "":
		return bad("no extension configured")
	case o.Scale <= 0:
		return bad("scale must be > 0 (got %d)", o.Scale)
	case o.Channels != 1 && o.Channels != 3:
		return bad("channels must be 1 or 3 (got %d)", o.Channels)
	}
	return nil
}

// Find lists files under dir with the given extension in walk order.
func Find(dir, ext string) ([]string, error) {
	return scanDir(dir, "."+normalizeExt(ext))
}
