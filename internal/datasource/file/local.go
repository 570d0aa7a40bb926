// Package file implements the local filesystem data source and the input
// manifest reader.
package file

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Local opens a workbook from the local disk.
type Local struct{ path string }

func NewLocal(path string) *Local { return &Local{path: path} }

func (l *Local) Name() string { return l.path }

// Open returns the file for reading. A canceled context short-circuits
// before touching the filesystem; filesystem errors keep their identity
// (errors.Is(err, os.ErrNotExist) holds for a missing path).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.path == "" {
		return nil, fmt.Errorf("open: empty path: %w", os.ErrNotExist)
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	if st, err := f.Stat(); err == nil && st.IsDir() {
		f.Close()
		return nil, fmt.Errorf("open %s: is a directory", l.path)
	}
	return f, nil
}

// ReadManifest reads a list of input locations, one per line. Blank lines
// and lines starting with '#' are skipped; order is preserved.
func ReadManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return out, nil
}
