// Common package contains commonly used functions that benefit multiple tools
// Exporting these functions from the Common package reduces redundant code
package common

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
)

// gzip magic bytes
const (
	gzipID1 = 0x1F
	gzipID2 = 0x8B
)

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenInput opens a plain or gzip-compressed file. Compression is detected from
// the magic bytes rather than the extension, so a mislabelled file still reads.
// The caller must Close the returned reader.
func OpenInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == gzipID1 && magic[1] == gzipID2 {
		gr, err := pgzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "failed to open gzip reader for %s", path)
		}
		return &multiCloser{Reader: gr, closers: []io.Closer{gr, f}}, nil
	}
	return &multiCloser{Reader: br, closers: []io.Closer{f}}, nil
}

// ReadInput reads a whole plain or gzip-compressed file into memory.
func ReadInput(path string) ([]byte, error) {
	r, err := OpenInput(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return data, nil
}

type LineHandler func(lineNo int, line string) error

// StreamLines calls handler for each line of a plain or gzip-compressed file.
// Trailing whitespace is trimmed; handler errors stop the scan.
func StreamLines(path string, handler LineHandler) error {
	r, err := OpenInput(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return ScanLines(r, path, handler)
}

// ScanLines is StreamLines over an already open reader; name labels errors.
func ScanLines(r io.Reader, name string, handler LineHandler) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024) // VCF INFO columns can be long

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if err := handler(lineNo, line); err != nil {
			return errors.Wrapf(err, "handler error (%s:%d)", name, lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scanner error (%s)", name)
	}
	return nil
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}
	return nil
}
