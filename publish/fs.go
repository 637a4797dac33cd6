package publish

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	common "analysis_report_go/utils"
)

// FS writes artifacts below a local directory.
type FS struct {
	root   string
	prefix string
}

// NewFS returns a filesystem sink rooted at root, creating it if needed.
func NewFS(root, prefix string) (*FS, error) {
	if root == "" {
		return nil, errors.New("publish root required for fs driver")
	}
	if err := common.EnsureDir(root); err != nil {
		return nil, err
	}
	return &FS{root: root, prefix: prefix}, nil
}

func (s *FS) Driver() Driver { return DriverFS }

// Put writes to a temp file in the target directory, then renames it into place.
func (s *FS) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	k, err := cleanKey(joinKey(s.prefix, key))
	if err != nil {
		return "", err
	}
	dest := filepath.Join(s.root, filepath.FromSlash(k))
	if err := common.EnsureDir(filepath.Dir(dest)); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".publish-*")
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, "write artifact")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, "close artifact")
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, "move artifact")
	}
	return dest, nil
}
