// Package publish copies finished report artifacts to their destination.
package publish

import (
	"context"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Driver names a sink implementation.
type Driver string

const (
	DriverNone Driver = "none"
	DriverFS   Driver = "fs"
	DriverS3   Driver = "s3"
)

// Sink stores one artifact under key and returns where it ended up.
type Sink interface {
	Driver() Driver
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// Config selects and configures a sink.
type Config struct {
	Driver    Driver
	Root      string
	Bucket    string
	Region    string
	Endpoint  string
	Prefix    string
	PathStyle bool
}

// Open builds the configured sink. DriverNone (or empty) returns a nil Sink.
func Open(ctx context.Context, cfg Config) (Sink, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return nil, nil
	case DriverFS:
		return NewFS(cfg.Root, cfg.Prefix)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			Prefix:    cfg.Prefix,
			PathStyle: cfg.PathStyle,
		})
	}
	return nil, errors.Errorf("unknown publish driver %q", cfg.Driver)
}

// Files publishes each local file under its base name. A nil sink is a no-op.
func Files(ctx context.Context, sink Sink, paths ...string) ([]string, error) {
	if sink == nil {
		return nil, nil
	}
	var out []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		loc, err := putFile(ctx, sink, p)
		if err != nil {
			return out, err
		}
		out = append(out, loc)
	}
	return out, nil
}

func putFile(ctx context.Context, sink Sink, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open artifact")
	}
	defer f.Close()
	name := filepath.Base(path)
	loc, err := sink.Put(ctx, name, f, mime.TypeByExtension(filepath.Ext(name)))
	if err != nil {
		return "", errors.Wrapf(err, "publish %s to %s", name, sink.Driver())
	}
	return loc, nil
}

func joinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// cleanKey rejects keys that would escape the sink root.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", errors.Errorf("absolute key %q", key)
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.Errorf("key %q escapes root", key)
	}
	return clean, nil
}
