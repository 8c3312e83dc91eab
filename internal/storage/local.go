package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// Local stores objects below <dir>/<bucket>.
type Local struct {
	root string
}

// NewLocal creates a local bucket.
func NewLocal(dir, bucket string) *Local {
	return &Local{root: filepath.Join(dir, bucket)}
}

// Root is the directory holding the bucket's objects.
func (l *Local) Root() string { return l.root }

func (l *Local) Upload(_ context.Context, objectPath, _ string, body io.Reader, _ int64) error {
	p, err := cleanPath(objectPath)
	if err != nil {
		return err
	}
	dest := filepath.Join(l.root, filepath.FromSlash(p))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, body); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (l *Local) Download(_ context.Context, objectPath string) ([]byte, string, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(filepath.Join(l.root, filepath.FromSlash(p)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(p))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}
