// Package storage keeps enrollment documents in a bucket, either on the
// local disk or in Supabase Storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/associacao-ensino/inscricoes-backend/internal/config"
)

// Sentinel errors.
var (
	ErrInvalidPath = errors.New("invalid object path")
	ErrNotFound    = errors.New("object not found")
)

// Bucket stores objects under bucket-relative paths.
type Bucket interface {
	Upload(ctx context.Context, objectPath, contentType string, body io.Reader, size int64) error
	Download(ctx context.Context, objectPath string) ([]byte, string, error)
}

// New returns the bucket selected by cfg.StorageDriver.
func New(cfg *config.Config) (Bucket, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverLocal, "":
		return NewLocal(cfg.UploadDir, cfg.StorageBucket), nil
	case config.StorageDriverSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, errors.New("supabase storage requires SUPABASE_PROJECT_URL and SUPABASE_SERVICE_ROLE_KEY")
		}
		return NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.StorageBucket, cfg.StorageTimeout), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

// cleanPath normalises an object path and rejects paths escaping the bucket.
func cleanPath(p string) (string, error) {
	if p == "" {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidPath
	}
	if cleaned != strings.TrimPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
