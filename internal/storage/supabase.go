package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Supabase talks to the Supabase Storage REST API with the service role key.
type Supabase struct {
	baseURL string
	key     string
	bucket  string
	client  *http.Client
}

// NewSupabase creates a Supabase bucket client.
func NewSupabase(baseURL, key, bucket string, timeout time.Duration) *Supabase {
	return &Supabase{
		baseURL: baseURL,
		key:     key,
		bucket:  bucket,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *Supabase) objectURL(p string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, p)
}

func (s *Supabase) Upload(ctx context.Context, objectPath, contentType string, body io.Reader, size int64) error {
	p, err := cleanPath(objectPath)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(p), body)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")
	if size > 0 {
		req.ContentLength = size
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", p, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload %s: status %d: %s", p, resp.StatusCode, string(msg))
	}
	return nil
}

func (s *Supabase) Download(ctx context.Context, objectPath string) ([]byte, string, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(p), nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.key)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", p, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		return nil, "", ErrNotFound
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("download %s: status %d: %s", p, resp.StatusCode, string(msg))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", p, err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}
