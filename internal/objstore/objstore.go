// Package objstore persists finished artifacts into Supabase storage over
// the storage HTTP API, using the service key.
package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const requestTimeout = 2 * time.Minute

type Store struct {
	baseURL string
	apiKey  string
	bucket  string
	http    *http.Client
}

func New(baseURL, apiKey, bucket string) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		bucket:  bucket,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// Upload writes data under path in the store's bucket and returns the public
// URL of the stored object. An existing object at the same path is
// overwritten.
func (s *Store) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, strings.TrimPrefix(path, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("x-upsert", "true")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage upload %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("storage upload %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(rb)))
	}
	return s.PublicURL(path), nil
}

// PublicURL returns the public object URL for a path in the store's bucket.
func (s *Store) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, strings.TrimPrefix(path, "/"))
}
