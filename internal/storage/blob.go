// Package storage provides the two narrow persistence contracts the
// pipeline hands its artifacts to: a blob store for panel/video bytes and a
// record store for scene and storyboard rows.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore persists opaque bytes and resolves them back by URL.
type BlobStore interface {
	Put(ctx context.Context, data []byte, mimeType string) (string, error)
	Get(ctx context.Context, url string) ([]byte, error)
}

// FileStore persists blobs onto the local filesystem and serves them under a
// public base URL. It is intended for development and test environments
// where an object storage service is not available. Get also resolves
// foreign http(s) URLs so reference images hosted elsewhere flow through the
// same interface.
type FileStore struct {
	basePath   string
	baseURL    string
	httpClient *http.Client
}

// NewFileStore initializes a FileStore rooted at basePath; stored blobs are
// addressable under baseURL.
func NewFileStore(basePath, baseURL string, httpClient *http.Client) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &FileStore{
		basePath:   basePath,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Put writes the blob under a fresh key derived from its MIME type and
// returns its public URL.
func (s *FileStore) Put(ctx context.Context, data []byte, mimeType string) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("storage: empty blob")
	}

	key := fmt.Sprintf("%s/%s%s", keyPrefix(mimeType), uuid.NewString(), extensionFor(mimeType))
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write blob: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

// Get resolves a URL back to bytes: locally for URLs under the store's base
// URL, over HTTP for anything else.
func (s *FileStore) Get(ctx context.Context, url string) ([]byte, error) {
	if s == nil {
		return nil, errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if key, ok := strings.CutPrefix(url, s.baseURL+"/"); ok {
		clean, err := sanitizeKey(key)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(s.basePath, filepath.FromSlash(clean)))
		if err != nil {
			return nil, fmt.Errorf("storage: read blob: %w", err)
		}
		return data, nil
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("storage: unresolvable url %q", url)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: fetch blob: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("storage: fetch blob status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func keyPrefix(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "panels"
	case strings.HasPrefix(mimeType, "video/"):
		return "videos"
	default:
		return "blobs"
	}
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	default:
		return ""
	}
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}

var _ BlobStore = (*FileStore)(nil)
