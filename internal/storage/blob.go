package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore stores document artifacts by path.
type BlobStore interface {
	Upload(ctx context.Context, path string, content []byte) error
	Download(ctx context.Context, path string) ([]byte, error)
}

// LocalBlobStore implements BlobStore on the local filesystem.
type LocalBlobStore struct {
	BaseDir string
}

// NewLocalBlobStore creates a filesystem-backed blob store rooted at baseDir.
func NewLocalBlobStore(baseDir string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &LocalBlobStore{BaseDir: baseDir}, nil
}

func (s *LocalBlobStore) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob path %q", path)
	}
	return filepath.Join(s.BaseDir, clean), nil
}

func (s *LocalBlobStore) Upload(_ context.Context, path string, content []byte) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

func (s *LocalBlobStore) Download(_ context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return content, nil
}
