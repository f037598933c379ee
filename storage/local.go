package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrArtifactNotFound is returned when a requested artifact does not exist.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrInvalidPath is returned when a path is invalid or contains path traversal.
	ErrInvalidPath = errors.New("invalid artifact path")
)

// LocalStore implements Store on the local filesystem, rooted at the patrol's
// artifact directory.
type LocalStore struct {
	baseDir string
}

// NewLocal creates a filesystem store rooted at baseDir, creating the
// directory if needed.
func NewLocal(baseDir string) (*LocalStore, error) {
	baseDir = filepath.Clean(baseDir)
	if baseDir == "" || baseDir == "." {
		return nil, fmt.Errorf("%w: base directory cannot be empty", ErrInvalidPath)
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	return &LocalStore{baseDir: baseDir}, nil
}

// Upload stores data from the reader at the specified path.
func (s *LocalStore) Upload(ctx context.Context, path string, reader io.Reader) error {
	fullPath, err := s.join(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		// Remove the partial artifact so a retry starts clean.
		os.Remove(fullPath)
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	return nil
}

// Download retrieves data from the specified path.
func (s *LocalStore) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := s.join(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}

	return file, nil
}

// Delete removes the data at the specified path.
func (s *LocalStore) Delete(ctx context.Context, path string) error {
	fullPath, err := s.join(path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrArtifactNotFound
		}
		return fmt.Errorf("failed to delete artifact: %w", err)
	}

	return nil
}

// Exists checks if data exists at the specified path.
func (s *LocalStore) Exists(ctx context.Context, path string) (bool, error) {
	fullPath, err := s.join(path)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat artifact: %w", err)
	}

	return true, nil
}

// URL returns the filesystem path of the artifact.
func (s *LocalStore) URL(ctx context.Context, path string) (string, error) {
	fullPath, err := s.join(path)
	if err != nil {
		return "", err
	}

	exists, err := s.Exists(ctx, path)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrArtifactNotFound
	}

	return fullPath, nil
}

// join validates the path and anchors it under the base directory. The
// resulting path must stay inside baseDir.
func (s *LocalStore) join(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: path cannot be empty", ErrInvalidPath)
	}

	fullPath := filepath.Join(s.baseDir, filepath.Clean(path))

	relPath, err := filepath.Rel(s.baseDir, fullPath)
	if err != nil || (len(relPath) > 0 && relPath[0] == '.') {
		return "", fmt.Errorf("%w: path traversal detected", ErrInvalidPath)
	}

	return fullPath, nil
}
