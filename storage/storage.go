// Package storage persists patrol artifacts: generated reports and per-task
// screenshots. Artifacts land either on the local filesystem next to the
// patrol run or in an S3 bucket shared by a team.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hairizuan-noorazman/phone-patrol/patrol"
)

// Store defines the interface for storing and retrieving patrol artifacts.
type Store interface {
	// Upload stores data from the reader at the specified path.
	Upload(ctx context.Context, path string, reader io.Reader) error

	// Download retrieves data from the specified path.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the data at the specified path.
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the specified path.
	Exists(ctx context.Context, path string) (bool, error)

	// URL returns a reference for accessing the artifact: a filesystem path
	// for local storage, a presigned URL for S3.
	URL(ctx context.Context, path string) (string, error)
}

// New creates a Store from the patrol's storage options. baseDir is the
// artifact directory (report or screenshot dir): the root directory for local
// storage, the key prefix for S3.
func New(opts patrol.StorageOptions, baseDir string) (Store, error) {
	switch strings.ToLower(opts.Type) {
	case "", "local":
		return NewLocal(baseDir)

	case "s3":
		if opts.S3Bucket == "" {
			return nil, fmt.Errorf("s3_bucket is required for s3 storage")
		}
		if opts.S3Region == "" {
			return nil, fmt.Errorf("s3_region is required for s3 storage")
		}
		return NewS3(opts.S3Bucket, opts.S3Region, baseDir)

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", opts.Type)
	}
}
