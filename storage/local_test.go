package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hairizuan-noorazman/phone-patrol/patrol"
)

func TestNewLocal(t *testing.T) {
	tests := []struct {
		name      string
		baseDir   string
		wantError bool
	}{
		{
			name:      "valid base directory",
			baseDir:   t.TempDir(),
			wantError: false,
		},
		{
			name:      "creates non-existent directory",
			baseDir:   filepath.Join(t.TempDir(), "patrol_reports"),
			wantError: false,
		},
		{
			name:      "empty base directory",
			baseDir:   "",
			wantError: true,
		},
		{
			name:      "dot as base directory",
			baseDir:   ".",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewLocal(tt.baseDir)
			if tt.wantError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store == nil {
				t.Fatal("expected store but got nil")
			}
		})
	}
}

func TestLocalStore_Upload(t *testing.T) {
	ctx := context.Background()
	baseDir := t.TempDir()
	store, err := NewLocal(baseDir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	tests := []struct {
		name      string
		path      string
		content   string
		wantError bool
	}{
		{
			name:      "upload report",
			path:      "patrol_report_20240101_120000.md",
			content:   "# Patrol Report",
			wantError: false,
		},
		{
			name:      "upload screenshot in run subdirectory",
			path:      "smoke/20240101_120000/open_wechat.png",
			content:   "fake png bytes",
			wantError: false,
		},
		{
			name:      "empty path",
			path:      "",
			content:   "content",
			wantError: true,
		},
		{
			name:      "path traversal attempt",
			path:      "../outside.md",
			content:   "content",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Upload(ctx, tt.path, strings.NewReader(tt.content))
			if tt.wantError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			written, err := os.ReadFile(filepath.Join(baseDir, tt.path))
			if err != nil {
				t.Fatalf("failed to read uploaded artifact: %v", err)
			}
			if string(written) != tt.content {
				t.Errorf("content mismatch: got %q, want %q", written, tt.content)
			}
		})
	}
}

func TestLocalStore_DownloadAndDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	content := []byte(`{"patrol_name":"smoke"}`)
	if err := store.Upload(ctx, "report.json", bytes.NewReader(content)); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	rc, err := store.Download(ctx, "report.json")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("failed to read download: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("content mismatch: got %q, want %q", got, content)
	}

	if err := store.Delete(ctx, "report.json"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := store.Download(ctx, "report.json"); err != ErrArtifactNotFound {
		t.Errorf("expected ErrArtifactNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "report.json"); err != ErrArtifactNotFound {
		t.Errorf("expected ErrArtifactNotFound on double delete, got %v", err)
	}
}

func TestLocalStore_ExistsAndURL(t *testing.T) {
	ctx := context.Background()
	baseDir := t.TempDir()
	store, err := NewLocal(baseDir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	exists, err := store.Exists(ctx, "missing.md")
	if err != nil {
		t.Fatalf("exists check failed: %v", err)
	}
	if exists {
		t.Error("expected missing artifact to not exist")
	}

	if _, err := store.URL(ctx, "missing.md"); err != ErrArtifactNotFound {
		t.Errorf("expected ErrArtifactNotFound, got %v", err)
	}

	if err := store.Upload(ctx, "report.md", strings.NewReader("# report")); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	exists, err = store.Exists(ctx, "report.md")
	if err != nil {
		t.Fatalf("exists check failed: %v", err)
	}
	if !exists {
		t.Error("expected uploaded artifact to exist")
	}

	url, err := store.URL(ctx, "report.md")
	if err != nil {
		t.Fatalf("URL failed: %v", err)
	}
	if url != filepath.Join(baseDir, "report.md") {
		t.Errorf("unexpected URL: %s", url)
	}
}

func TestNew_Factory(t *testing.T) {
	tests := []struct {
		name      string
		opts      patrol.StorageOptions
		wantError bool
	}{
		{
			name: "local by default",
			opts: patrol.StorageOptions{},
		},
		{
			name: "explicit local",
			opts: patrol.StorageOptions{Type: "local"},
		},
		{
			name:      "s3 without bucket",
			opts:      patrol.StorageOptions{Type: "s3", S3Region: "us-east-1"},
			wantError: true,
		},
		{
			name:      "unknown type",
			opts:      patrol.StorageOptions{Type: "ftp"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(tt.opts, t.TempDir())
			if tt.wantError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store == nil {
				t.Fatal("expected store but got nil")
			}
		})
	}
}
