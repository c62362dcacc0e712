package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	domain "github.com/Zura03/occlusmart-backend/internal/domain/scans"
)

// LocalStore keeps one subdirectory per scan under root. Returned paths are
// always relative to root with forward slashes, so records stay portable
// across hosts and stores.
type LocalStore struct {
	root    string
	baseURL string
}

var _ domain.BlobStore = (*LocalStore)(nil)

// NewLocalStore siapin root directory untuk upload
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create blob root %s: %v", domain.ErrStorage, root, err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Allocate buat directory per scan, idempotent
func (s *LocalStore) Allocate(ctx context.Context, id domain.ScanID) (string, error) {
	dir := filepath.Join(s.root, string(id))
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return "", fmt.Errorf("%w: %s exists and is not a directory", domain.ErrStorage, dir)
		}
		return dir, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: allocate %s: %v", domain.ErrStorage, dir, err)
	}
	return dir, nil
}

// WriteUpload streams src to dir/logicalName plus the upload's extension.
// Empty and unreadable streams are rejected and leave no file behind.
func (s *LocalStore) WriteUpload(ctx context.Context, dir, logicalName string, src io.Reader, originalName string) (string, error) {
	if src == nil {
		return "", fmt.Errorf("%w: %s upload stream is missing", domain.ErrValidation, logicalName)
	}
	full := filepath.Join(dir, logicalName+UploadExt(originalName))

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("%w: create %s: %v", domain.ErrStorage, full, err)
	}
	tr := &trackedReader{r: src}
	n, err := io.Copy(f, tr)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(full)
		if tr.err != nil {
			return "", fmt.Errorf("%w: %s upload stream: %v", domain.ErrValidation, logicalName, tr.err)
		}
		return "", fmt.Errorf("%w: write %s: %v", domain.ErrStorage, full, err)
	}
	if n == 0 {
		os.Remove(full)
		return "", fmt.Errorf("%w: %s upload is empty", domain.ErrValidation, logicalName)
	}
	return s.rel(full)
}

// WriteArtifact serializes data to JSON under dir/name. Temp file + rename,
// so a half-written artifact never sits at the final path.
func (s *LocalStore) WriteArtifact(ctx context.Context, dir, name string, data any) (string, error) {
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: encode %s: %v", domain.ErrSerialization, name, err)
	}
	full := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, name+".*")
	if err != nil {
		return "", fmt.Errorf("%w: stage %s: %v", domain.ErrStorage, full, err)
	}
	_, werr := tmp.Write(buf)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp.Name(), full)
	}
	if werr != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: write %s: %v", domain.ErrStorage, full, werr)
	}
	return s.rel(full)
}

// Open baca file tersimpan by relative path
func (s *LocalStore) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrStorage, relPath, err)
	}
	return f, nil
}

// Remove hapus satu file; file hilang bukan error
func (s *LocalStore) Remove(ctx context.Context, relPath string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(relPath)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove %s: %v", domain.ErrStorage, relPath, err)
	}
	return nil
}

// Delete hapus seluruh directory milik scan
func (s *LocalStore) Delete(ctx context.Context, id domain.ScanID) error {
	if err := os.RemoveAll(filepath.Join(s.root, string(id))); err != nil {
		return fmt.Errorf("%w: delete %s: %v", domain.ErrStorage, id, err)
	}
	return nil
}

// URL publik untuk file yang diserve dari /uploads
func (s *LocalStore) URL(relPath string) string {
	return s.baseURL + "/uploads/" + relPath
}

// Root is the directory the HTTP layer serves static files from.
func (s *LocalStore) Root() string {
	return s.root
}

// Ping reports whether the root directory is usable.
func (s *LocalStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("blob root %s is not a directory", s.root)
	}
	return nil
}

func (s *LocalStore) rel(full string) (string, error) {
	rel, err := filepath.Rel(s.root, full)
	if err != nil {
		return "", fmt.Errorf("%w: relativize %s: %v", domain.ErrStorage, full, err)
	}
	return filepath.ToSlash(rel), nil
}
