// Package jsonfile persists scan records as a single JSON snapshot file that
// mirrors an in-memory collection. Every mutation rewrites the whole file;
// the collection only advances once the rewrite landed on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	domain "github.com/Zura03/occlusmart-backend/internal/domain/scans"
)

type ScanRepository struct {
	mu    sync.RWMutex
	path  string
	scans []*domain.ScanRecord // insertion order
}

var _ domain.Repository = (*ScanRepository)(nil)

// Open loads the snapshot at path. A missing file starts an empty store; an
// unreadable or unparseable one is an error, existing data is never replaced
// by a silent empty state.
func Open(path string) (*ScanRepository, error) {
	r := &ScanRepository{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("%w: read snapshot %s: %v", domain.ErrPersistence, path, err)
	}
	if err := json.Unmarshal(data, &r.scans); err != nil {
		return nil, fmt.Errorf("%w: parse snapshot %s: %v", domain.ErrPersistence, path, err)
	}
	return r, nil
}

// Insert append record + rewrite snapshot
func (r *ScanRepository) Insert(ctx context.Context, rec *domain.ScanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := append(append([]*domain.ScanRecord(nil), r.scans...), rec)
	if err := r.writeSnapshot(next); err != nil {
		return err
	}
	r.scans = next
	return nil
}

// List ambil semua record urut insert; patientID kosong berarti semua
func (r *ScanRepository) List(ctx context.Context, patientID string) ([]*domain.ScanRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.ScanRecord, 0, len(r.scans))
	for _, s := range r.scans {
		if patientID == "" || s.PatientID == patientID {
			out = append(out, s)
		}
	}
	return out, nil
}

// Get by ID
func (r *ScanRepository) Get(ctx context.Context, id domain.ScanID) (*domain.ScanRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.scans {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
}

// Delete removes the record and rewrites the snapshot. When the rewrite
// fails the collection keeps its previous state, so memory and disk never
// drift apart.
func (r *ScanRepository) Delete(ctx context.Context, id domain.ScanID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]*domain.ScanRecord, 0, len(r.scans))
	for _, s := range r.scans {
		if s.ID != id {
			next = append(next, s)
		}
	}
	if len(next) == len(r.scans) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if err := r.writeSnapshot(next); err != nil {
		return err
	}
	r.scans = next
	return nil
}

// Ping reports whether the snapshot location is usable.
func (r *ScanRepository) Ping(ctx context.Context) error {
	dir := filepath.Dir(r.path)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("snapshot dir %s is not a directory", dir)
	}
	return nil
}

// writeSnapshot replaces the file atomically: temp file in the same
// directory, then rename over the old snapshot. Callers hold the write lock.
func (r *ScanRepository) writeSnapshot(scans []*domain.ScanRecord) error {
	if scans == nil {
		scans = []*domain.ScanRecord{}
	}
	data, err := json.MarshalIndent(scans, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", domain.ErrSerialization, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*")
	if err != nil {
		return fmt.Errorf("%w: stage snapshot: %v", domain.ErrPersistence, err)
	}
	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp.Name(), r.path)
	}
	if werr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: rewrite snapshot %s: %v", domain.ErrPersistence, r.path, werr)
	}
	return nil
}
