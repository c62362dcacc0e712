package scans

import (
	"context"
	"io"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Insert(ctx context.Context, rec *ScanRecord) error
	// List returns records in insertion order; empty patientID means all.
	List(ctx context.Context, patientID string) ([]*ScanRecord, error)
	Get(ctx context.Context, id ScanID) (*ScanRecord, error)
	Delete(ctx context.Context, id ScanID) error
}

// BlobStore port (interface untuk penyimpanan file per scan)
type BlobStore interface {
	// Allocate reserves the scan's own location and returns it as the dir
	// handle the Write methods take. Calling it again for the same ID is a
	// no-op returning the same handle.
	Allocate(ctx context.Context, id ScanID) (string, error)
	// WriteUpload stores src under dir as logicalName plus the extension of
	// originalName and returns the store-relative path of the stored file.
	WriteUpload(ctx context.Context, dir, logicalName string, src io.Reader, originalName string) (string, error)
	// WriteArtifact serializes data as JSON under dir/name.
	WriteArtifact(ctx context.Context, dir, name string, data any) (string, error)
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
	// Remove deletes one stored file; absent files are not an error.
	Remove(ctx context.Context, relPath string) error
	// Delete drops everything stored for the scan.
	Delete(ctx context.Context, id ScanID) error
	// URL maps a store-relative path to the address it is served under.
	URL(relPath string) string
}

// Analyzer port (interface untuk analisis image pair)
type Analyzer interface {
	Analyze(ctx context.Context, preOpPath, duringOpPath string) (*AnalysisReport, error)
}
