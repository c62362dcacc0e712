package scans

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/Zura03/occlusmart-backend/internal/application"
	domain "github.com/Zura03/occlusmart-backend/internal/domain/scans"
)

// Service implements use-cases untuk ScanRecord
// Service is designed to be used concurrently and is thread-safe as long as
// the injected Repository serializes its own mutations
type Service struct {
	Repo     domain.Repository
	Blobs    domain.BlobStore
	Analyzer domain.Analyzer
	Clock    application.Clock
}

//
// ==== USE CASES ====
//

// Upload is one incoming file stream plus the name the client sent it under.
type Upload struct {
	Reader   io.Reader
	Filename string
}

// Command untuk create scan
type CreateScanCommand struct {
	PatientID string
	PreOp     Upload
	DuringOp  Upload
}

// Create simpan kedua upload → analisis → tulis artifact → insert record.
// On any failure every file written so far is removed again, so a failed
// create leaves no record and no stray uploads behind.
func (s *Service) Create(ctx context.Context, cmd CreateScanCommand) (*domain.ScanRecord, error) {
	if strings.TrimSpace(cmd.PatientID) == "" {
		return nil, fmt.Errorf("%w: patient_id is required", domain.ErrValidation)
	}
	if cmd.PreOp.Reader == nil || cmd.DuringOp.Reader == nil {
		return nil, fmt.Errorf("%w: pre_op and during_op uploads are both required", domain.ErrValidation)
	}

	id := domain.ScanID(uuid.New().String())

	dir, err := s.Blobs.Allocate(ctx, id)
	if err != nil {
		return nil, err
	}

	// files written so far, removed one by one when a later step fails
	var written []string
	cleanup := func() {
		for _, rel := range written {
			if rmErr := s.Blobs.Remove(ctx, rel); rmErr != nil {
				log.Printf("create cleanup scan=%s path=%s err=%v", id, rel, rmErr)
			}
		}
	}

	preRel, err := s.Blobs.WriteUpload(ctx, dir, "pre_op", cmd.PreOp.Reader, cmd.PreOp.Filename)
	if err != nil {
		cleanup()
		return nil, err
	}
	written = append(written, preRel)

	durRel, err := s.Blobs.WriteUpload(ctx, dir, "during_op", cmd.DuringOp.Reader, cmd.DuringOp.Filename)
	if err != nil {
		cleanup()
		return nil, err
	}
	written = append(written, durRel)

	// analisis pasangan gambar yang sudah tersimpan
	report, err := s.Analyzer.Analyze(ctx, preRel, durRel)
	if err != nil {
		cleanup()
		if errors.Is(err, domain.ErrAnalysis) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrAnalysis, err)
	}
	if report == nil {
		cleanup()
		return nil, fmt.Errorf("%w: analyzer returned no report", domain.ErrAnalysis)
	}
	report.ScanID = string(id)

	resRel, err := s.Blobs.WriteArtifact(ctx, dir, "analysis_results.json", report)
	if err != nil {
		cleanup()
		return nil, err
	}
	written = append(written, resRel)

	rec := &domain.ScanRecord{
		ID:              id,
		PatientID:       cmd.PatientID,
		PreOpPath:       preRel,
		DuringOpPath:    durRel,
		ResultPath:      resRel,
		CreatedAt:       s.Clock.Now().UTC(),
		AnalysisResults: report,
	}

	if err := s.Repo.Insert(ctx, rec); err != nil {
		cleanup()
		return nil, err
	}

	return rec, nil
}

// List ambil semua record, optionally filtered by patient
func (s *Service) List(ctx context.Context, patientID string) ([]*domain.ScanRecord, error) {
	return s.Repo.List(ctx, patientID)
}

// Get ambil 1 record by id
func (s *Service) Get(ctx context.Context, id domain.ScanID) (*domain.ScanRecord, error) {
	return s.Repo.Get(ctx, id)
}

// Delete drops the record. Stored files stay behind as orphans unless purge
// is set; purge failures are logged, the record is already gone by then.
func (s *Service) Delete(ctx context.Context, id domain.ScanID, purge bool) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	if purge {
		if err := s.Blobs.Delete(ctx, id); err != nil {
			log.Printf("delete purge scan=%s err=%v", id, err)
		}
	}
	return nil
}

// FileURL lewatin URL publik dari blob store
func (s *Service) FileURL(relPath string) string {
	return s.Blobs.URL(relPath)
}
