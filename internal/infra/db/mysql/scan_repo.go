package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/Zura03/occlusmart-backend/internal/domain/scans"
)

// ScanRepository stores records in the scans table. The seq column is
// auto-increment and carries insertion order.
type ScanRepository struct {
	db *sql.DB
}

var _ domain.Repository = (*ScanRepository)(nil)

func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Insert simpan satu record baru
func (r *ScanRepository) Insert(ctx context.Context, rec *domain.ScanRecord) error {
	const q = `
INSERT INTO scans
(id, patient_id, pre_op_path, during_op_path, result_path, created_at, analysis_results)
VALUES (?,?,?,?,?,?,?);
`
	results, err := json.Marshal(rec.AnalysisResults)
	if err != nil {
		return fmt.Errorf("%w: encode analysis_results: %v", domain.ErrSerialization, err)
	}
	_, err = r.db.ExecContext(ctx, q,
		rec.ID, rec.PatientID, rec.PreOpPath, rec.DuringOpPath, rec.ResultPath,
		rec.CreatedAt, results,
	)
	if err != nil {
		return fmt.Errorf("%w: insert scan %s: %v", domain.ErrPersistence, rec.ID, err)
	}
	return nil
}

// List urut insert; patientID kosong berarti semua
func (r *ScanRepository) List(ctx context.Context, patientID string) ([]*domain.ScanRecord, error) {
	query := `
SELECT id, patient_id, pre_op_path, during_op_path, result_path, created_at, analysis_results
FROM scans`
	args := []any{}
	if patientID != "" {
		query += "\nWHERE patient_id=?"
		args = append(args, patientID)
	}
	query += "\nORDER BY seq ASC;"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list scans: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var out []*domain.ScanRecord
	for rows.Next() {
		rec, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list scans: %v", domain.ErrPersistence, err)
	}
	return out, nil
}

// Get by ID
func (r *ScanRepository) Get(ctx context.Context, id domain.ScanID) (*domain.ScanRecord, error) {
	const q = `
SELECT id, patient_id, pre_op_path, during_op_path, result_path, created_at, analysis_results
FROM scans
WHERE id=? LIMIT 1;
`
	rec, err := scanRow(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return rec, err
}

// Delete by ID
func (r *ScanRepository) Delete(ctx context.Context, id domain.ScanID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scans WHERE id=?;`, id)
	if err != nil {
		return fmt.Errorf("%w: delete scan %s: %v", domain.ErrPersistence, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete scan %s: %v", domain.ErrPersistence, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*domain.ScanRecord, error) {
	var rec domain.ScanRecord
	var results []byte
	if err := row.Scan(
		&rec.ID, &rec.PatientID, &rec.PreOpPath, &rec.DuringOpPath, &rec.ResultPath,
		&rec.CreatedAt, &results,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scan row: %v", domain.ErrPersistence, err)
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &rec.AnalysisResults); err != nil {
			return nil, fmt.Errorf("%w: decode analysis_results for %s: %v", domain.ErrSerialization, rec.ID, err)
		}
	}
	return &rec, nil
}
