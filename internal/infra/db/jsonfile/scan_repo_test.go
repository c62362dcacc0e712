package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/Zura03/occlusmart-backend/internal/domain/scans"
)

func testRecord(id, patient string, created time.Time) *domain.ScanRecord {
	return &domain.ScanRecord{
		ID:           domain.ScanID(id),
		PatientID:    patient,
		PreOpPath:    id + "/pre_op.jpg",
		DuringOpPath: id + "/during_op.jpg",
		ResultPath:   id + "/analysis_results.json",
		CreatedAt:    created,
		AnalysisResults: &domain.AnalysisReport{
			Status: domain.StatusSuccess,
			ScanID: id,
			Analysis: domain.OcclusionScores{
				OcclusionScore:  0.85,
				AlignmentScore:  0.92,
				Findings:        []string{"Good overall occlusion"},
				Recommendations: []string{"Schedule follow-up in 2 weeks"},
			},
		},
	}
}

func snapshotPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "scans_db.json")
}

func TestOpenMissingSnapshotStartsEmpty(t *testing.T) {
	repo, err := Open(snapshotPath(t))
	require.NoError(t, err)

	list, err := repo.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInsertPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := snapshotPath(t)
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	repo, err := Open(path)
	require.NoError(t, err)
	rec1 := testRecord("scan-1", "P1", created)
	rec2 := testRecord("scan-2", "P2", created.Add(time.Minute))
	require.NoError(t, repo.Insert(ctx, rec1))
	require.NoError(t, repo.Insert(ctx, rec2))

	reopened, err := Open(path)
	require.NoError(t, err)
	list, err := reopened.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, rec1, list[0])
	assert.Equal(t, rec2, list[1])
}

func TestListFiltersByPatientKeepingOrder(t *testing.T) {
	ctx := context.Background()
	repo, err := Open(snapshotPath(t))
	require.NoError(t, err)

	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(ctx, testRecord("scan-1", "P1", created)))
	require.NoError(t, repo.Insert(ctx, testRecord("scan-2", "P2", created.Add(time.Second))))
	require.NoError(t, repo.Insert(ctx, testRecord("scan-3", "P1", created.Add(2*time.Second))))

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	p1, err := repo.List(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, p1, 2)
	assert.Equal(t, domain.ScanID("scan-1"), p1[0].ID)
	assert.Equal(t, domain.ScanID("scan-3"), p1[1].ID)

	none, err := repo.List(ctx, "P9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	repo, err := Open(snapshotPath(t))
	require.NoError(t, err)

	_, err = repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteRemovesAndPersists(t *testing.T) {
	ctx := context.Background()
	path := snapshotPath(t)
	repo, err := Open(path)
	require.NoError(t, err)

	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(ctx, testRecord("scan-1", "P1", created)))
	require.NoError(t, repo.Insert(ctx, testRecord("scan-2", "P1", created.Add(time.Second))))

	require.NoError(t, repo.Delete(ctx, "scan-1"))

	_, err = repo.Get(ctx, "scan-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "scan-1"), domain.ErrNotFound)

	reopened, err := Open(path)
	require.NoError(t, err)
	list, err := reopened.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.ScanID("scan-2"), list[0].ID)

	// deleting the last record leaves an empty array, not a missing file
	require.NoError(t, reopened.Delete(ctx, "scan-2"))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))
}

func TestOpenCorruptSnapshotFails(t *testing.T) {
	path := snapshotPath(t)
	require.NoError(t, os.WriteFile(path, []byte("{over and out"), 0o644))

	_, err := Open(path)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestFailedRewriteKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	path := snapshotPath(t)
	repo, err := Open(path)
	require.NoError(t, err)

	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	rec1 := testRecord("scan-1", "P1", created)
	require.NoError(t, repo.Insert(ctx, rec1))

	// a directory at the snapshot path makes the rename step fail
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))

	err = repo.Insert(ctx, testRecord("scan-2", "P1", created.Add(time.Second)))
	assert.ErrorIs(t, err, domain.ErrPersistence)

	list, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.ScanID("scan-1"), list[0].ID)
	_, err = repo.Get(ctx, "scan-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// once the path is writable again the full state lands on disk
	require.NoError(t, os.Remove(path))
	require.NoError(t, repo.Insert(ctx, testRecord("scan-3", "P1", created.Add(2*time.Second))))

	reopened, err := Open(path)
	require.NoError(t, err)
	list, err = reopened.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.ScanID("scan-1"), list[0].ID)
	assert.Equal(t, domain.ScanID("scan-3"), list[1].ID)
}

func TestSnapshotUsesStableFieldNames(t *testing.T) {
	ctx := context.Background()
	path := snapshotPath(t)
	repo, err := Open(path)
	require.NoError(t, err)

	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(ctx, testRecord("scan-1", "P1", created)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(raw, &rows))
	require.Len(t, rows, 1)
	for _, key := range []string{"id", "patient_id", "pre_op_path", "during_op_path", "result_path", "created_at", "analysis_results"} {
		assert.Contains(t, rows[0], key)
	}
}
