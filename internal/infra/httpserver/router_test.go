package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appscans "github.com/Zura03/occlusmart-backend/internal/application/scans"
	domain "github.com/Zura03/occlusmart-backend/internal/domain/scans"
	"github.com/Zura03/occlusmart-backend/internal/infra/ai"
	"github.com/Zura03/occlusmart-backend/internal/infra/db/jsonfile"
	"github.com/Zura03/occlusmart-backend/internal/infra/storage"
	"github.com/Zura03/occlusmart-backend/internal/middleware"
)

type testClock struct{}

func (testClock) Now() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	root := t.TempDir()
	blobs, err := storage.NewLocalStore(root, "http://localhost:8000")
	require.NoError(t, err)
	repo, err := jsonfile.Open(filepath.Join(t.TempDir(), "scans_db.json"))
	require.NoError(t, err)

	svc := &appscans.Service{
		Repo:     repo,
		Blobs:    blobs,
		Analyzer: ai.StubAnalyzer{},
		Clock:    testClock{},
	}
	checks := map[string]middleware.HealthChecker{
		"snapshot":  middleware.CheckerFunc(repo.Ping),
		"blobstore": middleware.CheckerFunc(blobs.Ping),
	}
	return NewRouter(svc, checks, blobs.Root()), root
}

type filePart struct {
	field, name, content string
}

func multipartBody(t *testing.T, patientID string, files ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if patientID != "" {
		require.NoError(t, mw.WriteField("patient_id", patientID))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postScan(t *testing.T, h http.Handler, patientID string) domain.AnalysisReport {
	t.Helper()
	body, contentType := multipartBody(t, patientID,
		filePart{"pre_op_image", "pre.jpg", "pre-image-bytes"},
		filePart{"during_op_image", "during.jpg", "during-image-bytes"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze-occlusion", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var report domain.AnalysisReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	return report
}

func TestAnalyzeOcclusionReturnsReport(t *testing.T) {
	h, _ := newTestRouter(t)

	report := postScan(t, h, "PAT-001")
	assert.Equal(t, domain.StatusSuccess, report.Status)
	assert.NotEmpty(t, report.ScanID)
	assert.Equal(t, 0.85, report.Analysis.OcclusionScore)
	assert.Equal(t, 0.92, report.Analysis.AlignmentScore)
	assert.NotEmpty(t, report.Analysis.Findings)
	assert.NotEmpty(t, report.Analysis.Recommendations)
}

func TestAnalyzeOcclusionRequiresBothImages(t *testing.T) {
	h, _ := newTestRouter(t)

	body, contentType := multipartBody(t, "PAT-001",
		filePart{"pre_op_image", "pre.jpg", "pre-image-bytes"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze-occlusion", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "during_op_image")
}

func TestAnalyzeOcclusionValidatesPatientID(t *testing.T) {
	h, _ := newTestRouter(t)

	for _, patientID := range []string{"", "bad patient!", "p@t"} {
		body, contentType := multipartBody(t, patientID,
			filePart{"pre_op_image", "pre.jpg", "x"},
			filePart{"during_op_image", "during.jpg", "x"},
		)
		req := httptest.NewRequest(http.MethodPost, "/api/analyze-occlusion", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "patient_id %q", patientID)
	}
}

func TestAnalyzeOcclusionRejectsUnknownImageType(t *testing.T) {
	h, _ := newTestRouter(t)

	body, contentType := multipartBody(t, "PAT-001",
		filePart{"pre_op_image", "payload.exe", "x"},
		filePart{"during_op_image", "during.jpg", "x"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze-occlusion", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "pre_op_image")
}

func TestGetScanReturnsRecordWithURLs(t *testing.T) {
	h, _ := newTestRouter(t)
	report := postScan(t, h, "PAT-001")

	req := httptest.NewRequest(http.MethodGet, "/api/scans/"+report.ScanID, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var got struct {
		domain.ScanRecord
		PreOpURL    string `json:"pre_op_url"`
		DuringOpURL string `json:"during_op_url"`
		ResultURL   string `json:"result_url"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, domain.ScanID(report.ScanID), got.ID)
	assert.Equal(t, "PAT-001", got.PatientID)
	assert.Equal(t, "http://localhost:8000/uploads/"+report.ScanID+"/pre_op.jpg", got.PreOpURL)
	assert.Equal(t, "http://localhost:8000/uploads/"+report.ScanID+"/during_op.jpg", got.DuringOpURL)
	assert.Equal(t, "http://localhost:8000/uploads/"+report.ScanID+"/analysis_results.json", got.ResultURL)
}

func TestGetScanMissingReturns404(t *testing.T) {
	h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/scans/0e9af27a-0000-0000-0000-000000000000", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Scan not found")
}

func TestListScansFiltersByPatient(t *testing.T) {
	h, _ := newTestRouter(t)
	postScan(t, h, "P1")
	postScan(t, h, "P2")
	postScan(t, h, "P1")

	req := httptest.NewRequest(http.MethodGet, "/api/scans", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var all []*domain.ScanRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
	assert.Len(t, all, 3)

	req = httptest.NewRequest(http.MethodGet, "/api/scans?patient_id=P1", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var filtered []*domain.ScanRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &filtered))
	require.Len(t, filtered, 2)
	for _, rec := range filtered {
		assert.Equal(t, "P1", rec.PatientID)
	}
}

func TestListScansEmptyIsJSONArray(t *testing.T) {
	h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/scans", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestDeleteScanKeepsFiles(t *testing.T) {
	h, root := newTestRouter(t)
	report := postScan(t, h, "PAT-001")

	req := httptest.NewRequest(http.MethodDelete, "/api/scans/"+report.ScanID, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"success","message":"Scan deleted"}`, rr.Body.String())

	// record is gone, files stay
	req = httptest.NewRequest(http.MethodGet, "/api/scans/"+report.ScanID, nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	_, err := os.Stat(filepath.Join(root, report.ScanID, "pre_op.jpg"))
	assert.NoError(t, err)

	// deleting again is a 404
	req = httptest.NewRequest(http.MethodDelete, "/api/scans/"+report.ScanID, nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteScanWithPurgeRemovesFiles(t *testing.T) {
	h, root := newTestRouter(t)
	report := postScan(t, h, "PAT-001")

	req := httptest.NewRequest(http.MethodDelete, "/api/scans/"+report.ScanID+"?purge=true", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	_, statErr := os.Stat(filepath.Join(root, report.ScanID))
	assert.True(t, os.IsNotExist(statErr))
}

func TestUploadsServedStatically(t *testing.T) {
	h, _ := newTestRouter(t)
	report := postScan(t, h, "PAT-001")

	req := httptest.NewRequest(http.MethodGet, "/uploads/"+report.ScanID+"/pre_op.jpg", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pre-image-bytes", rr.Body.String())
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var health middleware.HealthStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.False(t, health.Timestamp.IsZero())
	assert.Contains(t, health.Checks, "snapshot")
	assert.Contains(t, health.Checks, "blobstore")
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var metrics map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &metrics))
	for _, key := range []string{"requests_total", "scans_created", "scans_failed", "records_deleted", "uptime_seconds"} {
		assert.Contains(t, metrics, key)
	}
}

// Failing dependencies surface as plain 500s, not hung requests.
func TestAnalyzerFailureIsServerError(t *testing.T) {
	root := t.TempDir()
	blobs, err := storage.NewLocalStore(root, "http://localhost:8000")
	require.NoError(t, err)
	repo, err := jsonfile.Open(filepath.Join(t.TempDir(), "scans_db.json"))
	require.NoError(t, err)
	svc := &appscans.Service{
		Repo:     repo,
		Blobs:    blobs,
		Analyzer: brokenAnalyzer{},
		Clock:    testClock{},
	}
	h := NewRouter(svc, nil, "")

	body, contentType := multipartBody(t, "PAT-001",
		filePart{"pre_op_image", "pre.jpg", "x"},
		filePart{"during_op_image", "during.jpg", "x"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze-occlusion", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

type brokenAnalyzer struct{}

func (brokenAnalyzer) Analyze(ctx context.Context, preOpPath, duringOpPath string) (*domain.AnalysisReport, error) {
	return nil, assert.AnError
}
