package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	appscans "github.com/Zura03/occlusmart-backend/internal/application/scans"
	domain "github.com/Zura03/occlusmart-backend/internal/domain/scans"
	"github.com/Zura03/occlusmart-backend/internal/middleware"
)

// Multipart uploads above this stay on disk instead of memory.
const maxUploadBytes = 32 << 20

type Router struct {
	svc *appscans.Service
}

// NewRouter wires the scan API. staticRoot serves stored files under
// /uploads when non-empty (local blob driver only).
func NewRouter(svc *appscans.Service, healthChecks map[string]middleware.HealthChecker, staticRoot string) http.Handler {
	r := &Router{svc: svc}
	mux := chi.NewRouter()

	mux.Get("/api/health", middleware.HealthHandler(healthChecks))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Post("/api/analyze-occlusion", r.wrap(r.handleAnalyze))
	mux.Route("/api/scans", func(rt chi.Router) {
		rt.Get("/", r.wrap(r.handleList))
		rt.Get("/{id}", r.wrap(r.handleGet))
		rt.Delete("/{id}", r.wrap(r.handleDelete))
	})

	if staticRoot != "" {
		mux.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(staticRoot))))
	}

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				http.Error(w, "Scan not found", http.StatusNotFound)
			case errors.Is(err, domain.ErrValidation):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// POST /api/analyze-occlusion
// Multipart form: pre_op_image, during_op_image files + patient_id field.
// Responds with the analysis report of the freshly stored scan.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		return fmt.Errorf("%w: parse multipart form: %v", domain.ErrValidation, err)
	}

	patientID := middleware.SanitizeString(req.FormValue("patient_id"))
	if err := middleware.ValidatePatientID(patientID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	preFile, preHeader, err := req.FormFile("pre_op_image")
	if err != nil {
		return fmt.Errorf("%w: pre_op_image is required", domain.ErrValidation)
	}
	defer preFile.Close()

	durFile, durHeader, err := req.FormFile("during_op_image")
	if err != nil {
		return fmt.Errorf("%w: during_op_image is required", domain.ErrValidation)
	}
	defer durFile.Close()

	if err := middleware.ValidateImageFilename(preHeader.Filename); err != nil {
		return fmt.Errorf("%w: pre_op_image: %v", domain.ErrValidation, err)
	}
	if err := middleware.ValidateImageFilename(durHeader.Filename); err != nil {
		return fmt.Errorf("%w: during_op_image: %v", domain.ErrValidation, err)
	}

	rec, err := r.svc.Create(req.Context(), appscans.CreateScanCommand{
		PatientID: patientID,
		PreOp:     appscans.Upload{Reader: preFile, Filename: preHeader.Filename},
		DuringOp:  appscans.Upload{Reader: durFile, Filename: durHeader.Filename},
	})
	if err != nil {
		middleware.IncrementScansFailed()
		return err
	}
	middleware.IncrementScansCreated()

	return writeJSON(w, rec.AnalysisResults)
}

// GET /api/scans?patient_id=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	list, err := r.svc.List(req.Context(), req.URL.Query().Get("patient_id"))
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.ScanRecord{}
	}
	return writeJSON(w, list)
}

// scanResponse is a record plus the resolved URLs of its stored files.
type scanResponse struct {
	*domain.ScanRecord
	PreOpURL    string `json:"pre_op_url"`
	DuringOpURL string `json:"during_op_url"`
	ResultURL   string `json:"result_url,omitempty"`
}

// GET /api/scans/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")

	rec, err := r.svc.Get(req.Context(), domain.ScanID(id))
	if err != nil {
		return err
	}

	resp := scanResponse{
		ScanRecord:  rec,
		PreOpURL:    r.svc.FileURL(rec.PreOpPath),
		DuringOpURL: r.svc.FileURL(rec.DuringOpPath),
	}
	if rec.ResultPath != "" {
		resp.ResultURL = r.svc.FileURL(rec.ResultPath)
	}
	return writeJSON(w, resp)
}

// DELETE /api/scans/{id}?purge=true
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	purge := req.URL.Query().Get("purge") == "true"

	if err := r.svc.Delete(req.Context(), domain.ScanID(id), purge); err != nil {
		return err
	}
	middleware.IncrementRecordsDeleted()

	return writeJSON(w, map[string]string{"status": "success", "message": "Scan deleted"})
}
