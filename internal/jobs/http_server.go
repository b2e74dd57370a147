package jobs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hybridq/hybrid-core/internal/optimize"
	"github.com/hybridq/hybrid-core/pkg/logger"
	"github.com/hybridq/hybrid-core/pkg/models"
	"github.com/hybridq/hybrid-core/pkg/utils"
)

// HTTPServer exposes the hybrid-job API over JSON.
type HTTPServer struct {
	mux      *http.ServeMux
	store    *Store
	executor *Executor
}

// NewHTTPServer wires the job endpoints onto a fresh mux.
func NewHTTPServer(store *Store, executor *Executor) *HTTPServer {
	s := &HTTPServer{
		mux:      http.NewServeMux(),
		store:    store,
		executor: executor,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/jobs", s.handleJobs)
	s.mux.HandleFunc("/v1/jobs/", s.handleJobByID)

	return s
}

// Handler returns the root handler. Every response carries an
// X-Request-ID header, generated unless the caller supplied one.
func (s *HTTPServer) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = utils.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		s.mux.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleJobs handles /v1/jobs
func (s *HTTPServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleJobByID handles /v1/jobs/{id} and related endpoints
func (s *HTTPServer) handleJobByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	if jobID, ok := strings.CutSuffix(path, ":cancel"); ok {
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleCancelJob(w, jobID)
		return
	}

	if jobID, ok := strings.CutSuffix(path, "/metrics"); ok {
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleJobMetrics(w, jobID)
		return
	}

	if jobID, ok := strings.CutSuffix(path, "/result"); ok {
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleJobResult(w, jobID)
		return
	}

	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.handleGetJob(w, path)
}

// handleCreateJob handles POST /v1/jobs: the job is created and started
// immediately, mirroring the managed-service submit call.
func (s *HTTPServer) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID string         `json:"job_id,omitempty"`
		Spec  models.JobSpec `json:"spec"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Spec.Stepsize < 0 {
		s.writeError(w, http.StatusBadRequest, "stepsize cannot be negative")
		return
	}
	if req.Spec.Steps < 0 {
		s.writeError(w, http.StatusBadRequest, "steps cannot be negative")
		return
	}
	if n := len(req.Spec.InitialParams); n != 0 && n != 2 {
		s.writeError(w, http.StatusBadRequest, "initial_params must have exactly 2 components")
		return
	}

	job, err := s.store.Create(req.JobID, req.Spec)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "already exists"):
			s.writeError(w, http.StatusConflict, err.Error())
		case strings.Contains(err.Error(), "cannot contain"):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	started, err := s.executor.Start(job.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("job submitted", "job_id", started.ID)
	s.writeJSON(w, http.StatusCreated, map[string]any{"job": started})
}

// handleListJobs handles GET /v1/jobs with pagination and filtering
func (s *HTTPServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = utils.Clamp(parsed, 1, 1000)
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	var statusFilter models.JobStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		statusFilter = models.ParseJobStatus(strings.ToUpper(statusStr))
		if statusFilter == "" {
			s.writeError(w, http.StatusBadRequest, "unknown status filter: "+statusStr)
			return
		}
	}

	jobs := s.store.List(limit, offset, statusFilter)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"jobs": jobs,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(jobs),
		},
	})
}

// handleGetJob handles GET /v1/jobs/{id}
func (s *HTTPServer) handleGetJob(w http.ResponseWriter, jobID string) {
	job, ok := s.store.Get(jobID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

// handleCancelJob handles POST /v1/jobs/{id}:cancel
func (s *HTTPServer) handleCancelJob(w http.ResponseWriter, jobID string) {
	updated, err := s.executor.Stop(jobID)
	if err != nil {
		switch {
		case errors.Is(err, ErrJobNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrJobTerminal):
			s.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ErrJobIDMissing):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Info("job cancelled", "job_id", jobID)
	s.writeJSON(w, http.StatusOK, map[string]any{"job": updated})
}

// handleJobMetrics handles GET /v1/jobs/{id}/metrics
func (s *HTTPServer) handleJobMetrics(w http.ResponseWriter, jobID string) {
	if _, ok := s.store.Get(jobID); !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	collector, ok := s.store.GetCollector(jobID)
	if !ok {
		s.writeError(w, http.StatusPreconditionFailed, "metrics not available")
		return
	}

	points := collector.Series(optimize.MetricExpval)
	pointsJSON := make([]map[string]any, 0, len(points))
	for _, p := range points {
		pointsJSON = append(pointsJSON, map[string]any{
			"timestamp":        p.Timestamp.Format(time.RFC3339Nano),
			"metric":           p.Name,
			"iteration_number": p.Iteration,
			"value":            p.Value,
			"labels":           p.Labels,
		})
	}

	resp := map[string]any{
		"job_id": jobID,
		"points": pointsJSON,
	}
	if agg := collector.Aggregation(optimize.MetricExpval); agg != nil {
		resp["aggregation"] = agg
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleJobResult handles GET /v1/jobs/{id}/result
func (s *HTTPServer) handleJobResult(w http.ResponseWriter, jobID string) {
	job, ok := s.store.Get(jobID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Result == nil {
		s.writeError(w, http.StatusPreconditionFailed, "result not available")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"job_id": jobID,
		"result": job.Result,
	})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"error": message})
}
