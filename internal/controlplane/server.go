package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fentz26/allot/internal/batch"
	"github.com/fentz26/allot/internal/logging"
	"github.com/fentz26/allot/internal/models"
	"github.com/fentz26/allot/internal/store"
)

// Options tunes the HTTP server.
type Options struct {
	RequestTimeout  time.Duration
	MaxRequestBytes int64
	Batch           *batch.Config
	Version         string
	Logger          *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 15 * time.Second
	}
	if o.MaxRequestBytes <= 0 {
		o.MaxRequestBytes = 1 << 20
	}
	if o.Version == "" {
		o.Version = "dev"
	}
	o.Logger = logging.OrNop(o.Logger)
	return o
}

// Server provides the HTTP API for allot.
type Server struct {
	service *Service
	store   *store.Store
	batch   *batch.Runner
	addr    string
	opts    Options
	logger  *zap.Logger
	server  *http.Server
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// BatchRequest is the body of POST /allocate/batch.
type BatchRequest struct {
	Jobs []BatchJobPayload `json:"jobs"`
}

// BatchJobPayload is one named request inside a batch.
type BatchJobPayload struct {
	Name    string         `json:"name"`
	Request RequestPayload `json:"request"`
}

// BatchResult is one entry of a batch response.
type BatchResult struct {
	Name   string                   `json:"name"`
	Report *models.AllocationReport `json:"report,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

// BatchResponse is the body returned by POST /allocate/batch.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a new HTTP server. st may be nil when history is disabled.
func NewServer(service *Service, st *store.Store, addr string, opts Options) *Server {
	opts = opts.withDefaults()
	return &Server{
		service: service,
		store:   st,
		batch:   batch.New(service, opts.Batch, opts.Logger),
		addr:    addr,
		opts:    opts,
		logger:  opts.Logger,
	}
}

// Handler returns the routed handler wrapped with request logging and the
// request timeout.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/allocate", s.handleAllocate)
	mux.HandleFunc("/allocate/batch", s.handleBatch)
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/runs/", s.handleRunByID)
	mux.HandleFunc("/audit", s.handleAudit)
	mux.HandleFunc("/health", s.handleHealth)

	return s.withTimeout(s.withLogging(mux))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.opts.RequestTimeout + 5*time.Second,
	}

	s.logger.Info("starting allot daemon", zap.String("addr", s.addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// --- Allocation Handlers ---

// handleAllocate handles POST /allocate
func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload RequestPayload
	if status, err := s.decode(w, r, &payload); err != nil {
		writeError(w, status, err.Error())
		return
	}

	req, err := payload.ToRequest()
	if err != nil {
		s.service.Reject(r.Context(), payload, err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.Run(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleBatch handles POST /allocate/batch
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body BatchRequest
	if status, err := s.decode(w, r, &body); err != nil {
		writeError(w, status, err.Error())
		return
	}
	if len(body.Jobs) == 0 {
		writeError(w, http.StatusBadRequest, invalid("jobs", "must not be empty").Error())
		return
	}

	results := make([]BatchResult, len(body.Jobs))
	jobs := make([]batch.Job, 0, len(body.Jobs))
	slots := make([]int, 0, len(body.Jobs))
	for i, j := range body.Jobs {
		results[i].Name = j.Name
		req, err := j.Request.ToRequest()
		if err != nil {
			s.service.Reject(r.Context(), j.Request, err)
			results[i].Error = err.Error()
			continue
		}
		jobs = append(jobs, batch.Job{Name: j.Name, Request: req})
		slots = append(slots, i)
	}

	ran, err := s.batch.Run(r.Context(), jobs)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	for k, res := range ran {
		i := slots[k]
		if res.Err != nil {
			results[i].Error = res.Err.Error()
			continue
		}
		results[i].Report = res.Report
	}

	writeJSON(w, http.StatusOK, BatchResponse{Results: results})
}

// --- History Handlers ---

// handleRuns handles GET /runs?limit=N
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := s.service.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if runs == nil {
		runs = []models.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleRunByID handles GET /runs/{id}
func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/runs/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	run, err := s.service.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleAudit handles GET /audit?limit=N
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := s.service.ListAudit(r.Context(), limit)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	health := HealthResponse{
		OK:      true,
		DB:      "ok",
		Version: s.opts.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if s.store == nil {
		health.DB = "disabled"
	} else if err := s.store.Ping(r.Context()); err != nil {
		health.OK = false
		health.DB = "error: " + err.Error()
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, health)
}

// --- Helpers ---

// decode reads a size-limited JSON body into v. On failure it returns the
// HTTP status to report.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) (int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return http.StatusRequestEntityTooLarge, errors.New("request body too large")
		case errors.Is(err, io.EOF):
			return http.StatusBadRequest, ErrEmptyRequest
		default:
			return http.StatusBadRequest, errors.New("invalid json: " + err.Error())
		}
	}
	return 0, nil
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, invalid("limit", "must be a non-negative integer")
	}
	return limit, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, batch.ErrTooManyJobs):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoHistory):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// --- Middleware ---

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
