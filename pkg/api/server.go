// Package api exposes the skillgraph engine and feedback store over an HTTP
// JSON API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillgraph/pkg/engine"
	"github.com/jingkaihe/skillgraph/pkg/feedback"
	"github.com/jingkaihe/skillgraph/pkg/logger"
	"github.com/jingkaihe/skillgraph/pkg/tags"
	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
	"github.com/jingkaihe/skillgraph/pkg/types/workflow"
	planning "github.com/jingkaihe/skillgraph/pkg/workflow"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// Engine is the pipeline served by the API
type Engine interface {
	Catalog(ctx context.Context) ([]catalog.Entry, error)
	Graph(ctx context.Context) (*catalog.Graph, error)
	Assemble(ctx context.Context, plan workflow.Plan, opts engine.AssembleOptions) (engine.Assembly, error)
}

// FeedbackStore records and lists human feedback
type FeedbackStore interface {
	Add(ctx context.Context, f workflow.Feedback) (workflow.Feedback, error)
	List(ctx context.Context, options feedback.ListOptions) ([]workflow.Feedback, error)
	Delete(ctx context.Context, id string) error
}

// Server represents the API server
type Server struct {
	router   *mux.Router
	engine   Engine
	feedback FeedbackStore
	config   *ServerConfig
	server   *http.Server
}

// ServerConfig holds the configuration for the API server
type ServerConfig struct {
	Host string
	Port int
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}

	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	return nil
}

// NewServer creates a new API server. The feedback store may be nil, in
// which case the feedback endpoints answer 503.
func NewServer(config *ServerConfig, e Engine, store FeedbackStore) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}
	if e == nil {
		return nil, errors.New("engine is required")
	}

	s := &Server{
		router:   mux.NewRouter(),
		engine:   e,
		feedback: store,
		config:   config,
	}
	s.setupRoutes()

	return s, nil
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all the HTTP routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/skills", s.handleListSkills).Methods("GET")
	api.HandleFunc("/graph", s.handleGraph).Methods("GET")
	api.HandleFunc("/assemble", s.handleAssemble).Methods("POST")
	api.HandleFunc("/feedback", s.handleListFeedback).Methods("GET")
	api.HandleFunc("/feedback", s.handleAddFeedback).Methods("POST")
	api.HandleFunc("/feedback/{id}", s.handleDeleteFeedback).Methods("DELETE")
	api.HandleFunc("/tags/normalize", s.handleNormalizeTags).Methods("POST")

	// preflight requests must match a route for the middleware to run
	s.router.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: 200}

		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration":    time.Since(start),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// SkillsResponse is the body of GET /api/skills
type SkillsResponse struct {
	Skills []catalog.Entry `json:"skills"`
	Total  int             `json:"total"`
}

// handleListSkills handles GET /api/skills
func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.Catalog(r.Context())
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to load catalog", err)
		return
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}

	s.writeJSONResponse(w, http.StatusOK, SkillsResponse{Skills: entries, Total: len(entries)})
}

// handleGraph handles GET /api/graph
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.engine.Graph(r.Context())
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to build graph", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, g)
}

// AssembleRequest is the body of POST /api/assemble
type AssembleRequest struct {
	Plan         workflow.Plan     `json:"plan"`
	Locks        map[string]string `json:"locks,omitempty"`
	Alternatives int               `json:"alternatives,omitempty"`
	NoGraph      bool              `json:"noGraph,omitempty"`
	NoFeedback   bool              `json:"noFeedback,omitempty"`
}

// handleAssemble handles POST /api/assemble
func (s *Server) handleAssemble(w http.ResponseWriter, r *http.Request) {
	var req AssembleRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	plan, err := planning.PreparePlan(req.Plan)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	assembly, err := s.engine.Assemble(r.Context(), plan, engine.AssembleOptions{
		Locks:        req.Locks,
		Alternatives: req.Alternatives,
		NoGraph:      req.NoGraph,
		NoFeedback:   req.NoFeedback,
	})
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to assemble workflow", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, assembly)
}

// FeedbackListResponse is the body of GET /api/feedback
type FeedbackListResponse struct {
	Feedback []workflow.Feedback `json:"feedback"`
}

// handleListFeedback handles GET /api/feedback
func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		s.writeErrorResponse(w, http.StatusServiceUnavailable, "feedback store not configured", nil)
		return
	}

	query := r.URL.Query()
	options := feedback.ListOptions{
		SkillID: query.Get("skillId"),
	}
	if stage := query.Get("stage"); stage != "" {
		options.StepStage = catalog.ParseStage(stage)
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			options.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			options.Offset = offset
		}
	}
	if sinceStr := query.Get("since"); sinceStr != "" {
		if since, err := time.Parse("2006-01-02", sinceStr); err == nil {
			options.Since = &since
		}
	}

	records, err := s.feedback.List(r.Context(), options)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to list feedback", err)
		return
	}
	if records == nil {
		records = []workflow.Feedback{}
	}

	s.writeJSONResponse(w, http.StatusOK, FeedbackListResponse{Feedback: records})
}

// handleAddFeedback handles POST /api/feedback
func (s *Server) handleAddFeedback(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		s.writeErrorResponse(w, http.StatusServiceUnavailable, "feedback store not configured", nil)
		return
	}

	var req workflow.Feedback
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	added, err := s.feedback.Add(r.Context(), req)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("failed to add feedback: %s", err), err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, added)
}

// handleDeleteFeedback handles DELETE /api/feedback/{id}
func (s *Server) handleDeleteFeedback(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		s.writeErrorResponse(w, http.StatusServiceUnavailable, "feedback store not configured", nil)
		return
	}

	id := mux.Vars(r)["id"]
	if err := s.feedback.Delete(r.Context(), id); err != nil {
		if errors.Is(err, feedback.ErrNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, "feedback not found", nil)
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to delete feedback", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// NormalizeRequest is the body of POST /api/tags/normalize
type NormalizeRequest struct {
	Field tags.Field `json:"field"`
	Tags  []string   `json:"tags"`
}

// NormalizeResponse is the result of POST /api/tags/normalize
type NormalizeResponse struct {
	Tags   []string     `json:"tags"`
	Issues []tags.Issue `json:"issues"`
}

// handleNormalizeTags handles POST /api/tags/normalize
func (s *Server) handleNormalizeTags(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if !validField(req.Field) {
		s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid field %q", req.Field), nil)
		return
	}

	normalized, issues := tags.Normalize(req.Tags, req.Field)
	if issues == nil {
		issues = []tags.Issue{}
	}

	s.writeJSONResponse(w, http.StatusOK, NormalizeResponse{Tags: normalized, Issues: issues})
}

func validField(f tags.Field) bool {
	for _, known := range tags.Fields {
		if f == known {
			return true
		}
	}
	return false
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode request body")
	}
	return nil
}

// writeJSONResponse writes a JSON response
func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		logger.G(context.TODO()).WithError(err).Error(message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]any{
		"error":   message,
		"status":  statusCode,
		"success": false,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode error response")
	}
}

// Start serves until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Stop stops the server immediately
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
