// Package api provides the RESTful HTTP API server for stencil.
//
// Endpoints live under /api/v1 and return a standardized JSON envelope
// ({success, data, message, error, timestamp}). The middleware chain applies
// request logging, CORS headers, a JSON content type, and panic recovery.
// Error responses are written by errors.HTTPErrorHandler, which maps
// AppError codes onto HTTP status codes.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/stencilkit/stencil/internal/errors"
	"github.com/stencilkit/stencil/internal/models"
	"github.com/stencilkit/stencil/internal/service"
	"github.com/stencilkit/stencil/internal/template"
)

// parseDocument parses a raw document, mapping failures to an AppError
func parseDocument(src []byte) (*models.Template, error) {
	tmpl, err := template.Parse(src)
	if err != nil {
		return nil, errors.ParseFailure(err)
	}
	return tmpl, nil
}

// Server provides the HTTP API with middleware support
type Server struct {
	service      *service.Service
	errorHandler *errors.HTTPErrorHandler
	port         int
	server       *http.Server
}

// NewServer creates a new API server instance
func NewServer(svc *service.Service, port int) *Server {
	return &Server{
		service:      svc,
		errorHandler: errors.NewHTTPErrorHandler(true), // Include details in responses
		port:         port,
	}
}

// Handler returns the routed handler with middleware applied. Exposed so
// tests can drive the server through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/templates", s.withMiddleware(s.handleTemplates))
	mux.HandleFunc("/api/v1/templates/", s.withMiddleware(s.handleTemplatesWithID))
	mux.HandleFunc("/api/v1/search", s.withMiddleware(s.handleSearch))
	mux.HandleFunc("/api/v1/tags", s.withMiddleware(s.handleTags))
	mux.HandleFunc("/api/v1/health", s.withMiddleware(s.handleHealth))

	return mux
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("API server starting on http://localhost:%d", s.port)

	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// withMiddleware applies middleware to HTTP handlers
func (s *Server) withMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return s.loggingMiddleware(
		s.corsMiddleware(
			s.contentTypeMiddleware(
				s.errorMiddleware(handler),
			),
		),
	)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		duration := time.Since(start)
		log.Printf("[%s] %s %s - %v", r.Method, r.URL.Path, r.RemoteAddr, duration)
	}
}

// corsMiddleware handles CORS headers
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// contentTypeMiddleware sets default content type
func (s *Server) contentTypeMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	}
}

// errorMiddleware handles panics
func (s *Server) errorMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic in handler: %v", err)
				appErr := errors.InternalError("Internal server error")
				s.errorHandler.WriteHTTPError(w, appErr)
			}
		}()
		next(w, r)
	}
}

// Response represents a standardized API response
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     interface{} `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// writeResponse writes a standardized JSON response
func (s *Server) writeResponse(w http.ResponseWriter, data interface{}, message string, statusCode int) {
	response := Response{
		Success:   statusCode < 400,
		Data:      data,
		Message:   message,
		Timestamp: time.Now(),
	}

	w.WriteHeader(statusCode)

	jsonData, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		// Fallback to compact JSON if marshaling fails
		json.NewEncoder(w).Encode(response)
		return
	}

	w.Write(jsonData)
}

// writeError writes an error response using the error handler
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.errorHandler.WriteHTTPError(w, err)
}

// handleTemplates handles /api/v1/templates
func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.handleListTemplates(w, r)
	case "POST":
		s.handleCreateTemplate(w, r)
	default:
		s.writeError(w, errors.NewAppError(errors.ErrCodeInvalidCommand, "Method not allowed"))
	}
}

// handleTemplatesWithID handles /api/v1/templates/{id} and
// /api/v1/templates/{id}/render
func (s *Server) handleTemplatesWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/templates/")
	if path == "" {
		s.writeError(w, errors.ValidationError("Template ID is required"))
		return
	}

	if id, ok := strings.CutSuffix(path, "/render"); ok {
		s.handleRenderTemplate(w, r, id)
		return
	}

	switch r.Method {
	case "GET":
		s.handleGetTemplate(w, r, path)
	case "DELETE":
		s.handleDeleteTemplate(w, r, path)
	default:
		s.writeError(w, errors.NewAppError(errors.ErrCodeInvalidCommand, "Method not allowed"))
	}
}

// handleListTemplates handles GET /api/v1/templates
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	var templates []*models.Template
	var err error

	if tag := r.URL.Query().Get("tag"); tag != "" {
		templates, err = s.service.FilterByTag(tag)
	} else {
		templates, err = s.service.ListTemplates()
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeResponse(w, templates, fmt.Sprintf("%d template(s)", len(templates)), http.StatusOK)
}

// createTemplateRequest is the POST /api/v1/templates body
type createTemplateRequest struct {
	Document string `json:"document"`
}

// handleCreateTemplate handles POST /api/v1/templates with a full document
// in the request body
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.ValidationError("Request body must be JSON with a 'document' field"))
		return
	}
	if req.Document == "" {
		s.writeError(w, errors.ValidationError("Field 'document' is required"))
		return
	}

	tmpl, err := parseDocument([]byte(req.Document))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.service.CreateTemplate(tmpl); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeResponse(w, tmpl, "Template created", http.StatusCreated)
}

// handleGetTemplate handles GET /api/v1/templates/{id}
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request, id string) {
	tmpl, err := s.service.GetTemplate(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeResponse(w, tmpl, "", http.StatusOK)
}

// handleDeleteTemplate handles DELETE /api/v1/templates/{id}
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.service.DeleteTemplate(id); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeResponse(w, nil, "Template deleted", http.StatusOK)
}

// handleRenderTemplate handles POST /api/v1/templates/{id}/render. The JSON
// request body is the render context (parameter name to value).
func (s *Server) handleRenderTemplate(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != "POST" {
		s.writeError(w, errors.NewAppError(errors.ErrCodeInvalidCommand, "Method not allowed"))
		return
	}

	ctx := make(models.RenderContext)
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&ctx); err != nil {
			s.writeError(w, errors.ValidationError("Request body must be a JSON object of parameter values"))
			return
		}
	}

	output, err := s.service.RenderTemplate(id, ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeResponse(w, map[string]string{"output": output}, "", http.StatusOK)
}

// handleSearch handles GET /api/v1/search
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		s.writeError(w, errors.NewAppError(errors.ErrCodeInvalidCommand, "Method not allowed"))
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, errors.ValidationError("Search query 'q' parameter is required"))
		return
	}

	templates, err := s.service.SearchTemplates(query)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeResponse(w, templates, fmt.Sprintf("%d match(es)", len(templates)), http.StatusOK)
}

// handleTags handles GET /api/v1/tags
func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		s.writeError(w, errors.NewAppError(errors.ErrCodeInvalidCommand, "Method not allowed"))
		return
	}

	tags, err := s.service.AllTags()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeResponse(w, tags, "", http.StatusOK)
}

// handleHealth handles GET /api/v1/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		s.writeError(w, errors.NewAppError(errors.ErrCodeInvalidCommand, "Method not allowed"))
		return
	}

	templates, err := s.service.ListTemplates()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeResponse(w, map[string]interface{}{
		"status":    "ok",
		"templates": len(templates),
		"library":   s.service.BaseDir(),
	}, "", http.StatusOK)
}
