// Package chi is the HTTP surface: chat, document management, health, and
// metrics endpoints on a chi router.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/stackmint/docqa/internal/domain"
	"github.com/stackmint/docqa/internal/loader"
	logpkg "github.com/stackmint/docqa/internal/logger"
	healthuc "github.com/stackmint/docqa/internal/usecase/health"
)

const maxUploadBytes = 50 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	stack         StackProvider
	registry      DocumentLister
	chatLog       ChatLogger
	health        HealthReporter
	uploadsDir    string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	stack StackProvider,
	registry DocumentLister,
	chatLog ChatLogger,
	health HealthReporter,
	uploadsDir string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		stack:      stack,
		registry:   registry,
		chatLog:    chatLog,
		health:     health,
		uploadsDir: uploadsDir,
		logger:     logger,
	}
	// No ErrDocumentNotFound entry: deleting an unknown id is an idempotent
	// success, so no endpoint surfaces a 404 for documents.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnsupportedFormat, http.StatusBadRequest, "unsupported_format"),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, "vector_dim_mismatch"),
		sentinelHandler(domain.ErrNotReady, http.StatusServiceUnavailable, "not_ready"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
		sentinelHandler(domain.ErrModelProviderError, http.StatusBadGateway, "model_provider_error"),
		sentinelHandler(domain.ErrGenerationFailure, http.StatusBadGateway, "generation_failure"),
		sentinelHandler(domain.ErrIndexingFailure, http.StatusInternalServerError, "indexing_failure"),
	}
	return s
}

// Routes mounts all endpoints on the router.
func (s *Server) Routes(r chirouter.Router) {
	r.Post("/chat", s.Chat)
	r.Post("/upload-doc", s.UploadDocument)
	r.Get("/list-docs", s.ListDocuments)
	r.Post("/delete-doc", s.DeleteDocument)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// --- DTOs ---

// QueryInput is the POST /chat request body.
type QueryInput struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
	Model     string `json:"model,omitempty"`
}

// QueryResponse is the POST /chat response body.
type QueryResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
}

// UploadResponse is the POST /upload-doc response body.
type UploadResponse struct {
	Message  string `json:"message"`
	FileID   int64  `json:"file_id"`
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
}

// DocumentInfo is one row of the GET /list-docs response.
type DocumentInfo struct {
	ID              int64     `json:"id"`
	Filename        string    `json:"filename"`
	UploadTimestamp time.Time `json:"upload_timestamp"`
}

// DeleteFileRequest is the POST /delete-doc request body.
type DeleteFileRequest struct {
	FileID int64 `json:"file_id"`
}

// DeleteFileResponse is the POST /delete-doc response body.
type DeleteFileResponse struct {
	Message       string `json:"message"`
	ChunksRemoved int    `json:"chunks_removed"`
}

// ErrorResponse is the error body for all endpoints.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Handlers ---

// Chat handles POST /chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req QueryInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Question is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	services, err := s.stack.Services(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	result, err := services.Answers.Answer(r.Context(), req.Question, req.Model)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if err := s.chatLog.InsertChatLog(r.Context(), sessionID, req.Question, result.Answer, result.Model); err != nil {
		logpkg.FromContext(r.Context()).Warn("Failed to record chat log",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Answer:    result.Answer,
		SessionID: sessionID,
		Model:     result.Model,
	})
}

// UploadDocument handles POST /upload-doc. The file is staged under the
// uploads directory and removed again if ingestion fails.
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "A file upload is required: "+err.Error())
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." {
		writeError(w, http.StatusBadRequest, "validation_failed", "Filename is required")
		return
	}

	// Reject unknown extensions before staging anything to disk.
	if ext := strings.ToLower(filepath.Ext(filename)); !loader.Supported(ext) {
		s.handleDomainError(w, domain.NewUnsupportedFormat(ext))
		return
	}

	path, err := s.stageUpload(file, filename)
	if err != nil {
		s.logger.Error("Failed to stage upload", zap.String("filename", filename), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to store upload")
		return
	}

	services, err := s.stack.Services(r.Context())
	if err != nil {
		_ = os.Remove(path)
		s.handleDomainError(w, err)
		return
	}

	docID, chunks, err := services.Documents.Ingest(r.Context(), path, filename)
	if err != nil {
		_ = os.Remove(path)
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Message:  fmt.Sprintf("File %s has been uploaded and indexed", filename),
		FileID:   docID,
		Filename: filename,
		Chunks:   chunks,
	})
}

// stageUpload writes the uploaded content to the uploads directory under a
// unique name that keeps the original extension.
func (s *Server) stageUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}

	path := filepath.Join(s.uploadsDir, uuid.NewString()+filepath.Ext(filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}

// ListDocuments handles GET /list-docs.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.registry.ListDocuments(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]DocumentInfo, len(docs))
	for i, d := range docs {
		items[i] = DocumentInfo{
			ID:              d.ID,
			Filename:        d.Filename,
			UploadTimestamp: d.UploadedAt,
		}
	}

	writeJSON(w, http.StatusOK, items)
}

// DeleteDocument handles POST /delete-doc.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	var req DeleteFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.FileID <= 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "file_id is required")
		return
	}

	services, err := s.stack.Services(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	removed, err := services.Documents.Delete(r.Context(), req.FileID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DeleteFileResponse{
		Message:       fmt.Sprintf("Document %d deleted", req.FileID),
		ChunksRemoved: removed,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	resp := map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	}
	if report.Stack != "" {
		resp["stack"] = report.Stack
	}

	writeJSON(w, httpStatus, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- Error mapping ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrUnsupportedFormat,
		domain.ErrVectorDimMismatch,
		domain.ErrNotReady,
		domain.ErrEmbeddingProviderError,
		domain.ErrModelProviderError,
		domain.ErrGenerationFailure,
		domain.ErrIndexingFailure,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
