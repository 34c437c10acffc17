package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kirinuki/internal/chunking"
	"github.com/hyperjump/kirinuki/internal/corpus"
	"github.com/hyperjump/kirinuki/internal/embedding"
	"github.com/hyperjump/kirinuki/internal/models"
	"github.com/hyperjump/kirinuki/internal/registry"
	"github.com/hyperjump/kirinuki/internal/service"
)

// QueryResponse is the body returned by an index query.
type QueryResponse struct {
	Results []models.QueryResult `json:"results"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.Health(r.Context())
	if err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, h)
}

func (s *Server) handleListIndexes(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.svc.Indexes(r.Context())
	if err != nil {
		s.fail(w, "list indexes", err)
		return
	}
	s.respondJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleBuildIndex(w http.ResponseWriter, r *http.Request) {
	var req models.BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("build index request",
		zap.String("name", req.Name),
		zap.String("model", req.Model),
		zap.String("policy", req.Policy),
		zap.Int("documents", len(req.Documents)))
	status, err := s.svc.Build(r.Context(), req)
	if err != nil {
		s.fail(w, "build index", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, status)
}

func (s *Server) handleGetIndex(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Index(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, "get index", err)
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleResetIndex(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.svc.Reset(r.Context(), name); err != nil {
		s.fail(w, "reset index", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"name": name, "status": "reset"})
}

func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ResetAll(r.Context()); err != nil {
		s.fail(w, "reset all indexes", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := chi.URLParam(r, "name")
	s.logger.Debug("query request", zap.String("index", name), zap.Int("top_k", req.TopK))
	results, err := s.svc.Query(r.Context(), name, req)
	if err != nil {
		s.fail(w, "query", err)
		return
	}
	s.respondJSON(w, http.StatusOK, QueryResponse{Results: results})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	result, err := s.svc.Documents(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.fail(w, "list documents", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("create document request",
		zap.String("id", input.ID),
		zap.String("path", input.Path),
		zap.String("url", input.URL))
	doc, err := s.svc.Ingest(r.Context(), input)
	if err != nil {
		s.fail(w, "create document", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, doc)
}

// maxUploadBytes bounds a multipart upload.
const maxUploadBytes = 32 << 20

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	doc, err := s.svc.Upload(r.Context(), header.Filename, content)
	if err != nil {
		s.fail(w, "upload document", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, doc)
}

type folderRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleRegisterFolder(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ids, err := s.svc.IngestFolder(r.Context(), req.Path)
	if err != nil {
		s.fail(w, "register folder", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.respondJSON(w, http.StatusCreated, map[string][]string{"ids": ids})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "get document", err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrUnknownCollection),
		errors.Is(err, corpus.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, chunking.ErrInvalidConfig),
		errors.Is(err, chunking.ErrUnknownPolicy),
		errors.Is(err, embedding.ErrUnknownModel),
		errors.Is(err, registry.ErrInvalidName),
		errors.Is(err, corpus.ErrInvalidDocument),
		errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, corpus.ErrContentUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, embedding.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
