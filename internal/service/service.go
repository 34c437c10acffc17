// Package service puts the corpus and the index registry behind one set of operations
// used by both the HTTP API and the command line.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kirinuki/internal/chunking"
	"github.com/hyperjump/kirinuki/internal/config"
	"github.com/hyperjump/kirinuki/internal/corpus"
	"github.com/hyperjump/kirinuki/internal/models"
	"github.com/hyperjump/kirinuki/internal/registry"
)

// ErrInvalidRequest is returned for malformed requests.
var ErrInvalidRequest = errors.New("invalid request")

// DefaultSearchLimit caps document searches that give no limit.
const DefaultSearchLimit = 20

// FileTracker follows the files behind newly registered documents.
type FileTracker interface {
	TrackFile(path string) error
}

// Health summarizes the state of the data directory.
type Health struct {
	Status         string `json:"status"`
	Documents      int64  `json:"documents"`
	Indexes        int    `json:"indexes"`
	DiskUsageBytes int64  `json:"disk_usage_bytes"`
}

// Service exposes index and document operations.
type Service struct {
	corpus   *corpus.Corpus
	registry *registry.Registry
	chunking config.ChunkingConfig
	query    config.QueryConfig
	tracker  FileTracker
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithFileTracker reports the local files of ingested documents to t.
func WithFileTracker(t FileTracker) Option {
	return func(s *Service) { s.tracker = t }
}

// New creates a Service. Chunking and query settings fill in what requests leave out.
func New(c *corpus.Corpus, r *registry.Registry, chunkCfg config.ChunkingConfig, queryCfg config.QueryConfig, opts ...Option) *Service {
	s := &Service{
		corpus:   c,
		registry: r,
		chunking: chunkCfg,
		query:    queryCfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build builds or replaces an index. A sliding build without window settings uses the
// configured ones.
func (s *Service) Build(ctx context.Context, req models.BuildRequest) (models.Status, error) {
	if strings.TrimSpace(req.Model) == "" || strings.TrimSpace(req.Policy) == "" {
		return models.Status{}, fmt.Errorf("%w: model and policy are required", ErrInvalidRequest)
	}
	if req.ChunkConfig == (models.ChunkConfig{}) {
		if p, err := chunking.Resolve(req.Policy, req.ChunkConfig); err == nil && p.Name() == chunking.NameSliding {
			req.ChunkConfig = models.ChunkConfig{
				WindowChars:  s.chunking.WindowChars,
				OverlapChars: s.chunking.OverlapChars,
			}
		}
	}
	return s.registry.Build(ctx, req)
}

// Query runs req against the named index. TopK defaults and caps come from the config.
func (s *Service) Query(ctx context.Context, name string, req models.QueryRequest) ([]models.QueryResult, error) {
	if err := req.Validate(s.query.DefaultTopK, s.query.MaxTopK); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return s.registry.Query(ctx, name, req.Text, req.TopK, req.MinScore)
}

// Indexes returns the status of every index.
func (s *Service) Indexes(ctx context.Context) ([]models.Status, error) {
	return s.registry.List(ctx)
}

// Index returns the status of one index.
func (s *Service) Index(ctx context.Context, name string) (models.Status, error) {
	return s.registry.Status(ctx, name)
}

// Reset drops one index.
func (s *Service) Reset(ctx context.Context, name string) error {
	return s.registry.Reset(ctx, name)
}

// ResetAll drops every index.
func (s *Service) ResetAll(ctx context.Context) error {
	return s.registry.ResetAll(ctx)
}

// Documents lists registered documents, or searches them when query is not blank.
func (s *Service) Documents(ctx context.Context, query string, limit int) (*corpus.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		docs, err := s.corpus.ListDocuments(ctx)
		if err != nil {
			return nil, err
		}
		return &corpus.SearchResult{Documents: docs}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return s.corpus.Search(ctx, query, limit)
}

// Document returns one registered document.
func (s *Service) Document(ctx context.Context, id string) (*models.Document, error) {
	return s.corpus.GetDocument(ctx, id)
}

// Ingest registers a document from inline content, a local path or a URL.
func (s *Service) Ingest(ctx context.Context, in models.DocumentInput) (*models.Document, error) {
	doc, err := s.corpus.Ingest(ctx, in)
	if err != nil {
		return nil, err
	}
	// A re-registered id may now point at different content.
	s.registry.Invalidate(doc.ID)
	s.track(ctx, doc.ID)
	return doc, nil
}

// Upload stores an uploaded file in the data directory and registers it.
func (s *Service) Upload(ctx context.Context, filename string, content []byte) (*models.Document, error) {
	doc, err := s.corpus.UploadFile(ctx, filename, content)
	if err != nil {
		return nil, err
	}
	s.track(ctx, doc.ID)
	return doc, nil
}

// IngestFolder registers every file below dir and returns the new ids.
func (s *Service) IngestFolder(ctx context.Context, dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidRequest)
	}
	ids, err := s.corpus.RegisterFolder(ctx, dir)
	for _, id := range ids {
		s.registry.Invalidate(id)
		s.track(ctx, id)
	}
	return ids, err
}

func (s *Service) track(ctx context.Context, id string) {
	if s.tracker == nil {
		return
	}
	doc, err := s.corpus.GetDocument(ctx, id)
	if err != nil || doc.Path == "" {
		return
	}
	if err := s.tracker.TrackFile(doc.Path); err != nil {
		s.logger.Warn("Failed to watch document file", zap.String("path", doc.Path), zap.Error(err))
	}
}

// Health reports document and index counts and disk usage.
func (s *Service) Health(ctx context.Context) (Health, error) {
	count, err := s.corpus.Count(ctx)
	if err != nil {
		return Health{}, err
	}
	usage, err := s.corpus.DiskUsage()
	if err != nil {
		return Health{}, err
	}
	return Health{
		Status:         "ok",
		Documents:      count,
		Indexes:        len(s.registry.Names()),
		DiskUsageBytes: usage,
	}, nil
}
