// Package corpus is the document registry: it records where each document's content
// lives, turns that content into text on demand, and keeps a searchable index of the
// registered documents.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kirinuki/internal/extract"
	"github.com/hyperjump/kirinuki/internal/keyword"
	"github.com/hyperjump/kirinuki/internal/models"
	"github.com/hyperjump/kirinuki/internal/storage"
	"github.com/hyperjump/kirinuki/pkg/utils"
)

var (
	// ErrDocumentNotFound is returned for ids that were never registered.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrContentUnavailable is returned when a registered document has no readable
	// local copy.
	ErrContentUnavailable = errors.New("document content unavailable")
	// ErrInvalidDocument is returned for registration requests that cannot be served.
	ErrInvalidDocument = errors.New("invalid document")
)

const (
	databaseFile  = "corpus.db"
	searchDir     = "documents.bleve"
	localDocsDir  = "local_docs"
	legacyDocsDir = "web_docs"
)

// Corpus is a document registry rooted at a data directory.
type Corpus struct {
	root      string
	docsDir   string
	store     storage.Storage
	search    *keyword.BleveIndex
	speller   *keyword.SpellChecker
	extractor *extract.Extractor
	client    *http.Client
	retryBase time.Duration
	retries   uint64
	maxBytes  int64
	logger    *zap.Logger

	// mu serializes id generation with the registration that claims the id.
	mu sync.Mutex
}

// Option configures a Corpus.
type Option func(*Corpus)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Corpus) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets the client used by DownloadURL.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Corpus) {
		if client != nil {
			c.client = client
		}
	}
}

// WithDownloadRetry sets the Fibonacci backoff base and the number of retries for
// transient download failures.
func WithDownloadRetry(base time.Duration, retries uint64) Option {
	return func(c *Corpus) {
		if base > 0 {
			c.retryBase = base
		}
		c.retries = retries
	}
}

// WithMaxDownloadBytes caps the size of a downloaded document.
func WithMaxDownloadBytes(n int64) Option {
	return func(c *Corpus) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// Open opens (or creates) the registry under root: the SQLite database, the search
// index and the directory for locally stored documents.
func Open(ctx context.Context, root string, opts ...Option) (*Corpus, error) {
	root = utils.ExpandHome(root)
	c := &Corpus{
		root:      root,
		docsDir:   filepath.Join(root, localDocsDir),
		client:    &http.Client{Timeout: 60 * time.Second},
		retryBase: time.Second,
		retries:   3,
		maxBytes:  64 << 20,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.extractor = extract.NewExtractor(extract.WithLogger(c.logger))

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create corpus directory: %w", err)
	}
	if err := c.prepareDocsDir(); err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(filepath.Join(root, databaseFile))
	if err != nil {
		return nil, err
	}
	search, err := keyword.NewBleveIndex(filepath.Join(root, searchDir))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	c.store, c.search = store, search
	c.speller = keyword.NewSpellChecker(search)

	if err := c.syncSearchIndex(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// prepareDocsDir creates local_docs, adopting a legacy web_docs directory if present.
func (c *Corpus) prepareDocsDir() error {
	legacy := filepath.Join(c.root, legacyDocsDir)
	if _, err := os.Stat(c.docsDir); errors.Is(err, os.ErrNotExist) {
		if info, err := os.Stat(legacy); err == nil && info.IsDir() {
			if err := os.Rename(legacy, c.docsDir); err != nil {
				return fmt.Errorf("failed to adopt %s: %w", legacy, err)
			}
			c.logger.Info("moved legacy document directory", zap.String("from", legacy), zap.String("to", c.docsDir))
		}
	}
	if err := os.MkdirAll(c.docsDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", c.docsDir, err)
	}
	return nil
}

// syncSearchIndex re-indexes every record when the search index and the database
// disagree on the number of documents.
func (c *Corpus) syncSearchIndex(ctx context.Context) error {
	want, err := c.store.CountDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}
	have, err := c.search.DocCount()
	if err != nil {
		return fmt.Errorf("failed to count indexed documents: %w", err)
	}
	if uint64(want) == have {
		return nil
	}
	docs, err := c.store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	for _, doc := range docs {
		if err := c.search.Index(ctx, keyword.EntryFromDocument(doc)); err != nil {
			return err
		}
	}
	c.logger.Info("rebuilt document search index", zap.Int("documents", len(docs)))
	return nil
}

// Root returns the data directory.
func (c *Corpus) Root() string { return c.root }

// DocsDir returns the directory holding documents created or downloaded by the corpus.
func (c *Corpus) DocsDir() string { return c.docsDir }

// RegisterLocalFile registers (or re-registers) a document whose content is the file at
// path. The path is stored in absolute form.
func (c *Corpus) RegisterLocalFile(ctx context.Context, id, path, kind string, tags []string, description string) (*models.Document, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidDocument)
	}
	abs, err := filepath.Abs(utils.ExpandHome(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, path, err)
	}
	return c.register(ctx, &models.Document{
		ID:          id,
		Source:      models.SourceFile,
		Kind:        kind,
		Path:        abs,
		Tags:        tags,
		Description: description,
	})
}

// RegisterURL registers a document that originates from rawURL. localCopy, when not
// empty, is the file holding its downloaded content.
func (c *Corpus) RegisterURL(ctx context.Context, id, rawURL, localCopy, kind string, tags []string, description string) (*models.Document, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidDocument)
	}
	doc := &models.Document{
		ID:          id,
		Source:      models.SourceURL,
		Kind:        kind,
		URL:         strings.TrimSpace(rawURL),
		Tags:        tags,
		Description: description,
	}
	if localCopy != "" {
		abs, err := filepath.Abs(utils.ExpandHome(localCopy))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, localCopy, err)
		}
		doc.Path = abs
	}
	return c.register(ctx, doc)
}

func (c *Corpus) register(ctx context.Context, doc *models.Document) (*models.Document, error) {
	doc.ID = strings.TrimSpace(doc.ID)
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: document id is required", ErrInvalidDocument)
	}
	if doc.Kind == "" {
		doc.Kind = models.KindText
	}
	if err := c.store.UpsertDocument(ctx, doc); err != nil {
		return nil, err
	}
	// The search index is derived from the database; Open rebuilds it if it drifts.
	if err := c.search.Index(ctx, keyword.EntryFromDocument(doc)); err != nil {
		c.logger.Warn("failed to index document for search", zap.String("doc_id", doc.ID), zap.Error(err))
	}
	c.speller.Invalidate()
	c.logger.Info("registered document",
		zap.String("doc_id", doc.ID),
		zap.String("source", doc.Source),
		zap.String("kind", doc.Kind))
	return doc, nil
}

// ListDocuments returns every registered document ordered by id.
func (c *Corpus) ListDocuments(ctx context.Context) ([]models.Document, error) {
	docs, err := c.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Document, len(docs))
	for i, d := range docs {
		out[i] = *d
	}
	return out, nil
}

// GetDocument returns the record for id.
func (c *Corpus) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := c.store.GetDocument(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return doc, err
}

// LoadContent returns the text of document id, extracted according to its file
// extension and kind.
func (c *Corpus) LoadContent(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc, err := c.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.Path == "" {
		return "", fmt.Errorf("%w: document %s does not have a local copy yet", ErrContentUnavailable, id)
	}
	if doc.Kind != models.KindImage {
		if _, err := os.Stat(doc.Path); err != nil {
			return "", fmt.Errorf("%w: document %s: %w", ErrContentUnavailable, id, err)
		}
	}
	text, err := c.extractor.Extract(doc.Path, doc.Kind)
	if err != nil {
		return "", fmt.Errorf("%w: document %s: %w", ErrContentUnavailable, id, err)
	}
	return text, nil
}

// DocumentsForPath returns the ids of documents whose local copy is path.
func (c *Corpus) DocumentsForPath(ctx context.Context, path string) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	docs, err := c.store.DocumentsByPath(ctx, abs)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// LocalPaths returns the distinct local copy paths of all registered documents.
func (c *Corpus) LocalPaths(ctx context.Context) ([]string, error) {
	docs, err := c.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(docs))
	var paths []string
	for _, d := range docs {
		if d.Path == "" {
			continue
		}
		if _, ok := seen[d.Path]; ok {
			continue
		}
		seen[d.Path] = struct{}{}
		paths = append(paths, d.Path)
	}
	return paths, nil
}

// Count returns the number of registered documents.
func (c *Corpus) Count(ctx context.Context) (int64, error) {
	return c.store.CountDocuments(ctx)
}

// DiskUsage returns the bytes used by the data directory.
func (c *Corpus) DiskUsage() (int64, error) {
	return storage.DiskUsage(c.root)
}

// Close releases the database and the search index.
func (c *Corpus) Close() error {
	var errs []error
	if c.search != nil {
		errs = append(errs, c.search.Close())
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	return errors.Join(errs...)
}
