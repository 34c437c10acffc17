// Package collection implements a named similarity index: the chunk
// records of one or more documents, their vectors, and cosine top-k
// retrieval over them.
package collection

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/hyperjump/kirinuki/internal/chunking"
	"github.com/hyperjump/kirinuki/internal/embedding"
	"github.com/hyperjump/kirinuki/internal/models"
	"github.com/hyperjump/kirinuki/internal/vector"
	"go.uber.org/zap"
)

// Hit is one ranked query result.
type Hit struct {
	Score  float64
	Record models.ChunkRecord
}

// Collection owns chunk records and their vectors. Record i is stored
// under label i of the vector index.
type Collection struct {
	name       string
	policyName string
	modelName  string
	policy     chunking.Policy
	model      embedding.Model
	dimensions int

	index     vector.Index
	records   []models.ChunkRecord
	documents map[string]struct{}
	logger    *zap.Logger
	mu        sync.RWMutex
}

// Option configures a Collection.
type Option func(*options)

type options struct {
	indexType       string
	initialCapacity int
	logger          *zap.Logger
}

// WithIndexType selects the vector index implementation.
func WithIndexType(indexType string) Option {
	return func(o *options) { o.indexType = indexType }
}

// WithInitialCapacity sets how many vectors the index reserves before its first growth.
func WithInitialCapacity(n int) Option {
	return func(o *options) { o.initialCapacity = n }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates an empty collection. The model's dimensionality is fixed here
// for the collection's lifetime, so a neural model is loaded now.
func New(name string, policy chunking.Policy, policyName string, model embedding.Model, modelName string, opts ...Option) (*Collection, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	dims, err := model.Dimensions()
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", modelName, err)
	}
	index, err := vector.NewIndex(o.indexType, dims, o.initialCapacity)
	if err != nil {
		return nil, fmt.Errorf("create vector index: %w", err)
	}

	return &Collection{
		name:       name,
		policyName: policyName,
		modelName:  modelName,
		policy:     policy,
		model:      model,
		dimensions: dims,
		index:      index,
		documents:  make(map[string]struct{}),
		logger:     o.logger,
	}, nil
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// AddDocument segments text, embeds every segment and appends the chunks.
// Nothing is inserted if any segment fails to embed. Adding the same
// document again appends a second set of chunks.
func (c *Collection) AddDocument(ctx context.Context, documentID, text string, metadata map[string]string) error {
	segments := c.policy.Chunk(text)
	if len(segments) == 0 {
		c.logger.Debug("document produced no chunks", zap.String("collection", c.name), zap.String("document", documentID))
		return nil
	}

	vectors := make([][]float32, len(segments))
	for i, segment := range segments {
		vec, err := c.model.Embed(ctx, segment)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", models.ChunkID(documentID, i), err)
		}
		if len(vec) != c.dimensions {
			return fmt.Errorf("%w: model %s returned %d values for chunk %s, collection expects %d",
				vector.ErrDimensionMismatch, c.modelName, len(vec), models.ChunkID(documentID, i), c.dimensions)
		}
		vectors[i] = vec
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	first, err := c.index.Add(vectors)
	if err != nil {
		return fmt.Errorf("insert vectors for %s: %w", documentID, err)
	}
	if first != len(c.records) {
		return fmt.Errorf("index label %d out of step with %d records", first, len(c.records))
	}

	for i, segment := range segments {
		c.records = append(c.records, models.ChunkRecord{
			ID:         models.ChunkID(documentID, i),
			DocumentID: documentID,
			Ordinal:    i,
			Text:       segment,
			Metadata:   c.chunkMetadata(metadata, i),
		})
	}
	c.documents[documentID] = struct{}{}

	c.logger.Debug("document added",
		zap.String("collection", c.name),
		zap.String("document", documentID),
		zap.Int("chunks", len(segments)))
	return nil
}

func (c *Collection) chunkMetadata(metadata map[string]string, ordinal int) map[string]string {
	meta := make(map[string]string, len(metadata)+3)
	meta[models.MetaPolicy] = c.policyName
	meta[models.MetaModel] = c.modelName
	for k, v := range metadata {
		meta[k] = v
	}
	meta[models.MetaOrder] = strconv.Itoa(ordinal)
	return meta
}

// Query returns up to topK chunks ranked by cosine similarity to text.
// An empty collection or a non-positive topK yields no hits.
func (c *Collection) Query(ctx context.Context, text string, topK int) ([]Hit, error) {
	if topK <= 0 || c.Len() == 0 {
		return nil, nil
	}

	vec, err := c.model.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) != c.dimensions {
		return nil, fmt.Errorf("%w: model %s returned %d values for the query, collection expects %d",
			vector.ErrDimensionMismatch, c.modelName, len(vec), c.dimensions)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	results, err := c.index.Search(vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", c.name, err)
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		if r.Label >= len(c.records) {
			continue
		}
		hits = append(hits, Hit{Score: r.Score, Record: c.records[r.Label]})
	}
	return hits, nil
}

// Status reports the collection's names and sizes.
func (c *Collection) Status() models.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.Status{
		Name:      c.name,
		Model:     c.modelName,
		Policy:    c.policyName,
		Documents: len(c.documents),
		Chunks:    len(c.records),
	}
}

// Len returns the number of chunk records.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// HasDocument reports whether any chunk of documentID is in the collection.
func (c *Collection) HasDocument(documentID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.documents[documentID]
	return ok
}
