// Package registry maps collection names to collections. Manifests are the
// durable source of truth; collections are an in-memory cache rebuilt from
// them on first use by replaying chunking and embedding over the corpus.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/hyperjump/kirinuki/internal/chunking"
	"github.com/hyperjump/kirinuki/internal/collection"
	"github.com/hyperjump/kirinuki/internal/embedding"
	"github.com/hyperjump/kirinuki/internal/manifest"
	"github.com/hyperjump/kirinuki/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnknownCollection is returned for names with no manifest.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrInvalidName is returned for collection names unusable as manifest keys.
	ErrInvalidName = manifest.ErrInvalidName
)

// DocumentSource supplies document ids and text.
type DocumentSource interface {
	ListDocuments(ctx context.Context) ([]models.Document, error)
	LoadContent(ctx context.Context, id string) (string, error)
}

// ModelResolver resolves embedding model names.
type ModelResolver interface {
	Resolve(name string) (embedding.Model, error)
}

// Registry owns the name to manifest and name to collection maps. The
// registry mutex guards only the maps; each name has its own mutex
// serializing builds, resets and lazy rebuilds of that name.
type Registry struct {
	corpus DocumentSource
	models ModelResolver
	store  manifest.Store
	logger *zap.Logger

	indexType       string
	initialCapacity int
	listParallelism int

	mu          sync.Mutex
	manifests   map[string]models.Manifest
	collections map[string]*collection.Collection
	generations map[string]uint64
	locks       map[string]*sync.Mutex
	// building holds the documents of builds in flight, by name.
	building map[string][]string
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithIndexType selects the vector index used by new collections.
func WithIndexType(indexType string) Option {
	return func(r *Registry) {
		r.indexType = indexType
	}
}

// WithInitialCapacity sets the initial vector capacity of new collections.
func WithInitialCapacity(n int) Option {
	return func(r *Registry) {
		r.initialCapacity = n
	}
}

// WithListParallelism bounds how many collections List materializes at once.
func WithListParallelism(n int) Option {
	return func(r *Registry) {
		r.listParallelism = n
	}
}

// New loads every manifest from store. Manifests whose model or policy no
// longer resolves are stale: they are deleted from the store and logged.
func New(ctx context.Context, corpus DocumentSource, resolver ModelResolver, store manifest.Store, opts ...Option) (*Registry, error) {
	r := &Registry{
		corpus:          corpus,
		models:          resolver,
		store:           store,
		logger:          zap.NewNop(),
		listParallelism: 4,
		manifests:       make(map[string]models.Manifest),
		collections:     make(map[string]*collection.Collection),
		generations:     make(map[string]uint64),
		locks:           make(map[string]*sync.Mutex),
		building:        make(map[string][]string),
	}
	for _, opt := range opts {
		opt(r)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load manifests: %w", err)
	}
	for _, m := range loaded {
		if err := r.checkManifest(m); err != nil {
			r.logger.Warn("dropping stale manifest", zap.String("collection", m.Name), zap.Error(err))
			if delErr := store.Delete(ctx, m.Name); delErr != nil && !errors.Is(delErr, ErrInvalidName) {
				r.logger.Warn("failed to delete stale manifest", zap.String("collection", m.Name), zap.Error(delErr))
			}
			continue
		}
		r.manifests[m.Name] = m
	}
	r.logger.Info("registry loaded", zap.Int("manifests", len(r.manifests)))
	return r, nil
}

func (r *Registry) checkManifest(m models.Manifest) error {
	if err := manifest.ValidateName(m.Name); err != nil {
		return err
	}
	if _, err := r.models.Resolve(m.Model); err != nil {
		return err
	}
	if _, err := chunking.Resolve(m.Policy, m.ChunkConfig); err != nil {
		return err
	}
	return nil
}

// DefaultName is the collection name used when a build request names none.
func DefaultName(model, policy string) string {
	return model + "_" + policy
}

func (r *Registry) nameLock(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[name]
	if !ok {
		l = &sync.Mutex{}
		r.locks[name] = l
	}
	return l
}

// Build assembles a collection from scratch and replaces any previous
// collection of the same name. Documents default to every corpus document
// in id order. The first document whose text cannot be loaded aborts the
// build; the previous collection and manifest are then left untouched.
func (r *Registry) Build(ctx context.Context, req models.BuildRequest) (models.Status, error) {
	policy, err := chunking.Resolve(req.Policy, req.ChunkConfig)
	if err != nil {
		return models.Status{}, err
	}
	model, err := r.models.Resolve(req.Model)
	if err != nil {
		return models.Status{}, err
	}

	name := req.Name
	if name == "" {
		name = DefaultName(req.Model, req.Policy)
	}
	if err := manifest.ValidateName(name); err != nil {
		return models.Status{}, err
	}

	documents := req.Documents
	if len(documents) == 0 {
		documents, err = r.allDocumentIDs(ctx)
		if err != nil {
			return models.Status{}, err
		}
	}

	m := models.Manifest{
		Name:        name,
		Model:       req.Model,
		Policy:      req.Policy,
		Documents:   append([]string(nil), documents...),
		ChunkConfig: policy.Config(),
		CreatedAt:   time.Now().UTC(),
	}

	lock := r.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	gen := r.generations[name]
	r.building[name] = m.Documents
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.building, name)
		r.mu.Unlock()
	}()

	start := time.Now()
	coll, err := r.assemble(ctx, m, policy, model)
	if err != nil {
		return models.Status{}, err
	}
	if err := r.store.Save(ctx, m); err != nil {
		return models.Status{}, fmt.Errorf("save manifest %s: %w", name, err)
	}

	// A document invalidated mid-build may have been read before it changed.
	// The manifest stands; the collection is left for the next Get to rebuild.
	r.mu.Lock()
	fresh := r.generations[name] == gen
	r.manifests[name] = m
	if fresh {
		r.collections[name] = coll
	} else {
		delete(r.collections, name)
	}
	r.generations[name]++
	r.mu.Unlock()
	if !fresh {
		r.logger.Info("collection invalidated during build", zap.String("collection", name))
	}

	status := coll.Status()
	r.logger.Info("collection built",
		zap.String("collection", name),
		zap.String("model", m.Model),
		zap.String("policy", m.Policy),
		zap.Int("documents", status.Documents),
		zap.Int("chunks", status.Chunks),
		zap.Duration("took", time.Since(start)))
	return status, nil
}

func (r *Registry) allDocumentIDs(ctx context.Context) ([]string, error) {
	docs, err := r.corpus.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	sort.Strings(ids)
	return ids, nil
}

// assemble builds a collection off to the side. Nothing is published here.
func (r *Registry) assemble(ctx context.Context, m models.Manifest, policy chunking.Policy, model embedding.Model) (*collection.Collection, error) {
	coll, err := collection.New(m.Name, policy, m.Policy, model, m.Model,
		collection.WithIndexType(r.indexType),
		collection.WithInitialCapacity(r.initialCapacity),
		collection.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		models.MetaPolicy: m.Policy,
		models.MetaModel:  m.Model,
	}
	for _, docID := range m.Documents {
		text, err := r.corpus.LoadContent(ctx, docID)
		if err != nil {
			return nil, fmt.Errorf("collection %s: document %s: %w", m.Name, docID, err)
		}
		if err := coll.AddDocument(ctx, docID, text, metadata); err != nil {
			return nil, fmt.Errorf("collection %s: %w", m.Name, err)
		}
	}
	return coll, nil
}

// Get returns the named collection, rebuilding it from its manifest if it
// is not in memory. A failed rebuild caches nothing.
func (r *Registry) Get(ctx context.Context, name string) (*collection.Collection, error) {
	r.mu.Lock()
	coll, ok := r.collections[name]
	_, known := r.manifests[name]
	r.mu.Unlock()
	if ok {
		return coll, nil
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}

	lock := r.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	coll, ok = r.collections[name]
	m, known := r.manifests[name]
	gen := r.generations[name]
	r.mu.Unlock()
	if ok {
		return coll, nil
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}

	policy, err := chunking.Resolve(m.Policy, m.ChunkConfig)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", name, err)
	}
	model, err := r.models.Resolve(m.Model)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", name, err)
	}

	start := time.Now()
	coll, err = r.assemble(ctx, m, policy, model)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.generations[name] == gen {
		r.collections[name] = coll
	}
	r.mu.Unlock()

	r.logger.Info("collection rebuilt from manifest",
		zap.String("collection", name),
		zap.Int("chunks", coll.Len()),
		zap.Duration("took", time.Since(start)))
	return coll, nil
}

// Query embeds text and returns the topK most similar chunks of the named
// collection. When minScore is set, weaker results are dropped.
func (r *Registry) Query(ctx context.Context, name, text string, topK int, minScore *float64) ([]models.QueryResult, error) {
	coll, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	hits, err := coll.Query(ctx, text, topK)
	if err != nil {
		return nil, err
	}

	results := make([]models.QueryResult, 0, len(hits))
	for _, h := range hits {
		if minScore != nil && h.Score < *minScore {
			continue
		}
		results = append(results, models.QueryResult{
			Score:      h.Score,
			ChunkID:    h.Record.ID,
			DocumentID: h.Record.DocumentID,
			Text:       h.Record.Text,
		})
	}
	return results, nil
}

// Status returns the status of the named collection, materializing it if needed.
func (r *Registry) Status(ctx context.Context, name string) (models.Status, error) {
	coll, err := r.Get(ctx, name)
	if err != nil {
		return models.Status{}, err
	}
	return coll.Status(), nil
}

// Reset drops the named collection and deletes its manifest. Resetting an
// unknown name is not an error.
func (r *Registry) Reset(ctx context.Context, name string) error {
	if err := manifest.ValidateName(name); err != nil {
		return err
	}
	lock := r.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	if err := r.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete manifest %s: %w", name, err)
	}

	r.mu.Lock()
	_, existed := r.manifests[name]
	delete(r.manifests, name)
	delete(r.collections, name)
	r.generations[name]++
	r.mu.Unlock()

	if existed {
		r.logger.Info("collection reset", zap.String("collection", name))
	}
	return nil
}

// ResetAll resets every known collection.
func (r *Registry) ResetAll(ctx context.Context) error {
	for _, name := range r.Names() {
		if err := r.Reset(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Names returns all manifest names in lexicographic order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.manifests))
	for name := range r.manifests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Manifest returns the manifest for name.
func (r *Registry) Manifest(name string) (models.Manifest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.manifests[name]
	return m, ok
}

// List returns the status of every collection in name order, materializing
// collections that are not in memory yet.
func (r *Registry) List(ctx context.Context) ([]models.Status, error) {
	names := r.Names()
	statuses := make([]models.Status, len(names))

	g, gctx := errgroup.WithContext(ctx)
	if r.listParallelism > 0 {
		g.SetLimit(r.listParallelism)
	}
	for i, name := range names {
		g.Go(func() error {
			st, err := r.Status(gctx, name)
			if err != nil {
				return err
			}
			statuses[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

// Invalidate drops the in-memory collections built from documentID so the
// next Get rebuilds them with fresh content. Manifests are kept. A build in
// flight that includes documentID finishes without caching its collection.
// It returns the names of the dropped collections.
func (r *Registry) Invalidate(documentID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, docs := range r.building {
		if slices.Contains(docs, documentID) {
			r.generations[name]++
		}
	}

	var dropped []string
	for name, m := range r.manifests {
		if !slices.Contains(m.Documents, documentID) {
			continue
		}
		r.generations[name]++
		if _, ok := r.collections[name]; ok {
			delete(r.collections, name)
			dropped = append(dropped, name)
		}
	}
	sort.Strings(dropped)
	if len(dropped) > 0 {
		r.logger.Info("collections invalidated", zap.String("document", documentID), zap.Strings("collections", dropped))
	}
	return dropped
}
