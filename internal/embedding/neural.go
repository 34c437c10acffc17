package embedding

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Opener opens a neural backend. It is called at most once per NeuralModel.
type Opener func(ctx context.Context) (Embedder, error)

// NeuralModel wraps a named checkpoint served by an Embedder backend. The
// backend is opened on first use; if that fails every later call returns
// ErrBackendUnavailable with the original cause and no reopen is attempted.
type NeuralModel struct {
	name       string
	checkpoint string
	open       Opener
	cache      *EmbeddingCache
	logger     *zap.Logger

	mu         sync.Mutex
	loaded     bool
	backend    Embedder
	dimensions int
	loadErr    error
}

// NeuralOption configures a NeuralModel.
type NeuralOption func(*NeuralModel)

// WithNeuralLogger sets the logger used when the backend is opened.
func WithNeuralLogger(logger *zap.Logger) NeuralOption {
	return func(m *NeuralModel) {
		m.logger = logger
	}
}

// NewNeuralModel returns a model backed by the embedder open returns.
func NewNeuralModel(name, checkpoint string, open Opener, cacheSize int, opts ...NeuralOption) *NeuralModel {
	m := &NeuralModel{
		name:       name,
		checkpoint: checkpoint,
		open:       open,
		cache:      NewEmbeddingCache(cacheSize),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the catalog name of the model.
func (m *NeuralModel) Name() string { return m.name }

// Checkpoint returns the checkpoint identifier the model was configured with.
func (m *NeuralModel) Checkpoint() string { return m.checkpoint }

// Dimensions opens the backend if needed and returns its vector length.
func (m *NeuralModel) Dimensions() (int, error) {
	if _, err := m.load(context.Background()); err != nil {
		return 0, err
	}
	return m.dimensions, nil
}

// Embed returns the unit-length embedding of text.
func (m *NeuralModel) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := m.cache.Get(text); ok {
		return cached, nil
	}
	backend, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	vec, err := backend.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed with %s: %w", m.name, err)
	}
	if len(vec) != m.dimensions {
		return nil, fmt.Errorf("embed with %s: backend returned %d values, want %d", m.name, len(vec), m.dimensions)
	}

	out := make([]float32, len(vec))
	copy(out, vec)
	NormalizeL2Slice(out)
	m.cache.Set(text, out)
	return out, nil
}

// Close releases the backend if it was opened.
func (m *NeuralModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backend == nil {
		return nil
	}
	err := m.backend.Close()
	m.backend = nil
	m.loaded = false
	return err
}

func (m *NeuralModel) load(ctx context.Context) (Embedder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return m.backend, m.loadErr
	}
	m.loaded = true

	backend, err := m.open(ctx)
	if err == nil && backend.Dimensions() <= 0 {
		_ = backend.Close()
		err = fmt.Errorf("backend reports %d dimensions", backend.Dimensions())
	}
	if err != nil {
		m.loadErr = fmt.Errorf("%w: %s (%s): %w", ErrBackendUnavailable, m.name, m.checkpoint, err)
		m.logger.Warn("embedding backend unavailable",
			zap.String("model", m.name),
			zap.String("checkpoint", m.checkpoint),
			zap.Error(err))
		return nil, m.loadErr
	}

	m.backend = backend
	m.dimensions = backend.Dimensions()
	m.logger.Info("embedding backend loaded",
		zap.String("model", m.name),
		zap.String("checkpoint", m.checkpoint),
		zap.Int("dimensions", m.dimensions))
	return m.backend, nil
}
