package embedding

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Catalog model names.
const (
	ModelTextHash   = "text-hash"
	ModelTextTable  = "text-table"
	ModelTextImage  = "text-image"
	ModelTextMini   = "text-mini"
	ModelTextE5     = "text-e5"
	ModelTextBGE    = "text-bge"
	ModelTextOpenAI = "text-openai"
)

// Checkpoints served by the ONNX models.
var onnxCheckpoints = map[string]string{
	ModelTextMini: "sentence-transformers/all-MiniLM-L6-v2",
	ModelTextE5:   "intfloat/e5-small-v2",
	ModelTextBGE:  "BAAI/bge-small-en-v1.5",
}

// CatalogConfig holds the settings the catalog builds its models from.
type CatalogConfig struct {
	HashDimensions int
	CacheSize      int
	MaxTokens      int
	// ONNXModels maps a model name (text-mini, text-e5, text-bge) to its exported .onnx file.
	ONNXModels     map[string]string
	ONNXDimensions int
	ONNXOutputName string
	OpenAI         OpenAIConfig
}

// Catalog is the fixed set of embedding models a registry can resolve by name.
type Catalog struct {
	models map[string]Model
	logger *zap.Logger
	mu     sync.Mutex
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithLogger sets the catalog logger.
func WithLogger(logger *zap.Logger) CatalogOption {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// NewCatalog builds every model named by the catalog. Neural backends are
// not opened until a model is first used.
func NewCatalog(cfg CatalogConfig, opts ...CatalogOption) *Catalog {
	c := &Catalog{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	c.models = map[string]Model{
		ModelTextHash:  NewHashModel(ModelTextHash, cfg.HashDimensions),
		ModelTextTable: NewTableHashModel(ModelTextTable, cfg.HashDimensions),
		ModelTextImage: NewImageHashModel(ModelTextImage, cfg.HashDimensions),
	}

	neuralLogger := WithNeuralLogger(c.logger)
	for name, checkpoint := range onnxCheckpoints {
		onnxCfg := ONNXConfig{
			ModelPath:  cfg.ONNXModels[name],
			Dimensions: cfg.ONNXDimensions,
			MaxTokens:  cfg.MaxTokens,
			OutputName: cfg.ONNXOutputName,
		}
		c.models[name] = NewNeuralModel(name, checkpoint, func(context.Context) (Embedder, error) {
			e, err := NewONNXEmbedder(onnxCfg)
			if err != nil {
				return nil, err
			}
			return e, nil
		}, cfg.CacheSize, neuralLogger)
	}

	openaiCfg := cfg.OpenAI
	if openaiCfg.Model == "" {
		openaiCfg.Model = DefaultOpenAIModel
	}
	c.models[ModelTextOpenAI] = NewNeuralModel(ModelTextOpenAI, openaiCfg.Model, func(context.Context) (Embedder, error) {
		e, err := NewOpenAIEmbedder(openaiCfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	}, cfg.CacheSize, neuralLogger)

	return c
}

// Resolve returns the model registered under name.
func (c *Catalog) Resolve(name string) (Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return m, nil
}

// Register adds or replaces a model. It is meant for embedding custom
// models alongside the built-in ones.
func (c *Catalog) Register(m Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[m.Name()] = m
}

// Names returns all model names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.models))
	for name := range c.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases every neural backend that was opened.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, m := range c.models {
		closer, ok := m.(interface{ Close() error })
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
