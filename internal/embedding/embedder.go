// Package embedding turns text into fixed-length vectors.
//
// A Model is what collections embed with. Hashing models are pure Go and
// deterministic; neural models wrap an Embedder backend (ONNX Runtime or
// the OpenAI API) that is opened on first use.
package embedding

import (
	"context"
	"errors"
	"math"
)

var (
	// ErrUnknownModel is returned when a model name is not in the catalog.
	ErrUnknownModel = errors.New("unknown embedding model")
	// ErrBackendUnavailable is returned when a neural backend cannot be opened.
	ErrBackendUnavailable = errors.New("embedding backend unavailable")
)

// Model embeds text for a collection.
type Model interface {
	Name() string
	// Dimensions is fixed for the lifetime of the model. Neural models
	// may have to load their backend to answer.
	Dimensions() (int, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Embedder is a neural backend producing vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// NormalizeL2Slice normalizes the slice in place to unit L2 norm.
// A zero vector is left unchanged.
func NormalizeL2Slice(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range x {
		x[i] = float32(float64(x[i]) / norm)
	}
}

func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
