package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns unnormalized vectors and counts calls.
type fakeEmbedder struct {
	dims   int
	mu     sync.Mutex
	calls  int
	closed bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	vec := make([]float32, f.dims)
	vec[len(text)%f.dims] = 3
	vec[(len(text)+1)%f.dims] = 4
	return vec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, f, texts)
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }

func (f *fakeEmbedder) Close() error {
	f.closed = true
	return nil
}

func TestNeuralModel_LazyOpen(t *testing.T) {
	opened := 0
	backend := &fakeEmbedder{dims: 4}
	m := NewNeuralModel("fake", "org/fake", func(context.Context) (Embedder, error) {
		opened++
		return backend, nil
	}, 10)

	assert.Equal(t, 0, opened)
	dims, err := m.Dimensions()
	require.NoError(t, err)
	assert.Equal(t, 4, dims)

	vec, err := m.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.8, 0, 0, 0.6}, vec, 1e-6)
	assert.InDelta(t, 1.0, norm(vec), 1e-6)

	_, err = m.Dimensions()
	require.NoError(t, err)
	assert.Equal(t, 1, opened)

	require.NoError(t, m.Close())
	assert.True(t, backend.closed)
}

func TestNeuralModel_CachesEmbeddings(t *testing.T) {
	backend := &fakeEmbedder{dims: 8}
	m := NewNeuralModel("fake", "org/fake", func(context.Context) (Embedder, error) {
		return backend, nil
	}, 10)

	ctx := context.Background()
	a, err := m.Embed(ctx, "repeat me")
	require.NoError(t, err)
	b, err := m.Embed(ctx, "repeat me")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, backend.calls)
}

func TestNeuralModel_CallerCannotAlterCache(t *testing.T) {
	backend := &fakeEmbedder{dims: 4}
	m := NewNeuralModel("fake", "org/fake", func(context.Context) (Embedder, error) {
		return backend, nil
	}, 10)

	ctx := context.Background()
	first, err := m.Embed(ctx, "abc")
	require.NoError(t, err)
	first[0] = 99
	second, err := m.Embed(ctx, "abc")
	require.NoError(t, err)
	second[3] = 99
	third, err := m.Embed(ctx, "abc")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.8, 0, 0, 0.6}, third, 1e-6)
	assert.Equal(t, 1, backend.calls)
}

func TestNeuralModel_UnavailableIsSticky(t *testing.T) {
	cause := errors.New("no runtime")
	opened := 0
	m := NewNeuralModel("fake", "org/fake", func(context.Context) (Embedder, error) {
		opened++
		return nil, cause
	}, 10)

	_, err := m.Dimensions()
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, cause)

	_, err = m.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, 1, opened)
}

func TestNeuralModel_RejectsWrongLength(t *testing.T) {
	m := NewNeuralModel("fake", "org/fake", func(context.Context) (Embedder, error) {
		return &shortEmbedder{fakeEmbedder{dims: 4}}, nil
	}, 0)
	_, err := m.Embed(context.Background(), "x")
	assert.Error(t, err)
}

type shortEmbedder struct{ fakeEmbedder }

func (s *shortEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 2}, nil
}
