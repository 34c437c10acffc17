package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAIServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input      []string `json:"input"`
			Model      string   `json:"model"`
			Dimensions int      `json:"dimensions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data := make([]map[string]any, 0, len(req.Input))
		// answer in reverse order to exercise index handling
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float32, dims)
			vec[len(req.Input[i])%dims] = 2
			data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": vec})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	srv := newOpenAIServer(t, 4)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Dimensions: 4, RateLimit: 100})
	require.NoError(t, err)

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0, 2, 0, 0}, vecs[0])
	assert.Equal(t, []float32{0, 0, 2, 0}, vecs[1])
	assert.Equal(t, 4, e.Dimensions())
}

func TestOpenAIEmbedder_RequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{})
	assert.Error(t, err)
}

func TestNeuralModel_OverOpenAI(t *testing.T) {
	srv := newOpenAIServer(t, 3)
	defer srv.Close()

	m := NewNeuralModel(ModelTextOpenAI, DefaultOpenAIModel, func(context.Context) (Embedder, error) {
		return NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Dimensions: 3, RateLimit: 100})
	}, 10)

	vec, err := m.Embed(context.Background(), "abcd")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, vec)
}
