package config

import "github.com/hyperjump/kirinuki/internal/embedding"

// CatalogConfig maps the embedding section onto the model catalog settings.
func (e EmbeddingConfig) CatalogConfig() embedding.CatalogConfig {
	return embedding.CatalogConfig{
		HashDimensions: e.HashDimensions,
		CacheSize:      e.CacheSize,
		MaxTokens:      e.MaxTokens,
		ONNXModels:     e.ONNXModels,
		ONNXDimensions: e.ONNXDimensions,
		ONNXOutputName: e.ONNXOutputName,
		OpenAI: embedding.OpenAIConfig{
			APIKey:     e.OpenAIAPIKey,
			BaseURL:    e.OpenAIBaseURL,
			Model:      e.OpenAIModel,
			Dimensions: e.OpenAIDimensions,
			RateLimit:  e.OpenAIRateLimit,
		},
	}
}
