package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "./data"
	}
	if cfg.Storage.ManifestBackend == "" {
		cfg.Storage.ManifestBackend = ManifestBackendFile
	}
	if cfg.Storage.RedisURL == "" {
		cfg.Storage.RedisURL = "redis://localhost:6379/0"
	}
	if cfg.Storage.RedisKey == "" {
		cfg.Storage.RedisKey = "kirinuki:manifests"
	}
	if cfg.Embedding.HashDimensions == 0 {
		cfg.Embedding.HashDimensions = 128
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.ONNXModels == nil {
		cfg.Embedding.ONNXModels = map[string]string{
			"text-mini": "./models/all-MiniLM-L6-v2.onnx",
			"text-e5":   "./models/e5-small-v2.onnx",
			"text-bge":  "./models/bge-small-en-v1.5.onnx",
		}
	}
	if cfg.Embedding.ONNXDimensions == 0 {
		cfg.Embedding.ONNXDimensions = 384
	}
	if cfg.Embedding.ONNXOutputName == "" {
		cfg.Embedding.ONNXOutputName = "sentence_embedding"
	}
	if cfg.Embedding.OpenAIModel == "" {
		cfg.Embedding.OpenAIModel = "text-embedding-3-small"
	}
	if cfg.Embedding.OpenAIRateLimit == 0 {
		cfg.Embedding.OpenAIRateLimit = 5
	}
	if cfg.Chunking.WindowChars == 0 {
		cfg.Chunking.WindowChars = 800
	}
	if cfg.Chunking.OverlapChars == 0 {
		cfg.Chunking.OverlapChars = 200
	}
	if cfg.Query.DefaultTopK == 0 {
		cfg.Query.DefaultTopK = 5
	}
	if cfg.Query.MaxTopK == 0 {
		cfg.Query.MaxTopK = 100
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "flat"
	}
	if cfg.Index.InitialCapacity == 0 {
		cfg.Index.InitialCapacity = 2048
	}
	if cfg.Index.ListParallelism == 0 {
		cfg.Index.ListParallelism = 4
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rtf", ".csv", ".tsv", ".xlsx", ".html", ".htm", ".pdf", ".docx"}
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 400
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
