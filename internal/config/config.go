// Package config provides configuration loading and structs for kirinuki.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kirinuki/pkg/utils"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Query     QueryConfig     `yaml:"query"`
	Index     IndexConfig     `yaml:"index"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Manifest backends.
const (
	ManifestBackendFile  = "file"
	ManifestBackendRedis = "redis"
)

// StorageConfig says where the corpus and the index manifests live. DataDir holds
// corpus.db, documents.bleve, local_docs/ and (for the file backend) indexes/.
type StorageConfig struct {
	DataDir         string `yaml:"data_dir"`
	ManifestBackend string `yaml:"manifest_backend"`
	RedisURL        string `yaml:"redis_url"`
	RedisKey        string `yaml:"redis_key"`
}

// IndexesDir returns the directory of the file manifest backend.
func (s StorageConfig) IndexesDir() string {
	return filepath.Join(s.DataDir, "indexes")
}

// EmbeddingConfig holds the settings of the model catalog.
type EmbeddingConfig struct {
	HashDimensions int `yaml:"hash_dimensions"`
	CacheSize      int `yaml:"cache_size"`
	MaxTokens      int `yaml:"max_tokens"`
	// ONNXModels maps text-mini, text-e5 and text-bge to exported .onnx files.
	ONNXModels       map[string]string `yaml:"onnx_models"`
	ONNXDimensions   int               `yaml:"onnx_dimensions"`
	ONNXOutputName   string            `yaml:"onnx_output_name"`
	OpenAIModel      string            `yaml:"openai_model"`
	OpenAIDimensions int               `yaml:"openai_dimensions"`
	OpenAIBaseURL    string            `yaml:"openai_base_url"`
	OpenAIRateLimit  float64           `yaml:"openai_rate_limit"`
	// OpenAIAPIKey is read from OPENAI_API_KEY and never written to the file.
	OpenAIAPIKey string `yaml:"-"`
}

// ChunkingConfig holds the sliding-window defaults used when a build gives none.
type ChunkingConfig struct {
	WindowChars  int `yaml:"window_chars"`
	OverlapChars int `yaml:"overlap_chars"`
}

// QueryConfig bounds query sizes.
type QueryConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
}

// IndexConfig holds similarity index settings.
type IndexConfig struct {
	Type            string `yaml:"type"`
	InitialCapacity int    `yaml:"initial_capacity"`
	ListParallelism int    `yaml:"list_parallelism"`
}

// WatchConfig holds source-file watch settings.
type WatchConfig struct {
	Enabled *bool `yaml:"enabled"`
	// Directories are watched in addition to the folders of registered documents.
	// New files appearing in them are registered.
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	DebounceMs  int      `yaml:"debounce_ms"`
}

// EnabledOrDefault reports whether watching is on; it defaults to true when unset.
func (w *WatchConfig) EnabledOrDefault() bool {
	return w.Enabled == nil || *w.Enabled
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.finish(filepath.Dir(path))
	return &cfg, nil
}

// LoadOrDefault loads path, or returns the defaults when path is empty or does not
// exist. Relative paths in the defaults are resolved against the working directory.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		cfg, err := Load(path)
		if err == nil || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	cfg := &Config{}
	cfg.finish(wd)
	return cfg, nil
}

func (cfg *Config) finish(baseDir string) {
	ApplyDefaults(cfg)
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Embedding.OpenAIAPIKey == "" {
		cfg.Embedding.OpenAIAPIKey = key
	}
	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir, baseDir)
	for name, p := range cfg.Embedding.ONNXModels {
		cfg.Embedding.ONNXModels[name] = expandPath(p, baseDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], baseDir)
	}
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath makes path absolute. "~" is the home directory; other relative paths are
// relative to baseDir (the directory of the config file).
func expandPath(path string, baseDir string) string {
	if path == "" {
		return path
	}
	path = utils.ExpandHome(path)
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}
