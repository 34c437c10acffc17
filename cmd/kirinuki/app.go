package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kirinuki/internal/cli"
	"github.com/hyperjump/kirinuki/internal/client"
	"github.com/hyperjump/kirinuki/internal/config"
	"github.com/hyperjump/kirinuki/internal/corpus"
	"github.com/hyperjump/kirinuki/internal/embedding"
	"github.com/hyperjump/kirinuki/internal/manifest"
	"github.com/hyperjump/kirinuki/internal/models"
	"github.com/hyperjump/kirinuki/internal/registry"
	"github.com/hyperjump/kirinuki/internal/service"
	"github.com/hyperjump/kirinuki/pkg/utils"
)

// backend is what the commands need. It is served in-process by service.Service, or
// remotely by client.Client when --server is given.
type backend interface {
	Build(ctx context.Context, req models.BuildRequest) (models.Status, error)
	Query(ctx context.Context, name string, req models.QueryRequest) ([]models.QueryResult, error)
	Indexes(ctx context.Context) ([]models.Status, error)
	Index(ctx context.Context, name string) (models.Status, error)
	Reset(ctx context.Context, name string) error
	ResetAll(ctx context.Context) error
	Documents(ctx context.Context, query string, limit int) (*corpus.SearchResult, error)
	Document(ctx context.Context, id string) (*models.Document, error)
	Ingest(ctx context.Context, in models.DocumentInput) (*models.Document, error)
	IngestFolder(ctx context.Context, dir string) ([]string, error)
	Health(ctx context.Context) (service.Health, error)
}

var (
	_ backend = (*service.Service)(nil)
	_ backend = (*client.Client)(nil)
)

// loadConfig reads --config and applies --data and --debug on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if data, _ := cmd.Flags().GetString("data"); data != "" {
		abs, err := filepath.Abs(utils.ExpandHome(data))
		if err != nil {
			return nil, fmt.Errorf("invalid data directory: %w", err)
		}
		cfg.Storage.DataDir = abs
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func outputFormat(cmd *cobra.Command) (cli.OutputFormat, error) {
	s, _ := cmd.Flags().GetString("output")
	return cli.ParseOutputFormat(s)
}

// app holds the in-process components opened on a data directory.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	corpus   *corpus.Corpus
	catalog  *embedding.Catalog
	registry *registry.Registry
	svc      *service.Service
	closers  []func() error
}

func openApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, svcOpts ...service.Option) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.corpus, err = corpus.Open(ctx, cfg.Storage.DataDir, corpus.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	a.closers = append(a.closers, a.corpus.Close)

	a.catalog = embedding.NewCatalog(cfg.Embedding.CatalogConfig(), embedding.WithLogger(logger))
	a.closers = append(a.closers, a.catalog.Close)

	store, closeStore, err := openManifestStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	a.registry, err = registry.New(ctx, a.corpus, a.catalog, store,
		registry.WithLogger(logger),
		registry.WithIndexType(cfg.Index.Type),
		registry.WithInitialCapacity(cfg.Index.InitialCapacity),
		registry.WithListParallelism(cfg.Index.ListParallelism))
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	opts := append([]service.Option{service.WithLogger(logger)}, svcOpts...)
	a.svc = service.New(a.corpus, a.registry, cfg.Chunking, cfg.Query, opts...)
	return a, nil
}

func openManifestStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (manifest.Store, func() error, error) {
	switch cfg.Storage.ManifestBackend {
	case config.ManifestBackendFile, "":
		store, err := manifest.NewFileStore(cfg.Storage.IndexesDir(), manifest.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case config.ManifestBackendRedis:
		store, err := manifest.NewRedisStore(ctx, cfg.Storage.RedisURL,
			manifest.WithLogger(logger),
			manifest.WithRedisKey(cfg.Storage.RedisKey))
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown manifest backend %q", cfg.Storage.ManifestBackend)
	}
}

// Close releases everything openApp opened, last first.
func (a *app) Close() error {
	var errs []error
	for _, c := range slices.Backward(a.closers) {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// withBackend runs fn against the server named by --server, or against the data
// directory opened in-process.
func withBackend(cmd *cobra.Command, fn func(ctx context.Context, b backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if url, _ := cmd.Flags().GetString("server"); url != "" {
		return fn(ctx, client.New(url, nil))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a.svc)
}
