package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kirinuki/internal/config"
	"github.com/hyperjump/kirinuki/internal/server"
	"github.com/hyperjump/kirinuki/internal/service"
	"github.com/hyperjump/kirinuki/internal/watcher"
	"github.com/hyperjump/kirinuki/pkg/utils"
)

// NewServeCmd runs the HTTP API and the file watcher.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the HTTP API on server.host:server.port. While serving, edits to the files of
registered documents drop the indexes built from them, and new files under
watch.directories are registered.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("host", "", "listen host (overrides server.host)")
	cmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	cmd.Flags().Bool("no-watch", false, "do not watch document files")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	if url, _ := cmd.Flags().GetString("server"); url != "" {
		return errors.New("serve runs in-process; drop --server")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	noWatch, _ := cmd.Flags().GetBool("no-watch")

	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		w       *watcher.Watcher
		syncer  *watcher.Syncer
		svcOpts []service.Option
	)
	if cfg.Watch.EnabledOrDefault() && !noWatch {
		// Callbacks fire only after Start, by which time syncer is set.
		w = newWatcher(cfg, logger,
			func(path string) { syncer.Changed(ctx, path) },
			func(path string) { syncer.Removed(ctx, path) })
		svcOpts = append(svcOpts, service.WithFileTracker(w))
	}

	a, err := openApp(ctx, cfg, logger, svcOpts...)
	if err != nil {
		return err
	}
	defer a.Close()

	if w != nil {
		syncer = watcher.NewSyncer(a.corpus, a.registry, cfg.Watch.Directories, logger)
		if err := startWatcher(ctx, w, a, logger); err != nil {
			return err
		}
		defer w.Stop()
	}

	logger.Info("config loaded",
		zap.String("data_dir", cfg.Storage.DataDir),
		zap.String("manifest_backend", cfg.Storage.ManifestBackend),
		zap.Bool("debug", cfg.Debug),
		zap.Bool("watch", w != nil))

	srv := server.NewServer(a.svc, &cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func newWatcher(cfg *config.Config, logger *zap.Logger, onChange, onRemove func(string)) *watcher.Watcher {
	opts := []watcher.Option{
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMs) * time.Millisecond),
	}
	if cfg.Debug {
		opts = append(opts, watcher.WithLogger(logger))
	}
	return watcher.New(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		onChange,
		onRemove,
		opts...,
	)
}

// startWatcher starts w, follows every registered local file and registers the files
// already present in the watched directories.
func startWatcher(ctx context.Context, w *watcher.Watcher, a *app, logger *zap.Logger) error {
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	paths, err := a.corpus.LocalPaths(ctx)
	if err != nil {
		return fmt.Errorf("list document files: %w", err)
	}
	for _, p := range paths {
		if err := w.TrackFile(p); err != nil {
			logger.Warn("Failed to watch document file", zap.String("path", p), zap.Error(err))
		}
	}
	go w.SyncExistingFiles()
	logger.Info("watching document files",
		zap.Int("files", w.TrackedFiles()),
		zap.Strings("directories", w.Directories()))
	return nil
}
