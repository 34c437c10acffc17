package watcher

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/kirinuki/internal/models"
)

// DocumentLocator maps source files to registered documents.
type DocumentLocator interface {
	DocumentsForPath(ctx context.Context, path string) ([]string, error)
	RegisterFile(ctx context.Context, path, id string) (*models.Document, error)
}

// Invalidator drops cached indexes that contain a document.
type Invalidator interface {
	Invalidate(documentID string) []string
}

// Syncer turns file events into index invalidations. Files appearing under an
// auto-register directory that no document points at yet are registered.
type Syncer struct {
	docs         DocumentLocator
	indexes      Invalidator
	autoRegister []string
	logger       *zap.Logger
}

// NewSyncer creates a Syncer. autoRegister lists directories whose new files are registered.
func NewSyncer(docs DocumentLocator, indexes Invalidator, autoRegister []string, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	dirs := make([]string, 0, len(autoRegister))
	for _, d := range autoRegister {
		if abs, err := filepath.Abs(d); err == nil {
			dirs = append(dirs, filepath.Clean(abs))
		}
	}
	return &Syncer{docs: docs, indexes: indexes, autoRegister: dirs, logger: logger}
}

// Changed handles a created or modified file.
func (s *Syncer) Changed(ctx context.Context, path string) {
	ids, err := s.docs.DocumentsForPath(ctx, path)
	if err != nil {
		s.logger.Warn("Failed to look up documents for path", zap.String("path", path), zap.Error(err))
		return
	}
	if len(ids) == 0 {
		if !s.autoRegistered(path) {
			return
		}
		doc, err := s.docs.RegisterFile(ctx, path, "")
		if err != nil {
			s.logger.Warn("Failed to register file", zap.String("path", path), zap.Error(err))
			return
		}
		s.logger.Info("Registered new file", zap.String("path", path), zap.String("document", doc.ID))
		return
	}
	s.invalidate(path, ids)
}

// Removed handles a deleted or renamed file. Documents keep their registration; indexes
// that contain them are dropped so the next use rebuilds and reports the missing content.
func (s *Syncer) Removed(ctx context.Context, path string) {
	ids, err := s.docs.DocumentsForPath(ctx, path)
	if err != nil {
		s.logger.Warn("Failed to look up documents for path", zap.String("path", path), zap.Error(err))
		return
	}
	s.invalidate(path, ids)
}

func (s *Syncer) invalidate(path string, ids []string) {
	for _, id := range ids {
		names := s.indexes.Invalidate(id)
		if len(names) > 0 {
			s.logger.Info("Invalidated indexes",
				zap.String("path", path),
				zap.String("document", id),
				zap.Strings("indexes", names))
		}
	}
}

func (s *Syncer) autoRegistered(path string) bool {
	clean := filepath.Clean(path)
	for _, dir := range s.autoRegister {
		if inDir(dir, clean) {
			return true
		}
	}
	return false
}

// Callbacks binds the Syncer to ctx for use as Watcher callbacks.
func (s *Syncer) Callbacks(ctx context.Context) (onChange, onRemove func(path string)) {
	return func(path string) { s.Changed(ctx, path) },
		func(path string) { s.Removed(ctx, path) }
}
