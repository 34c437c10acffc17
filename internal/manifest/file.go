package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/kirinuki/internal/models"
	"go.uber.org/zap"
)

const fileExt = ".json"

// FileStore keeps one indented JSON file per collection in a directory.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates dir if needed and returns a store over it.
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}
	o := newOptions(opts)
	return &FileStore{dir: dir, logger: o.logger}, nil
}

// Dir returns the directory holding the manifests.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

// Load returns every readable manifest ordered by name. Files that cannot
// be parsed are logged and skipped.
func (s *FileStore) Load(ctx context.Context) ([]models.Manifest, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read manifest dir: %w", err)
	}

	var manifests []models.Manifest
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable manifest", zap.String("path", path), zap.Error(err))
			continue
		}
		var m models.Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			s.logger.Warn("skipping invalid manifest", zap.String("path", path), zap.Error(err))
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), fileExt)
		if m.Name == "" {
			m.Name = stem
		}
		if m.Name != stem {
			s.logger.Warn("skipping manifest stored under another name",
				zap.String("path", path), zap.String("name", m.Name))
			continue
		}
		if err := ValidateName(m.Name); err != nil {
			s.logger.Warn("skipping manifest with unusable name", zap.String("path", path), zap.Error(err))
			continue
		}
		manifests = append(manifests, m)
	}
	sort.Slice(manifests, func(i, j int) bool { return manifests[i].Name < manifests[j].Name })
	return manifests, nil
}

// Save writes m to a temporary file, syncs it and renames it over the
// previous manifest. On failure the previous manifest is left in place.
func (s *FileStore) Save(ctx context.Context, m models.Manifest) error {
	if err := ValidateName(m.Name); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+m.Name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmpName, s.path(m.Name)); err != nil {
		return fmt.Errorf("rename manifest: %w", err)
	}
	committed = true

	if d, err := os.Open(s.dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

// Delete removes the manifest for name. A missing manifest is not an error.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete manifest: %w", err)
	}
	return nil
}
