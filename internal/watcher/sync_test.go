package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kirinuki/internal/models"
)

type fakeLocator struct {
	byPath     map[string][]string
	registered []string
	err        error
}

func (f *fakeLocator) DocumentsForPath(_ context.Context, path string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byPath[path], nil
}

func (f *fakeLocator) RegisterFile(_ context.Context, path, _ string) (*models.Document, error) {
	f.registered = append(f.registered, path)
	return &models.Document{ID: filepath.Base(path), Path: path}, nil
}

type fakeInvalidator struct {
	calls []string
}

func (f *fakeInvalidator) Invalidate(id string) []string {
	f.calls = append(f.calls, id)
	return []string{"idx-" + id}
}

func TestSyncer_Changed_invalidatesKnownDocuments(t *testing.T) {
	docs := &fakeLocator{byPath: map[string][]string{"/data/a.txt": {"a", "a-copy"}}}
	inv := &fakeInvalidator{}
	s := NewSyncer(docs, inv, nil, nil)

	s.Changed(context.Background(), "/data/a.txt")

	if len(inv.calls) != 2 || inv.calls[0] != "a" || inv.calls[1] != "a-copy" {
		t.Errorf("invalidate calls = %v", inv.calls)
	}
	if len(docs.registered) != 0 {
		t.Errorf("known file should not be registered again: %v", docs.registered)
	}
}

func TestSyncer_Changed_registersNewFileUnderAutoRegisterDir(t *testing.T) {
	dir := t.TempDir()
	docs := &fakeLocator{}
	inv := &fakeInvalidator{}
	s := NewSyncer(docs, inv, []string{dir}, nil)

	s.Changed(context.Background(), filepath.Join(dir, "sub", "new.md"))
	s.Changed(context.Background(), "/elsewhere/new.md")

	if len(docs.registered) != 1 || docs.registered[0] != filepath.Join(dir, "sub", "new.md") {
		t.Errorf("registered = %v", docs.registered)
	}
	if len(inv.calls) != 0 {
		t.Errorf("unexpected invalidations: %v", inv.calls)
	}
}

func TestSyncer_Removed(t *testing.T) {
	docs := &fakeLocator{byPath: map[string][]string{"/data/b.txt": {"b"}}}
	inv := &fakeInvalidator{}
	s := NewSyncer(docs, inv, []string{"/data"}, nil)
	onChange, onRemove := s.Callbacks(context.Background())

	onRemove("/data/b.txt")
	onRemove("/data/unknown.txt")
	onChange("/data/b.txt")

	if len(inv.calls) != 2 || inv.calls[0] != "b" || inv.calls[1] != "b" {
		t.Errorf("invalidate calls = %v", inv.calls)
	}
	if len(docs.registered) != 0 {
		t.Errorf("removed files must not be registered: %v", docs.registered)
	}
}

func TestSyncer_lookupError(t *testing.T) {
	docs := &fakeLocator{err: errors.New("db closed")}
	inv := &fakeInvalidator{}
	s := NewSyncer(docs, inv, []string{"/"}, nil)

	s.Changed(context.Background(), "/x.txt")
	s.Removed(context.Background(), "/x.txt")

	if len(inv.calls) != 0 || len(docs.registered) != 0 {
		t.Errorf("lookup errors should stop processing: %v %v", inv.calls, docs.registered)
	}
}
