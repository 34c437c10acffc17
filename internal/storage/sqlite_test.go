package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kirinuki/internal/models"
)

func openTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "corpus.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_UpsertAndGet(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()

	doc := &models.Document{
		ID:          "doc1",
		Source:      models.SourceFile,
		Kind:        models.KindText,
		Path:        "/tmp/doc1.txt",
		Tags:        []string{"alpha", "beta"},
		Description: "first",
	}
	if err := store.UpsertDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if doc.CreatedAt.IsZero() || doc.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}

	got, err := store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Path != "/tmp/doc1.txt" || got.Description != "first" || got.Kind != models.KindText {
		t.Errorf("got %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "alpha" || got.Tags[1] != "beta" {
		t.Errorf("tags: got %v", got.Tags)
	}
	if got.URL != "" {
		t.Errorf("url: got %q", got.URL)
	}
}

func TestSQLiteStorage_UpsertReplacesAndKeepsCreatedAt(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()

	first := &models.Document{ID: "d", Source: models.SourceFile, Kind: models.KindText, Path: "/a"}
	if err := store.UpsertDocument(ctx, first); err != nil {
		t.Fatal(err)
	}
	created := first.CreatedAt

	time.Sleep(5 * time.Millisecond)
	second := &models.Document{ID: "d", Source: models.SourceURL, Kind: models.KindHTML, URL: "https://example.com", Path: "/b"}
	if err := store.UpsertDocument(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetDocument(ctx, "d")
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != models.SourceURL || got.Kind != models.KindHTML || got.Path != "/b" || got.URL != "https://example.com" {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at changed: %v -> %v", created, got.CreatedAt)
	}
	if !second.CreatedAt.Equal(created) {
		t.Errorf("upsert should report stored created_at, got %v", second.CreatedAt)
	}
	if !got.UpdatedAt.After(created) {
		t.Errorf("updated_at %v should be after %v", got.UpdatedAt, created)
	}

	n, err := store.CountDocuments(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountDocuments: %v, %d", err, n)
	}
}

func TestSQLiteStorage_GetMissing(t *testing.T) {
	store := openTestStorage(t)
	_, err := store.GetDocument(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_ListSortedAndByPath(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()

	for _, doc := range []*models.Document{
		{ID: "zeta", Source: models.SourceFile, Kind: models.KindText, Path: "/shared.txt"},
		{ID: "alpha", Source: models.SourceFile, Kind: models.KindText, Path: "/alpha.txt"},
		{ID: "mid", Source: models.SourceFile, Kind: models.KindText, Path: "/shared.txt"},
	} {
		if err := store.UpsertDocument(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, d := range list {
		ids = append(ids, d.ID)
	}
	if len(ids) != 3 || ids[0] != "alpha" || ids[1] != "mid" || ids[2] != "zeta" {
		t.Errorf("ids: got %v", ids)
	}

	shared, err := store.DocumentsByPath(ctx, "/shared.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(shared) != 2 || shared[0].ID != "mid" || shared[1].ID != "zeta" {
		t.Errorf("by path: got %d docs", len(shared))
	}
}

func TestSQLiteStorage_Delete(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()

	_ = store.UpsertDocument(ctx, &models.Document{ID: "x", Source: models.SourceFile, Kind: models.KindText})
	if err := store.DeleteDocument(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDocument(ctx, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteDocument(ctx, "x"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestSQLiteStorage_ReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.UpsertDocument(ctx, &models.Document{ID: "keep", Source: models.SourceFile, Kind: models.KindPDF}); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	store, err = NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	got, err := store.GetDocument(ctx, "keep")
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != models.KindPDF {
		t.Errorf("kind: got %q", got.Kind)
	}
}
