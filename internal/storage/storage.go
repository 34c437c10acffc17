// Package storage persists the document registry: one row per registered document,
// describing where its content lives. Content itself is read on demand.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kirinuki/internal/models"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("document not found")

// Storage defines document registry persistence.
type Storage interface {
	// UpsertDocument inserts doc or replaces the record with the same id. CreatedAt of an
	// existing record is preserved.
	UpsertDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	// ListDocuments returns every document ordered by id.
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	// DocumentsByPath returns the documents whose local copy is path.
	DocumentsByPath(ctx context.Context, path string) ([]*models.Document, error)
	CountDocuments(ctx context.Context) (int64, error)

	Close() error
}
