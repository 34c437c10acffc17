package models

import "fmt"

// Metadata keys every chunk record carries.
const (
	MetaPolicy = "policy"
	MetaModel  = "model"
	MetaOrder  = "order"
)

// ChunkRecord is one retrievable unit produced from a document. Records are immutable
// and owned by the collection that created them.
type ChunkRecord struct {
	ID         string            `json:"chunk_id"`
	DocumentID string            `json:"document_id"`
	Ordinal    int               `json:"ordinal"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ChunkID returns the composite chunk id "{documentID}:{ordinal}".
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s:%d", documentID, ordinal)
}
