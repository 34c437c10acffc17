// Package models defines core data structures for documents, chunks, and collections.
package models

import "time"

// Document describes a registered corpus document. Content is loaded on demand.
type Document struct {
	ID          string    `json:"id" db:"id"`
	Source      string    `json:"source" db:"source"` // "file" or "url"
	Kind        string    `json:"kind" db:"kind"`     // text, html, pdf, table, image
	Path        string    `json:"path,omitempty" db:"path"`
	URL         string    `json:"url,omitempty" db:"url"`
	Tags        []string  `json:"tags,omitempty" db:"tags"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Document sources.
const (
	SourceFile = "file"
	SourceURL  = "url"
)

// Document kinds.
const (
	KindText  = "text"
	KindHTML  = "html"
	KindPDF   = "pdf"
	KindTable = "table"
	KindImage = "image"
)

// DocumentInput is the input for registering a document through the API.
// Exactly one of Content, Path or URL is expected.
type DocumentInput struct {
	ID          string   `json:"id,omitempty"`
	Content     string   `json:"content,omitempty"`
	Path        string   `json:"path,omitempty"`
	URL         string   `json:"url,omitempty"`
	Kind        string   `json:"kind,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
}
