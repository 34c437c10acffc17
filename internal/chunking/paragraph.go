package chunking

import (
	"regexp"
	"strings"

	"github.com/hyperjump/kirinuki/internal/models"
)

// blankLine matches one or more blank lines between paragraphs.
var blankLine = regexp.MustCompile(`\n\s*\n`)

// Paragraph splits text on blank lines.
type Paragraph struct{}

// NewParagraph returns a paragraph policy.
func NewParagraph() *Paragraph { return &Paragraph{} }

// Name returns "paragraph".
func (p *Paragraph) Name() string { return NameParagraph }

// Config is empty for paragraphs.
func (p *Paragraph) Config() models.ChunkConfig { return models.ChunkConfig{} }

// Chunk returns the trimmed, non-empty paragraphs of text.
func (p *Paragraph) Chunk(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var chunks []string
	for _, para := range blankLine.Split(text, -1) {
		if para = strings.TrimSpace(para); para != "" {
			chunks = append(chunks, para)
		}
	}
	return chunks
}

// WholeDocument treats the whole text as one segment.
type WholeDocument struct{}

// NewWholeDocument returns a whole document policy.
func NewWholeDocument() *WholeDocument { return &WholeDocument{} }

// Name returns "document".
func (w *WholeDocument) Name() string { return NameDocument }

// Config is empty for whole documents.
func (w *WholeDocument) Config() models.ChunkConfig { return models.ChunkConfig{} }

// Chunk returns the trimmed text, or nothing when it is blank.
func (w *WholeDocument) Chunk(text string) []string {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return nil
	}
	return []string{cleaned}
}
