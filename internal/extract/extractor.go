// Package extract turns registered document files into the plain text that gets chunked.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kirinuki/internal/models"
)

// Extractor converts document files to text, choosing a reader by extension and kind.
type Extractor struct {
	logger *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used to report skipped or degraded content.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the file at path and returns its text. kind is the registered document
// kind; it decides the reader when the extension alone does not (HTML saved as .txt,
// images). An empty kind is inferred from the extension.
func (e *Extractor) Extract(path, kind string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if kind == "" {
		kind = KindForExtension(ext)
	}
	if kind == models.KindImage {
		return imageCaption(path), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	text, err := e.ExtractBytes(content, ext, kind)
	if err != nil {
		return "", err
	}
	e.logger.Debug("extracted document",
		zap.String("path", path),
		zap.String("kind", kind),
		zap.Int("bytes", len(content)),
		zap.Int("chars", len(text)))
	return text, nil
}

// ExtractBytes extracts text from content. ext includes the leading dot (".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext, kind string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx", ".xlsm":
		return extractExcel(content)
	case ".html", ".htm":
		return extractHTML(content)
	}
	if kind == models.KindHTML {
		return extractHTML(content)
	}
	return extractPlain(content)
}

var kindsByExtension = map[string]string{
	".txt":  models.KindText,
	".md":   models.KindText,
	".rtf":  models.KindText,
	".docx": models.KindText,
	".csv":  models.KindTable,
	".tsv":  models.KindTable,
	".xls":  models.KindTable,
	".xlsx": models.KindTable,
	".html": models.KindHTML,
	".htm":  models.KindHTML,
	".pdf":  models.KindPDF,
	".jpg":  models.KindImage,
	".jpeg": models.KindImage,
	".png":  models.KindImage,
}

// KindForExtension maps a file extension (with or without the dot, any case) to a
// document kind. Unknown extensions are text.
func KindForExtension(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if kind, ok := kindsByExtension[ext]; ok {
		return kind
	}
	return models.KindText
}

// imageCaption describes an image by its file name; pixels are not read.
func imageCaption(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.Join(strings.FieldsFunc(stem, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == ' '
	}), " ")
}
