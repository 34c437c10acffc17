package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// DefaultHashDimensions is the vector length of hashing models when none is configured.
const DefaultHashDimensions = 128

// Hash salts used by the table and image variants.
const (
	TableSalt = "table"
	ImageSalt = "image"
)

// HashModel is a deterministic feature-hashing embedding. Every token adds
// 1.0 to the bucket picked by SHA-256("{salt}:{token}") and the result is
// L2-normalized.
type HashModel struct {
	name       string
	salt       string
	dimensions int
	tokenize   func(string) []string
}

// NewHashModel returns a hashing model over lowercased whitespace tokens,
// salted with its own name.
func NewHashModel(name string, dimensions int) *HashModel {
	return newHashModel(name, name, dimensions, wordTokens)
}

// NewTableHashModel returns a hashing model whose tokens are the cells of
// pipe- or tab-separated rows. Line breaks also end a cell.
func NewTableHashModel(name string, dimensions int) *HashModel {
	return newHashModel(name, TableSalt, dimensions, cellTokens)
}

// NewImageHashModel returns a hashing model for image captions.
func NewImageHashModel(name string, dimensions int) *HashModel {
	return newHashModel(name, ImageSalt, dimensions, func(text string) []string {
		return wordTokens("image " + text)
	})
}

func newHashModel(name, salt string, dimensions int, tokenize func(string) []string) *HashModel {
	if dimensions <= 0 {
		dimensions = DefaultHashDimensions
	}
	return &HashModel{name: name, salt: salt, dimensions: dimensions, tokenize: tokenize}
}

// Name returns the catalog name of the model.
func (m *HashModel) Name() string { return m.name }

// Dimensions returns the configured vector length.
func (m *HashModel) Dimensions() (int, error) { return m.dimensions, nil }

// Embed hashes the tokens of text into a unit vector. Text without tokens
// yields the zero vector.
func (m *HashModel) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("hash embed: %w", err)
	}
	counts := make([]float64, m.dimensions)
	for _, token := range m.tokenize(text) {
		counts[m.bucket(token)] += 1.0
	}

	var sum float64
	for _, v := range counts {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1.0
	}

	vec := make([]float32, m.dimensions)
	for i, v := range counts {
		vec[i] = float32(v / norm)
	}
	return vec, nil
}

func (m *HashModel) bucket(token string) int {
	digest := sha256.Sum256([]byte(m.salt + ":" + token))
	return int(binary.BigEndian.Uint32(digest[:4]) % uint32(m.dimensions))
}

func wordTokens(text string) []string {
	tokens := strings.Fields(text)
	for i, token := range tokens {
		tokens[i] = strings.ToLower(token)
	}
	return tokens
}

func cellTokens(text string) []string {
	var cells []string
	for _, cell := range strings.FieldsFunc(text, isCellSeparator) {
		cell = strings.ToLower(strings.TrimSpace(cell))
		if cell != "" {
			cells = append(cells, cell)
		}
	}
	return cells
}

func isCellSeparator(r rune) bool {
	return r == '|' || r == '\t' || r == '\n' || r == '\r'
}
