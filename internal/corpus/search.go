package corpus

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kirinuki/internal/keyword"
	"github.com/hyperjump/kirinuki/internal/models"
)

// SearchResult holds the documents matching a search. Suggestion is a respelled query
// offered when nothing matched and the index knows similar words.
type SearchResult struct {
	Documents  []models.Document `json:"documents"`
	Suggestion string            `json:"suggestion,omitempty"`
}

// Search finds registered documents whose id, file name, description or tags match
// query, best first. Words one edit away still match; when nothing matches, words up
// to two edits away are offered as a Suggestion.
func (c *Corpus) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	result := &SearchResult{Documents: []models.Document{}}
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return result, nil
	}
	hits, err := c.search.Search(ctx, query, limit, &keyword.SearchOptions{Fuzzy: true, Fuzziness: 1})
	if err != nil {
		return nil, err
	}
	for _, hit := range hits {
		doc, err := c.GetDocument(ctx, hit.ID)
		if errors.Is(err, ErrDocumentNotFound) {
			c.logger.Warn("search index references unknown document", zap.String("doc_id", hit.ID))
			continue
		}
		if err != nil {
			return nil, err
		}
		result.Documents = append(result.Documents, *doc)
	}
	if len(result.Documents) == 0 {
		corrected, changed, err := c.speller.Correct(query)
		if err != nil {
			c.logger.Warn("spelling suggestion failed", zap.Error(err))
		} else if changed {
			result.Suggestion = corrected
		}
	}
	return result, nil
}
