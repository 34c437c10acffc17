package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// textFields are the analyzed fields; their terms feed the spelling dictionary.
var textFields = []string{"id_text", "name", "description", "tags"}

// BleveIndex is a persistent full-text index of document entries.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If you change the index mapping in code, remove the index directory so it is rebuilt.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, entryMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func entryMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer: lowercase + tokenize without stemming, so "reports" does not
	// match "report" but an exact word always matches itself.
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	for _, field := range []string{"name", "description", "tags"} {
		docMapping.AddFieldMappingsAt(field, text)
	}
	keyword := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("kind", keyword)
	docMapping.AddFieldMappingsAt("source", keyword)
	// The id is indexed twice: verbatim for exact lookups and analyzed so that
	// "annual" finds "annual-report-2".
	idText := bleve.NewTextFieldMapping()
	idText.Analyzer = standard.Name
	idText.Name = "id_text"
	docMapping.AddFieldMappingsAt("id", keyword, idText)

	im.AddDocumentMapping("entry", docMapping)
	im.DefaultType = "entry"
	im.DefaultMapping = docMapping
	return im
}

// Index adds or replaces the entry with the same id.
func (b *BleveIndex) Index(_ context.Context, entry Entry) error {
	if err := b.index.Index(entry.ID, entry); err != nil {
		return fmt.Errorf("index %s: %w", entry.ID, err)
	}
	return nil
}

// Search returns up to limit entries matching query, best first. With opts.Fuzzy a
// query that matches nothing exactly is retried with per-term fuzzy matching.
func (b *BleveIndex) Search(_ context.Context, query string, limit int, opts *SearchOptions) ([]Result, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	results, err := b.run(bleve.NewMatchQuery(query), limit)
	if err != nil || len(results) > 0 || opts == nil || !opts.Fuzzy {
		return results, err
	}
	fuzziness := 2
	if opts.Fuzziness > 0 {
		fuzziness = opts.Fuzziness
	}
	return b.run(buildFuzzyQuery(query, fuzziness), limit)
}

func (b *BleveIndex) run(q blevequery.Query, limit int) ([]Result, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]Result, len(res.Hits))
	for i, hit := range res.Hits {
		out[i] = Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// buildFuzzyQuery ORs one FuzzyQuery per query term.
func buildFuzzyQuery(query string, fuzziness int) blevequery.Query {
	terms := tokenizeQuery(query)
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Delete removes an entry. Deleting an unknown id is not an error.
func (b *BleveIndex) Delete(_ context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the number of indexed entries.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// AllTerms returns the unique terms of every analyzed field.
func (b *BleveIndex) AllTerms() ([]string, error) {
	seen := make(map[string]struct{})
	var terms []string
	for _, field := range textFields {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("read terms of %s: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil {
				_ = dict.Close()
				return nil, fmt.Errorf("read terms of %s: %w", field, err)
			}
			if entry == nil {
				break
			}
			if _, ok := seen[entry.Term]; !ok {
				seen[entry.Term] = struct{}{}
				terms = append(terms, entry.Term)
			}
		}
		_ = dict.Close()
	}
	return terms, nil
}

// TermFrequency returns the number of entries matching term.
func (b *BleveIndex) TermFrequency(term string) (int, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(term))
	req.Size = 0
	res, err := b.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("failed to count term %q: %w", term, err)
	}
	return int(res.Total), nil
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
