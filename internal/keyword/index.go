// Package keyword provides full-text lookup over document registry metadata, plus
// spelling suggestions drawn from the indexed terms.
package keyword

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/hyperjump/kirinuki/internal/models"
)

// Entry is the searchable view of a registered document.
type Entry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Kind        string   `json:"kind"`
	Source      string   `json:"source"`
}

// EntryFromDocument builds the index entry for doc. Name holds the words of the local
// copy's file name, or of the URL's last path segment when there is no local copy.
// The analyzer keeps "report.pdf" as one token, so the name is split up front.
func EntryFromDocument(doc *models.Document) Entry {
	name := ""
	switch {
	case doc.Path != "":
		name = filepath.Base(doc.Path)
	case doc.URL != "":
		if u, err := url.Parse(doc.URL); err == nil {
			name = path.Base(u.Path)
			if name == "/" || name == "." {
				name = u.Host
			}
		}
	}
	return Entry{
		ID:          doc.ID,
		Name:        strings.Join(strings.FieldsFunc(name, isNameSeparator), " "),
		Description: doc.Description,
		Tags:        doc.Tags,
		Kind:        doc.Kind,
		Source:      doc.Source,
	}
}

func isNameSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// SearchOptions tune a search. Nil means exact matching only.
type SearchOptions struct {
	// Fuzzy retries with edit-distance matching when the exact query finds nothing.
	Fuzzy bool
	// Fuzziness is the maximum edit distance per term (1 or 2). Defaults to 2.
	Fuzziness int
}

// Result is a single search hit.
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// TermDictionary exposes the indexed vocabulary for spell checking.
type TermDictionary interface {
	// AllTerms returns every unique indexed term.
	AllTerms() ([]string, error)
	// TermFrequency returns the number of documents containing term.
	TermFrequency(term string) (int, error)
}
