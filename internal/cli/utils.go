// Package cli renders command output for kirinuki.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kirinuki/internal/corpus"
	"github.com/hyperjump/kirinuki/internal/models"
	"github.com/hyperjump/kirinuki/internal/service"
	"github.com/hyperjump/kirinuki/pkg/utils"
)

// OutputFormat is the format of command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// previewLen is how many runes of chunk text a text-format result shows.
const previewLen = 200

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteStatuses writes index statuses.
func WriteStatuses(w io.Writer, statuses []models.Status, format OutputFormat) error {
	if format == OutputJSON {
		if statuses == nil {
			statuses = []models.Status{}
		}
		return writeJSON(w, statuses)
	}
	if len(statuses) == 0 {
		fmt.Fprintln(w, "No indexes.")
		return nil
	}
	fmt.Fprintf(w, "%-32s %-12s %-10s %9s %7s\n", "NAME", "MODEL", "POLICY", "DOCUMENTS", "CHUNKS")
	for _, st := range statuses {
		fmt.Fprintf(w, "%-32s %-12s %-10s %9d %7d\n", st.Name, st.Model, st.Policy, st.Documents, st.Chunks)
	}
	return nil
}

// WriteQueryResults writes ranked query results.
func WriteQueryResults(w io.Writer, index string, results []models.QueryResult, format OutputFormat) error {
	if format == OutputJSON {
		if results == nil {
			results = []models.QueryResult{}
		}
		return writeJSON(w, map[string]any{"index": index, "results": results})
	}
	fmt.Fprintf(w, "\nFound %d results in %s\n\n", len(results), index)
	for i, r := range results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, r.Score)
		fmt.Fprintf(w, "Document: %s | Chunk: %s\n", r.DocumentID, r.ChunkID)
		fmt.Fprintf(w, "\n%s\n\n", utils.Preview(r.Text, previewLen))
	}
	return nil
}

// WriteDocuments writes a document listing or search result.
func WriteDocuments(w io.Writer, result *corpus.SearchResult, format OutputFormat) error {
	if format == OutputJSON {
		if result.Documents == nil {
			result.Documents = []models.Document{}
		}
		return writeJSON(w, result)
	}
	if len(result.Documents) == 0 {
		fmt.Fprintln(w, "No documents.")
	}
	for _, d := range result.Documents {
		where := d.Path
		if d.Source == models.SourceURL {
			where = d.URL
		}
		fmt.Fprintf(w, "%s\t%s\t%s", d.ID, d.Kind, where)
		if len(d.Tags) > 0 {
			fmt.Fprintf(w, "\t[%s]", strings.Join(d.Tags, ", "))
		}
		fmt.Fprintln(w)
	}
	if result.Suggestion != "" {
		fmt.Fprintf(w, "Did you mean %q?\n", result.Suggestion)
	}
	return nil
}

// WriteDocument writes a single registered document.
func WriteDocument(w io.Writer, doc *models.Document, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, doc)
	}
	fmt.Fprintf(w, "Registered %s (%s)\n", doc.ID, doc.Kind)
	if doc.Path != "" {
		fmt.Fprintf(w, "  path: %s\n", doc.Path)
	}
	if doc.URL != "" {
		fmt.Fprintf(w, "  url:  %s\n", doc.URL)
	}
	return nil
}

// WriteHealth writes the data directory summary.
func WriteHealth(w io.Writer, h service.Health, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, h)
	}
	fmt.Fprintf(w, "Documents:  %d\n", h.Documents)
	fmt.Fprintf(w, "Indexes:    %d\n", h.Indexes)
	fmt.Fprintf(w, "Disk usage: %s\n", FormatBytes(h.DiskUsageBytes))
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
