package models

import (
	"fmt"
	"strings"
	"time"
)

// Status summarizes a collection.
type Status struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	Policy    string `json:"policy"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
}

// ChunkConfig holds the policy parameters needed to reproduce chunking.
// Both fields are zero for policies without parameters.
type ChunkConfig struct {
	WindowChars  int `json:"window_chars,omitempty" yaml:"window_chars"`
	OverlapChars int `json:"overlap_chars,omitempty" yaml:"overlap_chars"`
}

// Manifest is the durable description of a collection. It carries no vectors or chunk
// text; a collection is rebuilt by replaying chunking and embedding over Documents.
type Manifest struct {
	Name        string      `json:"name"`
	Model       string      `json:"model"`
	Policy      string      `json:"policy"`
	Documents   []string    `json:"documents"`
	ChunkConfig ChunkConfig `json:"chunk_config"`
	CreatedAt   time.Time   `json:"created_at,omitempty"`
}

// QueryResult is a single ranked chunk.
type QueryResult struct {
	Score      float64 `json:"score"`
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
}

// QueryRequest is the body of a collection query.
type QueryRequest struct {
	Text     string   `json:"text"`
	TopK     int      `json:"top_k,omitempty"`
	MinScore *float64 `json:"min_score,omitempty"`
}

// Validate ensures the query has text and normalizes TopK: zero takes defaultTopK and
// values above maxTopK are capped. Negative TopK is kept; it yields no results.
func (q *QueryRequest) Validate(defaultTopK, maxTopK int) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("query text cannot be empty")
	}
	if q.TopK == 0 {
		q.TopK = defaultTopK
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}

// BuildRequest describes a collection build.
type BuildRequest struct {
	Name        string      `json:"name,omitempty"`
	Model       string      `json:"model"`
	Policy      string      `json:"policy"`
	ChunkConfig ChunkConfig `json:"chunk_config,omitempty"`
	Documents   []string    `json:"documents,omitempty"`
}
