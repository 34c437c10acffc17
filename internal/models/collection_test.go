package models

import (
	"testing"
)

func TestQueryRequest_Validate(t *testing.T) {
	tests := []struct {
		name     string
		query    *QueryRequest
		wantErr  bool
		wantTopK int
	}{
		{"empty text", &QueryRequest{Text: ""}, true, 0},
		{"blank text", &QueryRequest{Text: "  \n"}, true, 0},
		{"sets default top_k", &QueryRequest{Text: "x"}, false, 5},
		{"keeps explicit top_k", &QueryRequest{Text: "x", TopK: 3}, false, 3},
		{"caps top_k", &QueryRequest{Text: "x", TopK: 500}, false, 100},
		{"keeps negative top_k", &QueryRequest{Text: "x", TopK: -1}, false, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate(5, 100)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.query.TopK != tt.wantTopK {
				t.Errorf("TopK = %d, want %d", tt.query.TopK, tt.wantTopK)
			}
		})
	}
}

func TestChunkID(t *testing.T) {
	if got := ChunkID("doc-1", 0); got != "doc-1:0" {
		t.Errorf("ChunkID = %q", got)
	}
	if got := ChunkID("a:b", 12); got != "a:b:12" {
		t.Errorf("ChunkID = %q", got)
	}
}
