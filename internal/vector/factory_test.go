package vector

import (
	"testing"
)

func TestNewIndex_Flat(t *testing.T) {
	idx, err := NewIndex("flat", 3, 8)
	if err != nil {
		t.Fatalf("NewIndex(flat): %v", err)
	}
	if _, err := idx.Add([][]float32{{1, 0, 0}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("Len=%d, want 1", idx.Len())
	}
	if idx.Capacity() != 8 {
		t.Errorf("Capacity=%d, want 8", idx.Capacity())
	}
}

func TestNewIndex_Empty(t *testing.T) {
	// Empty string should default to flat
	idx, err := NewIndex("", 3, 0)
	if err != nil {
		t.Fatalf("NewIndex(''): %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("Len=%d, want 0", idx.Len())
	}
}

func TestNewIndex_Unknown(t *testing.T) {
	if _, err := NewIndex("faiss", 3, 0); err == nil {
		t.Error("expected error for unknown index type")
	}
}

func TestNewIndex_InvalidDimension(t *testing.T) {
	if _, err := NewIndex("flat", 0, 0); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{3, 0}, 1},
		{[]float32{1, 0}, []float32{0, 2}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, -1},
		{[]float32{0, 0}, []float32{1, 0}, 0},
		{[]float32{1}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		got := CosineSimilarity(tt.a, tt.b)
		if got < tt.want-1e-9 || got > tt.want+1e-9 {
			t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
