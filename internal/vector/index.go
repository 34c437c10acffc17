// Package vector holds label-addressed vectors and answers cosine top-k queries.
package vector

import "errors"

// ErrDimensionMismatch is returned when a vector's length differs from the index dimensions.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index stores vectors under dense labels assigned in insertion order.
type Index interface {
	// Add inserts vectors under consecutive fresh labels and returns the first one.
	Add(vectors [][]float32) (int, error)
	Search(query []float32, k int) ([]Result, error)
	Len() int
	Capacity() int
	Dimensions() int
}

// Result is a single search hit.
type Result struct {
	Label int
	Score float64 // cosine similarity in [-1, 1]
}
