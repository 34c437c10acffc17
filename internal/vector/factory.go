package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeFlat uses exact brute-force search over a contiguous arena.
	IndexTypeFlat IndexType = "flat"
)

// NewIndex creates an index of the given type. The empty type selects flat.
func NewIndex(indexType string, dimensions, initialCapacity int) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeFlat, "":
		idx, err := NewFlatIndex(dimensions, initialCapacity)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: flat)", indexType)
	}
}
