package vector

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultInitialCapacity is the number of vectors a FlatIndex reserves up front.
const DefaultInitialCapacity = 2048

// FlatIndex keeps every vector in one contiguous arena and scores queries
// by brute force. Capacity at least doubles whenever an insert would
// overflow it; growth copies the arena but never moves a label.
type FlatIndex struct {
	dimensions int
	capacity   int
	data       []float32 // len == count*dimensions, cap == capacity*dimensions
	norms      []float64
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty index. A non-positive capacity selects DefaultInitialCapacity.
func NewFlatIndex(dimensions, initialCapacity int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if initialCapacity <= 0 {
		initialCapacity = DefaultInitialCapacity
	}
	return &FlatIndex{
		dimensions: dimensions,
		capacity:   initialCapacity,
		data:       make([]float32, 0, initialCapacity*dimensions),
		norms:      make([]float64, 0, initialCapacity),
	}, nil
}

// Add copies vectors into the arena. Either all vectors are inserted or,
// on a length mismatch, none are.
func (f *FlatIndex) Add(vectors [][]float32) (int, error) {
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return 0, fmt.Errorf("%w: vector %d has %d values, index expects %d",
				ErrDimensionMismatch, i, len(vec), f.dimensions)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	first := len(f.norms)
	f.reserve(first + len(vectors))
	for _, vec := range vectors {
		f.data = append(f.data, vec...)
		f.norms = append(f.norms, L2Norm(vec))
	}
	return first, nil
}

// reserve grows the arena to hold n vectors. Caller holds the write lock.
func (f *FlatIndex) reserve(n int) {
	if n <= f.capacity {
		return
	}
	newCap := f.capacity * 2
	if newCap < n {
		newCap = n
	}
	data := make([]float32, len(f.data), newCap*f.dimensions)
	copy(data, f.data)
	norms := make([]float64, len(f.norms), newCap)
	copy(norms, f.norms)
	f.data, f.norms, f.capacity = data, norms, newCap
}

// Search returns up to k labels ranked by descending cosine similarity.
// Equal scores rank the lower label first.
func (f *FlatIndex) Search(query []float32, k int) ([]Result, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: query has %d values, index expects %d",
			ErrDimensionMismatch, len(query), f.dimensions)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	n := len(f.norms)
	if k <= 0 || n == 0 {
		return nil, nil
	}

	qNorm := L2Norm(query)
	results := make([]Result, n)
	for label := 0; label < n; label++ {
		results[label] = Result{Label: label, Score: f.score(query, qNorm, label)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k > n {
		k = n
	}
	return results[:k], nil
}

func (f *FlatIndex) score(query []float32, qNorm float64, label int) float64 {
	vNorm := f.norms[label]
	if qNorm == 0 || vNorm == 0 {
		return 0
	}
	vec := f.data[label*f.dimensions : (label+1)*f.dimensions]
	return clamp(InnerProduct(query, vec) / (qNorm * vNorm))
}

// Vector returns a copy of the vector stored under label.
func (f *FlatIndex) Vector(label int) ([]float32, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if label < 0 || label >= len(f.norms) {
		return nil, false
	}
	out := make([]float32, f.dimensions)
	copy(out, f.data[label*f.dimensions:(label+1)*f.dimensions])
	return out, true
}

// Len returns the number of stored vectors, which is also the next label.
func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.norms)
}

// Capacity returns how many vectors fit before the arena grows.
func (f *FlatIndex) Capacity() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.capacity
}

// Dimensions returns the vector length.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}
