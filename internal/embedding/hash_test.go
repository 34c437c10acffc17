package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestHashModel_Golden(t *testing.T) {
	m := NewHashModel(ModelTextHash, 128)
	vec, err := m.Embed(context.Background(), "Hello world hello")
	require.NoError(t, err)
	require.Len(t, vec, 128)

	// hello -> bucket 118 (twice), world -> bucket 8
	want := make([]float32, 128)
	want[118] = float32(2 / math.Sqrt(5))
	want[8] = float32(1 / math.Sqrt(5))
	assert.InDeltaSlice(t, want, vec, 1e-6)
}

func TestHashModel_Deterministic(t *testing.T) {
	m := NewHashModel("text-hash", 64)
	ctx := context.Background()
	a, err := m.Embed(ctx, "The quick brown fox")
	require.NoError(t, err)
	b, err := NewHashModel("text-hash", 64).Embed(ctx, "the QUICK brown   fox")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, norm(a), 1e-6)
}

func TestHashModel_EmptyInputIsZero(t *testing.T) {
	m := NewHashModel("text-hash", 16)
	for _, text := range []string{"", "   \n\t"} {
		vec, err := m.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Len(t, vec, 16)
		assert.Zero(t, norm(vec))
	}
}

func TestHashModel_DefaultDimensions(t *testing.T) {
	dims, err := NewHashModel("text-hash", 0).Dimensions()
	require.NoError(t, err)
	assert.Equal(t, DefaultHashDimensions, dims)
}

func TestHashModel_NameSaltsBuckets(t *testing.T) {
	ctx := context.Background()
	text := "alpha beta gamma delta epsilon"
	a, err := NewHashModel("one", 128).Embed(ctx, text)
	require.NoError(t, err)
	b, err := NewHashModel("two", 128).Embed(ctx, text)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTableHashModel_Cells(t *testing.T) {
	ctx := context.Background()
	m := NewTableHashModel(ModelTextTable, 128)
	a, err := m.Embed(ctx, "Name | Price\nApple\t1.20")
	require.NoError(t, err)
	b, err := m.Embed(ctx, "name|price|apple|1.20")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, norm(a), 1e-6)

	// multi-word cells are one token
	c, err := m.Embed(ctx, "new york")
	require.NoError(t, err)
	d, err := NewHashModel(TableSalt, 128).Embed(ctx, "new york")
	require.NoError(t, err)
	assert.NotEqual(t, c, d)
}

func TestImageHashModel_Prefix(t *testing.T) {
	ctx := context.Background()
	a, err := NewImageHashModel(ModelTextImage, 128).Embed(ctx, "a cat on a mat")
	require.NoError(t, err)
	b, err := NewHashModel(ImageSalt, 128).Embed(ctx, "image a cat on a mat")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, ModelTextImage, NewImageHashModel(ModelTextImage, 128).Name())
}

func TestHashModel_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashModel("text-hash", 8).Embed(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeL2Slice(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2Slice(v)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, v, 1e-6)

	zero := []float32{0, 0}
	NormalizeL2Slice(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}
