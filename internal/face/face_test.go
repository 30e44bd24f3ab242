package face

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	var m Matcher = Cosine{}

	got, err := m.Similarity([]float64{1, 2, 3}, []float64{2, 4, 6})
	require.NoError(t, err)
	assert.InDelta(t, 1, got, 1e-9)

	got, err = m.Similarity([]float64{1, 0}, []float64{-1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0, got, 1e-9)

	got, err = m.Similarity([]float64{1, 0}, []float64{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-9)

	got, err = m.Similarity([]float64{0, 0}, []float64{0, 1})
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = m.Similarity([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = m.Similarity(nil, []float64{1})
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}
