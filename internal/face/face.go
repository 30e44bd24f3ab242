// Package face compares face embeddings. The embedding model is external;
// this package only scores two vectors.
package face

import (
	"errors"
	"math"
)

// Matcher scores the similarity of two embeddings in [0,1].
type Matcher interface {
	Similarity(a, b []float64) (float64, error)
}

var ErrDimensionMismatch = errors.New("face embeddings have different dimensions")
var ErrEmptyEmbedding = errors.New("face embedding is empty")

// Cosine maps cosine similarity from [-1,1] onto [0,1].
type Cosine struct{}

func (Cosine) Similarity(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyEmbedding
	}
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(0, math.Min(1, (cos+1)/2)), nil
}
