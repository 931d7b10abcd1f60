package style

import (
	"math"
	"testing"
)

func TestCosine_SelfSimilarityIsOne(t *testing.T) {
	t.Parallel()

	vectors := [][]float32{
		{1, 0, 0},
		{0.5, 0.5, 0.7},
		{-3, 2, 9, 1.5},
	}
	for _, v := range vectors {
		got := Cosine(v, v)
		if math.Abs(float64(got)-1) > 1e-6 {
			t.Errorf("Cosine(v, v) = %v, want 1 for v = %v", got, v)
		}
	}
}

func TestCosine_ZeroVector(t *testing.T) {
	t.Parallel()

	zero := []float32{0, 0, 0}
	v := []float32{1, 2, 3}

	if got := Cosine(v, zero); got != 0 {
		t.Errorf("Cosine(v, 0) = %v, want 0", got)
	}
	if got := Cosine(zero, v); got != 0 {
		t.Errorf("Cosine(0, v) = %v, want 0", got)
	}
	if got := Cosine(zero, zero); got != 0 {
		t.Errorf("Cosine(0, 0) = %v, want 0", got)
	}
}

func TestCosine_Symmetric(t *testing.T) {
	t.Parallel()

	a := []float32{1, 2, 3}
	b := []float32{-2, 0.5, 4}
	if Cosine(a, b) != Cosine(b, a) {
		t.Errorf("Cosine(a,b) = %v != Cosine(b,a) = %v", Cosine(a, b), Cosine(b, a))
	}
}

func TestCosine_MismatchedLengths(t *testing.T) {
	t.Parallel()

	if got := Cosine([]float32{1, 2}, []float32{1, 2, 3}); got != 0 {
		t.Errorf("Cosine with mismatched lengths = %v, want 0", got)
	}
	if got := Cosine(nil, nil); got != 0 {
		t.Errorf("Cosine(nil, nil) = %v, want 0", got)
	}
}

func TestCosine_OrthogonalAndOpposite(t *testing.T) {
	t.Parallel()

	if got := Cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors similarity = %v, want 0", got)
	}
	got := Cosine([]float32{1, 0}, []float32{-1, 0})
	if math.Abs(float64(got)+1) > 1e-6 {
		t.Errorf("opposite vectors similarity = %v, want -1", got)
	}
}
