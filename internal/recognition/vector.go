package recognition

import (
	"fmt"
	"math"
)

// normEpsilon is the smallest Euclidean norm accepted for an embedding.
const normEpsilon = 1e-6

// Normalize returns a unit-length copy of v. Enrollment vectors and query
// vectors must both go through this function.
func Normalize(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrDegenerateVector)
	}
	var sum float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: non-finite component", ErrDegenerateVector)
		}
		sum += f * f
	}
	norm := math.Sqrt(sum)
	if norm < normEpsilon {
		return nil, fmt.Errorf("%w: norm %g", ErrDegenerateVector, norm)
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

// Dot computes the inner product of two vectors of equal length.
// On unit vectors this is the cosine similarity.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
