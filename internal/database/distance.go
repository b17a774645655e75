package database

import "math"

// EuclideanDistance computes the Euclidean distance between two embedding
// vectors. Face embeddings from the recognition model live in a space where
// the same person lands roughly below 0.45 and different people above it.
// Returns +Inf for mismatched or empty inputs so invalid pairs never match.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}

	return math.Sqrt(sum)
}
