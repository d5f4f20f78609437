package vectorstores

import "math"

// CosineSimilarity computes (a·b)/(|a|*|b|) in the range [-1, 1].
// A zero-magnitude vector on either side yields 0 rather than a division
// fault. Vectors of different lengths also yield 0; the embedding layer
// guards dimensionality, so this is a belt check only.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
