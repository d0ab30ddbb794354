package retrieval

import "math"

// Fusion weights for blending semantic similarity with a precomputed style
// compatibility score. System-wide constants, never renegotiated per call.
const (
	weightSemantic = 0.70
	weightStyle    = 0.30

	// cosineEpsilon keeps the denominator non-zero for all-zero vectors;
	// the similarity then degrades to 0 instead of NaN.
	cosineEpsilon = 1e-9
)

// Score computes the fused relevance of an item embedding against a query
// embedding. When the item carries a style compatibility score in [0,1] the
// total is the weighted blend; otherwise the clamped semantic similarity
// stands alone, so scores share one [0,1] scale either way. The breakdown
// names each sub-score; callers rely on it for explaining rankings.
func Score(queryEmbedding, itemEmbedding []float32, styleScore *float64) (float64, map[string]float64) {
	semantic := clamp01(CosineSimilarity(queryEmbedding, itemEmbedding))

	breakdown := map[string]float64{"semantic": semantic}
	if styleScore == nil {
		return semantic, breakdown
	}

	style := clamp01(*styleScore)
	breakdown["style"] = style
	return weightSemantic*semantic + weightStyle*style, breakdown
}

// CosineSimilarity returns dot(a,b) / (|a|*|b| + eps). Mismatched or zero
// vectors yield 0, never NaN.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + cosineEpsilon)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
