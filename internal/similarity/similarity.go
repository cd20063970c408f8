package similarity

import (
	"math"
	"sort"

	"pulsegin/trends/internal/db"
)

// CosineSimilarity computes cosine similarity between two vectors.
// Returns 0.0 for zero-norm vectors or mismatched lengths.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		normA += va * va
		normB += vb * vb
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Match is the closest candidate to a target embedding.
type Match struct {
	ID         int64
	Similarity float64
}

// BestMatch scans candidates in the order given and returns the one with the
// strictly greatest similarity to target, so the earliest candidate wins a
// tie. ok is false when there are no candidates.
func BestMatch(target []float32, candidates []db.TopicEmbedding) (best Match, ok bool) {
	for _, c := range candidates {
		sim := CosineSimilarity(target, c.Embedding)
		if !ok || sim > best.Similarity {
			best = Match{ID: c.ID, Similarity: sim}
			ok = true
		}
	}
	return best, ok
}

// FindSimilar returns candidates with similarity >= minSimilarity, most
// similar first, capped at topN. Equal scores keep candidate order.
func FindSimilar(target []float32, candidates []db.TopicEmbedding, topN int, minSimilarity float64) []Match {
	var results []Match
	for _, c := range candidates {
		sim := CosineSimilarity(target, c.Embedding)
		if sim >= minSimilarity {
			results = append(results, Match{ID: c.ID, Similarity: sim})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}
