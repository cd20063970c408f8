package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder is an offline embedder based on feature hashing of words and
// character trigrams. Texts sharing vocabulary land close together; it makes
// no claim about deeper semantic quality.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hashing embedder producing dims-length vectors.
func NewHashEmbedder(dims int) (*HashEmbedder, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("hash embedder: dimensions must be positive (got %d)", dims)
	}
	return &HashEmbedder{dims: dims}, nil
}

// Name returns the provider name
func (h *HashEmbedder) Name() string { return "hash" }

// Embed returns the L2-normalised hashed feature vector of text. Text without
// any letters or digits is hashed by its symbols instead, so the result is
// never the zero vector.
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("hash", err)
	}

	vec := make([]float64, h.dims)
	words := tokenize(text)
	if len(words) == 0 {
		h.addSymbols(vec, text)
	}
	for _, word := range words {
		h.add(vec, "w:"+word, 1.0)
		padded := "^" + word + "$"
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			h.add(vec, "t:"+string(runes[i:i+3]), 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, h.dims)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// addSymbols hashes the whole trimmed text and each non-space rune of it.
func (h *HashEmbedder) addSymbols(vec []float64, text string) {
	trimmed := strings.TrimSpace(text)
	h.add(vec, "s:"+trimmed, 1.0)
	for _, r := range trimmed {
		if !unicode.IsSpace(r) {
			h.add(vec, "r:"+string(r), 0.5)
		}
	}
}

// add hashes feature into a bucket; a second hash bit picks the sign so
// collisions tend to cancel rather than accumulate.
func (h *HashEmbedder) add(vec []float64, feature string, weight float64) {
	hasher := fnv.New64a()
	hasher.Write([]byte(feature))
	sum := hasher.Sum64()
	idx := int(sum % uint64(h.dims))
	if (sum>>63)&1 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
