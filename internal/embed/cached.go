package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedEmbedder memoises another Embedder in memory. The extractor emits a
// small set of canonical summaries, so most calls hit the cache.
type CachedEmbedder struct {
	next  Embedder
	cache *gocache.Cache
	ttl   time.Duration
}

// NewCached wraps next with an in-memory cache whose entries expire after ttl.
func NewCached(next Embedder, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Name returns the wrapped provider's name
func (c *CachedEmbedder) Name() string { return c.next.Name() }

// Embed returns a cached vector when present, otherwise asks the wrapped
// embedder. Failures are not cached.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.next.Name(), text)
	if val, found := c.cache.Get(key); found {
		return copyVec(val.([]float32)), nil
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, copyVec(vec), c.ttl)
	return vec, nil
}

// Len returns the number of cached vectors
func (c *CachedEmbedder) Len() int {
	return c.cache.ItemCount()
}

func cacheKey(provider, text string) string {
	hash := sha256.Sum256([]byte(text))
	return provider + ":" + hex.EncodeToString(hash[:])
}

func copyVec(v []float32) []float32 {
	return append([]float32(nil), v...)
}
