package topics

import (
	"context"
	"fmt"
	"sort"

	"pulsegin/trends/internal/db"
	"pulsegin/trends/internal/similarity"
)

// OverlapGroup is a set of topics connected by pairwise similarity at or
// above the probe threshold. Groups show where the matcher threshold splits
// what readers may consider one complaint; topics are never merged.
type OverlapGroup struct {
	TopicIDs      []int64 `json:"topic_ids"`
	MaxSimilarity float64 `json:"max_similarity"`
}

// FindOverlaps links every pair of stored topics whose similarity is at least
// minSimilarity and returns the connected groups with two or more topics,
// largest first.
func FindOverlaps(ctx context.Context, store *db.DB, minSimilarity float64) ([]OverlapGroup, error) {
	if minSimilarity < -1 || minSimilarity > 1 {
		return nil, fmt.Errorf("min similarity must be between -1 and 1 (got %.2f)", minSimilarity)
	}

	candidates, err := store.TopicEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	uf := newUnionFind(ids)
	best := make(map[[2]int64]float64)

	for i, c := range candidates {
		for _, m := range similarity.FindSimilar(c.Embedding, candidates[i+1:], 0, minSimilarity) {
			uf.union(c.ID, m.ID)
			best[[2]int64{c.ID, m.ID}] = m.Similarity
		}
	}

	var groups []OverlapGroup
	for _, members := range uf.components() {
		if len(members) < 2 {
			continue
		}
		groups = append(groups, OverlapGroup{TopicIDs: members})
	}

	root := make(map[int64]int, len(groups))
	for gi, g := range groups {
		for _, id := range g.TopicIDs {
			root[id] = gi
		}
		groups[gi].MaxSimilarity = -1
	}
	for pair, sim := range best {
		g := &groups[root[pair[0]]]
		if sim > g.MaxSimilarity {
			g.MaxSimilarity = sim
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].TopicIDs) > len(groups[j].TopicIDs)
	})
	return groups, nil
}
