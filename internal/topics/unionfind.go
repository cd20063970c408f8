package topics

import "sort"

// unionFind implements union-find over topic ids with path compression and
// union by rank
type unionFind struct {
	parent map[int64]int64
	rank   map[int64]int
}

func newUnionFind(ids []int64) *unionFind {
	uf := &unionFind{
		parent: make(map[int64]int64, len(ids)),
		rank:   make(map[int64]int, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

// find returns the root of the set containing id
func (uf *unionFind) find(id int64) int64 {
	parent, ok := uf.parent[id]
	if !ok {
		return id
	}
	if parent != id {
		root := uf.find(parent)
		uf.parent[id] = root
		return root
	}
	return id
}

// union merges the sets containing a and b. Returns true if they were separate.
func (uf *unionFind) union(a, b int64) bool {
	rootA, rootB := uf.find(a), uf.find(b)
	if rootA == rootB {
		return false
	}
	switch {
	case uf.rank[rootA] < uf.rank[rootB]:
		uf.parent[rootA] = rootB
	case uf.rank[rootA] > uf.rank[rootB]:
		uf.parent[rootB] = rootA
	default:
		uf.parent[rootB] = rootA
		uf.rank[rootA]++
	}
	return true
}

// components returns every set with its members in ascending id order,
// ordered by each set's smallest id.
func (uf *unionFind) components() [][]int64 {
	groups := make(map[int64][]int64)
	for id := range uf.parent {
		root := uf.find(id)
		groups[root] = append(groups[root], id)
	}
	result := make([][]int64, 0, len(groups))
	for _, members := range groups {
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		result = append(result, members)
	}
	sort.Slice(result, func(i, j int) bool { return result[i][0] < result[j][0] })
	return result
}
