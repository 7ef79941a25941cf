package match

import (
	"simdex/bktree"
	"simdex/internal/models"
)

// PerceptualMatcher finds groups of similar images using perceptual hashing
type PerceptualMatcher struct {
	threshold int
}

// NewPerceptualMatcher creates a new PerceptualMatcher
func NewPerceptualMatcher(threshold int) *PerceptualMatcher {
	if threshold < 0 {
		threshold = 10 // Default threshold
	}
	return &PerceptualMatcher{threshold: threshold}
}

// hashedEntry pairs a hash with its position in the input slice so tree
// results can be fed straight into union-find.
type hashedEntry struct {
	hash  uint64
	index int
}

func hashedEntryDistance(a, b hashedEntry) int {
	return bktree.Hamming(a.hash, b.hash)
}

// FindGroups finds groups of similar entries based on Hamming distance.
// A BK-tree keeps each lookup to a fraction of the catalog instead of
// comparing every pair.
func (m *PerceptualMatcher) FindGroups(entries []*models.ImageEntry) []*models.DuplicateGroup {
	n := len(entries)
	if n < 2 {
		return nil
	}

	// Use Union-Find to group similar entries
	uf := newUnionFind(n)

	tree := bktree.New(hashedEntryDistance)

	for i, e := range entries {
		// Union with all previously indexed entries within threshold
		for _, hit := range tree.Find(hashedEntry{hash: e.Hash}, m.threshold) {
			uf.union(i, hit.Item.index)
		}
		// Add current entry to tree
		tree.Add(hashedEntry{hash: e.Hash, index: i})
	}

	// Collect groups
	groupMap := make(map[int][]*models.ImageEntry)
	for i, e := range entries {
		root := uf.find(i)
		groupMap[root] = append(groupMap[root], e)
	}

	return buildGroups(groupMap)
}

// GetThreshold returns the current threshold
func (m *PerceptualMatcher) GetThreshold() int {
	return m.threshold
}

// Union-Find data structure for efficient grouping
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	rank := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent, rank: rank}
}

func (uf *unionFind) find(x int) int {
	if uf.parent[x] != x {
		uf.parent[x] = uf.find(uf.parent[x]) // Path compression
	}
	return uf.parent[x]
}

func (uf *unionFind) union(x, y int) {
	px, py := uf.find(x), uf.find(y)
	if px == py {
		return
	}
	// Union by rank
	if uf.rank[px] < uf.rank[py] {
		px, py = py, px
	}
	uf.parent[py] = px
	if uf.rank[px] == uf.rank[py] {
		uf.rank[px]++
	}
}
