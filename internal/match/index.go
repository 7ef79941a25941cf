package match

import (
	"simdex/bktree"
	"simdex/internal/models"
)

// Index answers nearest-neighbor queries over catalog entries. Entries
// must all carry hashes from the same algorithm; distances between
// different algorithms are meaningless.
type Index struct {
	tree *bktree.Tree[*models.ImageEntry]
	algo string
}

func entryHamming(a, b *models.ImageEntry) int {
	return bktree.Hamming(a.Hash, b.Hash)
}

// NewIndex builds an index over the given entries
func NewIndex(algo string, entries []*models.ImageEntry) *Index {
	return &Index{
		tree: bktree.New(entryHamming, entries...),
		algo: algo,
	}
}

// Add indexes one more entry
func (ix *Index) Add(e *models.ImageEntry) {
	ix.tree.Add(e)
}

// Neighbors returns all indexed entries within maxDist of the query
// hash, closest first
func (ix *Index) Neighbors(hash uint64, maxDist int) []*models.Neighbor {
	hits := ix.tree.Find(&models.ImageEntry{Hash: hash}, maxDist)
	if len(hits) == 0 {
		return nil
	}

	neighbors := make([]*models.Neighbor, 0, len(hits))
	for _, hit := range hits {
		neighbors = append(neighbors, &models.Neighbor{
			Distance: hit.Distance,
			Image:    hit.Item,
		})
	}
	return neighbors
}

// Algo returns the hash algorithm this index was built for
func (ix *Index) Algo() string {
	return ix.algo
}

// Size returns the number of indexed entries
func (ix *Index) Size() int {
	return ix.tree.Len()
}
