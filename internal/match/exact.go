package match

import "simdex/internal/models"

// ExactMatcher finds groups of images with identical file hashes
type ExactMatcher struct{}

// NewExactMatcher creates a new ExactMatcher
func NewExactMatcher() *ExactMatcher {
	return &ExactMatcher{}
}

// FindGroups finds groups of entries with identical file hashes
func (m *ExactMatcher) FindGroups(entries []*models.ImageEntry) []*models.DuplicateGroup {
	if len(entries) < 2 {
		return nil
	}

	// Group by file hash
	hashMap := make(map[string][]*models.ImageEntry)
	for _, e := range entries {
		if e.FileHash != "" {
			hashMap[e.FileHash] = append(hashMap[e.FileHash], e)
		}
	}

	// Convert to group map format
	groupMap := make(map[int][]*models.ImageEntry)
	idx := 0
	for _, entries := range hashMap {
		groupMap[idx] = entries
		idx++
	}

	return buildGroups(groupMap)
}
