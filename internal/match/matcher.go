package match

import (
	"sort"

	"simdex/internal/models"
)

// Matcher is the interface for duplicate detection strategies
type Matcher interface {
	FindGroups(entries []*models.ImageEntry) []*models.DuplicateGroup
}

// buildGroups builds DuplicateGroup slice from a group map
func buildGroups(groupMap map[int][]*models.ImageEntry) []*models.DuplicateGroup {
	var groups []*models.DuplicateGroup
	groupID := 1

	for _, entries := range groupMap {
		if len(entries) < 2 {
			continue
		}

		group := &models.DuplicateGroup{
			ID:     groupID,
			Images: entries,
		}

		selectKeepAndRemove(group)
		groups = append(groups, group)
		groupID++
	}

	// Sort groups by ID for consistent output
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].ID < groups[j].ID
	})

	return groups
}

// selectKeepAndRemove determines which entry to keep and which to remove
func selectKeepAndRemove(group *models.DuplicateGroup) {
	if len(group.Images) == 0 {
		return
	}

	// Sort entries by score (descending), then by file size (descending),
	// then by mod time (descending), then by path (ascending)
	sorted := make([]*models.ImageEntry, len(group.Images))
	copy(sorted, group.Images)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]

		// Primary: score (higher is better)
		if a.Score != b.Score {
			return a.Score > b.Score
		}

		// Secondary: file size (larger is better - more information)
		if a.FileSize != b.FileSize {
			return a.FileSize > b.FileSize
		}

		// Tertiary: mod time (newer is better)
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}

		// Fallback: path (alphabetical)
		return a.Path < b.Path
	})

	// First entry is the one to keep
	group.Keep = sorted[0]

	// Rest are to be removed
	group.Remove = sorted[1:]

	// Assign group ID to all entries
	for _, e := range group.Images {
		e.GroupID = group.ID
	}
}
