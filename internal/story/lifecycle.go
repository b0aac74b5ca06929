// Package story implements the 24 hour story lifecycle.
package story

import (
	"sort"

	"github.com/hushmap/hushmap/internal/models"
)

// TTL is the lifetime of a story in milliseconds
const TTL int64 = 86_400_000

// ExpiresAt returns the expiry timestamp of a story created at createdAt
func ExpiresAt(createdAt int64) int64 {
	return createdAt + TTL
}

// IsActive reports whether s is visible at now
func IsActive(s models.Story, now int64) bool {
	return s.IsActive && now < s.ExpiresAt
}

// SweepExpired returns the stories that must transition to inactive at now
func SweepExpired(stories []models.Story, now int64) []models.Story {
	var due []models.Story
	for _, s := range stories {
		if s.IsActive && s.ExpiresAt <= now {
			due = append(due, s)
		}
	}
	return due
}

// ApplyInactive returns a copy of stories with every id in swept marked inactive
func ApplyInactive(stories, swept []models.Story) []models.Story {
	ids := make(map[string]struct{}, len(swept))
	for _, s := range swept {
		ids[s.ID] = struct{}{}
	}
	out := make([]models.Story, len(stories))
	for i, s := range stories {
		if _, ok := ids[s.ID]; ok {
			s.IsActive = false
		}
		out[i] = s
	}
	return out
}

// GroupActiveByAuthor groups the stories active at now by author, newest first
func GroupActiveByAuthor(stories []models.Story, now int64) map[string][]models.Story {
	groups := make(map[string][]models.Story)
	for _, s := range stories {
		if IsActive(s, now) {
			groups[s.AuthorID] = append(groups[s.AuthorID], s)
		}
	}
	for _, list := range groups {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].CreatedAt > list[j].CreatedAt
		})
	}
	return groups
}

// IDs returns the identifiers of stories in order
func IDs(stories []models.Story) []string {
	ids := make([]string, len(stories))
	for i, s := range stories {
		ids[i] = s.ID
	}
	return ids
}
