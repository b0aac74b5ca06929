package story

import (
	"context"
	"sort"
	"sync"

	"github.com/hushmap/hushmap/internal/models"
)

type viewKey struct {
	userID  string
	storyID string
}

// MemoryStore is an in-process Store used when no document database is configured
type MemoryStore struct {
	mu      sync.RWMutex
	stories map[string]models.Story
	views   map[viewKey]int64
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stories: make(map[string]models.Story),
		views:   make(map[viewKey]int64),
	}
}

// Create stores a new story, rejecting a duplicate id
func (m *MemoryStore) Create(_ context.Context, s models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.stories[s.ID]; exists {
		return ErrInvalid
	}
	m.stories[s.ID] = s
	return nil
}

// Get returns a copy of the story with id
func (m *MemoryStore) Get(_ context.Context, id string) (*models.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

// ListActive returns active stories newest first
func (m *MemoryStore) ListActive(_ context.Context, limit int) ([]models.Story, error) {
	m.mu.RLock()
	var out []models.Story
	for _, s := range m.stories {
		if s.IsActive {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return truncate(out, limit), nil
}

// ListDue returns active stories whose expiry is at or before now
func (m *MemoryStore) ListDue(_ context.Context, now int64, limit int) ([]models.Story, error) {
	m.mu.RLock()
	var out []models.Story
	for _, s := range m.stories {
		if s.IsActive && s.ExpiresAt <= now {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt != out[j].ExpiresAt {
			return out[i].ExpiresAt < out[j].ExpiresAt
		}
		return out[i].ID < out[j].ID
	})
	return truncate(out, limit), nil
}

// Deactivate turns off an active story owned by ownerID
func (m *MemoryStore) Deactivate(_ context.Context, ownerID, id string) (*models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stories[id]
	if !ok || !s.IsActive {
		return nil, ErrNotFound
	}
	if s.AuthorID != ownerID {
		return nil, ErrForbidden
	}
	s.IsActive = false
	m.stories[id] = s
	return &s, nil
}

// MarkInactive deactivates the given stories and reports how many changed
func (m *MemoryStore) MarkInactive(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int64
	for _, id := range ids {
		if s, ok := m.stories[id]; ok && s.IsActive {
			s.IsActive = false
			m.stories[id] = s
			changed++
		}
	}
	return changed, nil
}

// RecordView reports true only the first time userID views storyID
func (m *MemoryStore) RecordView(_ context.Context, userID, storyID string, at int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stories[storyID]
	if !ok {
		return false, ErrNotFound
	}
	key := viewKey{userID: userID, storyID: storyID}
	if _, seen := m.views[key]; seen {
		return false, nil
	}
	m.views[key] = at
	s.ViewCount++
	m.stories[storyID] = s
	return true, nil
}

func truncate(stories []models.Story, limit int) []models.Story {
	if limit > 0 && len(stories) > limit {
		return stories[:limit]
	}
	return stories
}
