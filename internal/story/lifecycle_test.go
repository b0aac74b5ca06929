package story

import (
	"testing"

	"github.com/hushmap/hushmap/internal/models"
)

func newStory(id, author string, createdAt int64) models.Story {
	return models.Story{
		ID:        id,
		AuthorID:  author,
		ImageURL:  "https://img/" + id,
		CreatedAt: createdAt,
		ExpiresAt: ExpiresAt(createdAt),
		IsActive:  true,
	}
}

func TestIsActiveBoundary(t *testing.T) {
	const created int64 = 1_700_000_000_000
	s := newStory("s1", "a", created)

	if s.ExpiresAt != created+86_400_000 {
		t.Fatalf("ExpiresAt = %d", s.ExpiresAt)
	}

	tests := []struct {
		name string
		now  int64
		want bool
	}{
		{name: "at creation", now: created, want: true},
		{name: "one ms before expiry", now: created + 86_400_000 - 1, want: true},
		{name: "at expiry", now: created + 86_400_000, want: false},
		{name: "after expiry", now: created + 90_000_000, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsActive(s, tt.now); got != tt.want {
				t.Errorf("IsActive(now=%d) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}

	s.IsActive = false
	if IsActive(s, created) {
		t.Error("soft deleted story must never be active")
	}
}

func TestSweepExpired(t *testing.T) {
	now := int64(10 * TTL)
	stories := []models.Story{
		newStory("fresh", "a", now-1000),
		newStory("exact", "a", now-TTL),
		newStory("old", "b", now-2*TTL),
		func() models.Story {
			s := newStory("deleted", "b", now-2*TTL)
			s.IsActive = false
			return s
		}(),
	}

	due := SweepExpired(stories, now)
	got := IDs(due)
	if len(got) != 2 || got[0] != "exact" || got[1] != "old" {
		t.Errorf("SweepExpired() = %v, want [exact old]", got)
	}
}

func TestSweepIdempotent(t *testing.T) {
	now := int64(5 * TTL)
	stories := []models.Story{
		newStory("a", "x", now-TTL-1),
		newStory("b", "x", now-10),
		newStory("c", "y", now-3*TTL),
	}

	first := SweepExpired(stories, now)
	if len(first) != 2 {
		t.Fatalf("first sweep = %v", IDs(first))
	}

	applied := ApplyInactive(stories, first)
	if second := SweepExpired(applied, now); len(second) != 0 {
		t.Errorf("second sweep should be empty, got %v", IDs(second))
	}
	if !stories[0].IsActive {
		t.Error("ApplyInactive must not mutate its input")
	}
}

func TestGroupActiveByAuthor(t *testing.T) {
	now := int64(3 * TTL)
	stories := []models.Story{
		newStory("a-old", "alice", now-5000),
		newStory("b-1", "bob", now-100),
		newStory("a-new", "alice", now-10),
		newStory("a-expired", "alice", now-TTL),
		func() models.Story {
			s := newStory("b-deleted", "bob", now-1)
			s.IsActive = false
			return s
		}(),
	}

	groups := GroupActiveByAuthor(stories, now)
	if len(groups) != 2 {
		t.Fatalf("expected 2 authors, got %d", len(groups))
	}

	alice := IDs(groups["alice"])
	if len(alice) != 2 || alice[0] != "a-new" || alice[1] != "a-old" {
		t.Errorf("alice stories = %v, want [a-new a-old]", alice)
	}
	bob := IDs(groups["bob"])
	if len(bob) != 1 || bob[0] != "b-1" {
		t.Errorf("bob stories = %v, want [b-1]", bob)
	}
}
