// Package feed builds location filtered, ranked feeds of secrets.
package feed

import (
	"sort"

	"github.com/hushmap/hushmap/internal/engagement"
	"github.com/hushmap/hushmap/internal/geo"
	"github.com/hushmap/hushmap/internal/models"
)

// NearbyPost is a post annotated with its distance from the feed origin
type NearbyPost struct {
	Post           models.Post
	DistanceMeters float64
}

// Entry is one row of a composed feed
type Entry struct {
	Post               models.Post
	DistanceMeters     float64
	LikedByCurrentUser bool
	// Mine is true when the viewer authored the post, even if it is anonymous
	Mine bool
}

// FilterByRadius keeps the candidates whose distance from origin is at most
// radiusMeters. Output order follows input order.
func FilterByRadius(candidates []models.Post, origin geo.Coordinate, radiusMeters float64) []NearbyPost {
	if radiusMeters <= 0 || len(candidates) == 0 {
		return nil
	}
	out := make([]NearbyPost, 0, len(candidates))
	for _, p := range candidates {
		d := geo.DistanceMeters(origin, p.Location())
		if d <= radiusMeters {
			out = append(out, NearbyPost{Post: p, DistanceMeters: d})
		}
	}
	return out
}

// Compose filters candidates by radius, marks the ones in likedPostIDs and
// orders the result by strategy. It does not paginate.
func Compose(candidates []models.Post, origin geo.Coordinate, radiusMeters float64,
	currentUserID string, likedPostIDs map[string]struct{}, strategy Strategy) []Entry {
	return rank(FilterByRadius(candidates, origin, radiusMeters), currentUserID, likedPostIDs, strategy)
}

func rank(nearby []NearbyPost, currentUserID string, likedPostIDs map[string]struct{}, strategy Strategy) []Entry {
	entries := make([]Entry, 0, len(nearby))
	for _, n := range nearby {
		_, liked := likedPostIDs[n.Post.ID]
		e := Entry{
			Post:               n.Post,
			DistanceMeters:     n.DistanceMeters,
			LikedByCurrentUser: liked,
			Mine:               currentUserID != "" && n.Post.AuthorID == currentUserID,
		}
		if e.Post.IsAnonymous {
			e.Post.AuthorID = ""
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, less(entries, strategy))
	return entries
}

func less(entries []Entry, strategy Strategy) func(i, j int) bool {
	newer := func(a, b *Entry) bool {
		if a.Post.CreatedAt != b.Post.CreatedAt {
			return a.Post.CreatedAt > b.Post.CreatedAt
		}
		return a.Post.ID > b.Post.ID
	}

	switch strategy {
	case Popular:
		return func(i, j int) bool {
			a, b := &entries[i], &entries[j]
			sa, sb := engagement.Score(a.Post), engagement.Score(b.Post)
			if sa != sb {
				return sa > sb
			}
			return newer(a, b)
		}
	case Nearby:
		return func(i, j int) bool {
			a, b := &entries[i], &entries[j]
			if a.DistanceMeters != b.DistanceMeters {
				return a.DistanceMeters < b.DistanceMeters
			}
			return newer(a, b)
		}
	default:
		return func(i, j int) bool {
			return newer(&entries[i], &entries[j])
		}
	}
}
