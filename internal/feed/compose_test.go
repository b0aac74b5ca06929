package feed

import (
	"math"
	"testing"

	"github.com/hushmap/hushmap/internal/geo"
	"github.com/hushmap/hushmap/internal/models"
)

var origin = geo.Coordinate{}

// northOf returns a coordinate d meters due north of the equator/prime meridian origin
func northOf(d float64) (lat, lng float64) {
	return d / geo.EarthRadiusMeters * 180 / math.Pi, 0
}

func postAt(id string, meters float64, createdAt int64) models.Post {
	lat, lng := northOf(meters)
	return models.Post{ID: id, AuthorID: "author-" + id, Text: id, Latitude: lat, Longitude: lng, CreatedAt: createdAt}
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Post.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilterByRadius(t *testing.T) {
	candidates := []models.Post{
		postAt("a", 100, 1),
		postAt("b", 4999, 2),
		postAt("c", 5001, 3),
		postAt("d", 10000, 4),
	}

	got := FilterByRadius(candidates, origin, 5000)
	if len(got) != 2 {
		t.Fatalf("FilterByRadius() returned %d posts, want 2", len(got))
	}

	want := map[string]float64{"a": 100, "b": 4999}
	for _, n := range got {
		d, ok := want[n.Post.ID]
		if !ok {
			t.Errorf("unexpected post %s in result", n.Post.ID)
			continue
		}
		if math.Abs(n.DistanceMeters-d) > 1 {
			t.Errorf("distance for %s = %v, want %v", n.Post.ID, n.DistanceMeters, d)
		}
		if n.DistanceMeters != geo.DistanceMeters(origin, n.Post.Location()) {
			t.Errorf("distance for %s does not match geo.DistanceMeters", n.Post.ID)
		}
	}
}

func TestFilterByRadiusEdges(t *testing.T) {
	here := models.Post{ID: "here"}
	tests := []struct {
		name       string
		candidates []models.Post
		radius     float64
		want       int
	}{
		{name: "empty input", candidates: nil, radius: 1000, want: 0},
		{name: "zero radius", candidates: []models.Post{here}, radius: 0, want: 0},
		{name: "negative radius", candidates: []models.Post{here}, radius: -5, want: 0},
		{name: "exact boundary included", candidates: []models.Post{here}, radius: 0.0001, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilterByRadius(tt.candidates, origin, tt.radius); len(got) != tt.want {
				t.Errorf("FilterByRadius() = %d entries, want %d", len(got), tt.want)
			}
		})
	}
}

func TestFilterByRadiusPartition(t *testing.T) {
	var candidates []models.Post
	for i := 0; i < 50; i++ {
		candidates = append(candidates, postAt(string(rune('A'+i)), float64(i*250), int64(i)))
	}
	radius := 6100.0

	kept := map[string]bool{}
	for _, n := range FilterByRadius(candidates, origin, radius) {
		if n.DistanceMeters > radius {
			t.Errorf("%s returned at %v beyond radius", n.Post.ID, n.DistanceMeters)
		}
		kept[n.Post.ID] = true
	}
	for _, p := range candidates {
		if !kept[p.ID] && geo.DistanceMeters(origin, p.Location()) <= radius {
			t.Errorf("%s excluded although within radius", p.ID)
		}
	}
}

func TestComposeStrategies(t *testing.T) {
	tests := []struct {
		name       string
		candidates []models.Post
		strategy   Strategy
		want       []string
	}{
		{
			name: "recent",
			candidates: []models.Post{
				postAt("t100", 10, 100),
				postAt("t300", 10, 300),
				postAt("t200", 10, 200),
			},
			strategy: Recent,
			want:     []string{"t300", "t200", "t100"},
		},
		{
			name: "popular with recency tie break",
			candidates: func() []models.Post {
				a := postAt("score5-old", 10, 10)
				a.LikeCount, a.CommentCount = 3, 2
				b := postAt("score5-new", 10, 20)
				b.LikeCount, b.CommentCount = 5, 0
				c := postAt("score9", 10, 5)
				c.LikeCount, c.CommentCount = 4, 5
				return []models.Post{a, b, c}
			}(),
			strategy: Popular,
			want:     []string{"score9", "score5-new", "score5-old"},
		},
		{
			name: "nearby",
			candidates: []models.Post{
				postAt("d50", 50, 1),
				postAt("d10", 10, 2),
				postAt("d200", 200, 3),
			},
			strategy: Nearby,
			want:     []string{"d10", "d50", "d200"},
		},
		{
			name: "nearby tie broken by recency",
			candidates: []models.Post{
				postAt("same-old", 75, 1),
				postAt("same-new", 75, 9),
			},
			strategy: Nearby,
			want:     []string{"same-new", "same-old"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Compose(tt.candidates, origin, 1000, "", nil, tt.strategy))
			if !equalIDs(got, tt.want) {
				t.Errorf("Compose() order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComposeAnnotations(t *testing.T) {
	mine := postAt("mine", 10, 3)
	mine.AuthorID = "viewer"
	anon := postAt("anon", 20, 2)
	anon.IsAnonymous = true
	other := postAt("other", 30, 1)

	entries := Compose([]models.Post{mine, anon, other}, origin, 1000, "viewer",
		map[string]struct{}{"anon": {}}, Recent)

	byID := map[string]Entry{}
	for _, e := range entries {
		byID[e.Post.ID] = e
	}

	if !byID["anon"].LikedByCurrentUser || byID["other"].LikedByCurrentUser {
		t.Error("liked annotation does not match likedPostIDs")
	}
	if byID["anon"].Post.AuthorID != "" {
		t.Error("anonymous post should not expose its author")
	}
	if anon.AuthorID == "" {
		t.Error("Compose must not mutate the candidate slice")
	}
	if !byID["mine"].Mine || byID["other"].Mine {
		t.Error("Mine annotation is wrong")
	}
}

func TestComposeNearbyUnboundedRoundTrip(t *testing.T) {
	candidates := []models.Post{
		{ID: "sf", Latitude: 37.7749, Longitude: -122.4194, CreatedAt: 1},
		{ID: "nyc", Latitude: 40.7128, Longitude: -74.0060, CreatedAt: 2},
		{ID: "syd", Latitude: -33.8688, Longitude: 151.2093, CreatedAt: 3},
		{ID: "null-island", CreatedAt: 4},
	}
	liked := map[string]struct{}{"nyc": {}}

	entries := Compose(candidates, origin, math.Inf(1), "u", liked, Nearby)
	if len(entries) != len(candidates) {
		t.Fatalf("Compose() returned %d entries, want %d", len(entries), len(candidates))
	}

	seen := map[string]int{}
	for i, e := range entries {
		seen[e.Post.ID]++
		if e.DistanceMeters != geo.DistanceMeters(origin, e.Post.Location()) {
			t.Errorf("%s distance mismatch", e.Post.ID)
		}
		_, wantLiked := liked[e.Post.ID]
		if e.LikedByCurrentUser != wantLiked {
			t.Errorf("%s liked = %v, want %v", e.Post.ID, e.LikedByCurrentUser, wantLiked)
		}
		if i > 0 && entries[i-1].DistanceMeters > e.DistanceMeters {
			t.Errorf("entries not ordered by distance at %d", i)
		}
	}
	for _, p := range candidates {
		if seen[p.ID] != 1 {
			t.Errorf("%s appeared %d times", p.ID, seen[p.ID])
		}
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{in: "", want: Recent},
		{in: "RECENT", want: Recent},
		{in: "popular", want: Popular},
		{in: " Nearby ", want: Nearby},
		{in: "trending", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStrategy(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseStrategy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
