// Package objects builds the JSON shapes returned by the RPC methods.
package objects

import (
	"sort"

	"github.com/hushmap/hushmap/internal/engagement"
	"github.com/hushmap/hushmap/internal/feed"
	"github.com/hushmap/hushmap/internal/geo"
	"github.com/hushmap/hushmap/internal/models"
)

// Secret is the public view of a post
type Secret struct {
	ID                 string         `json:"id"`
	AuthorID           string         `json:"authorId,omitempty"`
	Text               string         `json:"text"`
	ImageURL           string         `json:"imageUrl,omitempty"`
	ImageURLs          []string       `json:"imageUrls"`
	Location           geo.Coordinate `json:"location"`
	CreatedAt          int64          `json:"createdAt"`
	LikeCount          int64          `json:"likeCount"`
	CommentCount       int64          `json:"commentCount"`
	Score              int64          `json:"score"`
	IsAnonymous        bool           `json:"isAnonymous"`
	Mood               string         `json:"mood,omitempty"`
	Category           string         `json:"category,omitempty"`
	Hashtags           []string       `json:"hashtags"`
	DistanceMeters     *float64       `json:"distanceMeters,omitempty"`
	LikedByCurrentUser bool           `json:"likedByCurrentUser"`
	Mine               bool           `json:"mine"`
}

// NewSecret renders a post for viewerID. Anonymous posts never expose their author.
func NewSecret(p models.Post, viewerID string, liked bool) Secret {
	s := Secret{
		ID:                 p.ID,
		AuthorID:           p.AuthorID,
		Text:               p.Text,
		ImageURL:           p.ImageURL,
		ImageURLs:          nonNil(p.ImageURLs),
		Location:           p.Location(),
		CreatedAt:          p.CreatedAt,
		LikeCount:          p.LikeCount,
		CommentCount:       p.CommentCount,
		Score:              engagement.Score(p),
		IsAnonymous:        p.IsAnonymous,
		Mood:               p.Mood,
		Category:           p.Category,
		Hashtags:           nonNil(p.Hashtags),
		LikedByCurrentUser: liked,
		Mine:               viewerID != "" && viewerID == p.AuthorID,
	}
	if p.IsAnonymous {
		s.AuthorID = ""
	}
	return s
}

// NewFeed renders composed feed entries in order
func NewFeed(entries []feed.Entry) []Secret {
	out := make([]Secret, len(entries))
	for i, e := range entries {
		s := NewSecret(e.Post, "", e.LikedByCurrentUser)
		s.Mine = e.Mine
		d := e.DistanceMeters
		s.DistanceMeters = &d
		out[i] = s
	}
	return out
}

// LikeState is the result of a like toggle
type LikeState struct {
	PostID string `json:"postId"`
	Liked  bool   `json:"liked"`
	Delta  int64  `json:"delta"`
}

// NewLikeState renders a transition applied to postID
func NewLikeState(postID string, t engagement.Transition) LikeState {
	return LikeState{PostID: postID, Liked: t.Liked, Delta: t.Delta}
}

// Comment is the public view of a comment
type Comment struct {
	ID        string `json:"id"`
	PostID    string `json:"postId"`
	AuthorID  string `json:"authorId"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// NewComments renders comments in order
func NewComments(comments []models.Comment) []Comment {
	out := make([]Comment, len(comments))
	for i, c := range comments {
		out[i] = NewComment(c)
	}
	return out
}

func NewComment(c models.Comment) Comment {
	return Comment{ID: c.ID, PostID: c.PostID, AuthorID: c.AuthorID, Text: c.Text, CreatedAt: c.CreatedAt}
}

// Story is the public view of a story
type Story struct {
	ID        string `json:"id"`
	AuthorID  string `json:"authorId"`
	ImageURL  string `json:"imageUrl"`
	Caption   string `json:"caption,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
	ViewCount int64  `json:"viewCount"`
}

func NewStory(s models.Story) Story {
	return Story{
		ID:        s.ID,
		AuthorID:  s.AuthorID,
		ImageURL:  s.ImageURL,
		Caption:   s.Caption,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
		ViewCount: s.ViewCount,
	}
}

// StoryGroup is one author's active stories, newest first
type StoryGroup struct {
	AuthorID string  `json:"authorId"`
	Stories  []Story `json:"stories"`
}

// NewStoryGroups flattens grouped stories into a list ordered by each author's
// newest story, most recent first. Ties break on author id.
func NewStoryGroups(grouped map[string][]models.Story) []StoryGroup {
	out := make([]StoryGroup, 0, len(grouped))
	for author, stories := range grouped {
		g := StoryGroup{AuthorID: author, Stories: make([]Story, len(stories))}
		for i, s := range stories {
			g.Stories[i] = NewStory(s)
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := latest(out[i]), latest(out[j])
		if a != b {
			return a > b
		}
		return out[i].AuthorID < out[j].AuthorID
	})
	return out
}

func latest(g StoryGroup) int64 {
	if len(g.Stories) == 0 {
		return 0
	}
	return g.Stories[0].CreatedAt
}

// Profile is the public card of a user with follow counts
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Followers   int64  `json:"followers"`
	Following   int64  `json:"following"`
	IsFollowing bool   `json:"isFollowing"`
}

func NewProfile(p models.Profile, counts models.FollowCounts, isFollowing bool) Profile {
	return Profile{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		AvatarURL:   p.AvatarURL,
		Followers:   counts.Followers,
		Following:   counts.Following,
		IsFollowing: isFollowing,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
