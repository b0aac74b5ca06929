package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hushmap/hushmap/internal/geo"
)

// Field limits for user supplied post content
const (
	MaxTextLength = 500
	MaxMetaLength = 32
	MaxHashtags   = 10
	MaxImages     = 4
)

// ErrInvalid is wrapped by every validation failure in this package
var ErrInvalid = errors.New("invalid")

// Post represents a secret pinned to a coordinate
type Post struct {
	ID           string   `gorm:"type:char(26);primaryKey;column:id"`
	AuthorID     string   `gorm:"type:varchar(64);not null;index;column:author_id"`
	Text         string   `gorm:"type:varchar(2000);not null;column:text"`
	ImageURL     string   `gorm:"type:varchar(1024);column:image_url"`
	ImageURLs    []string `gorm:"serializer:json;type:text;column:image_urls"`
	Latitude     float64  `gorm:"not null;column:latitude"`
	Longitude    float64  `gorm:"not null;column:longitude"`
	CreatedAt    int64    `gorm:"not null;index;autoCreateTime:milli;column:created_at"`
	LikeCount    int64    `gorm:"not null;default:0;column:like_count"`
	CommentCount int64    `gorm:"not null;default:0;column:comment_count"`
	IsAnonymous  bool     `gorm:"not null;default:false;column:is_anonymous"`
	Mood         string   `gorm:"type:varchar(32);column:mood"`
	Category     string   `gorm:"type:varchar(32);column:category"`
	Hashtags     []string `gorm:"serializer:json;type:text;column:hashtags"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// Location returns the coordinate the post is pinned to
func (p Post) Location() geo.Coordinate {
	return geo.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
}

// Likes implements engagement.Counters
func (p Post) Likes() int64 { return p.LikeCount }

// Comments implements engagement.Counters
func (p Post) Comments() int64 { return p.CommentCount }

// SetImages stores the ordered image list; ImageURL mirrors the first entry.
func (p *Post) SetImages(urls []string) {
	p.ImageURLs = nil
	p.ImageURL = ""
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			p.ImageURLs = append(p.ImageURLs, u)
		}
	}
	if len(p.ImageURLs) > 0 {
		p.ImageURL = p.ImageURLs[0]
	}
}

// Validate checks the content fields of a post before it is stored
func (p *Post) Validate() error {
	if p.AuthorID == "" {
		return fmt.Errorf("%w: author is required", ErrInvalid)
	}
	if err := validateText(p.Text); err != nil {
		return err
	}
	if !p.Location().Valid() {
		return fmt.Errorf("%w: location out of range", ErrInvalid)
	}
	if len(p.ImageURLs) > MaxImages {
		return fmt.Errorf("%w: at most %d images", ErrInvalid, MaxImages)
	}
	if utf8.RuneCountInString(p.Mood) > MaxMetaLength {
		return fmt.Errorf("%w: mood longer than %d characters", ErrInvalid, MaxMetaLength)
	}
	if utf8.RuneCountInString(p.Category) > MaxMetaLength {
		return fmt.Errorf("%w: category longer than %d characters", ErrInvalid, MaxMetaLength)
	}
	if len(p.Hashtags) > MaxHashtags {
		return fmt.Errorf("%w: at most %d hashtags", ErrInvalid, MaxHashtags)
	}
	for _, tag := range p.Hashtags {
		if tag == "" || utf8.RuneCountInString(tag) > MaxMetaLength {
			return fmt.Errorf("%w: hashtag %q must be 1..%d characters", ErrInvalid, tag, MaxMetaLength)
		}
	}
	return nil
}

// Like marks a post as liked by a user; at most one row per pair
type Like struct {
	UserID    string `gorm:"type:varchar(64);primaryKey;column:user_id"`
	PostID    string `gorm:"type:char(26);primaryKey;index;column:post_id"`
	CreatedAt int64  `gorm:"not null;autoCreateTime:milli;column:created_at"`
}

// TableName specifies the table name for Like
func (Like) TableName() string {
	return "post_likes"
}

// Comment is an append-only reply to a post
type Comment struct {
	ID        string `gorm:"type:char(26);primaryKey;column:id"`
	PostID    string `gorm:"type:char(26);not null;index:idx_comment_post_created,priority:1;column:post_id"`
	AuthorID  string `gorm:"type:varchar(64);not null;column:author_id"`
	Text      string `gorm:"type:varchar(2000);not null;column:text"`
	CreatedAt int64  `gorm:"not null;index:idx_comment_post_created,priority:2;autoCreateTime:milli;column:created_at"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "post_comments"
}

// Validate checks the comment before it is stored
func (c *Comment) Validate() error {
	if c.PostID == "" || c.AuthorID == "" {
		return fmt.Errorf("%w: post and author are required", ErrInvalid)
	}
	return validateText(c.Text)
}

func validateText(text string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n == 0 {
		return fmt.Errorf("%w: text is required", ErrInvalid)
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return fmt.Errorf("%w: text longer than %d characters", ErrInvalid, MaxTextLength)
	}
	return nil
}
