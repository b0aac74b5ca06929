package models

// Story is an ephemeral image post. Stories live in the document store.
type Story struct {
	ID        string `bson:"_id"`
	AuthorID  string `bson:"author_id"`
	ImageURL  string `bson:"image_url"`
	Caption   string `bson:"caption,omitempty"`
	CreatedAt int64  `bson:"created_at"`
	ExpiresAt int64  `bson:"expires_at"`
	ViewCount int64  `bson:"view_count"`
	IsActive  bool   `bson:"is_active"`
}

// StoryView records that a user has seen a story
type StoryView struct {
	UserID   string `bson:"user_id"`
	StoryID  string `bson:"story_id"`
	ViewedAt int64  `bson:"viewed_at"`
}
