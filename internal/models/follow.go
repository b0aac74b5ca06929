package models

// Follow represents a follow relationship. Counts are derived from the edge set.
type Follow struct {
	FollowerID string `gorm:"type:varchar(64);primaryKey;column:follower_id"`
	FollowedID string `gorm:"type:varchar(64);primaryKey;index;column:followed_id"`
	CreatedAt  int64  `gorm:"not null;autoCreateTime:milli;column:created_at"`
}

// TableName specifies the table name for Follow
func (Follow) TableName() string {
	return "user_follows"
}

// FollowCounts is the derived follower/following tally of a user
type FollowCounts struct {
	Followers int64
	Following int64
}
