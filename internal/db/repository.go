package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hushmap/hushmap/internal/engagement"
	"github.com/hushmap/hushmap/internal/models"
)

// ErrSelfFollow is returned when a user tries to follow themselves
var ErrSelfFollow = errors.New("cannot follow yourself")

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// Create validates and stores a new post. Counters always start at zero.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if err := post.Validate(); err != nil {
		return err
	}
	if post.ID == "" {
		post.ID = models.NewID()
	}
	if post.CreatedAt == 0 {
		post.CreatedAt = nowMillis()
	}
	post.LikeCount = 0
	post.CommentCount = 0
	return translate(r.db.WithContext(ctx).Create(post).Error)
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// Recent returns the limit most recent posts, newest first
func (r *PostRepository) Recent(ctx context.Context, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

// ListByAuthor returns a user's posts, newest first
func (r *PostRepository) ListByAuthor(ctx context.Context, authorID string, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

// LikeRepository provides like-related database operations
type LikeRepository struct {
	*Repository
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(repo *Repository) *LikeRepository {
	return &LikeRepository{Repository: repo}
}

// Toggle flips the like state of (userID, postID) in one transaction. The
// counter only moves when a row was actually inserted or deleted, so racing
// toggles can never leave like_count out of step with the like rows.
func (r *LikeRepository) Toggle(ctx context.Context, userID, postID string) (engagement.Transition, error) {
	var result engagement.Transition

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, "id = ?", postID).Error; err != nil {
			return translate(err)
		}

		var existing int64
		if err := tx.Model(&models.Like{}).
			Where("user_id = ? AND post_id = ?", userID, postID).
			Count(&existing).Error; err != nil {
			return err
		}

		result = engagement.Toggle(existing > 0)

		var changed int64
		if result.Liked {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Like{UserID: userID, PostID: postID, CreatedAt: nowMillis()})
			if res.Error != nil {
				return res.Error
			}
			changed = res.RowsAffected
		} else {
			res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
			if res.Error != nil {
				return res.Error
			}
			changed = res.RowsAffected
		}

		if changed == 0 {
			// another request already applied the same transition
			result.Delta = 0
			return nil
		}

		return adjustCounter(tx, postID, "like_count", result.Delta)
	})
	if err != nil {
		return engagement.Transition{}, err
	}
	return result, nil
}

// LikedPostIDs returns the subset of postIDs liked by userID
func (r *LikeRepository) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]struct{}, error) {
	liked := make(map[string]struct{})
	if userID == "" || len(postIDs) == 0 {
		return liked, nil
	}

	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = struct{}{}
	}
	return liked, nil
}

// IsLiked reports whether userID likes postID
func (r *LikeRepository) IsLiked(ctx context.Context, userID, postID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&n).Error
	return n > 0, err
}

// CountByPost counts the like rows of a post
func (r *LikeRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

// CommentRepository provides comment-related database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// Add appends a comment and bumps the post's comment_count atomically
func (r *CommentRepository) Add(ctx context.Context, comment *models.Comment) error {
	if err := comment.Validate(); err != nil {
		return err
	}
	if comment.ID == "" {
		comment.ID = models.NewID()
	}
	if comment.CreatedAt == 0 {
		comment.CreatedAt = nowMillis()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, "id = ?", comment.PostID).Error; err != nil {
			return translate(err)
		}
		if err := tx.Create(comment).Error; err != nil {
			return translate(err)
		}
		return adjustCounter(tx, comment.PostID, "comment_count", 1)
	})
}

// ListByPost returns a post's comments in display order, oldest first
func (r *CommentRepository) ListByPost(ctx context.Context, postID string, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	q := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&comments).Error
	return comments, err
}

// adjustCounter applies delta in SQL so concurrent writers never lose updates.
// The guard keeps counters from going negative.
func adjustCounter(tx *gorm.DB, postID, column string, delta int64) error {
	res := tx.Model(&models.Post{}).
		Where("id = ? AND "+column+" + ? >= 0", postID, delta).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("adjust %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("adjust %s: %w", column, ErrConflict)
	}
	return nil
}

// FollowRepository provides follow-related database operations
type FollowRepository struct {
	*Repository
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(repo *Repository) *FollowRepository {
	return &FollowRepository{Repository: repo}
}

// Follow creates the edge follower -> followed. It reports whether a new edge was stored.
func (r *FollowRepository) Follow(ctx context.Context, followerID, followedID string) (bool, error) {
	if followerID == followedID {
		return false, ErrSelfFollow
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FollowedID: followedID, CreatedAt: nowMillis()})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Unfollow removes the edge. It reports whether an edge was removed.
func (r *FollowRepository) Unfollow(ctx context.Context, followerID, followedID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	return res.RowsAffected > 0, res.Error
}

// IsFollowing reports whether followerID follows followedID
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followedID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&n).Error
	return n > 0, err
}

// Counts derives follower and following counts from the edge set
func (r *FollowRepository) Counts(ctx context.Context, userID string) (models.FollowCounts, error) {
	var counts models.FollowCounts
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("followed_id = ?", userID).
		Count(&counts.Followers).Error; err != nil {
		return counts, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Count(&counts.Following).Error; err != nil {
		return counts, err
	}
	return counts, nil
}

// ProfileRepository provides profile-related database operations
type ProfileRepository struct {
	*Repository
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(repo *Repository) *ProfileRepository {
	return &ProfileRepository{Repository: repo}
}

// Get retrieves a profile by user ID
func (r *ProfileRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

// Upsert creates the profile or replaces its editable fields
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	now := nowMillis()
	if profile.CreatedAt == 0 {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "bio", "avatar_url", "updated_at"}),
	}).Create(profile).Error
}

// SetAvatar points the profile picture at url, creating the profile if needed
func (r *ProfileRepository) SetAvatar(ctx context.Context, id, url string) error {
	now := nowMillis()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"avatar_url", "updated_at"}),
	}).Create(&models.Profile{ID: id, AvatarURL: url, CreatedAt: now, UpdatedAt: now}).Error
}
