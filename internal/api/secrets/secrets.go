// Package secrets implements the secrets.* RPC methods.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hushmap/hushmap/internal/api/objects"
	"github.com/hushmap/hushmap/internal/db"
	"github.com/hushmap/hushmap/internal/event"
	"github.com/hushmap/hushmap/internal/feed"
	"github.com/hushmap/hushmap/internal/geo"
	"github.com/hushmap/hushmap/internal/identity"
	"github.com/hushmap/hushmap/internal/metrics"
	"github.com/hushmap/hushmap/internal/models"
	"github.com/hushmap/hushmap/internal/validate"
	"github.com/hushmap/hushmap/pkg/logging"
)

const (
	defaultCommentLimit = 100
	maxCommentLimit     = 500
)

// Invalidator drops cached candidate windows after a write
type Invalidator interface {
	Invalidate(ctx context.Context, limit int)
}

// Options configures the API
type Options struct {
	DefaultRadiusMeters float64
	// Window is the candidate window size whose cache entry is dropped on create
	Window int
}

// API provides the secrets.* methods
type API struct {
	posts       *db.PostRepository
	likes       *db.LikeRepository
	comments    *db.CommentRepository
	feed        *feed.Service
	invalidator Invalidator
	events      event.Publisher
	opts        Options
	logger      *zap.Logger
}

// NewAPI creates the secrets API. invalidator and events may be nil.
func NewAPI(repo *db.Repository, feedSvc *feed.Service, invalidator Invalidator, events event.Publisher, opts Options) *API {
	if events == nil {
		events = event.Noop()
	}
	return &API{
		posts:       db.NewPostRepository(repo),
		likes:       db.NewLikeRepository(repo),
		comments:    db.NewCommentRepository(repo),
		feed:        feedSvc,
		invalidator: invalidator,
		events:      events,
		opts:        opts,
		logger:      logging.WithComponent("secrets-api"),
	}
}

type createParams struct {
	Text        string          `json:"text"`
	Location    *geo.Coordinate `json:"location"`
	ImageURLs   []string        `json:"imageUrls"`
	IsAnonymous bool            `json:"isAnonymous"`
	Mood        string          `json:"mood"`
	Category    string          `json:"category"`
	Hashtags    []string        `json:"hashtags"`
}

// Create handles secrets.create
func (a *API) Create(c *gin.Context, params json.RawMessage) (interface{}, error) {
	ctx := c.Request.Context()
	userID, err := identity.Require(ctx)
	if err != nil {
		return nil, err
	}

	var p createParams
	if err := validate.Decode(params, &p); err != nil {
		return nil, err
	}
	if p.Location == nil {
		return nil, feed.ErrLocationRequired
	}

	post := models.Post{
		AuthorID:    userID,
		Text:        p.Text,
		Latitude:    p.Location.Latitude,
		Longitude:   p.Location.Longitude,
		IsAnonymous: p.IsAnonymous,
		Mood:        p.Mood,
		Category:    p.Category,
		Hashtags:    p.Hashtags,
	}
	post.SetImages(p.ImageURLs)

	if err := a.posts.Create(ctx, &post); err != nil {
		return nil, err
	}

	if a.invalidator != nil {
		a.invalidator.Invalidate(ctx, a.opts.Window)
	}
	if err := a.events.PublishSecretCreated(ctx, post); err != nil {
		a.logger.Warn("failed to publish secret created", zap.String("post_id", post.ID), zap.Error(err))
	}

	return objects.NewSecret(post, userID, false), nil
}

type idParams struct {
	ID string `json:"id"`
}

// Get handles secrets.get
func (a *API) Get(c *gin.Context, params json.RawMessage) (interface{}, error) {
	ctx := c.Request.Context()

	var p idParams
	if err := validate.Decode(params, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: missing required parameter: id", validate.ErrInvalidParams)
	}

	post, err := a.posts.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	viewer, _ := identity.FromContext(ctx)
	liked := false
	if viewer != "" {
		if liked, err = a.likes.IsLiked(ctx, viewer, post.ID); err != nil {
			return nil, err
		}
	}
	return objects.NewSecret(*post, viewer, liked), nil
}

type feedParams struct {
	Location     *geo.Coordinate `json:"location"`
	RadiusMeters *float64        `json:"radiusMeters"`
	Strategy     string          `json:"strategy"`
}

// GetFeed handles secrets.get_feed. The caller's coordinate is required.
func (a *API) GetFeed(c *gin.Context, params json.RawMessage) (interface{}, error) {
	ctx := c.Request.Context()

	var p feedParams
	if err := validate.Decode(params, &p); err != nil {
		return nil, err
	}
	strategy, err := feed.ParseStrategy(p.Strategy)
	if err != nil {
		return nil, err
	}

	radius := a.opts.DefaultRadiusMeters
	if p.RadiusMeters != nil {
		radius = *p.RadiusMeters
	}

	viewer, _ := identity.FromContext(ctx)
	entries, err := a.feed.Feed(ctx, feed.Request{
		Origin:       p.Location,
		RadiusMeters: radius,
		UserID:       viewer,
		Strategy:     strategy,
	})
	if err != nil {
		return nil, err
	}
	return objects.NewFeed(entries), nil
}

type postParams struct {
	PostID string `json:"postId"`
	Limit  int    `json:"limit"`
}

// ToggleLike handles secrets.toggle_like
func (a *API) ToggleLike(c *gin.Context, params json.RawMessage) (interface{}, error) {
	ctx := c.Request.Context()
	userID, err := identity.Require(ctx)
	if err != nil {
		return nil, err
	}

	var p postParams
	if err := validate.Decode(params, &p); err != nil {
		return nil, err
	}
	if p.PostID == "" {
		return nil, fmt.Errorf("%w: missing required parameter: postId", validate.ErrInvalidParams)
	}

	t, err := a.likes.Toggle(ctx, userID, p.PostID)
	if err != nil {
		return nil, err
	}

	direction := "unlike"
	if t.Liked {
		direction = "like"
	}
	if t.Delta == 0 {
		direction = "noop"
	}
	metrics.Get().LikeToggleTotal.WithLabelValues(direction).Inc()

	if t.Delta != 0 {
		e := event.LikeToggled{PostID: p.PostID, UserID: userID, Liked: t.Liked, Delta: t.Delta}
		if err := a.events.PublishLikeToggled(ctx, e); err != nil {
			a.logger.Warn("failed to publish like toggled", zap.String("post_id", p.PostID), zap.Error(err))
		}
	}

	return objects.NewLikeState(p.PostID, t), nil
}

type commentParams struct {
	PostID string `json:"postId"`
	Text   string `json:"text"`
}

// AddComment handles secrets.add_comment
func (a *API) AddComment(c *gin.Context, params json.RawMessage) (interface{}, error) {
	ctx := c.Request.Context()
	userID, err := identity.Require(ctx)
	if err != nil {
		return nil, err
	}

	var p commentParams
	if err := validate.Decode(params, &p); err != nil {
		return nil, err
	}

	comment := models.Comment{PostID: p.PostID, AuthorID: userID, Text: p.Text}
	if err := a.comments.Add(ctx, &comment); err != nil {
		return nil, err
	}
	metrics.Get().CommentAddedTotal.Inc()

	if err := a.events.PublishCommentAdded(ctx, comment); err != nil {
		a.logger.Warn("failed to publish comment added", zap.String("comment_id", comment.ID), zap.Error(err))
	}
	return objects.NewComment(comment), nil
}

// ListComments handles secrets.list_comments
func (a *API) ListComments(c *gin.Context, params json.RawMessage) (interface{}, error) {
	ctx := c.Request.Context()

	var p postParams
	if err := validate.Decode(params, &p); err != nil {
		return nil, err
	}
	if p.PostID == "" {
		return nil, fmt.Errorf("%w: missing required parameter: postId", validate.ErrInvalidParams)
	}

	limit := p.Limit
	if limit < 1 {
		limit = defaultCommentLimit
	}
	if limit > maxCommentLimit {
		limit = maxCommentLimit
	}

	if _, err := a.posts.GetByID(ctx, p.PostID); err != nil {
		return nil, err
	}
	comments, err := a.comments.ListByPost(ctx, p.PostID, limit)
	if err != nil {
		return nil, err
	}
	return objects.NewComments(comments), nil
}
