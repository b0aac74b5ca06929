package feed

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hushmap/hushmap/internal/cache"
	"github.com/hushmap/hushmap/internal/metrics"
	"github.com/hushmap/hushmap/internal/models"
	"github.com/hushmap/hushmap/pkg/logging"
)

// CandidateSource returns the most recent posts, newest first
type CandidateSource interface {
	Recent(ctx context.Context, limit int) ([]models.Post, error)
}

// LikeLookup reports which of postIDs the user has liked
type LikeLookup interface {
	LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]struct{}, error)
}

// CachedCandidates keeps the candidate window in Redis for a short TTL.
// Counters inside a cached window may lag by up to the TTL.
type CachedCandidates struct {
	source CandidateSource
	cache  *cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedCandidates wraps source. A nil cache passes every call through.
func NewCachedCandidates(source CandidateSource, c *cache.Cache, ttl time.Duration) *CachedCandidates {
	return &CachedCandidates{
		source: source,
		cache:  c,
		ttl:    ttl,
		logger: logging.WithComponent("feed_candidates"),
	}
}

func windowKey(limit int) string {
	return "feed:candidates:" + strconv.Itoa(limit)
}

// Recent implements CandidateSource
func (c *CachedCandidates) Recent(ctx context.Context, limit int) ([]models.Post, error) {
	key := windowKey(limit)

	var posts []models.Post
	err := c.cache.GetJSON(ctx, key, &posts)
	switch {
	case err == nil:
		metrics.Get().FeedCandidateCache.WithLabelValues("hit").Inc()
		return posts, nil
	case errors.Is(err, cache.ErrCacheDisabled):
		return c.source.Recent(ctx, limit)
	case !errors.Is(err, cache.ErrMiss):
		c.logger.Warn("candidate cache read failed", zap.Error(err))
	}
	metrics.Get().FeedCandidateCache.WithLabelValues("miss").Inc()

	posts, err = c.source.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if c.ttl > 0 {
		if err := c.cache.SetJSON(ctx, key, posts, c.ttl); err != nil {
			c.logger.Warn("candidate cache write failed", zap.Error(err))
		}
	}
	return posts, nil
}

// Invalidate drops the cached window so the next feed sees new posts
func (c *CachedCandidates) Invalidate(ctx context.Context, limit int) {
	if err := c.cache.Delete(ctx, windowKey(limit)); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		c.logger.Warn("candidate cache invalidation failed", zap.Error(err))
	}
}
