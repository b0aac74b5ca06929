package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hushmap/hushmap/internal/geo"
	"github.com/hushmap/hushmap/internal/metrics"
	"github.com/hushmap/hushmap/pkg/telemetry"
)

var (
	// ErrLocationRequired is returned when the caller has no resolved coordinate
	ErrLocationRequired = errors.New("location is required")
	// ErrInvalidLocation is returned for a coordinate outside the valid ranges
	ErrInvalidLocation = errors.New("location out of range")
)

// Request describes one feed read
type Request struct {
	Origin       *geo.Coordinate
	RadiusMeters float64
	UserID       string
	Strategy     Strategy
}

// Options configures a Service
type Options struct {
	// Window is the number of most recent posts considered per feed
	Window          int
	MaxRadiusMeters float64
}

// Service fetches candidates and composes feeds
type Service struct {
	candidates CandidateSource
	likes      LikeLookup
	opts       Options
}

// NewService creates a feed service
func NewService(candidates CandidateSource, likes LikeLookup, opts Options) *Service {
	if opts.Window <= 0 {
		opts.Window = 500
	}
	return &Service{candidates: candidates, likes: likes, opts: opts}
}

// Feed returns the ranked feed around req.Origin
func (s *Service) Feed(ctx context.Context, req Request) ([]Entry, error) {
	if req.Origin == nil {
		return nil, ErrLocationRequired
	}
	if !req.Origin.Valid() {
		return nil, ErrInvalidLocation
	}

	ctx, span := telemetry.StartSpan(ctx, "feed.Feed")
	defer span.End()
	span.SetAttributes(
		attribute.String("feed.strategy", req.Strategy.String()),
		attribute.Float64("feed.radius_m", req.RadiusMeters),
	)

	start := time.Now()

	radius := req.RadiusMeters
	if s.opts.MaxRadiusMeters > 0 && radius > s.opts.MaxRadiusMeters {
		radius = s.opts.MaxRadiusMeters
	}

	candidates, err := s.candidates.Recent(ctx, s.opts.Window)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("fetch feed candidates: %w", err)
	}

	nearby := FilterByRadius(candidates, *req.Origin, radius)

	liked := map[string]struct{}{}
	if req.UserID != "" && len(nearby) > 0 {
		ids := make([]string, len(nearby))
		for i, n := range nearby {
			ids[i] = n.Post.ID
		}
		liked, err = s.likes.LikedPostIDs(ctx, req.UserID, ids)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("load liked posts: %w", err)
		}
	}

	entries := rank(nearby, req.UserID, liked, req.Strategy)

	m := metrics.Get()
	m.FeedComposeDuration.WithLabelValues(req.Strategy.String()).Observe(time.Since(start).Seconds())
	m.FeedEntries.WithLabelValues(req.Strategy.String()).Observe(float64(len(entries)))
	span.SetAttributes(
		attribute.Int("feed.candidates", len(candidates)),
		attribute.Int("feed.entries", len(entries)),
	)

	return entries, nil
}
