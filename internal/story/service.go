package story

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hushmap/hushmap/internal/event"
	"github.com/hushmap/hushmap/internal/metrics"
	"github.com/hushmap/hushmap/internal/models"
	"github.com/hushmap/hushmap/pkg/logging"
	"github.com/hushmap/hushmap/pkg/telemetry"
)

// MaxCaptionLength caps story captions
const MaxCaptionLength = 200

// ImageDeleter removes hosted images. Failures are logged and ignored.
type ImageDeleter interface {
	Delete(ctx context.Context, url string) error
}

// Options configures a Service
type Options struct {
	// ScanLimit bounds how many rows one read or sweep batch touches
	ScanLimit int
	// Now returns the current time in epoch milliseconds
	Now func() int64
}

// Service applies the story lifecycle on top of a Store
type Service struct {
	store  Store
	images ImageDeleter
	events event.Publisher
	opts   Options
	logger *zap.Logger
}

// NewService creates a story service. images and events may be nil.
func NewService(store Store, images ImageDeleter, events event.Publisher, opts Options) *Service {
	if opts.ScanLimit <= 0 {
		opts.ScanLimit = 1000
	}
	if opts.Now == nil {
		opts.Now = func() int64 { return time.Now().UnixMilli() }
	}
	if events == nil {
		events = event.Noop()
	}
	return &Service{
		store:  store,
		images: images,
		events: events,
		opts:   opts,
		logger: logging.WithComponent("story"),
	}
}

// Create publishes a new active story for authorID
func (s *Service) Create(ctx context.Context, authorID, imageURL, caption string) (*models.Story, error) {
	imageURL = strings.TrimSpace(imageURL)
	switch {
	case authorID == "":
		return nil, fmt.Errorf("%w: author is required", ErrInvalid)
	case imageURL == "":
		return nil, fmt.Errorf("%w: image url is required", ErrInvalid)
	case utf8.RuneCountInString(caption) > MaxCaptionLength:
		return nil, fmt.Errorf("%w: caption longer than %d characters", ErrInvalid, MaxCaptionLength)
	}

	now := s.opts.Now()
	st := models.Story{
		ID:        models.NewID(),
		AuthorID:  authorID,
		ImageURL:  imageURL,
		Caption:   caption,
		CreatedAt: now,
		ExpiresAt: ExpiresAt(now),
		IsActive:  true,
	}
	if err := s.store.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("create story: %w", err)
	}
	return &st, nil
}

// ActiveByAuthor returns the currently visible stories grouped by author
func (s *Service) ActiveByAuthor(ctx context.Context) (map[string][]models.Story, error) {
	stories, err := s.store.ListActive(ctx, s.opts.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("list active stories: %w", err)
	}
	return GroupActiveByAuthor(stories, s.opts.Now()), nil
}

// View records that userID saw storyID. It reports whether this was the first view.
func (s *Service) View(ctx context.Context, userID, storyID string) (bool, error) {
	st, err := s.store.Get(ctx, storyID)
	if err != nil {
		return false, err
	}
	now := s.opts.Now()
	if !IsActive(*st, now) {
		return false, ErrNotFound
	}

	first, err := s.store.RecordView(ctx, userID, storyID, now)
	if err != nil {
		return false, fmt.Errorf("record story view: %w", err)
	}
	result := "repeat"
	if first {
		result = "first"
	}
	metrics.Get().StoryViewTotal.WithLabelValues(result).Inc()
	return first, nil
}

// Delete soft deletes a story owned by ownerID. Image removal is best effort.
func (s *Service) Delete(ctx context.Context, ownerID, storyID string) error {
	st, err := s.store.Deactivate(ctx, ownerID, storyID)
	if err != nil {
		return err
	}
	if s.images != nil && st.ImageURL != "" {
		if err := s.images.Delete(ctx, st.ImageURL); err != nil {
			s.logger.Warn("failed to delete story image",
				zap.String("story_id", st.ID),
				zap.Error(err))
		}
	}
	return nil
}

// Sweep marks every story expired at now inactive and returns how many changed.
// Running it again without new expiries changes nothing.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "story.Sweep")
	defer span.End()

	now := s.opts.Now()
	var total int64
	for {
		rows, err := s.store.ListDue(ctx, now, s.opts.ScanLimit)
		if err != nil {
			telemetry.RecordError(span, err)
			return total, fmt.Errorf("list expired stories: %w", err)
		}
		due := SweepExpired(rows, now)
		if len(due) == 0 {
			break
		}

		ids := IDs(due)
		changed, err := s.store.MarkInactive(ctx, ids)
		if err != nil {
			telemetry.RecordError(span, err)
			return total, fmt.Errorf("mark stories inactive: %w", err)
		}
		total += changed

		if err := s.events.PublishStoriesExpired(ctx, event.StoriesExpired{StoryIDs: ids, SweptAt: now}); err != nil {
			s.logger.Warn("failed to publish stories expired event", zap.Error(err))
		}

		if len(rows) < s.opts.ScanLimit || changed == 0 {
			break
		}
	}

	metrics.Get().StoriesSweptTotal.Add(float64(total))
	return total, nil
}
