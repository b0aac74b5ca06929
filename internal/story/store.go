package story

import (
	"context"
	"errors"

	"github.com/hushmap/hushmap/internal/models"
)

var (
	// ErrNotFound is returned when a story does not exist or is no longer active
	ErrNotFound = errors.New("story not found")
	// ErrForbidden is returned when a user acts on a story they do not own
	ErrForbidden = errors.New("story belongs to another user")
	// ErrInvalid is returned for a story that fails validation
	ErrInvalid = errors.New("invalid story")
)

// Store persists stories and their views
type Store interface {
	Create(ctx context.Context, s models.Story) error
	Get(ctx context.Context, id string) (*models.Story, error)
	// ListActive returns rows still flagged active, newest first. Rows past their
	// expiry may be included until the sweep runs.
	ListActive(ctx context.Context, limit int) ([]models.Story, error)
	// ListDue returns active rows with expires_at <= now, oldest first
	ListDue(ctx context.Context, now int64, limit int) ([]models.Story, error)
	// Deactivate soft deletes a story owned by ownerID and returns it
	Deactivate(ctx context.Context, ownerID, id string) (*models.Story, error)
	// MarkInactive flags the given stories inactive and reports how many changed
	MarkInactive(ctx context.Context, ids []string) (int64, error)
	// RecordView stores a (user, story) view; it returns true only for the first
	// view of the pair, in which case view_count was incremented.
	RecordView(ctx context.Context, userID, storyID string, at int64) (bool, error)
}
