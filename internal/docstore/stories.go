package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/hushmap/hushmap/internal/models"
	"github.com/hushmap/hushmap/internal/story"
	"github.com/hushmap/hushmap/pkg/logging"
)

var _ story.Store = (*StoryStore)(nil)

// StoryStore implements story.Store over two collections
type StoryStore struct {
	stories *mongo.Collection
	views   *mongo.Collection
	logger  *zap.Logger
}

// NewStoryStore creates a story store on db
func NewStoryStore(db *mongo.Database) *StoryStore {
	return &StoryStore{
		stories: db.Collection(StoriesCollection),
		views:   db.Collection(StoryViewsCollection),
		logger:  logging.WithComponent("docstore"),
	}
}

// EnsureIndexes creates the indexes the queries rely on
func (s *StoryStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.stories.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "author_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create story indexes: %w", err)
	}

	_, err = s.views.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "story_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create story view index: %w", err)
	}
	return nil
}

func (s *StoryStore) Create(ctx context.Context, st models.Story) error {
	if _, err := s.stories.InsertOne(ctx, st); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: duplicate id %s", story.ErrInvalid, st.ID)
		}
		return fmt.Errorf("insert story: %w", err)
	}
	return nil
}

func (s *StoryStore) Get(ctx context.Context, id string) (*models.Story, error) {
	var raw bson.M
	err := s.stories.FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, story.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find story: %w", err)
	}
	st, err := decodeStory(raw)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *StoryStore) ListActive(ctx context.Context, limit int) ([]models.Story, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.find(ctx, bson.M{"is_active": true}, opts)
}

func (s *StoryStore) ListDue(ctx context.Context, now int64, limit int) ([]models.Story, error) {
	opts := options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.find(ctx, bson.M{"is_active": true, "expires_at": bson.M{"$lte": now}}, opts)
}

// find decodes matching documents, skipping malformed ones
func (s *StoryStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Story, error) {
	cursor, err := s.stories.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find stories: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Story
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode story: %w", err)
		}
		st, err := decodeStory(raw)
		if err != nil {
			s.logger.Warn("skipping malformed story document", zap.Error(err))
			continue
		}
		out = append(out, st)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate stories: %w", err)
	}
	return out, nil
}

func (s *StoryStore) Deactivate(ctx context.Context, ownerID, id string) (*models.Story, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !st.IsActive {
		return nil, story.ErrNotFound
	}
	if st.AuthorID != ownerID {
		return nil, story.ErrForbidden
	}

	res, err := s.stories.UpdateOne(ctx,
		bson.M{"_id": id, "author_id": ownerID, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false}},
	)
	if err != nil {
		return nil, fmt.Errorf("deactivate story: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, story.ErrNotFound
	}
	st.IsActive = false
	return st, nil
}

func (s *StoryStore) MarkInactive(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.stories.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark stories inactive: %w", err)
	}
	return res.ModifiedCount, nil
}

// RecordView relies on the unique (user_id, story_id) index: only the insert that
// wins increments view_count. A failed increment removes the view again.
func (s *StoryStore) RecordView(ctx context.Context, userID, storyID string, at int64) (bool, error) {
	if err := s.stories.FindOne(ctx, bson.M{"_id": storyID}).Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, story.ErrNotFound
		}
		return false, fmt.Errorf("find story: %w", err)
	}

	_, err := s.views.InsertOne(ctx, models.StoryView{UserID: userID, StoryID: storyID, ViewedAt: at})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert story view: %w", err)
	}

	if _, err := s.stories.UpdateOne(ctx, bson.M{"_id": storyID}, bson.M{"$inc": bson.M{"view_count": 1}}); err != nil {
		// drop the view so a retry can count it
		if _, derr := s.views.DeleteOne(ctx, bson.M{"user_id": userID, "story_id": storyID}); derr != nil {
			s.logger.Error("failed to roll back story view",
				zap.String("story_id", storyID), zap.String("user_id", userID), zap.Error(derr))
		}
		return false, fmt.Errorf("increment view count: %w", err)
	}
	return true, nil
}
