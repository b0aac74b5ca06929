// Package docstore keeps stories in MongoDB.
package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/hushmap/hushmap/pkg/config"
	"github.com/hushmap/hushmap/pkg/logging"
)

// Collection names
const (
	StoriesCollection    = "stories"
	StoryViewsCollection = "story_views"
)

// Client wraps a connected mongo client and its database
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens and pings a MongoDB connection
func Connect(ctx context.Context, cfg *config.MongoConfig) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logging.GetLogger().Info("MongoDB connection established", zap.String("database", cfg.Database))

	return &Client{client: client, db: client.Database(cfg.Database)}, nil
}

// Database returns the configured database handle
func (c *Client) Database() *mongo.Database {
	return c.db
}

// Health pings the primary
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}
