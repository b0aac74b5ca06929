// Package event publishes domain events to NATS JetStream.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/hushmap/hushmap/internal/metrics"
	"github.com/hushmap/hushmap/internal/models"
	"github.com/hushmap/hushmap/pkg/config"
	"github.com/hushmap/hushmap/pkg/logging"
)

// Subjects published by this service
const (
	SubjectSecretCreated  = "hush.secrets.created"
	SubjectLikeToggled    = "hush.secrets.like_toggled"
	SubjectCommentAdded   = "hush.comments.added"
	SubjectStoriesExpired = "hush.stories.expired"

	streamName    = "HUSH_EVENTS"
	schemaVersion = "1.0.0"
)

// Publisher emits domain events
type Publisher interface {
	PublishSecretCreated(ctx context.Context, post models.Post) error
	PublishLikeToggled(ctx context.Context, e LikeToggled) error
	PublishCommentAdded(ctx context.Context, comment models.Comment) error
	PublishStoriesExpired(ctx context.Context, e StoriesExpired) error
	Close() error
}

// LikeToggled is the payload of SubjectLikeToggled
type LikeToggled struct {
	PostID string `json:"postId"`
	UserID string `json:"userId"`
	Liked  bool   `json:"liked"`
	Delta  int64  `json:"delta"`
}

// StoriesExpired is the payload of SubjectStoriesExpired
type StoriesExpired struct {
	StoryIDs []string `json:"storyIds"`
	SweptAt  int64    `json:"sweptAt"`
}

// Envelope wraps every published payload
type Envelope struct {
	Type          string      `json:"type"`
	Version       string      `json:"version"`
	OccurredAt    time.Time   `json:"occurredAt"`
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload"`
}

type noop struct{}

// Noop returns a Publisher that drops every event
func Noop() Publisher { return noop{} }

func (noop) PublishSecretCreated(context.Context, models.Post) error     { return nil }
func (noop) PublishLikeToggled(context.Context, LikeToggled) error       { return nil }
func (noop) PublishCommentAdded(context.Context, models.Comment) error   { return nil }
func (noop) PublishStoriesExpired(context.Context, StoriesExpired) error { return nil }
func (noop) Close() error                                                { return nil }

type natsPub struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *zap.Logger
}

// NewPublisher connects to NATS when configured. Any connection or stream setup
// failure degrades to the noop publisher so the API keeps serving.
func NewPublisher(cfg *config.EventsConfig) Publisher {
	logger := logging.WithComponent("event")
	if cfg.NATSURL == "" {
		logger.Info("NATS not configured, events disabled")
		return noop{}
	}

	nc, err := nats.Connect(cfg.NATSURL, nats.Name("hushmap"))
	if err != nil {
		logger.Warn("NATS connect failed, using noop publisher", zap.Error(err))
		return noop{}
	}

	js, err := nc.JetStream()
	if err != nil {
		logger.Warn("JetStream context creation failed, using noop publisher", zap.Error(err))
		nc.Close()
		return noop{}
	}

	if err := initStream(js); err != nil {
		logger.Warn("JetStream stream initialization failed, using noop publisher", zap.Error(err))
		nc.Close()
		return noop{}
	}

	logger.Info("NATS publisher initialized", zap.String("url", cfg.NATSURL))
	return &natsPub{nc: nc, js: js, logger: logger}
}

func initStream(js nats.JetStreamContext) error {
	cfg := &nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"hush.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Discard:   nats.DiscardOld,
		Storage:   nats.FileStorage,
	}
	if _, err := js.StreamInfo(streamName); err == nil {
		_, err = js.UpdateStream(cfg)
		return err
	}
	if _, err := js.AddStream(cfg); err != nil {
		return fmt.Errorf("failed to create %s stream: %w", streamName, err)
	}
	return nil
}

// NewEnvelope wraps payload for subject
func NewEnvelope(subject string, payload interface{}) Envelope {
	return Envelope{
		Type:          subject,
		Version:       schemaVersion,
		OccurredAt:    time.Now().UTC(),
		CorrelationID: uuid.New().String(),
		Payload:       payload,
	}
}

func (p *natsPub) publish(ctx context.Context, subject string, payload interface{}) error {
	b, err := json.Marshal(NewEnvelope(subject, payload))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}

	_, err = p.js.Publish(subject, b, nats.Context(ctx))
	metrics.Get().EventPublishTotal.WithLabelValues(subject, metrics.Status(err)).Inc()
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *natsPub) PublishSecretCreated(ctx context.Context, post models.Post) error {
	return p.publish(ctx, SubjectSecretCreated, post)
}

func (p *natsPub) PublishLikeToggled(ctx context.Context, e LikeToggled) error {
	return p.publish(ctx, SubjectLikeToggled, e)
}

func (p *natsPub) PublishCommentAdded(ctx context.Context, comment models.Comment) error {
	return p.publish(ctx, SubjectCommentAdded, comment)
}

func (p *natsPub) PublishStoriesExpired(ctx context.Context, e StoriesExpired) error {
	return p.publish(ctx, SubjectStoriesExpired, e)
}

func (p *natsPub) Close() error {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
			return err
		}
	}
	return nil
}
