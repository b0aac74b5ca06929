package story

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hushmap/hushmap/pkg/logging"
)

// Sweeper runs Service.Sweep on a fixed interval
type Sweeper struct {
	svc      *Service
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper creates a sweeper. Non-positive intervals default to five minutes.
func NewSweeper(svc *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		svc:      svc,
		interval: interval,
		logger:   logging.WithComponent("story_sweeper"),
	}
}

// Run sweeps immediately and then every interval until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("Starting story sweeper", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Story sweeper stopped")
			return ctx.Err()
		default:
			changed, err := s.svc.Sweep(ctx)
			if err != nil {
				s.logger.Error("Story sweep failed", zap.Error(err))
			} else if changed > 0 {
				s.logger.Info("Expired stories swept", zap.Int64("count", changed))
			} else {
				s.logger.Debug("No expired stories")
			}

			s.wait(ctx)
		}
	}
}

// wait waits for the interval or until context is cancelled
func (s *Sweeper) wait(ctx context.Context) {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
