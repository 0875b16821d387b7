// Package retention runs the evidence purge on a timer for long-lived
// processes. The one-shot sweep itself lives in the db package; this wrapper
// only owns the schedule.
package retention

import (
	"context"
	"log"
	"time"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/db"
)

// Sweeper periodically deletes evidence records past their retention
// horizon. It runs as a background goroutine and is safe to stop via its
// context or the Stop method.
type Sweeper struct {
	svc      *db.RetentionService
	interval time.Duration
	logger   *log.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSweeper creates a sweeper but does not start it. Call Start to begin
// the background loop. An interval of 0 defaults to 6 hours.
func NewSweeper(svc *db.RetentionService, interval time.Duration, logger *log.Logger) *Sweeper {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Sweeper{
		svc:      svc,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the background loop. It runs an immediate sweep on startup,
// then repeats on the configured interval until ctx is cancelled or Stop is
// called.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go s.loop(ctx)

	s.logger.Printf("retention sweeper started (interval=%s)", s.interval)
}

// Stop signals the sweeper to exit and waits for it to finish.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.svc.SweepExpired(ctx, time.Now().UTC()); err != nil {
		s.logger.Printf("retention sweep error: %v", err)
	}
}
