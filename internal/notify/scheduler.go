package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the morning sweep every five minutes.
const DefaultSweepSchedule = "*/5 * * * *"

// Scheduler runs the morning sweep on a cron schedule. A tick that is still
// running when the next one fires causes that next tick to be skipped.
type Scheduler struct {
	mu         sync.Mutex
	dispatcher *Dispatcher
	schedule   string
	logger     *slog.Logger
	cron       *cron.Cron
	cancel     context.CancelFunc
}

func NewScheduler(d *Dispatcher, schedule string, logger *slog.Logger) *Scheduler {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Scheduler{
		dispatcher: d,
		schedule:   schedule,
		logger:     logger,
	}
}

// Start begins running sweeps. Sweeps stop when ctx is cancelled or Stop is
// called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))

	ctx, cancel := context.WithCancel(ctx)
	if _, err := c.AddFunc(s.schedule, func() { s.tick(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("parse sweep schedule %q: %w", s.schedule, err)
	}

	s.cron = c
	s.cancel = cancel
	c.Start()
	s.logger.Info("morning sweep scheduled", "schedule", s.schedule)
	return nil
}

// Stop cancels any running sweep and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.dispatcher.RunMorningSweep(ctx)
}
