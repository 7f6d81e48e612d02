package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/evidencevault/internal/logging"
	"github.com/robfig/cron/v3"
)

// Scheduler runs a Reconciler on a standard five-field cron expression.
type Scheduler struct {
	reconciler *Reconciler
	schedule   string
	cron       *cron.Cron
	log        logging.Logger

	mu      sync.Mutex
	running bool
}

func NewScheduler(r *Reconciler, schedule string, log logging.Logger) *Scheduler {
	return &Scheduler{
		reconciler: r,
		schedule:   schedule,
		cron:       cron.New(),
		log:        log.With("module", "sweep"),
	}
}

// Start registers the job and starts the cron loop. An empty schedule
// disables the sweep. The scheduler stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.log.Info(ctx, "sweep schedule not configured, skipping")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.log.Info(ctx, "sweep scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.reconciler.Run(ctx); err != nil {
		s.log.Error(ctx, "scheduled sweep failed", "error", err)
	}
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.log.Info(context.Background(), "sweep scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled time, or nil when not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
