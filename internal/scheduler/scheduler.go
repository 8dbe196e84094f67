package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

// Refresher is the sync entry point the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Scheduler re-runs the sync cycle on a fixed interval and once shortly
// after midnight, so the watch rolls onto the new day's schedule without
// waiting for the next periodic tick.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
}

func New(refresher Refresher, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
	}
}

// Start schedules the jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 30
	}

	if _, err := s.scheduler.Every(minutes).Minutes().Do(s.run); err != nil {
		return err
	}

	if _, err := s.scheduler.Every(1).Day().At("00:05").Do(s.run); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Info().Int("interval_minutes", minutes).Msg("refresh scheduler started")
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log.Debug().Msg("scheduled refresh starting")
	s.refresher.Refresh(ctx)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
