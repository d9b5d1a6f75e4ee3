// Package scheduler runs the periodic housekeeping jobs.
package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/climate-quest/internal/logger"
)

// Evictor drops idle games.
type Evictor interface {
	EvictIdle() int
	Len() int
}

// Scheduler periodically evicts idle games.
type Scheduler struct {
	scheduler *gocron.Scheduler
	evictor   Evictor
	interval  time.Duration
	log       *zap.SugaredLogger
}

// New creates a new Scheduler.
func New(evictor Evictor, interval time.Duration, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		evictor:   evictor,
		interval:  interval,
		log:       logger.OrNop(log),
	}
}

// Start schedules the janitor job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	_, err := s.scheduler.Every(interval).WaitForSchedule().SingletonMode().Do(s.runJanitor)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Infow("janitor scheduled", "interval", interval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) runJanitor() {
	if n := s.evictor.EvictIdle(); n > 0 {
		s.log.Infow("evicted idle games", "evicted", n, "remaining", s.evictor.Len())
	}
}
