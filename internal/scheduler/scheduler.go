package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"weatherhub/internal/store"
)

// Scheduler periodically deletes weather cache entries older than the
// retention window. Cache invalidation itself is purely time-based at read
// time; this job only keeps the append-only log from growing without bound.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cache     store.CacheStore
	maxAge    time.Duration
	interval  time.Duration
}

// New creates a cleanup Scheduler for the given cache store.
func New(cache store.CacheStore, maxAge, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		cache:     cache,
		maxAge:    maxAge,
		interval:  interval,
	}
}

// Start schedules the periodic cleanup job and starts the underlying
// scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cutoff := time.Now().Add(-s.maxAge)
		deleted, err := s.cache.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			log.Printf("scheduler: cache cleanup failed: %v", err)
			return
		}
		if deleted > 0 {
			log.Printf("scheduler: deleted %d cache entries older than %s", deleted, s.maxAge)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
