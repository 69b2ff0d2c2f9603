package infra

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"signaltrack/internal/service"
)

// Scheduler owns the recurring monitoring task. It is started and stopped
// under caller control; nothing runs implicitly at construction time.
type Scheduler struct {
	cron     *cron.Cron
	monitor  *service.MonitorService
	interval time.Duration
	running  atomic.Bool
}

// NewScheduler creates a scheduler that drives the monitor at a fixed
// interval. Overlapping cycles are skipped rather than stacked; the
// conditional store write keeps overlap harmless, but there is no point in
// piling up redundant cycles.
func NewScheduler(monitor *service.MonitorService, interval time.Duration) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		monitor:  monitor,
		interval: interval,
	}
}

// Start begins the recurring monitoring schedule
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		if err := s.monitor.CheckSignals(context.Background()); err != nil {
			log.Printf("ERROR: monitor cycle failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule monitor: %w", err)
	}

	s.cron.Start()
	s.running.Store(true)
	log.Printf("✓ Position monitor scheduled every %s", s.interval)
	return nil
}

// Stop halts the schedule and waits for any in-flight cycle to finish
func (s *Scheduler) Stop() {
	log.Println("Stopping position monitor...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running.Store(false)
	log.Println("✓ Position monitor stopped")
}

// RunNow triggers a single cycle outside the schedule
func (s *Scheduler) RunNow(ctx context.Context) error {
	return s.monitor.CheckSignals(ctx)
}

// Running reports whether the schedule is active
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Interval returns the configured polling interval
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}
