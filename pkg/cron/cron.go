package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/plauderbot/plauderbot/pkg/brain"
	"github.com/plauderbot/plauderbot/pkg/logger"
)

const maintenanceTimeout = 5 * time.Minute

// Scheduler runs the engine's maintenance sweep on a cron schedule.
// Granularity is one minute, matching cron expressions.
type Scheduler struct {
	engine   *brain.Engine
	schedule string
	gron     *gronx.Gronx
	cancel   context.CancelFunc
	mu       sync.Mutex
}

func NewScheduler(engine *brain.Engine, schedule string) (*Scheduler, error) {
	g := gronx.New()
	if !g.IsValid(schedule) {
		return nil, fmt.Errorf("invalid cron schedule %q", schedule)
	}
	return &Scheduler{
		engine:   engine,
		schedule: schedule,
		gron:     g,
	}, nil
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(runCtx)

	logger.InfoCF("cron", "Maintenance scheduler started", map[string]any{
		"schedule": s.schedule,
	})
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	logger.InfoC("cron", "Maintenance scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			if !s.dueAt(tick) {
				continue
			}
			s.runMaintenance(ctx)
		}
	}
}

func (s *Scheduler) dueAt(t time.Time) bool {
	due, err := s.gron.IsDue(s.schedule, t.Truncate(time.Minute))
	if err != nil {
		logger.ErrorCF("cron", "Failed to evaluate schedule", map[string]any{
			"schedule": s.schedule,
			"error":    err.Error(),
		})
		return false
	}
	return due
}

func (s *Scheduler) runMaintenance(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, maintenanceTimeout)
	defer cancel()

	start := time.Now()
	if err := s.engine.Maintenance(runCtx); err != nil {
		logger.ErrorCF("cron", "Maintenance run failed", map[string]any{
			"error": err.Error(),
		})
		return
	}
	logger.InfoCF("cron", "Maintenance run completed", map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
	})
}
