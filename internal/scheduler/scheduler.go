package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"BarVault/internal/engine"
)

// Scheduler runs the sync cycle on a cron schedule.
type Scheduler struct {
	Cron   *cron.Cron
	Engine *engine.Engine
	Ctx    context.Context
	Log    *logrus.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, eng *engine.Engine, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds()),
		Engine: eng,
		Ctx:    ctx,
		Log:    log,
	}
}

// Register wires the periodic sync task.
func (s *Scheduler) Register(syncCron string) error {
	if _, err := s.Cron.AddFunc(syncCron, s.syncTask); err != nil {
		return fmt.Errorf("register sync task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	s.Log.Info("scheduler stopped")
}

// RunNow executes the sync task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.syncTask()
}

func (s *Scheduler) syncTask() {
	if err := s.Engine.SyncAll(s.Ctx); err != nil {
		if err == engine.ErrCycleRunning {
			s.Log.Warn("scheduled sync skipped, previous cycle still running")
			return
		}
		s.Log.WithError(err).Error("scheduled sync failed")
	}
}
