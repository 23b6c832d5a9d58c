// Package scheduler runs the periodic jobs of the decision layer: day
// rollover, the safe-mode diagnostic pass and calibration refits.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsmith/internal/engine"
	"github.com/yourusername/oddsmith/internal/repository"
	"github.com/yourusername/oddsmith/internal/safemode"
)

// Scheduler manages the recurring jobs on a UTC cron.
type Scheduler struct {
	cron   *cron.Cron
	logger *logrus.Logger

	mu        sync.RWMutex
	isRunning bool
	jobIDs    []cron.EntryID

	gracefulTimeout time.Duration
}

// NewScheduler creates a scheduler with no jobs.
func NewScheduler(logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		logger:          logger,
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleDayRollover resets daily risk counters at UTC midnight. The
// rollover itself is idempotent, so a missed or doubled firing is harmless.
func (s *Scheduler) ScheduleDayRollover(eng *engine.Engine) error {
	return s.addJob("0 0 * * *", "day rollover", func() {
		eng.RollOverDay(time.Now().UTC())
	})
}

// ScheduleDiagnostics runs the safe-mode diagnostic pass on the configured
// cadence: drain the engine's observation window, diagnose it, persist any
// diagnostic and drive the activator. It also reverts an elapsed safe-mode
// cooldown when the window is healthy.
func (s *Scheduler) ScheduleDiagnostics(
	schedule string,
	eng *engine.Engine,
	diagnostician *safemode.Diagnostician,
	activator *safemode.Activator,
	diagnostics repository.DiagnosticRepository,
) error {
	return s.addJob(schedule, "diagnostics", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		now := time.Now().UTC()
		batch := eng.DrainBatch()
		diag := diagnostician.Diagnose(batch, now)
		if diag == nil {
			activator.MaybeRevert(now)
			return
		}

		activator.Activate(diag)
		if diagnostics != nil {
			if err := diagnostics.Save(ctx, diag); err != nil {
				s.logger.WithField("error", err.Error()).Error("Failed to persist diagnostic")
			}
		}
	})
}

// ScheduleCalibrationRefit refits calibration on the given cron schedule.
// The refit function is supplied by the caller so the scheduler stays
// ignorant of where training data comes from.
func (s *Scheduler) ScheduleCalibrationRefit(schedule string, refit func(ctx context.Context) error) error {
	return s.addJob(schedule, "calibration refit", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := refit(ctx); err != nil {
			s.logger.WithField("error", err.Error()).Warn("Scheduled calibration refit failed")
		}
	})
}

func (s *Scheduler) addJob(schedule, name string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(schedule, fn)
	if err != nil {
		return fmt.Errorf("failed to add %s job: %w", name, err)
	}
	s.jobIDs = append(s.jobIDs, entryID)

	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"schedule": schedule,
	}).Info("Job scheduled")
	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(s.gracefulTimeout):
		s.logger.Warn("Scheduler stop timed out waiting for running jobs")
	}
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
	return nil
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the earliest next scheduled run time.
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}

	next := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() && (next.IsZero() || entry.Next.Before(next)) {
			next = entry.Next
		}
	}
	return next
}
