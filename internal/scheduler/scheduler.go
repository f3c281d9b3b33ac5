package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/minisource/heartbeat/config"
	"github.com/minisource/heartbeat/internal/models"
	"github.com/minisource/heartbeat/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Scheduler is the core scheduling engine. It owns the timer registry,
// translates schedule rows into timer jobs, and runs the firing pipeline:
// load the row, execute the request, record the outcome.
type Scheduler struct {
	config       *config.Config
	logger       *zap.SugaredLogger
	registry     *Registry
	executor     *Executor
	recorder     *Recorder
	scheduleRepo *repository.ScheduleRepository
	targetRepo   *repository.TargetRepository

	mu      sync.RWMutex
	running bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	cfg *config.Config,
	logger *zap.SugaredLogger,
	scheduleRepo *repository.ScheduleRepository,
	targetRepo *repository.TargetRepository,
	runRepo *repository.RunRepository,
) (*Scheduler, error) {
	registry, err := NewRegistry(&cfg.Scheduler, logger)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		config:       cfg,
		logger:       logger,
		registry:     registry,
		executor:     NewExecutor(&cfg.HTTP, nil),
		recorder:     NewRecorder(runRepo),
		scheduleRepo: scheduleRepo,
		targetRepo:   targetRepo,
	}, nil
}

// Start begins servicing timers. Idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.registry.Start()
	s.running = true
	s.logger.Infow("scheduler started",
		"timezone", s.config.Scheduler.Timezone,
		"max_concurrent_jobs", s.config.Scheduler.MaxConcurrentJobs,
	)
}

// Shutdown stops accepting firings and waits for in-flight ones to finish.
// In-flight HTTP calls complete under their own timeout.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.registry.Stop(s.config.HTTP.DefaultTimeout + 10*time.Second)
	s.logger.Infow("scheduler stopped")
}

// IsRunning returns whether the scheduler is servicing timers
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Rehydrate installs timers for every ACTIVE schedule. Individual failures
// are logged and skipped. Safe to call again: installs replace.
func (s *Scheduler) Rehydrate(ctx context.Context) error {
	schedules, err := s.scheduleRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active schedules: %w", err)
	}

	installed := 0
	for i := range schedules {
		if err := s.AddJob(ctx, &schedules[i]); err != nil {
			s.logger.Errorw("failed to restore schedule",
				"schedule_id", schedules[i].ID,
				"name", schedules[i].Name,
				"error", err,
			)
			continue
		}
		installed++
	}

	s.logger.Infow("rehydrated schedules", "active", len(schedules), "installed", installed)
	return nil
}

// AddJob installs or replaces the timer for a schedule. WINDOW schedules get
// their window opened on first installation and an end-bound timer plus a
// one-shot stop hook; a window that already elapsed transitions straight to
// STOPPED.
func (s *Scheduler) AddJob(ctx context.Context, schedule *models.Schedule) error {
	name := jobName(schedule.ID)
	interval := time.Duration(schedule.IntervalSeconds) * time.Second

	var end time.Time
	if schedule.ScheduleType == models.ScheduleTypeWindow {
		if schedule.DurationSeconds == nil {
			return fmt.Errorf("window schedule %d has no duration", schedule.ID)
		}

		if schedule.StartedAt == nil {
			if err := s.scheduleRepo.SetStarted(ctx, schedule.ID, time.Now()); err != nil {
				return fmt.Errorf("failed to mark schedule started: %w", err)
			}
			// First write wins; reload to pick up whichever instant stuck.
			fresh, err := s.scheduleRepo.FindByID(ctx, schedule.ID)
			if err != nil {
				return fmt.Errorf("failed to reload schedule: %w", err)
			}
			schedule = fresh
		}

		end = schedule.StartedAt.Add(time.Duration(*schedule.DurationSeconds) * time.Second)
		if !end.After(time.Now()) {
			if err := s.scheduleRepo.MarkStopped(ctx, schedule.ID, time.Now()); err != nil {
				return fmt.Errorf("failed to stop elapsed schedule: %w", err)
			}
			s.registry.Remove(name)
			s.registry.Remove(stopName(schedule.ID))
			s.logger.Infow("schedule window already elapsed", "schedule_id", schedule.ID)
			return nil
		}
	}

	id := schedule.ID
	if err := s.registry.AddInterval(name, interval, end, func() { s.onFire(id) }); err != nil {
		return err
	}

	if schedule.ScheduleType == models.ScheduleTypeWindow {
		if err := s.registry.AddOneShot(stopName(id), end, func() { s.onStop(id) }); err != nil {
			s.registry.Remove(name)
			return err
		}
	}

	// The handle is derived state; losing it never blocks the timer.
	if err := s.scheduleRepo.SetJobHandle(ctx, id, &name); err != nil {
		s.logger.Warnw("failed to persist job handle", "schedule_id", id, "error", err)
	}

	s.logger.Infow("installed schedule timer",
		"schedule_id", id,
		"job", name,
		"interval", interval,
		"type", schedule.ScheduleType,
	)
	return nil
}

// PauseJob detaches the schedule's timer. The row transition is the caller's
// responsibility, committed beforehand. A WINDOW stop hook stays armed:
// pausing never extends the window.
func (s *Scheduler) PauseJob(schedule *models.Schedule) {
	if s.registry.Pause(jobName(schedule.ID)) {
		s.logger.Infow("paused schedule timer", "schedule_id", schedule.ID)
	}
}

// ResumeJob re-attaches the schedule's timer, installing from scratch when
// the registration is gone (restart between pause and resume).
func (s *Scheduler) ResumeJob(ctx context.Context, schedule *models.Schedule) error {
	if s.registry.Resume(jobName(schedule.ID)) {
		s.logger.Infow("resumed schedule timer", "schedule_id", schedule.ID)
		return nil
	}
	return s.AddJob(ctx, schedule)
}

// RemoveJob drops the schedule's timer and stop hook. No-op when none is
// registered.
func (s *Scheduler) RemoveJob(schedule *models.Schedule) {
	s.registry.Remove(jobName(schedule.ID))
	s.registry.Remove(stopName(schedule.ID))
}

// onFire is the timer callback: one firing of one schedule.
func (s *Scheduler) onFire(scheduleID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.HTTP.DefaultTimeout+30*time.Second)
	defer cancel()

	schedule, err := s.scheduleRepo.FindByID(ctx, scheduleID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Errorw("failed to load schedule for firing", "schedule_id", scheduleID, "error", err)
		}
		return
	}

	// Covers pause and stop races: the row is authoritative.
	if schedule.Status != models.ScheduleStatusActive {
		return
	}

	target, err := s.targetRepo.FindByID(ctx, schedule.TargetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			message := fmt.Sprintf("target %d no longer exists", schedule.TargetID)
			if recErr := s.recorder.RecordSynthetic(ctx, scheduleID, message); recErr != nil {
				s.logger.Errorw("failed to record missing-target run", "schedule_id", scheduleID, "error", recErr)
			}
		} else {
			s.logger.Errorw("failed to load target for firing", "schedule_id", scheduleID, "error", err)
		}
		return
	}

	run, err := s.recorder.Begin(ctx, schedule, target, time.Now())
	if err != nil {
		s.logger.Errorw("failed to open run", "schedule_id", scheduleID, "error", err)
		return
	}

	result := s.executor.Execute(ctx, target)

	if err := s.recorder.Finish(ctx, run, result, time.Now()); err != nil {
		s.logger.Errorw("failed to finalize run", "run_id", run.ID, "error", err)

		// The firing context may be the reason Finish failed.
		failCtx, failCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer failCancel()
		if failErr := s.recorder.ForceFail(failCtx, run.ID, "run finalization failed: "+err.Error()); failErr != nil {
			s.logger.Errorw("failed to force-fail run", "run_id", run.ID, "error", failErr)
		}
	}
}

// onStop is the WINDOW stop hook: mark the row terminal and drop the timer.
func (s *Scheduler) onStop(scheduleID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.scheduleRepo.MarkStopped(ctx, scheduleID, time.Now()); err != nil {
		s.logger.Errorw("failed to stop elapsed schedule", "schedule_id", scheduleID, "error", err)
	}
	s.registry.Remove(jobName(scheduleID))
	s.logger.Infow("schedule window elapsed", "schedule_id", scheduleID)
}

func jobName(scheduleID uint) string {
	return fmt.Sprintf("schedule_%d", scheduleID)
}

func stopName(scheduleID uint) string {
	return jobName(scheduleID) + "_stop"
}
