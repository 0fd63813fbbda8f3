// Package scheduler runs the automatic end-of-day backup.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mrlokans/posdz/internal/settingsstore"
)

// Username stamped on backups started by the schedule.
const Username = "scheduler"

// SettingsLoader reads the typed settings.
type SettingsLoader interface {
	Load(ctx context.Context) (settingsstore.Settings, error)
}

// BackupTrigger starts one backup, normally by enqueueing a task.
type BackupTrigger func(ctx context.Context) error

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// AutoBackupScheduler triggers a backup on a cron schedule while the
// autoBackup setting is on. The setting is read at every tick, so turning it
// off takes effect without a restart.
type AutoBackupScheduler struct {
	settings SettingsLoader
	trigger  BackupTrigger
	schedule string
	loc      *time.Location

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewAutoBackupScheduler creates a scheduler firing on schedule in loc.
func NewAutoBackupScheduler(settings SettingsLoader, trigger BackupTrigger, schedule string, loc *time.Location) *AutoBackupScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &AutoBackupScheduler{
		settings: settings,
		trigger:  trigger,
		schedule: schedule,
		loc:      loc,
	}
}

// Start begins the scheduler.
func (s *AutoBackupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	s.cron = cron.New(cron.WithParser(cronParser), cron.WithLocation(s.loc))
	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule backup job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	zap.L().Info("auto backup scheduler started",
		zap.String("schedule", s.schedule), zap.Time("next_run", s.cron.Entry(entryID).Next))

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running backup trigger.
func (s *AutoBackupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	zap.L().Info("auto backup scheduler stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *AutoBackupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next backup will be considered.
func (s *AutoBackupScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	t := s.cron.Entry(s.entryID).Next
	return &t
}

// RunOnce performs one tick: it triggers a backup when autoBackup is on and
// reports whether it did.
func (s *AutoBackupScheduler) RunOnce(ctx context.Context) bool {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		zap.L().Error("auto backup: failed to read settings", zap.Error(err))
		return false
	}
	if !settings.AutoBackup {
		zap.L().Debug("auto backup: skipped (disabled)")
		return false
	}

	if err := s.trigger(ctx); err != nil {
		zap.L().Error("auto backup: failed to start backup", zap.Error(err))
		return false
	}
	zap.L().Info("auto backup: started")
	return true
}
