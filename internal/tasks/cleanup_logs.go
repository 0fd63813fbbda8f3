package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"
)

// LogPruner deletes old operation log entries.
type LogPruner interface {
	Prune(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}

// CleanupLogsTask removes operation log entries older than the retention
// period.
type CleanupLogsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for log cleanup tasks.
func (t CleanupLogsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_logs",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupLogsProcessor creates a processor function for CleanupLogsTask.
func CleanupLogsProcessor(pruner LogPruner, now func() time.Time) backlite.QueueProcessor[CleanupLogsTask] {
	return func(ctx context.Context, task CleanupLogsTask) error {
		if pruner == nil {
			return fmt.Errorf("log pruner not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = DefaultConfig().LogRetentionDays
		}
		retention := time.Duration(retentionDays) * 24 * time.Hour

		deleted, err := pruner.Prune(ctx, now(), retention)
		if err != nil {
			return fmt.Errorf("cleanup logs: %w", err)
		}

		zap.L().Info("cleaned up operation log",
			zap.Int64("deleted", deleted), zap.Int("retention_days", retentionDays))
		return nil
	}
}

// NewCleanupLogsQueue creates a backlite queue for log cleanup tasks.
func NewCleanupLogsQueue(pruner LogPruner, now func() time.Time) backlite.Queue {
	return backlite.NewQueue(CleanupLogsProcessor(pruner, now))
}
