package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/mrlokans/posdz/internal/backup"
)

// Backuper writes a backup file.
type Backuper interface {
	Run(ctx context.Context, username string) (string, *backup.Result, error)
}

// BackupTask writes one backup file into the backup directory.
type BackupTask struct {
	Username string `json:"username"`
}

// Config returns the queue configuration for backup tasks.
func (t BackupTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "backup",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// BackupProcessor creates a processor function for BackupTask.
func BackupProcessor(backuper Backuper) backlite.QueueProcessor[BackupTask] {
	return func(ctx context.Context, task BackupTask) error {
		if backuper == nil {
			return fmt.Errorf("backup service not configured")
		}

		path, res, err := backuper.Run(ctx, task.Username)
		if err != nil {
			return fmt.Errorf("backup: %w", err)
		}

		zap.L().Info("backup task finished", zap.String("path", path), zap.Int("records", res.Total))
		return nil
	}
}

// NewBackupQueue creates a backlite queue for backup tasks.
func NewBackupQueue(backuper Backuper) backlite.Queue {
	return backlite.NewQueue(BackupProcessor(backuper))
}
