// Package logs provides queries over the append-only operation log.
package logs

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/posdz/internal/database"
	"github.com/mrlokans/posdz/internal/entities"
)

const defaultPageSize = 50

type Repository struct {
	db *database.Database
}

func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db}
}

// Append stores an entry, stamping CreatedAt when unset. Timestamps are
// stored in UTC.
func (r *Repository) Append(ctx context.Context, entry *entities.LogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.db.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	_, err := r.db.Logs().Add(ctx, entry)
	return err
}

// Recent returns a page of entries, newest first, and the total count.
// An empty action matches every entry.
func (r *Repository) Recent(ctx context.Context, action entities.LogAction, limit, offset int) ([]entities.LogEntry, int64, error) {
	var entries []entities.LogEntry
	var total int64

	query := r.db.DB.WithContext(ctx).Model(&entities.LogEntry{})
	if action != "" {
		query = query.Where("action = ?", action)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, database.Classify(err)
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&entries).Error
	if err != nil {
		return nil, 0, database.Classify(err)
	}
	return entries, total, nil
}

// DeleteOlderThan removes entries created before cutoff and returns how many
// were removed.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.WriteTx(ctx, entities.CollectionLogs, func(tx *gorm.DB) error {
		result := tx.Where("created_at < ?", cutoff.UTC()).Delete(&entities.LogEntry{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, database.Classify(err)
	}
	return deleted, nil
}
