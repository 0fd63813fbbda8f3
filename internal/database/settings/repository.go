// Package settings provides the key/value settings table.
//
// Values are opaque strings. Callers own their interpretation: flags are
// "1"/"0" and numbers are decimal strings. A missing key means the caller's
// documented default applies.
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	value, found, err := repo.GetSetting(ctx, "currency")
package settings

import (
	"context"

	"github.com/mrlokans/posdz/internal/database"
	"github.com/mrlokans/posdz/internal/entities"
)

// Repository handles all settings database operations.
type Repository struct {
	settings *database.SettingCollection
}

// NewRepository creates a new settings repository.
func NewRepository(db *database.Database) *Repository {
	return &Repository{settings: db.Settings()}
}

// GetSetting returns the stored value of key. found is false when the key
// was never set.
func (r *Repository) GetSetting(ctx context.Context, key string) (value string, found bool, err error) {
	setting, found, err := r.settings.Get(ctx, key)
	if err != nil || !found {
		return "", found, err
	}
	return setting.Value, true, nil
}

// GetSettingOrDefault returns the stored value, or the documented default
// for known keys, or fallback.
func (r *Repository) GetSettingOrDefault(ctx context.Context, key, fallback string) (string, error) {
	value, found, err := r.GetSetting(ctx, key)
	if err != nil {
		return "", err
	}
	if found {
		return value, nil
	}
	if def, ok := entities.DefaultSettingValue(key); ok {
		return def, nil
	}
	return fallback, nil
}

// SetSetting creates or replaces a setting.
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.settings.Put(ctx, &entities.Setting{Key: key, Value: value})
	return err
}

// SetSettings writes several keys. Each key is its own write; a failure
// stops at the failing key.
func (r *Repository) SetSettings(ctx context.Context, values map[string]string) error {
	for key, value := range values {
		if err := r.SetSetting(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// DeleteSetting removes a setting by key. Missing keys are ignored.
func (r *Repository) DeleteSetting(ctx context.Context, key string) error {
	return r.settings.Delete(ctx, key)
}

// All returns every stored setting as a map.
func (r *Repository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.settings.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	return values, nil
}
