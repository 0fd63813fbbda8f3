package database

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mrlokans/posdz/internal/entities"
)

// PasswordHasher turns the seed password into the stored hash.
type PasswordHasher func(password string) (string, error)

// Seed fills a database with what the application needs to start: the
// ADMIN account, every absent default setting and the invoice counter. It
// runs on every open. Present data is never overwritten, and each item is
// attempted even when an earlier one failed; the failures are joined.
func (d *Database) Seed(ctx context.Context, adminPassword string, hash PasswordHasher) error {
	var errs []error

	if err := d.seedAdmin(ctx, adminPassword, hash); err != nil {
		errs = append(errs, err)
	}

	settings := d.Settings()
	for _, def := range entities.DefaultSettings {
		_, found, err := settings.Get(ctx, def.Key)
		if err != nil {
			errs = append(errs, fmt.Errorf("seed setting %s: %w", def.Key, err))
			continue
		}
		if found {
			continue
		}
		if _, err := settings.Put(ctx, &entities.Setting{Key: def.Key, Value: def.Value}); err != nil {
			errs = append(errs, fmt.Errorf("seed setting %s: %w", def.Key, err))
			continue
		}
		zap.L().Debug("seeded setting", zap.String("key", def.Key))
	}

	counter := d.Counter()
	_, found, err := counter.Get(ctx, entities.CounterID)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("seed counter: %w", err))
	case !found:
		initial := &entities.Counter{ID: entities.CounterID, Number: 1, LastReset: d.Today()}
		if _, err := counter.Put(ctx, initial); err != nil {
			errs = append(errs, fmt.Errorf("seed counter: %w", err))
		} else {
			zap.L().Info("seeded invoice counter", zap.String("last_reset", initial.LastReset))
		}
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		zap.L().Error("seeding incomplete", zap.Error(err))
		return err
	}
	return nil
}

// seedAdmin hashes only when no ADMIN exists yet. Add still treats a
// collision as success for a concurrent first open.
func (d *Database) seedAdmin(ctx context.Context, password string, hash PasswordHasher) error {
	existing, err := d.Users().GetByIndex(ctx, "username", entities.AdminUsername)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	hashed, err := hash(password)
	if err != nil {
		return fmt.Errorf("seed admin: hash password: %w", err)
	}

	admin := &entities.User{
		Username:  entities.AdminUsername,
		Password:  hashed,
		Role:      entities.UserRoleAdmin,
		CreatedAt: d.Now(),
	}
	if _, err := d.Users().Add(ctx, admin); err != nil {
		if errors.Is(err, ErrUniquenessViolation) {
			return nil
		}
		return fmt.Errorf("seed admin: %w", err)
	}
	zap.L().Info("seeded admin account", zap.String("username", admin.Username))
	return nil
}
