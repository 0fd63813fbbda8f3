package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/posdz/internal/config"
)

type Database struct {
	DB *gorm.DB

	locks *lockSet
	now   func() time.Time
	loc   *time.Location
}

type options struct {
	busyTimeout time.Duration
	lockTimeout time.Duration
	logLevel    logger.LogLevel
	now         func() time.Time
	loc         *time.Location
}

// Option customises NewDatabase.
type Option func(*options)

// WithBusyTimeout sets how long sqlite waits for another process holding the
// write lock.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) { o.busyTimeout = d }
}

// WithLockTimeout bounds the in-process wait for a collection write lock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) { o.lockTimeout = d }
}

// WithLogLevel sets the gorm logger level: silent, error, warn or info.
func WithLogLevel(level string) Option {
	return func(o *options) { o.logLevel = parseLogLevel(level) }
}

// WithClock replaces time.Now, mostly for tests that need a fixed day.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLocation sets the time zone that defines the calendar day.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.loc = loc }
}

// FromConfig maps the database and global configuration onto options.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithBusyTimeout(cfg.Database.BusyTimeout),
		WithLockTimeout(cfg.Database.LockTimeout),
		WithLogLevel(cfg.Database.LogLevel),
		WithLocation(cfg.Global.Location()),
	}
}

func parseLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// dsn builds the sqlite connection string. WAL keeps readers off the writer,
// synchronous=FULL makes a returned write durable, foreign keys stay off
// because the store does not cascade, and immediate transactions take the
// write lock at BEGIN.
func dsn(path string, busyTimeout time.Duration) string {
	return fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=FULL&_foreign_keys=off&_txlock=immediate",
		path, busyTimeout.Milliseconds())
}

// NewDatabase opens the sqlite file at dbPath and ensures the schema. It
// does not seed; call Seed afterwards.
func NewDatabase(ctx context.Context, dbPath string, opts ...Option) (*Database, error) {
	o := options{
		busyTimeout: 5 * time.Second,
		lockTimeout: 5 * time.Second,
		logLevel:    logger.Warn,
		now:         time.Now,
		loc:         time.Local,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create database directory: %v", ErrStorageUnavailable, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn(dbPath, o.busyTimeout)), &gorm.Config{
		Logger:         logger.Default.LogMode(o.logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database: %v", ErrStorageUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	// One connection: writes are serialised by sqlite anyway, and pragmas
	// set through the DSN apply to every statement.
	sqlDB.SetMaxOpenConns(1)

	database := &Database{
		DB:    db,
		locks: newLockSet(CollectionNames(), o.lockTimeout),
		now:   o.now,
		loc:   o.loc,
	}

	if err := database.EnsureSchema(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	zap.L().Info("database initialized", zap.String("path", dbPath))

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Now returns the current time in the configured location.
func (d *Database) Now() time.Time {
	return d.now().In(d.loc)
}

// Location returns the time zone that defines the calendar day.
func (d *Database) Location() *time.Location {
	return d.loc
}

// Today returns the current calendar day as YYYY-MM-DD.
func (d *Database) Today() string {
	return d.Now().Format("2006-01-02")
}
