package config

import (
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // Every request acts as the seeded admin
	AuthModeLocal AuthMode = "local" // Operators log in with username and password
)

type (
	Config struct {
		HTTP
		Global
		Database
		Log
		Auth
		Backup
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
		Timezone                 string // IANA name or "Local"; defines the calendar day for invoice numbers
	}
	Database struct {
		Path        string
		BusyTimeout time.Duration // sqlite busy wait when another process holds the write lock
		LockTimeout time.Duration // in-process wait for a collection write lock
		LogLevel    string        // gorm logger: silent, error, warn, info
	}
	Log struct {
		Mode       string // "production" or "development"
		Level      string
		FileEnable bool
		Filename   string
	}
	Auth struct {
		Mode            AuthMode
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool
		AdminPassword   string // Password given to the seeded ADMIN account
	}
	Backup struct {
		Dir              string
		Schedule         string // Cron format: "0 23 * * *" = every day at 23:00
		SchedulerEnabled bool
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8189)
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("timezone", "Local")

	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_busy_timeout", "5s")
	v.SetDefault("database_lock_timeout", "5s")
	v.SetDefault("database_log_level", "warn")

	v.SetDefault("log_mode", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file_enable", false)
	v.SetDefault("log_filename", "./logs/posdz.log")

	// Auth defaults
	v.SetDefault("auth_mode", "local")
	v.SetDefault("auth_session_lifetime", "12h") // One shift
	v.SetDefault("auth_bcrypt_cost", 10)
	v.SetDefault("auth_secure_cookies", false) // Bridge listens on loopback without TLS
	v.SetDefault("auth_admin_password", DefaultAdminPassword)

	v.SetDefault("backup_dir", "./backups")
	v.SetDefault("backup_schedule", "0 23 * * *")
	v.SetDefault("backup_scheduler_enabled", true)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
			Timezone:                 v.GetString("TIMEZONE"),
		},
		Database: Database{
			Path:        v.GetString("DATABASE_PATH"),
			BusyTimeout: v.GetDuration("DATABASE_BUSY_TIMEOUT"),
			LockTimeout: v.GetDuration("DATABASE_LOCK_TIMEOUT"),
			LogLevel:    v.GetString("DATABASE_LOG_LEVEL"),
		},
		Log: Log{
			Mode:       v.GetString("LOG_MODE"),
			Level:      v.GetString("LOG_LEVEL"),
			FileEnable: v.GetBool("LOG_FILE_ENABLE"),
			Filename:   v.GetString("LOG_FILENAME"),
		},
		Auth: Auth{
			Mode:            AuthMode(v.GetString("AUTH_MODE")),
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:      v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
			AdminPassword:   v.GetString("AUTH_ADMIN_PASSWORD"),
		},
		Backup: Backup{
			Dir:              v.GetString("BACKUP_DIR"),
			Schedule:         v.GetString("BACKUP_SCHEDULE"),
			SchedulerEnabled: v.GetBool("BACKUP_SCHEDULER_ENABLED"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
	}
}

// Location resolves the configured timezone, falling back to time.Local.
func (g Global) Location() *time.Location {
	if g.Timezone == "" || g.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
