package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/posdz/internal/auth"
	"github.com/mrlokans/posdz/internal/backup"
	"github.com/mrlokans/posdz/internal/catalog"
	"github.com/mrlokans/posdz/internal/config"
	"github.com/mrlokans/posdz/internal/database"
	"github.com/mrlokans/posdz/internal/database/logs"
	"github.com/mrlokans/posdz/internal/database/settings"
	http_controllers "github.com/mrlokans/posdz/internal/http"
	"github.com/mrlokans/posdz/internal/invoice"
	"github.com/mrlokans/posdz/internal/oplog"
	"github.com/mrlokans/posdz/internal/sales"
	"github.com/mrlokans/posdz/internal/scheduler"
	"github.com/mrlokans/posdz/internal/settingsstore"
	"github.com/mrlokans/posdz/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// App holds the services built over one opened database. The CLI commands
// and the HTTP server share it.
type App struct {
	Config       *config.Config
	DB           *database.Database
	Auth         *auth.Service
	Oplog        *oplog.Service
	SettingsRepo *settings.Repository
	Settings     *settingsstore.SettingsStore
	Sequencer    *invoice.Sequencer
	Catalog      *catalog.Service
	Sales        *sales.Service
	Backup       *backup.Service
}

// Open opens and seeds the database named by cfg and wires the services
// over it.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.NewDatabase(ctx, cfg.Database.Path, database.FromConfig(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	authService := auth.NewService(db, cfg.Auth)
	if err := db.Seed(ctx, cfg.Auth.AdminPassword, authService.Hasher()); err != nil {
		// Seeding is best effort; the store stays usable.
		zap.L().Warn("seeding incomplete", zap.Error(err))
	}

	ops := oplog.NewService(logs.NewRepository(db))
	settingsRepo := settings.NewRepository(db)
	store := settingsstore.New(settingsRepo)
	sequencer := invoice.NewSequencer(db)
	cat := catalog.NewService(db, store)

	return &App{
		Config:       cfg,
		DB:           db,
		Auth:         authService,
		Oplog:        ops,
		SettingsRepo: settingsRepo,
		Settings:     store,
		Sequencer:    sequencer,
		Catalog:      cat,
		Sales:        sales.NewService(db, sequencer, cat, ops),
		Backup:       backup.NewService(db, cfg.Backup.Dir, ops),
	}, nil
}

// Close flushes pending log writes and closes the database.
func (a *App) Close() error {
	a.Oplog.Wait()
	return a.DB.Close()
}

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("shutting down server", zap.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("server shutdown", zap.Error(err))
	}

	// Stop background work after the last request has been answered
	if onShutdown != nil {
		onShutdown(ctx)
	}

	zap.L().Info("server exiting")
}

func Run(cfg *config.Config, version string) error {
	zap.L().Info("starting posdz", zap.String("version", version))

	app, err := Open(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			zap.L().Error("error closing database", zap.Error(err))
		}
	}()

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.FromConfig(cfg.Tasks))
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				zap.L().Error("error closing task client", zap.Error(err))
			}
		}()

		taskClient.Register(
			tasks.NewBackupQueue(app.Backup),
			tasks.NewCleanupLogsQueue(app.Oplog, app.DB.Now),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		if _, err := taskClient.Add(tasks.CleanupLogsTask{}).Save(); err != nil {
			zap.L().Warn("failed to enqueue log cleanup", zap.Error(err))
		}
	}

	var autoBackup *scheduler.AutoBackupScheduler
	if cfg.Backup.SchedulerEnabled {
		autoBackup = scheduler.NewAutoBackupScheduler(app.Settings, backupTrigger(app, taskClient),
			cfg.Backup.Schedule, app.DB.Location())
		if err := autoBackup.Start(context.Background()); err != nil {
			return err
		}
	}

	var sessionManager *auth.SessionManager
	if cfg.Auth.Mode == config.AuthModeLocal {
		zap.L().Info("authentication mode: local")
		sqlDB, err := app.DB.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to get SQL DB for sessions: %w", err)
		}
		sessionManager, err = auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			return fmt.Errorf("failed to initialize session manager: %w", err)
		}
	} else {
		zap.L().Info("authentication mode: none (every request acts as ADMIN)")
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       app.DB,
		AuthService:    app.Auth,
		AuthMiddleware: auth.NewMiddleware(app.Auth, sessionManager, cfg.Auth),
		SessionManager: sessionManager,
		Oplog:          app.Oplog,
		SettingsRepo:   app.SettingsRepo,
		SettingsStore:  app.Settings,
		Sequencer:      app.Sequencer,
		Catalog:        app.Catalog,
		Sales:          app.Sales,
		Backup:         app.Backup,
		TaskClient:     taskClient,
		Version:        version,
	})

	onShutdown := func(ctx context.Context) {
		if autoBackup != nil {
			autoBackup.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
	return nil
}

// backupTrigger queues scheduled backups when the task queue runs and
// writes them inline otherwise.
func backupTrigger(app *App, taskClient *tasks.Client) scheduler.BackupTrigger {
	if taskClient != nil {
		return func(ctx context.Context) error {
			_, err := taskClient.EnqueueBackup(scheduler.Username)
			return err
		}
	}
	return func(ctx context.Context) error {
		_, _, err := app.Backup.Run(ctx, scheduler.Username)
		return err
	}
}
