package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/posdz/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())

	// Sessions load before auth reads them
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}
	router.Use(cfg.AuthMiddleware.Handler())

	healthController := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", healthController.Status)

	api := router.Group("/api")

	var activity auth.ActivityRecorder
	if cfg.Oplog != nil {
		activity = cfg.Oplog
	}
	authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, activity)
	authController.RegisterRoutes(api, cfg.AuthMiddleware)

	NewCollectionsController(cfg.Database).RegisterRoutes(api)

	var (
		settingsRecorder SettingsRecorder
		counterRecorder  CounterRecorder
		backupRecorder   BackupRecorder
	)
	if cfg.Oplog != nil {
		settingsRecorder, counterRecorder, backupRecorder = cfg.Oplog, cfg.Oplog, cfg.Oplog

		NewLogsController(cfg.Oplog).RegisterRoutes(api, cfg.AuthMiddleware)
	}

	NewSettingsController(cfg.SettingsRepo, cfg.SettingsStore, settingsRecorder).
		RegisterRoutes(api, cfg.AuthMiddleware)
	NewInvoiceController(cfg.Sequencer, counterRecorder).
		RegisterRoutes(api, cfg.AuthMiddleware)
	NewSalesController(cfg.Sales, cfg.Database.Today).
		RegisterRoutes(api, cfg.AuthMiddleware)
	NewProductsController(cfg.Catalog).RegisterRoutes(api)

	var queue BackupQueue
	if cfg.TaskClient != nil {
		queue = cfg.TaskClient
		NewTasksController(cfg.TaskClient).RegisterRoutes(api)
	}
	NewBackupController(cfg.Backup, queue, backupRecorder, cfg.Database.Location()).
		RegisterRoutes(api, cfg.AuthMiddleware)

	return router
}
