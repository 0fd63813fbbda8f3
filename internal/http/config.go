package http

import (
	"github.com/mrlokans/posdz/internal/auth"
	"github.com/mrlokans/posdz/internal/backup"
	"github.com/mrlokans/posdz/internal/catalog"
	"github.com/mrlokans/posdz/internal/database"
	"github.com/mrlokans/posdz/internal/database/settings"
	"github.com/mrlokans/posdz/internal/invoice"
	"github.com/mrlokans/posdz/internal/oplog"
	"github.com/mrlokans/posdz/internal/sales"
	"github.com/mrlokans/posdz/internal/settingsstore"
	"github.com/mrlokans/posdz/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	Database *database.Database

	// Authentication
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager // nil when auth mode is "none"

	// Operation log
	Oplog *oplog.Service

	// Settings
	SettingsRepo  *settings.Repository
	SettingsStore *settingsstore.SettingsStore

	// Point of sale
	Sequencer *invoice.Sequencer
	Catalog   *catalog.Service
	Sales     *sales.Service

	// Backups; TaskClient is nil when the task queue is disabled
	Backup     *backup.Service
	TaskClient *tasks.Client

	// Application info
	Version string
}
