package entrypoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/posdz/internal/config"
	"github.com/mrlokans/posdz/internal/entities"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.Database.Path = filepath.Join(dir, "posdz.db")
	cfg.Database.LogLevel = "silent"
	cfg.Backup.Dir = filepath.Join(dir, "backups")
	cfg.Auth.BcryptCost = 4
	return cfg
}

func TestOpenSeeds(t *testing.T) {
	ctx := context.Background()
	app, err := Open(ctx, testConfig(t))
	require.NoError(t, err)
	defer app.Close()

	admin, err := app.DB.Users().GetByIndex(ctx, "username", entities.AdminUsername)
	require.NoError(t, err)
	require.Len(t, admin, 1)
	assert.Equal(t, entities.UserRoleAdmin, admin[0].Role)

	settings, err := app.Settings.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "DA", settings.Currency)

	number, err := app.Sequencer.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "#001", number)
}

func TestOpenTwiceKeepsData(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	app, err := Open(ctx, cfg)
	require.NoError(t, err)
	_, err = app.Sequencer.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, app.Close())

	app, err = Open(ctx, cfg)
	require.NoError(t, err)
	defer app.Close()

	number, err := app.Sequencer.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "#002", number)

	count, err := app.DB.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestBackupTriggerInline(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	app, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer app.Close()

	trigger := backupTrigger(app, nil)
	require.NoError(t, trigger(ctx))

	entries, err := os.ReadDir(cfg.Backup.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
