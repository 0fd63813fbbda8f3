package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/posdz/internal/database"
	"github.com/mrlokans/posdz/internal/database/settings"
	"github.com/mrlokans/posdz/internal/entities"
	"github.com/mrlokans/posdz/internal/settingsstore"
)

var fixedNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func setupTestCatalog(t *testing.T) (*Service, *database.Database) {
	t.Helper()
	db, err := database.NewDatabase(context.Background(), filepath.Join(t.TempDir(), "posdz.db"),
		database.WithLogLevel("silent"),
		database.WithClock(func() time.Time { return fixedNow }),
		database.WithLocation(time.UTC))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := settingsstore.New(settings.NewRepository(db))
	return NewService(db, store), db
}

func addProduct(t *testing.T, db *database.Database, p entities.Product) uint {
	t.Helper()
	id, err := db.Products().Add(context.Background(), &p)
	require.NoError(t, err)
	return id
}

func qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFindByBarcode(t *testing.T) {
	svc, db := setupTestCatalog(t)
	ctx := context.Background()

	id := addProduct(t, db, entities.Product{Name: "Milk 1L", Barcode: "6130001", Quantity: qty("10")})
	addProduct(t, db, entities.Product{Name: "Bread", Barcode: "6130002"})

	product, found, err := svc.FindByBarcode(ctx, " 6130001 ")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, product.ID)
	assert.Equal(t, "Milk 1L", product.Name)

	_, found, err = svc.FindByBarcode(ctx, "0000")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = svc.FindByBarcode(ctx, "  ")
	assert.ErrorIs(t, err, ErrBarcodeRequired)
}

func TestLowStock_UsesDefaultThreshold(t *testing.T) {
	svc, db := setupTestCatalog(t)

	addProduct(t, db, entities.Product{Name: "Sugar", Quantity: qty("5")})
	addProduct(t, db, entities.Product{Name: "Rice", Quantity: qty("2")})
	addProduct(t, db, entities.Product{Name: "Tea", Quantity: qty("6")})
	addProduct(t, db, entities.Product{Name: "Salt"})

	products, err := svc.LowStock(context.Background())
	require.NoError(t, err)

	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"Salt", "Rice", "Sugar"}, names)
}

func TestLowStock_FollowsSetting(t *testing.T) {
	svc, db := setupTestCatalog(t)
	ctx := context.Background()

	addProduct(t, db, entities.Product{Name: "Tea", Quantity: qty("6")})
	require.NoError(t, settings.NewRepository(db).SetSetting(ctx, entities.SettingKeyLowStockAlert, "10"))

	products, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Tea", products[0].Name)
}

func TestExpiring(t *testing.T) {
	svc, db := setupTestCatalog(t)
	ctx := context.Background()

	addProduct(t, db, entities.Product{Name: "Yogurt", ExpiryDate: "2024-03-08"})
	addProduct(t, db, entities.Product{Name: "Cheese", ExpiryDate: "2024-03-20"})
	addProduct(t, db, entities.Product{Name: "Flour", ExpiryDate: "2024-12-01"})
	addProduct(t, db, entities.Product{Name: "Soap"})
	addProduct(t, db, entities.Product{Name: "Broken", ExpiryDate: "soon"})

	alerts, err := svc.Expiring(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "Yogurt", alerts[0].Product.Name)
	assert.Equal(t, -2, alerts[0].DaysLeft)
	assert.Equal(t, "Cheese", alerts[1].Product.Name)
	assert.Equal(t, 10, alerts[1].DaysLeft)

	require.NoError(t, settings.NewRepository(db).SetSetting(ctx, entities.SettingKeyExpiryAlertDays, "5"))
	alerts, err = svc.Expiring(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Yogurt", alerts[0].Product.Name)
}

func TestAlerts(t *testing.T) {
	svc, db := setupTestCatalog(t)

	addProduct(t, db, entities.Product{Name: "Yogurt", Quantity: qty("1"), ExpiryDate: "2024-03-11"})
	addProduct(t, db, entities.Product{Name: "Flour", Quantity: qty("50")})

	alerts, err := svc.Alerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts.LowStock, 1)
	require.Len(t, alerts.Expiring, 1)
	assert.Equal(t, 1, alerts.Expiring[0].DaysLeft)
}

func TestAdjustStock(t *testing.T) {
	svc, db := setupTestCatalog(t)
	ctx := context.Background()

	id := addProduct(t, db, entities.Product{Name: "Milk", Quantity: qty("3")})

	got, err := svc.AdjustStock(ctx, id, qty("-2.5"))
	require.NoError(t, err)
	assert.True(t, qty("0.5").Equal(got), got.String())

	got, err = svc.AdjustStock(ctx, id, qty("-1"))
	require.NoError(t, err)
	assert.True(t, qty("-0.5").Equal(got), got.String())

	product, found, err := db.Products().Get(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, qty("-0.5").Equal(product.Quantity))

	_, err = svc.AdjustStock(ctx, 999, qty("1"))
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestDaysBetween(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	// Spans the spring DST change.
	a := time.Date(2024, 3, 30, 23, 0, 0, 0, loc)
	b := time.Date(2024, 4, 1, 0, 0, 0, 0, loc)
	assert.Equal(t, 2, daysBetween(a, b))
	assert.Equal(t, -2, daysBetween(b, a))
	assert.Equal(t, 0, daysBetween(a, a))
}
