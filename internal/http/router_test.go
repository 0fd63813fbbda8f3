package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/posdz/internal/auth"
	"github.com/mrlokans/posdz/internal/backup"
	"github.com/mrlokans/posdz/internal/catalog"
	"github.com/mrlokans/posdz/internal/config"
	"github.com/mrlokans/posdz/internal/database"
	"github.com/mrlokans/posdz/internal/database/logs"
	"github.com/mrlokans/posdz/internal/database/settings"
	"github.com/mrlokans/posdz/internal/entities"
	"github.com/mrlokans/posdz/internal/invoice"
	"github.com/mrlokans/posdz/internal/oplog"
	"github.com/mrlokans/posdz/internal/sales"
	"github.com/mrlokans/posdz/internal/settingsstore"
)

type testServer struct {
	router    *gin.Engine
	db        *database.Database
	oplog     *oplog.Service
	backupDir string
}

func setupTestServer(t *testing.T, mode config.AuthMode) *testServer {
	t.Helper()
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

	dir := t.TempDir()
	db, err := database.NewDatabase(context.Background(), filepath.Join(dir, "posdz.db"),
		database.WithLogLevel("silent"),
		database.WithClock(func() time.Time { return now }),
		database.WithLocation(time.UTC))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	authCfg := config.Auth{
		Mode:            mode,
		SessionLifetime: time.Hour,
		BcryptCost:      4,
		AdminPassword:   "1234",
	}
	authService := auth.NewService(db, authCfg)
	require.NoError(t, db.Seed(context.Background(), authCfg.AdminPassword, authService.Hasher()))

	var sm *auth.SessionManager
	if mode == config.AuthModeLocal {
		sqlDB, err := db.DB.DB()
		require.NoError(t, err)
		sm, err = auth.NewSessionManager(sqlDB, authCfg)
		require.NoError(t, err)
	}

	ops := oplog.NewService(logs.NewRepository(db))
	t.Cleanup(ops.Wait)

	settingsRepo := settings.NewRepository(db)
	store := settingsstore.New(settingsRepo)
	seq := invoice.NewSequencer(db)
	cat := catalog.NewService(db, store)
	backupDir := filepath.Join(dir, "backups")

	router := NewRouter(RouterConfig{
		Database:       db,
		AuthService:    authService,
		AuthMiddleware: auth.NewMiddleware(authService, sm, authCfg),
		SessionManager: sm,
		Oplog:          ops,
		SettingsRepo:   settingsRepo,
		SettingsStore:  store,
		Sequencer:      seq,
		Catalog:        cat,
		Sales:          sales.NewService(db, seq, cat, ops),
		Backup:         backup.NewService(db, backupDir, ops),
		Version:        "test",
	})

	return &testServer{router: router, db: db, oplog: ops, backupDir: backupDir}
}

func (s *testServer) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (s *testServer) addProduct(t *testing.T, body string) entities.Product {
	t.Helper()
	w := s.do(http.MethodPost, "/api/collections/products", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p entities.Product
	decodeBody(t, w, &p)
	return p
}

func TestRouter_Health(t *testing.T) {
	s := setupTestServer(t, config.AuthModeLocal)

	w := s.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	var resp HealthResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "2024-03-10", resp.Today)
	assert.Equal(t, "test", resp.Version)
}

func TestRouter_RequestIDIsEchoed(t *testing.T) {
	s := setupTestServer(t, config.AuthModeNone)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(headerRequestID, "till-1")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, "till-1", w.Header().Get(headerRequestID))
}

func TestRouter_LocalModeGuards(t *testing.T) {
	s := setupTestServer(t, config.AuthModeLocal)

	w := s.do(http.MethodGet, "/api/collections/products", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/login", `{"username":"ADMIN","password":"1234"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	admin := w.Result().Cookies()[0]

	w = s.do(http.MethodPost, "/api/users", `{"username":"cashier1","password":"secret"}`, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/login", `{"username":"cashier1","password":"secret"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cashier := w.Result().Cookies()[0]

	w = s.do(http.MethodGet, "/api/collections/products", "", cashier)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/invoice/reset", "", cashier)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, "/api/settings/storeName", `{"value":"x"}`, cashier)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/invoice/reset", "", admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCollections_CRUD(t *testing.T) {
	s := setupTestServer(t, config.AuthModeNone)

	milk := s.addProduct(t, `{"name":"Milk","barcode":"6130001","sellPrice":"45.50","quantity":"10"}`)
	assert.NotZero(t, milk.ID)
	assert.Equal(t, "45.5", milk.SellPrice.String())

	w := s.do(http.MethodGet, "/api/collections/products/"+itoa(milk.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	var got entities.Product
	decodeBody(t, w, &got)
	assert.Equal(t, "Milk", got.Name)

	w = s.do(http.MethodGet, "/api/collections/products?index=barcode&value=6130001", "")
	require.Equal(t, http.StatusOK, w.Code)
	var byBarcode []entities.Product
	decodeBody(t, w, &byBarcode)
	require.Len(t, byBarcode, 1)
	assert.Equal(t, milk.ID, byBarcode[0].ID)

	// The path key wins over the body's id.
	w = s.do(http.MethodPut, "/api/collections/products/"+itoa(milk.ID),
		`{"id":999,"name":"Milk 1L","barcode":"6130001","sellPrice":"50","quantity":"10"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/collections/products", "")
	var all []entities.Product
	decodeBody(t, w, &all)
	require.Len(t, all, 1)
	assert.Equal(t, "Milk 1L", all[0].Name)
	assert.Equal(t, milk.ID, all[0].ID)

	w = s.do(http.MethodDelete, "/api/collections/products/"+itoa(milk.ID), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/collections/products/"+itoa(milk.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Deleting a missing key succeeds.
	w = s.do(http.MethodDelete, "/api/collections/products/"+itoa(milk.ID), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCollections_Errors(t *testing.T) {
	s := setupTestServer(t, config.AuthModeNone)
	s.addProduct(t, `{"name":"Milk"}`)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"duplicate unique name", http.MethodPost, "/api/collections/products", `{"name":"Milk"}`, http.StatusConflict},
		{"users are not exposed", http.MethodGet, "/api/collections/users", "", http.StatusNotFound},
		{"settings are not exposed", http.MethodGet, "/api/collections/settings", "", http.StatusNotFound},
		{"unknown collection", http.MethodGet, "/api/collections/orders", "", http.StatusNotFound},
		{"zero key", http.MethodGet, "/api/collections/products/0", "", http.StatusBadRequest},
		{"non numeric key", http.MethodGet, "/api/collections/products/abc", "", http.StatusBadRequest},
		{"unknown index", http.MethodGet, "/api/collections/products?index=colour&value=red", "", http.StatusBadRequest},
		{"index without value", http.MethodGet, "/api/collections/products?index=barcode", "", http.StatusBadRequest},
		{"body is not an object", http.MethodPost, "/api/collections/families", `[1,2]`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestCollections_ListNames(t *testing.T) {
	s := setupTestServer(t, config.AuthModeNone)

	w := s.do(http.MethodGet, "/api/collections", "")
	require.Equal(t, http.StatusOK, w.Code)

	var names map[string][]string
	decodeBody(t, w, &names)
	assert.Contains(t, names, entities.CollectionSaleItems)
	assert.Equal(t, []string{"saleId"}, names[entities.CollectionSaleItems])
	assert.NotContains(t, names, entities.CollectionUsers)
	assert.NotContains(t, names, entities.CollectionCounter)
}

func TestSettings_Endpoints(t *testing.T) {
	s := setupTestServer(t, config.AuthModeNone)

	w := s.do(http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	var typed settingsstore.Settings
	decodeBody(t, w, &typed)
	assert.Equal(t, "DA", typed.Currency)
	assert.Equal(t, 15, typed.FontSize)
	assert.Equal(t, "dark", typed.BgMode)

	w = s.do(http.MethodGet, "/api/settings/bgMode", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info settingsstore.SettingInfo
	decodeBody(t, w, &info)
	assert.Equal(t, "default", info.Source)
	assert.Equal(t, "dark", info.Value)

	w = s.do(http.MethodGet, "/api/settings/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPut, "/api/settings/storeName", `{"value":"Épicerie Amina"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPut, "/api/settings", `{"fontSize":18,"soundAdd":false}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeBody(t, w, &typed)
	assert.Equal(t, "Épicerie Amina", typed.StoreName)
	assert.Equal(t, 18, typed.FontSize)
	assert.False(t, typed.SoundAdd)

	w = s.do(http.MethodGet, "/api/settings/soundAdd", "")
	decodeBody(t, w, &info)
	assert.Equal(t, "0", info.Value)
	assert.Equal(t, "database", info.Source)

	w = s.do(http.MethodPut, "/api/settings", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.oplog.Wait()
	w = s.do(http.MethodGet, "/api/logs?action=settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Data  []entities.LogEntry `json:"data"`
		Total int64               `json:"total"`
	}
	decodeBody(t, w, &page)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, entities.AdminUsername, page.Data[0].Username)
}

func TestInvoice_Endpoints(t *testing.T) {
	s := setupTestServer(t, config.AuthModeNone)

	w := s.do(http.MethodGet, "/api/invoice", "")
	require.Equal(t, http.StatusOK, w.Code)
	var state InvoiceState
	decodeBody(t, w, &state)
	assert.Equal(t, "#001", state.Next)

	for _, want := range []string{"#001", "#002"} {
		w = s.do(http.MethodPost, "/api/invoice/next", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"invoiceNumber":"`+want+`"}`, w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/invoice", "")
	decodeBody(t, w, &state)
	assert.Equal(t, "#003", state.Next)
	assert.Equal(t, "2024-03-10", state.LastReset)

	w = s.do(http.MethodPost, "/api/invoice/reset", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/invoice/next", "")
	assert.JSONEq(t, `{"invoiceNumber":"#001"}`, w.Body.String())
}

func TestSales_CheckoutAndDebt(t *testing.T) {
	s := setupTestServer(t, config.AuthModeNone)
	milk := s.addProduct(t, `{"name":"Milk","sellPrice":"45.50","quantity":"10"}`)

	w := s.do(http.MethodPost, "/api/collections/customers", `{"name":"Karim"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var karim entities.Customer
	decodeBody(t, w, &karim)

	w = s.do(http.MethodPost, "/api/sales/checkout",
		`{"customerId":`+itoa(karim.ID)+`,"items":[{"productId":`+itoa(milk.ID)+`,"quantity":"2"}],"paid":"50"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var receipt sales.Receipt
	decodeBody(t, w, &receipt)
	assert.Equal(t, "#001", receipt.Sale.InvoiceNumber)
	assert.Equal(t, entities.AdminUsername, receipt.Sale.Username)
	require.NotNil(t, receipt.Debt)
	assert.Equal(t, "41", receipt.Debt.Amount.String())

	w = s.do(http.MethodGet, "/api/sales/"+itoa(receipt.Sale.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	var fetched sales.Receipt
	decodeBody(t, w, &fetched)
	assert.Len(t, fetched.Items, 1)

	w = s.do(http.MethodGet, "/api/sales?day=2024-03-10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "#001")

	w = s.do(http.MethodGet, "/api/sales", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"day":"2024-03-10"`)

	w = s.do(http.MethodGet, "/api/sales?day=10/03/2024", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/debts/"+itoa(receipt.Debt.ID)+"/pay", `{"amount":"100"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/debts/"+itoa(receipt.Debt.ID)+"/pay", `{"amount":"41"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/customers/"+itoa(karim.ID)+"/balance", "")
	require.Equal(t, http.StatusOK, w.Code)
	var balance sales.Balance
	decodeBody(t, w, &balance)
	assert.True(t, balance.Outstanding.IsZero())

	w = s.do(http.MethodPost, "/api/debts/999/pay", `{"amount":"1"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, "/api/sales/"+itoa(receipt.Sale.ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/sales/"+itoa(receipt.Sale.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCollections_SalesByDateIndex(t *testing.T) {
	s := setupTestServer(t, config.AuthModeNone)
	milk := s.addProduct(t, `{"name":"Milk","sellPrice":"45","quantity":"10"}`)

	w := s.do(http.MethodPost, "/api/sales/checkout",
		`{"items":[{"productId":`+itoa(milk.ID)+`,"quantity":"1"}],"paid":"45"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var receipt sales.Receipt
	decodeBody(t, w, &receipt)

	w = s.do(http.MethodGet, "/api/collections/sales/"+itoa(receipt.Sale.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	var stored struct {
		Date string `json:"date"`
	}
	decodeBody(t, w, &stored)
	assert.Equal(t, "2024-03-10T10:00:00Z", stored.Date)

	w = s.do(http.MethodGet, "/api/collections/sales?index=date&value="+url.QueryEscape(stored.Date), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var found []entities.Sale
	decodeBody(t, w, &found)
	require.Len(t, found, 1)
	assert.Equal(t, receipt.Sale.ID, found[0].ID)

	w = s.do(http.MethodGet, "/api/collections/sales?index=date&value=not-a-date", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSales_CheckoutRejections(t *testing.T) {
	s := setupTestServer(t, config.AuthModeNone)
	milk := s.addProduct(t, `{"name":"Milk","sellPrice":"45.50","quantity":"10"}`)

	tests := []struct {
		name string
		body string
	}{
		{"empty basket", `{"items":[]}`},
		{"unknown product", `{"items":[{"productId":999,"quantity":"1"}]}`},
		{"remainder without customer", `{"items":[{"productId":` + itoa(milk.ID) + `,"quantity":"1"}],"paid":"10"}`},
		{"malformed json", `{"items":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/sales/checkout", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestProducts_BarcodeAndAlerts(t *testing.T) {
	s := setupTestServer(t, config.AuthModeNone)
	s.addProduct(t, `{"name":"Milk","barcode":"6130001","quantity":"2","expiryDate":"2024-03-20"}`)
	s.addProduct(t, `{"name":"Rice","barcode":"6130002","quantity":"50"}`)

	w := s.do(http.MethodGet, "/api/products/barcode/6130002", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Rice")

	w = s.do(http.MethodGet, "/api/products/barcode/0000", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/products/alerts", "")
	require.Equal(t, http.StatusOK, w.Code)
	var alerts catalog.Alerts
	decodeBody(t, w, &alerts)
	require.Len(t, alerts.LowStock, 1)
	assert.Equal(t, "Milk", alerts.LowStock[0].Name)
	require.Len(t, alerts.Expiring, 1)
	assert.Equal(t, 10, alerts.Expiring[0].DaysLeft)
}

func TestBackup_DownloadRunRestore(t *testing.T) {
	s := setupTestServer(t, config.AuthModeNone)
	s.addProduct(t, `{"name":"Milk","sellPrice":"45.50"}`)

	w := s.do(http.MethodGet, "/api/backup", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "POSDZ_backup_")
	downloaded := w.Body.String()

	doc, err := backup.Decode(strings.NewReader(downloaded))
	require.NoError(t, err)
	require.Len(t, doc.Products, 1)

	w = s.do(http.MethodPost, "/api/backup/run", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	entries, err := os.ReadDir(s.backupDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// Restore into a fresh store.
	fresh := setupTestServer(t, config.AuthModeNone)
	w = fresh.do(http.MethodPost, "/api/backup/restore", downloaded)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res backup.Result
	decodeBody(t, w, &res)
	assert.Equal(t, 1, res.Counts[entities.CollectionProducts])

	w = fresh.do(http.MethodGet, "/api/collections/products", "")
	assert.Contains(t, w.Body.String(), "Milk")

	w = fresh.do(http.MethodPost, "/api/backup/restore", `{"products":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func itoa(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
