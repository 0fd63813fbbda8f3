package auth

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/posdz/internal/config"
	"github.com/mrlokans/posdz/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordedActivity struct {
	mu      sync.Mutex
	entries []entities.LogEntry
}

func (r *recordedActivity) LogAsync(entry entities.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordedActivity) actions() []entities.LogAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]entities.LogAction, len(r.entries))
	for i, e := range r.entries {
		actions[i] = e.Action
	}
	return actions
}

// setupRouter builds the auth stack the way the HTTP server does.
func setupRouter(t *testing.T, mode config.AuthMode) (*gin.Engine, *Service, *recordedActivity) {
	t.Helper()
	service, db := setupTestService(t, mode)
	require.NoError(t, db.Seed(context.Background(), "1234", service.Hasher()))

	var sm *SessionManager
	if mode == config.AuthModeLocal {
		sqlDB, err := db.DB.DB()
		require.NoError(t, err)
		sm, err = NewSessionManager(sqlDB, testAuthConfig(mode))
		require.NoError(t, err)
	}

	activity := &recordedActivity{}
	middleware := NewMiddleware(service, sm, testAuthConfig(mode))

	router := gin.New()
	if sm != nil {
		router.Use(sm.SessionLoadSave())
	}
	router.Use(middleware.Handler())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := router.Group("/api")
	NewAuthController(service, sm, activity).RegisterRoutes(api, middleware)
	api.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"username":  GetUsername(c),
			"role":      GetUserRole(c),
			"auth_type": GetAuthType(c),
		})
	})
	return router, service, activity
}

func doJSON(router *gin.Engine, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, router *gin.Engine, username, password string) *http.Cookie {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/api/login",
		`{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func TestMiddleware_NoAuthModeActsAsAdmin(t *testing.T) {
	router, _, _ := setupRouter(t, config.AuthModeNone)

	w := doJSON(router, http.MethodGet, "/api/whoami", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"ADMIN","role":"admin","auth_type":"none"}`, w.Body.String())

	w = doJSON(router, http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_LocalModeRequiresSession(t *testing.T) {
	router, _, _ := setupRouter(t, config.AuthModeLocal)

	w := doJSON(router, http.MethodGet, "/api/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), ErrAuthRequired.Error())

	w = doJSON(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthController_LoginLogout(t *testing.T) {
	router, _, activity := setupRouter(t, config.AuthModeLocal)

	cookie := login(t, router, "ADMIN", "1234")

	w := doJSON(router, http.MethodGet, "/api/whoami", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"ADMIN","role":"admin","auth_type":"session"}`, w.Body.String())

	w = doJSON(router, http.MethodGet, "/api/me", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"ADMIN"`)
	assert.NotContains(t, w.Body.String(), "password")

	w = doJSON(router, http.MethodPost, "/api/logout", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/whoami", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, []entities.LogAction{entities.LogActionLogin, entities.LogActionLogout}, activity.actions())
}

func TestAuthController_LoginRejectsBadCredentials(t *testing.T) {
	router, _, activity := setupRouter(t, config.AuthModeLocal)

	w := doJSON(router, http.MethodPost, "/api/login", `{"username":"ADMIN","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())

	w = doJSON(router, http.MethodPost, "/api/login", `{"username":"ADMIN"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Len(t, activity.entries, 1)
	assert.Equal(t, entities.LogStatusFailed, activity.entries[0].Status)
}

func TestMiddleware_SessionOfDeletedUserIsRejected(t *testing.T) {
	router, service, _ := setupRouter(t, config.AuthModeLocal)
	ctx := context.Background()

	cashier, err := service.CreateUser(ctx, "amina", "secret", entities.UserRoleCashier)
	require.NoError(t, err)
	cookie := login(t, router, "amina", "secret")

	require.NoError(t, service.DeleteUser(ctx, cashier.ID))

	w := doJSON(router, http.MethodGet, "/api/whoami", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthController_UsersRequireAdmin(t *testing.T) {
	router, service, _ := setupRouter(t, config.AuthModeLocal)

	_, err := service.CreateUser(context.Background(), "amina", "secret", entities.UserRoleCashier)
	require.NoError(t, err)

	cashierCookie := login(t, router, "amina", "secret")
	w := doJSON(router, http.MethodGet, "/api/users", "", cashierCookie)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminCookie := login(t, router, "ADMIN", "1234")
	w = doJSON(router, http.MethodGet, "/api/users", "", adminCookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"amina"`)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestAuthController_CreateUser(t *testing.T) {
	router, _, activity := setupRouter(t, config.AuthModeNone)

	w := doJSON(router, http.MethodPost, "/api/users", `{"username":"amina","password":"secret"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"role":"cashier"`)

	w = doJSON(router, http.MethodPost, "/api/users", `{"username":"amina","password":"secret"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(router, http.MethodPost, "/api/users", `{"username":"x y","password":"secret"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, []entities.LogAction{entities.LogActionUser}, activity.actions())
}

func TestAuthController_DeleteLastAdmin(t *testing.T) {
	router, service, _ := setupRouter(t, config.AuthModeNone)

	admin, err := service.GetUserByUsername(context.Background(), entities.AdminUsername)
	require.NoError(t, err)

	w := doJSON(router, http.MethodDelete, "/api/users/1", "")
	require.Equal(t, uint(1), admin.ID)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/users/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/users/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthController_ChangePassword(t *testing.T) {
	router, _, _ := setupRouter(t, config.AuthModeLocal)
	cookie := login(t, router, "ADMIN", "1234")

	w := doJSON(router, http.MethodPut, "/api/me/password",
		`{"oldPassword":"nope","newPassword":"abcd"}`, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(router, http.MethodPut, "/api/me/password",
		`{"oldPassword":"1234","newPassword":"abcd"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	login(t, router, "ADMIN", "abcd")
}
