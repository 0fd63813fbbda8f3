package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/posdz/internal/config"
	"github.com/mrlokans/posdz/internal/entities"
)

func setupTestSessions(t *testing.T) (*SessionManager, *Service) {
	t.Helper()
	service, db := setupTestService(t, config.AuthModeLocal)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	sm, err := NewSessionManager(sqlDB, testAuthConfig(config.AuthModeLocal))
	require.NoError(t, err)
	return sm, service
}

func TestNewSessionManager_CookieSettings(t *testing.T) {
	sm, _ := setupTestSessions(t)

	assert.Equal(t, "posdz_session", sm.Cookie.Name)
	assert.True(t, sm.Cookie.HttpOnly)
	assert.False(t, sm.Cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, sm.Cookie.SameSite)
	assert.Equal(t, 12*time.Hour, sm.Lifetime)
}

func TestSessionManager_CreateAndReadSession(t *testing.T) {
	sm, _ := setupTestSessions(t)
	user := &entities.User{ID: 7, Username: "amina", Role: entities.UserRoleCashier}
	loginAt := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.POST("/login", func(c *gin.Context) {
		require.NoError(t, sm.CreateSession(c.Request, user, loginAt))
		c.Status(http.StatusNoContent)
	})
	router.GET("/whoami", func(c *gin.Context) {
		data := sm.GetSessionData(c.Request)
		if data == nil {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.JSON(http.StatusOK, data)
	})
	router.POST("/logout", func(c *gin.Context) {
		require.NoError(t, sm.DestroySession(c.Request))
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "posdz_session", cookie.Name)
	assert.NotEmpty(t, cookie.Value)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":7`)
	assert.Contains(t, w.Body.String(), `"username":"amina"`)
	assert.Contains(t, w.Body.String(), `"role":"cashier"`)

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionManager_NoCookieIsAnonymous(t *testing.T) {
	sm, _ := setupTestSessions(t)

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": sm.GetUserID(c.Request)})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":0}`, w.Body.String())
	assert.Empty(t, w.Result().Cookies())
}
