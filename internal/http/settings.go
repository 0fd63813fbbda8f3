package http

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/posdz/internal/auth"
	"github.com/mrlokans/posdz/internal/database/settings"
	"github.com/mrlokans/posdz/internal/entities"
	"github.com/mrlokans/posdz/internal/settingsstore"
)

// SettingsRecorder receives settings changes for the operation log.
type SettingsRecorder interface {
	LogSettings(username string, keys []string)
}

// SettingsController serves the shop settings, both typed and as raw
// key/value pairs.
type SettingsController struct {
	repo     *settings.Repository
	store    *settingsstore.SettingsStore
	recorder SettingsRecorder
}

func NewSettingsController(repo *settings.Repository, store *settingsstore.SettingsStore, recorder SettingsRecorder) *SettingsController {
	return &SettingsController{repo: repo, store: store, recorder: recorder}
}

func (sc *SettingsController) RegisterRoutes(api *gin.RouterGroup, mw *auth.Middleware) {
	api.GET("/settings", sc.GetAll)
	api.GET("/settings/:key", sc.Get)

	admin := api.Group("/settings", mw.RequireRole(entities.UserRoleAdmin))
	admin.PUT("", sc.PutAll)
	admin.PUT("/:key", sc.Put)
}

// GetAll returns the typed settings. With ?describe=true it lists every
// known key with its stored value and whether it came from the database.
func (sc *SettingsController) GetAll(c *gin.Context) {
	if c.Query("describe") == "true" {
		infos, err := sc.store.Describe(c.Request.Context())
		if err != nil {
			respondServiceError(c, err, "describe settings")
			return
		}
		c.JSON(http.StatusOK, infos)
		return
	}

	s, err := sc.store.Load(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "load settings")
		return
	}
	c.JSON(http.StatusOK, s)
}

// Get returns one key. Known keys that were never stored answer with their
// default.
func (sc *SettingsController) Get(c *gin.Context) {
	key := c.Param("key")
	value, found, err := sc.repo.GetSetting(c.Request.Context(), key)
	if err != nil {
		respondServiceError(c, err, "get setting")
		return
	}

	source := "database"
	if !found {
		def, known := entities.DefaultSettingValue(key)
		if !known {
			respondNotFound(c, "setting")
			return
		}
		value, source = def, "default"
	}
	c.JSON(http.StatusOK, settingsstore.SettingInfo{Key: key, Value: value, Source: source})
}

type putSettingRequest struct {
	Value any `json:"value"`
}

// Put stores one key. Booleans are stored as "1"/"0".
func (sc *SettingsController) Put(c *gin.Context) {
	key := c.Param("key")

	var req putSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		respondBadRequest(c, "value is required")
		return
	}

	value := settingsstore.FormatValue(req.Value)
	if err := sc.repo.SetSetting(c.Request.Context(), key, value); err != nil {
		respondServiceError(c, err, "set setting")
		return
	}
	sc.record(c, []string{key})
	c.JSON(http.StatusOK, settingsstore.SettingInfo{Key: key, Value: value, Source: "database"})
}

// PutAll stores every key of a JSON object. Keys absent from the body are
// left as they are.
func (sc *SettingsController) PutAll(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil || len(body) == 0 {
		respondBadRequest(c, "a JSON object of settings is required")
		return
	}

	values := make(map[string]string, len(body))
	keys := make([]string, 0, len(body))
	for key, v := range body {
		if key == "" {
			respondBadRequest(c, "setting keys must not be empty")
			return
		}
		values[key] = settingsstore.FormatValue(v)
		keys = append(keys, key)
	}
	sort.Strings(keys)

	if err := sc.repo.SetSettings(c.Request.Context(), values); err != nil {
		respondServiceError(c, err, "set settings")
		return
	}
	sc.record(c, keys)

	s, err := sc.store.Load(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "load settings")
		return
	}
	c.JSON(http.StatusOK, s)
}

func (sc *SettingsController) record(c *gin.Context, keys []string) {
	if sc.recorder != nil {
		sc.recorder.LogSettings(auth.GetUsername(c), keys)
	}
}
