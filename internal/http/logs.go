package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/posdz/internal/auth"
	"github.com/mrlokans/posdz/internal/entities"
	"github.com/mrlokans/posdz/internal/oplog"
)

type LogsController struct {
	oplog *oplog.Service
}

func NewLogsController(oplog *oplog.Service) *LogsController {
	return &LogsController{oplog: oplog}
}

func (lc *LogsController) RegisterRoutes(api *gin.RouterGroup, mw *auth.Middleware) {
	api.GET("/logs", mw.RequireRole(entities.UserRoleAdmin), lc.GetLogs)
}

// GetLogs returns a page of the operation log, newest first.
// GET /api/logs?action=checkout&page=1&limit=25
func (lc *LogsController) GetLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}
	offset := (page - 1) * limit
	action := entities.LogAction(c.Query("action"))

	entries, total, err := lc.oplog.Recent(c.Request.Context(), action, limit, offset)
	if err != nil {
		respondServiceError(c, err, "load logs")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(entries)) < total,
	})
}
