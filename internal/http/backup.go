package http

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/posdz/internal/auth"
	"github.com/mrlokans/posdz/internal/backup"
	"github.com/mrlokans/posdz/internal/entities"
)

// BackupQueue hands backups to the task queue.
type BackupQueue interface {
	EnqueueBackup(username string) (string, error)
}

// BackupRecorder receives downloads for the operation log.
type BackupRecorder interface {
	LogBackup(username, fileName string, err error)
}

type BackupController struct {
	service  *backup.Service
	queue    BackupQueue
	recorder BackupRecorder
	loc      *time.Location
}

// NewBackupController creates the backup endpoints. queue may be nil, in
// which case /backup/run writes the file before answering.
func NewBackupController(service *backup.Service, queue BackupQueue, recorder BackupRecorder, loc *time.Location) *BackupController {
	if loc == nil {
		loc = time.Local
	}
	return &BackupController{service: service, queue: queue, recorder: recorder, loc: loc}
}

func (bc *BackupController) RegisterRoutes(api *gin.RouterGroup, mw *auth.Middleware) {
	api.GET("/backup", bc.Download)
	api.POST("/backup/run", bc.Run)
	api.POST("/backup/restore", mw.RequireRole(entities.UserRoleAdmin), bc.Restore)
}

// Download streams a fresh backup document as an attachment.
func (bc *BackupController) Download(c *gin.Context) {
	doc, _, err := bc.service.Export(c.Request.Context())
	if err != nil {
		bc.record(c, "", err)
		respondServiceError(c, err, "export backup")
		return
	}

	name := backup.FileName(doc.Timestamp.In(bc.loc))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(http.StatusOK)
	err = backup.Encode(c.Writer, doc)
	bc.record(c, name, err)
	if err != nil {
		c.Error(err)
	}
}

// Run writes a backup file into the backup directory, through the task
// queue when there is one.
func (bc *BackupController) Run(c *gin.Context) {
	username := auth.GetUsername(c)

	if bc.queue != nil {
		taskID, err := bc.queue.EnqueueBackup(username)
		if err != nil {
			respondInternalError(c, err, "enqueue backup")
			return
		}
		respondAccepted(c, "backup queued", gin.H{"task_id": taskID})
		return
	}

	path, res, err := bc.service.Run(c.Request.Context(), username)
	if err != nil {
		respondServiceError(c, err, "run backup")
		return
	}
	c.JSON(http.StatusOK, gin.H{"file": filepath.Base(path), "result": res})
}

// Restore reads a backup document from the body, or from the "file" field
// of a multipart form, and writes every record back. Restore stops at the
// first failing record; the counts of what was written come back in
// details.
func (bc *BackupController) Restore(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if c.ContentType() == "multipart/form-data" {
		fh, err := c.FormFile("file")
		if err != nil {
			respondBadRequest(c, "file is required")
			return
		}
		f, err := fh.Open()
		if err != nil {
			respondBadRequest(c, "failed to open uploaded file")
			return
		}
		defer f.Close()
		body = f
	}

	doc, err := backup.Decode(body)
	if err != nil {
		respondServiceError(c, err, "decode backup")
		return
	}

	res, err := bc.service.RestoreDocument(c.Request.Context(), doc, auth.GetUsername(c))
	if err != nil {
		if errors.Is(err, backup.ErrUnsupportedDocument) {
			respondServiceError(c, err, "restore backup")
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   err.Error(),
			Code:    "restore_incomplete",
			Details: res,
		})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (bc *BackupController) record(c *gin.Context, name string, err error) {
	if bc.recorder != nil {
		bc.recorder.LogBackup(auth.GetUsername(c), name, err)
	}
}
