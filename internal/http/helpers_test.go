package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/posdz/internal/backup"
	"github.com/mrlokans/posdz/internal/database"
	"github.com/mrlokans/posdz/internal/sales"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseIDParam_Valid(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "123"}}

	id, ok := parseIDParam(c, "id")

	assert.True(t, ok)
	assert.Equal(t, uint(123), id)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParseIDParam_Invalid(t *testing.T) {
	for _, value := range []string{"abc", "-1", "0", ""} {
		t.Run(value, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Params = gin.Params{{Key: "id", Value: value}}

			id, ok := parseIDParam(c, "id")

			assert.False(t, ok)
			assert.Equal(t, uint(0), id)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid id")
		})
	}
}

func TestRespondServiceError(t *testing.T) {
	wrap := func(op string, err error) error {
		return &database.OpError{Op: op, Collection: "products", Err: err}
	}

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"uniqueness", wrap("add", database.ErrUniquenessViolation), http.StatusConflict, "uniqueness_violation"},
		{"lock timeout", wrap("put", database.ErrLockTimeout), http.StatusServiceUnavailable, "lock_timeout"},
		{"invalid key", wrap("get", database.ErrInvalidKey), http.StatusBadRequest, "invalid_request"},
		{"unknown index", wrap("getByIndex", database.ErrUnknownIndex), http.StatusBadRequest, "invalid_request"},
		{"storage", wrap("getAll", database.ErrStorageUnavailable), http.StatusInternalServerError, "storage_unavailable"},
		{"sale not found", sales.ErrSaleNotFound, http.StatusNotFound, "not_found"},
		{"overpayment", fmt.Errorf("%w: outstanding 10", sales.ErrOverpayment), http.StatusBadRequest, "invalid_request"},
		{"bad document", backup.ErrUnsupportedDocument, http.StatusBadRequest, "invalid_request"},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable, "cancelled"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondServiceError(c, tt.err, "test")

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Contains(t, w.Body.String(), `"code":"`+tt.code+`"`)
			} else {
				assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
			}
		})
	}
}
