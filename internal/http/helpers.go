package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/posdz/internal/backup"
	"github.com/mrlokans/posdz/internal/catalog"
	"github.com/mrlokans/posdz/internal/database"
	"github.com/mrlokans/posdz/internal/sales"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (partial receipts, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data    any   `json:"data"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// --- Error Response Helpers ---

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, what string) {
	zap.L().Error("internal error",
		zap.String("context", what),
		zap.String("request_id", requestID(c)),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func respondError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// respondServiceError maps access-layer and domain errors to a status code.
// Anything unrecognised is logged and reported as a 500.
func respondServiceError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, database.ErrUniquenessViolation):
		respondError(c, http.StatusConflict, "uniqueness_violation", err)
	case errors.Is(err, database.ErrLockTimeout):
		respondError(c, http.StatusServiceUnavailable, "lock_timeout", err)
	case errors.Is(err, database.ErrUnknownCollection):
		respondError(c, http.StatusNotFound, "unknown_collection", err)
	case errors.Is(err, database.ErrInvalidKey),
		errors.Is(err, database.ErrUnknownIndex),
		errors.Is(err, database.ErrNilRecord):
		respondError(c, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, sales.ErrSaleNotFound),
		errors.Is(err, sales.ErrDebtNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		respondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, sales.ErrEmptySale),
		errors.Is(err, sales.ErrUnknownProduct),
		errors.Is(err, sales.ErrInvalidQuantity),
		errors.Is(err, sales.ErrInvalidAmount),
		errors.Is(err, sales.ErrInvalidDay),
		errors.Is(err, sales.ErrCustomerRequired),
		errors.Is(err, sales.ErrUnknownCustomer),
		errors.Is(err, sales.ErrOverpayment),
		errors.Is(err, catalog.ErrBarcodeRequired),
		errors.Is(err, backup.ErrUnsupportedDocument):
		respondError(c, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusServiceUnavailable, "cancelled", err)
	case errors.Is(err, database.ErrStorageUnavailable):
		zap.L().Error("storage unavailable", zap.String("context", what), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "storage_unavailable", err)
	default:
		respondInternalError(c, err, what)
	}
}

// --- Success Response Helpers ---

func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for queued operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}
