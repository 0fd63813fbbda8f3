package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/posdz/internal/auth"
	"github.com/mrlokans/posdz/internal/entities"
	"github.com/mrlokans/posdz/internal/invoice"
)

// CounterRecorder receives manual counter resets for the operation log.
type CounterRecorder interface {
	LogCounterReset(username string, err error)
}

type InvoiceController struct {
	sequencer *invoice.Sequencer
	recorder  CounterRecorder
}

func NewInvoiceController(sequencer *invoice.Sequencer, recorder CounterRecorder) *InvoiceController {
	return &InvoiceController{sequencer: sequencer, recorder: recorder}
}

func (ic *InvoiceController) RegisterRoutes(api *gin.RouterGroup, mw *auth.Middleware) {
	api.GET("/invoice", ic.Show)
	api.POST("/invoice/next", ic.Next)
	api.POST("/invoice/reset", mw.RequireRole(entities.UserRoleAdmin), ic.Reset)
}

// InvoiceState is the stored counter plus the number the next sale gets.
type InvoiceState struct {
	Number    int64  `json:"number"`
	LastReset string `json:"lastReset"`
	Next      string `json:"next"`
}

// Show reports the counter without consuming a number.
func (ic *InvoiceController) Show(c *gin.Context) {
	counter, err := ic.sequencer.Current(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "read invoice counter")
		return
	}
	next, err := ic.sequencer.Peek(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "peek invoice number")
		return
	}
	c.JSON(http.StatusOK, InvoiceState{Number: counter.Number, LastReset: counter.LastReset, Next: next})
}

// Next issues a number. Checkout mints its own, so this is for receipts
// printed outside a sale.
func (ic *InvoiceController) Next(c *gin.Context) {
	number, err := ic.sequencer.Next(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "next invoice number")
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoiceNumber": number})
}

// Reset restarts today's numbering at #001.
func (ic *InvoiceController) Reset(c *gin.Context) {
	err := ic.sequencer.Reset(c.Request.Context())
	if ic.recorder != nil {
		ic.recorder.LogCounterReset(auth.GetUsername(c), err)
	}
	if err != nil {
		respondServiceError(c, err, "reset invoice counter")
		return
	}
	respondSuccess(c, "invoice counter reset")
}
