package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mrlokans/posdz/internal/auth"
	"github.com/mrlokans/posdz/internal/entities"
	"github.com/mrlokans/posdz/internal/sales"
)

type SalesController struct {
	service *sales.Service
	today   func() string
}

// NewSalesController creates the checkout and debt endpoints. today names
// the business day listed when ?day= is omitted.
func NewSalesController(service *sales.Service, today func() string) *SalesController {
	return &SalesController{service: service, today: today}
}

func (sc *SalesController) RegisterRoutes(api *gin.RouterGroup, mw *auth.Middleware) {
	api.POST("/sales/checkout", sc.Checkout)
	api.GET("/sales", sc.ListByDay)
	api.GET("/sales/:id", sc.Get)
	api.DELETE("/sales/:id", mw.RequireRole(entities.UserRoleAdmin), sc.Delete)

	api.GET("/customers/:id/balance", sc.Balance)
	api.POST("/debts/:id/pay", sc.PayDebt)
}

// Checkout records a basket. A checkout that failed part way still answers
// with what was written, under details.
func (sc *SalesController) Checkout(c *gin.Context) {
	var req sales.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid checkout request: "+err.Error())
		return
	}
	req.Username = auth.GetUsername(c)

	receipt, err := sc.service.Checkout(c.Request.Context(), req)
	if errors.Is(err, sales.ErrIncompleteCheckout) {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   err.Error(),
			Code:    "incomplete_checkout",
			Details: receipt,
		})
		return
	}
	if err != nil {
		respondServiceError(c, err, "checkout")
		return
	}
	respondCreated(c, receipt)
}

// ListByDay returns the sales of ?day=YYYY-MM-DD, today by default.
func (sc *SalesController) ListByDay(c *gin.Context) {
	day := c.Query("day")
	if day == "" {
		day = sc.today()
	}

	list, err := sc.service.ListByDay(c.Request.Context(), day)
	if err != nil {
		respondServiceError(c, err, "list sales")
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "sales": list})
}

func (sc *SalesController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	receipt, err := sc.service.GetSale(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "get sale")
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// Delete removes a sale and its line items.
func (sc *SalesController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := sc.service.DeleteSale(c.Request.Context(), id, auth.GetUsername(c)); err != nil {
		respondServiceError(c, err, "delete sale")
		return
	}
	respondSuccess(c, "sale deleted")
}

func (sc *SalesController) Balance(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	balance, err := sc.service.CustomerBalance(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "customer balance")
		return
	}
	c.JSON(http.StatusOK, balance)
}

type payDebtRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (sc *SalesController) PayDebt(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req payDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "amount is required")
		return
	}

	debt, err := sc.service.PayDebt(c.Request.Context(), id, req.Amount, auth.GetUsername(c))
	if err != nil {
		respondServiceError(c, err, "pay debt")
		return
	}
	c.JSON(http.StatusOK, debt)
}
