package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/posdz/internal/catalog"
)

type ProductsController struct {
	catalog *catalog.Service
}

func NewProductsController(catalog *catalog.Service) *ProductsController {
	return &ProductsController{catalog: catalog}
}

func (pc *ProductsController) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/products/barcode/:code", pc.FindByBarcode)
	api.GET("/products/alerts", pc.Alerts)
}

// FindByBarcode looks a scanned code up in the catalog.
func (pc *ProductsController) FindByBarcode(c *gin.Context) {
	product, found, err := pc.catalog.FindByBarcode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondServiceError(c, err, "find by barcode")
		return
	}
	if !found {
		respondNotFound(c, "product")
		return
	}
	c.JSON(http.StatusOK, product)
}

// Alerts lists products at or below the low stock threshold and those
// expiring within the alert window.
func (pc *ProductsController) Alerts(c *gin.Context) {
	alerts, err := pc.catalog.Alerts(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "product alerts")
		return
	}
	c.JSON(http.StatusOK, alerts)
}
