// internal/interfaces/http/handlers/shop.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pos-backend/internal/config"
	"github.com/your-org/pos-backend/internal/domain/shop"
)

// ShopHandler handles shop configuration endpoints
type ShopHandler struct {
	shopService *shop.Service
	config      *config.Config
}

// NewShopHandler creates a new shop handler
func NewShopHandler(shopService *shop.Service, cfg *config.Config) *ShopHandler {
	return &ShopHandler{
		shopService: shopService,
		config:      cfg,
	}
}

// GetShop handles GET /shops/:id
func (h *ShopHandler) GetShop(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sh, err := h.shopService.Shop(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shop retrieved successfully",
		"data":    sh,
	})
}

// GetTaxRate handles GET /shops/:id/tax-rate
func (h *ShopHandler) GetTaxRate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	rate, err := h.shopService.RateFor(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Tax rate retrieved successfully",
		"data":    gin.H{"shop_id": id, "tax_rate": rate},
	})
}
