// internal/interfaces/http/handlers/stock.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pos-backend/internal/config"
	"github.com/your-org/pos-backend/internal/domain/inventory"
)

// StockHandler handles stock tracking endpoints
type StockHandler struct {
	inventoryService *inventory.Service
	config           *config.Config
}

// NewStockHandler creates a new stock handler
func NewStockHandler(inv *inventory.Service, cfg *config.Config) *StockHandler {
	return &StockHandler{
		inventoryService: inv,
		config:           cfg,
	}
}

// GetStockItem handles GET /stock/:productId
func (h *StockHandler) GetStockItem(c *gin.Context) {
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}
	shopID, ok := parseQueryUint(c, "shop_id")
	if !ok {
		return
	}

	item, err := h.inventoryService.StockItem(c.Request.Context(), shopID, productID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock retrieved successfully",
		"data":    item,
	})
}

// GetMovements handles GET /stock/:productId/movements
func (h *StockHandler) GetMovements(c *gin.Context) {
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}
	shopID, ok := parseQueryUint(c, "shop_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	movements, err := h.inventoryService.ListMovements(c.Request.Context(), shopID, productID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve stock movements",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock movements retrieved successfully",
		"data":    movements,
	})
}

// AdjustStock handles POST /stock/adjust
func (h *StockHandler) AdjustStock(c *gin.Context) {
	var req inventory.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	item, err := h.inventoryService.Adjust(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock adjusted successfully",
		"data":    item,
	})
}
