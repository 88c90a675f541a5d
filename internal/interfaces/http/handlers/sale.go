// internal/interfaces/http/handlers/sale.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pos-backend/internal/config"
	"github.com/your-org/pos-backend/internal/domain/sale"
	"github.com/your-org/pos-backend/internal/pkg/receipt"
)

// SaleHandler handles finalized sale endpoints
type SaleHandler struct {
	saleService    *sale.Service
	receiptService *receipt.Service
	config         *config.Config
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(saleService *sale.Service, cfg *config.Config) *SaleHandler {
	return &SaleHandler{
		saleService:    saleService,
		receiptService: receipt.NewService(cfg),
		config:         cfg,
	}
}

// GetSales handles GET /sales
func (h *SaleHandler) GetSales(c *gin.Context) {
	shopID, ok := parseQueryUint(c, "shop_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	sales, err := h.saleService.ListSales(c.Request.Context(), shopID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve sales",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sales retrieved successfully",
		"data":    sales,
	})
}

// GetSale handles GET /sales/:id
func (h *SaleHandler) GetSale(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sl, err := h.saleService.GetSale(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale retrieved successfully",
		"data":    sl,
	})
}

// GetSaleByInvoice handles GET /sales/invoice/:invoice, looking a sale up by
// its printed invoice number
func (h *SaleHandler) GetSaleByInvoice(c *gin.Context) {
	invoice := c.Param("invoice")
	if invoice == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invoice number is required",
		})
		return
	}

	sl, err := h.saleService.GetSaleByInvoice(c.Request.Context(), invoice)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale retrieved successfully",
		"data":    sl,
	})
}

// DownloadReceipt handles GET /sales/:id/receipt, streaming a PDF receipt
func (h *SaleHandler) DownloadReceipt(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sl, err := h.saleService.GetSale(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	pdfBuffer, err := h.receiptService.Generate(sl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate receipt",
		})
		return
	}

	filename := fmt.Sprintf("receipt-%s.pdf", sl.InvoiceNumber)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Content-Type", "application/pdf")
	c.Data(http.StatusOK, "application/pdf", pdfBuffer.Bytes())
}
