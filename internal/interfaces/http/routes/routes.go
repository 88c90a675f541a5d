// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/pos-backend/internal/config"
	"github.com/your-org/pos-backend/internal/domain/inventory"
	"github.com/your-org/pos-backend/internal/domain/sale"
	"github.com/your-org/pos-backend/internal/domain/session"
	"github.com/your-org/pos-backend/internal/domain/shop"
	"github.com/your-org/pos-backend/internal/interfaces/http/handlers"
	"gorm.io/gorm"
)

// Dependencies carries the services shared between the HTTP layer and the
// background sweeper. The session manager in particular must be the same
// instance everywhere so all mutations go through the same locks.
type Dependencies struct {
	DB        *gorm.DB
	Config    *config.Config
	Manager   *session.Manager
	Inventory *inventory.Service
	Sales     *sale.Service
	Shops     *shop.Service
}

// SetupSessionRoutes sets up sale session routes
func SetupSessionRoutes(rg *gin.RouterGroup, deps *Dependencies) {
	sessionHandler := handlers.NewSessionHandler(deps.Manager, deps.Config)

	sessions := rg.Group("/sessions")
	{
		sessions.POST("", sessionHandler.CreateSession)
		sessions.GET("", sessionHandler.GetSessions)
		sessions.POST("/cleanup", sessionHandler.CleanupExpired)
		sessions.GET("/:id", sessionHandler.GetSession)
		sessions.PUT("/:id", sessionHandler.UpdateSession)
		sessions.DELETE("/:id", sessionHandler.Close)
		sessions.GET("/:id/snapshot", sessionHandler.GetSnapshot)
		sessions.GET("/:id/validate", sessionHandler.Validate)
		sessions.POST("/:id/switch", sessionHandler.SwitchTo)
		sessions.POST("/:id/suspend", sessionHandler.Suspend)
		sessions.POST("/:id/resume", sessionHandler.Resume)
		sessions.POST("/:id/complete", sessionHandler.Complete)
		sessions.POST("/:id/recalculate", sessionHandler.Recalculate)

		sessions.POST("/:id/items", sessionHandler.AddItem)
		sessions.PUT("/:id/items/:itemId", sessionHandler.UpdateItem)
		sessions.DELETE("/:id/items/:itemId", sessionHandler.RemoveItem)
	}
}

// SetupProductRoutes sets up product catalog routes
func SetupProductRoutes(rg *gin.RouterGroup, deps *Dependencies) {
	productHandler := handlers.NewProductHandler(deps.DB, deps.Config)

	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.POST("", productHandler.CreateProduct)
		products.GET("/:id", productHandler.GetProduct)
		products.GET("/sku/:sku", productHandler.GetProductBySKU)
	}
}

// SetupStockRoutes sets up stock tracking routes
func SetupStockRoutes(rg *gin.RouterGroup, deps *Dependencies) {
	stockHandler := handlers.NewStockHandler(deps.Inventory, deps.Config)

	stock := rg.Group("/stock")
	{
		stock.POST("/adjust", stockHandler.AdjustStock)
		stock.GET("/:productId", stockHandler.GetStockItem)
		stock.GET("/:productId/movements", stockHandler.GetMovements)
	}
}

// SetupSaleRoutes sets up finalized sale routes
func SetupSaleRoutes(rg *gin.RouterGroup, deps *Dependencies) {
	saleHandler := handlers.NewSaleHandler(deps.Sales, deps.Config)

	sales := rg.Group("/sales")
	{
		sales.GET("", saleHandler.GetSales)
		sales.GET("/invoice/:invoice", saleHandler.GetSaleByInvoice)
		sales.GET("/:id", saleHandler.GetSale)
		sales.GET("/:id/receipt", saleHandler.DownloadReceipt)
	}
}

// SetupShopRoutes sets up shop configuration routes
func SetupShopRoutes(rg *gin.RouterGroup, deps *Dependencies) {
	shopHandler := handlers.NewShopHandler(deps.Shops, deps.Config)

	shops := rg.Group("/shops")
	{
		shops.GET("/:id", shopHandler.GetShop)
		shops.GET("/:id/tax-rate", shopHandler.GetTaxRate)
	}
}

// SetupCustomerRoutes sets up customer and device routes
func SetupCustomerRoutes(rg *gin.RouterGroup, deps *Dependencies) {
	customerHandler := handlers.NewCustomerHandler(deps.DB, deps.Config)

	customers := rg.Group("/customers")
	{
		customers.POST("", customerHandler.CreateCustomer)
		customers.GET("/search", customerHandler.SearchCustomers)
		customers.GET("/:id", customerHandler.GetCustomer)
	}

	devices := rg.Group("/devices")
	{
		devices.POST("", customerHandler.RegisterDevice)
		devices.POST("/:id/heartbeat", customerHandler.TouchDevice)
	}
}

// SetupRoutes sets up all API routes
func SetupRoutes(rg *gin.RouterGroup, deps *Dependencies) {
	SetupSessionRoutes(rg, deps)
	SetupProductRoutes(rg, deps)
	SetupStockRoutes(rg, deps)
	SetupSaleRoutes(rg, deps)
	SetupShopRoutes(rg, deps)
	SetupCustomerRoutes(rg, deps)
}
