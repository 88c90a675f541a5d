// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/your-org/pos-backend/internal/domain/inventory"
	"github.com/your-org/pos-backend/internal/domain/product"
	"github.com/your-org/pos-backend/internal/domain/sale"
	"github.com/your-org/pos-backend/internal/domain/session"
	"github.com/your-org/pos-backend/internal/domain/shop"
	"github.com/your-org/pos-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		// Tenant and people
		&shop.Shop{},
		&user.User{},
		&user.Device{},
		&user.Customer{},

		// Catalog
		&product.Category{},
		&product.Product{},

		// Stock
		&inventory.StockItem{},
		&inventory.StockMovement{},

		// Sale sessions
		&session.Session{},
		&session.LineItem{},

		// Finalized sales
		&sale.Sale{},
		&sale.SaleItem{},
	}

	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// Session indexes - the owner scan and the expiry sweep are hot paths
		"CREATE INDEX IF NOT EXISTS idx_sessions_owner_state ON sale_sessions(user_id, device_id, state)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_state_activity ON sale_sessions(state, last_activity_at)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_shop ON sale_sessions(shop_id)",
		"CREATE INDEX IF NOT EXISTS idx_session_items_session_removed ON sale_session_items(session_id, removed)",
		"CREATE INDEX IF NOT EXISTS idx_session_items_product ON sale_session_items(product_id)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_shop_active ON products(shop_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_sku ON products(sku)",
		"CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id)",

		// Stock indexes
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_product_created ON stock_movements(product_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_reference ON stock_movements(reference)",

		// Sale indexes
		"CREATE INDEX IF NOT EXISTS idx_sales_shop_sold ON sales(shop_id, sold_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sales_invoice ON sales(invoice_number)",
		"CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items(sale_id)",
		"CREATE INDEX IF NOT EXISTS idx_sale_items_product ON sale_items(product_id)",

		// Customer indexes
		"CREATE INDEX IF NOT EXISTS idx_customers_shop_name ON customers(shop_id, name)",
		"CREATE INDEX IF NOT EXISTS idx_customers_phone ON customers(phone)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedShop(); err != nil {
		return fmt.Errorf("failed to seed shop: %w", err)
	}

	if err := m.seedUsersAndDevices(); err != nil {
		return fmt.Errorf("failed to seed users and devices: %w", err)
	}

	if err := m.seedProducts(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

// seedShop creates the default shop
func (m *Migration) seedShop() error {
	var count int64
	m.db.Model(&shop.Shop{}).Count(&count)
	if count > 0 {
		log.Println("⏭️ Shops already exist")
		return nil
	}

	defaultShop := shop.Shop{
		Name:     "Main Street Store",
		Code:     "MAIN",
		Currency: "USD",
		TaxRate:  decimal.RequireFromString("0.10"),
		IsActive: true,
	}
	if err := m.db.Create(&defaultShop).Error; err != nil {
		return err
	}

	log.Printf("🏪 Created shop: %s", defaultShop.Name)
	return nil
}

// seedUsersAndDevices creates a default cashier and terminal
func (m *Migration) seedUsersAndDevices() error {
	var count int64
	m.db.Model(&user.User{}).Count(&count)
	if count > 0 {
		log.Println("⏭️ Users already exist")
		return nil
	}

	cashier := user.User{
		ShopID:   1,
		Name:     "Default Cashier",
		Email:    "cashier@example.com",
		Role:     "cashier",
		IsActive: true,
	}
	if err := m.db.Create(&cashier).Error; err != nil {
		return err
	}

	terminal := user.Device{
		ShopID:     1,
		Name:       "Front Counter",
		Identifier: "terminal-001",
		IsActive:   true,
	}
	if err := m.db.Create(&terminal).Error; err != nil {
		return err
	}

	log.Println("👤 Created default cashier and terminal")
	return nil
}

// seedProducts creates sample unit-priced and weight-priced products
func (m *Migration) seedProducts() error {
	var count int64
	m.db.Model(&product.Product{}).Count(&count)
	if count > 0 {
		log.Println("⏭️ Products already exist")
		return nil
	}

	applesRate := decimal.RequireFromString("20.00")
	cheeseRate := decimal.RequireFromString("35.50")

	products := []product.Product{
		{
			ShopID:        1,
			SKU:           "CAN-SODA-001",
			Name:          "Soda Can 330ml",
			UnitPrice:     decimal.RequireFromString("10.00"),
			TrackQuantity: true,
			IsActive:      true,
		},
		{
			ShopID:        1,
			SKU:           "MUG-CER-001",
			Name:          "Ceramic Mug",
			UnitPrice:     decimal.RequireFromString("4.99"),
			TrackQuantity: true,
			IsActive:      true,
		},
		{
			ShopID:          1,
			SKU:             "FRU-APPLE-001",
			Name:            "Apples",
			IsWeightBased:   true,
			RatePerKilogram: &applesRate,
			WeightPrecision: 3,
			IsActive:        true,
		},
		{
			ShopID:          1,
			SKU:             "DEL-CHEESE-001",
			Name:            "Aged Cheddar",
			IsWeightBased:   true,
			RatePerKilogram: &cheeseRate,
			WeightPrecision: 3,
			IsActive:        true,
		},
	}

	for _, p := range products {
		if err := m.db.Create(&p).Error; err != nil {
			return err
		}
		stock := inventory.StockItem{
			ShopID:    1,
			ProductID: p.ID,
			Quantity:  100,
		}
		if !p.IsWeightBased {
			if err := m.db.Create(&stock).Error; err != nil {
				return err
			}
		}
	}

	log.Printf("📦 Created %d sample products", len(products))
	return nil
}

// GetDatabaseStats logs row counts per table, useful in development
func (m *Migration) GetDatabaseStats() error {
	tables := []string{
		"shops", "users", "devices", "customers",
		"categories", "products",
		"stock_items", "stock_movements",
		"sale_sessions", "sale_session_items",
		"sales", "sale_items",
	}

	log.Println("📊 Database Statistics:")
	log.Println("================================")

	totalRecords := int64(0)
	for _, table := range tables {
		var count int64
		m.db.Table(table).Count(&count)
		totalRecords += count

		status := "✅"
		if count == 0 {
			status = "📭"
		}

		log.Printf("%s %-25s | %d records", status, table, count)
	}

	log.Println("================================")
	log.Printf("📈 Total records across all tables: %d", totalRecords)
	log.Printf("🗂️ Total tables: %d", len(tables))

	return nil
}
