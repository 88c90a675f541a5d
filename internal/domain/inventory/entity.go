// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// StockItem tracks the on-hand quantity of a product at a shop
type StockItem struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ShopID          uint      `gorm:"not null;index:idx_stock_shop_product,unique" json:"shop_id"`
	ProductID       uint      `gorm:"not null;index:idx_stock_shop_product,unique" json:"product_id"`
	Quantity        int       `gorm:"not null;default:0" json:"quantity"`
	ReorderLevel    int       `gorm:"default:0" json:"reorder_level"`
	LastCountedAt   *time.Time `json:"last_counted_at,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MovementType classifies a stock movement
type MovementType string

const (
	MovementSale       MovementType = "sale"
	MovementReceipt    MovementType = "receipt"
	MovementAdjustment MovementType = "adjustment"
	MovementReturn     MovementType = "return"
)

// StockMovement is one audit entry in the stock ledger. Quantity is signed:
// sales are negative, receipts positive.
type StockMovement struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	ShopID    uint         `gorm:"not null;index" json:"shop_id"`
	ProductID uint         `gorm:"not null;index" json:"product_id"`
	Type      MovementType `gorm:"not null;size:20" json:"type"`
	Quantity  int          `gorm:"not null" json:"quantity"`
	Reference string       `gorm:"size:100" json:"reference"`
	Note      string       `gorm:"size:255" json:"note"`
	CreatedAt time.Time    `json:"created_at"`
}

// TableName overrides
func (StockItem) TableName() string     { return "stock_items" }
func (StockMovement) TableName() string { return "stock_movements" }

// BelowReorderLevel reports whether the item needs restocking
func (s *StockItem) BelowReorderLevel() bool {
	return s.ReorderLevel > 0 && s.Quantity <= s.ReorderLevel
}
