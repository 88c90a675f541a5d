// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a catalog entry. A product is either unit-priced or
// weight-priced; IsWeightBased decides which entry point may add it to a
// sale session.
type Product struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	ShopID          uint             `gorm:"not null;index" json:"shop_id"`
	SKU             string           `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name            string           `gorm:"not null;size:255" json:"name"`
	Description     string           `gorm:"type:text" json:"description"`
	CategoryID      *uint            `gorm:"index" json:"category_id,omitempty"`
	UnitPrice       decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	IsWeightBased   bool             `gorm:"default:false" json:"is_weight_based"`
	RatePerKilogram *decimal.Decimal `gorm:"type:decimal(12,2)" json:"rate_per_kilogram,omitempty"`
	WeightPrecision int32            `gorm:"default:3" json:"weight_precision"`
	TrackQuantity   bool             `gorm:"default:true" json:"track_quantity"`
	IsActive        bool             `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
}

// Category represents product categories
type Category struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;size:255" json:"name"`
	SortOrder int            `gorm:"default:0" json:"sort_order"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (Product) TableName() string  { return "products" }
func (Category) TableName() string { return "categories" }

// HasRate reports whether a weight-based product carries a usable
// rate-per-kilogram
func (p *Product) HasRate() bool {
	return p.RatePerKilogram != nil && p.RatePerKilogram.IsPositive()
}
