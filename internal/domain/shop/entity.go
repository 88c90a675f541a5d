// internal/domain/shop/entity.go
package shop

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Shop represents one tenant of the POS backend
type Shop struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"not null;size:255" json:"name"`
	Code      string          `gorm:"uniqueIndex;not null;size:50" json:"code"`
	Currency  string          `gorm:"size:3;default:'USD'" json:"currency"`
	TaxRate   decimal.Decimal `gorm:"type:decimal(6,4);not null" json:"tax_rate"` // e.g. 0.1000 for 10%
	IsActive  bool            `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Shop) TableName() string {
	return "shops"
}
