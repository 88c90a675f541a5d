// internal/domain/sale/entity.go
package sale

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a finalized transaction. Once written it is immutable; refunds and
// corrections become new ledger entries, not edits.
type Sale struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	InvoiceNumber string          `gorm:"uniqueIndex;not null;size:50" json:"invoice_number"`
	ShopID        uint            `gorm:"not null;index" json:"shop_id"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	DeviceID      uint            `gorm:"not null" json:"device_id"`
	CustomerID    *uint           `gorm:"index" json:"customer_id,omitempty"`
	PaymentMethod string          `gorm:"not null;size:50" json:"payment_method"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2)" json:"subtotal"`
	TotalDiscount decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_discount"`
	TotalTax      decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_tax"`
	FinalTotal    decimal.Decimal `gorm:"type:decimal(12,2)" json:"final_total"`
	SoldAt        time.Time       `gorm:"index" json:"sold_at"`
	CreatedAt     time.Time       `json:"created_at"`

	Items []SaleItem `gorm:"foreignKey:SaleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// SaleItem is one finalized line. Quantity carries the unit count for
// unit-priced lines and the weight in kilograms for weight-priced ones;
// UnitPrice carries the unit price or the rate per kilogram accordingly.
type SaleItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SaleID      uint            `gorm:"not null;index" json:"sale_id"`
	ProductID   uint            `gorm:"not null;index" json:"product_id"`
	ProductSKU  string          `gorm:"size:100" json:"product_sku"`
	ProductName string          `gorm:"size:255" json:"product_name"`
	PricingMode string          `gorm:"not null;size:10" json:"pricing_mode"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,3)" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_price"`
	Discount    decimal.Decimal `gorm:"type:decimal(12,2)" json:"discount"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(12,2)" json:"tax_amount"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(12,2)" json:"line_total"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName overrides
func (Sale) TableName() string     { return "sales" }
func (SaleItem) TableName() string { return "sale_items" }
