// internal/domain/session/entity.go
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Session represents one independently editable sale-in-progress (a "tab")
// held by a user on a device. The relational columns are authoritative; the
// snapshot column is derived from them on every write.
type Session struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	TabName       string `gorm:"not null;size:100" json:"tab_name"`
	ShopID        uint   `gorm:"not null;index" json:"shop_id"`
	UserID        uint   `gorm:"not null;index:idx_sessions_owner" json:"user_id"`
	DeviceID      uint   `gorm:"not null;index:idx_sessions_owner" json:"device_id"`
	CustomerID    *uint  `gorm:"index" json:"customer_id,omitempty"`
	PaymentMethod string `gorm:"size:50" json:"payment_method"`
	State         State  `gorm:"not null;default:'active';index" json:"state"`
	SaleID        *uint  `gorm:"index" json:"sale_id,omitempty"`
	IsActive      bool   `gorm:"default:true;index" json:"is_active"`

	// SnapshotJSON is the serialized items+calculation snapshot kept for fast
	// reload. It is rewritten from the item rows by the store on every save
	// and is never accepted from callers.
	SnapshotJSON string `gorm:"type:jsonb" json:"-"`

	Calculation Calculation `gorm:"embedded;embeddedPrefix:calc_" json:"calculation"`

	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `gorm:"index" json:"last_activity_at"`

	Items []LineItem `gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// LineItem represents one product entry within a session. Removal is a soft
// delete: the tombstone row stays for audit but is excluded from totals.
type LineItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SessionID   uint            `gorm:"not null;index" json:"session_id"`
	ProductID   uint            `gorm:"not null;index" json:"product_id"`
	ProductSKU  string          `gorm:"size:100" json:"product_sku"`
	ProductName string          `gorm:"size:255" json:"product_name"`
	Pricing     PricingColumn   `gorm:"type:jsonb" json:"pricing"`
	Discount    decimal.Decimal `gorm:"type:decimal(12,2)" json:"discount"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(12,2)" json:"tax_amount"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(12,2)" json:"line_total"`
	Removed     bool            `gorm:"default:false" json:"removed"`
	RemovedAt   *time.Time      `json:"removed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Calculation is the derived totals snapshot of a session. It is recomputed
// on every mutation and never hand-edited.
type Calculation struct {
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2)" json:"subtotal"`
	TotalDiscount decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_discount"`
	TotalTax      decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_tax"`
	FinalTotal    decimal.Decimal `gorm:"type:decimal(12,2)" json:"final_total"`
}

// Snapshot is the serialized form of a session's items and totals
type Snapshot struct {
	SessionID   uint        `json:"session_id"`
	Items       []LineItem  `json:"items"`
	Calculation Calculation `json:"calculation"`
	TakenAt     time.Time   `json:"taken_at"`
}

// TableName overrides
func (Session) TableName() string  { return "sale_sessions" }
func (LineItem) TableName() string { return "sale_session_items" }

// ZeroCalculation returns an all-zero totals snapshot
func ZeroCalculation() Calculation {
	zero := decimal.Zero
	return Calculation{Subtotal: zero, TotalDiscount: zero, TotalTax: zero, FinalTotal: zero}
}

// Touch records activity on the session for the expiry sweep
func (s *Session) Touch() {
	s.LastActivityAt = time.Now().UTC()
}

// SurvivingItems returns the non-tombstoned items
func (s *Session) SurvivingItems() []*LineItem {
	items := make([]*LineItem, 0, len(s.Items))
	for i := range s.Items {
		if !s.Items[i].Removed {
			items = append(items, &s.Items[i])
		}
	}
	return items
}

// FindItem returns the non-tombstoned item with the given id
func (s *Session) FindItem(itemID uint) *LineItem {
	for i := range s.Items {
		if s.Items[i].ID == itemID && !s.Items[i].Removed {
			return &s.Items[i]
		}
	}
	return nil
}

// FindItemByProduct returns the non-tombstoned item referencing the product,
// used for idempotent merge on repeated adds
func (s *Session) FindItemByProduct(productID uint) *LineItem {
	for i := range s.Items {
		if s.Items[i].ProductID == productID && !s.Items[i].Removed {
			return &s.Items[i]
		}
	}
	return nil
}

// BuildSnapshot derives the serialized snapshot from the authoritative item
// rows and calculation. This is the only way a snapshot is produced.
func (s *Session) BuildSnapshot() (string, error) {
	snap := Snapshot{
		SessionID:   s.ID,
		Items:       s.Items,
		Calculation: s.Calculation,
		TakenAt:     time.Now().UTC(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to serialize session snapshot: %w", err)
	}
	return string(data), nil
}

// Tombstone soft-deletes the item
func (li *LineItem) Tombstone() {
	now := time.Now().UTC()
	li.Removed = true
	li.RemovedAt = &now
}

// roundMoney rounds to 2 decimal places, half away from zero. This rule is
// fixed for financial auditability; banker's rounding must not be used.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
