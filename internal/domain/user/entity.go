// internal/domain/user/entity.go
package user

import (
	"time"

	"gorm.io/gorm"
)

// User is a cashier or manager operating the POS
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ShopID    uint           `gorm:"not null;index" json:"shop_id"`
	Name      string         `gorm:"not null;size:255" json:"name"`
	Email     string         `gorm:"uniqueIndex;size:255" json:"email"`
	Role      string         `gorm:"not null;size:20;default:'cashier'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Device is a registered POS terminal. Session quotas are scoped to the
// (user, device) pair, so every terminal must be registered.
type Device struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ShopID     uint           `gorm:"not null;index" json:"shop_id"`
	Name       string         `gorm:"not null;size:100" json:"name"`
	Identifier string         `gorm:"uniqueIndex;not null;size:100" json:"identifier"`
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	LastSeenAt *time.Time     `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// Customer is an optional buyer attached to a session for loyalty or
// invoicing purposes
type Customer struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ShopID    uint           `gorm:"not null;index" json:"shop_id"`
	Name      string         `gorm:"not null;size:255" json:"name"`
	Email     string         `gorm:"size:255" json:"email"`
	Phone     string         `gorm:"size:50" json:"phone"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (User) TableName() string     { return "users" }
func (Device) TableName() string   { return "devices" }
func (Customer) TableName() string { return "customers" }
