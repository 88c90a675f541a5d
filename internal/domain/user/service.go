// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/pos-backend/internal/config"
	"gorm.io/gorm"
)

// Service handles user, device and customer records
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new user service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateCustomerRequest represents a customer creation request
type CreateCustomerRequest struct {
	ShopID uint   `json:"shop_id" binding:"required"`
	Name   string `json:"name" binding:"required"`
	Email  string `json:"email" binding:"omitempty,email"`
	Phone  string `json:"phone"`
}

// RegisterDeviceRequest represents a terminal registration request
type RegisterDeviceRequest struct {
	ShopID     uint   `json:"shop_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Identifier string `json:"identifier" binding:"required"`
}

// User loads an active user by id
func (s *Service) User(ctx context.Context, id uint) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

// Device loads an active device by id
func (s *Service) Device(ctx context.Context, id uint) (*Device, error) {
	var d Device
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("device %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load device: %w", err)
	}
	return &d, nil
}

// RegisterDevice creates a terminal record, rejecting duplicate identifiers
func (s *Service) RegisterDevice(ctx context.Context, req *RegisterDeviceRequest) (*Device, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Device{}).
		Where("identifier = ?", req.Identifier).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check device identifier: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("device identifier %q already registered", req.Identifier)
	}

	d := &Device{
		ShopID:     req.ShopID,
		Name:       req.Name,
		Identifier: req.Identifier,
		IsActive:   true,
	}
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}
	return d, nil
}

// TouchDevice records that a terminal was seen
func (s *Service) TouchDevice(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&Device{}).
		Where("id = ?", id).
		Update("last_seen_at", now).Error
}

// Customer loads a customer by id
func (s *Service) Customer(ctx context.Context, id uint) (*Customer, error) {
	var c Customer
	err := s.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("customer %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	return &c, nil
}

// CreateCustomer creates a customer record
func (s *Service) CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*Customer, error) {
	c := &Customer{
		ShopID: req.ShopID,
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return c, nil
}

// SearchCustomers finds customers of a shop by name or phone fragment
func (s *Service) SearchCustomers(ctx context.Context, shopID uint, query string) ([]Customer, error) {
	var customers []Customer
	err := s.db.WithContext(ctx).
		Where("shop_id = ? AND (name ILIKE ? OR phone LIKE ?)", shopID, "%"+query+"%", "%"+query+"%").
		Limit(25).
		Find(&customers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search customers: %w", err)
	}
	return customers, nil
}
