// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/pos-backend/internal/config"
	"gorm.io/gorm"
)

// Service handles product catalog business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new product service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateProductRequest represents product creation data
type CreateProductRequest struct {
	ShopID          uint             `json:"shop_id" binding:"required"`
	SKU             string           `json:"sku" binding:"required"`
	Name            string           `json:"name" binding:"required"`
	Description     string           `json:"description"`
	CategoryID      *uint            `json:"category_id"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	IsWeightBased   bool             `json:"is_weight_based"`
	RatePerKilogram *decimal.Decimal `json:"rate_per_kilogram"`
	WeightPrecision int32            `json:"weight_precision"`
	TrackQuantity   bool             `json:"track_quantity"`
}

// Product looks up an active product by id
func (s *Service) Product(ctx context.Context, id uint) (*Product, error) {
	var prod Product
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&prod).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d not found or inactive", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}
	return &prod, nil
}

// ProductBySKU looks up an active product by SKU
func (s *Service) ProductBySKU(ctx context.Context, sku string) (*Product, error) {
	var prod Product
	err := s.db.WithContext(ctx).Where("sku = ? AND is_active = ?", sku, true).First(&prod).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %q not found or inactive", sku)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}
	return &prod, nil
}

// ListProducts lists active products for a shop
func (s *Service) ListProducts(ctx context.Context, shopID uint) ([]Product, error) {
	var products []Product
	err := s.db.WithContext(ctx).
		Where("shop_id = ? AND is_active = ?", shopID, true).
		Order("name").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// CreateProduct creates a new catalog entry
func (s *Service) CreateProduct(ctx context.Context, req *CreateProductRequest) (*Product, error) {
	var existing Product
	if err := s.db.WithContext(ctx).Where("sku = ?", req.SKU).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("product with SKU %q already exists", req.SKU)
	}

	if req.IsWeightBased && (req.RatePerKilogram == nil || !req.RatePerKilogram.IsPositive()) {
		return nil, fmt.Errorf("weight-based product requires a positive rate per kilogram")
	}
	if !req.IsWeightBased && req.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("unit price cannot be negative")
	}

	precision := req.WeightPrecision
	if precision <= 0 {
		precision = 3
	}

	prod := &Product{
		ShopID:          req.ShopID,
		SKU:             req.SKU,
		Name:            req.Name,
		Description:     req.Description,
		CategoryID:      req.CategoryID,
		UnitPrice:       req.UnitPrice,
		IsWeightBased:   req.IsWeightBased,
		RatePerKilogram: req.RatePerKilogram,
		WeightPrecision: precision,
		TrackQuantity:   req.TrackQuantity,
		IsActive:        true,
	}

	if err := s.db.WithContext(ctx).Create(prod).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return prod, nil
}
