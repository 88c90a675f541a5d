// internal/domain/sale/service.go
package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/pos-backend/internal/config"
	"github.com/your-org/pos-backend/internal/domain/inventory"
	"github.com/your-org/pos-backend/internal/domain/session"
	"gorm.io/gorm"
)

// Service persists finalized sales and adjusts stock
type Service struct {
	db        *gorm.DB
	inventory *inventory.Service
	config    *config.Config
	logger    *logrus.Logger
}

// NewService creates a new sale service
func NewService(db *gorm.DB, inv *inventory.Service, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:        db,
		inventory: inv,
		config:    cfg,
		logger:    logger,
	}
}

// RecordSale writes the sale, its lines and the stock deductions in one
// transaction. Only unit-priced lines deduct counted stock; weight-priced
// lines are sold from bulk and not tracked per unit.
func (s *Service) RecordSale(ctx context.Context, rec *session.SaleRecord) (uint, error) {
	sl := &Sale{
		InvoiceNumber: rec.InvoiceNumber,
		ShopID:        rec.ShopID,
		UserID:        rec.UserID,
		DeviceID:      rec.DeviceID,
		CustomerID:    rec.CustomerID,
		PaymentMethod: rec.PaymentMethod,
		Subtotal:      rec.Calculation.Subtotal,
		TotalDiscount: rec.Calculation.TotalDiscount,
		TotalTax:      rec.Calculation.TotalTax,
		FinalTotal:    rec.Calculation.FinalTotal,
		SoldAt:        time.Now().UTC(),
	}

	deductions := make(map[uint]int)
	for _, item := range rec.Items {
		sl.Items = append(sl.Items, SaleItem{
			ProductID:   item.ProductID,
			ProductSKU:  item.ProductSKU,
			ProductName: item.ProductName,
			PricingMode: string(item.Mode),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			TaxAmount:   item.TaxAmount,
			LineTotal:   item.LineTotal,
		})
		if item.Mode == session.PricingModeUnit {
			deductions[item.ProductID] += int(item.Quantity.IntPart())
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sl).Error; err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}
		return s.inventory.DeductForSale(tx, rec.ShopID, rec.InvoiceNumber, deductions)
	})
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"sale_id": sl.ID,
		"invoice": sl.InvoiceNumber,
		"total":   sl.FinalTotal.String(),
	}).Info("sale recorded")

	return sl.ID, nil
}

// GetSale loads a sale with its lines
func (s *Service) GetSale(ctx context.Context, id uint) (*Sale, error) {
	var sl Sale
	err := s.db.WithContext(ctx).Preload("Items").First(&sl, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("sale %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}
	return &sl, nil
}

// GetSaleByInvoice loads a sale by its invoice number
func (s *Service) GetSaleByInvoice(ctx context.Context, invoice string) (*Sale, error) {
	var sl Sale
	err := s.db.WithContext(ctx).Preload("Items").
		Where("invoice_number = ?", invoice).First(&sl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("sale %q not found", invoice)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}
	return &sl, nil
}

// ListSales returns recent sales for a shop, newest first
func (s *Service) ListSales(ctx context.Context, shopID uint, limit int) ([]Sale, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var sales []Sale
	err := s.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("sold_at DESC").
		Limit(limit).
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, nil
}
