// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/pos-backend/internal/config"
	"gorm.io/gorm"
)

// Service handles stock tracking logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// AdjustStockRequest represents a manual stock adjustment
type AdjustStockRequest struct {
	ShopID    uint   `json:"shop_id" binding:"required"`
	ProductID uint   `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
	Note      string `json:"note"`
}

// OnHand returns the current quantity of a product. A missing stock row
// means the product is not tracked and reads as zero.
func (s *Service) OnHand(ctx context.Context, productID uint) (int, error) {
	var item StockItem
	err := s.db.WithContext(ctx).Where("product_id = ?", productID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read stock level: %w", err)
	}
	return item.Quantity, nil
}

// StockItem returns the stock row of a product at a shop
func (s *Service) StockItem(ctx context.Context, shopID, productID uint) (*StockItem, error) {
	var item StockItem
	err := s.db.WithContext(ctx).
		Where("shop_id = ? AND product_id = ?", shopID, productID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no stock record for product %d at shop %d", productID, shopID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stock item: %w", err)
	}
	return &item, nil
}

// ListMovements returns the most recent ledger entries for a product
func (s *Service) ListMovements(ctx context.Context, shopID, productID uint, limit int) ([]StockMovement, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var movements []StockMovement
	err := s.db.WithContext(ctx).
		Where("shop_id = ? AND product_id = ?", shopID, productID).
		Order("created_at DESC").
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	return movements, nil
}

// Adjust applies a signed manual adjustment and records the movement
func (s *Service) Adjust(ctx context.Context, req *AdjustStockRequest) (*StockItem, error) {
	var item StockItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.applyDelta(tx, req.ShopID, req.ProductID, req.Quantity); err != nil {
			return err
		}
		movement := StockMovement{
			ShopID:    req.ShopID,
			ProductID: req.ProductID,
			Type:      MovementAdjustment,
			Quantity:  req.Quantity,
			Note:      req.Note,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}
		return tx.Where("shop_id = ? AND product_id = ?", req.ShopID, req.ProductID).
			First(&item).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": req.ProductID,
		"delta":      req.Quantity,
	}).Info("stock adjusted")

	return &item, nil
}

// DeductForSale decrements stock for each sold line inside the caller's
// transaction and writes the matching ledger entries. Quantities may go
// negative: an oversell is recorded, not blocked, and flagged in the log.
func (s *Service) DeductForSale(tx *gorm.DB, shopID uint, reference string, lines map[uint]int) error {
	for productID, qty := range lines {
		if qty <= 0 {
			continue
		}
		if err := s.applyDelta(tx, shopID, productID, -qty); err != nil {
			return err
		}
		movement := StockMovement{
			ShopID:    shopID,
			ProductID: productID,
			Type:      MovementSale,
			Quantity:  -qty,
			Reference: reference,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return fmt.Errorf("failed to record sale movement: %w", err)
		}

		var item StockItem
		if err := tx.Where("shop_id = ? AND product_id = ?", shopID, productID).
			First(&item).Error; err == nil && item.Quantity < 0 {
			s.logger.WithFields(logrus.Fields{
				"product_id": productID,
				"quantity":   item.Quantity,
				"reference":  reference,
			}).Warn("stock went negative after sale")
		}
	}
	return nil
}

// applyDelta upserts the stock row and applies a signed quantity change
func (s *Service) applyDelta(tx *gorm.DB, shopID, productID uint, delta int) error {
	var item StockItem
	err := tx.Where("shop_id = ? AND product_id = ?", shopID, productID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		item = StockItem{ShopID: shopID, ProductID: productID, Quantity: delta}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("failed to create stock item: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load stock item: %w", err)
	}

	result := tx.Model(&StockItem{}).
		Where("id = ?", item.ID).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("failed to update stock quantity: %w", result.Error)
	}
	return nil
}
