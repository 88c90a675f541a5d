// internal/domain/shop/service.go
package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/your-org/pos-backend/internal/config"
	"gorm.io/gorm"
)

// taxRateCacheTTL bounds how long a stale tax rate can be served
const taxRateCacheTTL = 10 * time.Minute

// Service handles shop and tax configuration logic
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
}

// NewService creates a new shop service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
	}
}

// Shop looks up an active shop by id
func (s *Service) Shop(ctx context.Context, id uint) (*Shop, error) {
	var sh Shop
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&sh).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("shop %d not found or inactive", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up shop: %w", err)
	}
	return &sh, nil
}

// RateFor returns the shop's configured tax rate, consulting the Redis
// cache first
func (s *Service) RateFor(ctx context.Context, shopID uint) (decimal.Decimal, error) {
	cacheKey := fmt.Sprintf("shop:tax_rate:%d", shopID)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			if rate, err := decimal.NewFromString(cached); err == nil {
				return rate, nil
			}
		}
	}

	sh, err := s.Shop(ctx, shopID)
	if err != nil {
		return decimal.Zero, err
	}

	if s.redisClient != nil {
		s.redisClient.Set(ctx, cacheKey, sh.TaxRate.String(), taxRateCacheTTL)
	}

	return sh.TaxRate, nil
}
