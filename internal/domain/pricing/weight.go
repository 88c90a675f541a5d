// internal/domain/pricing/weight.go
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/pos-backend/internal/domain/product"
)

// maxWeightKilograms is the sanity bound for a single scale reading
var maxWeightKilograms = decimal.NewFromInt(1000)

// WeightService implements weight validation, rounding and pricing for
// weight-based products
type WeightService struct {
	maxWeight decimal.Decimal
}

// NewWeightService creates a new weight pricing service
func NewWeightService() *WeightService {
	return &WeightService{maxWeight: maxWeightKilograms}
}

// ValidateWeight checks a weight reading against positivity, sanity bounds
// and the product's pricing mode
func (s *WeightService) ValidateWeight(weight decimal.Decimal, p *product.Product) error {
	if !p.IsWeightBased {
		return fmt.Errorf("product %q is not weight-based", p.SKU)
	}
	if !p.HasRate() {
		return fmt.Errorf("product %q has no rate per kilogram configured", p.SKU)
	}
	if !weight.IsPositive() {
		return fmt.Errorf("weight must be positive, got %s", weight)
	}
	if weight.GreaterThan(s.maxWeight) {
		return fmt.Errorf("weight %s kg exceeds the maximum of %s kg", weight, s.maxWeight)
	}
	return nil
}

// RoundWeight rounds a weight to the given number of decimal places, half
// away from zero
func (s *WeightService) RoundWeight(weight decimal.Decimal, precision int32) decimal.Decimal {
	if precision < 0 {
		precision = 0
	}
	return weight.Round(precision)
}

// CalculatePrice prices a rounded weight against a rate per kilogram, rounded
// to 2 decimal places half away from zero
func (s *WeightService) CalculatePrice(ratePerKilogram, weight decimal.Decimal) decimal.Decimal {
	return weight.Mul(ratePerKilogram).Round(2)
}
