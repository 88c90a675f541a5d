// internal/domain/session/pricing.go
package session

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// PricingMode identifies how a line item is priced
type PricingMode string

const (
	PricingModeUnit   PricingMode = "unit"
	PricingModeWeight PricingMode = "weight"
)

// Pricing is the tagged variant carried by a line item. A line is either
// unit-priced or weight-priced, never both; the referenced product decides
// which variant is legal.
type Pricing interface {
	Mode() PricingMode
	// GrossSubtotal returns the pre-discount line amount, unrounded
	GrossSubtotal() decimal.Decimal
}

// UnitPricing prices a line as quantity times unit price
type UnitPricing struct {
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (p UnitPricing) Mode() PricingMode { return PricingModeUnit }

func (p UnitPricing) GrossSubtotal() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// WeightPricing prices a line as weight in kilograms times rate per kilogram
type WeightPricing struct {
	Weight          decimal.Decimal `json:"weight"`
	RatePerKilogram decimal.Decimal `json:"rate_per_kilogram"`
}

func (p WeightPricing) Mode() PricingMode { return PricingModeWeight }

func (p WeightPricing) GrossSubtotal() decimal.Decimal {
	return p.Weight.Mul(p.RatePerKilogram)
}

// PricingColumn stores a Pricing variant as a single tagged JSON column
type PricingColumn struct {
	Pricing Pricing
}

// pricingEnvelope is the persisted wire form of a Pricing variant
type pricingEnvelope struct {
	Mode            PricingMode      `json:"mode"`
	Quantity        *int             `json:"quantity,omitempty"`
	UnitPrice       *decimal.Decimal `json:"unit_price,omitempty"`
	Weight          *decimal.Decimal `json:"weight,omitempty"`
	RatePerKilogram *decimal.Decimal `json:"rate_per_kilogram,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (c PricingColumn) MarshalJSON() ([]byte, error) {
	if c.Pricing == nil {
		return []byte("null"), nil
	}

	env := pricingEnvelope{Mode: c.Pricing.Mode()}
	switch p := c.Pricing.(type) {
	case UnitPricing:
		env.Quantity = &p.Quantity
		env.UnitPrice = &p.UnitPrice
	case WeightPricing:
		env.Weight = &p.Weight
		env.RatePerKilogram = &p.RatePerKilogram
	default:
		return nil, fmt.Errorf("unknown pricing variant %T", c.Pricing)
	}

	return json.Marshal(env)
}

// UnmarshalJSON implements json.Unmarshaler
func (c *PricingColumn) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		c.Pricing = nil
		return nil
	}

	var env pricingEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	switch env.Mode {
	case PricingModeUnit:
		if env.Quantity == nil || env.UnitPrice == nil {
			return fmt.Errorf("unit pricing requires quantity and unit_price")
		}
		c.Pricing = UnitPricing{Quantity: *env.Quantity, UnitPrice: *env.UnitPrice}
	case PricingModeWeight:
		if env.Weight == nil || env.RatePerKilogram == nil {
			return fmt.Errorf("weight pricing requires weight and rate_per_kilogram")
		}
		c.Pricing = WeightPricing{Weight: *env.Weight, RatePerKilogram: *env.RatePerKilogram}
	default:
		return fmt.Errorf("unknown pricing mode %q", env.Mode)
	}

	return nil
}

// Value implements driver.Valuer so the variant persists as a JSON column
func (c PricingColumn) Value() (driver.Value, error) {
	data, err := c.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (c *PricingColumn) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return c.UnmarshalJSON(v)
	case string:
		return c.UnmarshalJSON([]byte(v))
	case nil:
		c.Pricing = nil
		return nil
	default:
		return fmt.Errorf("unsupported pricing column type %T", value)
	}
}

// GormDataType tells GORM to map the column to JSONB
func (PricingColumn) GormDataType() string {
	return "jsonb"
}
