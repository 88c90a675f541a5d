package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/your-org/pos-backend/internal/domain/product"
)

func weighted(rate string, precision int32) *product.Product {
	r := decimal.RequireFromString(rate)
	return &product.Product{
		SKU:             "SKU-APPLES",
		Name:            "Apples",
		IsWeightBased:   true,
		RatePerKilogram: &r,
		WeightPrecision: precision,
	}
}

func TestValidateWeight(t *testing.T) {
	svc := NewWeightService()

	tests := []struct {
		name    string
		weight  string
		product *product.Product
		wantErr bool
	}{
		{"valid weight", "1.5", weighted("20.00", 3), false},
		{"zero weight", "0", weighted("20.00", 3), true},
		{"negative weight", "-0.2", weighted("20.00", 3), true},
		{"absurd weight", "1500", weighted("20.00", 3), true},
		{"unit product", "1.5", &product.Product{SKU: "SKU-CAN", UnitPrice: decimal.RequireFromString("2.50")}, true},
		{"missing rate", "1.5", &product.Product{SKU: "SKU-NORATE", IsWeightBased: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ValidateWeight(decimal.RequireFromString(tt.weight), tt.product)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateWeight(%s) error = %v, wantErr %v", tt.weight, err, tt.wantErr)
			}
		})
	}
}

func TestRoundWeight(t *testing.T) {
	svc := NewWeightService()

	tests := []struct {
		weight    string
		precision int32
		want      string
	}{
		{"1.2345", 3, "1.235"},
		{"1.2344", 3, "1.234"},
		{"0.5555", 2, "0.56"},
		{"2.5", 0, "3"},
	}

	for _, tt := range tests {
		got := svc.RoundWeight(decimal.RequireFromString(tt.weight), tt.precision)
		if got.String() != tt.want {
			t.Errorf("RoundWeight(%s, %d) = %s, want %s", tt.weight, tt.precision, got, tt.want)
		}
	}
}

func TestCalculatePrice(t *testing.T) {
	svc := NewWeightService()

	price := svc.CalculatePrice(decimal.RequireFromString("20.00"), decimal.RequireFromString("1.5"))
	if price.String() != "30" {
		t.Fatalf("expected 30, got %s", price)
	}

	// half away from zero, not banker's rounding
	price = svc.CalculatePrice(decimal.RequireFromString("1.00"), decimal.RequireFromString("0.125"))
	if price.String() != "0.13" {
		t.Fatalf("expected 0.13, got %s", price)
	}
}
