package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/your-org/pos-backend/internal/domain/pricing"
	"github.com/your-org/pos-backend/internal/domain/product"
)

// countingWeigher wraps the real weight service and records pricing calls
type countingWeigher struct {
	*pricing.WeightService
	priced int
}

func (w *countingWeigher) CalculatePrice(ratePerKilogram, weight decimal.Decimal) decimal.Decimal {
	w.priced++
	return w.WeightService.CalculatePrice(ratePerKilogram, weight)
}

func newTestSession() *Session {
	return &Session{ID: 1, ShopID: 1, State: StateActive, Calculation: ZeroCalculation()}
}

func TestMixedBasketTotals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := newTestSession()

	// 2 cans at 10.00 each plus 1.5 kg of apples at 20.00/kg, 10% tax
	if err := f.calc.AddUnitItem(ctx, sess, 1, 2); err != nil {
		t.Fatalf("AddUnitItem: %v", err)
	}
	if err := f.calc.AddWeightItem(ctx, sess, 2, mustDecimal("1.5")); err != nil {
		t.Fatalf("AddWeightItem: %v", err)
	}

	calc := sess.Calculation
	if !calc.Subtotal.Equal(mustDecimal("50.00")) {
		t.Errorf("subtotal = %s, want 50.00", calc.Subtotal)
	}
	if !calc.TotalDiscount.Equal(mustDecimal("0")) {
		t.Errorf("total discount = %s, want 0", calc.TotalDiscount)
	}
	if !calc.TotalTax.Equal(mustDecimal("5.00")) {
		t.Errorf("total tax = %s, want 5.00", calc.TotalTax)
	}
	if !calc.FinalTotal.Equal(mustDecimal("55.00")) {
		t.Errorf("final total = %s, want 55.00", calc.FinalTotal)
	}
}

func TestTotalsAlwaysReconcile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := newTestSession()

	if err := f.calc.AddUnitItem(ctx, sess, 3, 3); err != nil { // 3 x 4.99
		t.Fatalf("AddUnitItem: %v", err)
	}
	if err := f.calc.AddWeightItem(ctx, sess, 2, mustDecimal("0.333")); err != nil {
		t.Fatalf("AddWeightItem: %v", err)
	}

	sess.Items[0].ID = 10
	sess.Items[1].ID = 11
	if err := f.calc.UpdateDiscount(ctx, sess, 10, mustDecimal("1.50")); err != nil {
		t.Fatalf("UpdateDiscount: %v", err)
	}

	calc := sess.Calculation
	want := calc.Subtotal.Sub(calc.TotalDiscount).Add(calc.TotalTax)
	if !calc.FinalTotal.Equal(want) {
		t.Errorf("final total %s does not reconcile with %s", calc.FinalTotal, want)
	}
}

func TestAddUnitItemMergesExistingLine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := newTestSession()

	if err := f.calc.AddUnitItem(ctx, sess, 1, 2); err != nil {
		t.Fatalf("AddUnitItem: %v", err)
	}
	if err := f.calc.AddUnitItem(ctx, sess, 1, 3); err != nil {
		t.Fatalf("AddUnitItem: %v", err)
	}

	if len(sess.Items) != 1 {
		t.Fatalf("expected a single merged line, got %d", len(sess.Items))
	}
	up := sess.Items[0].Pricing.Pricing.(UnitPricing)
	if up.Quantity != 5 {
		t.Errorf("merged quantity = %d, want 5", up.Quantity)
	}
	if !sess.Calculation.Subtotal.Equal(mustDecimal("50.00")) {
		t.Errorf("subtotal = %s, want 50.00", sess.Calculation.Subtotal)
	}
}

func TestAddWeightItemReplacesReading(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := newTestSession()

	if err := f.calc.AddWeightItem(ctx, sess, 2, mustDecimal("1.0")); err != nil {
		t.Fatalf("AddWeightItem: %v", err)
	}
	if err := f.calc.AddWeightItem(ctx, sess, 2, mustDecimal("2.5")); err != nil {
		t.Fatalf("AddWeightItem: %v", err)
	}

	if len(sess.Items) != 1 {
		t.Fatalf("expected a single line, got %d", len(sess.Items))
	}
	wp := sess.Items[0].Pricing.Pricing.(WeightPricing)
	if !wp.Weight.Equal(mustDecimal("2.5")) {
		t.Errorf("weight = %s, want 2.5", wp.Weight)
	}
	if !sess.Calculation.Subtotal.Equal(mustDecimal("50.00")) {
		t.Errorf("subtotal = %s, want 50.00", sess.Calculation.Subtotal)
	}
}

func TestEntryPointModeMismatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := newTestSession()

	var verr *ValidationError

	// weight-based product through the unit entry point
	err := f.calc.AddUnitItem(ctx, sess, 2, 1)
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// unit product through the weight entry point
	err = f.calc.AddWeightItem(ctx, sess, 1, mustDecimal("1.0"))
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	if len(sess.Items) != 0 {
		t.Errorf("rejected adds must not leave lines behind, got %d", len(sess.Items))
	}
}

func TestWeightIsRoundedToProductPrecision(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := newTestSession()

	if err := f.calc.AddWeightItem(ctx, sess, 2, mustDecimal("1.23456")); err != nil {
		t.Fatalf("AddWeightItem: %v", err)
	}

	wp := sess.Items[0].Pricing.Pricing.(WeightPricing)
	if !wp.Weight.Equal(mustDecimal("1.235")) {
		t.Errorf("stored weight = %s, want 1.235", wp.Weight)
	}
}

func TestWeightLinesPricedThroughWeigher(t *testing.T) {
	ctx := context.Background()
	sess := newTestSession()

	catalog := &fakeCatalog{products: map[uint]*product.Product{
		2: weightProduct(2, "SKU-APPLES", "20.00"),
	}}
	weigher := &countingWeigher{WeightService: pricing.NewWeightService()}
	calc := NewCalculator(catalog, &fakeStock{}, &fakeTaxes{rate: mustDecimal("0.10")}, weigher, testLogger())

	if err := calc.AddWeightItem(ctx, sess, 2, mustDecimal("1.5")); err != nil {
		t.Fatalf("AddWeightItem: %v", err)
	}

	if weigher.priced == 0 {
		t.Fatal("expected the weigher to price the weight line")
	}
	if !sess.Calculation.Subtotal.Equal(mustDecimal("30.00")) {
		t.Errorf("subtotal = %s, want 30.00", sess.Calculation.Subtotal)
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := newTestSession()

	if err := f.calc.AddUnitItem(ctx, sess, 1, 2); err != nil {
		t.Fatalf("AddUnitItem: %v", err)
	}
	sess.Items[0].ID = 10

	if err := f.calc.UpdateQuantity(ctx, sess, 10, 0); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}

	if len(sess.SurvivingItems()) != 0 {
		t.Error("expected line to be removed")
	}
	if !sess.Items[0].Removed || sess.Items[0].RemovedAt == nil {
		t.Error("expected a tombstone, not a hard delete")
	}
	if !sess.Calculation.FinalTotal.Equal(mustDecimal("0")) {
		t.Errorf("final total = %s, want 0", sess.Calculation.FinalTotal)
	}
}

func TestUpdateQuantityNegativeRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := newTestSession()

	if err := f.calc.AddUnitItem(ctx, sess, 1, 2); err != nil {
		t.Fatalf("AddUnitItem: %v", err)
	}
	sess.Items[0].ID = 10

	var verr *ValidationError
	if err := f.calc.UpdateQuantity(ctx, sess, 10, -1); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDiscountBounds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := newTestSession()

	if err := f.calc.AddUnitItem(ctx, sess, 1, 2); err != nil { // gross 20.00
		t.Fatalf("AddUnitItem: %v", err)
	}
	sess.Items[0].ID = 10

	var verr *ValidationError
	if err := f.calc.UpdateDiscount(ctx, sess, 10, mustDecimal("-1")); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for negative discount, got %v", err)
	}
	if err := f.calc.UpdateDiscount(ctx, sess, 10, mustDecimal("20.01")); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for discount above line amount, got %v", err)
	}

	if err := f.calc.UpdateDiscount(ctx, sess, 10, mustDecimal("5.00")); err != nil {
		t.Fatalf("UpdateDiscount: %v", err)
	}
	// tax applies to the discounted amount: (20 - 5) * 10% = 1.50
	if !sess.Calculation.TotalTax.Equal(mustDecimal("1.50")) {
		t.Errorf("total tax = %s, want 1.50", sess.Calculation.TotalTax)
	}
	if !sess.Calculation.FinalTotal.Equal(mustDecimal("16.50")) {
		t.Errorf("final total = %s, want 16.50", sess.Calculation.FinalTotal)
	}
}

func TestRemovedLinesExcludedFromTotals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := newTestSession()

	if err := f.calc.AddUnitItem(ctx, sess, 1, 2); err != nil {
		t.Fatalf("AddUnitItem: %v", err)
	}
	if err := f.calc.AddUnitItem(ctx, sess, 3, 1); err != nil {
		t.Fatalf("AddUnitItem: %v", err)
	}
	sess.Items[0].ID = 10
	sess.Items[1].ID = 11

	if err := f.calc.RemoveItem(ctx, sess, 10); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}

	if !sess.Calculation.Subtotal.Equal(mustDecimal("4.99")) {
		t.Errorf("subtotal = %s, want 4.99", sess.Calculation.Subtotal)
	}

	// adding the product again starts a fresh line, not a resurrection
	if err := f.calc.AddUnitItem(ctx, sess, 1, 1); err != nil {
		t.Fatalf("AddUnitItem: %v", err)
	}
	if len(sess.Items) != 3 {
		t.Errorf("expected 3 rows with one tombstone, got %d", len(sess.Items))
	}
	if len(sess.SurvivingItems()) != 2 {
		t.Errorf("expected 2 surviving lines, got %d", len(sess.SurvivingItems()))
	}
}

func TestStockValidationFailsOpen(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := newTestSession()

	if err := f.calc.AddUnitItem(ctx, sess, 1, 2); err != nil {
		t.Fatalf("AddUnitItem: %v", err)
	}

	f.stock.err = fmt.Errorf("stock backend unreachable")
	warnings, shortfalls := f.calc.ValidateStock(ctx, sess)
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if len(shortfalls) != 0 {
		t.Fatalf("unreachable stock must not block, got %d shortfalls", len(shortfalls))
	}
}

func TestStockValidationConfirmedShortfall(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := newTestSession()

	if err := f.calc.AddUnitItem(ctx, sess, 1, 200); err != nil {
		t.Fatalf("AddUnitItem: %v", err)
	}

	warnings, shortfalls := f.calc.ValidateStock(ctx, sess)
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %d", len(warnings))
	}
	if len(shortfalls) != 1 {
		t.Fatalf("expected 1 shortfall, got %d", len(shortfalls))
	}
	var ise *InsufficientStockError
	if !errors.As(shortfalls[0], &ise) {
		t.Fatalf("expected InsufficientStockError, got %v", shortfalls[0])
	}
	if ise.Available != 100 || ise.Requested != 200 {
		t.Errorf("unexpected shortfall payload: %+v", ise)
	}
}
