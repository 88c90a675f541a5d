// internal/domain/session/calculator.go
package session

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pos-backend/internal/domain/product"
)

// Catalog resolves product records for item entry
type Catalog interface {
	Product(ctx context.Context, id uint) (*product.Product, error)
}

// StockLevels reports on-hand quantity for a product. An error from the
// stock backend is advisory, not blocking.
type StockLevels interface {
	OnHand(ctx context.Context, productID uint) (int, error)
}

// TaxRates resolves the tax rate configured for a shop
type TaxRates interface {
	RateFor(ctx context.Context, shopID uint) (decimal.Decimal, error)
}

// WeightPricer validates, rounds and prices scale readings
type WeightPricer interface {
	ValidateWeight(weight decimal.Decimal, p *product.Product) error
	RoundWeight(weight decimal.Decimal, precision int32) decimal.Decimal
	CalculatePrice(ratePerKilogram, weight decimal.Decimal) decimal.Decimal
}

// StockWarning reports stock that could not be confirmed sufficient during
// validation. Warnings never block a sale.
type StockWarning struct {
	ProductID uint   `json:"product_id"`
	Message   string `json:"message"`
}

// Calculator mutates a session's line items and recomputes its totals. Every
// entry point ends with a full recalculation; partial totals are never
// persisted. Callers hold the session lock.
type Calculator struct {
	catalog Catalog
	stock   StockLevels
	taxes   TaxRates
	weigher WeightPricer
	logger  *logrus.Logger
}

// NewCalculator creates a new pricing calculator
func NewCalculator(catalog Catalog, stock StockLevels, taxes TaxRates, weigher WeightPricer, logger *logrus.Logger) *Calculator {
	return &Calculator{
		catalog: catalog,
		stock:   stock,
		taxes:   taxes,
		weigher: weigher,
		logger:  logger,
	}
}

// AddUnitItem adds a unit-priced product to the session. Adding a product
// that already has a surviving line merges into it by incrementing the
// quantity instead of creating a duplicate line.
func (c *Calculator) AddUnitItem(ctx context.Context, sess *Session, productID uint, quantity int) error {
	if quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	p, err := c.catalog.Product(ctx, productID)
	if err != nil {
		return &NotFoundError{Resource: "product", ID: productID}
	}
	if p.IsWeightBased {
		return &ValidationError{Field: "product_id", Reason: "product is weight-based, use the weight entry point"}
	}

	if existing := sess.FindItemByProduct(productID); existing != nil {
		up, ok := existing.Pricing.Pricing.(UnitPricing)
		if !ok {
			return &ValidationError{Field: "product_id", Reason: "existing line is not unit-priced"}
		}
		up.Quantity += quantity
		existing.Pricing.Pricing = up
	} else {
		sess.Items = append(sess.Items, LineItem{
			SessionID:   sess.ID,
			ProductID:   p.ID,
			ProductSKU:  p.SKU,
			ProductName: p.Name,
			Pricing:     PricingColumn{Pricing: UnitPricing{Quantity: quantity, UnitPrice: p.UnitPrice}},
			Discount:    decimal.Zero,
		})
	}

	return c.Recalculate(ctx, sess)
}

// AddWeightItem adds a weight-priced product to the session. The weight is
// validated and rounded to the product's configured precision before
// pricing. A repeated add for the same product replaces the recorded weight
// with the new reading.
func (c *Calculator) AddWeightItem(ctx context.Context, sess *Session, productID uint, weight decimal.Decimal) error {
	p, err := c.catalog.Product(ctx, productID)
	if err != nil {
		return &NotFoundError{Resource: "product", ID: productID}
	}
	if !p.IsWeightBased {
		return &ValidationError{Field: "product_id", Reason: "product is unit-priced, use the unit entry point"}
	}
	if err := c.weigher.ValidateWeight(weight, p); err != nil {
		return &ValidationError{Field: "weight", Reason: err.Error()}
	}

	rounded := c.weigher.RoundWeight(weight, p.WeightPrecision)
	pricing := WeightPricing{Weight: rounded, RatePerKilogram: *p.RatePerKilogram}

	if existing := sess.FindItemByProduct(productID); existing != nil {
		if existing.Pricing.Pricing.Mode() != PricingModeWeight {
			return &ValidationError{Field: "product_id", Reason: "existing line is not weight-priced"}
		}
		existing.Pricing.Pricing = pricing
	} else {
		sess.Items = append(sess.Items, LineItem{
			SessionID:   sess.ID,
			ProductID:   p.ID,
			ProductSKU:  p.SKU,
			ProductName: p.Name,
			Pricing:     PricingColumn{Pricing: pricing},
			Discount:    decimal.Zero,
		})
	}

	return c.Recalculate(ctx, sess)
}

// UpdateQuantity changes the quantity of a unit-priced line. Quantity zero
// removes the line; negative quantities are rejected.
func (c *Calculator) UpdateQuantity(ctx context.Context, sess *Session, itemID uint, quantity int) error {
	if quantity < 0 {
		return &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	if quantity == 0 {
		return c.RemoveItem(ctx, sess, itemID)
	}

	item := sess.FindItem(itemID)
	if item == nil {
		return &NotFoundError{Resource: "item", ID: itemID}
	}
	up, ok := item.Pricing.Pricing.(UnitPricing)
	if !ok {
		return &ValidationError{Field: "item_id", Reason: "line is weight-priced, update the weight instead"}
	}
	up.Quantity = quantity
	item.Pricing.Pricing = up

	return c.Recalculate(ctx, sess)
}

// UpdateWeight replaces the weight of a weight-priced line with a new scale
// reading
func (c *Calculator) UpdateWeight(ctx context.Context, sess *Session, itemID uint, weight decimal.Decimal) error {
	item := sess.FindItem(itemID)
	if item == nil {
		return &NotFoundError{Resource: "item", ID: itemID}
	}
	wp, ok := item.Pricing.Pricing.(WeightPricing)
	if !ok {
		return &ValidationError{Field: "item_id", Reason: "line is unit-priced, update the quantity instead"}
	}

	p, err := c.catalog.Product(ctx, item.ProductID)
	if err != nil {
		return &NotFoundError{Resource: "product", ID: item.ProductID}
	}
	if err := c.weigher.ValidateWeight(weight, p); err != nil {
		return &ValidationError{Field: "weight", Reason: err.Error()}
	}

	wp.Weight = c.weigher.RoundWeight(weight, p.WeightPrecision)
	item.Pricing.Pricing = wp

	return c.Recalculate(ctx, sess)
}

// UpdateDiscount sets a fixed discount amount on a line. The discount must
// not be negative or exceed the gross line amount.
func (c *Calculator) UpdateDiscount(ctx context.Context, sess *Session, itemID uint, discount decimal.Decimal) error {
	item := sess.FindItem(itemID)
	if item == nil {
		return &NotFoundError{Resource: "item", ID: itemID}
	}
	if discount.IsNegative() {
		return &ValidationError{Field: "discount", Reason: "must not be negative"}
	}
	gross := c.lineGross(item)
	if discount.GreaterThan(gross) {
		return &ValidationError{Field: "discount", Reason: "must not exceed the line amount"}
	}
	item.Discount = roundMoney(discount)

	return c.Recalculate(ctx, sess)
}

// RemoveItem tombstones a line. The row stays for audit; totals exclude it.
func (c *Calculator) RemoveItem(ctx context.Context, sess *Session, itemID uint) error {
	item := sess.FindItem(itemID)
	if item == nil {
		return &NotFoundError{Resource: "item", ID: itemID}
	}
	item.Tombstone()

	return c.Recalculate(ctx, sess)
}

// Recalculate recomputes every surviving line and the session totals from
// scratch. Line amounts round to 2 decimal places half away from zero before
// they enter the sums, so the totals always add up exactly:
// final = subtotal - total discount + total tax.
func (c *Calculator) Recalculate(ctx context.Context, sess *Session) error {
	rate, err := c.taxes.RateFor(ctx, sess.ShopID)
	if err != nil {
		return &PersistenceError{Op: "tax rate lookup", Err: err}
	}

	subtotal := decimal.Zero
	totalDiscount := decimal.Zero
	totalTax := decimal.Zero

	for _, item := range sess.SurvivingItems() {
		gross := c.lineGross(item)
		discount := roundMoney(item.Discount)
		net := roundMoney(gross.Sub(discount))
		tax := roundMoney(net.Mul(rate))

		item.Discount = discount
		item.TaxAmount = tax
		item.LineTotal = net

		subtotal = subtotal.Add(gross)
		totalDiscount = totalDiscount.Add(discount)
		totalTax = totalTax.Add(tax)
	}

	sess.Calculation = Calculation{
		Subtotal:      subtotal,
		TotalDiscount: totalDiscount,
		TotalTax:      totalTax,
		FinalTotal:    subtotal.Sub(totalDiscount).Add(totalTax),
	}

	return nil
}

// lineGross computes the rounded pre-discount amount for a line. Weight lines
// price through the weigher; unit lines round the quantity-times-price amount
// to 2 decimal places half away from zero.
func (c *Calculator) lineGross(item *LineItem) decimal.Decimal {
	if p, ok := item.Pricing.Pricing.(WeightPricing); ok {
		return c.weigher.CalculatePrice(p.RatePerKilogram, p.Weight)
	}
	return roundMoney(item.Pricing.Pricing.GrossSubtotal())
}

// ValidateStock checks each surviving unit-priced line against on-hand
// stock. The check fails open: when the stock backend cannot answer, the
// line gets a warning and the sale proceeds. Only a confirmed shortfall
// produces an InsufficientStockError in the report.
func (c *Calculator) ValidateStock(ctx context.Context, sess *Session) ([]StockWarning, []error) {
	var warnings []StockWarning
	var shortfalls []error

	for _, item := range sess.SurvivingItems() {
		up, ok := item.Pricing.Pricing.(UnitPricing)
		if !ok {
			continue
		}

		available, err := c.stock.OnHand(ctx, item.ProductID)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"product_id": item.ProductID,
				"error":      err.Error(),
			}).Warn("stock level unavailable, allowing sale")
			warnings = append(warnings, StockWarning{
				ProductID: item.ProductID,
				Message:   "stock level could not be verified",
			})
			continue
		}

		if available < up.Quantity {
			shortfalls = append(shortfalls, &InsufficientStockError{
				ProductID: item.ProductID,
				Available: available,
				Requested: up.Quantity,
			})
		}
	}

	return warnings, shortfalls
}

// normalizeTabName trims surrounding whitespace from a tab name
func normalizeTabName(name string) string {
	return strings.TrimSpace(name)
}
