// internal/domain/session/manager.go
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pos-backend/internal/config"
	"github.com/your-org/pos-backend/internal/pkg/keylock"
)

// SaleItemRecord is one finalized line handed to the sale ledger
type SaleItemRecord struct {
	ProductID   uint
	ProductSKU  string
	ProductName string
	Mode        PricingMode
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TaxAmount   decimal.Decimal
	LineTotal   decimal.Decimal
}

// SaleRecord is a completed session handed to the sale ledger
type SaleRecord struct {
	ShopID        uint
	UserID        uint
	DeviceID      uint
	CustomerID    *uint
	InvoiceNumber string
	PaymentMethod string
	Calculation   Calculation
	Items         []SaleItemRecord
}

// SaleLedger persists finalized sales and adjusts stock
type SaleLedger interface {
	RecordSale(ctx context.Context, rec *SaleRecord) (uint, error)
}

// CreateSessionRequest represents a session creation request
type CreateSessionRequest struct {
	TabName    string `json:"tab_name" binding:"required"`
	ShopID     uint   `json:"shop_id" binding:"required"`
	UserID     uint   `json:"user_id" binding:"required"`
	DeviceID   uint   `json:"device_id" binding:"required"`
	CustomerID *uint  `json:"customer_id"`
}

// AddItemRequest represents an item entry request. Quantity is used for
// unit-priced products, Weight for weight-priced ones; the product decides
// which applies.
type AddItemRequest struct {
	ProductID uint             `json:"product_id" binding:"required"`
	Quantity  *int             `json:"quantity"`
	Weight    *decimal.Decimal `json:"weight"`
}

// UpdateItemRequest represents a line mutation request
type UpdateItemRequest struct {
	Quantity *int             `json:"quantity"`
	Weight   *decimal.Decimal `json:"weight"`
	Discount *decimal.Decimal `json:"discount"`
}

// UpdateSessionRequest renames a tab or changes checkout metadata
type UpdateSessionRequest struct {
	TabName       *string `json:"tab_name"`
	CustomerID    *uint   `json:"customer_id"`
	PaymentMethod *string `json:"payment_method"`
}

// CompleteSessionRequest finalizes a session into a sale
type CompleteSessionRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
}

// MutationResult is returned by every session mutation so callers always see
// the freshly recomputed totals
type MutationResult struct {
	Session     *Session    `json:"session"`
	Calculation Calculation `json:"calculation"`
}

// ValidationReport is the result of a non-mutating session check
type ValidationReport struct {
	SessionID     uint           `json:"session_id"`
	State         State          `json:"state"`
	Valid         bool           `json:"valid"`
	Problems      []string       `json:"problems,omitempty"`
	StockWarnings []StockWarning `json:"stock_warnings,omitempty"`
}

// Manager coordinates the lifecycle of sale sessions. Per-session mutations
// are serialized through a keyed mutex, and the quota count-then-insert
// sequence is serialized per (user, device) pair.
type Manager struct {
	store        Store
	calc         *Calculator
	catalog      Catalog
	sales        SaleLedger
	config       *config.Config
	logger       *logrus.Logger
	sessionLocks *keylock.KeyedMutex
	ownerLocks   *keylock.KeyedMutex
}

// NewManager creates a new session manager
func NewManager(store Store, calc *Calculator, catalog Catalog, sales SaleLedger, cfg *config.Config, logger *logrus.Logger) *Manager {
	return &Manager{
		store:        store,
		calc:         calc,
		catalog:      catalog,
		sales:        sales,
		config:       cfg,
		logger:       logger,
		sessionLocks: keylock.New(),
		ownerLocks:   keylock.New(),
	}
}

func sessionLockKey(id uint) string {
	return fmt.Sprintf("session:%d", id)
}

func ownerLockKey(userID, deviceID uint) string {
	return fmt.Sprintf("owner:%d:%d", userID, deviceID)
}

// CreateSession opens a new tab for a (user, device) pair. The concurrency
// cap and the tab name uniqueness check run under the owner lock so two
// concurrent creations cannot both pass the quota.
func (m *Manager) CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error) {
	tabName := normalizeTabName(req.TabName)
	if tabName == "" {
		return nil, &ValidationError{Field: "tab_name", Reason: "must not be empty"}
	}

	key := ownerLockKey(req.UserID, req.DeviceID)
	m.ownerLocks.Lock(key)
	defer m.ownerLocks.Unlock(key)

	inUse, err := m.store.TabNameInUse(ctx, req.UserID, req.DeviceID, tabName)
	if err != nil {
		return nil, err
	}
	if inUse {
		return nil, &DuplicateTabNameError{TabName: tabName}
	}

	count, err := m.store.CountActiveByOwner(ctx, req.UserID, req.DeviceID)
	if err != nil {
		return nil, err
	}
	limit := m.config.Session.MaxConcurrentSessions
	if count >= int64(limit) {
		return nil, &ConcurrencyLimitError{Limit: limit}
	}

	sess := &Session{
		TabName:        tabName,
		ShopID:         req.ShopID,
		UserID:         req.UserID,
		DeviceID:       req.DeviceID,
		CustomerID:     req.CustomerID,
		State:          StateActive,
		IsActive:       true,
		Calculation:    ZeroCalculation(),
		LastActivityAt: time.Now().UTC(),
	}

	if err := m.store.Create(ctx, sess); err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"tab_name":   sess.TabName,
		"user_id":    sess.UserID,
		"device_id":  sess.DeviceID,
	}).Info("session created")

	return sess, nil
}

// GetSession loads a session by id
func (m *Manager) GetSession(ctx context.Context, id uint) (*Session, error) {
	return m.store.Get(ctx, id)
}

// GetActiveSessions lists the open tabs of a (user, device) pair, most
// recently touched first
func (m *Manager) GetActiveSessions(ctx context.Context, userID, deviceID uint) ([]Session, error) {
	return m.store.ActiveByOwner(ctx, userID, deviceID)
}

// CachedSnapshot returns the fast-reload snapshot for a session when the
// store keeps one, or "" to signal a relational reload
func (m *Manager) CachedSnapshot(ctx context.Context, id uint) string {
	type snapshotCache interface {
		CachedSnapshot(ctx context.Context, id uint) string
	}
	if sc, ok := m.store.(snapshotCache); ok {
		return sc.CachedSnapshot(ctx, id)
	}
	return ""
}

// SwitchTo marks a session as the one being worked on by touching its
// activity timestamp. Switching to a terminated session fails.
func (m *Manager) SwitchTo(ctx context.Context, id uint) (*Session, error) {
	return m.mutate(ctx, id, func(sess *Session) error { return nil })
}

// UpdateSession renames the tab or changes checkout metadata. A rename holds
// the owner lock from the duplicate tab name check until the renamed session
// is saved, so a concurrent CreateSession cannot slip the same name into the
// gap between check and commit. The owner lock is always acquired before the
// session lock; no code path takes them in the other order.
func (m *Manager) UpdateSession(ctx context.Context, id uint, req *UpdateSessionRequest) (*MutationResult, error) {
	if req.TabName != nil {
		if normalizeTabName(*req.TabName) == "" {
			return nil, &ValidationError{Field: "tab_name", Reason: "must not be empty"}
		}
		// the owner of a session never changes, so this unlocked read is safe
		owner, err := m.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		key := ownerLockKey(owner.UserID, owner.DeviceID)
		m.ownerLocks.Lock(key)
		defer m.ownerLocks.Unlock(key)
	}

	sess, err := m.mutate(ctx, id, func(sess *Session) error {
		if req.TabName != nil {
			newName := normalizeTabName(*req.TabName)
			if !strings.EqualFold(newName, sess.TabName) {
				inUse, err := m.store.TabNameInUse(ctx, sess.UserID, sess.DeviceID, newName)
				if err != nil {
					return err
				}
				if inUse {
					return &DuplicateTabNameError{TabName: newName}
				}
			}
			sess.TabName = newName
		}
		if req.CustomerID != nil {
			sess.CustomerID = req.CustomerID
		}
		if req.PaymentMethod != nil {
			sess.PaymentMethod = *req.PaymentMethod
		}
		return m.calc.Recalculate(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	return &MutationResult{Session: sess, Calculation: sess.Calculation}, nil
}

// AddItem adds a product to the session, dispatching on the product's
// pricing mode. Weight-priced products require a weight; unit-priced
// products default to quantity 1.
func (m *Manager) AddItem(ctx context.Context, id uint, req *AddItemRequest) (*MutationResult, error) {
	p, err := m.catalog.Product(ctx, req.ProductID)
	if err != nil {
		return nil, &NotFoundError{Resource: "product", ID: req.ProductID}
	}

	sess, err := m.mutate(ctx, id, func(sess *Session) error {
		if p.IsWeightBased {
			if req.Weight == nil {
				return &ValidationError{Field: "weight", Reason: "required for weight-priced products"}
			}
			return m.calc.AddWeightItem(ctx, sess, req.ProductID, *req.Weight)
		}
		quantity := 1
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		return m.calc.AddUnitItem(ctx, sess, req.ProductID, quantity)
	})
	if err != nil {
		return nil, err
	}
	return &MutationResult{Session: sess, Calculation: sess.Calculation}, nil
}

// UpdateItem changes the quantity, weight or discount of a line. Quantity
// zero removes the line.
func (m *Manager) UpdateItem(ctx context.Context, id, itemID uint, req *UpdateItemRequest) (*MutationResult, error) {
	sess, err := m.mutate(ctx, id, func(sess *Session) error {
		if req.Quantity != nil {
			if err := m.calc.UpdateQuantity(ctx, sess, itemID, *req.Quantity); err != nil {
				return err
			}
		}
		if req.Weight != nil {
			if err := m.calc.UpdateWeight(ctx, sess, itemID, *req.Weight); err != nil {
				return err
			}
		}
		if req.Discount != nil {
			if err := m.calc.UpdateDiscount(ctx, sess, itemID, *req.Discount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &MutationResult{Session: sess, Calculation: sess.Calculation}, nil
}

// RemoveItem tombstones a line and recomputes the totals
func (m *Manager) RemoveItem(ctx context.Context, id, itemID uint) (*MutationResult, error) {
	sess, err := m.mutate(ctx, id, func(sess *Session) error {
		return m.calc.RemoveItem(ctx, sess, itemID)
	})
	if err != nil {
		return nil, err
	}
	return &MutationResult{Session: sess, Calculation: sess.Calculation}, nil
}

// RecalculateTotals forces a full recomputation, for example after a shop's
// tax rate changed
func (m *Manager) RecalculateTotals(ctx context.Context, id uint) (*MutationResult, error) {
	sess, err := m.mutate(ctx, id, func(sess *Session) error {
		return m.calc.Recalculate(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	return &MutationResult{Session: sess, Calculation: sess.Calculation}, nil
}

// Suspend parks a session so another tab can be worked on
func (m *Manager) Suspend(ctx context.Context, id uint) (*Session, error) {
	return m.transition(ctx, id, StateSuspended)
}

// Resume brings a suspended session back to active
func (m *Manager) Resume(ctx context.Context, id uint) (*Session, error) {
	return m.transition(ctx, id, StateActive)
}

// Close cancels a session. With saveState the current items and totals are
// persisted before the transition so the tab remains auditable.
func (m *Manager) Close(ctx context.Context, id uint, saveState bool) (*Session, error) {
	key := sessionLockKey(id)
	m.sessionLocks.Lock(key)
	defer m.sessionLocks.Unlock(key)

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if saveState {
		if err := m.calc.Recalculate(ctx, sess); err != nil {
			return nil, err
		}
	}
	if err := sess.TransitionTo(StateCancelled); err != nil {
		return nil, err
	}
	sess.Touch()
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	m.logger.WithField("session_id", sess.ID).Info("session cancelled")
	return sess, nil
}

// Complete finalizes a session into a sale: the totals are recomputed one
// last time, the sale is recorded with a generated invoice number, stock is
// adjusted by the ledger and the session reaches its terminal state.
func (m *Manager) Complete(ctx context.Context, id uint, req *CompleteSessionRequest) (*Session, error) {
	key := sessionLockKey(id)
	m.sessionLocks.Lock(key)
	defer m.sessionLocks.Unlock(key)

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.State.IsTerminal() {
		return nil, &StaleSessionError{SessionID: sess.ID, State: sess.State}
	}

	surviving := sess.SurvivingItems()
	if len(surviving) == 0 {
		return nil, &ValidationError{Field: "items", Reason: "cannot complete an empty session"}
	}

	if err := m.calc.Recalculate(ctx, sess); err != nil {
		return nil, err
	}

	// an unreachable stock backend only warns, but a confirmed shortfall blocks
	warnings, shortfalls := m.calc.ValidateStock(ctx, sess)
	if len(shortfalls) > 0 {
		return nil, shortfalls[0]
	}
	if len(warnings) > 0 {
		m.logger.WithField("session_id", sess.ID).
			Warn("completing session with unverified stock levels")
	}

	rec := &SaleRecord{
		ShopID:        sess.ShopID,
		UserID:        sess.UserID,
		DeviceID:      sess.DeviceID,
		CustomerID:    sess.CustomerID,
		InvoiceNumber: generateInvoiceNumber(),
		PaymentMethod: req.PaymentMethod,
		Calculation:   sess.Calculation,
		Items:         make([]SaleItemRecord, 0, len(surviving)),
	}
	for _, item := range surviving {
		rec.Items = append(rec.Items, toSaleItemRecord(item))
	}

	saleID, err := m.sales.RecordSale(ctx, rec)
	if err != nil {
		return nil, &PersistenceError{Op: "record sale", Err: err}
	}

	if err := sess.TransitionTo(StateCompleted); err != nil {
		return nil, err
	}
	sess.SaleID = &saleID
	sess.PaymentMethod = req.PaymentMethod
	sess.Touch()

	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"sale_id":    saleID,
		"invoice":    rec.InvoiceNumber,
		"total":      sess.Calculation.FinalTotal.String(),
	}).Info("session completed")

	return sess, nil
}

// Validate inspects a session without mutating it and reports anything that
// would block completion
func (m *Manager) Validate(ctx context.Context, id uint) (*ValidationReport, error) {
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	report := &ValidationReport{SessionID: sess.ID, State: sess.State, Valid: true}

	if sess.State.IsTerminal() {
		report.Valid = false
		report.Problems = append(report.Problems, "session is in a terminal state")
		return report, nil
	}
	surviving := sess.SurvivingItems()
	if len(surviving) == 0 {
		report.Valid = false
		report.Problems = append(report.Problems, "session has no items")
	}
	for _, item := range surviving {
		switch p := item.Pricing.Pricing.(type) {
		case UnitPricing:
			if p.Quantity <= 0 {
				report.Valid = false
				report.Problems = append(report.Problems,
					fmt.Sprintf("item %d has non-positive quantity", item.ID))
			}
			if p.UnitPrice.IsNegative() {
				report.Valid = false
				report.Problems = append(report.Problems,
					fmt.Sprintf("item %d has a negative unit price", item.ID))
			}
		case WeightPricing:
			if !p.Weight.IsPositive() {
				report.Valid = false
				report.Problems = append(report.Problems,
					fmt.Sprintf("item %d has a non-positive weight", item.ID))
			}
		}
	}

	warnings, shortfalls := m.calc.ValidateStock(ctx, sess)
	report.StockWarnings = warnings
	for _, s := range shortfalls {
		report.Valid = false
		report.Problems = append(report.Problems, s.Error())
	}

	return report, nil
}

// CanCreateNewSession reports whether the (user, device) pair is below its
// concurrency cap
func (m *Manager) CanCreateNewSession(ctx context.Context, userID, deviceID uint) (bool, error) {
	count, err := m.store.CountActiveByOwner(ctx, userID, deviceID)
	if err != nil {
		return false, err
	}
	return count < int64(m.config.Session.MaxConcurrentSessions), nil
}

// GetMaxConcurrentSessions returns the configured per-owner cap
func (m *Manager) GetMaxConcurrentSessions() int {
	return m.config.Session.MaxConcurrentSessions
}

// CleanupExpired transitions every open session whose last activity predates
// the threshold into the expired state. The sweep is idempotent: sessions
// already terminal are skipped, and a rerun with the same threshold finds
// nothing new. Returns the number of sessions expired.
func (m *Manager) CleanupExpired(ctx context.Context, before time.Time) (int, error) {
	stale, err := m.store.StaleSessions(ctx, before)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		id := stale[i].ID
		key := sessionLockKey(id)
		m.sessionLocks.Lock(key)

		sess, err := m.store.Get(ctx, id)
		if err != nil {
			m.sessionLocks.Unlock(key)
			continue
		}
		// re-check under the lock: a concurrent mutation may have touched or
		// terminated the session since the scan
		if sess.State.IsTerminal() || !sess.LastActivityAt.Before(before) {
			m.sessionLocks.Unlock(key)
			continue
		}
		if err := sess.TransitionTo(StateExpired); err != nil {
			m.sessionLocks.Unlock(key)
			continue
		}
		if err := m.store.Save(ctx, sess); err != nil {
			m.sessionLocks.Unlock(key)
			m.logger.WithFields(logrus.Fields{
				"session_id": id,
				"error":      err.Error(),
			}).Error("failed to expire session")
			continue
		}
		m.sessionLocks.Unlock(key)
		expired++
	}

	if expired > 0 {
		m.logger.WithField("count", expired).Info("expired stale sessions")
	}
	return expired, nil
}

// mutate runs fn against a freshly loaded session under its lock, touches
// the activity timestamp and saves. Terminal sessions are rejected before fn
// runs.
func (m *Manager) mutate(ctx context.Context, id uint, fn func(sess *Session) error) (*Session, error) {
	key := sessionLockKey(id)
	m.sessionLocks.Lock(key)
	defer m.sessionLocks.Unlock(key)

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.State.IsMutable() {
		return nil, &StaleSessionError{SessionID: sess.ID, State: sess.State}
	}

	if err := fn(sess); err != nil {
		return nil, err
	}

	sess.Touch()
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// transition applies a lifecycle transition under the session lock
func (m *Manager) transition(ctx context.Context, id uint, target State) (*Session, error) {
	key := sessionLockKey(id)
	m.sessionLocks.Lock(key)
	defer m.sessionLocks.Unlock(key)

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.State == target {
		return sess, nil
	}
	if err := sess.TransitionTo(target); err != nil {
		return nil, err
	}
	sess.Touch()
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// toSaleItemRecord flattens a line item for the sale ledger
func toSaleItemRecord(item *LineItem) SaleItemRecord {
	rec := SaleItemRecord{
		ProductID:   item.ProductID,
		ProductSKU:  item.ProductSKU,
		ProductName: item.ProductName,
		Mode:        item.Pricing.Pricing.Mode(),
		Discount:    item.Discount,
		TaxAmount:   item.TaxAmount,
		LineTotal:   item.LineTotal,
	}
	switch p := item.Pricing.Pricing.(type) {
	case UnitPricing:
		rec.Quantity = decimal.NewFromInt(int64(p.Quantity))
		rec.UnitPrice = p.UnitPrice
	case WeightPricing:
		rec.Quantity = p.Weight
		rec.UnitPrice = p.RatePerKilogram
	}
	return rec
}

// generateInvoiceNumber produces a unique, human-readable invoice reference
func generateInvoiceNumber() string {
	fragment := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", time.Now().UTC().Format("20060102"), fragment)
}
