package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pos-backend/internal/config"
	"github.com/your-org/pos-backend/internal/domain/pricing"
	"github.com/your-org/pos-backend/internal/domain/product"
)

// memStore is an in-memory Store for tests
type memStore struct {
	mu         sync.Mutex
	sessions   map[uint]*Session
	nextID     uint
	nextItemID uint
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[uint]*Session), nextID: 1, nextItemID: 1}
}

func cloneSession(s *Session) *Session {
	c := *s
	c.Items = make([]LineItem, len(s.Items))
	copy(c.Items, s.Items)
	return &c
}

func (m *memStore) Create(_ context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess.ID = m.nextID
	m.nextID++
	snapshot, err := sess.BuildSnapshot()
	if err != nil {
		return err
	}
	sess.SnapshotJSON = snapshot
	m.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (m *memStore) Get(_ context.Context, id uint) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, &NotFoundError{Resource: "session", ID: id}
	}
	return cloneSession(sess), nil
}

func (m *memStore) ActiveByOwner(_ context.Context, userID, deviceID uint) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Session
	for _, sess := range m.sessions {
		if sess.UserID == userID && sess.DeviceID == deviceID && sess.State.IsMutable() {
			out = append(out, *cloneSession(sess))
		}
	}
	return out, nil
}

func (m *memStore) CountActiveByOwner(_ context.Context, userID, deviceID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, sess := range m.sessions {
		if sess.UserID == userID && sess.DeviceID == deviceID && sess.State.IsMutable() {
			count++
		}
	}
	return count, nil
}

func (m *memStore) TabNameInUse(_ context.Context, userID, deviceID uint, tabName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sess := range m.sessions {
		if sess.UserID == userID && sess.DeviceID == deviceID &&
			sess.TabName == tabName && sess.State.IsMutable() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Save(_ context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sess.ID]; !ok {
		return &NotFoundError{Resource: "session", ID: sess.ID}
	}
	for i := range sess.Items {
		if sess.Items[i].ID == 0 {
			sess.Items[i].ID = m.nextItemID
			m.nextItemID++
		}
		sess.Items[i].SessionID = sess.ID
	}
	snapshot, err := sess.BuildSnapshot()
	if err != nil {
		return err
	}
	sess.SnapshotJSON = snapshot
	m.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (m *memStore) StaleSessions(_ context.Context, before time.Time) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Session
	for _, sess := range m.sessions {
		if sess.State.IsMutable() && sess.LastActivityAt.Before(before) {
			out = append(out, *cloneSession(sess))
		}
	}
	return out, nil
}

// slowSaveStore delays Save to widen the window between a uniqueness check
// and its commit in concurrency tests
type slowSaveStore struct {
	*memStore
	delay time.Duration
}

func (s *slowSaveStore) Save(ctx context.Context, sess *Session) error {
	time.Sleep(s.delay)
	return s.memStore.Save(ctx, sess)
}

// fakeCatalog serves products from a map
type fakeCatalog struct {
	products map[uint]*product.Product
}

func (f *fakeCatalog) Product(_ context.Context, id uint) (*product.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d not found", id)
	}
	return p, nil
}

// fakeStock serves on-hand levels from a map, or fails entirely
type fakeStock struct {
	levels map[uint]int
	err    error
}

func (f *fakeStock) OnHand(_ context.Context, productID uint) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.levels[productID], nil
}

// fakeTaxes serves a flat rate
type fakeTaxes struct {
	rate decimal.Decimal
}

func (f *fakeTaxes) RateFor(_ context.Context, _ uint) (decimal.Decimal, error) {
	return f.rate, nil
}

// fakeLedger records sales in memory
type fakeLedger struct {
	mu    sync.Mutex
	sales []*SaleRecord
}

func (f *fakeLedger) RecordSale(_ context.Context, rec *SaleRecord) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sales = append(f.sales, rec)
	return uint(len(f.sales)), nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{
			MaxConcurrentSessions: 5,
			ExpiryThreshold:       24 * time.Hour,
			SweepInterval:         15 * time.Minute,
			SnapshotCacheTTL:      time.Hour,
		},
	}
}

func unitProduct(id uint, sku, price string) *product.Product {
	return &product.Product{
		ID:        id,
		SKU:       sku,
		Name:      sku,
		UnitPrice: decimal.RequireFromString(price),
		IsActive:  true,
	}
}

func weightProduct(id uint, sku, rate string) *product.Product {
	r := decimal.RequireFromString(rate)
	return &product.Product{
		ID:              id,
		SKU:             sku,
		Name:            sku,
		IsWeightBased:   true,
		RatePerKilogram: &r,
		WeightPrecision: 3,
		IsActive:        true,
	}
}

// testFixture wires a manager over the in-memory store with a 10% tax rate
type testFixture struct {
	store   *memStore
	catalog *fakeCatalog
	stock   *fakeStock
	ledger  *fakeLedger
	calc    *Calculator
	manager *Manager
}

func newFixture() *testFixture {
	catalog := &fakeCatalog{products: map[uint]*product.Product{
		1: unitProduct(1, "SKU-CAN", "10.00"),
		2: weightProduct(2, "SKU-APPLES", "20.00"),
		3: unitProduct(3, "SKU-MUG", "4.99"),
	}}
	stock := &fakeStock{levels: map[uint]int{1: 100, 3: 100}}
	taxes := &fakeTaxes{rate: decimal.RequireFromString("0.10")}
	store := newMemStore()
	ledger := &fakeLedger{}
	log := testLogger()
	calc := NewCalculator(catalog, stock, taxes, pricing.NewWeightService(), log)
	mgr := NewManager(store, calc, catalog, ledger, testConfig(), log)
	return &testFixture{
		store:   store,
		catalog: catalog,
		stock:   stock,
		ledger:  ledger,
		calc:    calc,
		manager: mgr,
	}
}

func (f *testFixture) createSession(tabName string) (*Session, error) {
	return f.manager.CreateSession(context.Background(), &CreateSessionRequest{
		TabName:  tabName,
		ShopID:   1,
		UserID:   1,
		DeviceID: 1,
	})
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
