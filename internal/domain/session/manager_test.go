package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/your-org/pos-backend/internal/domain/pricing"
	"github.com/your-org/pos-backend/internal/domain/product"
)

func TestCreateSessionQuota(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := f.createSession(fmt.Sprintf("Tab %d", i+1)); err != nil {
			t.Fatalf("session %d: %v", i+1, err)
		}
	}

	_, err := f.createSession("Tab 6")
	var cle *ConcurrencyLimitError
	if !errors.As(err, &cle) {
		t.Fatalf("expected ConcurrencyLimitError, got %v", err)
	}
	if cle.Limit != 5 {
		t.Errorf("limit = %d, want 5", cle.Limit)
	}

	// a different device is a different quota bucket
	_, err = f.manager.CreateSession(ctx, &CreateSessionRequest{
		TabName: "Tab 1", ShopID: 1, UserID: 1, DeviceID: 2,
	})
	if err != nil {
		t.Fatalf("different device should not share the quota: %v", err)
	}
}

func TestCreateSessionConcurrentNeverExceedsQuota(t *testing.T) {
	f := newFixture()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.createSession(fmt.Sprintf("Racing %d", i))
		}(i)
	}
	wg.Wait()

	count, err := f.store.CountActiveByOwner(context.Background(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if count > 5 {
		t.Fatalf("quota exceeded under contention: %d open sessions", count)
	}
}

func TestCreateSessionDuplicateTabName(t *testing.T) {
	f := newFixture()

	if _, err := f.createSession("Table 4"); err != nil {
		t.Fatal(err)
	}
	_, err := f.createSession("Table 4")
	var dup *DuplicateTabNameError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateTabNameError, got %v", err)
	}

	// the name is reusable once the first session terminates
	if _, err := f.manager.Close(context.Background(), 1, false); err != nil {
		t.Fatal(err)
	}
	if _, err := f.createSession("Table 4"); err != nil {
		t.Fatalf("name should be free after close: %v", err)
	}
}

func TestCreateSessionBlankTabName(t *testing.T) {
	f := newFixture()

	_, err := f.createSession("   ")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAddItemDispatchesOnProductMode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sess, err := f.createSession("Checkout")
	if err != nil {
		t.Fatal(err)
	}

	qty := 2
	res, err := f.manager.AddItem(ctx, sess.ID, &AddItemRequest{ProductID: 1, Quantity: &qty})
	if err != nil {
		t.Fatalf("AddItem unit: %v", err)
	}
	if !res.Calculation.Subtotal.Equal(mustDecimal("20.00")) {
		t.Errorf("subtotal = %s, want 20.00", res.Calculation.Subtotal)
	}

	w := mustDecimal("1.5")
	res, err = f.manager.AddItem(ctx, sess.ID, &AddItemRequest{ProductID: 2, Weight: &w})
	if err != nil {
		t.Fatalf("AddItem weight: %v", err)
	}
	if !res.Calculation.FinalTotal.Equal(mustDecimal("55.00")) {
		t.Errorf("final total = %s, want 55.00", res.Calculation.FinalTotal)
	}

	// weight product without a weight is rejected
	_, err = f.manager.AddItem(ctx, sess.ID, &AddItemRequest{ProductID: 2})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAddItemIdempotentMerge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sess, err := f.createSession("Merge")
	if err != nil {
		t.Fatal(err)
	}

	qty := 1
	for i := 0; i < 3; i++ {
		if _, err := f.manager.AddItem(ctx, sess.ID, &AddItemRequest{ProductID: 1, Quantity: &qty}); err != nil {
			t.Fatalf("AddItem %d: %v", i, err)
		}
	}

	got, err := f.manager.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 1 {
		t.Fatalf("expected 1 merged line, got %d", len(got.Items))
	}
	up := got.Items[0].Pricing.Pricing.(UnitPricing)
	if up.Quantity != 3 {
		t.Errorf("merged quantity = %d, want 3", up.Quantity)
	}
}

func TestUpdateItemQuantityZeroRemoves(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sess, err := f.createSession("Zero")
	if err != nil {
		t.Fatal(err)
	}
	qty := 2
	if _, err := f.manager.AddItem(ctx, sess.ID, &AddItemRequest{ProductID: 1, Quantity: &qty}); err != nil {
		t.Fatal(err)
	}

	got, err := f.manager.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	itemID := got.Items[0].ID

	zero := 0
	res, err := f.manager.UpdateItem(ctx, sess.ID, itemID, &UpdateItemRequest{Quantity: &zero})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if len(res.Session.SurvivingItems()) != 0 {
		t.Error("expected line removed at quantity zero")
	}
	if !res.Calculation.FinalTotal.Equal(mustDecimal("0")) {
		t.Errorf("final total = %s, want 0", res.Calculation.FinalTotal)
	}
}

func TestMutationsRejectedOnTerminalSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sess, err := f.createSession("Done")
	if err != nil {
		t.Fatal(err)
	}
	qty := 1
	if _, err := f.manager.AddItem(ctx, sess.ID, &AddItemRequest{ProductID: 1, Quantity: &qty}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.manager.Complete(ctx, sess.ID, &CompleteSessionRequest{PaymentMethod: "cash"}); err != nil {
		t.Fatal(err)
	}

	var stale *StaleSessionError
	if _, err := f.manager.AddItem(ctx, sess.ID, &AddItemRequest{ProductID: 1, Quantity: &qty}); !errors.As(err, &stale) {
		t.Fatalf("expected StaleSessionError on AddItem, got %v", err)
	}
	if _, err := f.manager.Suspend(ctx, sess.ID); !errors.As(err, &stale) {
		t.Fatalf("expected StaleSessionError on Suspend, got %v", err)
	}
	if _, err := f.manager.Complete(ctx, sess.ID, &CompleteSessionRequest{PaymentMethod: "cash"}); !errors.As(err, &stale) {
		t.Fatalf("expected StaleSessionError on repeated Complete, got %v", err)
	}
}

func TestCompleteRecordsSale(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sess, err := f.createSession("Sale")
	if err != nil {
		t.Fatal(err)
	}
	qty := 2
	if _, err := f.manager.AddItem(ctx, sess.ID, &AddItemRequest{ProductID: 1, Quantity: &qty}); err != nil {
		t.Fatal(err)
	}
	w := mustDecimal("1.5")
	if _, err := f.manager.AddItem(ctx, sess.ID, &AddItemRequest{ProductID: 2, Weight: &w}); err != nil {
		t.Fatal(err)
	}

	done, err := f.manager.Complete(ctx, sess.ID, &CompleteSessionRequest{PaymentMethod: "card"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.State != StateCompleted {
		t.Errorf("state = %s, want completed", done.State)
	}
	if done.SaleID == nil {
		t.Fatal("expected sale id on completed session")
	}
	if done.PaymentMethod != "card" {
		t.Errorf("payment method = %q, want card", done.PaymentMethod)
	}

	if len(f.ledger.sales) != 1 {
		t.Fatalf("expected 1 recorded sale, got %d", len(f.ledger.sales))
	}
	rec := f.ledger.sales[0]
	if !strings.HasPrefix(rec.InvoiceNumber, "INV-") {
		t.Errorf("invoice number %q missing prefix", rec.InvoiceNumber)
	}
	if len(rec.Items) != 2 {
		t.Errorf("expected 2 sale lines, got %d", len(rec.Items))
	}
	if !rec.Calculation.FinalTotal.Equal(mustDecimal("55.00")) {
		t.Errorf("recorded total = %s, want 55.00", rec.Calculation.FinalTotal)
	}
}

func TestCompleteEmptySessionRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sess, err := f.createSession("Empty")
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.manager.Complete(ctx, sess.ID, &CompleteSessionRequest{PaymentMethod: "cash"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// a session whose only line was removed is empty too
	qty := 1
	if _, err := f.manager.AddItem(ctx, sess.ID, &AddItemRequest{ProductID: 1, Quantity: &qty}); err != nil {
		t.Fatal(err)
	}
	got, _ := f.manager.GetSession(ctx, sess.ID)
	if _, err := f.manager.RemoveItem(ctx, sess.ID, got.Items[0].ID); err != nil {
		t.Fatal(err)
	}
	_, err = f.manager.Complete(ctx, sess.ID, &CompleteSessionRequest{PaymentMethod: "cash"})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCompleteBlockedByConfirmedShortfall(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sess, err := f.createSession("Short")
	if err != nil {
		t.Fatal(err)
	}
	qty := 200
	if _, err := f.manager.AddItem(ctx, sess.ID, &AddItemRequest{ProductID: 1, Quantity: &qty}); err != nil {
		t.Fatal(err)
	}

	_, err = f.manager.Complete(ctx, sess.ID, &CompleteSessionRequest{PaymentMethod: "cash"})
	var ise *InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if len(f.ledger.sales) != 0 {
		t.Fatalf("no sale should be recorded, got %d", len(f.ledger.sales))
	}

	got, err := f.manager.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateActive {
		t.Errorf("state = %s, want active after blocked completion", got.State)
	}
}

func TestCompleteProceedsWhenStockUnreachable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sess, err := f.createSession("FailOpen")
	if err != nil {
		t.Fatal(err)
	}
	qty := 2
	if _, err := f.manager.AddItem(ctx, sess.ID, &AddItemRequest{ProductID: 1, Quantity: &qty}); err != nil {
		t.Fatal(err)
	}

	f.stock.err = fmt.Errorf("stock backend unreachable")
	done, err := f.manager.Complete(ctx, sess.ID, &CompleteSessionRequest{PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("unverifiable stock must not block completion: %v", err)
	}
	if done.State != StateCompleted {
		t.Errorf("state = %s, want completed", done.State)
	}
}

func TestSuspendAndResume(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sess, err := f.createSession("Parked")
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.manager.Suspend(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if got.State != StateSuspended {
		t.Errorf("state = %s, want suspended", got.State)
	}

	// suspended sessions still count against the quota and hold their tab name
	var dup *DuplicateTabNameError
	if _, err := f.createSession("Parked"); !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateTabNameError, got %v", err)
	}

	got, err = f.manager.Resume(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got.State != StateActive {
		t.Errorf("state = %s, want active", got.State)
	}
}

func TestUpdateSessionRename(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.createSession("Alpha")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.createSession("Beta"); err != nil {
		t.Fatal(err)
	}

	name := "Beta"
	_, err = f.manager.UpdateSession(ctx, a.ID, &UpdateSessionRequest{TabName: &name})
	var dup *DuplicateTabNameError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateTabNameError, got %v", err)
	}

	name = "Gamma"
	res, err := f.manager.UpdateSession(ctx, a.ID, &UpdateSessionRequest{TabName: &name})
	if err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if res.Session.TabName != "Gamma" {
		t.Errorf("tab name = %q, want Gamma", res.Session.TabName)
	}
}

func TestRenameSerializedWithConcurrentCreate(t *testing.T) {
	// a slow Save keeps the renamed session uncommitted while a concurrent
	// CreateSession races for the same tab name
	mem := newMemStore()
	slow := &slowSaveStore{memStore: mem, delay: 50 * time.Millisecond}
	log := testLogger()
	catalog := &fakeCatalog{products: map[uint]*product.Product{1: unitProduct(1, "SKU-CAN", "10.00")}}
	stock := &fakeStock{levels: map[uint]int{1: 100}}
	taxes := &fakeTaxes{rate: mustDecimal("0.10")}
	calc := NewCalculator(catalog, stock, taxes, pricing.NewWeightService(), log)
	mgr := NewManager(slow, calc, catalog, &fakeLedger{}, testConfig(), log)

	ctx := context.Background()
	sess, err := mgr.CreateSession(ctx, &CreateSessionRequest{
		TabName: "Alpha", ShopID: 1, UserID: 1, DeviceID: 1,
	})
	if err != nil {
		t.Fatal(err)
	}

	name := "Gamma"
	errs := make(chan error, 2)
	go func() {
		_, err := mgr.UpdateSession(ctx, sess.ID, &UpdateSessionRequest{TabName: &name})
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond) // let the rename enter its save window
	go func() {
		_, err := mgr.CreateSession(ctx, &CreateSessionRequest{
			TabName: "Gamma", ShopID: 1, UserID: 1, DeviceID: 1,
		})
		errs <- err
	}()

	var successes, duplicates int
	for i := 0; i < 2; i++ {
		err := <-errs
		var dup *DuplicateTabNameError
		switch {
		case err == nil:
			successes++
		case errors.As(err, &dup):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || duplicates != 1 {
		t.Fatalf("expected one success and one duplicate rejection, got %d and %d", successes, duplicates)
	}

	mem.mu.Lock()
	open := 0
	for _, s := range mem.sessions {
		if s.TabName == "Gamma" && s.State.IsMutable() {
			open++
		}
	}
	mem.mu.Unlock()
	if open != 1 {
		t.Fatalf("tab name uniqueness violated: %d open sessions named Gamma", open)
	}
}

func TestSwitchToTouchesActivity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sess, err := f.createSession("Front")
	if err != nil {
		t.Fatal(err)
	}
	before := sess.LastActivityAt

	time.Sleep(5 * time.Millisecond)
	got, err := f.manager.SwitchTo(ctx, sess.ID)
	if err != nil {
		t.Fatalf("SwitchTo: %v", err)
	}
	if !got.LastActivityAt.After(before) {
		t.Error("expected activity timestamp to advance")
	}
}

func TestCleanupExpired(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	stale, err := f.createSession("Stale")
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := f.createSession("Fresh")
	if err != nil {
		t.Fatal(err)
	}

	// age the first session past the threshold
	f.store.mu.Lock()
	f.store.sessions[stale.ID].LastActivityAt = time.Now().UTC().Add(-48 * time.Hour)
	f.store.mu.Unlock()

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	n, err := f.manager.CleanupExpired(ctx, cutoff)
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d sessions, want 1", n)
	}

	got, err := f.manager.GetSession(ctx, stale.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateExpired {
		t.Errorf("state = %s, want expired", got.State)
	}
	got, err = f.manager.GetSession(ctx, fresh.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateActive {
		t.Errorf("fresh session state = %s, want active", got.State)
	}

	// sweeping again finds nothing
	n, err = f.manager.CleanupExpired(ctx, cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second sweep expired %d sessions, want 0", n)
	}
}

func TestValidateReportsProblems(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sess, err := f.createSession("Check")
	if err != nil {
		t.Fatal(err)
	}

	report, err := f.manager.Validate(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if report.Valid {
		t.Error("empty session should not validate")
	}

	qty := 200
	if _, err := f.manager.AddItem(ctx, sess.ID, &AddItemRequest{ProductID: 1, Quantity: &qty}); err != nil {
		t.Fatal(err)
	}
	report, err = f.manager.Validate(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if report.Valid {
		t.Error("confirmed stock shortfall should fail validation")
	}
	if len(report.Problems) == 0 {
		t.Error("expected a problem entry for the shortfall")
	}
}

func TestCanCreateNewSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ok, err := f.manager.CanCreateNewSession(ctx, 1, 1)
	if err != nil || !ok {
		t.Fatalf("expected capacity, got ok=%v err=%v", ok, err)
	}

	for i := 0; i < 5; i++ {
		if _, err := f.createSession(fmt.Sprintf("T%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	ok, err = f.manager.CanCreateNewSession(ctx, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected no capacity at the cap")
	}
	if f.manager.GetMaxConcurrentSessions() != 5 {
		t.Errorf("cap = %d, want 5", f.manager.GetMaxConcurrentSessions())
	}
}
