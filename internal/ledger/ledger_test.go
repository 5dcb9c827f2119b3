package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/indexiq/paper-engine/internal/ledger"
	"github.com/indexiq/paper-engine/internal/model"
	"github.com/indexiq/paper-engine/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func mustOrder(t *testing.T, l *ledger.Ledger, sym string, action model.Action, qty int64, price float64) model.TradeRecord {
	t.Helper()
	rec, err := l.PlaceOrder(context.Background(), sym, action, qty, d(price))
	if err != nil {
		t.Fatalf("order %s %d %s @ %v failed: %v", action, qty, sym, price, err)
	}
	return rec
}

func TestPlaceOrder_FirstBuyCreatesPosition(t *testing.T) {
	l := ledger.New("user1")
	rec := mustOrder(t, l, "RELIANCE", model.ActionBuy, 10, 2500)

	if rec.ID == "" {
		t.Error("expected non-empty trade id")
	}
	if rec.Symbol != "RELIANCE" {
		t.Errorf("expected symbol RELIANCE, got %q", rec.Symbol)
	}

	positions := l.Positions()
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	if positions[0].Quantity != 10 {
		t.Errorf("expected quantity 10, got %d", positions[0].Quantity)
	}
	if !positions[0].AvgCost.Equal(d(2500)) {
		t.Errorf("expected avg cost 2500, got %s", positions[0].AvgCost)
	}
}

func TestPlaceOrder_WeightedAverageCost(t *testing.T) {
	l := ledger.New("user1")
	mustOrder(t, l, "TCS", model.ActionBuy, 10, 100)
	mustOrder(t, l, "TCS", model.ActionBuy, 10, 200)

	positions := l.Positions()
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	if positions[0].Quantity != 20 {
		t.Errorf("expected quantity 20, got %d", positions[0].Quantity)
	}
	if !positions[0].AvgCost.Equal(d(150)) {
		t.Errorf("expected avg cost 150, got %s", positions[0].AvgCost)
	}
}

func TestPlaceOrder_SellKeepsAvgCost(t *testing.T) {
	l := ledger.New("user1")
	mustOrder(t, l, "TCS", model.ActionBuy, 10, 100)
	mustOrder(t, l, "TCS", model.ActionBuy, 10, 200)
	mustOrder(t, l, "TCS", model.ActionSell, 5, 300)

	positions := l.Positions()
	if positions[0].Quantity != 15 {
		t.Errorf("expected quantity 15, got %d", positions[0].Quantity)
	}
	// Cost basis of the remaining shares does not move on a sale.
	if !positions[0].AvgCost.Equal(d(150)) {
		t.Errorf("expected avg cost 150 after sell, got %s", positions[0].AvgCost)
	}
}

func TestPlaceOrder_OversellRejected(t *testing.T) {
	l := ledger.New("user1")
	mustOrder(t, l, "SBIN", model.ActionBuy, 5, 100)

	_, err := l.PlaceOrder(context.Background(), "SBIN", model.ActionSell, 6, d(100))
	if !errors.Is(err, ledger.ErrInsufficientPosition) {
		t.Fatalf("expected ErrInsufficientPosition, got %v", err)
	}

	positions := l.Positions()
	if positions[0].Quantity != 5 {
		t.Errorf("quantity should remain 5, got %d", positions[0].Quantity)
	}
	if !positions[0].AvgCost.Equal(d(100)) {
		t.Errorf("avg cost should remain 100, got %s", positions[0].AvgCost)
	}
	if len(l.History()) != 1 {
		t.Errorf("rejected order should leave no history trace, got %d records", len(l.History()))
	}
}

func TestPlaceOrder_SellUnknownSymbolRejected(t *testing.T) {
	l := ledger.New("user1")
	_, err := l.PlaceOrder(context.Background(), "INFY", model.ActionSell, 1, d(100))
	if !errors.Is(err, ledger.ErrInsufficientPosition) {
		t.Fatalf("expected ErrInsufficientPosition, got %v", err)
	}
	if len(l.History()) != 0 {
		t.Error("rejected order should leave no history trace")
	}
}

func TestPlaceOrder_FullLiquidationRemovesPosition(t *testing.T) {
	l := ledger.New("user1")
	mustOrder(t, l, "ITC", model.ActionBuy, 10, 50)
	mustOrder(t, l, "ITC", model.ActionSell, 10, 60)

	if positions := l.Positions(); len(positions) != 0 {
		t.Errorf("expected no positions after full liquidation, got %v", positions)
	}

	history := l.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(history))
	}
	// Most recent first: the sell leads.
	if history[0].Action != model.ActionSell {
		t.Errorf("expected sell first in history, got %s", history[0].Action)
	}
	if history[1].Action != model.ActionBuy {
		t.Errorf("expected buy second in history, got %s", history[1].Action)
	}
}

func TestPlaceOrder_InvalidInputs(t *testing.T) {
	l := ledger.New("user1")
	ctx := context.Background()

	cases := []struct {
		name   string
		symbol string
		action model.Action
		qty    int64
		price  decimal.Decimal
	}{
		{"empty symbol", "", model.ActionBuy, 10, d(100)},
		{"malformed symbol", "bad symbol!", model.ActionBuy, 10, d(100)},
		{"zero quantity", "TCS", model.ActionBuy, 0, d(100)},
		{"negative quantity", "TCS", model.ActionBuy, -5, d(100)},
		{"zero price", "TCS", model.ActionBuy, 10, decimal.Zero},
		{"negative price", "TCS", model.ActionBuy, 10, d(-1)},
		{"unknown action", "TCS", model.Action("HOLD"), 10, d(100)},
	}

	for _, tc := range cases {
		if _, err := l.PlaceOrder(ctx, tc.symbol, tc.action, tc.qty, tc.price); !errors.Is(err, ledger.ErrInvalidOrder) {
			t.Errorf("%s: expected ErrInvalidOrder, got %v", tc.name, err)
		}
	}

	if len(l.Positions()) != 0 || len(l.History()) != 0 {
		t.Error("invalid orders must not mutate state")
	}
}

func TestPlaceOrder_SymbolNormalized(t *testing.T) {
	l := ledger.New("user1")
	mustOrder(t, l, "  tcs ", model.ActionBuy, 10, 100)
	mustOrder(t, l, "TCS", model.ActionBuy, 10, 200)

	positions := l.Positions()
	if len(positions) != 1 {
		t.Fatalf("expected case-normalized symbols to share a position, got %d", len(positions))
	}
	if positions[0].Symbol != "TCS" {
		t.Errorf("expected stored symbol TCS, got %q", positions[0].Symbol)
	}
}

func TestHistory_TimestampsMonotonic(t *testing.T) {
	l := ledger.New("user1")
	for i := 0; i < 20; i++ {
		mustOrder(t, l, "TCS", model.ActionBuy, 1, 100)
	}

	history := l.History() // newest first
	for i := 1; i < len(history); i++ {
		if history[i].Timestamp.After(history[i-1].Timestamp) {
			t.Fatalf("timestamps not monotonic at record %d", i)
		}
	}
}

func TestReplay_ReconstructsPositions(t *testing.T) {
	l := ledger.New("user1")
	mustOrder(t, l, "TCS", model.ActionBuy, 10, 100)
	mustOrder(t, l, "RELIANCE", model.ActionBuy, 3, 2500)
	mustOrder(t, l, "TCS", model.ActionBuy, 5, 250)
	mustOrder(t, l, "TCS", model.ActionSell, 8, 300)
	mustOrder(t, l, "RELIANCE", model.ActionSell, 3, 2400)

	// History is newest-first; replay wants insertion order.
	history := l.History()
	records := make([]model.TradeRecord, len(history))
	for i, rec := range history {
		records[len(history)-1-i] = rec
	}

	rebuilt := ledger.New("user1")
	if err := rebuilt.Replay(records); err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	got := rebuilt.Positions()
	want := l.Positions()
	if len(got) != len(want) {
		t.Fatalf("expected %d positions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Symbol != want[i].Symbol || got[i].Quantity != want[i].Quantity {
			t.Errorf("position %d mismatch: got %+v want %+v", i, got[i], want[i])
		}
		if !got[i].AvgCost.Equal(want[i].AvgCost) {
			t.Errorf("position %s avg cost mismatch: got %s want %s",
				want[i].Symbol, got[i].AvgCost, want[i].AvgCost)
		}
	}
}

func TestPlaceOrder_ConcurrentBuys(t *testing.T) {
	l := ledger.New("user1")
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.PlaceOrder(context.Background(), "TCS", model.ActionBuy, 2, d(100)); err != nil {
				t.Errorf("concurrent buy failed: %v", err)
			}
		}()
	}
	wg.Wait()

	positions := l.Positions()
	if len(positions) != 1 || positions[0].Quantity != 2*n {
		t.Errorf("expected quantity %d, got %+v", 2*n, positions)
	}
	if len(l.History()) != n {
		t.Errorf("expected %d history records, got %d", n, len(l.History()))
	}
}

// failingJournal rejects every append, for atomicity tests.
type failingJournal struct{}

func (failingJournal) AppendTrade(context.Context, model.TradeRecord) error {
	return errors.New("journal down")
}

func (failingJournal) TradesByOwner(context.Context, string) ([]model.TradeRecord, error) {
	return nil, nil
}

func TestPlaceOrder_JournalFailureLeavesNoTrace(t *testing.T) {
	l := ledger.NewWithJournal("user1", failingJournal{})

	_, err := l.PlaceOrder(context.Background(), "TCS", model.ActionBuy, 10, d(100))
	if err == nil {
		t.Fatal("expected error from failing journal")
	}
	if len(l.Positions()) != 0 || len(l.History()) != 0 {
		t.Error("failed journal append must not mutate ledger state")
	}
}

// --- Registry ---

func TestRegistry_IsolationBetweenOwners(t *testing.T) {
	reg := ledger.NewRegistry(nil)
	ctx := context.Background()

	la, err := reg.GetLedger(ctx, "alice")
	if err != nil {
		t.Fatalf("get ledger: %v", err)
	}
	lb, err := reg.GetLedger(ctx, "bob")
	if err != nil {
		t.Fatalf("get ledger: %v", err)
	}

	mustOrder(t, la, "TCS", model.ActionBuy, 10, 100)

	if len(lb.Positions()) != 0 || len(lb.History()) != 0 {
		t.Error("alice's orders must not appear in bob's ledger")
	}
}

func TestRegistry_SameOwnerSameLedger(t *testing.T) {
	reg := ledger.NewRegistry(nil)
	ctx := context.Background()

	const n = 20
	results := make([]*ledger.Ledger, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l, err := reg.GetLedger(ctx, "alice")
			if err != nil {
				t.Errorf("get ledger: %v", err)
				return
			}
			results[i] = l
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent GetLedger calls must observe one instance")
		}
	}
}

func TestRegistry_EmptyOwnerRejected(t *testing.T) {
	reg := ledger.NewRegistry(nil)
	if _, err := reg.GetLedger(context.Background(), ""); !errors.Is(err, ledger.ErrInvalidOwner) {
		t.Errorf("expected ErrInvalidOwner, got %v", err)
	}
}

func TestRegistry_ReplaysJournal(t *testing.T) {
	journal := store.NewMemoryJournal()
	ctx := context.Background()

	reg1 := ledger.NewRegistry(journal)
	l1, err := reg1.GetLedger(ctx, "alice")
	if err != nil {
		t.Fatalf("get ledger: %v", err)
	}
	mustOrder(t, l1, "TCS", model.ActionBuy, 10, 100)
	mustOrder(t, l1, "TCS", model.ActionBuy, 10, 200)
	mustOrder(t, l1, "ITC", model.ActionBuy, 5, 400)
	mustOrder(t, l1, "ITC", model.ActionSell, 5, 420)

	// Fresh registry over the same journal simulates a restart.
	reg2 := ledger.NewRegistry(journal)
	l2, err := reg2.GetLedger(ctx, "alice")
	if err != nil {
		t.Fatalf("get ledger after restart: %v", err)
	}

	positions := l2.Positions()
	if len(positions) != 1 {
		t.Fatalf("expected 1 position after replay, got %d", len(positions))
	}
	if positions[0].Symbol != "TCS" || positions[0].Quantity != 20 {
		t.Errorf("unexpected replayed position: %+v", positions[0])
	}
	if !positions[0].AvgCost.Equal(d(150)) {
		t.Errorf("expected replayed avg cost 150, got %s", positions[0].AvgCost)
	}
	if len(l2.History()) != 4 {
		t.Errorf("expected 4 replayed history records, got %d", len(l2.History()))
	}
}
