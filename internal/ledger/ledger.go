// Package ledger implements the paper-trading core: per-owner positions
// with weighted-average cost basis and an append-only, time-ordered trade
// history. The history is the source of truth; positions are a derived
// cache reconstructable by replay.
//
// All monetary values use shopspring/decimal — never float64 for money.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/indexiq/paper-engine/internal/model"
	"github.com/indexiq/paper-engine/internal/store"
	"github.com/indexiq/paper-engine/internal/symbol"
)

var (
	// ErrInvalidOrder is returned for malformed input: non-positive
	// quantity or price, bad symbol, unrecognized action. Never mutates
	// state.
	ErrInvalidOrder = errors.New("ledger: invalid order")

	// ErrInsufficientPosition is returned for a sell exceeding the held
	// quantity, including selling a symbol never bought. The order is
	// rejected entirely — no partial fill.
	ErrInsufficientPosition = errors.New("ledger: insufficient position")
)

// Ledger owns one owner's positions and trade history. A single mutex
// serializes order execution per ledger; ledgers for different owners
// are fully isolated and share no locks.
type Ledger struct {
	ownerID string
	journal store.Journal // optional; nil means in-memory only

	mu        sync.RWMutex
	positions map[string]model.Position
	history   []model.TradeRecord // insertion order; reversed on read
	lastTS    time.Time
}

// New creates an empty in-memory ledger for one owner.
func New(ownerID string) *Ledger {
	return newLedger(ownerID, nil)
}

// NewWithJournal creates an empty ledger that appends every executed
// order to j before applying it. A journal failure rejects the order
// with no trace in the ledger.
func NewWithJournal(ownerID string, j store.Journal) *Ledger {
	return newLedger(ownerID, j)
}

func newLedger(ownerID string, j store.Journal) *Ledger {
	return &Ledger{
		ownerID:   ownerID,
		journal:   j,
		positions: make(map[string]model.Position),
	}
}

// OwnerID returns the owner this ledger belongs to.
func (l *Ledger) OwnerID() string {
	return l.ownerID
}

// PlaceOrder validates and executes a single buy or sell order.
// Execution is all-or-nothing: on any error the positions map and the
// history are left exactly as they were.
//
// Buy orders update the position using the weighted-average-cost formula
// computed from the pre-update quantity and cost. Sell orders never move
// the average cost of the remaining shares; a position sold down to zero
// is removed entirely.
func (l *Ledger) PlaceOrder(ctx context.Context, rawSymbol string, action model.Action, quantity int64, price decimal.Decimal) (model.TradeRecord, error) {
	sym, err := symbol.Normalize(rawSymbol)
	if err != nil {
		return model.TradeRecord{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	if !action.Valid() {
		return model.TradeRecord{}, fmt.Errorf("%w: action must be BUY or SELL, got %q", ErrInvalidOrder, action)
	}
	if quantity <= 0 {
		return model.TradeRecord{}, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidOrder, quantity)
	}
	if !price.IsPositive() {
		return model.TradeRecord{}, fmt.Errorf("%w: price must be positive, got %s", ErrInvalidOrder, price)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if action == model.ActionSell {
		pos, ok := l.positions[sym]
		if !ok || pos.Quantity < quantity {
			held := int64(0)
			if ok {
				held = pos.Quantity
			}
			return model.TradeRecord{}, fmt.Errorf("%w: sell %d %s, holding %d", ErrInsufficientPosition, quantity, sym, held)
		}
	}

	rec := model.TradeRecord{
		ID:        uuid.New().String(),
		OwnerID:   l.ownerID,
		Symbol:    sym,
		Action:    action,
		Quantity:  quantity,
		Price:     price,
		Timestamp: l.nextTimestampLocked(),
	}

	// Durable append happens before the in-memory mutation so a journal
	// failure leaves no trace.
	if l.journal != nil {
		if err := l.journal.AppendTrade(ctx, rec); err != nil {
			return model.TradeRecord{}, fmt.Errorf("journal append: %w", err)
		}
	}

	if err := l.applyLocked(rec); err != nil {
		return model.TradeRecord{}, err
	}
	return rec, nil
}

// applyLocked executes the position delta for a record and appends it to
// the history. Caller holds l.mu. Shared by live execution and replay so
// both paths use one reconstruction algorithm.
func (l *Ledger) applyLocked(rec model.TradeRecord) error {
	switch rec.Action {
	case model.ActionBuy:
		pos, ok := l.positions[rec.Symbol]
		if !ok {
			pos = model.Position{Symbol: rec.Symbol, Quantity: rec.Quantity, AvgCost: rec.Price}
		} else {
			// Weighted average from the pre-update quantity and cost.
			oldQty := decimal.NewFromInt(pos.Quantity)
			addQty := decimal.NewFromInt(rec.Quantity)
			totalCost := pos.AvgCost.Mul(oldQty).Add(rec.Price.Mul(addQty))
			pos.Quantity += rec.Quantity
			pos.AvgCost = totalCost.Div(oldQty.Add(addQty))
		}
		l.positions[rec.Symbol] = pos

	case model.ActionSell:
		pos, ok := l.positions[rec.Symbol]
		if !ok || pos.Quantity < rec.Quantity {
			held := int64(0)
			if ok {
				held = pos.Quantity
			}
			return fmt.Errorf("%w: sell %d %s, holding %d", ErrInsufficientPosition, rec.Quantity, rec.Symbol, held)
		}
		pos.Quantity -= rec.Quantity
		if pos.Quantity == 0 {
			delete(l.positions, rec.Symbol)
		} else {
			l.positions[rec.Symbol] = pos
		}

	default:
		return fmt.Errorf("%w: action %q", ErrInvalidOrder, rec.Action)
	}

	l.history = append(l.history, rec)
	if rec.Timestamp.After(l.lastTS) {
		l.lastTS = rec.Timestamp
	}
	return nil
}

// nextTimestampLocked assigns a UTC timestamp that never moves backwards
// across records, even if the wall clock does. Caller holds l.mu.
func (l *Ledger) nextTimestampLocked() time.Time {
	now := time.Now().UTC()
	if now.Before(l.lastTS) {
		now = l.lastTS
	}
	l.lastTS = now
	return now
}

// Replay applies previously executed records, in insertion order, to an
// empty ledger. Used to reconstruct state from a journal.
func (l *Ledger) Replay(records []model.TradeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.history) > 0 {
		return errors.New("ledger: replay into non-empty ledger")
	}
	for _, rec := range records {
		if err := l.applyLocked(rec); err != nil {
			return fmt.Errorf("replay record %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Positions returns a snapshot of all open positions, ordered by symbol.
// Safe to iterate without observing interleaved mutation.
func (l *Ledger) Positions() []model.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	positions := make([]model.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})
	return positions
}

// History returns a snapshot of the trade history, most recent first.
func (l *Ledger) History() []model.TradeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := make([]model.TradeRecord, len(l.history))
	for i, rec := range l.history {
		records[len(l.history)-1-i] = rec
	}
	return records
}
