// Package model defines the core domain types shared across the paper-trading
// engine. All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the direction of an order.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Valid reports whether a is a recognized order action.
func (a Action) Valid() bool {
	return a == ActionBuy || a == ActionSell
}

// TradeRecord is an immutable record of an executed paper order.
// Once created, these are never modified or deleted; the sequence of
// records for an owner is the sole source of historical truth — the
// position map is derived from it by replay.
type TradeRecord struct {
	ID        string          `json:"id" db:"id"`
	OwnerID   string          `json:"owner_id" db:"owner_id"`
	Symbol    string          `json:"symbol" db:"symbol"`
	Action    Action          `json:"action" db:"action"`
	Quantity  int64           `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"` // execution price per share
	Timestamp time.Time       `json:"timestamp" db:"executed_at"`
}

// Position is the current holding of one symbol for one owner.
// A position with zero quantity is removed from the ledger, never
// retained as a zero row.
type Position struct {
	Symbol   string          `json:"symbol"`
	Quantity int64           `json:"quantity"`
	AvgCost  decimal.Decimal `json:"avg_cost"` // quantity-weighted average buy price
}

// ValuationRow is one position marked to market. Computed on demand,
// never persisted.
type ValuationRow struct {
	Symbol           string          `json:"symbol"`
	Quantity         int64           `json:"quantity"`
	AvgCost          decimal.Decimal `json:"avg_cost"`
	LivePrice        decimal.Decimal `json:"live_price"`
	Invested         decimal.Decimal `json:"invested"`
	CurrentValue     decimal.Decimal `json:"current_value"`
	PnL              decimal.Decimal `json:"pnl"`
	PnLPct           decimal.Decimal `json:"pnl_pct"`
	QuoteUnavailable bool            `json:"quote_unavailable"` // no live price; row excluded from totals
}

// ValuationTotals aggregates valuation rows with available quotes.
type ValuationTotals struct {
	Invested     decimal.Decimal `json:"invested"`
	CurrentValue decimal.Decimal `json:"current_value"`
	PnL          decimal.Decimal `json:"pnl"`
	PnLPct       decimal.Decimal `json:"pnl_pct"`
}

// PortfolioReport is the full valuation of one owner's ledger.
type PortfolioReport struct {
	OwnerID string          `json:"owner_id"`
	Rows    []ValuationRow  `json:"rows"`
	Totals  ValuationTotals `json:"totals"`
}
