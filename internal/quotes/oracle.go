// Package quotes provides price oracles for portfolio valuation.
//
// The engine never guesses a price: a symbol without a live quote is
// reported as unavailable, never defaulted to zero.
package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrQuoteUnavailable is returned when no current price can be obtained
// for a symbol. It affects only that symbol's valuation row, never the
// whole report.
var ErrQuoteUnavailable = errors.New("quotes: quote unavailable")

// Quote is a current market price for one symbol.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Oracle is the external price feed capability consumed by the valuator.
// Implementations may block on network I/O; callers must not hold a
// ledger lock across a GetPrice call.
type Oracle interface {
	GetPrice(ctx context.Context, symbol string) (Quote, error)
}
