package quotes

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MockOracle serves jittered prices around a fixed base table. Used for
// development and demos when no live feed is configured. Symbols outside
// the table are unavailable, not invented.
type MockOracle struct {
	base map[string]decimal.Decimal
}

// defaultBasePrices mirrors the demo universe of the dashboard.
var defaultBasePrices = map[string]float64{
	"RELIANCE":   2500.00,
	"TCS":        3200.00,
	"INFY":       1450.00,
	"HDFCBANK":   1650.00,
	"ICICIBANK":  950.00,
	"SBIN":       580.00,
	"ITC":        420.00,
	"HINDUNILVR": 2300.00,
	"BHARTIARTL": 850.00,
	"KOTAKBANK":  1800.00,
	"NIFTY50":    19500.00,
	"SENSEX":     65000.00,
}

// NewMockOracle creates a mock oracle over the default symbol universe.
func NewMockOracle() *MockOracle {
	base := make(map[string]decimal.Decimal, len(defaultBasePrices))
	for sym, price := range defaultBasePrices {
		base[sym] = decimal.NewFromFloat(price)
	}
	return &MockOracle{base: base}
}

// GetPrice returns the base price with a bounded ±2% fluctuation.
func (o *MockOracle) GetPrice(_ context.Context, symbol string) (Quote, error) {
	base, ok := o.base[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrQuoteUnavailable, symbol)
	}

	fluctuation := decimal.NewFromFloat(1 + (rand.Float64()*2-1)*0.02)
	return Quote{
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Price:     base.Mul(fluctuation).Round(2),
		Timestamp: time.Now().UTC(),
	}, nil
}

// StaticOracle serves fixed prices. Used in tests and seeding.
type StaticOracle struct {
	prices map[string]decimal.Decimal
}

// NewStaticOracle creates an oracle over a fixed price map.
func NewStaticOracle(prices map[string]decimal.Decimal) *StaticOracle {
	fixed := make(map[string]decimal.Decimal, len(prices))
	for sym, price := range prices {
		fixed[strings.ToUpper(sym)] = price
	}
	return &StaticOracle{prices: fixed}
}

func (o *StaticOracle) GetPrice(_ context.Context, symbol string) (Quote, error) {
	price, ok := o.prices[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrQuoteUnavailable, symbol)
	}
	return Quote{
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Price:     price,
		Timestamp: time.Now().UTC(),
	}, nil
}
