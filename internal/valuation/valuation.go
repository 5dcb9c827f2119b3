// Package valuation combines a ledger snapshot with a price oracle into
// a portfolio report. Purely a read-side computation — nothing here
// mutates ledger state.
package valuation

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/indexiq/paper-engine/internal/model"
	"github.com/indexiq/paper-engine/internal/quotes"
)

// PositionSource is the read-side view of a ledger.
type PositionSource interface {
	OwnerID() string
	Positions() []model.Position
}

var oneHundred = decimal.NewFromInt(100)

// Value marks every open position to market and aggregates totals.
//
// The positions snapshot is taken up front, so the oracle — the only
// potentially slow call here — is never invoked while a ledger lock is
// held. A symbol the oracle cannot price yields a row flagged
// QuoteUnavailable and is excluded from the totals; it never aborts the
// report and never contributes a silent zero. An empty ledger yields an
// empty row list with zero totals.
func Value(ctx context.Context, src PositionSource, oracle quotes.Oracle) model.PortfolioReport {
	positions := src.Positions()

	report := model.PortfolioReport{
		OwnerID: src.OwnerID(),
		Rows:    make([]model.ValuationRow, 0, len(positions)),
	}

	totalInvested := decimal.Zero
	totalValue := decimal.Zero

	for _, pos := range positions {
		qty := decimal.NewFromInt(pos.Quantity)
		invested := pos.AvgCost.Mul(qty)

		row := model.ValuationRow{
			Symbol:   pos.Symbol,
			Quantity: pos.Quantity,
			AvgCost:  pos.AvgCost,
			Invested: invested,
		}

		// Any oracle failure degrades to an unavailable row; the report
		// must survive a flaky feed.
		quote, err := oracle.GetPrice(ctx, pos.Symbol)
		if err != nil {
			row.QuoteUnavailable = true
			report.Rows = append(report.Rows, row)
			continue
		}

		row.LivePrice = quote.Price
		row.CurrentValue = quote.Price.Mul(qty)
		row.PnL = row.CurrentValue.Sub(invested)
		row.PnLPct = pnlPct(row.PnL, invested)

		totalInvested = totalInvested.Add(invested)
		totalValue = totalValue.Add(row.CurrentValue)
		report.Rows = append(report.Rows, row)
	}

	totalPnL := totalValue.Sub(totalInvested)
	report.Totals = model.ValuationTotals{
		Invested:     totalInvested,
		CurrentValue: totalValue,
		PnL:          totalPnL,
		PnLPct:       pnlPct(totalPnL, totalInvested),
	}
	return report
}

// pnlPct guards against division by zero on degenerate zero-invested
// positions: the percentage is defined as 0, never an error.
func pnlPct(pnl, invested decimal.Decimal) decimal.Decimal {
	if !invested.IsPositive() {
		return decimal.Zero
	}
	return pnl.Div(invested).Mul(oneHundred).Round(2)
}
