// Package trade provides the HTTP handlers for placing paper orders and
// querying positions, trade history, and portfolio valuations.
//
// All monetary values use shopspring/decimal — never float64 for money.
package trade

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/indexiq/paper-engine/internal/ledger"
	"github.com/indexiq/paper-engine/internal/metrics"
	"github.com/indexiq/paper-engine/internal/model"
	"github.com/indexiq/paper-engine/internal/quotes"
	"github.com/indexiq/paper-engine/internal/valuation"
)

// Service handles order placement and portfolio queries. The owner id on
// each request is opaque — established by the authentication layer in
// front of this service.
type Service struct {
	registry *ledger.Registry
	oracle   quotes.Oracle
	wsHub    *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new trade service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(registry *ledger.Registry, oracle quotes.Oracle, hub *WSHub) *Service {
	return &Service{
		registry: registry,
		oracle:   oracle,
		wsHub:    hub,
	}
}

// --- Request/Response types ---

// OrderRequest is the JSON body for POST /api/v1/orders.
type OrderRequest struct {
	OwnerID  string          `json:"owner_id"`
	Symbol   string          `json:"symbol"`
	Action   string          `json:"action"` // "BUY" or "SELL", case-insensitive
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderResponse is the JSON body returned from POST /api/v1/orders.
type OrderResponse struct {
	Trade    model.TradeRecord `json:"trade"`
	Position *model.Position   `json:"position,omitempty"` // nil after full liquidation
}

// --- HTTP Handlers ---

// PlaceOrder handles POST /api/v1/orders
// Executes a buy or sell against the owner's ledger, all-or-nothing.
func (s *Service) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	l, err := s.registry.GetLedger(ctx, req.OwnerID)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidOwner) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeError(w, "failed to resolve ledger", http.StatusInternalServerError)
		return
	}

	action := model.Action(strings.ToUpper(strings.TrimSpace(req.Action)))

	start := time.Now()
	rec, err := l.PlaceOrder(ctx, req.Symbol, action, req.Quantity, req.Price)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidOrder):
			metrics.OrderRejections.WithLabelValues("invalid_order").Inc()
			writeError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ledger.ErrInsufficientPosition):
			metrics.OrderRejections.WithLabelValues("insufficient_position").Inc()
			writeError(w, err.Error(), http.StatusConflict)
		default:
			writeError(w, "failed to execute order", http.StatusInternalServerError)
		}
		return
	}

	metrics.OrdersTotal.WithLabelValues(string(rec.Action)).Inc()
	metrics.OrderLatency.WithLabelValues(string(rec.Action)).Observe(time.Since(start).Seconds())

	// Position snapshot for the response; absent after a full liquidation.
	var position *model.Position
	for _, pos := range l.Positions() {
		if pos.Symbol == rec.Symbol {
			p := pos
			position = &p
			break
		}
	}

	slog.Info("order executed",
		"trade_id", rec.ID,
		"owner", rec.OwnerID,
		"symbol", rec.Symbol,
		"action", rec.Action,
		"qty", rec.Quantity,
		"price", rec.Price.String(),
	)

	// Broadcast execution via WebSocket so dashboards refresh without
	// polling.
	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:     "order_executed",
			OwnerID:  rec.OwnerID,
			Symbol:   rec.Symbol,
			Action:   string(rec.Action),
			Quantity: rec.Quantity,
			Price:    rec.Price.String(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(OrderResponse{Trade: rec, Position: position})
}

// GetPositions handles GET /api/v1/positions/{ownerID}
// Returns the owner's open positions, ordered by symbol.
func (s *Service) GetPositions(w http.ResponseWriter, r *http.Request) {
	l, ok := s.resolveLedger(w, r)
	if !ok {
		return
	}

	positions := l.Positions()
	if positions == nil {
		positions = []model.Position{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(positions)
}

// GetHistory handles GET /api/v1/history/{ownerID}
// Returns the owner's trade history, most recent first.
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	l, ok := s.resolveLedger(w, r)
	if !ok {
		return
	}

	history := l.History()
	if history == nil {
		history = []model.TradeRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(history)
}

// GetPortfolio handles GET /api/v1/portfolio/{ownerID}
// Returns the owner's positions marked to market with P&L totals.
func (s *Service) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	l, ok := s.resolveLedger(w, r)
	if !ok {
		return
	}

	report := valuation.Value(r.Context(), l, s.oracle)

	for _, row := range report.Rows {
		if row.QuoteUnavailable {
			metrics.QuoteLookups.WithLabelValues("unavailable").Inc()
		} else {
			metrics.QuoteLookups.WithLabelValues("ok").Inc()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// resolveLedger fetches the ledger for the ownerID URL parameter,
// writing the error response itself when resolution fails.
func (s *Service) resolveLedger(w http.ResponseWriter, r *http.Request) (*ledger.Ledger, bool) {
	ownerID := chi.URLParam(r, "ownerID")

	l, err := s.registry.GetLedger(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidOwner) {
			writeError(w, err.Error(), http.StatusBadRequest)
		} else {
			writeError(w, "failed to resolve ledger", http.StatusInternalServerError)
		}
		return nil, false
	}
	return l, true
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
