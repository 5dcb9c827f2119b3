package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/indexiq/paper-engine/internal/store"
)

// ErrInvalidOwner is returned for an empty owner id. Owner ids are
// opaque strings established by the authentication layer; the registry
// only requires them to be non-empty and unique per account.
var ErrInvalidOwner = errors.New("ledger: owner id must not be empty")

// Registry maps an authenticated owner to exactly one Ledger, created
// atomically on first demand. Different owners get fully isolated
// ledgers; state is never merged or transferred between them.
type Registry struct {
	journal store.Journal // nil for purely in-memory operation

	mu      sync.Mutex
	ledgers map[string]*Ledger
}

// NewRegistry creates a registry. When j is non-nil, new ledgers are
// seeded by replaying the owner's journal rows and every executed order
// is appended to j.
func NewRegistry(j store.Journal) *Registry {
	return &Registry{
		journal: j,
		ledgers: make(map[string]*Ledger),
	}
}

// GetLedger returns the ledger for ownerID, creating it on first use.
// Concurrent calls for the same new owner observe the same instance.
func (r *Registry) GetLedger(ctx context.Context, ownerID string) (*Ledger, error) {
	if ownerID == "" {
		return nil, ErrInvalidOwner
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.ledgers[ownerID]; ok {
		return l, nil
	}

	l := newLedger(ownerID, r.journal)
	if r.journal != nil {
		records, err := r.journal.TradesByOwner(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("load ledger for %s: %w", ownerID, err)
		}
		if err := l.Replay(records); err != nil {
			return nil, fmt.Errorf("rebuild ledger for %s: %w", ownerID, err)
		}
	}

	r.ledgers[ownerID] = l
	return l, nil
}
