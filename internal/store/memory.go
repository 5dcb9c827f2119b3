package store

import (
	"context"
	"sync"

	"github.com/indexiq/paper-engine/internal/model"
)

// MemoryJournal implements Journal with an in-memory slice. Used for
// testing and development. Not suitable for production (no persistence).
type MemoryJournal struct {
	mu     sync.RWMutex
	trades []model.TradeRecord
}

// NewMemoryJournal creates a new in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) AppendTrade(_ context.Context, rec model.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.trades = append(j.trades, rec)
	return nil
}

func (j *MemoryJournal) TradesByOwner(_ context.Context, ownerID string) ([]model.TradeRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var result []model.TradeRecord
	for _, rec := range j.trades {
		if rec.OwnerID == ownerID {
			result = append(result, rec)
		}
	}
	return result, nil
}
