// Package store defines the durable trade journal for the paper-trading
// engine. Implementations include PostgreSQL (source of truth) and
// in-memory (for testing and single-process deployments).
//
// The journal is append-only: one row per executed trade. An owner's
// position map is fully reconstructable by replaying the owner's rows in
// insertion order — the journal, not the position map, is the source of
// truth.
package store

import (
	"context"

	"github.com/indexiq/paper-engine/internal/model"
)

// Journal is the append-only persistence interface for trade records.
type Journal interface {
	// AppendTrade appends an immutable trade record. Records are never
	// updated or deleted once written.
	AppendTrade(ctx context.Context, rec model.TradeRecord) error

	// TradesByOwner returns all records for an owner in insertion order,
	// suitable for deterministic ledger replay.
	TradesByOwner(ctx context.Context, ownerID string) ([]model.TradeRecord, error)
}
