package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/indexiq/paper-engine/internal/model"
)

// PostgresJournal implements Journal using PostgreSQL as the source of
// truth. Prices are stored as NUMERIC for exact decimal precision.
//
// Expected schema:
//
//	CREATE TABLE trades (
//	    seq         BIGSERIAL PRIMARY KEY,  -- insertion order for replay
//	    id          UUID        NOT NULL UNIQUE,
//	    owner_id    TEXT        NOT NULL,
//	    symbol      TEXT        NOT NULL,
//	    action      TEXT        NOT NULL,   -- 'BUY' or 'SELL'
//	    quantity    BIGINT      NOT NULL,
//	    price       NUMERIC     NOT NULL,
//	    executed_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX trades_owner_idx ON trades (owner_id, seq);
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// NewPostgresJournal creates a new PostgreSQL-backed journal.
func NewPostgresJournal(pool *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{pool: pool}
}

func (j *PostgresJournal) AppendTrade(ctx context.Context, rec model.TradeRecord) error {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO trades (id, owner_id, symbol, action, quantity, price, executed_at)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7)`,
		rec.ID, rec.OwnerID, rec.Symbol, string(rec.Action),
		rec.Quantity, rec.Price.String(), rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append trade %s: %w", rec.ID, err)
	}
	return nil
}

func (j *PostgresJournal) TradesByOwner(ctx context.Context, ownerID string) ([]model.TradeRecord, error) {
	rows, err := j.pool.Query(ctx,
		`SELECT id, owner_id, symbol, action, quantity, price::TEXT, executed_at
		 FROM trades WHERE owner_id = $1 ORDER BY seq`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("trades for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	var records []model.TradeRecord
	for rows.Next() {
		var rec model.TradeRecord
		var action, priceS string

		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Symbol, &action,
			&rec.Quantity, &priceS, &rec.Timestamp); err != nil {
			return nil, err
		}

		rec.Action = model.Action(action)
		rec.Price, err = decimal.NewFromString(priceS)
		if err != nil {
			return nil, fmt.Errorf("trade %s: bad price %q: %w", rec.ID, priceS, err)
		}

		records = append(records, rec)
	}
	return records, rows.Err()
}
