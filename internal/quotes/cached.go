package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedOracle wraps a primary Oracle with a Redis read-through cache.
// Reads check Redis first then fall back to the primary; fresh quotes
// are cached with a TTL. Unavailable quotes are never cached, so a
// symbol becomes visible as soon as the primary can price it.
type CachedOracle struct {
	primary Oracle
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedOracle creates a cached wrapper around a primary oracle.
func NewCachedOracle(primary Oracle, rdb *redis.Client, ttl time.Duration) *CachedOracle {
	return &CachedOracle{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (o *CachedOracle) GetPrice(ctx context.Context, symbol string) (Quote, error) {
	key := quoteKey(symbol)

	// Try cache.
	data, err := o.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var q Quote
		if json.Unmarshal(data, &q) == nil {
			return q, nil
		}
	}

	// Cache miss: ask the primary.
	q, err := o.primary.GetPrice(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}

	if data, err := json.Marshal(q); err == nil {
		o.rdb.Set(ctx, key, data, o.ttl)
	}
	return q, nil
}

func quoteKey(symbol string) string { return fmt.Sprintf("quote:%s", symbol) }
