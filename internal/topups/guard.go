package topups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/redis"
)

// IdempotencyGuard short-circuits webhook deliveries already seen within the
// TTL. The ledger reconciliation is idempotent on its own; the guard just
// spares it the work on gateway retries.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark returns true when the event was already processed. A fresh
// event is marked before the caller handles it; pair with Delete on failure so
// the gateway's retry gets another attempt.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	return g.store.Del(ctx, key)
}
