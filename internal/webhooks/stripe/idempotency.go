package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/delicado-shop/delicado-api/pkg/redis"
)

// DefaultScope namespaces Stripe event ids in the idempotency keyspace.
const DefaultScope = "stripe-webhook"

// EventGuard remembers which Stripe event ids have been accepted so retried
// deliveries are acknowledged without being processed again.
type EventGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewEventGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*EventGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	if scope == "" {
		scope = DefaultScope
	}
	return &EventGuard{store: store, ttl: ttl, scope: scope}, nil
}

// Claim marks eventID as seen. It reports true when another delivery already
// claimed it.
func (g *EventGuard) Claim(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.IdempotencyKey(g.scope, eventID), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim stripe event %s: %w", eventID, err)
	}
	return !set, nil
}

// Release forgets eventID so the next delivery is processed again.
func (g *EventGuard) Release(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, eventID))
}
