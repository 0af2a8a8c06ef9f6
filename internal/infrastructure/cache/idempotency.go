package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

const idempotencyKeyPrefix = "idem:"

// DefaultIdempotencyTTL tiempo que una clave permanece reservada.
const DefaultIdempotencyTTL = 24 * time.Hour

var _ inventory.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore reserva claves con SETNX; una clave reservada expira tras el TTL.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore usa DefaultIdempotencyTTL si ttl <= 0.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Claim devuelve true si la clave no estaba reservada y ahora lo está.
func (s *IdempotencyStore) Claim(ctx context.Context, key string) (bool, error) {
	return s.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, s.ttl).Result()
}

// Release libera la clave para que la operación pueda reintentarse.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}
