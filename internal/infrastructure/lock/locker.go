// Package lock lock por tenant para que dos workers no reconcilien el mismo tenant.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
)

const keyPrefix = "lock:"

// Locker implementa ebilling.Locker sobre bsm/redislock.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewClient abre el cliente y hace ping.
func NewClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// New ttl debe cubrir el presupuesto por tenant del worker.
func New(rdb redis.UniversalClient, ttl time.Duration) *Locker {
	return &Locker{client: redislock.New(rdb), ttl: ttl}
}

// Obtain sin reintentos: si otro worker tiene el tenant, se salta esta pasada.
func (l *Locker) Obtain(ctx context.Context, key string) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, keyPrefix+key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", domain.ErrLocked, key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			return nil
		}
		return err
	}, nil
}
