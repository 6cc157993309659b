// Package slotlock serialises bursty registration attempts against the same
// role slot. The lock is advisory: the conditional insert in the
// registration store is what actually prevents overfilling, the lock just
// narrows the contention window under a registration rush.
package slotlock

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Lock struct {
	Client *redis.Client
	TTL    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Lock{Client: client, TTL: ttl}
}

func key(eventID, role string) string {
	return "slot_lock:" + eventID + ":" + role
}

// LockSlot acquires the (event, role) lock. Returns false when another
// request holds it.
func (l *Lock) LockSlot(ctx context.Context, eventID, role string) (bool, error) {
	return l.Client.SetNX(ctx, key(eventID, role), "1", l.TTL).Result()
}

// UnlockSlot releases the (event, role) lock. Releasing an expired or
// missing lock is a no-op.
func (l *Lock) UnlockSlot(ctx context.Context, eventID, role string) error {
	_, err := l.Client.Del(ctx, key(eventID, role)).Result()
	if err == redis.Nil {
		return nil
	}
	return err
}
