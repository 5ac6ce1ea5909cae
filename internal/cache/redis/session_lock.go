package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

// unlockLua deletes a lock key only if its value matches the caller's unique
// token, so one holder cannot release another holder's lock.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// SessionLock guards a market-pair trading session so two streamer processes
// never write the same commander stream concurrently. Built on SETNX with a
// TTL and a Lua-based conditional unlock.
type SessionLock struct {
	rdb      *redis.Client
	unlockSc *redis.Script
}

// NewSessionLock creates a SessionLock backed by the given Client.
func NewSessionLock(c *Client) *SessionLock {
	return &SessionLock{
		rdb:      c.Underlying(),
		unlockSc: redis.NewScript(unlockLua),
	}
}

func sessionKey(mm1, mm2, currency string) string {
	return "session:" + mm1 + ":" + mm2 + ":" + currency
}

// Acquire attempts to claim the session for a market pair and currency with
// the given TTL. On success it returns a release function that is safe to
// call more than once. Returns domain.ErrSessionHeld when another process
// already holds the session.
func (sl *SessionLock) Acquire(ctx context.Context, mm1, mm2, currency string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	key := sessionKey(mm1, mm2, currency)

	ok, err := sl.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire session %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("redis: session %s: %w", key, domain.ErrSessionHeld)
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true

		// Background context so release succeeds even when the caller's
		// context is already cancelled.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = sl.unlockSc.Run(unlockCtx, sl.rdb, []string{key}, token).Err()
	}

	return release, nil
}
