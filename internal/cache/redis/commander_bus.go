package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

// commanderChannel is the Pub/Sub channel the executor subscribes to for
// low-latency decision delivery.
const commanderChannel = "commander:trade"

// commanderStream mirrors the channel as a capped Redis stream so an executor
// restarting mid-session can catch up on recent decisions.
const commanderStream = "commander:trade:stream"

// streamMaxLen is the approximate maximum stream length, enforced via
// XADD MAXLEN ~.
const streamMaxLen int64 = 10000

// CommanderBus implements domain.CommanderBus using Redis Pub/Sub for
// ephemeral delivery and a Redis Stream for durable, ordered catch-up.
type CommanderBus struct {
	rdb *redis.Client
}

// NewCommanderBus creates a CommanderBus backed by the given Client.
func NewCommanderBus(c *Client) *CommanderBus {
	return &CommanderBus{rdb: c.Underlying()}
}

// Publish fans one decision record out to the channel and the stream.
func (cb *CommanderBus) Publish(ctx context.Context, rec domain.TradeCommanderRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal commander record: %w", err)
	}

	if err := cb.rdb.Publish(ctx, commanderChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", commanderChannel, err)
	}

	args := &redis.XAddArgs{
		Stream: commanderStream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
		},
	}
	if err := cb.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", commanderStream, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.CommanderBus = (*CommanderBus)(nil)
