package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

// bookTTL bounds staleness: a cached book older than this has been abandoned
// by the collection job and readers must fall back to the persistent store.
const bookTTL = 30 * time.Second

// BookCache implements domain.BookCache with one JSON value per
// exchange+currency, overwritten on every collection tick.
//
// Key schema:
//
//	book:{exchange}:{currency} - JSON-encoded latest OrderbookSnapshot
type BookCache struct {
	rdb *redis.Client
}

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client) *BookCache {
	return &BookCache{rdb: c.Underlying()}
}

func bookKey(exchange, currency string) string {
	return "book:" + exchange + ":" + currency
}

// SetLatest overwrites the cached snapshot for the snapshot's
// exchange+currency.
func (bc *BookCache) SetLatest(ctx context.Context, snap domain.OrderbookSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal book %s/%s: %w", snap.Exchange, snap.Currency, err)
	}
	key := bookKey(snap.Exchange, snap.Currency)
	if err := bc.rdb.Set(ctx, key, data, bookTTL).Err(); err != nil {
		return fmt.Errorf("redis: set book %s: %w", key, err)
	}
	return nil
}

// GetLatest returns the cached snapshot, or domain.ErrNotFound when the key
// is missing or expired.
func (bc *BookCache) GetLatest(ctx context.Context, exchange, currency string) (domain.OrderbookSnapshot, error) {
	key := bookKey(exchange, currency)
	data, err := bc.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: book %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: get book %s: %w", key, err)
	}

	var snap domain.OrderbookSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: unmarshal book %s: %w", key, err)
	}
	return snap, nil
}

// Compile-time interface check.
var _ domain.BookCache = (*BookCache)(nil)
