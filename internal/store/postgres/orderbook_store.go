package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

// OrderbookStore persists orderbook snapshots and reads them back paired by
// request-time bucket.
type OrderbookStore struct {
	client *Client
}

var _ domain.OrderbookStore = (*OrderbookStore)(nil)

// NewOrderbookStore creates an OrderbookStore backed by the given client.
func NewOrderbookStore(client *Client) *OrderbookStore {
	return &OrderbookStore{client: client}
}

// Insert appends one snapshot. Re-inserting a snapshot for an
// exchange+currency+request_time already on record is a no-op, so the
// collection job can retry without duplicating history.
func (s *OrderbookStore) Insert(ctx context.Context, snap domain.OrderbookSnapshot) error {
	asks, err := json.Marshal(snap.Asks)
	if err != nil {
		return fmt.Errorf("orderbook store: marshal asks: %w", err)
	}
	bids, err := json.Marshal(snap.Bids)
	if err != nil {
		return fmt.Errorf("orderbook store: marshal bids: %w", err)
	}

	const q = `
		INSERT INTO orderbook_history (exchange, currency, request_time, asks, bids)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (exchange, currency, request_time) DO NOTHING`
	if _, err := s.client.pool.Exec(ctx, q,
		snap.Exchange, snap.Currency, snap.RequestTime, asks, bids,
	); err != nil {
		return fmt.Errorf("orderbook store: insert %s/%s: %w", snap.Exchange, snap.Currency, err)
	}
	return nil
}

// PairedRange fetches snapshots for both exchanges between start and end
// (inclusive), ascending by request time, and zips them into pairs. The two
// histories must line up exactly; misalignment means the collection job
// dropped a side and the caller must not analyze the range.
func (s *OrderbookStore) PairedRange(ctx context.Context, mm1, mm2, currency string, start, end int64) ([]domain.OrderbookPair, error) {
	mm1Snaps, err := s.rangeFor(ctx, mm1, currency, start, end)
	if err != nil {
		return nil, err
	}
	mm2Snaps, err := s.rangeFor(ctx, mm2, currency, start, end)
	if err != nil {
		return nil, err
	}

	if len(mm1Snaps) != len(mm2Snaps) {
		return nil, fmt.Errorf("orderbook store: %s has %d snapshots, %s has %d: %w",
			mm1, len(mm1Snaps), mm2, len(mm2Snaps), domain.ErrPairCountMismatch)
	}

	pairs := make([]domain.OrderbookPair, len(mm1Snaps))
	for i := range mm1Snaps {
		if mm1Snaps[i].RequestTime != mm2Snaps[i].RequestTime {
			return nil, fmt.Errorf("orderbook store: request times %d and %d at index %d: %w",
				mm1Snaps[i].RequestTime, mm2Snaps[i].RequestTime, i, domain.ErrPairTimeMismatch)
		}
		pairs[i] = domain.OrderbookPair{MM1: mm1Snaps[i], MM2: mm2Snaps[i]}
	}
	return pairs, nil
}

// LatestPair fetches the pair for the most recent request time both exchanges
// share. Returns domain.ErrNotFound when no shared bucket exists yet.
func (s *OrderbookStore) LatestPair(ctx context.Context, mm1, mm2, currency string) (domain.OrderbookPair, error) {
	const q = `
		SELECT a.request_time
		FROM orderbook_history a
		JOIN orderbook_history b
		  ON b.request_time = a.request_time AND b.currency = a.currency
		WHERE a.exchange = $1 AND b.exchange = $2 AND a.currency = $3
		ORDER BY a.request_time DESC
		LIMIT 1`

	var requestTime int64
	err := s.client.pool.QueryRow(ctx, q, mm1, mm2, currency).Scan(&requestTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OrderbookPair{}, fmt.Errorf("orderbook store: no paired snapshot for %s/%s %s: %w",
			mm1, mm2, currency, domain.ErrNotFound)
	}
	if err != nil {
		return domain.OrderbookPair{}, fmt.Errorf("orderbook store: latest pair time: %w", err)
	}

	pairs, err := s.PairedRange(ctx, mm1, mm2, currency, requestTime, requestTime)
	if err != nil {
		return domain.OrderbookPair{}, err
	}
	if len(pairs) == 0 {
		return domain.OrderbookPair{}, fmt.Errorf("orderbook store: pair at %d vanished: %w",
			requestTime, domain.ErrNotFound)
	}
	return pairs[0], nil
}

func (s *OrderbookStore) rangeFor(ctx context.Context, exchange, currency string, start, end int64) ([]domain.OrderbookSnapshot, error) {
	const q = `
		SELECT exchange, currency, request_time, asks, bids
		FROM orderbook_history
		WHERE exchange = $1 AND currency = $2 AND request_time BETWEEN $3 AND $4
		ORDER BY request_time ASC`

	rows, err := s.client.pool.Query(ctx, q, exchange, currency, start, end)
	if err != nil {
		return nil, fmt.Errorf("orderbook store: range %s/%s: %w", exchange, currency, err)
	}
	defer rows.Close()

	var snaps []domain.OrderbookSnapshot
	for rows.Next() {
		var (
			snap       domain.OrderbookSnapshot
			asks, bids []byte
		)
		if err := rows.Scan(&snap.Exchange, &snap.Currency, &snap.RequestTime, &asks, &bids); err != nil {
			return nil, fmt.Errorf("orderbook store: scan: %w", err)
		}
		if err := json.Unmarshal(asks, &snap.Asks); err != nil {
			return nil, fmt.Errorf("orderbook store: unmarshal asks: %w", err)
		}
		if err := json.Unmarshal(bids, &snap.Bids); err != nil {
			return nil, fmt.Errorf("orderbook store: unmarshal bids: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orderbook store: iterate: %w", err)
	}
	return snaps, nil
}
