package postgres

import (
	"context"
	"fmt"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

// CommanderStore appends trade_commander decision records.
type CommanderStore struct {
	client *Client
}

var _ domain.CommanderStore = (*CommanderStore)(nil)

// NewCommanderStore creates a CommanderStore backed by the given client.
func NewCommanderStore(client *Client) *CommanderStore {
	return &CommanderStore{client: client}
}

// Append writes one decision record.
func (s *CommanderStore) Append(ctx context.Context, rec domain.TradeCommanderRecord) error {
	const q = `
		INSERT INTO trade_commander (
			id, time, execute_trade, is_time_flow_above_exhaust, is_oppty,
			is_royal_spread, min_tradable_coin, new_spread_threshold,
			new_royal_spread, rev_spread_threshold, rev_royal_spread, settlement
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if _, err := s.client.pool.Exec(ctx, q,
		rec.ID, rec.Time, rec.ExecuteTrade, rec.IsTimeFlowAboveExhaust, rec.IsOppty,
		rec.IsRoyalSpread, rec.MinTradableCoin, rec.NewSpreadThreshold,
		rec.NewRoyalSpread, rec.RevSpreadThreshold, rec.RevRoyalSpread, rec.Settlement,
	); err != nil {
		return fmt.Errorf("commander store: append: %w", err)
	}
	return nil
}
