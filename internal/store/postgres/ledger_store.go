package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

// LedgerStore appends revenue_ledger records. Balance books are stored as
// JSONB so the schema survives adding exchanges or assets.
type LedgerStore struct {
	client *Client
}

var _ domain.LedgerStore = (*LedgerStore)(nil)

// NewLedgerStore creates a LedgerStore backed by the given client.
func NewLedgerStore(client *Client) *LedgerStore {
	return &LedgerStore{client: client}
}

// Append writes one ledger record.
func (s *LedgerStore) Append(ctx context.Context, rec domain.RevenueLedgerRecord) error {
	initial, err := json.Marshal(rec.InitialBalance)
	if err != nil {
		return fmt.Errorf("ledger store: marshal initial balance: %w", err)
	}
	current, err := json.Marshal(rec.CurrentBalance)
	if err != nil {
		return fmt.Errorf("ledger store: marshal current balance: %w", err)
	}

	const q = `
		INSERT INTO revenue_ledger (
			id, time, mode, target_currency, mm1_name, mm2_name,
			initial_balance, current_balance
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := s.client.pool.Exec(ctx, q,
		rec.ID, rec.Time, string(rec.Mode), rec.TargetCurrency,
		rec.MM1Name, rec.MM2Name, initial, current,
	); err != nil {
		return fmt.Errorf("ledger store: append: %w", err)
	}
	return nil
}
