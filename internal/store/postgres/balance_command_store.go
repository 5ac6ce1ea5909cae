package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

// BalanceCommandStore reads the balance_commander stream written by the
// external executor.
type BalanceCommandStore struct {
	client *Client
}

var _ domain.BalanceCommandStore = (*BalanceCommandStore)(nil)

// NewBalanceCommandStore creates a BalanceCommandStore backed by the given
// client.
func NewBalanceCommandStore(client *Client) *BalanceCommandStore {
	return &BalanceCommandStore{client: client}
}

// Latest returns the most recent command, or domain.ErrNotFound when the
// stream is empty.
func (s *BalanceCommandStore) Latest(ctx context.Context) (domain.BalanceCommand, error) {
	const q = `
		SELECT time, is_bal_update
		FROM balance_commander
		ORDER BY id DESC
		LIMIT 1`

	var cmd domain.BalanceCommand
	err := s.client.pool.QueryRow(ctx, q).Scan(&cmd.Time, &cmd.IsBalanceUpdate)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BalanceCommand{}, fmt.Errorf("balance command store: empty stream: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.BalanceCommand{}, fmt.Errorf("balance command store: latest: %w", err)
	}
	return cmd, nil
}
