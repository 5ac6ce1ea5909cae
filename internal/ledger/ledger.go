// Package ledger keeps the revenue ledger: the balance snapshot bookkeeping
// (initial vs current, per market, per asset) for one trading session.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

// Handler owns the in-memory latest ledger record for a session and appends
// every change to the persistent stream. The initial balance is captured once
// at initiation and never changes for the life of the session.
type Handler struct {
	store  domain.LedgerStore
	latest domain.RevenueLedgerRecord
	opened bool
	logger *slog.Logger
}

// NewHandler creates a Handler appending to the given store.
func NewHandler(store domain.LedgerStore, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger.With(slog.String("component", "revenue_ledger")),
	}
}

// Initiate captures the session's initial balance. Both initial and current
// balance are set to the same snapshot, and the record is appended to
// storage. Calling Initiate twice is a programming error.
func (h *Handler) Initiate(ctx context.Context, now int64, currency, mm1Name, mm2Name string, bal domain.BalanceBook) (domain.RevenueLedgerRecord, error) {
	if h.opened {
		return domain.RevenueLedgerRecord{}, fmt.Errorf("ledger: already initiated")
	}

	h.latest = domain.RevenueLedgerRecord{
		ID:             uuid.NewString(),
		Time:           now,
		Mode:           domain.ModeInitiation,
		TargetCurrency: currency,
		MM1Name:        mm1Name,
		MM2Name:        mm2Name,
		InitialBalance: bal,
		CurrentBalance: bal,
	}
	h.opened = true

	if err := h.append(ctx); err != nil {
		return domain.RevenueLedgerRecord{}, err
	}
	return h.latest, nil
}

// Update overwrites the current balance for a trading or settlement tick and
// appends the new record. The initial balance carries over untouched. Any
// other mode is a programming error and fails loudly.
func (h *Handler) Update(ctx context.Context, mode domain.SessionMode, now int64, bal domain.BalanceBook) (domain.RevenueLedgerRecord, error) {
	if !h.opened {
		return domain.RevenueLedgerRecord{}, fmt.Errorf("ledger: update before initiation")
	}

	switch mode {
	case domain.ModeTrading, domain.ModeSettlement:
	case domain.ModeInitiation:
		return domain.RevenueLedgerRecord{}, fmt.Errorf("ledger: initiation mode passed to update")
	default:
		return domain.RevenueLedgerRecord{}, fmt.Errorf("ledger: unknown mode %q", mode)
	}

	h.latest.ID = uuid.NewString()
	h.latest.Time = now
	h.latest.Mode = mode
	h.latest.CurrentBalance = bal

	if err := h.append(ctx); err != nil {
		return domain.RevenueLedgerRecord{}, err
	}
	return h.latest, nil
}

// Latest returns the most recent record held in memory.
func (h *Handler) Latest() domain.RevenueLedgerRecord {
	return h.latest
}

func (h *Handler) append(ctx context.Context) error {
	if err := h.store.Append(ctx, h.latest); err != nil {
		return fmt.Errorf("ledger: append %s record: %w", h.latest.Mode, err)
	}
	h.logger.Debug("ledger record appended",
		slog.String("mode", string(h.latest.Mode)),
		slog.Float64("krw_total", h.latest.CurrentBalance.KRW.Total),
		slog.Float64("coin_total", h.latest.CurrentBalance.Coin.Total),
	)
	return nil
}
