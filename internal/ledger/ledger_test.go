package ledger

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

type recordingLedgerStore struct {
	appended []domain.RevenueLedgerRecord
	err      error
}

func (s *recordingLedgerStore) Append(ctx context.Context, rec domain.RevenueLedgerRecord) error {
	if s.err != nil {
		return s.err
	}
	s.appended = append(s.appended, rec)
	return nil
}

func TestInitiateCapturesBalances(t *testing.T) {
	store := &recordingLedgerStore{}
	h := NewHandler(store, slog.Default())

	bal := domain.NewBalanceBook(1_000_000, 2_000_000, 5, 7)
	rec, err := h.Initiate(context.Background(), 1700000000, "bch", "upbit", "bithumb", bal)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, domain.ModeInitiation, rec.Mode)
	assert.Equal(t, "bch", rec.TargetCurrency)
	assert.Equal(t, bal, rec.InitialBalance)
	assert.Equal(t, bal, rec.CurrentBalance)
	assert.Equal(t, 3_000_000.0, rec.InitialBalance.KRW.Total)

	require.Len(t, store.appended, 1)
	assert.Equal(t, rec, store.appended[0])
}

func TestUpdatePreservesInitialBalance(t *testing.T) {
	store := &recordingLedgerStore{}
	h := NewHandler(store, slog.Default())

	initial := domain.NewBalanceBook(1_000_000, 1_000_000, 10, 10)
	first, err := h.Initiate(context.Background(), 100, "bch", "upbit", "bithumb", initial)
	require.NoError(t, err)

	updated := domain.NewBalanceBook(900_000, 1_100_000, 11, 9)
	second, err := h.Update(context.Background(), domain.ModeTrading, 200, updated)
	require.NoError(t, err)

	assert.Equal(t, initial, second.InitialBalance)
	assert.Equal(t, updated, second.CurrentBalance)
	assert.Equal(t, domain.ModeTrading, second.Mode)
	assert.Equal(t, int64(200), second.Time)
	assert.NotEqual(t, first.ID, second.ID)

	third, err := h.Update(context.Background(), domain.ModeSettlement, 300, updated)
	require.NoError(t, err)
	assert.Equal(t, initial, third.InitialBalance)
	assert.Equal(t, domain.ModeSettlement, third.Mode)

	require.Len(t, store.appended, 3)
	assert.Equal(t, third, h.Latest())
}

func TestDoubleInitiateFails(t *testing.T) {
	h := NewHandler(&recordingLedgerStore{}, slog.Default())
	bal := domain.NewBalanceBook(1, 1, 1, 1)

	_, err := h.Initiate(context.Background(), 100, "bch", "upbit", "bithumb", bal)
	require.NoError(t, err)

	_, err = h.Initiate(context.Background(), 200, "bch", "upbit", "bithumb", bal)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already initiated")
}

func TestUpdateBeforeInitiateFails(t *testing.T) {
	h := NewHandler(&recordingLedgerStore{}, slog.Default())

	_, err := h.Update(context.Background(), domain.ModeTrading, 100, domain.BalanceBook{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before initiation")
}

func TestUpdateRejectsInitiationMode(t *testing.T) {
	h := NewHandler(&recordingLedgerStore{}, slog.Default())
	bal := domain.NewBalanceBook(1, 1, 1, 1)

	_, err := h.Initiate(context.Background(), 100, "bch", "upbit", "bithumb", bal)
	require.NoError(t, err)

	_, err = h.Update(context.Background(), domain.ModeInitiation, 200, bal)
	require.Error(t, err)

	_, err = h.Update(context.Background(), domain.SessionMode("bogus"), 200, bal)
	require.Error(t, err)
}

func TestAppendFailureSurfaces(t *testing.T) {
	store := &recordingLedgerStore{err: errors.New("db down")}
	h := NewHandler(store, slog.Default())

	_, err := h.Initiate(context.Background(), 100, "bch", "upbit", "bithumb",
		domain.NewBalanceBook(1, 1, 1, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
