package exhaustion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

func ledgerRecord(initial, current domain.BalanceBook) domain.RevenueLedgerRecord {
	return domain.RevenueLedgerRecord{
		ID:             "test",
		Mode:           domain.ModeTrading,
		TargetCurrency: "bch",
		MM1Name:        "upbit",
		MM2Name:        "bithumb",
		InitialBalance: initial,
		CurrentBalance: current,
	}
}

func TestComputeFreshSessionIsFullyUnexhausted(t *testing.T) {
	bal := domain.NewBalanceBook(1_000_000, 1_000_000, 10, 10)
	rates, err := Compute(ledgerRecord(bal, bal), 100_000)
	require.NoError(t, err)

	assert.Equal(t, 1.0, rates[domain.DirectionNew])
	assert.Equal(t, 1.0, rates[domain.DirectionRev])
}

func TestComputeTargetsSmallerSideNewDirection(t *testing.T) {
	initial := domain.NewBalanceBook(1_000_000, 1_000_000, 10, 10)

	// mm2 coin value (10 * 100k = 1M KRW) equals mm1 KRW, so the coin side is
	// the target. Halving mm2 coin halves the new-direction rate.
	current := domain.NewBalanceBook(1_000_000, 1_000_000, 10, 5)
	rates, err := Compute(ledgerRecord(initial, current), 100_000)
	require.NoError(t, err)
	assert.Equal(t, 0.5, rates[domain.DirectionNew])
	assert.Equal(t, 1.0, rates[domain.DirectionRev])
}

func TestComputeTargetsSmallerSideRevDirection(t *testing.T) {
	initial := domain.NewBalanceBook(1_000_000, 1_000_000, 10, 10)

	// Rev spends mm2 KRW and mm1 coin. Dropping mm2 KRW to 400k makes it the
	// smaller side against 10 coins worth 1M.
	current := domain.NewBalanceBook(1_000_000, 400_000, 10, 10)
	rates, err := Compute(ledgerRecord(initial, current), 100_000)
	require.NoError(t, err)
	assert.Equal(t, 0.4, rates[domain.DirectionRev])
	assert.Equal(t, 1.0, rates[domain.DirectionNew])
}

func TestComputeRoundsToFiveDecimals(t *testing.T) {
	initial := domain.NewBalanceBook(1_000_000, 1_000_000, 3, 3)

	// mm2 coin value (1 * 100k) is far below mm1 KRW: coin side targeted.
	// 1/3 rounds to 0.33333.
	current := domain.NewBalanceBook(1_000_000, 1_000_000, 3, 1)
	rates, err := Compute(ledgerRecord(initial, current), 100_000)
	require.NoError(t, err)
	assert.Equal(t, 0.33333, rates[domain.DirectionNew])
}

func TestComputeZeroInitialBalance(t *testing.T) {
	// mm2 coin starts and stays at zero; its value never exceeds mm1 KRW, so
	// the new direction targets a side with no initial balance to measure
	// against.
	initial := domain.NewBalanceBook(1_000_000, 1_000_000, 10, 0)
	_, err := Compute(ledgerRecord(initial, initial), 100_000)
	require.ErrorIs(t, err, domain.ErrZeroInitialBalance)
}
