package collector

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoulquant/arbstreamer/internal/analyzer"
	"github.com/seoulquant/arbstreamer/internal/domain"
)

type fakeHistoryStore struct {
	// ranges keyed by currency; the ranker only varies the currency in these
	// tests.
	ranges map[string][]domain.OrderbookPair
	errs   map[string]error

	calls [][2]int64
}

func (f *fakeHistoryStore) Insert(ctx context.Context, snap domain.OrderbookSnapshot) error {
	return errors.New("not implemented")
}

func (f *fakeHistoryStore) PairedRange(ctx context.Context, mm1, mm2, currency string, start, end int64) ([]domain.OrderbookPair, error) {
	f.calls = append(f.calls, [2]int64{start, end})
	if err := f.errs[currency]; err != nil {
		return nil, err
	}
	var out []domain.OrderbookPair
	for _, pair := range f.ranges[currency] {
		if pair.MM1.RequestTime >= start && pair.MM1.RequestTime <= end {
			out = append(out, pair)
		}
	}
	return out, nil
}

func (f *fakeHistoryStore) LatestPair(ctx context.Context, mm1, mm2, currency string) (domain.OrderbookPair, error) {
	return domain.OrderbookPair{}, domain.ErrNotFound
}

func rankRequest(currency string) RankRequest {
	return RankRequest{
		Settings: domain.TradeSettings{
			MM1Name:         "upbit",
			MM2Name:         "bithumb",
			TargetCurrency:  currency,
			StartTime:       0,
			EndTime:         1000,
			Division:        2,
			Depth:           5,
			ConsecutionTime: 0,
			IsVirtual:       true,
		},
		Analyzer: analyzer.Config{MinTradableCoin: 1.0, Depth: 5},
	}
}

func TestRankOrdersByTotalDurationDescending(t *testing.T) {
	store := &fakeHistoryStore{ranges: map[string][]domain.OrderbookPair{
		// btc: one 40-second window, bch: one 10-second window, eth: nothing.
		"btc": pairsFromPattern(0, 10, []bool{true, true, true, true, true}),
		"bch": pairsFromPattern(0, 10, []bool{true, true, false, false, false}),
		"eth": pairsFromPattern(0, 10, []bool{false, false, false, false, false}),
	}}
	ranker := NewRanker(store, slog.Default())

	results, err := ranker.Rank(context.Background(),
		[]RankRequest{rankRequest("bch"), rankRequest("eth"), rankRequest("btc")}, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "BTC-UPBIT-BITHUMB", results[0].Combination)
	assert.Equal(t, int64(40), results[0].TotalDuration())
	assert.Equal(t, "BCH-UPBIT-BITHUMB", results[1].Combination)
	assert.Equal(t, int64(10), results[1].TotalDuration())
	assert.Equal(t, "ETH-UPBIT-BITHUMB", results[2].Combination)
	assert.Equal(t, int64(0), results[2].TotalDuration())
}

func TestRankTruncatesToTopN(t *testing.T) {
	store := &fakeHistoryStore{ranges: map[string][]domain.OrderbookPair{
		"btc": pairsFromPattern(0, 10, []bool{true, true, true}),
		"bch": pairsFromPattern(0, 10, []bool{true, true, false}),
		"eth": nil,
	}}
	ranker := NewRanker(store, slog.Default())

	results, err := ranker.Rank(context.Background(),
		[]RankRequest{rankRequest("bch"), rankRequest("eth"), rankRequest("btc")}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "BTC-UPBIT-BITHUMB", results[0].Combination)
	assert.Equal(t, "BCH-UPBIT-BITHUMB", results[1].Combination)
}

func TestRankSkipsFailingCombination(t *testing.T) {
	store := &fakeHistoryStore{
		ranges: map[string][]domain.OrderbookPair{
			"btc": pairsFromPattern(0, 10, []bool{true, true}),
		},
		errs: map[string]error{"bch": errors.New("history unavailable")},
	}
	ranker := NewRanker(store, slog.Default())

	results, err := ranker.Rank(context.Background(),
		[]RankRequest{rankRequest("bch"), rankRequest("btc")}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "BTC-UPBIT-BITHUMB", results[0].Combination)
}

func TestRankSlicesHistoryFetchByDivision(t *testing.T) {
	store := &fakeHistoryStore{ranges: map[string][]domain.OrderbookPair{
		"btc": pairsFromPattern(0, 250, []bool{true, true, true, true, true}),
	}}
	ranker := NewRanker(store, slog.Default())

	req := rankRequest("btc")
	req.Settings.Division = 4

	results, err := ranker.Rank(context.Background(), []RankRequest{req}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Four contiguous sub-range queries covering [0, 1000].
	assert.Equal(t, [][2]int64{
		{0, 249}, {250, 499}, {500, 749}, {750, 1000},
	}, store.calls)

	// The concatenated slices still form one opportunity window over the whole
	// lookback.
	assert.Equal(t, int64(1000), results[0].TotalDuration())
}

func TestRankInvalidSettingsFatal(t *testing.T) {
	bad := rankRequest("bch")
	bad.Settings.MM2Name = bad.Settings.MM1Name

	ranker := NewRanker(&fakeHistoryStore{}, slog.Default())
	_, err := ranker.Rank(context.Background(), []RankRequest{bad}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mm1 and mm2 must differ")
}
