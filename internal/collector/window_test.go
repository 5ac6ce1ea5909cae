package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoulquant/arbstreamer/internal/analyzer"
	"github.com/seoulquant/arbstreamer/internal/domain"
)

// pairAt builds one paired snapshot at ts. When tradable, mm2 bids well above
// mm1 asks so the new direction clears; the rev direction never clears because
// mm2 asks always sit above mm1 bids.
func pairAt(ts int64, tradable bool) domain.OrderbookPair {
	mm2Bid := 95.0
	if tradable {
		mm2Bid = 110.0
	}
	return domain.OrderbookPair{
		MM1: domain.OrderbookSnapshot{
			Exchange:    "upbit",
			Currency:    "bch",
			RequestTime: ts,
			Asks:        []domain.PriceLevel{{Price: 100, Size: 5}},
			Bids:        []domain.PriceLevel{{Price: 99, Size: 5}},
		},
		MM2: domain.OrderbookSnapshot{
			Exchange:    "bithumb",
			Currency:    "bch",
			RequestTime: ts,
			Asks:        []domain.PriceLevel{{Price: 120, Size: 5}},
			Bids:        []domain.PriceLevel{{Price: mm2Bid, Size: 5}},
		},
	}
}

func pairsFromPattern(start, step int64, pattern []bool) []domain.OrderbookPair {
	pairs := make([]domain.OrderbookPair, len(pattern))
	for i, tradable := range pattern {
		pairs[i] = pairAt(start+int64(i)*step, tradable)
	}
	return pairs
}

var windowTestCfg = analyzer.Config{MinTradableCoin: 1.0, Depth: 5}

func TestCollectMergesConsecutiveTradableSlices(t *testing.T) {
	// T T F T T T: two windows, [0,10] and [30,50].
	pairs := pairsFromPattern(0, 10, []bool{true, true, false, true, true, true})

	res, err := Collect(pairs, windowTestCfg, 0)
	require.NoError(t, err)

	windows := res.Windows[domain.DirectionNew]
	require.Len(t, windows, 2)
	assert.Equal(t, int64(0), windows[0].StartTime)
	assert.Equal(t, int64(10), windows[0].EndTime)
	assert.Equal(t, int64(30), windows[1].StartTime)
	assert.Equal(t, int64(50), windows[1].EndTime)

	assert.Equal(t, int64(30), res.DurationTotals[domain.DirectionNew])
	assert.Empty(t, res.Windows[domain.DirectionRev])
	assert.Equal(t, int64(0), res.DurationTotals[domain.DirectionRev])
	assert.Equal(t, int64(30), res.TotalDuration())
	assert.Equal(t, 6, res.PairsEvaluated)
}

func TestCollectDropsWindowsShorterThanConsecutionTime(t *testing.T) {
	pairs := pairsFromPattern(0, 10, []bool{true, true, false, true, true, true})

	res, err := Collect(pairs, windowTestCfg, 15)
	require.NoError(t, err)

	// The 10-second window is dropped, the 20-second one kept.
	windows := res.Windows[domain.DirectionNew]
	require.Len(t, windows, 1)
	assert.Equal(t, int64(30), windows[0].StartTime)
	assert.Equal(t, int64(20), windows[0].Duration())
	assert.Equal(t, int64(20), res.DurationTotals[domain.DirectionNew])
}

func TestCollectSpreadRatioAndMaxUnitSpread(t *testing.T) {
	pairs := pairsFromPattern(0, 10, []bool{true, false, true, false})

	res, err := Collect(pairs, windowTestCfg, 0)
	require.NoError(t, err)

	assert.Equal(t, 0.5, res.SpreadRatio[domain.DirectionNew])
	assert.Equal(t, 0.0, res.SpreadRatio[domain.DirectionRev])
	// Zero fees: unit spread is (110-100)/100.
	assert.InDelta(t, 0.1, res.MaxUnitSpread[domain.DirectionNew], 1e-12)
	assert.Equal(t, 0.0, res.MaxUnitSpread[domain.DirectionRev])
}

func TestCollectHourOfHistoryFindsSingleWindow(t *testing.T) {
	// One synthetic hour of paired books at a 5-second cadence. For ten
	// minutes, [1200, 1800), venue B bids above venue A asks by enough to
	// survive both taker fees; outside that stretch B bids below A. The rev
	// direction never clears: B asks always sit above A bids.
	var pairs []domain.OrderbookPair
	for ts := int64(0); ts <= 3600; ts += 5 {
		bBid := 99.0
		if ts >= 1200 && ts < 1800 {
			bBid = 101.0
		}
		pairs = append(pairs, domain.OrderbookPair{
			MM1: domain.OrderbookSnapshot{
				Exchange:    "upbit",
				Currency:    "bch",
				RequestTime: ts,
				Asks:        []domain.PriceLevel{{Price: 100, Size: 5}},
				Bids:        []domain.PriceLevel{{Price: 99, Size: 5}},
			},
			MM2: domain.OrderbookSnapshot{
				Exchange:    "bithumb",
				Currency:    "bch",
				RequestTime: ts,
				Asks:        []domain.PriceLevel{{Price: 103, Size: 5}},
				Bids:        []domain.PriceLevel{{Price: bBid, Size: 5}},
			},
		})
	}

	cfg := analyzer.Config{
		MM1TakerFee:     0.001,
		MM2TakerFee:     0.00075,
		MinTradableCoin: 1.0,
		Depth:           5,
	}

	res, err := Collect(pairs, cfg, 30)
	require.NoError(t, err)

	assert.Equal(t, 721, res.PairsEvaluated)

	windows := res.Windows[domain.DirectionNew]
	require.Len(t, windows, 1)
	assert.Equal(t, int64(1200), windows[0].StartTime)
	assert.Equal(t, int64(1795), windows[0].EndTime)
	assert.Equal(t, int64(595), res.DurationTotals[domain.DirectionNew])

	assert.Empty(t, res.Windows[domain.DirectionRev])
	assert.Equal(t, int64(0), res.DurationTotals[domain.DirectionRev])

	// Inside the window: buy 1.0 at 100 costs 100.1 with fee, sell 1.0 at 101
	// nets 100.92425.
	assert.InDelta(t, (100.92425-100.1)/100.1, res.MaxUnitSpread[domain.DirectionNew], 1e-12)
}

func TestCollectEmptyInput(t *testing.T) {
	res, err := Collect(nil, windowTestCfg, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.PairsEvaluated)
	assert.Empty(t, res.Windows[domain.DirectionNew])
	assert.Equal(t, int64(0), res.TotalDuration())
}

func TestCollectRejectsUnorderedSequence(t *testing.T) {
	pairs := []domain.OrderbookPair{pairAt(20, true), pairAt(10, true)}

	_, err := Collect(pairs, windowTestCfg, 0)
	require.ErrorIs(t, err, domain.ErrUnorderedSequence)
}

func TestCollectRejectsMisalignedPair(t *testing.T) {
	pair := pairAt(10, true)
	pair.MM2.RequestTime = 11

	_, err := Collect([]domain.OrderbookPair{pair}, windowTestCfg, 0)
	require.ErrorIs(t, err, domain.ErrPairTimeMismatch)
}

func TestPairZipsAlignedSnapshots(t *testing.T) {
	a := pairAt(10, true)
	b := pairAt(20, false)

	pairs, err := Pair(
		[]domain.OrderbookSnapshot{a.MM1, b.MM1},
		[]domain.OrderbookSnapshot{a.MM2, b.MM2},
	)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, int64(10), pairs[0].MM1.RequestTime)
	assert.Equal(t, "bithumb", pairs[1].MM2.Exchange)
}

func TestPairCountMismatch(t *testing.T) {
	a := pairAt(10, true)

	_, err := Pair([]domain.OrderbookSnapshot{a.MM1}, nil)
	require.ErrorIs(t, err, domain.ErrPairCountMismatch)
}

func TestPairTimeMismatch(t *testing.T) {
	a := pairAt(10, true)
	b := pairAt(10, true)
	b.MM2.RequestTime = 12

	_, err := Pair([]domain.OrderbookSnapshot{a.MM1}, []domain.OrderbookSnapshot{b.MM2})
	require.ErrorIs(t, err, domain.ErrPairTimeMismatch)
}
