package analyzer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

func levels(pairs ...float64) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.PriceLevel{Price: pairs[i], Size: pairs[i+1]})
	}
	return out
}

func TestEvaluateProfitableNewDirection(t *testing.T) {
	pair := domain.OrderbookPair{
		MM1: domain.OrderbookSnapshot{
			Asks: levels(100, 2),
			Bids: levels(99, 2),
		},
		MM2: domain.OrderbookSnapshot{
			Asks: levels(111, 2),
			Bids: levels(110, 2),
		},
	}
	cfg := Config{
		MM1TakerFee:     0.001,
		MM2TakerFee:     0.001,
		MinTradableCoin: 1.0,
		Depth:           5,
	}

	evals := Evaluate(pair, cfg)

	newEval := evals[domain.DirectionNew]
	require.True(t, newEval.AbleToTrade)
	assert.Empty(t, newEval.FailReason)
	// buy 1.0 at 100 costs 100.1 with fee; sell 1.0 at 110 nets 109.89.
	assert.InDelta(t, (109.89-100.1)/100.1, newEval.SpreadToTrade, 1e-12)
	assert.Equal(t, 1.0, newEval.BuyOrderAmount)
	assert.Equal(t, 1.0, newEval.SellOrderAmount)

	// Reverse direction buys at 111 and sells at 99: a loss.
	revEval := evals[domain.DirectionRev]
	require.False(t, revEval.AbleToTrade)
	assert.Equal(t, domain.FailReasonNonPositiveSpread, revEval.FailReason)
	assert.Less(t, revEval.SpreadToTrade, 0.0)
}

func TestEvaluateVWAPAcrossLevels(t *testing.T) {
	// Buying 2.0 takes 1.0 at 100 and 1.0 at 102: VWAP 101.
	pair := domain.OrderbookPair{
		MM1: domain.OrderbookSnapshot{
			Asks: levels(100, 1, 102, 1),
			Bids: levels(99, 5),
		},
		MM2: domain.OrderbookSnapshot{
			Asks: levels(120, 5),
			Bids: levels(110, 2),
		},
	}
	cfg := Config{MinTradableCoin: 2.0, Depth: 5}

	eval := Evaluate(pair, cfg)[domain.DirectionNew]
	require.True(t, eval.AbleToTrade)
	assert.InDelta(t, (110.0-101.0)/101.0, eval.SpreadToTrade, 1e-12)
}

func TestEvaluateFeesEatMarginalSpread(t *testing.T) {
	// Raw prices break even; fees push the net spread negative.
	pair := domain.OrderbookPair{
		MM1: domain.OrderbookSnapshot{
			Asks: levels(100, 5),
			Bids: levels(100, 5),
		},
		MM2: domain.OrderbookSnapshot{
			Asks: levels(100, 5),
			Bids: levels(100, 5),
		},
	}
	cfg := Config{
		MM1TakerFee:     0.001,
		MM2TakerFee:     0.001,
		MinTradableCoin: 1.0,
		Depth:           5,
	}

	for _, dir := range domain.Directions {
		eval := Evaluate(pair, cfg)[dir]
		assert.False(t, eval.AbleToTrade, "direction %s", dir)
		assert.Equal(t, domain.FailReasonNonPositiveSpread, eval.FailReason)
	}
}

func TestEvaluateMissingSide(t *testing.T) {
	pair := domain.OrderbookPair{
		MM1: domain.OrderbookSnapshot{
			Asks: nil,
			Bids: levels(99, 5),
		},
		MM2: domain.OrderbookSnapshot{
			Asks: levels(111, 5),
			Bids: levels(110, 5),
		},
	}
	cfg := Config{MinTradableCoin: 1.0, Depth: 5}

	evals := Evaluate(pair, cfg)
	assert.Equal(t, domain.FailReasonMissingSide, evals[domain.DirectionNew].FailReason)
	assert.False(t, evals[domain.DirectionNew].AbleToTrade)

	// The reverse direction sells into mm1 bids, which exist, and buys from
	// mm2 asks, which exist; it is unaffected by mm1's missing asks.
	assert.NotEqual(t, domain.FailReasonMissingSide, evals[domain.DirectionRev].FailReason)
}

func TestEvaluateInsufficientDepth(t *testing.T) {
	pair := domain.OrderbookPair{
		MM1: domain.OrderbookSnapshot{
			Asks: levels(100, 0.4),
			Bids: levels(99, 5),
		},
		MM2: domain.OrderbookSnapshot{
			Asks: levels(111, 5),
			Bids: levels(110, 5),
		},
	}
	cfg := Config{MinTradableCoin: 1.0, Depth: 5}

	eval := Evaluate(pair, cfg)[domain.DirectionNew]
	assert.False(t, eval.AbleToTrade)
	assert.Equal(t, domain.FailReasonInsufficientDepth, eval.FailReason)
}

func TestEvaluateDepthBoundLimitsFill(t *testing.T) {
	// Plenty of volume past level one, but depth 1 stops the walk short.
	pair := domain.OrderbookPair{
		MM1: domain.OrderbookSnapshot{
			Asks: levels(100, 0.5, 101, 10),
			Bids: levels(99, 10),
		},
		MM2: domain.OrderbookSnapshot{
			Asks: levels(111, 10),
			Bids: levels(110, 10),
		},
	}
	cfg := Config{MinTradableCoin: 1.0, Depth: 1}

	eval := Evaluate(pair, cfg)[domain.DirectionNew]
	assert.False(t, eval.AbleToTrade)
	assert.Equal(t, domain.FailReasonInsufficientDepth, eval.FailReason)
}

func TestEvaluateSpreadMonotonicInGap(t *testing.T) {
	// Widening the sell-side price with everything else fixed must never
	// shrink the net spread.
	cfg := Config{
		MM1TakerFee:     0.001,
		MM2TakerFee:     0.00075,
		MinTradableCoin: 1.0,
		Depth:           5,
	}

	prev := math.Inf(-1)
	for gap := 0.0; gap <= 20.0; gap += 0.5 {
		pair := domain.OrderbookPair{
			MM1: domain.OrderbookSnapshot{
				Asks: levels(100, 5),
				Bids: levels(99, 5),
			},
			MM2: domain.OrderbookSnapshot{
				Asks: levels(130, 5),
				Bids: levels(100+gap, 5),
			},
		}

		spread := Evaluate(pair, cfg)[domain.DirectionNew].SpreadToTrade
		assert.GreaterOrEqual(t, spread, prev, "gap %g", gap)
		prev = spread
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	pair := domain.OrderbookPair{
		MM1: domain.OrderbookSnapshot{
			Asks: levels(100, 1, 101, 3),
			Bids: levels(99, 4),
		},
		MM2: domain.OrderbookSnapshot{
			Asks: levels(112, 2),
			Bids: levels(110, 1, 109, 3),
		},
	}
	cfg := Config{
		MM1TakerFee:     0.0015,
		MM2TakerFee:     0.00075,
		MinTradableCoin: 2.0,
		Depth:           5,
	}

	first := Evaluate(pair, cfg)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(pair, cfg))
	}
}
