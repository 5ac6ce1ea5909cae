// Package analyzer implements the minimum-coin-tradable spread strategy: the
// pure per-snapshot evaluation of whether a cross-exchange arbitrage trade of
// at least the minimum tradable unit is profitable after taker fees.
package analyzer

import "github.com/seoulquant/arbstreamer/internal/domain"

// Config holds the parameters of one evaluation. Fees are fractional taker
// rates (0.001 = 0.1%); MinTradableCoin is the smallest order size worth
// evaluating; Depth bounds how many levels of each book side are consulted.
type Config struct {
	MM1TakerFee     float64
	MM2TakerFee     float64
	MinTradableCoin float64
	Depth           int
}

// Evaluate computes a SpreadEvaluation per direction for one paired snapshot.
// It is side-effect-free and deterministic for identical inputs; no rounding
// is applied internally so repeated evaluations do not compound error.
func Evaluate(pair domain.OrderbookPair, cfg Config) map[domain.Direction]domain.SpreadEvaluation {
	return map[domain.Direction]domain.SpreadEvaluation{
		domain.DirectionNew: evaluateDirection(
			domain.DirectionNew, pair.MM1.Asks, pair.MM2.Bids, cfg.MM1TakerFee, cfg.MM2TakerFee, cfg,
		),
		domain.DirectionRev: evaluateDirection(
			domain.DirectionRev, pair.MM2.Asks, pair.MM1.Bids, cfg.MM2TakerFee, cfg.MM1TakerFee, cfg,
		),
	}
}

// evaluateDirection walks the buy-side asks (ascending) and sell-side bids
// (descending) accumulating matchable volume up to the minimum tradable coin,
// then derives the fee-netted spread.
func evaluateDirection(dir domain.Direction, buyAsks, sellBids []domain.PriceLevel, buyFee, sellFee float64, cfg Config) domain.SpreadEvaluation {
	eval := domain.SpreadEvaluation{Direction: dir}

	if len(buyAsks) == 0 || len(sellBids) == 0 {
		eval.FailReason = domain.FailReasonMissingSide
		return eval
	}

	buyVWAP, buyFilled := realizedPrice(buyAsks, cfg.MinTradableCoin, cfg.Depth)
	sellVWAP, sellFilled := realizedPrice(sellBids, cfg.MinTradableCoin, cfg.Depth)
	if buyFilled < cfg.MinTradableCoin || sellFilled < cfg.MinTradableCoin {
		eval.FailReason = domain.FailReasonInsufficientDepth
		return eval
	}

	netBuyCost := buyVWAP * (1 + buyFee) * cfg.MinTradableCoin
	netSellProceeds := sellVWAP * (1 - sellFee) * cfg.MinTradableCoin

	eval.SpreadToTrade = (netSellProceeds - netBuyCost) / netBuyCost
	eval.BuyOrderAmount = cfg.MinTradableCoin
	eval.SellOrderAmount = cfg.MinTradableCoin

	if eval.SpreadToTrade <= 0 {
		eval.FailReason = domain.FailReasonNonPositiveSpread
		return eval
	}

	eval.AbleToTrade = true
	return eval
}

// realizedPrice accumulates up to qty volume over at most depth levels and
// returns the volume-weighted average price together with the filled volume.
func realizedPrice(levels []domain.PriceLevel, qty float64, depth int) (vwap, filled float64) {
	if depth <= 0 || depth > len(levels) {
		depth = len(levels)
	}

	var cost float64
	for _, lvl := range levels[:depth] {
		take := lvl.Size
		if remaining := qty - filled; take > remaining {
			take = remaining
		}
		if take <= 0 {
			break
		}
		cost += lvl.Price * take
		filled += take
		if filled >= qty {
			break
		}
	}

	if filled == 0 {
		return 0, 0
	}
	return cost / filled, filled
}
