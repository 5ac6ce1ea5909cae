package domain

// Direction is one of the two arbitrage trade directions.
type Direction string

const (
	// DirectionNew buys the target currency on mm1 and sells it on mm2.
	DirectionNew Direction = "new"
	// DirectionRev buys the target currency on mm2 and sells it on mm1.
	DirectionRev Direction = "rev"
)

// Directions lists both trade directions in canonical order.
var Directions = []Direction{DirectionNew, DirectionRev}

// Spread-evaluation failure reasons. These are normal control flow, not
// errors: a snapshot that cannot fill the minimum tradable unit simply yields
// AbleToTrade=false with the reason recorded.
const (
	FailReasonMissingSide       = "stale or missing orderbook side"
	FailReasonInsufficientDepth = "insufficient depth for min tradable coin"
	FailReasonNonPositiveSpread = "non-positive spread"
)

// SpreadEvaluation is the per-direction result of one analysis call. Produced
// fresh per call and never mutated.
type SpreadEvaluation struct {
	Direction       Direction
	AbleToTrade     bool
	FailReason      string
	SpreadToTrade   float64
	BuyOrderAmount  float64
	SellOrderAmount float64
}

// OpportunityWindow is a maximal contiguous interval during which
// AbleToTrade held true for one direction. Windows never overlap within a
// direction.
type OpportunityWindow struct {
	Direction Direction
	StartTime int64
	EndTime   int64
}

// Duration returns the window length in seconds.
func (w OpportunityWindow) Duration() int64 {
	return w.EndTime - w.StartTime
}
