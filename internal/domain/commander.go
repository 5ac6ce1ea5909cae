package domain

// TradeCommanderRecord is the decision artifact written once per trading-loop
// tick. The external executor reads it from shared storage; this process
// never reads its own writes back.
type TradeCommanderRecord struct {
	ID                     string
	Time                   int64
	ExecuteTrade           bool
	IsTimeFlowAboveExhaust bool
	IsOppty                bool
	IsRoyalSpread          bool
	MinTradableCoin        float64
	NewSpreadThreshold     float64
	NewRoyalSpread         float64
	RevSpreadThreshold     float64
	RevRoyalSpread         float64
	Settlement             bool
}

// BalanceCommand is the external executor's request for a balance refresh.
// The streamer reads the most recent command each tick and only re-pulls live
// balances when IsBalanceUpdate is set, which bounds market API call volume.
type BalanceCommand struct {
	Time            int64
	IsBalanceUpdate bool
}
