package domain

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is a full snapshot of asks and bids collected from one
// exchange at a given request time. RequestTime is the epoch-second bucket
// shared by every exchange polled in the same collection tick; snapshots from
// two exchanges are "paired" when their RequestTime matches. Immutable once
// persisted.
type OrderbookSnapshot struct {
	Exchange    string
	Currency    string
	RequestTime int64
	Asks        []PriceLevel // ascending price
	Bids        []PriceLevel // descending price
}

// BestAsk returns the lowest ask price, or 0 when the side is empty.
func (s OrderbookSnapshot) BestAsk() float64 {
	if len(s.Asks) == 0 {
		return 0
	}
	return s.Asks[0].Price
}

// BestBid returns the highest bid price, or 0 when the side is empty.
func (s OrderbookSnapshot) BestBid() float64 {
	if len(s.Bids) == 0 {
		return 0
	}
	return s.Bids[0].Price
}

// MidPrice returns the midpoint of the best bid and best ask, or 0 when
// either side is empty.
func (s OrderbookSnapshot) MidPrice() float64 {
	if len(s.Asks) == 0 || len(s.Bids) == 0 {
		return 0
	}
	return (s.Asks[0].Price + s.Bids[0].Price) / 2
}

// OrderbookPair bundles the two snapshots of one RequestTime bucket.
type OrderbookPair struct {
	MM1 OrderbookSnapshot
	MM2 OrderbookSnapshot
}

// MidPrice returns the average of the two books' midpoints.
func (p OrderbookPair) MidPrice() float64 {
	return (p.MM1.MidPrice() + p.MM2.MidPrice()) / 2
}
