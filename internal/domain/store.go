package domain

import "context"

// OrderbookStore is the persistent orderbook-history collection, keyed by
// exchange+currency. History is append-only; pairing is validated on read.
type OrderbookStore interface {
	// Insert appends one snapshot to the history.
	Insert(ctx context.Context, snap OrderbookSnapshot) error
	// PairedRange fetches paired snapshots for two exchanges between two
	// timestamps (inclusive), ordered by ascending request time. It fails
	// with a data-integrity error when the two collections are misaligned.
	PairedRange(ctx context.Context, mm1, mm2, currency string, start, end int64) ([]OrderbookPair, error)
	// LatestPair fetches the most recent paired snapshot.
	LatestPair(ctx context.Context, mm1, mm2, currency string) (OrderbookPair, error)
}

// CommanderStore is the append-only trade_commander stream. Write-only from
// this process; the external executor consumes it.
type CommanderStore interface {
	Append(ctx context.Context, rec TradeCommanderRecord) error
}

// LedgerStore is the append-only revenue_ledger stream.
type LedgerStore interface {
	Append(ctx context.Context, rec RevenueLedgerRecord) error
}

// BalanceCommandStore reads the balance_commander stream, most recent first.
type BalanceCommandStore interface {
	Latest(ctx context.Context) (BalanceCommand, error)
}

// BookCache is the hot cache holding the latest snapshot per
// exchange+currency. The collection job writes it; the trading loop reads it
// before falling back to the persistent store.
type BookCache interface {
	SetLatest(ctx context.Context, snap OrderbookSnapshot) error
	GetLatest(ctx context.Context, exchange, currency string) (OrderbookSnapshot, error)
}

// CommanderBus publishes each commander record to subscribers as it is
// written. Delivery is best-effort; the persistent stream remains the source
// of truth for the executor.
type CommanderBus interface {
	Publish(ctx context.Context, rec TradeCommanderRecord) error
}
