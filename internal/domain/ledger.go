package domain

import "fmt"

// SessionMode is the closed set of trade-session phases. The state machine
// only moves forward: initiation -> trading -> settlement.
type SessionMode string

const (
	ModeInitiation SessionMode = "initiation"
	ModeTrading    SessionMode = "trading"
	ModeSettlement SessionMode = "settlement"
)

// ParseSessionMode maps a stored mode string back to a SessionMode. An
// unknown string is a programming error on the caller's side.
func ParseSessionMode(s string) (SessionMode, error) {
	switch SessionMode(s) {
	case ModeInitiation, ModeTrading, ModeSettlement:
		return SessionMode(s), nil
	default:
		return "", fmt.Errorf("unknown session mode %q", s)
	}
}

// MarketBalance splits one asset's balance across the two markets.
type MarketBalance struct {
	MM1   float64
	MM2   float64
	Total float64
}

// BalanceBook is a full balance snapshot: the quote currency (KRW) and the
// target coin, each split per market.
type BalanceBook struct {
	KRW  MarketBalance
	Coin MarketBalance
}

// NewBalanceBook builds a BalanceBook from per-market raw balances, filling
// in the totals.
func NewBalanceBook(mm1KRW, mm2KRW, mm1Coin, mm2Coin float64) BalanceBook {
	return BalanceBook{
		KRW:  MarketBalance{MM1: mm1KRW, MM2: mm2KRW, Total: mm1KRW + mm2KRW},
		Coin: MarketBalance{MM1: mm1Coin, MM2: mm2Coin, Total: mm1Coin + mm2Coin},
	}
}

// RevenueLedgerRecord is one append-only ledger entry. InitialBalance is
// fixed at initiation and byte-identical in every later record of the same
// session; CurrentBalance is overwritten on each update.
type RevenueLedgerRecord struct {
	ID             string
	Time           int64
	Mode           SessionMode
	TargetCurrency string
	MM1Name        string
	MM2Name        string
	InitialBalance BalanceBook
	CurrentBalance BalanceBook
}
