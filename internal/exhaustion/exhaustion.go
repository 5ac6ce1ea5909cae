// Package exhaustion implements the capital-vs-time control law: how much of
// each direction's tradeable balance has been consumed relative to what the
// session started with.
package exhaustion

import (
	"fmt"
	"math"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

// ratioScale rounds exhaustion ratios to 5 decimal places at the reporting
// boundary.
const ratioScale = 1e5

// Compute returns the per-direction exhaustion rate for the given ledger
// state at the given mid price (average of the two markets' midpoints).
//
// Per direction the target balance side is whichever side is expected to
// deplete first under that direction's trade flow: the side whose remaining
// value (KRW vs coin converted to KRW at mid price) is smaller. Measuring
// against the more-depleted-looking side keeps the pacing conservative.
func Compute(ledger domain.RevenueLedgerRecord, midPrice float64) (map[domain.Direction]float64, error) {
	rates := make(map[domain.Direction]float64, len(domain.Directions))
	for _, dir := range domain.Directions {
		rate, err := computeDirection(ledger, dir, midPrice)
		if err != nil {
			return nil, fmt.Errorf("exhaustion: %s: %w", dir, err)
		}
		rates[dir] = rate
	}
	return rates, nil
}

func computeDirection(ledger domain.RevenueLedgerRecord, dir domain.Direction, midPrice float64) (float64, error) {
	var krwRemaining, coinRemaining float64
	var initial, current float64

	switch dir {
	case domain.DirectionNew:
		// NEW spends mm1 KRW buying and mm2 coin selling.
		krwRemaining = ledger.CurrentBalance.KRW.MM1
		coinRemaining = ledger.CurrentBalance.Coin.MM2 * midPrice
		if krwRemaining >= coinRemaining {
			initial, current = ledger.InitialBalance.Coin.MM2, ledger.CurrentBalance.Coin.MM2
		} else {
			initial, current = ledger.InitialBalance.KRW.MM1, ledger.CurrentBalance.KRW.MM1
		}
	case domain.DirectionRev:
		krwRemaining = ledger.CurrentBalance.KRW.MM2
		coinRemaining = ledger.CurrentBalance.Coin.MM1 * midPrice
		if krwRemaining >= coinRemaining {
			initial, current = ledger.InitialBalance.Coin.MM1, ledger.CurrentBalance.Coin.MM1
		} else {
			initial, current = ledger.InitialBalance.KRW.MM2, ledger.CurrentBalance.KRW.MM2
		}
	default:
		return 0, fmt.Errorf("unknown direction %q", dir)
	}

	if initial == 0 {
		return 0, domain.ErrZeroInitialBalance
	}
	return math.Round(current/initial*ratioScale) / ratioScale, nil
}
