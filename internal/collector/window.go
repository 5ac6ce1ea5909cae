// Package collector turns paired orderbook history into discrete opportunity
// windows and duration statistics, and runs the periodic snapshot-collection
// job that produces that history in the first place.
package collector

import (
	"fmt"

	"github.com/seoulquant/arbstreamer/internal/analyzer"
	"github.com/seoulquant/arbstreamer/internal/domain"
)

// Result is the output of one window-collection run.
type Result struct {
	Windows        map[domain.Direction][]domain.OpportunityWindow
	DurationTotals map[domain.Direction]int64
	SpreadRatio    map[domain.Direction]float64
	MaxUnitSpread  map[domain.Direction]float64
	PairsEvaluated int
}

// TotalDuration sums both directions' opportunity durations.
func (r Result) TotalDuration() int64 {
	return r.DurationTotals[domain.DirectionNew] + r.DurationTotals[domain.DirectionRev]
}

// Pair zips two snapshot collections into a paired sequence. The collections
// must have identical counts and aligned request times at every index; a
// mismatch is a data-integrity error, never silently skipped.
func Pair(mm1, mm2 []domain.OrderbookSnapshot) ([]domain.OrderbookPair, error) {
	if len(mm1) != len(mm2) {
		return nil, fmt.Errorf("pairing %d mm1 snapshots with %d mm2 snapshots: %w",
			len(mm1), len(mm2), domain.ErrPairCountMismatch)
	}
	pairs := make([]domain.OrderbookPair, len(mm1))
	for i := range mm1 {
		if mm1[i].RequestTime != mm2[i].RequestTime {
			return nil, fmt.Errorf("index %d: mm1 at %d, mm2 at %d: %w",
				i, mm1[i].RequestTime, mm2[i].RequestTime, domain.ErrPairTimeMismatch)
		}
		pairs[i] = domain.OrderbookPair{MM1: mm1[i], MM2: mm2[i]}
	}
	return pairs, nil
}

// Collect evaluates the paired sequence slice by slice and merges tradable
// moments into contiguous opportunity windows per direction. The sequence
// must be in non-decreasing request-time order; unordered input fails before
// any evaluation runs. Windows shorter than consecutionTime are dropped.
func Collect(pairs []domain.OrderbookPair, cfg analyzer.Config, consecutionTime int64) (Result, error) {
	if err := validateOrdered(pairs); err != nil {
		return Result{}, err
	}

	res := Result{
		Windows:        map[domain.Direction][]domain.OpportunityWindow{},
		DurationTotals: map[domain.Direction]int64{},
		SpreadRatio:    map[domain.Direction]float64{},
		MaxUnitSpread:  map[domain.Direction]float64{},
		PairsEvaluated: len(pairs),
	}

	open := map[domain.Direction]*domain.OpportunityWindow{}
	tradableCount := map[domain.Direction]int{}

	for _, pair := range pairs {
		evals := analyzer.Evaluate(pair, cfg)
		ts := pair.MM1.RequestTime

		for _, dir := range domain.Directions {
			eval := evals[dir]
			if !eval.AbleToTrade {
				// A single non-tradable slice breaks the window.
				closeWindow(&res, open, dir, consecutionTime)
				continue
			}

			tradableCount[dir]++
			if eval.SpreadToTrade > res.MaxUnitSpread[dir] {
				res.MaxUnitSpread[dir] = eval.SpreadToTrade
			}

			if w := open[dir]; w != nil {
				w.EndTime = ts
			} else {
				open[dir] = &domain.OpportunityWindow{Direction: dir, StartTime: ts, EndTime: ts}
			}
		}
	}

	for _, dir := range domain.Directions {
		closeWindow(&res, open, dir, consecutionTime)
		if len(pairs) > 0 {
			res.SpreadRatio[dir] = float64(tradableCount[dir]) / float64(len(pairs))
		}
	}

	return res, nil
}

func closeWindow(res *Result, open map[domain.Direction]*domain.OpportunityWindow, dir domain.Direction, consecutionTime int64) {
	w := open[dir]
	if w == nil {
		return
	}
	open[dir] = nil
	if w.Duration() < consecutionTime {
		return
	}
	res.Windows[dir] = append(res.Windows[dir], *w)
	res.DurationTotals[dir] += w.Duration()
}

func validateOrdered(pairs []domain.OrderbookPair) error {
	for i := range pairs {
		if pairs[i].MM1.RequestTime != pairs[i].MM2.RequestTime {
			return fmt.Errorf("index %d: mm1 at %d, mm2 at %d: %w",
				i, pairs[i].MM1.RequestTime, pairs[i].MM2.RequestTime, domain.ErrPairTimeMismatch)
		}
		if i > 0 && pairs[i].MM1.RequestTime < pairs[i-1].MM1.RequestTime {
			return fmt.Errorf("index %d: %d after %d: %w",
				i, pairs[i].MM1.RequestTime, pairs[i-1].MM1.RequestTime, domain.ErrUnorderedSequence)
		}
	}
	return nil
}
