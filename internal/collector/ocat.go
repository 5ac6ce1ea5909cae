package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/seoulquant/arbstreamer/internal/analyzer"
	"github.com/seoulquant/arbstreamer/internal/domain"
)

// RankRequest is one exchange-pair combination to analyze during an OCAT run.
type RankRequest struct {
	Settings domain.TradeSettings
	Analyzer analyzer.Config
}

// Label renders the combination identifier, e.g. "BCH-COINONE-GOPAX".
func (r RankRequest) Label() string {
	return strings.ToUpper(fmt.Sprintf("%s-%s-%s",
		r.Settings.TargetCurrency, r.Settings.MM1Name, r.Settings.MM2Name))
}

// CombinationResult summarizes one combination's historical opportunity.
type CombinationResult struct {
	Combination      string
	NewDuration      int64
	RevDuration      int64
	NewSpreadRatio   float64
	RevSpreadRatio   float64
	NewMaxUnitSpread float64
	RevMaxUnitSpread float64
}

// TotalDuration is the ranking key: summed opportunity seconds across both
// directions.
func (c CombinationResult) TotalDuration() int64 {
	return c.NewDuration + c.RevDuration
}

// Ranker runs the opportunity-window collector over a fixed lookback per
// exchange-pair combination and ranks combinations by total opportunity
// duration, descending.
type Ranker struct {
	store  domain.OrderbookStore
	logger *slog.Logger
}

// NewRanker creates a Ranker reading history from the given store.
func NewRanker(store domain.OrderbookStore, logger *slog.Logger) *Ranker {
	return &Ranker{
		store:  store,
		logger: logger.With(slog.String("component", "ocat_ranker")),
	}
}

// Rank analyzes every requested combination and returns the top-N results by
// total opportunity duration. A combination whose history is malformed or
// missing is logged and skipped; it never fails the overall ranking.
func (r *Ranker) Rank(ctx context.Context, requests []RankRequest, topN int) ([]CombinationResult, error) {
	results := make([]CombinationResult, 0, len(requests))

	for _, req := range requests {
		if err := req.Settings.Validate(); err != nil {
			return nil, fmt.Errorf("ocat: combination %s: %w", req.Label(), err)
		}

		res, err := r.analyzeCombination(ctx, req)
		if err != nil {
			r.logger.Warn("combination analysis failed, skipping",
				slog.String("combination", req.Label()),
				slog.String("error", err.Error()),
			)
			continue
		}
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].TotalDuration() > results[j].TotalDuration()
	})
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

func (r *Ranker) analyzeCombination(ctx context.Context, req RankRequest) (CombinationResult, error) {
	s := req.Settings
	pairs, err := SlicedRange(ctx, r.store, s.MM1Name, s.MM2Name, s.TargetCurrency,
		s.StartTime, s.EndTime, s.Division)
	if err != nil {
		return CombinationResult{}, fmt.Errorf("paired range: %w", err)
	}

	res, err := Collect(pairs, req.Analyzer, s.ConsecutionTime)
	if err != nil {
		return CombinationResult{}, fmt.Errorf("collect windows: %w", err)
	}

	return CombinationResult{
		Combination:      req.Label(),
		NewDuration:      res.DurationTotals[domain.DirectionNew],
		RevDuration:      res.DurationTotals[domain.DirectionRev],
		NewSpreadRatio:   res.SpreadRatio[domain.DirectionNew],
		RevSpreadRatio:   res.SpreadRatio[domain.DirectionRev],
		NewMaxUnitSpread: res.MaxUnitSpread[domain.DirectionNew],
		RevMaxUnitSpread: res.MaxUnitSpread[domain.DirectionRev],
	}, nil
}

// SlicedRange fetches the paired history for [start, end] in division equal
// sub-ranges and concatenates the slices in order. Slicing bounds the size of
// any single query over a long lookback; a division of 1 is a plain fetch.
func SlicedRange(ctx context.Context, store domain.OrderbookStore, mm1, mm2, currency string, start, end int64, division int) ([]domain.OrderbookPair, error) {
	span := end - start
	if division <= 1 || span < int64(division) {
		return store.PairedRange(ctx, mm1, mm2, currency, start, end)
	}

	step := span / int64(division)
	var pairs []domain.OrderbookPair
	sliceStart := start
	for i := 0; i < division; i++ {
		sliceEnd := sliceStart + step - 1
		if i == division-1 {
			sliceEnd = end
		}
		part, err := store.PairedRange(ctx, mm1, mm2, currency, sliceStart, sliceEnd)
		if err != nil {
			return nil, fmt.Errorf("slice %d of %d [%d, %d]: %w", i+1, division, sliceStart, sliceEnd, err)
		}
		pairs = append(pairs, part...)
		sliceStart = sliceEnd + 1
	}
	return pairs, nil
}
