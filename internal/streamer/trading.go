package streamer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seoulquant/arbstreamer/internal/analyzer"
	"github.com/seoulquant/arbstreamer/internal/domain"
	"github.com/seoulquant/arbstreamer/internal/exhaustion"
)

// tradeLoop runs one tick per loop interval until the wall clock reaches the
// settlement time. A tick that overruns its interval is followed immediately
// by the next one; the cadence is soft real-time. A failed tick is skipped,
// never retried.
func (s *Streamer) tradeLoop(ctx context.Context) error {
	for {
		tickStart := s.now()
		if tickStart.Unix() >= s.settlementTime {
			return nil
		}

		if err := s.Tick(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			s.logger.Warn("tick skipped",
				slog.String("error", err.Error()),
			)
		}

		wait := s.cfg.LoopInterval - s.now().Sub(tickStart)
		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Tick executes one trading-mode iteration: refresh balances when commanded,
// analyze the latest paired snapshot, blend the result with the exhaustion
// control law, and post the decision record.
func (s *Streamer) Tick(ctx context.Context) error {
	if s.state != StateTrading {
		return fmt.Errorf("streamer: tick in %s: %w", s.state, domain.ErrSessionTerminal)
	}
	now := s.now().Unix()

	if err := s.maybeRefreshBalances(ctx, now); err != nil {
		return err
	}

	pair, err := s.latestPair(ctx)
	if err != nil {
		return fmt.Errorf("streamer: latest orderbook pair: %w", err)
	}

	evals := analyzer.Evaluate(pair, s.analyzerConfig())
	tradable := s.classify(evals)

	rates, err := exhaustion.Compute(s.deps.Ledger.Latest(), pair.MidPrice())
	if err != nil {
		return fmt.Errorf("streamer: exhaustion rates: %w", err)
	}
	s.compareTimeFlow(now, rates, tradable)

	executeTrade := (s.isTimeFlowAboveExhaust && s.isOppty) || s.isRoyalSpread
	if err := s.postCommander(ctx, executeTrade, false); err != nil {
		return fmt.Errorf("streamer: post commander: %w", err)
	}
	return nil
}

// classify derives the oppty/royal flags from the per-direction evaluations
// and records tradable spreads for the frequency report. A direction counts
// as an opportunity when it can trade and its spread meets the direction's
// threshold; meeting the royal threshold commands a trade unconditionally.
func (s *Streamer) classify(evals map[domain.Direction]domain.SpreadEvaluation) map[domain.Direction]bool {
	tradable := make(map[domain.Direction]bool, len(domain.Directions))
	s.isOppty = false
	s.isRoyalSpread = false

	for _, dir := range domain.Directions {
		eval := evals[dir]
		if !eval.AbleToTrade {
			s.logger.Debug("no opportunity",
				slog.String("direction", string(dir)),
				slog.String("fail_reason", eval.FailReason),
			)
			continue
		}

		s.spreadRecorder[dir] = append(s.spreadRecorder[dir], eval.SpreadToTrade)
		if eval.SpreadToTrade < s.cfg.threshold(dir) {
			continue
		}

		tradable[dir] = true
		s.isOppty = true
		s.logger.Info("opportunity detected",
			slog.String("direction", string(dir)),
			slog.Float64("spread_to_trade", eval.SpreadToTrade),
		)

		if eval.SpreadToTrade >= s.cfg.royalSpread(dir) {
			s.isRoyalSpread = true
			s.logger.Info("royal spread, commanding trade regardless of exhaustion",
				slog.String("direction", string(dir)),
				slog.Float64("spread_to_trade", eval.SpreadToTrade),
			)
		}
	}
	return tradable
}

// compareTimeFlow compares the elapsed-time fraction against the exhaustion
// ratio per direction. The tick's flag is the comparison for the directions
// currently tradable; with no tradable direction it is the OR across both, so
// the posted record still reflects the session's pacing state.
func (s *Streamer) compareTimeFlow(now int64, rates map[domain.Direction]float64, tradable map[domain.Direction]bool) {
	timeFlowed := float64(now-s.botStartTime) / s.cfg.SettlementDuration.Seconds()
	timeFlowed = timeFlowed * s.cfg.ExhaustBooster / s.cfg.ExhaustInhibitor

	above := false
	for _, dir := range domain.Directions {
		dirAbove := timeFlowed >= rates[dir]
		s.logger.Debug("exhaustion comparison",
			slog.String("direction", string(dir)),
			slog.Float64("time_flowed_pct", timeFlowed*100),
			slog.Float64("exhaust_pct", rates[dir]*100),
		)
		if len(tradable) > 0 && !tradable[dir] {
			continue
		}
		above = above || dirAbove
	}
	s.isTimeFlowAboveExhaust = above
}

// maybeRefreshBalances re-pulls live balances only when the external
// balance_commander flag requests it, bounding market API call volume.
func (s *Streamer) maybeRefreshBalances(ctx context.Context, now int64) error {
	if s.deps.BalanceCmds == nil {
		return nil
	}
	cmd, err := s.deps.BalanceCmds.Latest(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("streamer: balance commander: %w", err)
	}
	if !cmd.IsBalanceUpdate {
		return nil
	}

	if err := s.refreshBalances(ctx); err != nil {
		return fmt.Errorf("streamer: balance refresh: %w", err)
	}
	if _, err := s.deps.Ledger.Update(ctx, domain.ModeTrading, now, s.bal.book()); err != nil {
		return err
	}
	s.logBalances("balance refreshed")
	return nil
}

// latestPair prefers the hot cache and falls back to the persistent store
// when the cached snapshots are missing or drawn from different ticks.
func (s *Streamer) latestPair(ctx context.Context) (domain.OrderbookPair, error) {
	if s.deps.Cache != nil {
		mm1, err1 := s.deps.Cache.GetLatest(ctx, s.deps.MM1.Name(), s.cfg.TargetCurrency)
		mm2, err2 := s.deps.Cache.GetLatest(ctx, s.deps.MM2.Name(), s.cfg.TargetCurrency)
		if err1 == nil && err2 == nil && mm1.RequestTime == mm2.RequestTime {
			return domain.OrderbookPair{MM1: mm1, MM2: mm2}, nil
		}
	}
	return s.deps.Books.LatestPair(ctx, s.deps.MM1.Name(), s.deps.MM2.Name(), s.cfg.TargetCurrency)
}

func (s *Streamer) postCommander(ctx context.Context, executeTrade, settlement bool) error {
	rec := domain.TradeCommanderRecord{
		Time:                   s.now().Unix(),
		ExecuteTrade:           executeTrade,
		IsTimeFlowAboveExhaust: s.isTimeFlowAboveExhaust,
		IsOppty:                s.isOppty,
		IsRoyalSpread:          s.isRoyalSpread,
		MinTradableCoin:        s.cfg.MinTradableCoin,
		NewSpreadThreshold:     s.cfg.NewSpreadThreshold,
		NewRoyalSpread:         s.cfg.NewRoyalSpread,
		RevSpreadThreshold:     s.cfg.RevSpreadThreshold,
		RevRoyalSpread:         s.cfg.RevRoyalSpread,
		Settlement:             settlement,
	}
	return s.appendCommander(ctx, rec)
}

func (s *Streamer) appendCommander(ctx context.Context, rec domain.TradeCommanderRecord) error {
	rec.ID = uuid.NewString()
	if err := s.deps.Commanders.Append(ctx, rec); err != nil {
		return fmt.Errorf("append commander record: %w", err)
	}
	if s.deps.Bus != nil {
		// The persistent stream is the handoff of record; pub/sub is a
		// latency optimization for the executor.
		if err := s.deps.Bus.Publish(ctx, rec); err != nil {
			s.logger.Warn("commander publish failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}
