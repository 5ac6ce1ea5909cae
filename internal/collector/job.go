package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

// Job polls every registered market for its current orderbook on a fixed
// interval and lands the snapshots in shared storage. All markets polled in
// the same tick share one request-time bucket so their snapshots pair up
// downstream.
type Job struct {
	markets     []domain.MarketClient
	currency    string
	store       domain.OrderbookStore
	cache       domain.BookCache
	interval    time.Duration
	tickTimeout time.Duration
	logger      *slog.Logger
}

// JobConfig configures a collection Job.
type JobConfig struct {
	Markets  []domain.MarketClient
	Currency string
	Store    domain.OrderbookStore
	Cache    domain.BookCache
	// Interval is the tick cadence; TickTimeout bounds one tick's fetches so
	// a slow exchange call cannot outlive its tick.
	Interval    time.Duration
	TickTimeout time.Duration
}

// NewJob creates a collection Job.
func NewJob(cfg JobConfig, logger *slog.Logger) *Job {
	tickTimeout := cfg.TickTimeout
	if tickTimeout <= 0 || tickTimeout > cfg.Interval {
		tickTimeout = cfg.Interval
	}
	return &Job{
		markets:     cfg.Markets,
		currency:    cfg.Currency,
		store:       cfg.Store,
		cache:       cfg.Cache,
		interval:    cfg.Interval,
		tickTimeout: tickTimeout,
		logger:      logger.With(slog.String("component", "orderbook_collector")),
	}
}

// Run ticks until the context is cancelled. A failed tick is logged and the
// loop proceeds with the next one; collection is at-least-once per interval,
// not exactly-once.
func (j *Job) Run(ctx context.Context) error {
	j.logger.Info("orderbook collection started",
		slog.String("currency", j.currency),
		slog.Int("markets", len(j.markets)),
		slog.Duration("interval", j.interval),
	)
	defer j.logger.Info("orderbook collection stopped")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := j.Tick(ctx); err != nil {
				j.logger.Warn("collection tick failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Tick collects one snapshot per market concurrently, all stamped with the
// same request time, and persists each to the history store and the latest
// cache. Per-market failures fail the tick but never the loop.
func (j *Job) Tick(ctx context.Context) error {
	requestTime := time.Now().Unix()

	tickCtx, cancel := context.WithTimeout(ctx, j.tickTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(tickCtx)
	for _, market := range j.markets {
		market := market
		g.Go(func() error {
			return j.collectOne(gctx, market, requestTime)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("collector: tick at %d: %w", requestTime, err)
	}
	return nil
}

func (j *Job) collectOne(ctx context.Context, market domain.MarketClient, requestTime int64) error {
	snap, err := market.GetOrderbook(ctx, j.currency)
	if err != nil {
		return fmt.Errorf("%s orderbook: %w", market.Name(), err)
	}

	snap.Exchange = market.Name()
	snap.Currency = j.currency
	snap.RequestTime = requestTime

	if err := j.store.Insert(ctx, snap); err != nil {
		return fmt.Errorf("%s insert snapshot: %w", market.Name(), err)
	}
	if j.cache != nil {
		if err := j.cache.SetLatest(ctx, snap); err != nil {
			// Cache is an optimization; losing a write only delays readers
			// until the next tick.
			j.logger.Warn("latest cache write failed",
				slog.String("exchange", market.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}
