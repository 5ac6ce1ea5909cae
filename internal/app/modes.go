package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seoulquant/arbstreamer/internal/analyzer"
	"github.com/seoulquant/arbstreamer/internal/collector"
	"github.com/seoulquant/arbstreamer/internal/domain"
	"github.com/seoulquant/arbstreamer/internal/feed"
	"github.com/seoulquant/arbstreamer/internal/ledger"
	"github.com/seoulquant/arbstreamer/internal/streamer"
)

// CollectMode polls every registered market for orderbook snapshots on a
// fixed interval, one collection job per configured currency, until the
// context is cancelled. When the websocket feed is enabled it additionally
// streams live Upbit books into the hot cache.
func (a *App) CollectMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting collect mode",
		slog.Any("currencies", a.cfg.Collector.Currencies),
	)

	markets := make([]domain.MarketClient, 0)
	for _, name := range deps.Markets.Names() {
		client, err := deps.Markets.Get(name)
		if err != nil {
			return err
		}
		markets = append(markets, client)
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, currency := range a.cfg.Collector.Currencies {
		job := collector.NewJob(collector.JobConfig{
			Markets:     markets,
			Currency:    currency,
			Store:       deps.Books,
			Cache:       deps.BookCache,
			Interval:    a.cfg.Collector.Interval.Duration,
			TickTimeout: a.cfg.Collector.TickTimeout.Duration,
		}, a.logger)
		g.Go(func() error {
			return job.Run(ctx)
		})
	}

	if a.cfg.Feed.Enabled {
		wsFeed := feed.NewUpbitWSFeed(
			a.cfg.Feed.WsURL,
			a.cfg.Collector.Currencies,
			func(ctx context.Context, snap domain.OrderbookSnapshot) {
				if err := deps.BookCache.SetLatest(ctx, snap); err != nil {
					a.logger.Warn("live book cache write failed",
						slog.String("error", err.Error()),
					)
				}
			},
			a.logger,
		)
		g.Go(func() error {
			defer wsFeed.Close()
			return wsFeed.Run(ctx)
		})
	}

	return g.Wait()
}

// OCATMode ranks every exchange-pair x currency combination by historical
// opportunity duration over the configured lookback and logs the top
// combinations for the operator to pick a session from.
func (a *App) OCATMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting ocat mode",
		slog.Any("exchanges", a.cfg.OCAT.Exchanges),
		slog.Any("currencies", a.cfg.OCAT.Currencies),
		slog.Duration("lookback", a.cfg.OCAT.Lookback.Duration),
	)

	now := time.Now().Unix()
	start := now - int64(a.cfg.OCAT.Lookback.Duration.Seconds())

	requests, err := a.buildRankRequests(deps, start, now)
	if err != nil {
		return err
	}

	ranker := collector.NewRanker(deps.Books, a.logger)
	results, err := ranker.Rank(ctx, requests, a.cfg.OCAT.TopN)
	if err != nil {
		return fmt.Errorf("app: ocat ranking: %w", err)
	}

	for rank, res := range results {
		a.logger.Info("optimal combination",
			slog.Int("rank", rank+1),
			slog.String("combination", res.Combination),
			slog.Int64("total_duration_secs", res.TotalDuration()),
			slog.Int64("new_duration_secs", res.NewDuration),
			slog.Int64("rev_duration_secs", res.RevDuration),
			slog.Float64("new_spread_ratio", res.NewSpreadRatio),
			slog.Float64("rev_spread_ratio", res.RevSpreadRatio),
			slog.Float64("new_max_unit_spread", res.NewMaxUnitSpread),
			slog.Float64("rev_max_unit_spread", res.RevMaxUnitSpread),
		)
	}
	return nil
}

// buildRankRequests expands the configured exchanges and currencies into one
// request per unordered exchange pair per currency.
func (a *App) buildRankRequests(deps *Dependencies, start, end int64) ([]collector.RankRequest, error) {
	exchanges := a.cfg.OCAT.Exchanges
	var requests []collector.RankRequest

	for i := 0; i < len(exchanges); i++ {
		for j := i + 1; j < len(exchanges); j++ {
			mm1, err := deps.Markets.Get(exchanges[i])
			if err != nil {
				return nil, fmt.Errorf("app: ocat: %w", err)
			}
			mm2, err := deps.Markets.Get(exchanges[j])
			if err != nil {
				return nil, fmt.Errorf("app: ocat: %w", err)
			}

			for _, currency := range a.cfg.OCAT.Currencies {
				requests = append(requests, collector.RankRequest{
					Settings: domain.TradeSettings{
						MM1Name:         mm1.Name(),
						MM2Name:         mm2.Name(),
						TargetCurrency:  currency,
						StartTime:       start,
						EndTime:         end,
						Division:        a.cfg.Session.Division,
						Depth:           a.cfg.Session.Depth,
						ConsecutionTime: a.cfg.Session.ConsecutionTime,
						IsVirtual:       true,
					},
					Analyzer: analyzerConfigFor(mm1, mm2, a.cfg.Session.MinTradableCoin(), a.cfg.Session.Depth),
				})
			}
		}
	}
	return requests, nil
}

// StreamMode runs one live trading session end to end. The session lock
// guarantees a single decision maker per market pair; the lock outlives the
// settlement time by one hour to cover settlement work.
func (a *App) StreamMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting stream mode",
		slog.String("mm1", a.cfg.Session.MM1),
		slog.String("mm2", a.cfg.Session.MM2),
		slog.String("currency", a.cfg.Session.TargetCurrency),
		slog.Bool("is_virtual", a.cfg.Session.IsVirtual),
	)

	mm1, err := deps.Markets.Get(a.cfg.Session.MM1)
	if err != nil {
		return fmt.Errorf("app: stream: %w", err)
	}
	mm2, err := deps.Markets.Get(a.cfg.Session.MM2)
	if err != nil {
		return fmt.Errorf("app: stream: %w", err)
	}

	lockTTL := a.cfg.Session.SettlementDuration.Duration + time.Hour
	release, err := deps.SessionLock.Acquire(ctx,
		mm1.Name(), mm2.Name(), a.cfg.Session.TargetCurrency, lockTTL)
	if err != nil {
		return fmt.Errorf("app: stream: %w", err)
	}
	defer release()

	ledgerHandler := ledger.NewHandler(deps.LedgerStore, a.logger)

	s, err := streamer.New(streamer.Config{
		TargetCurrency:     a.cfg.Session.TargetCurrency,
		MinTradableCoin:    a.cfg.Session.MinTradableCoin(),
		NewSpreadThreshold: a.cfg.Session.NewSpreadThreshold,
		NewRoyalSpread:     a.cfg.Session.NewRoyalSpread,
		RevSpreadThreshold: a.cfg.Session.RevSpreadThreshold,
		RevRoyalSpread:     a.cfg.Session.RevRoyalSpread,
		ExhaustBooster:     a.cfg.Session.ExhaustBooster,
		ExhaustInhibitor:   a.cfg.Session.ExhaustInhibitor,
		SettlementDuration: a.cfg.Session.SettlementDuration.Duration,
		LoopInterval:       a.cfg.Session.LoopInterval.Duration,
		Division:           a.cfg.Session.Division,
		Depth:              a.cfg.Session.Depth,
		ConsecutionTime:    a.cfg.Session.ConsecutionTime,
	}, streamer.Deps{
		MM1:         mm1,
		MM2:         mm2,
		Books:       deps.Books,
		Cache:       deps.BookCache,
		Commanders:  deps.Commanders,
		Bus:         deps.Bus,
		BalanceCmds: deps.BalanceCmds,
		Ledger:      ledgerHandler,
		Exporter:    exporterOrNil(deps),
		Notifier:    notifierOrNil(deps),
	}, a.logger)
	if err != nil {
		return fmt.Errorf("app: stream: %w", err)
	}

	return s.Run(ctx)
}

func analyzerConfigFor(mm1, mm2 domain.MarketClient, minCoin float64, depth int) analyzer.Config {
	return analyzer.Config{
		MM1TakerFee:     mm1.TakerFee(),
		MM2TakerFee:     mm2.TakerFee(),
		MinTradableCoin: minCoin,
		Depth:           depth,
	}
}

// exporterOrNil avoids handing the streamer a typed-nil interface value.
func exporterOrNil(deps *Dependencies) streamer.Exporter {
	if deps.Exporter == nil {
		return nil
	}
	return deps.Exporter
}

func notifierOrNil(deps *Dependencies) streamer.Notifier {
	if deps.Notifier == nil {
		return nil
	}
	return deps.Notifier
}
