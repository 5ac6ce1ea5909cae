// Package streamer implements the trade-decision state machine that drives a
// live arbitrage session: Initiation calibrates against recent history,
// Trading emits one commander record per tick, Settlement closes the books.
// The phases only move forward; Settlement is terminal.
package streamer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/seoulquant/arbstreamer/internal/analyzer"
	"github.com/seoulquant/arbstreamer/internal/collector"
	"github.com/seoulquant/arbstreamer/internal/domain"
	"github.com/seoulquant/arbstreamer/internal/ledger"
)

// State is the session phase.
type State int

const (
	StateInitiation State = iota
	StateTrading
	StateSettlement
)

func (s State) String() string {
	switch s {
	case StateInitiation:
		return "initiation"
	case StateTrading:
		return "trading"
	case StateSettlement:
		return "settlement"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config is the validated, non-interactive session configuration. An
// operator-facing tool collects these values up front; the state machine
// never blocks on input.
type Config struct {
	TargetCurrency string

	// MinTradableCoin is the per-exchange minimum order size already scaled
	// by the operator's multiplier.
	MinTradableCoin float64

	NewSpreadThreshold float64
	NewRoyalSpread     float64
	RevSpreadThreshold float64
	RevRoyalSpread     float64

	// ExhaustBooster and ExhaustInhibitor scale the elapsed-time fraction
	// before it is compared against the exhaustion ratio. Both neutral at 1.
	ExhaustBooster   float64
	ExhaustInhibitor float64

	SettlementDuration time.Duration
	LoopInterval       time.Duration

	Division        int
	Depth           int
	ConsecutionTime int64
}

// Validate rejects configurations the session must not start with.
func (c Config) Validate() error {
	if c.TargetCurrency == "" {
		return fmt.Errorf("streamer config: target currency is required")
	}
	if c.MinTradableCoin <= 0 {
		return fmt.Errorf("streamer config: min tradable coin must be positive, got %g", c.MinTradableCoin)
	}
	for name, v := range map[string]float64{
		"new spread threshold": c.NewSpreadThreshold,
		"new royal spread":     c.NewRoyalSpread,
		"rev spread threshold": c.RevSpreadThreshold,
		"rev royal spread":     c.RevRoyalSpread,
	} {
		if v < 0 {
			return fmt.Errorf("streamer config: %s: %g: %w", name, v, domain.ErrInvalidThreshold)
		}
	}
	// A royal spread below the plain threshold could never fire: the royal
	// check is only reached once the threshold is already cleared.
	if c.NewRoyalSpread < c.NewSpreadThreshold {
		return fmt.Errorf("streamer config: new royal spread %g below threshold %g: %w",
			c.NewRoyalSpread, c.NewSpreadThreshold, domain.ErrInvalidThreshold)
	}
	if c.RevRoyalSpread < c.RevSpreadThreshold {
		return fmt.Errorf("streamer config: rev royal spread %g below threshold %g: %w",
			c.RevRoyalSpread, c.RevSpreadThreshold, domain.ErrInvalidThreshold)
	}
	if c.ExhaustBooster <= 0 || c.ExhaustInhibitor <= 0 {
		return fmt.Errorf("streamer config: exhaust booster and inhibitor must be positive")
	}
	if c.SettlementDuration <= 0 {
		return fmt.Errorf("streamer config: settlement duration must be positive")
	}
	if c.LoopInterval <= 0 {
		return fmt.Errorf("streamer config: loop interval must be positive")
	}
	if c.Division < 1 || c.Depth < 1 {
		return fmt.Errorf("streamer config: division and depth must be >= 1")
	}
	return nil
}

func (c Config) threshold(dir domain.Direction) float64 {
	if dir == domain.DirectionNew {
		return c.NewSpreadThreshold
	}
	return c.RevSpreadThreshold
}

func (c Config) royalSpread(dir domain.Direction) float64 {
	if dir == domain.DirectionNew {
		return c.NewRoyalSpread
	}
	return c.RevRoyalSpread
}

// Exporter renders and archives the final ledger at settlement.
type Exporter interface {
	Export(ctx context.Context, rec domain.RevenueLedgerRecord) error
}

// Notifier delivers operator-facing session status messages.
type Notifier interface {
	NotifyAll(ctx context.Context, title, message string) error
}

// Deps bundles the collaborators the state machine is constructed with. The
// storage handles are injected explicitly; the streamer owns no connection
// lifecycle.
type Deps struct {
	MM1 domain.MarketClient
	MM2 domain.MarketClient

	Books       domain.OrderbookStore
	Cache       domain.BookCache
	Commanders  domain.CommanderStore
	Bus         domain.CommanderBus
	BalanceCmds domain.BalanceCommandStore
	Ledger      *ledger.Handler

	Exporter Exporter
	Notifier Notifier
}

type balances struct {
	mm1KRW, mm2KRW   float64
	mm1Coin, mm2Coin float64
}

func (b balances) book() domain.BalanceBook {
	return domain.NewBalanceBook(b.mm1KRW, b.mm2KRW, b.mm1Coin, b.mm2Coin)
}

// Streamer is the per-session decision maker. Exactly one Streamer runs per
// session; its state is never shared across goroutines.
type Streamer struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	now func() time.Time

	state          State
	botStartTime   int64
	settlementTime int64
	bal            balances

	isOppty                bool
	isRoyalSpread          bool
	isTimeFlowAboveExhaust bool

	spreadRecorder map[domain.Direction][]float64
}

// New constructs a Streamer after validating the configuration. Invalid
// thresholds block startup; the session must not reach Trading with them.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Streamer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.MM1 == nil || deps.MM2 == nil {
		return nil, fmt.Errorf("streamer: both market clients are required")
	}
	if deps.Books == nil || deps.Commanders == nil || deps.Ledger == nil {
		return nil, fmt.Errorf("streamer: storage handles are required")
	}
	return &Streamer{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With(slog.String("component", "trade_streamer")),
		now:    time.Now,
		state:  StateInitiation,
		spreadRecorder: map[domain.Direction][]float64{
			domain.DirectionNew: {},
			domain.DirectionRev: {},
		},
	}, nil
}

// State returns the current session phase.
func (s *Streamer) State() State {
	return s.state
}

// Run drives the whole session: initiation, the trading loop, settlement.
func (s *Streamer) Run(ctx context.Context) error {
	if err := s.Initiate(ctx); err != nil {
		return err
	}
	if err := s.EnterTrading(); err != nil {
		return err
	}
	if err := s.tradeLoop(ctx); err != nil {
		return err
	}
	return s.Settle(ctx)
}

// Initiate refreshes live balances, captures the initial ledger record, runs
// the opportunity analysis over the lookback window for calibration logging,
// and posts an empty commander record so the executor sees a known state.
func (s *Streamer) Initiate(ctx context.Context) error {
	if s.state != StateInitiation {
		return fmt.Errorf("streamer: initiate in %s: %w", s.state, domain.ErrSessionTerminal)
	}

	if err := s.refreshBalances(ctx); err != nil {
		return fmt.Errorf("streamer: initial balance fetch: %w", err)
	}

	book := s.bal.book()
	if book.KRW.Total <= 0 && book.Coin.Total <= 0 {
		return fmt.Errorf("streamer: %s/%s session: %w",
			s.deps.MM1.Name(), s.deps.MM2.Name(), domain.ErrZeroInitialBalance)
	}

	now := s.now().Unix()
	if _, err := s.deps.Ledger.Initiate(ctx, now, s.cfg.TargetCurrency,
		s.deps.MM1.Name(), s.deps.MM2.Name(), book); err != nil {
		return fmt.Errorf("streamer: initiate ledger: %w", err)
	}
	s.logBalances("initial balance")

	if err := s.calibrateFromLookback(ctx, now); err != nil {
		// Lookback analysis is calibration aid only; a hole in history must
		// not block the session.
		s.logger.Warn("lookback calibration failed",
			slog.String("error", err.Error()),
		)
	}

	if err := s.postCommander(ctx, false, false); err != nil {
		return fmt.Errorf("streamer: post initiation commander: %w", err)
	}

	if s.deps.Notifier != nil {
		_ = s.deps.Notifier.NotifyAll(ctx, "session starting",
			fmt.Sprintf("%s %s/%s trade streamer entering trading mode",
				s.cfg.TargetCurrency, s.deps.MM1.Name(), s.deps.MM2.Name()))
	}
	return nil
}

// EnterTrading stamps the session clock and moves to the Trading phase.
func (s *Streamer) EnterTrading() error {
	if s.state != StateInitiation {
		return fmt.Errorf("streamer: enter trading from %s: %w", s.state, domain.ErrSessionTerminal)
	}
	s.botStartTime = s.now().Unix()
	s.settlementTime = s.botStartTime + int64(s.cfg.SettlementDuration.Seconds())
	s.state = StateTrading
	s.logger.Info("trading mode entered",
		slog.Int64("bot_start_time", s.botStartTime),
		slog.Int64("settlement_time", s.settlementTime),
	)
	return nil
}

// calibrateFromLookback runs the window collector over (now - settlement
// duration, now) and logs the opportunity statistics and the spread frequency
// table the operator calibrated the thresholds against.
func (s *Streamer) calibrateFromLookback(ctx context.Context, now int64) error {
	start := now - int64(s.cfg.SettlementDuration.Seconds())

	pairs, err := collector.SlicedRange(ctx, s.deps.Books, s.deps.MM1.Name(), s.deps.MM2.Name(),
		s.cfg.TargetCurrency, start, now, s.cfg.Division)
	if err != nil {
		return fmt.Errorf("paired range: %w", err)
	}

	res, err := collector.Collect(pairs, s.analyzerConfig(), s.cfg.ConsecutionTime)
	if err != nil {
		return fmt.Errorf("collect windows: %w", err)
	}

	settleSecs := s.cfg.SettlementDuration.Seconds()
	for _, dir := range domain.Directions {
		s.logger.Info("lookback opportunity",
			slog.String("direction", string(dir)),
			slog.Float64("duration_pct", float64(res.DurationTotals[dir])/settleSecs*100),
			slog.Float64("spread_strength_pct", res.SpreadRatio[dir]*100),
			slog.Float64("max_unit_spread", res.MaxUnitSpread[dir]),
			slog.Int("windows", len(res.Windows[dir])),
		)
	}

	for _, pair := range pairs {
		for dir, eval := range analyzer.Evaluate(pair, s.analyzerConfig()) {
			if eval.AbleToTrade {
				s.spreadRecorder[dir] = append(s.spreadRecorder[dir], eval.SpreadToTrade)
			}
		}
	}
	s.logSpreadRecorder()
	return nil
}

func (s *Streamer) analyzerConfig() analyzer.Config {
	return analyzer.Config{
		MM1TakerFee:     s.deps.MM1.TakerFee(),
		MM2TakerFee:     s.deps.MM2.TakerFee(),
		MinTradableCoin: s.cfg.MinTradableCoin,
		Depth:           s.cfg.Depth,
	}
}

func (s *Streamer) logBalances(title string) {
	s.logger.Info(title,
		slog.String("mm1", s.deps.MM1.Name()),
		slog.Float64("mm1_krw", s.bal.mm1KRW),
		slog.Float64("mm1_coin", s.bal.mm1Coin),
		slog.String("mm2", s.deps.MM2.Name()),
		slog.Float64("mm2_krw", s.bal.mm2KRW),
		slog.Float64("mm2_coin", s.bal.mm2Coin),
	)
}

// refreshBalances re-pulls live balances from both market APIs.
func (s *Streamer) refreshBalances(ctx context.Context) error {
	mm1Bal, err := s.deps.MM1.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("%s balance: %w", s.deps.MM1.Name(), err)
	}
	mm2Bal, err := s.deps.MM2.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("%s balance: %w", s.deps.MM2.Name(), err)
	}

	s.bal = balances{
		mm1KRW:  mm1Bal["krw"],
		mm2KRW:  mm2Bal["krw"],
		mm1Coin: mm1Bal[s.cfg.TargetCurrency],
		mm2Coin: mm2Bal[s.cfg.TargetCurrency],
	}
	return nil
}

// Settle is the terminal phase: command the executor to stop, give it one
// loop interval to quiesce, refresh and append the final ledger record, then
// export and notify best-effort.
func (s *Streamer) Settle(ctx context.Context) error {
	if s.state == StateSettlement {
		return fmt.Errorf("streamer: settle: %w", domain.ErrSessionTerminal)
	}
	s.state = StateSettlement

	s.logger.Info("settlement reached, stopping trade streamer")
	if s.deps.Notifier != nil {
		_ = s.deps.Notifier.NotifyAll(ctx, "settlement reached",
			fmt.Sprintf("%s %s/%s session settling",
				s.cfg.TargetCurrency, s.deps.MM1.Name(), s.deps.MM2.Name()))
	}

	now := s.now().Unix()
	stop := domain.TradeCommanderRecord{
		Time:       now,
		Settlement: true,
	}
	if err := s.appendCommander(ctx, stop); err != nil {
		return fmt.Errorf("streamer: post settlement commander: %w", err)
	}

	// Give the executor one loop interval to finish in-flight orders before
	// reading final balances.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.LoopInterval):
	}

	if err := s.refreshBalances(ctx); err != nil {
		return fmt.Errorf("streamer: settlement balance fetch: %w", err)
	}
	rec, err := s.deps.Ledger.Update(ctx, domain.ModeSettlement, s.now().Unix(), s.bal.book())
	if err != nil {
		return fmt.Errorf("streamer: settlement ledger: %w", err)
	}
	s.logBalances("settled balance")

	if s.deps.Exporter != nil {
		if err := s.deps.Exporter.Export(ctx, rec); err != nil {
			s.logger.Error("ledger export failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}
