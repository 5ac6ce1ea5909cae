// Package feed streams live orderbook updates over exchange websockets into
// the hot book cache, cutting decision-loop latency below what REST polling
// allows.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

// DefaultUpbitWSURL is the Upbit public websocket endpoint.
const DefaultUpbitWSURL = "wss://api.upbit.com/websocket/v1"

const reconnectDelay = 2 * time.Second

// SnapshotHandler is called for each orderbook snapshot received.
type SnapshotHandler func(ctx context.Context, snap domain.OrderbookSnapshot)

// UpbitWSFeed subscribes to Upbit's orderbook stream for the given currencies
// and invokes the handler on each update. Reconnects with a fixed delay on
// disconnect.
type UpbitWSFeed struct {
	wsURL      string
	currencies []string
	onSnapshot SnapshotHandler
	logger     *slog.Logger
	closeOnce  sync.Once
	done       chan struct{}
}

// NewUpbitWSFeed creates a feed for the given lowercase currency symbols.
func NewUpbitWSFeed(wsURL string, currencies []string, onSnapshot SnapshotHandler, logger *slog.Logger) *UpbitWSFeed {
	if wsURL == "" {
		wsURL = DefaultUpbitWSURL
	}
	return &UpbitWSFeed{
		wsURL:      wsURL,
		currencies: currencies,
		onSnapshot: onSnapshot,
		logger:     logger.With(slog.String("component", "upbit_ws_feed")),
		done:       make(chan struct{}),
	}
}

// Run connects, subscribes, and pumps updates until ctx is cancelled or Close
// is called.
func (f *UpbitWSFeed) Run(ctx context.Context) error {
	if len(f.currencies) == 0 {
		f.logger.Info("no currencies to subscribe, exiting")
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		if err := f.runConnection(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Warn("upbit ws disconnected, reconnecting",
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *UpbitWSFeed) runConnection(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", f.wsURL, err)
	}
	defer conn.Close()

	// Close the socket when the context ends so ReadMessage unblocks.
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		_ = conn.Close()
	}()

	if err := f.subscribe(conn); err != nil {
		return err
	}
	f.logger.Info("upbit ws subscribed", slog.Int("currencies", len(f.currencies)))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: read: %w", err)
		}

		snap, ok := f.parseSnapshot(data)
		if !ok {
			continue
		}
		f.onSnapshot(ctx, snap)
	}
}

func (f *UpbitWSFeed) subscribe(conn *websocket.Conn) error {
	codes := make([]string, len(f.currencies))
	for i, cur := range f.currencies {
		codes[i] = "KRW-" + strings.ToUpper(cur)
	}

	sub := []any{
		map[string]string{"ticket": uuid.NewString()},
		map[string]any{"type": "orderbook", "codes": codes},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}
	return nil
}

func (f *UpbitWSFeed) parseSnapshot(data []byte) (domain.OrderbookSnapshot, bool) {
	var msg struct {
		Type      string `json:"type"`
		Code      string `json:"code"`
		Timestamp int64  `json:"timestamp"`
		Units     []struct {
			AskPrice float64 `json:"ask_price"`
			BidPrice float64 `json:"bid_price"`
			AskSize  float64 `json:"ask_size"`
			BidSize  float64 `json:"bid_size"`
		} `json:"orderbook_units"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "orderbook" {
		return domain.OrderbookSnapshot{}, false
	}

	currency := strings.ToLower(strings.TrimPrefix(msg.Code, "KRW-"))
	snap := domain.OrderbookSnapshot{
		Exchange:    "upbit",
		Currency:    currency,
		RequestTime: msg.Timestamp / 1000,
		Asks:        make([]domain.PriceLevel, 0, len(msg.Units)),
		Bids:        make([]domain.PriceLevel, 0, len(msg.Units)),
	}
	for _, u := range msg.Units {
		snap.Asks = append(snap.Asks, domain.PriceLevel{Price: u.AskPrice, Size: u.AskSize})
		snap.Bids = append(snap.Bids, domain.PriceLevel{Price: u.BidPrice, Size: u.BidSize})
	}
	return snap, true
}

// Close stops the feed.
func (f *UpbitWSFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
