// Package upbit implements the market client for the Upbit exchange.
package upbit

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/seoulquant/arbstreamer/internal/domain"
	"github.com/seoulquant/arbstreamer/internal/market"
)

const (
	// DefaultBaseURL is the Upbit REST API root.
	DefaultBaseURL = "https://api.upbit.com/v1"

	// Upbit's public quotation endpoints allow 10 req/s per IP.
	rateLimitKey    = "upbit"
	rateLimitCalls  = 10
	rateLimitWindow = time.Second
)

// Client is the REST client for the Upbit exchange API. Private endpoints are
// authenticated with an HS256 JWT carrying a SHA-512 hash of the query
// string.
type Client struct {
	baseURL    string
	accessKey  string
	secretKey  string
	takerFee   float64
	httpClient *http.Client
	limiter    market.Limiter
}

var _ domain.MarketClient = (*Client)(nil)

// NewClient creates an Upbit client. accessKey and secretKey may be empty
// for public-data-only use; limiter may be nil to disable call pacing.
func NewClient(baseURL, accessKey, secretKey string, takerFee float64, limiter market.Limiter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		accessKey: accessKey,
		secretKey: secretKey,
		takerFee:  takerFee,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: limiter,
	}
}

// Name returns the exchange identifier used in storage keys.
func (c *Client) Name() string { return "upbit" }

// TakerFee returns the configured taker fee rate.
func (c *Client) TakerFee() float64 { return c.takerFee }

// marketCode maps an asset symbol to Upbit's KRW market code, e.g. "bch" to
// "KRW-BCH".
func marketCode(currency string) string {
	return "KRW-" + strings.ToUpper(currency)
}

// GetTicker returns the latest trade price for the given currency.
func (c *Client) GetTicker(ctx context.Context, currency string) (domain.Ticker, error) {
	params := url.Values{"markets": {marketCode(currency)}}
	body, err := c.doPublic(ctx, "/ticker", params)
	if err != nil {
		return domain.Ticker{}, fmt.Errorf("upbit: get ticker %s: %w", currency, err)
	}

	var resp []struct {
		TradePrice float64 `json:"trade_price"`
		Timestamp  int64   `json:"timestamp"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Ticker{}, fmt.Errorf("upbit: decode ticker: %w", err)
	}
	if len(resp) == 0 {
		return domain.Ticker{}, fmt.Errorf("upbit: ticker %s: empty response", currency)
	}

	return domain.Ticker{
		Currency:    currency,
		Price:       resp[0].TradePrice,
		RequestTime: resp[0].Timestamp / 1000,
	}, nil
}

// GetOrderbook returns the current orderbook for the given currency. Asks
// come back ascending by price and bids descending, matching the snapshot
// contract.
func (c *Client) GetOrderbook(ctx context.Context, currency string) (domain.OrderbookSnapshot, error) {
	params := url.Values{"markets": {marketCode(currency)}}
	body, err := c.doPublic(ctx, "/orderbook", params)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("upbit: get orderbook %s: %w", currency, err)
	}

	var resp []struct {
		Timestamp int64 `json:"timestamp"`
		Units     []struct {
			AskPrice float64 `json:"ask_price"`
			BidPrice float64 `json:"bid_price"`
			AskSize  float64 `json:"ask_size"`
			BidSize  float64 `json:"bid_size"`
		} `json:"orderbook_units"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("upbit: decode orderbook: %w", err)
	}
	if len(resp) == 0 {
		return domain.OrderbookSnapshot{}, fmt.Errorf("upbit: orderbook %s: empty response", currency)
	}

	snap := domain.OrderbookSnapshot{
		Exchange:    c.Name(),
		Currency:    currency,
		RequestTime: resp[0].Timestamp / 1000,
		Asks:        make([]domain.PriceLevel, 0, len(resp[0].Units)),
		Bids:        make([]domain.PriceLevel, 0, len(resp[0].Units)),
	}
	for _, u := range resp[0].Units {
		snap.Asks = append(snap.Asks, domain.PriceLevel{Price: u.AskPrice, Size: u.AskSize})
		snap.Bids = append(snap.Bids, domain.PriceLevel{Price: u.BidPrice, Size: u.BidSize})
	}
	return snap, nil
}

// GetFilledOrders returns done orders for the currency between start and end
// epoch seconds.
func (c *Client) GetFilledOrders(ctx context.Context, currency string, start, end int64) ([]domain.FilledOrder, error) {
	params := url.Values{
		"market": {marketCode(currency)},
		"state":  {"done"},
	}
	body, err := c.doPrivate(ctx, http.MethodGet, "/orders", params)
	if err != nil {
		return nil, fmt.Errorf("upbit: get filled orders %s: %w", currency, err)
	}

	var resp []struct {
		Side      string `json:"side"`
		Price     string `json:"price"`
		Volume    string `json:"executed_volume"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("upbit: decode filled orders: %w", err)
	}

	var orders []domain.FilledOrder
	for _, o := range resp {
		createdAt, err := time.Parse(time.RFC3339, o.CreatedAt)
		if err != nil {
			continue
		}
		filledAt := createdAt.Unix()
		if filledAt < start || filledAt > end {
			continue
		}

		price, _ := strconv.ParseFloat(o.Price, 64)
		amount, _ := strconv.ParseFloat(o.Volume, 64)
		side := "buy"
		if o.Side == "ask" {
			side = "sell"
		}
		orders = append(orders, domain.FilledOrder{
			Currency: currency,
			Side:     side,
			Price:    price,
			Amount:   amount,
			FilledAt: filledAt,
		})
	}
	return orders, nil
}

// GetBalance returns available balances keyed by lowercase asset symbol.
func (c *Client) GetBalance(ctx context.Context) (map[string]float64, error) {
	body, err := c.doPrivate(ctx, http.MethodGet, "/accounts", nil)
	if err != nil {
		return nil, fmt.Errorf("upbit: get balance: %w", err)
	}

	var resp []struct {
		Currency string `json:"currency"`
		Balance  string `json:"balance"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("upbit: decode balance: %w", err)
	}

	balances := make(map[string]float64, len(resp))
	for _, acct := range resp {
		amount, err := strconv.ParseFloat(acct.Balance, 64)
		if err != nil {
			continue
		}
		balances[strings.ToLower(acct.Currency)] = amount
	}
	return balances, nil
}

// OrderLimitBuy places a limit bid order.
func (c *Client) OrderLimitBuy(ctx context.Context, currency string, price, amount float64) (domain.OrderRef, error) {
	return c.placeOrder(ctx, currency, "bid", price, amount)
}

// OrderLimitSell places a limit ask order.
func (c *Client) OrderLimitSell(ctx context.Context, currency string, price, amount float64) (domain.OrderRef, error) {
	return c.placeOrder(ctx, currency, "ask", price, amount)
}

func (c *Client) placeOrder(ctx context.Context, currency, side string, price, amount float64) (domain.OrderRef, error) {
	params := url.Values{
		"market":   {marketCode(currency)},
		"side":     {side},
		"volume":   {strconv.FormatFloat(amount, 'f', -1, 64)},
		"price":    {strconv.FormatFloat(price, 'f', -1, 64)},
		"ord_type": {"limit"},
	}
	body, err := c.doPrivate(ctx, http.MethodPost, "/orders", params)
	if err != nil {
		return domain.OrderRef{}, fmt.Errorf("upbit: place %s order %s: %w", side, currency, err)
	}

	var resp struct {
		UUID string `json:"uuid"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderRef{}, fmt.Errorf("upbit: decode order response: %w", err)
	}

	orderSide := "buy"
	if side == "ask" {
		orderSide = "sell"
	}
	return domain.OrderRef{ID: resp.UUID, Currency: currency, Side: orderSide}, nil
}

// CancelOrder cancels a placed order by its reference.
func (c *Client) CancelOrder(ctx context.Context, ref domain.OrderRef) error {
	params := url.Values{"uuid": {ref.ID}}
	if _, err := c.doPrivate(ctx, http.MethodDelete, "/order", params); err != nil {
		return fmt.Errorf("upbit: cancel order %s: %w", ref.ID, err)
	}
	return nil
}

func (c *Client) doPublic(ctx context.Context, path string, params url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, req)
}

func (c *Client) doPrivate(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	query := params.Encode()

	token, err := c.authToken(query)
	if err != nil {
		return nil, err
	}

	fullURL := c.baseURL + path
	var bodyReader io.Reader
	switch method {
	case http.MethodPost:
		bodyReader = bytes.NewBufferString(query)
	default:
		if query != "" {
			fullURL += "?" + query
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(ctx, req)
}

// authToken builds the HS256 JWT Upbit's private endpoints require. Requests
// with a query string additionally carry its SHA-512 hash in the claims.
func (c *Client) authToken(query string) (string, error) {
	if c.accessKey == "" || c.secretKey == "" {
		return "", fmt.Errorf("upbit: API credentials not configured")
	}

	claims := jwt.MapClaims{
		"access_key": c.accessKey,
		"nonce":      uuid.NewString(),
	}
	if query != "" {
		hash := sha512.Sum512([]byte(query))
		claims["query_hash"] = hex.EncodeToString(hash[:])
		claims["query_hash_alg"] = "SHA512"
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.secretKey))
	if err != nil {
		return "", fmt.Errorf("upbit: sign auth token: %w", err)
	}
	return token, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, rateLimitKey, rateLimitCalls, rateLimitWindow); err != nil {
			return nil, err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Name    string `json:"name"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &apiErr)
		return nil, fmt.Errorf("HTTP %d: %s (%s)", resp.StatusCode, apiErr.Error.Message, apiErr.Error.Name)
	}
	return body, nil
}
