// Package bithumb implements the market client for the Bithumb exchange.
package bithumb

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seoulquant/arbstreamer/internal/domain"
	"github.com/seoulquant/arbstreamer/internal/market"
)

const (
	// DefaultBaseURL is the Bithumb REST API root.
	DefaultBaseURL = "https://api.bithumb.com"

	rateLimitKey    = "bithumb"
	rateLimitCalls  = 15
	rateLimitWindow = time.Second
)

// Client is the REST client for the Bithumb exchange API. Private endpoints
// are form-encoded POSTs signed with HMAC-SHA512 over
// endpoint + NUL + query + NUL + nonce.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	takerFee   float64
	httpClient *http.Client
	limiter    market.Limiter
}

var _ domain.MarketClient = (*Client)(nil)

// NewClient creates a Bithumb client. apiKey and apiSecret may be empty for
// public-data-only use; limiter may be nil to disable call pacing.
func NewClient(baseURL, apiKey, apiSecret string, takerFee float64, limiter market.Limiter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		takerFee:  takerFee,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: limiter,
	}
}

// Name returns the exchange identifier used in storage keys.
func (c *Client) Name() string { return "bithumb" }

// TakerFee returns the configured taker fee rate.
func (c *Client) TakerFee() float64 { return c.takerFee }

func pairCode(currency string) string {
	return strings.ToUpper(currency) + "_KRW"
}

// GetTicker returns the latest closing price for the given currency.
func (c *Client) GetTicker(ctx context.Context, currency string) (domain.Ticker, error) {
	body, err := c.doPublic(ctx, "/public/ticker/"+pairCode(currency))
	if err != nil {
		return domain.Ticker{}, fmt.Errorf("bithumb: get ticker %s: %w", currency, err)
	}

	var resp struct {
		Data struct {
			ClosingPrice string `json:"closing_price"`
			Date         string `json:"date"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Ticker{}, fmt.Errorf("bithumb: decode ticker: %w", err)
	}

	price, err := strconv.ParseFloat(resp.Data.ClosingPrice, 64)
	if err != nil {
		return domain.Ticker{}, fmt.Errorf("bithumb: parse ticker price %q: %w", resp.Data.ClosingPrice, err)
	}
	ts, _ := strconv.ParseInt(resp.Data.Date, 10, 64)

	return domain.Ticker{
		Currency:    currency,
		Price:       price,
		RequestTime: ts / 1000,
	}, nil
}

// GetOrderbook returns the current orderbook for the given currency. Bithumb
// already orders asks ascending and bids descending.
func (c *Client) GetOrderbook(ctx context.Context, currency string) (domain.OrderbookSnapshot, error) {
	body, err := c.doPublic(ctx, "/public/orderbook/"+pairCode(currency))
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("bithumb: get orderbook %s: %w", currency, err)
	}

	var resp struct {
		Data struct {
			Timestamp string `json:"timestamp"`
			Asks      []struct {
				Price    string `json:"price"`
				Quantity string `json:"quantity"`
			} `json:"asks"`
			Bids []struct {
				Price    string `json:"price"`
				Quantity string `json:"quantity"`
			} `json:"bids"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("bithumb: decode orderbook: %w", err)
	}

	ts, _ := strconv.ParseInt(resp.Data.Timestamp, 10, 64)
	snap := domain.OrderbookSnapshot{
		Exchange:    c.Name(),
		Currency:    currency,
		RequestTime: ts / 1000,
		Asks:        make([]domain.PriceLevel, 0, len(resp.Data.Asks)),
		Bids:        make([]domain.PriceLevel, 0, len(resp.Data.Bids)),
	}
	for _, lvl := range resp.Data.Asks {
		price, _ := strconv.ParseFloat(lvl.Price, 64)
		size, _ := strconv.ParseFloat(lvl.Quantity, 64)
		snap.Asks = append(snap.Asks, domain.PriceLevel{Price: price, Size: size})
	}
	for _, lvl := range resp.Data.Bids {
		price, _ := strconv.ParseFloat(lvl.Price, 64)
		size, _ := strconv.ParseFloat(lvl.Quantity, 64)
		snap.Bids = append(snap.Bids, domain.PriceLevel{Price: price, Size: size})
	}
	return snap, nil
}

// GetFilledOrders returns completed transactions for the currency between
// start and end epoch seconds.
func (c *Client) GetFilledOrders(ctx context.Context, currency string, start, end int64) ([]domain.FilledOrder, error) {
	params := url.Values{
		"order_currency":   {strings.ToUpper(currency)},
		"payment_currency": {"KRW"},
		"searchGb":         {"0"},
	}
	body, err := c.doPrivate(ctx, "/info/user_transactions", params)
	if err != nil {
		return nil, fmt.Errorf("bithumb: get filled orders %s: %w", currency, err)
	}

	var resp struct {
		Data []struct {
			Search       string `json:"search"` // 1 = buy, 2 = sell
			TransferDate int64  `json:"transfer_date,string"`
			Units        string `json:"units"`
			Price        string `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("bithumb: decode filled orders: %w", err)
	}

	var orders []domain.FilledOrder
	for _, tx := range resp.Data {
		filledAt := tx.TransferDate / 1000000 // microseconds to seconds
		if filledAt < start || filledAt > end {
			continue
		}
		side := "buy"
		if tx.Search == "2" {
			side = "sell"
		}
		amount, _ := strconv.ParseFloat(strings.ReplaceAll(tx.Units, " ", ""), 64)
		price, _ := strconv.ParseFloat(strings.ReplaceAll(tx.Price, ",", ""), 64)
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
// Bithumb reports balances per field name ("available_krw", "available_btc").
func (c *Client) GetBalance(ctx context.Context) (map[string]float64, error) {
	params := url.Values{"currency": {"ALL"}}
	body, err := c.doPrivate(ctx, "/info/balance", params)
	if err != nil {
		return nil, fmt.Errorf("bithumb: get balance: %w", err)
	}

	var resp struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("bithumb: decode balance: %w", err)
	}

	balances := make(map[string]float64)
	for field, raw := range resp.Data {
		symbol, ok := strings.CutPrefix(field, "available_")
		if !ok {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}
		amount, err := strconv.ParseFloat(str, 64)
		if err != nil {
			continue
		}
		balances[strings.ToLower(symbol)] = amount
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
		"order_currency":   {strings.ToUpper(currency)},
		"payment_currency": {"KRW"},
		"units":            {strconv.FormatFloat(amount, 'f', -1, 64)},
		"price":            {strconv.FormatFloat(price, 'f', 0, 64)},
		"type":             {side},
	}
	body, err := c.doPrivate(ctx, "/trade/place", params)
	if err != nil {
		return domain.OrderRef{}, fmt.Errorf("bithumb: place %s order %s: %w", side, currency, err)
	}

	var resp struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderRef{}, fmt.Errorf("bithumb: decode order response: %w", err)
	}

	orderSide := "buy"
	if side == "ask" {
		orderSide = "sell"
	}
	return domain.OrderRef{ID: resp.OrderID, Currency: currency, Side: orderSide}, nil
}

// CancelOrder cancels a placed order by its reference.
func (c *Client) CancelOrder(ctx context.Context, ref domain.OrderRef) error {
	orderType := "bid"
	if ref.Side == "sell" {
		orderType = "ask"
	}
	params := url.Values{
		"order_id":         {ref.ID},
		"type":             {orderType},
		"order_currency":   {strings.ToUpper(ref.Currency)},
		"payment_currency": {"KRW"},
	}
	if _, err := c.doPrivate(ctx, "/trade/cancel", params); err != nil {
		return fmt.Errorf("bithumb: cancel order %s: %w", ref.ID, err)
	}
	return nil
}

func (c *Client) doPublic(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, req)
}

func (c *Client) doPrivate(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return nil, fmt.Errorf("bithumb: API credentials not configured")
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("endpoint", endpoint)
	query := params.Encode()
	nonce := strconv.FormatInt(time.Now().UnixMilli(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Api-Sign", c.sign(endpoint, query, nonce))
	req.Header.Set("Api-Nonce", nonce)

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	// Private endpoints report failure inside a 200 body.
	var status struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &status); err == nil && status.Status != "" && status.Status != "0000" {
		return nil, fmt.Errorf("API status %s: %s", status.Status, status.Message)
	}
	return body, nil
}

func (c *Client) sign(endpoint, query, nonce string) string {
	message := endpoint + "\x00" + query + "\x00" + nonce
	mac := hmac.New(sha512.New, []byte(c.apiSecret))
	mac.Write([]byte(message))
	hexDigest := hex.EncodeToString(mac.Sum(nil))
	return base64.StdEncoding.EncodeToString([]byte(hexDigest))
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
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
