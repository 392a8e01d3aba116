package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"momentum-scout/cache"
	"momentum-scout/config"
)

const requestTimeout = 30 * time.Second

// Client is the REST market data client. It consults the Redis price cache
// (fed by the websocket stream) before falling back to a REST lookup.
type Client struct {
	tradingURL string
	dataURL    string
	keyID      string
	secretKey  string
	httpClient *http.Client
	redis      *cache.RedisClient
}

// NewClient creates a new market data client
func NewClient(cfg *config.Config, redis *cache.RedisClient) *Client {
	return &Client{
		tradingURL: strings.TrimRight(cfg.TradingURL, "/"),
		dataURL:    strings.TrimRight(cfg.DataURL, "/"),
		keyID:      cfg.APIKeyID,
		secretKey:  cfg.APISecretKey,
		httpClient: &http.Client{Timeout: requestTimeout},
		redis:      redis,
	}
}

func (c *Client) doGet(ctx context.Context, rawURL string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("APCA-API-KEY-ID", c.keyID)
	req.Header.Set("APCA-API-SECRET-KEY", c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return json.Unmarshal(body, dest)
}

// TradableAssets returns the active US equity universe
func (c *Client) TradableAssets(ctx context.Context) ([]Asset, error) {
	endpoint := c.tradingURL + "/v2/assets?status=active&asset_class=us_equity"

	var assets []Asset
	if err := c.doGet(ctx, endpoint, &assets); err != nil {
		return nil, fmt.Errorf("TradableAssets: %w", err)
	}

	tradable := make([]Asset, 0, len(assets))
	for _, a := range assets {
		if a.Tradable {
			tradable = append(tradable, a)
		}
	}

	log.Printf("📋 Fetched %d tradable assets (%d total active)", len(tradable), len(assets))
	return tradable, nil
}

type barResponse struct {
	Bars          map[string][]rawBar `json:"bars"`
	NextPageToken *string             `json:"next_page_token"`
}

type rawBar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    int64     `json:"v"`
}

// DailyBars fetches daily bars for a batch of symbols. Pages through the
// response until the provider stops returning a next page token.
func (c *Client) DailyBars(ctx context.Context, symbols []string, start, end string) (map[string][]Bar, error) {
	if len(symbols) == 0 {
		return map[string][]Bar{}, nil
	}

	result := make(map[string][]Bar)
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("symbols", strings.Join(symbols, ","))
		params.Set("timeframe", "1Day")
		params.Set("start", start)
		params.Set("end", end)
		params.Set("adjustment", "raw")
		params.Set("limit", "10000")
		if pageToken != "" {
			params.Set("page_token", pageToken)
		}

		endpoint := c.dataURL + "/v2/stocks/bars?" + params.Encode()

		var page barResponse
		if err := c.doGet(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("DailyBars: %w", err)
		}

		for symbol, bars := range page.Bars {
			for _, b := range bars {
				result[symbol] = append(result[symbol], Bar{
					Symbol: symbol,
					Date:   b.Timestamp.Format("2006-01-02"),
					Open:   b.Open,
					High:   b.High,
					Low:    b.Low,
					Close:  b.Close,
					Volume: b.Volume,
				})
			}
		}

		if page.NextPageToken == nil || *page.NextPageToken == "" {
			break
		}
		pageToken = *page.NextPageToken
	}

	return result, nil
}

type latestTradeResponse struct {
	Symbol string `json:"symbol"`
	Trade  struct {
		Price float64 `json:"p"`
	} `json:"trade"`
}

// LatestPrice returns the most recent trade price for a symbol. Streamed
// prices in the cache win; the REST endpoint is the fallback.
func (c *Client) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	if price, ok := c.redis.GetPrice(ctx, symbol); ok {
		return price, nil
	}

	endpoint := c.dataURL + "/v2/stocks/" + url.PathEscape(symbol) + "/trades/latest"

	var resp latestTradeResponse
	if err := c.doGet(ctx, endpoint, &resp); err != nil {
		return 0, fmt.Errorf("LatestPrice %s: %w", symbol, ErrNoPrice)
	}
	if resp.Trade.Price <= 0 {
		return 0, fmt.Errorf("LatestPrice %s: %w", symbol, ErrNoPrice)
	}

	c.redis.SetPrice(ctx, symbol, resp.Trade.Price)
	return resp.Trade.Price, nil
}

type accountResponse struct {
	Equity string `json:"equity"`
}

// AccountEquity returns current account equity from the trading API
func (c *Client) AccountEquity(ctx context.Context) (float64, error) {
	endpoint := c.tradingURL + "/v2/account"

	var resp accountResponse
	if err := c.doGet(ctx, endpoint, &resp); err != nil {
		return 0, fmt.Errorf("AccountEquity: %w", err)
	}

	equity, err := strconv.ParseFloat(resp.Equity, 64)
	if err != nil {
		return 0, fmt.Errorf("AccountEquity: parse equity %q: %w", resp.Equity, err)
	}
	return equity, nil
}
