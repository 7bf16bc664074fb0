package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// get performs a GET against a V5 endpoint and decodes the envelope's result into out.
func (c *RESTClient) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("bybit http %d: %s", resp.StatusCode, body)
	}

	var rawResp BybitResponse
	if err := json.NewDecoder(resp.Body).Decode(&rawResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rawResp.RetCode != 0 {
		return &APIError{Code: rawResp.RetCode, Message: rawResp.RetMsg}
	}

	if err := json.Unmarshal(rawResp.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// GetInstruments lists every instrument of a category, following the page cursor.
func (c *RESTClient) GetInstruments(ctx context.Context, category Category) ([]Instrument, error) {
	var out []Instrument
	cursor := ""
	for {
		q := url.Values{}
		q.Set("category", string(category))
		q.Set("limit", "1000")
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var page InstrumentListResponse
		if err := c.get(ctx, "/v5/market/instruments-info", q, &page); err != nil {
			return nil, err
		}
		out = append(out, page.List...)

		if page.NextPageCursor == "" || page.NextPageCursor == cursor {
			return out, nil
		}
		cursor = page.NextPageCursor
	}
}

// GetTickers returns 24h ticker statistics. An empty symbol returns the whole category.
func (c *RESTClient) GetTickers(ctx context.Context, category Category, symbol string) ([]Ticker, error) {
	q := url.Values{}
	q.Set("category", string(category))
	if symbol != "" {
		q.Set("symbol", symbol)
	}

	var result TickerListResponse
	if err := c.get(ctx, "/v5/market/tickers", q, &result); err != nil {
		return nil, err
	}
	return result.List, nil
}

// GetKlines returns up to limit klines, newest first, as Bybit orders them.
func (c *RESTClient) GetKlines(ctx context.Context, category Category, symbol string,
	interval KlineInterval, limit int) ([]Kline, error) {
	if !interval.IsValid() {
		return nil, fmt.Errorf("invalid KlineInterval: %s", interval)
	}

	q := url.Values{}
	q.Set("category", string(category))
	q.Set("symbol", symbol)
	q.Set("interval", string(interval))
	q.Set("limit", strconv.Itoa(limit))

	var result KlinesResponse
	if err := c.get(ctx, "/v5/market/kline", q, &result); err != nil {
		return nil, err
	}

	return ParseKlineList(interval, result.List), nil
}

// GetServerTime is the cheapest authenticated-free call; used as a connectivity probe.
func (c *RESTClient) GetServerTime(ctx context.Context) (time.Time, error) {
	var result ServerTimeResponse
	if err := c.get(ctx, "/v5/market/time", nil, &result); err != nil {
		return time.Time{}, err
	}

	sec, err := strconv.ParseInt(result.TimeSecond, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse server time: %w", err)
	}
	return time.Unix(sec, 0), nil
}
