package bybit

import (
	"encoding/json"
	"fmt"
)

// BybitResponse is the envelope shared by every V5 REST endpoint.
type BybitResponse struct {
	RetCode    int                    `json:"retCode"` // 0 means success
	RetMsg     string                 `json:"retMsg"`
	Result     json.RawMessage        `json:"result"` // decoded per endpoint
	RetExtInfo map[string]interface{} `json:"retExtInfo"`
	Time       int64                  `json:"time"` // server timestamp, ms
}

// APIError is a non-zero retCode returned inside a 200 response.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bybit error %d: %s", e.Code, e.Message)
}

type Instrument struct {
	Symbol       string `json:"symbol"`       // e.g., "BTCUSDT"
	ContractType string `json:"contractType"` // e.g., "LinearPerpetual", "LinearFutures"
	Status       string `json:"status"`       // e.g., "Trading"
	BaseCoin     string `json:"baseCoin"`
	QuoteCoin    string `json:"quoteCoin"`
}

type InstrumentListResponse struct {
	Category       string       `json:"category"`
	NextPageCursor string       `json:"nextPageCursor"`
	List           []Instrument `json:"list"`
}

// Ticker keeps the numeric fields as the exchange sends them: decimal strings.
type Ticker struct {
	Symbol       string `json:"symbol"`
	LastPrice    string `json:"lastPrice"`
	Volume24h    string `json:"volume24h"`
	Turnover24h  string `json:"turnover24h"`
	Price24hPcnt string `json:"price24hPcnt"` // fraction, "0.0123" == 1.23%
	HighPrice24h string `json:"highPrice24h"`
	LowPrice24h  string `json:"lowPrice24h"`
}

type TickerListResponse struct {
	Category string   `json:"category"`
	List     []Ticker `json:"list"`
}

type KlinesResponse struct {
	Category string     `json:"category"`
	Symbol   string     `json:"symbol"`
	List     [][]string `json:"list"` // [start, open, high, low, close, volume, turnover], newest first
}

type ServerTimeResponse struct {
	TimeSecond string `json:"timeSecond"`
	TimeNano   string `json:"timeNano"`
}
