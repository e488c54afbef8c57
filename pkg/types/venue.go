package types

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Known venue identifiers. The core treats venue names as opaque lowercase
// strings; these constants exist so callers and tests agree on spelling.
const (
	VenueBinance  = "binance"
	VenueCoinbase = "coinbase"
	VenueKraken   = "kraken"
	VenueBitstamp = "bitstamp"
	VenueOKX      = "okx"
	VenueBybit    = "bybit"
)

// VenueClient is the capability set an external exchange provider exposes
// per venue. Implementations own transport, signing and request timeouts;
// the execution core never opens a connection itself.
type VenueClient interface {
	// Name returns the normalized venue identifier (e.g. "kraken").
	Name() string

	ListProducts(ctx context.Context) ([]string, error)
	GetCandles(ctx context.Context, symbol string, granularityMin int, start, end time.Time) ([]Candle, error)
	GetTicker(ctx context.Context, symbol string) (Ticker, error)
	GetFees(ctx context.Context) (FeeSchedule, error)

	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) (bool, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error)
	GetBalances(ctx context.Context) (map[string]decimal.Decimal, error)
}

// Ticker is a single top-of-book reading from one venue.
type Ticker struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	Last   decimal.Decimal `json:"last"`
	Time   time.Time       `json:"time"`
}

// HasBook reports whether both sides of the book were quoted.
func (t Ticker) HasBook() bool {
	return t.Bid.IsPositive() && t.Ask.IsPositive()
}

// Candle represents OHLCV data for one interval.
type Candle struct {
	OpenTime  time.Time       `json:"open_time"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	CloseTime time.Time       `json:"close_time"`
}

// FeeSchedule holds a venue's current maker/taker rates as fractions
// (0.001 = 10bps).
type FeeSchedule struct {
	MakerRate decimal.Decimal `json:"maker_rate"`
	TakerRate decimal.Decimal `json:"taker_rate"`
}

// OrderRequest is the minimal order shape the core forwards to a venue.
type OrderRequest struct {
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"` // BUY or SELL
	Type        string          `json:"type"` // LIMIT or MARKET
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price,omitempty"`
	TimeInForce string          `json:"time_in_force,omitempty"`
}

// OrderResult is the venue's acceptance report for an order.
type OrderResult struct {
	OrderID      string          `json:"order_id,omitempty"`
	Accepted     bool            `json:"accepted"`
	Filled       decimal.Decimal `json:"filled"`
	AvgFillPrice decimal.Decimal `json:"avg_fill_price"`
	Message      string          `json:"message,omitempty"`
}

// OpenOrder is a resting order reported by a venue.
type OpenOrder struct {
	OrderID   string          `json:"order_id"`
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
}
