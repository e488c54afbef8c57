package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/cdts/execution/pkg/types"
)

// Venue adapts the Binance spot REST API to the VenueClient capability
// set. It is one concrete "exchange provider"; the execution core only
// sees the interface.
type Venue struct {
	client *binance.Client
}

// NewVenue creates a Binance venue client. Keys may be empty for
// market-data-only use.
func NewVenue(apiKey, apiSecret string, testnet bool) *Venue {
	client := binance.NewClient(apiKey, apiSecret)
	if testnet {
		client.BaseURL = "https://testnet.binance.vision/api"
	}
	return &Venue{client: client}
}

// Name returns the normalized venue identifier.
func (v *Venue) Name() string { return types.VenueBinance }

// denormalize maps any accepted symbol spelling (BTC-USDT, BTC/USDT,
// BTCUSDT) to Binance's concatenated form.
func denormalize(symbol string) string {
	r := strings.NewReplacer("-", "", "/", "")
	return strings.ToUpper(r.Replace(symbol))
}

// ListProducts returns every actively trading symbol.
func (v *Venue) ListProducts(ctx context.Context) ([]string, error) {
	info, err := v.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance exchange info: %w", err)
	}
	var symbols []string
	for _, s := range info.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		symbols = append(symbols, s.BaseAsset+"-"+s.QuoteAsset)
	}
	return symbols, nil
}

// GetCandles fetches OHLCV data for the window.
func (v *Venue) GetCandles(ctx context.Context, symbol string, granularityMin int, start, end time.Time) ([]types.Candle, error) {
	interval := fmt.Sprintf("%dm", granularityMin)
	switch granularityMin {
	case 60:
		interval = "1h"
	case 240:
		interval = "4h"
	case 1440:
		interval = "1d"
	}

	klines, err := v.client.NewKlinesService().
		Symbol(denormalize(symbol)).
		Interval(interval).
		StartTime(start.UnixMilli()).
		EndTime(end.UnixMilli()).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
	}

	candles := make([]types.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, types.Candle{
			OpenTime:  time.UnixMilli(k.OpenTime),
			Open:      parseDecimal(k.Open),
			High:      parseDecimal(k.High),
			Low:       parseDecimal(k.Low),
			Close:     parseDecimal(k.Close),
			Volume:    parseDecimal(k.Volume),
			CloseTime: time.UnixMilli(k.CloseTime),
		})
	}
	return candles, nil
}

// GetTicker returns top-of-book plus last trade for the symbol.
func (v *Venue) GetTicker(ctx context.Context, symbol string) (types.Ticker, error) {
	native := denormalize(symbol)

	books, err := v.client.NewListBookTickersService().Symbol(native).Do(ctx)
	if err != nil {
		return types.Ticker{}, fmt.Errorf("binance book ticker %s: %w", symbol, err)
	}

	ticker := types.Ticker{Symbol: symbol, Time: time.Now()}
	if len(books) > 0 {
		ticker.Bid = parseDecimal(books[0].BidPrice)
		ticker.Ask = parseDecimal(books[0].AskPrice)
	}

	if !ticker.HasBook() {
		prices, err := v.client.NewListPricesService().Symbol(native).Do(ctx)
		if err != nil {
			return types.Ticker{}, fmt.Errorf("binance price %s: %w", symbol, err)
		}
		if len(prices) > 0 {
			ticker.Last = parseDecimal(prices[0].Price)
		}
	}
	return ticker, nil
}

// GetFees derives maker/taker rates from the account's commission tier.
func (v *Venue) GetFees(ctx context.Context) (types.FeeSchedule, error) {
	account, err := v.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return types.FeeSchedule{}, fmt.Errorf("binance account: %w", err)
	}
	// Binance reports commissions scaled by 10^4 (10 = 0.1%).
	scale := decimal.NewFromInt(10000)
	return types.FeeSchedule{
		MakerRate: decimal.NewFromInt(account.MakerCommission).Div(scale),
		TakerRate: decimal.NewFromInt(account.TakerCommission).Div(scale),
	}, nil
}

// PlaceOrder submits an order once.
func (v *Venue) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	svc := v.client.NewCreateOrderService().
		Symbol(denormalize(req.Symbol)).
		Side(binance.SideType(strings.ToUpper(req.Side))).
		Type(binance.OrderType(strings.ToUpper(req.Type))).
		Quantity(req.Quantity.String())

	if strings.EqualFold(req.Type, "LIMIT") {
		tif := req.TimeInForce
		if tif == "" {
			tif = "GTC"
		}
		svc = svc.TimeInForce(binance.TimeInForceType(tif)).Price(req.Price.String())
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return types.OrderResult{}, fmt.Errorf("binance create order: %w", err)
	}

	result := types.OrderResult{
		OrderID:  strconv.FormatInt(res.OrderID, 10),
		Accepted: true,
		Filled:   parseDecimal(res.ExecutedQuantity),
		Message:  string(res.Status),
	}
	result.AvgFillPrice = avgFillPrice(res)
	return result, nil
}

func avgFillPrice(res *binance.CreateOrderResponse) decimal.Decimal {
	notional := decimal.Zero
	qty := decimal.Zero
	for _, f := range res.Fills {
		p := parseDecimal(f.Price)
		q := parseDecimal(f.Quantity)
		notional = notional.Add(p.Mul(q))
		qty = qty.Add(q)
	}
	if qty.IsPositive() {
		return notional.Div(qty)
	}
	return parseDecimal(res.Price)
}

// CancelOrder cancels by composite "SYMBOL:orderID" reference; Binance
// requires the symbol on cancellation.
func (v *Venue) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	symbol, id, found := strings.Cut(orderID, ":")
	if !found {
		return false, fmt.Errorf("binance cancel: order reference %q must be SYMBOL:ID", orderID)
	}
	numeric, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return false, fmt.Errorf("binance cancel: bad order id %q: %w", id, err)
	}

	_, err = v.client.NewCancelOrderService().
		Symbol(denormalize(symbol)).
		OrderID(numeric).
		Do(ctx)
	if err != nil {
		return false, fmt.Errorf("binance cancel order: %w", err)
	}
	return true, nil
}

// GetOpenOrders lists resting orders, optionally filtered by symbol.
func (v *Venue) GetOpenOrders(ctx context.Context, symbol string) ([]types.OpenOrder, error) {
	svc := v.client.NewListOpenOrdersService()
	if symbol != "" {
		svc = svc.Symbol(denormalize(symbol))
	}
	orders, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance open orders: %w", err)
	}

	out := make([]types.OpenOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, types.OpenOrder{
			OrderID:   strconv.FormatInt(o.OrderID, 10),
			Symbol:    o.Symbol,
			Side:      string(o.Side),
			Price:     parseDecimal(o.Price),
			Quantity:  parseDecimal(o.OrigQuantity),
			CreatedAt: time.UnixMilli(o.Time),
		})
	}
	return out, nil
}

// GetBalances returns non-zero free balances by asset.
func (v *Venue) GetBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	account, err := v.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance account: %w", err)
	}

	balances := make(map[string]decimal.Decimal)
	for _, b := range account.Balances {
		free := parseDecimal(b.Free)
		locked := parseDecimal(b.Locked)
		total := free.Add(locked)
		if total.IsPositive() {
			balances[b.Asset] = total
		}
	}
	return balances, nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
