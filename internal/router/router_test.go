package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cdts/execution/internal/config"
	"github.com/cdts/execution/internal/costs"
	"github.com/cdts/execution/internal/health"
	"github.com/cdts/execution/internal/marketdata"
	"github.com/cdts/execution/internal/venue"
	"github.com/cdts/execution/pkg/types"
)

// stubVenue answers tickers and fees from fixed values.
type stubVenue struct {
	name      string
	ticker    types.Ticker
	tickerErr error
	fees      types.FeeSchedule
	feesErr   error
}

func (s *stubVenue) Name() string { return s.name }

func (s *stubVenue) GetTicker(ctx context.Context, symbol string) (types.Ticker, error) {
	if s.tickerErr != nil {
		return types.Ticker{}, s.tickerErr
	}
	return s.ticker, nil
}

func (s *stubVenue) GetFees(ctx context.Context) (types.FeeSchedule, error) {
	if s.feesErr != nil {
		return types.FeeSchedule{}, s.feesErr
	}
	return s.fees, nil
}

func (s *stubVenue) ListProducts(ctx context.Context) ([]string, error) { return nil, nil }
func (s *stubVenue) GetCandles(ctx context.Context, symbol string, granularityMin int, start, end time.Time) ([]types.Candle, error) {
	return nil, nil
}
func (s *stubVenue) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	return types.OrderResult{}, errors.New("not supported")
}
func (s *stubVenue) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	return false, nil
}
func (s *stubVenue) GetOpenOrders(ctx context.Context, symbol string) ([]types.OpenOrder, error) {
	return nil, nil
}
func (s *stubVenue) GetBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	return nil, nil
}

func freshTicker(bid, ask string) types.Ticker {
	return types.Ticker{
		Bid:  decimal.RequireFromString(bid),
		Ask:  decimal.RequireFromString(ask),
		Time: time.Now().UTC(),
	}
}

func cheapFees() types.FeeSchedule {
	return types.FeeSchedule{
		MakerRate: decimal.RequireFromString("0.0005"),
		TakerRate: decimal.RequireFromString("0.001"),
	}
}

func richFees() types.FeeSchedule {
	return types.FeeSchedule{
		MakerRate: decimal.RequireFromString("0.001"),
		TakerRate: decimal.RequireFromString("0.002"),
	}
}

type routerFixture struct {
	router  *SmartOrderRouter
	monitor *health.Monitor
	geo     *venue.GeoBlockRegistry
	venues  []string
}

func newFixture(t *testing.T, clients ...types.VenueClient) *routerFixture {
	t.Helper()
	cfg := config.Load()
	monitor := health.NewMonitor()
	geo := venue.NewGeoBlockRegistry()
	agg := marketdata.NewAggregator(clients, monitor, geo)
	r := NewSmartOrderRouter(agg, monitor, geo, costs.NewModel(cfg), cfg, clients)

	names := make([]string, 0, len(clients))
	for _, c := range clients {
		names = append(names, c.Name())
	}
	return &routerFixture{router: r, monitor: monitor, geo: geo, venues: names}
}

func TestRoute_PicksCheapestHealthyVenue(t *testing.T) {
	fx := newFixture(t,
		&stubVenue{name: "binance", ticker: freshTicker("99", "101"), fees: cheapFees()},
		&stubVenue{name: "kraken", ticker: freshTicker("100", "102"), fees: richFees()},
	)

	d := fx.router.Route(context.Background(), "BTC", "USD", fx.venues)

	// binance: 20 - 15 - 3 = 2bps. kraken: 20 - 30 - 3 = -13bps.
	assert.True(t, d.Routable())
	assert.Equal(t, "binance", d.ChosenVenue)
	assert.Empty(t, d.FallbackVenue)
	// Stub round trips take ~0ms, so the latency drag is negligible.
	assert.True(t, d.ChosenScoreBps.Sub(decimal.NewFromInt(2)).Abs().LessThan(decimal.RequireFromString("0.5")), "score=%s", d.ChosenScoreBps)
	assert.Len(t, d.RankedVenues, 2)
	assert.Equal(t, types.RejectFeesKill, d.RankedVenues[1].RejectReason)
}

func TestRoute_FallbackIsSecondEligible(t *testing.T) {
	cheaper := types.FeeSchedule{
		MakerRate: decimal.RequireFromString("0.0004"),
		TakerRate: decimal.RequireFromString("0.0006"),
	}
	fx := newFixture(t,
		&stubVenue{name: "binance", ticker: freshTicker("99", "101"), fees: cheapFees()},
		&stubVenue{name: "kraken", ticker: freshTicker("100", "102"), fees: cheaper},
	)

	d := fx.router.Route(context.Background(), "BTC", "USD", fx.venues)

	assert.Equal(t, "kraken", d.ChosenVenue)
	assert.Equal(t, "binance", d.FallbackVenue)
}

func TestRoute_NeverChoosesIneligibleVenue(t *testing.T) {
	old := time.Now().UTC().Add(-time.Minute)
	fx := newFixture(t,
		&stubVenue{name: "binance", ticker: types.Ticker{
			Bid:  decimal.RequireFromString("99"),
			Ask:  decimal.RequireFromString("101"),
			Time: old,
		}, fees: cheapFees()},
	)

	d := fx.router.Route(context.Background(), "BTC", "USD", fx.venues)

	assert.False(t, d.Routable())
	assert.Equal(t, types.RejectStaleQuote, d.Reason)
	assert.Len(t, d.RankedVenues, 1)
	assert.False(t, d.RankedVenues[0].IsEligible)
}

func TestRoute_SymbolParseFailure(t *testing.T) {
	fx := newFixture(t, &stubVenue{name: "binance", ticker: freshTicker("99", "101"), fees: cheapFees()})

	d := fx.router.Route(context.Background(), "", "USD", fx.venues)
	assert.Equal(t, types.RejectSymbolParse, d.Reason)
	assert.False(t, d.Routable())
}

func TestRoute_RoutingDisabledByEnv(t *testing.T) {
	t.Setenv("CDTS_ROUTING_DISABLED", "true")
	fx := newFixture(t, &stubVenue{name: "binance", ticker: freshTicker("99", "101"), fees: cheapFees()})

	d := fx.router.Route(context.Background(), "BTC", "USD", fx.venues)
	assert.Equal(t, types.RejectRoutingDisabled, d.Reason)
}

func TestRoute_SafeSetEmptyWhenAllCircuitsOpen(t *testing.T) {
	fx := newFixture(t, &stubVenue{name: "binance", ticker: freshTicker("99", "101"), fees: cheapFees()})

	for i := 0; i < 3; i++ {
		fx.monitor.RecordQuote(types.VenueQuoteSnapshot{Venue: "binance"}, true)
	}

	d := fx.router.Route(context.Background(), "BTC", "USD", fx.venues)
	assert.Equal(t, types.RejectSafeSetEmpty, d.Reason)
	assert.False(t, d.Routable())
}

func TestRoute_QuoteFetchFailed(t *testing.T) {
	fx := newFixture(t, &stubVenue{name: "binance", tickerErr: errors.New("connection reset")})

	d := fx.router.Route(context.Background(), "BTC", "USD", fx.venues)
	assert.Equal(t, types.RejectQuoteFetchFailed, d.Reason)
}

func TestRoute_DiagnosticsCanBeDisabled(t *testing.T) {
	t.Setenv("CDTS_ROUTING_DIAGNOSTICS_DISABLED", "true")
	fx := newFixture(t, &stubVenue{name: "binance", ticker: freshTicker("99", "101"), fees: cheapFees()})

	d := fx.router.Route(context.Background(), "BTC", "USD", fx.venues)
	assert.True(t, d.Routable())
	assert.Empty(t, d.RankedVenues)
}

func TestRoute_FeeFetchFailureUsesConservativeFallback(t *testing.T) {
	fx := newFixture(t, &stubVenue{
		name:    "binance",
		ticker:  freshTicker("99", "101"),
		feesErr: errors.New("HTTP 500"),
	})

	d := fx.router.Route(context.Background(), "BTC", "USD", fx.venues)

	// Fallback schedule: 20bps fees + 3bps slippage against a 20bps gross
	// edge leaves nothing, so the venue is rejected rather than guessed at.
	assert.False(t, d.Routable())
	assert.Equal(t, types.RejectFeesKill, d.Reason)
	assert.True(t, d.RankedVenues[0].FeeDragBps.Equal(decimal.NewFromInt(20)))
}

func TestRoute_GeoDisabledVenueIsExcluded(t *testing.T) {
	fx := newFixture(t,
		&stubVenue{name: "binance", ticker: freshTicker("99", "101"), fees: cheapFees()},
		&stubVenue{name: "kraken", ticker: freshTicker("100", "102"), fees: cheapFees()},
	)
	fx.geo.TryDisableFromError("kraken", errors.New("HTTP 403"))

	d := fx.router.Route(context.Background(), "BTC", "USD", fx.venues)

	assert.Equal(t, "binance", d.ChosenVenue)
	assert.Len(t, d.RankedVenues, 1)
}
