package marketdata

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cdts/execution/pkg/types"
)

func newTestConverter(v *stubVenue) *CrossRateConverter {
	agg, _, _ := newTestAggregator(v)
	return NewCrossRateConverter(agg, agg.VenueNames(), nil)
}

func TestConverter_SameAssetReturnsAmount(t *testing.T) {
	c := newTestConverter(&stubVenue{name: "binance", tickers: map[string]types.Ticker{}})

	amount := decimal.RequireFromString("42.5")
	got := c.Convert(context.Background(), "usd", "USD", amount)
	assert.True(t, got.Equal(amount))
}

func TestConverter_DirectRate(t *testing.T) {
	c := newTestConverter(&stubVenue{name: "binance", tickers: map[string]types.Ticker{
		"BTC-USD": freshTicker("99", "101"),
	}})

	got := c.Convert(context.Background(), "BTC", "USD", decimal.NewFromInt(2))
	assert.True(t, got.Equal(decimal.NewFromInt(200)), "got=%s", got)
}

func TestConverter_InverseRate(t *testing.T) {
	c := newTestConverter(&stubVenue{name: "binance", tickers: map[string]types.Ticker{
		"BTC-USD": freshTicker("99", "101"),
	}})

	got := c.Convert(context.Background(), "USD", "BTC", decimal.NewFromInt(200))
	assert.True(t, got.Equal(decimal.NewFromInt(2)), "got=%s", got)
}

func TestConverter_TwoHopThroughHub(t *testing.T) {
	c := newTestConverter(&stubVenue{name: "binance", tickers: map[string]types.Ticker{
		"ETH-USD": freshTicker("1999", "2001"),
		"USD-DOG": freshTicker("9", "11"),
	}})

	// ETH -> USD -> DOG: 1 * 2000 * 10
	got := c.Convert(context.Background(), "ETH", "DOG", decimal.NewFromInt(1))
	assert.True(t, got.Equal(decimal.NewFromInt(20000)), "got=%s", got)
}

func TestConverter_UnresolvablePairConvertsToZero(t *testing.T) {
	c := newTestConverter(&stubVenue{name: "binance", tickers: map[string]types.Ticker{}})

	got := c.Convert(context.Background(), "XYZ", "ABC", decimal.NewFromInt(100))
	assert.True(t, got.IsZero())
}

func TestConverter_MidCachesWithinTTL(t *testing.T) {
	v := &stubVenue{name: "binance", tickers: map[string]types.Ticker{
		"BTC-USD": freshTicker("99", "101"),
	}}
	c := newTestConverter(v)

	first := c.Mid(context.Background(), "BTC", "USD")
	calls := v.calls
	second := c.Mid(context.Background(), "BTC", "USD")

	assert.True(t, first.Equal(second))
	assert.Equal(t, calls, v.calls, "second lookup must be served from cache")
}

func TestConverter_FallbackVenueAfterCompositeMiss(t *testing.T) {
	// Aggregator has no wired venues; only the direct fallback can price.
	agg, _, _ := newTestAggregator()
	fallback := &stubVenue{name: "coinbase", tickers: map[string]types.Ticker{
		"BTC-USD": freshTicker("99", "101"),
	}}
	c := NewCrossRateConverter(agg, agg.VenueNames(), fallback)

	got := c.Mid(context.Background(), "BTC", "USD")
	assert.True(t, got.Equal(decimal.RequireFromString("100")))

	key := "BTC-USD"
	v, ok := c.cache.Get(key)
	assert.True(t, ok)
	assert.Equal(t, fallbackConfidence, v.(cachedRate).Confidence)
}

func TestConverter_BadAssetCodeIsZero(t *testing.T) {
	c := newTestConverter(&stubVenue{name: "binance", tickers: map[string]types.Ticker{}})
	assert.True(t, c.Mid(context.Background(), "", "USD").IsZero())
	assert.True(t, c.Convert(context.Background(), " ", "USD", decimal.NewFromInt(1)).IsZero())
}
