package marketdata

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cdts/execution/pkg/cache"
	"github.com/cdts/execution/pkg/types"
)

const (
	rateCacheTTL       = 15 * time.Second
	fallbackConfidence = 0.25
)

// hubAssets are the fixed intermediate assets for two-hop conversion.
var hubAssets = []string{"USD", "USDC", "USDT", "BTC"}

// cachedRate is one resolved conversion rate.
type cachedRate struct {
	Rate       decimal.Decimal
	Venue      string
	Confidence float64
}

// CrossRateConverter resolves mid rates for arbitrary asset pairs through
// the aggregator, with a short-TTL cache and a single-venue direct
// fallback. It never errors: an unresolvable pair converts to zero.
type CrossRateConverter struct {
	agg      *Aggregator
	cache    *cache.TTLCache
	venues   []string
	fallback types.VenueClient
	logger   *logrus.Entry
}

// NewCrossRateConverter builds a converter over a fixed venue set.
// fallback may be nil; when present it serves reduced-confidence direct
// quotes after a composite miss.
func NewCrossRateConverter(agg *Aggregator, venues []string, fallback types.VenueClient) *CrossRateConverter {
	return &CrossRateConverter{
		agg:      agg,
		cache:    cache.NewTTLCache(),
		venues:   venues,
		fallback: fallback,
		logger:   logrus.WithField("component", "cross-rate"),
	}
}

// Mid returns the current mid rate for base/quote, or zero when no venue
// can price the pair.
func (c *CrossRateConverter) Mid(ctx context.Context, base, quote string) decimal.Decimal {
	pair, err := types.ParsePair(base, quote)
	if err != nil {
		return decimal.Zero
	}
	key := pair.String()

	if v, ok := c.cache.Get(key); ok {
		return v.(cachedRate).Rate
	}

	composite := c.agg.GetCompositeQuote(ctx, pair.Base, pair.Quote, c.venues)
	if composite.Mid.IsPositive() {
		c.cache.Set(key, cachedRate{
			Rate:       composite.Mid,
			Venue:      composite.BestVenue,
			Confidence: composite.Confidence,
		}, rateCacheTTL)
		return composite.Mid
	}

	if rate, venueName, ok := c.directMid(ctx, pair); ok {
		c.cache.Set(key, cachedRate{Rate: rate, Venue: venueName, Confidence: fallbackConfidence}, rateCacheTTL)
		return rate
	}

	return decimal.Zero
}

// directMid asks the fallback venue alone, bypassing composites.
func (c *CrossRateConverter) directMid(ctx context.Context, pair types.Pair) (decimal.Decimal, string, bool) {
	if c.fallback == nil {
		return decimal.Zero, "", false
	}
	for _, variant := range types.SymbolVariants(c.fallback.Name(), pair) {
		ticker, err := c.fallback.GetTicker(ctx, variant)
		if err != nil {
			continue
		}
		if ticker.HasBook() {
			return ticker.Bid.Add(ticker.Ask).Div(decimal.NewFromInt(2)), c.fallback.Name(), true
		}
		if ticker.Last.IsPositive() {
			return ticker.Last, c.fallback.Name(), true
		}
	}
	return decimal.Zero, "", false
}

// Convert turns amount units of from into to, trying the direct rate, the
// inverse rate, then a two-hop path through the hub assets. Returns zero
// when nothing resolves; never an error or NaN.
func (c *CrossRateConverter) Convert(ctx context.Context, from, to string, amount decimal.Decimal) decimal.Decimal {
	fromPair, err := types.ParsePair(from, to)
	if err != nil {
		return decimal.Zero
	}
	from, to = fromPair.Base, fromPair.Quote

	if from == to {
		return amount
	}

	if rate := c.Mid(ctx, from, to); rate.IsPositive() {
		return amount.Mul(rate)
	}

	if inverse := c.Mid(ctx, to, from); inverse.IsPositive() {
		return amount.Div(inverse)
	}

	for _, hub := range hubAssets {
		if hub == from || hub == to {
			continue
		}
		leg1 := c.Mid(ctx, from, hub)
		if !leg1.IsPositive() {
			continue
		}
		leg2 := c.Mid(ctx, hub, to)
		if !leg2.IsPositive() {
			continue
		}
		return amount.Mul(leg1).Mul(leg2)
	}

	return decimal.Zero
}
