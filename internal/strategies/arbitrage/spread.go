package arbitrage

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cdts/execution/pkg/types"
)

const spreadLatencyRiskMs = 2000

var (
	defaultSpreadFeeBps      = decimal.NewFromInt(8)
	defaultSpreadSlippageBps = decimal.NewFromInt(5)

	bpsFactor = decimal.NewFromInt(10000)
)

// SpreadConfig holds the cost assumptions applied to every candidate pair.
type SpreadConfig struct {
	FeeBps      decimal.Decimal
	SlippageBps decimal.Decimal
}

// DefaultSpreadConfig returns the standard round-trip cost assumptions.
func DefaultSpreadConfig() SpreadConfig {
	return SpreadConfig{
		FeeBps:      defaultSpreadFeeBps,
		SlippageBps: defaultSpreadSlippageBps,
	}
}

// SpreadDivergenceDetector scans per-venue snapshots of one symbol for
// executable buy-low/sell-high pairs. Every ordered pair is evaluated,
// mirrors included: direction is discovered, not assumed.
type SpreadDivergenceDetector struct {
	cfg SpreadConfig
	now func() time.Time
}

// NewSpreadDivergenceDetector creates a detector with the given costs.
func NewSpreadDivergenceDetector(cfg SpreadConfig) *SpreadDivergenceDetector {
	return &SpreadDivergenceDetector{cfg: cfg, now: time.Now}
}

// Detect evaluates every ordered venue pair and returns all of them,
// executable first, then by net edge descending. Fewer than two snapshots
// yield a single insufficient-depth result.
func (d *SpreadDivergenceDetector) Detect(symbol string, snapshots []types.VenueQuoteSnapshot, minNetEdgeBps decimal.Decimal) []types.SpreadDivergenceOpportunity {
	detectedAt := d.now().UTC()

	if len(snapshots) < 2 {
		return []types.SpreadDivergenceOpportunity{{
			ID:           uuid.NewString(),
			Symbol:       symbol,
			RejectReason: types.RejectInsufficientDepth,
			DetectedAt:   detectedAt,
		}}
	}

	var opps []types.SpreadDivergenceOpportunity
	for i, buy := range snapshots {
		for j, sell := range snapshots {
			if i == j {
				continue
			}
			opps = append(opps, d.evaluatePair(symbol, buy, sell, minNetEdgeBps, detectedAt))
		}
	}

	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].IsExecutable != opps[j].IsExecutable {
			return opps[i].IsExecutable
		}
		return opps[i].NetEdgeBps.GreaterThan(opps[j].NetEdgeBps)
	})
	return opps
}

func (d *SpreadDivergenceDetector) evaluatePair(symbol string, buy, sell types.VenueQuoteSnapshot, minNetEdgeBps decimal.Decimal, detectedAt time.Time) types.SpreadDivergenceOpportunity {
	opp := types.SpreadDivergenceOpportunity{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		BuyVenue:   buy.Venue,
		SellVenue:  sell.Venue,
		DetectedAt: detectedAt,
	}

	buyPrice := buy.Ask
	if !buyPrice.IsPositive() {
		buyPrice = buy.Mid
	}
	sellPrice := sell.Bid
	if !sellPrice.IsPositive() {
		sellPrice = sell.Mid
	}
	if !buyPrice.IsPositive() || !sellPrice.IsPositive() {
		opp.RejectReason = types.RejectInsufficientDepth
		return opp
	}
	opp.BuyPrice = buyPrice
	opp.SellPrice = sellPrice

	if buy.IsStale || sell.IsStale {
		opp.RejectReason = types.RejectStaleQuote
		return opp
	}
	if buy.RoundTripMs > spreadLatencyRiskMs || sell.RoundTripMs > spreadLatencyRiskMs {
		opp.RejectReason = types.RejectLatencyRisk
		return opp
	}

	gross := sellPrice.Sub(buyPrice).Div(buyPrice).Mul(bpsFactor)
	net := gross.Sub(d.cfg.FeeBps).Sub(d.cfg.SlippageBps)
	opp.GrossSpreadBps = gross
	opp.NetEdgeBps = net

	switch {
	case !gross.IsPositive():
		opp.RejectReason = types.RejectInsufficientDepth
	case !net.IsPositive():
		opp.RejectReason = types.RejectFeesKill
	case net.LessThan(minNetEdgeBps):
		opp.RejectReason = types.RejectSlippageKill
	default:
		opp.IsExecutable = true
	}
	return opp
}
