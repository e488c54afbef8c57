package arbitrage

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cdts/execution/pkg/types"
)

var basisStabilityScaleBps = decimal.NewFromInt(50)

// FundingConfig sets the executability thresholds for funding carry.
type FundingConfig struct {
	MinCarryBps       decimal.Decimal
	MinBasisStability float64
}

// FundingCarryDetector groups funding snapshots by symbol and pairs the
// cheapest-funding venue (long leg) against the most expensive (short
// leg). Freshness of the inputs is the caller's responsibility; use
// FreshFundingSnapshots before invoking.
type FundingCarryDetector struct {
	cfg FundingConfig
	now func() time.Time
}

// NewFundingCarryDetector creates a detector with the given thresholds.
func NewFundingCarryDetector(cfg FundingConfig) *FundingCarryDetector {
	return &FundingCarryDetector{cfg: cfg, now: time.Now}
}

// Detect returns one candidate per symbol group with at least two venues,
// plus insufficient-depth markers for thin groups. Executable results sort
// first, then by expected carry descending.
func (d *FundingCarryDetector) Detect(snapshots []types.FundingSnapshot) []types.FundingCarryOpportunity {
	detectedAt := d.now().UTC()

	groups := make(map[string][]types.FundingSnapshot)
	for _, s := range snapshots {
		groups[s.Symbol] = append(groups[s.Symbol], s)
	}

	var opps []types.FundingCarryOpportunity
	for symbol, group := range groups {
		opps = append(opps, d.evaluateGroup(symbol, group, detectedAt))
	}

	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].IsExecutable != opps[j].IsExecutable {
			return opps[i].IsExecutable
		}
		if cmp := opps[i].ExpectedCarryBps.Cmp(opps[j].ExpectedCarryBps); cmp != 0 {
			return cmp > 0
		}
		return opps[i].Symbol < opps[j].Symbol
	})
	return opps
}

func (d *FundingCarryDetector) evaluateGroup(symbol string, group []types.FundingSnapshot, detectedAt time.Time) types.FundingCarryOpportunity {
	opp := types.FundingCarryOpportunity{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		DetectedAt: detectedAt,
	}

	if len(group) < 2 {
		opp.RejectReason = types.RejectInsufficientDepth
		return opp
	}

	long, short := group[0], group[0]
	for _, s := range group[1:] {
		if s.FundingRateBps.LessThan(long.FundingRateBps) {
			long = s
		}
		if s.FundingRateBps.GreaterThan(short.FundingRateBps) {
			short = s
		}
	}

	opp.LongVenue = long.Venue
	opp.ShortVenue = short.Venue
	opp.LongFundingBps = long.FundingRateBps
	opp.ShortFundingBps = short.FundingRateBps
	opp.ExpectedCarryBps = short.FundingRateBps.Sub(long.FundingRateBps)
	opp.BasisStability = basisStability(group)

	switch {
	case opp.ExpectedCarryBps.LessThan(d.cfg.MinCarryBps):
		opp.RejectReason = types.RejectFeesKill
	case opp.BasisStability < d.cfg.MinBasisStability:
		opp.RejectReason = types.RejectLatencyRisk
	default:
		opp.IsExecutable = true
	}
	return opp
}

// basisStability maps the mean absolute deviation of the group's basis
// readings onto [0,1]: 0 deviation is perfectly stable, 50bps or more is 0.
func basisStability(group []types.FundingSnapshot) float64 {
	n := decimal.NewFromInt(int64(len(group)))

	mean := decimal.Zero
	for _, s := range group {
		mean = mean.Add(s.BasisBps)
	}
	mean = mean.Div(n)

	mad := decimal.Zero
	for _, s := range group {
		mad = mad.Add(s.BasisBps.Sub(mean).Abs())
	}
	mad = mad.Div(n)

	ratio, _ := mad.Div(basisStabilityScaleBps).Float64()
	if ratio > 1 {
		ratio = 1
	}
	stability := 1 - ratio
	if stability < 0 {
		return 0
	}
	return stability
}

// FreshFundingSnapshots filters out readings older than maxAge. Detection
// is fail-closed on stale funding: callers drop aged inputs before Detect,
// and thin groups then reject as insufficient-depth.
func FreshFundingSnapshots(snapshots []types.FundingSnapshot, maxAge time.Duration, now time.Time) []types.FundingSnapshot {
	var fresh []types.FundingSnapshot
	for _, s := range snapshots {
		if now.Sub(s.CapturedAt) <= maxAge {
			fresh = append(fresh, s)
		}
	}
	return fresh
}
