package router

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cdts/execution/internal/config"
	"github.com/cdts/execution/internal/costs"
	"github.com/cdts/execution/internal/health"
	"github.com/cdts/execution/internal/marketdata"
	"github.com/cdts/execution/internal/venue"
	"github.com/cdts/execution/pkg/cache"
	"github.com/cdts/execution/pkg/types"
)

const feeCacheTTL = 5 * time.Minute

// fallbackFees is the conservative schedule assumed when a venue cannot
// report its fees: overestimating cost keeps routing fail-closed.
var fallbackFees = types.FeeSchedule{
	MakerRate: decimal.RequireFromString("0.001"),
	TakerRate: decimal.RequireFromString("0.001"),
}

// SmartOrderRouter ranks venues for a symbol and emits a primary/fallback
// routing decision. It never returns an error: when nothing is routable
// the decision carries the blocking reason instead.
type SmartOrderRouter struct {
	agg      *marketdata.Aggregator
	monitor  *health.Monitor
	geo      *venue.GeoBlockRegistry
	model    *costs.Model
	cfg      *config.Config
	clients  map[string]types.VenueClient
	feeCache *cache.TTLCache
	logger   *logrus.Entry
	now      func() time.Time
}

// NewSmartOrderRouter wires the router over the aggregator's venue set.
func NewSmartOrderRouter(
	agg *marketdata.Aggregator,
	monitor *health.Monitor,
	geo *venue.GeoBlockRegistry,
	model *costs.Model,
	cfg *config.Config,
	clients []types.VenueClient,
) *SmartOrderRouter {
	byName := make(map[string]types.VenueClient, len(clients))
	for _, c := range clients {
		byName[venue.NormalizeName(c.Name())] = c
	}
	return &SmartOrderRouter{
		agg:      agg,
		monitor:  monitor,
		geo:      geo,
		model:    model,
		cfg:      cfg,
		clients:  byName,
		feeCache: cache.NewTTLCache(),
		logger:   logrus.WithField("component", "smart-order-router"),
		now:      time.Now,
	}
}

// Route produces a routing decision for the pair across candidate venues.
func (r *SmartOrderRouter) Route(ctx context.Context, base, quote string, venues []string) types.RoutingDecision {
	pair, err := types.ParsePair(base, quote)
	if err != nil {
		return types.RoutingDecision{Symbol: base + "-" + quote, Reason: types.RejectSymbolParse}
	}
	decision := types.RoutingDecision{Symbol: pair.String()}

	if r.cfg.RoutingDisabled {
		decision.Reason = types.RejectRoutingDisabled
		return decision
	}
	if !r.monitor.HasAnyTradableVenue(venues, r.now()) {
		decision.Reason = types.RejectSafeSetEmpty
		return decision
	}

	composite := r.agg.GetCompositeQuote(ctx, pair.Base, pair.Quote, venues)

	var candidates []ScoreInput
	for _, snap := range composite.Venues {
		if !snap.Valid() {
			continue
		}
		candidates = append(candidates, ScoreInput{
			Snapshot: snap,
			Health:   r.monitor.Snapshot(snap.Venue),
			Costs:    r.model.Build(snap.Venue, r.feeSchedule(ctx, snap.Venue)),
		})
	}
	if len(candidates) == 0 {
		decision.Reason = types.RejectQuoteFetchFailed
		return decision
	}

	scores := ScoreVenues(r.cfg.RoutingExpectedGrossEdgeBps, candidates)
	if !r.cfg.RoutingDiagnosticsDisabled {
		decision.RankedVenues = scores
	}

	for _, s := range scores {
		if !s.IsEligible {
			continue
		}
		if decision.ChosenVenue == "" {
			decision.ChosenVenue = s.Venue
			decision.ChosenScoreBps = s.ExpectedNetEdgeBps
			continue
		}
		decision.FallbackVenue = s.Venue
		break
	}

	if decision.ChosenVenue == "" {
		// Surface the best candidate's blocker for diagnostics.
		decision.Reason = scores[0].RejectReason
		if decision.Reason == types.RejectNone {
			decision.Reason = types.RejectNoEligibleVenue
		}
	}

	return decision
}

// feeSchedule fetches (and briefly caches) a venue's fee schedule, falling
// back to the conservative default when the venue cannot answer.
func (r *SmartOrderRouter) feeSchedule(ctx context.Context, venueName string) types.FeeSchedule {
	name := venue.NormalizeName(venueName)
	if v, ok := r.feeCache.Get(name); ok {
		return v.(types.FeeSchedule)
	}

	client, ok := r.clients[name]
	if !ok {
		return fallbackFees
	}
	fees, err := client.GetFees(ctx)
	if err != nil {
		r.logger.WithError(err).WithField("venue", name).Debug("fee fetch failed, using fallback schedule")
		return fallbackFees
	}
	r.feeCache.Set(name, fees, feeCacheTTL)
	return fees
}
