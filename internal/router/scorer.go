package router

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cdts/execution/pkg/types"
)

const (
	// latencyRiskMs disqualifies a quote outright; below it, latency only
	// drags the score.
	latencyRiskMs = 2000

	maxLatencyPenaltyBps  = 30
	healthPenaltyScaleBps = 25
)

// ScoreInput bundles one candidate venue's inputs to the scorer.
type ScoreInput struct {
	Snapshot types.VenueQuoteSnapshot
	Health   types.VenueHealthSnapshot
	Costs    types.ExecutionCostAssumptions
}

// ScoreVenues ranks candidate venues by expected net edge after fees,
// slippage, and latency/health penalties. Eligibility is checked in order:
// staleness, then latency risk, then a non-positive net edge.
func ScoreVenues(grossEdgeBps decimal.Decimal, candidates []ScoreInput) []types.VenueExecutionScore {
	scores := make([]types.VenueExecutionScore, 0, len(candidates))
	for _, c := range candidates {
		scores = append(scores, scoreVenue(grossEdgeBps, c))
	}

	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.IsEligible != b.IsEligible {
			return a.IsEligible
		}
		if cmp := a.ExpectedNetEdgeBps.Cmp(b.ExpectedNetEdgeBps); cmp != 0 {
			return cmp > 0
		}
		if a.HealthScore != b.HealthScore {
			return a.HealthScore > b.HealthScore
		}
		return a.LatencyMs < b.LatencyMs
	})

	return scores
}

func scoreVenue(grossEdgeBps decimal.Decimal, c ScoreInput) types.VenueExecutionScore {
	latencyPenalty := decimal.NewFromInt(c.Snapshot.RoundTripMs).Div(decimal.NewFromInt(100))
	if latencyPenalty.GreaterThan(decimal.NewFromInt(maxLatencyPenaltyBps)) {
		latencyPenalty = decimal.NewFromInt(maxLatencyPenaltyBps)
	}

	healthPenalty := decimal.NewFromFloat((1 - c.Health.HealthScore) * healthPenaltyScaleBps)
	if healthPenalty.IsNegative() {
		healthPenalty = decimal.Zero
	}

	net := grossEdgeBps.
		Sub(c.Costs.RoundTripFeeBps).
		Sub(c.Costs.SlippageBps).
		Sub(latencyPenalty).
		Sub(healthPenalty)

	score := types.VenueExecutionScore{
		Venue:              c.Snapshot.Venue,
		ExpectedNetEdgeBps: net,
		FeeDragBps:         c.Costs.RoundTripFeeBps,
		SlippageBudgetBps:  c.Costs.SlippageBps,
		HealthScore:        c.Health.HealthScore,
		LatencyMs:          c.Snapshot.RoundTripMs,
	}

	switch {
	case c.Snapshot.IsStale:
		score.RejectReason = types.RejectStaleQuote
	case c.Snapshot.RoundTripMs > latencyRiskMs:
		score.RejectReason = types.RejectLatencyRisk
	case !net.IsPositive():
		score.RejectReason = types.RejectFeesKill
	default:
		score.IsEligible = true
	}

	return score
}
