package router

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cdts/execution/pkg/types"
)

func candidate(venueName string, rttMs int64, stale bool, healthScore float64, feeBps, slipBps int64) ScoreInput {
	return ScoreInput{
		Snapshot: types.VenueQuoteSnapshot{
			Venue:       venueName,
			Mid:         decimal.NewFromInt(100),
			RoundTripMs: rttMs,
			IsStale:     stale,
		},
		Health: types.VenueHealthSnapshot{Venue: venueName, HealthScore: healthScore},
		Costs: types.ExecutionCostAssumptions{
			Venue:           venueName,
			RoundTripFeeBps: decimal.NewFromInt(feeBps),
			SlippageBps:     decimal.NewFromInt(slipBps),
		},
	}
}

func TestScoreVenues_NetEdgeArithmetic(t *testing.T) {
	gross := decimal.NewFromInt(20)
	scores := ScoreVenues(gross, []ScoreInput{
		candidate("binance", 100, false, 1.0, 15, 3),
	})

	// 20 - 15 - 3 - 100/100 - 0
	assert.True(t, scores[0].ExpectedNetEdgeBps.Equal(decimal.NewFromInt(1)), "net=%s", scores[0].ExpectedNetEdgeBps)
	assert.True(t, scores[0].IsEligible)
	assert.Equal(t, types.RejectNone, scores[0].RejectReason)
}

func TestScoreVenues_HealthPenalty(t *testing.T) {
	gross := decimal.NewFromInt(40)
	scores := ScoreVenues(gross, []ScoreInput{
		candidate("okx", 0, false, 0.5, 10, 3),
	})

	// 40 - 10 - 3 - 0 - (1-0.5)*25
	assert.True(t, scores[0].ExpectedNetEdgeBps.Equal(decimal.RequireFromString("14.5")), "net=%s", scores[0].ExpectedNetEdgeBps)
}

func TestScoreVenues_LatencyPenaltyIsCapped(t *testing.T) {
	gross := decimal.NewFromInt(100)

	mild := ScoreVenues(gross, []ScoreInput{candidate("a", 1500, false, 1.0, 0, 0)})
	assert.True(t, mild[0].ExpectedNetEdgeBps.Equal(decimal.NewFromInt(85)))

	// At 2000ms the raw penalty would hit the 30bps cap exactly.
	capped := ScoreVenues(gross, []ScoreInput{candidate("b", 2000, false, 1.0, 0, 0)})
	assert.True(t, capped[0].ExpectedNetEdgeBps.Equal(decimal.NewFromInt(80)))
	assert.True(t, capped[0].IsEligible)
}

func TestScoreVenues_EligibilityCheckOrder(t *testing.T) {
	gross := decimal.NewFromInt(5)

	// Stale beats latency beats fees.
	staleAndSlow := candidate("a", 3000, true, 1.0, 100, 3)
	slowAndExpensive := candidate("b", 3000, false, 1.0, 100, 3)
	expensive := candidate("c", 10, false, 1.0, 100, 3)

	scores := ScoreVenues(gross, []ScoreInput{staleAndSlow, slowAndExpensive, expensive})

	byVenue := make(map[string]types.VenueExecutionScore)
	for _, s := range scores {
		byVenue[s.Venue] = s
	}
	assert.Equal(t, types.RejectStaleQuote, byVenue["a"].RejectReason)
	assert.Equal(t, types.RejectLatencyRisk, byVenue["b"].RejectReason)
	assert.Equal(t, types.RejectFeesKill, byVenue["c"].RejectReason)
}

func TestScoreVenues_EligibleSortFirst(t *testing.T) {
	gross := decimal.NewFromInt(20)
	scores := ScoreVenues(gross, []ScoreInput{
		candidate("loser", 10, true, 1.0, 1, 1),   // stale, but huge raw edge
		candidate("winner", 10, false, 1.0, 15, 3),
	})

	assert.Equal(t, "winner", scores[0].Venue)
	assert.True(t, scores[0].IsEligible)
	assert.False(t, scores[1].IsEligible)
}

func TestScoreVenues_TieBreaksHealthThenLatency(t *testing.T) {
	gross := decimal.NewFromInt(20)
	scores := ScoreVenues(gross, []ScoreInput{
		candidate("slow", 200, false, 1.0, 10, 3),
		candidate("fast", 100, false, 1.0, 10, 3),
	})

	// Same fees; lower latency drag means a higher net edge.
	assert.Equal(t, "fast", scores[0].Venue)

	// Beyond the penalty cap the nets tie, so raw latency breaks it.
	tied := ScoreVenues(gross, []ScoreInput{
		candidate("slower", 4000, false, 1.0, 10, 3),
		candidate("slow", 3000, false, 1.0, 10, 3),
	})
	assert.Equal(t, "slow", tied[0].Venue)
	assert.True(t, tied[0].ExpectedNetEdgeBps.Equal(tied[1].ExpectedNetEdgeBps))
}

func TestScoreVenues_ZeroGrossEdgeNeverEligible(t *testing.T) {
	scores := ScoreVenues(decimal.Zero, []ScoreInput{
		candidate("binance", 0, false, 1.0, 0, 0),
	})
	assert.False(t, scores[0].IsEligible)
	assert.Equal(t, types.RejectFeesKill, scores[0].RejectReason)
}
