package types

import "github.com/shopspring/decimal"

// RejectReason codes carried by not-executable results. Boundaries return
// these instead of errors so callers always get a diagnosable answer.
type RejectReason string

const (
	RejectNone              RejectReason = ""
	RejectStaleQuote        RejectReason = "stale-quote"
	RejectLatencyRisk       RejectReason = "latency-risk"
	RejectFeesKill          RejectReason = "fees-kill"
	RejectSlippageKill      RejectReason = "slippage-kill"
	RejectInsufficientDepth RejectReason = "insufficient-depth"
	RejectSafeSetEmpty      RejectReason = "safe-set-empty-circuit-breaker"
	RejectNoEligibleVenue   RejectReason = "no-eligible-venue"
	RejectRoutingDisabled   RejectReason = "routing-disabled-env"
	RejectSymbolParse       RejectReason = "symbol-parse-failed"
	RejectQuoteFetchFailed  RejectReason = "quote-fetch-failed"
)

// VenueExecutionScore is the scored view of one candidate venue.
type VenueExecutionScore struct {
	Venue              string          `json:"venue"`
	ExpectedNetEdgeBps decimal.Decimal `json:"expected_net_edge_bps"`
	FeeDragBps         decimal.Decimal `json:"fee_drag_bps"`
	SlippageBudgetBps  decimal.Decimal `json:"slippage_budget_bps"`
	HealthScore        float64         `json:"health_score"`
	LatencyMs          int64           `json:"latency_ms"`
	IsEligible         bool            `json:"is_eligible"`
	RejectReason       RejectReason    `json:"reject_reason,omitempty"`
}

// RoutingDecision is the router's answer for one symbol: a primary venue,
// an optional fallback, and the full ranked candidate list for diagnostics.
type RoutingDecision struct {
	Symbol         string                `json:"symbol"`
	ChosenVenue    string                `json:"chosen_venue,omitempty"`
	FallbackVenue  string                `json:"fallback_venue,omitempty"`
	ChosenScoreBps decimal.Decimal       `json:"chosen_score_bps"`
	RankedVenues   []VenueExecutionScore `json:"ranked_venues"`
	Reason         RejectReason          `json:"reason,omitempty"`
}

// Routable reports whether the decision selected a venue.
func (d RoutingDecision) Routable() bool {
	return d.ChosenVenue != ""
}
