package bus

import "strings"

// Subject naming convention:
// execution.{stream}.{detail}
// Examples:
// - execution.routing.decision.BTC-USD
// - execution.opportunity.spread.ETH-USD
// - execution.opportunity.funding
// - execution.venue.health
const (
	SubjectRoutingDecision    = "execution.routing.decision"
	SubjectSpreadOpportunity  = "execution.opportunity.spread"
	SubjectFundingOpportunity = "execution.opportunity.funding"
	SubjectVenueHealth        = "execution.venue.health"
	SubjectFundingSnapshot    = "execution.funding.snapshot"
)

// RoutingDecisionSubject returns the per-symbol routing subject.
func RoutingDecisionSubject(symbol string) string {
	return SubjectRoutingDecision + "." + sanitize(symbol)
}

// SpreadOpportunitySubject returns the per-symbol spread scan subject.
func SpreadOpportunitySubject(symbol string) string {
	return SubjectSpreadOpportunity + "." + sanitize(symbol)
}

// sanitize strips characters NATS treats as token separators.
func sanitize(symbol string) string {
	r := strings.NewReplacer("/", "-", ".", "-", " ", "")
	s := r.Replace(strings.ToUpper(symbol))
	if s == "" {
		return "UNKNOWN"
	}
	return s
}
