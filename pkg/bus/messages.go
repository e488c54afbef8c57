package bus

import (
	"time"

	"github.com/cdts/execution/pkg/types"
)

// RoutingDecisionMessage wraps a routing decision for transport.
type RoutingDecisionMessage struct {
	Decision  types.RoutingDecision `json:"decision"`
	Timestamp time.Time             `json:"timestamp"`
}

// SpreadOpportunityMessage carries one spread divergence scan.
type SpreadOpportunityMessage struct {
	Symbol        string                              `json:"symbol"`
	Opportunities []types.SpreadDivergenceOpportunity `json:"opportunities"`
	Timestamp     time.Time                           `json:"timestamp"`
}

// FundingOpportunityMessage carries one funding carry scan.
type FundingOpportunityMessage struct {
	Opportunities []types.FundingCarryOpportunity `json:"opportunities"`
	Timestamp     time.Time                       `json:"timestamp"`
}

// VenueHealthMessage carries the current venue health projection.
type VenueHealthMessage struct {
	Venues    []types.VenueHealthSnapshot `json:"venues"`
	Disabled  []types.DisabledVenueState  `json:"disabled,omitempty"`
	Timestamp time.Time                   `json:"timestamp"`
}
