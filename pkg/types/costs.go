package types

import "github.com/shopspring/decimal"

// ExecutionMode selects which side of the fee schedule a round trip is
// assumed to pay.
type ExecutionMode string

const (
	// ModeMakerPreferred assumes entry as maker, exit as taker.
	ModeMakerPreferred ExecutionMode = "maker-preferred"
	// ModeTakerOnly assumes both legs cross the spread.
	ModeTakerOnly ExecutionMode = "taker-only"
)

// ExecutionCostAssumptions is the pure derived cost view for one venue:
// no identity, no hidden state.
type ExecutionCostAssumptions struct {
	Venue                string          `json:"venue"`
	ExecutionMode        ExecutionMode   `json:"execution_mode"`
	RoundTripFeeBps      decimal.Decimal `json:"round_trip_fee_bps"`
	SlippageBps          decimal.Decimal `json:"slippage_bps"`
	RoundTripTotalBps    decimal.Decimal `json:"round_trip_total_bps"`
	FeeTierAdjustmentBps decimal.Decimal `json:"fee_tier_adjustment_bps"`
	RebateBps            decimal.Decimal `json:"rebate_bps"`
}
