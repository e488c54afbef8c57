package costs

import (
	"github.com/shopspring/decimal"

	"github.com/cdts/execution/internal/config"
	"github.com/cdts/execution/internal/venue"
	"github.com/cdts/execution/pkg/types"
)

var (
	bpsPerUnit = decimal.NewFromInt(10000)

	makerPreferredBaseSlipBps = decimal.NewFromInt(3)
	takerOnlyBaseSlipBps      = decimal.NewFromInt(7)
)

// Model turns a venue's fee schedule and the configured execution mode
// into round-trip cost assumptions. Build is a pure function of its inputs
// and the captured config: identical inputs always produce identical
// output.
type Model struct {
	cfg *config.Config
}

// NewModel captures the environment-driven cost configuration.
func NewModel(cfg *config.Config) *Model {
	return &Model{cfg: cfg}
}

// Mode returns the configured execution mode.
func (m *Model) Mode() types.ExecutionMode {
	return m.cfg.ExecutionMode
}

// Build derives fee and slippage assumptions for one venue.
func (m *Model) Build(venueName string, fees types.FeeSchedule) types.ExecutionCostAssumptions {
	name := venue.NormalizeName(venueName)
	mode := m.cfg.ExecutionMode

	var feeBps decimal.Decimal
	if mode == types.ModeTakerOnly {
		feeBps = fees.TakerRate.Add(fees.TakerRate).Mul(bpsPerUnit)
	} else {
		feeBps = fees.MakerRate.Add(fees.TakerRate).Mul(bpsPerUnit)
	}

	tierAdj := m.cfg.FeeTierAdjustmentBps
	rebate := m.cfg.FeeRebateBps
	feeBps = feeBps.Add(tierAdj).Add(m.cfg.FeeExtraBps(name)).Sub(rebate)
	if feeBps.IsNegative() {
		feeBps = decimal.Zero
	}

	baseSlip := makerPreferredBaseSlipBps
	if mode == types.ModeTakerOnly {
		baseSlip = takerOnlyBaseSlipBps
	}
	if m.cfg.SlippageBaseSet {
		baseSlip = m.cfg.SlippageBaseBps
	}
	slipBps := baseSlip.Add(m.cfg.SlippageExtraBps(name))
	if slipBps.IsNegative() {
		slipBps = decimal.Zero
	}

	return types.ExecutionCostAssumptions{
		Venue:                name,
		ExecutionMode:        mode,
		RoundTripFeeBps:      feeBps,
		SlippageBps:          slipBps,
		RoundTripTotalBps:    feeBps.Add(slipBps),
		FeeTierAdjustmentBps: tierAdj,
		RebateBps:            rebate,
	}
}
