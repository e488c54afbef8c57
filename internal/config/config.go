package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/cdts/execution/pkg/types"
)

// Environment keys, resolved under the CDTS_ prefix.
const (
	keyExecutionMode          = "execution_mode"
	keyFeeTierAdjBps          = "fee_tier_adj_bps"
	keyFeeRebateBps           = "fee_rebate_bps"
	keySlippageBaseBps        = "slippage_base_bps"
	keyRoutingGrossEdgeBps    = "routing_expected_gross_edge_bps"
	keyFundingMinCarryBps     = "funding_min_carry_bps"
	keyFundingMinStability    = "funding_min_basis_stability"
	keyFundingMaxAgeMinutes   = "funding_max_age_minutes"
	keyRoutingDisabled        = "routing_disabled"
	keyDiagnosticsDisabled    = "routing_diagnostics_disabled"
	prefixFeeExtraBps         = "fee_extra_bps_"
	prefixSlippageExtraBps    = "slippage_extra_bps_"
)

// Config holds every environment-driven knob of the execution core. It is
// loaded once and passed by reference; components never read the
// environment themselves.
type Config struct {
	v *viper.Viper

	ExecutionMode               types.ExecutionMode
	FeeTierAdjustmentBps        decimal.Decimal
	FeeRebateBps                decimal.Decimal
	SlippageBaseBps             decimal.Decimal
	SlippageBaseSet             bool
	RoutingExpectedGrossEdgeBps decimal.Decimal
	FundingMinCarryBps          decimal.Decimal
	FundingMinBasisStability    float64
	FundingMaxAge               time.Duration
	RoutingDisabled             bool
	RoutingDiagnosticsDisabled  bool
}

// Load reads the CDTS_* environment into a Config, applying documented
// defaults for anything unset.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("CDTS")
	v.AutomaticEnv()

	v.SetDefault(keyExecutionMode, string(types.ModeMakerPreferred))
	v.SetDefault(keyFeeTierAdjBps, "0")
	v.SetDefault(keyFeeRebateBps, "0")
	v.SetDefault(keyRoutingGrossEdgeBps, "20")
	v.SetDefault(keyFundingMinCarryBps, "3")
	v.SetDefault(keyFundingMinStability, 0.6)
	v.SetDefault(keyFundingMaxAgeMinutes, 30)

	cfg := &Config{
		v:                           v,
		ExecutionMode:               parseMode(v.GetString(keyExecutionMode)),
		FeeTierAdjustmentBps:        bpsValue(v.GetString(keyFeeTierAdjBps)),
		FeeRebateBps:                bpsValue(v.GetString(keyFeeRebateBps)),
		RoutingExpectedGrossEdgeBps: bpsValue(v.GetString(keyRoutingGrossEdgeBps)),
		FundingMinCarryBps:          bpsValue(v.GetString(keyFundingMinCarryBps)),
		FundingMinBasisStability:    v.GetFloat64(keyFundingMinStability),
		FundingMaxAge:               time.Duration(v.GetInt(keyFundingMaxAgeMinutes)) * time.Minute,
		RoutingDisabled:             v.GetBool(keyRoutingDisabled),
		RoutingDiagnosticsDisabled:  v.GetBool(keyDiagnosticsDisabled),
	}

	if raw := v.GetString(keySlippageBaseBps); raw != "" {
		cfg.SlippageBaseBps = bpsValue(raw)
		cfg.SlippageBaseSet = true
	}

	return cfg
}

// FeeExtraBps returns the per-venue fee surcharge (CDTS_FEE_EXTRA_BPS_<VENUE>).
func (c *Config) FeeExtraBps(venue string) decimal.Decimal {
	return bpsValue(c.v.GetString(prefixFeeExtraBps + strings.ToLower(venue)))
}

// SlippageExtraBps returns the per-venue slippage surcharge
// (CDTS_SLIPPAGE_EXTRA_BPS_<VENUE>).
func (c *Config) SlippageExtraBps(venue string) decimal.Decimal {
	return bpsValue(c.v.GetString(prefixSlippageExtraBps + strings.ToLower(venue)))
}

func parseMode(raw string) types.ExecutionMode {
	if strings.EqualFold(strings.TrimSpace(raw), string(types.ModeTakerOnly)) {
		return types.ModeTakerOnly
	}
	return types.ModeMakerPreferred
}

// bpsValue parses a decimal bps string, treating blanks and garbage as zero.
// Config values never abort the process; a bad override is a no-op.
func bpsValue(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
