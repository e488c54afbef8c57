package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpreadDivergenceOpportunity is one ordered (buy, sell) venue pair for a
// symbol, with the computed edge after costs. Mirror pairs are reported
// separately; direction is discovered, not deduplicated.
type SpreadDivergenceOpportunity struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	BuyVenue       string          `json:"buy_venue"`
	SellVenue      string          `json:"sell_venue"`
	BuyPrice       decimal.Decimal `json:"buy_price"`
	SellPrice      decimal.Decimal `json:"sell_price"`
	GrossSpreadBps decimal.Decimal `json:"gross_spread_bps"`
	NetEdgeBps     decimal.Decimal `json:"net_edge_bps"`
	IsExecutable   bool            `json:"is_executable"`
	RejectReason   RejectReason    `json:"reject_reason,omitempty"`
	DetectedAt     time.Time       `json:"detected_at"`
}

// FundingCarryOpportunity pairs the lowest- and highest-funding venues for
// one symbol: long the cheap-funding leg, short the expensive one.
type FundingCarryOpportunity struct {
	ID               string          `json:"id"`
	Symbol           string          `json:"symbol"`
	LongVenue        string          `json:"long_venue"`
	ShortVenue       string          `json:"short_venue"`
	LongFundingBps   decimal.Decimal `json:"long_funding_bps"`
	ShortFundingBps  decimal.Decimal `json:"short_funding_bps"`
	ExpectedCarryBps decimal.Decimal `json:"expected_carry_bps"`
	BasisStability   float64         `json:"basis_stability"`
	IsExecutable     bool            `json:"is_executable"`
	RejectReason     RejectReason    `json:"reject_reason,omitempty"`
	DetectedAt       time.Time       `json:"detected_at"`
}
