package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Staleness threshold for a single venue quote: age of the quote relative
// to the moment it was received.
const QuoteStaleAfter = 20 * time.Second

// VenueQuoteSnapshot is one venue's reading for one symbol, created per
// fetch attempt and never persisted.
type VenueQuoteSnapshot struct {
	Venue        string          `json:"venue"`
	Symbol       string          `json:"symbol"`
	Bid          decimal.Decimal `json:"bid"`
	Ask          decimal.Decimal `json:"ask"`
	Mid          decimal.Decimal `json:"mid"`
	QuoteTime    time.Time       `json:"quote_time"`
	ReceivedTime time.Time       `json:"received_time"`
	RoundTripMs  int64           `json:"round_trip_ms"`
	IsStale      bool            `json:"is_stale"`
	Source       string          `json:"source,omitempty"`
}

// Valid reports whether the snapshot carries a usable price.
func (s VenueQuoteSnapshot) Valid() bool {
	return s.Mid.IsPositive()
}

// CompositeQuote is the blended view across venues for one symbol,
// recomputed on every call.
type CompositeQuote struct {
	Symbol     string               `json:"symbol"`
	Mid        decimal.Decimal      `json:"mid"`
	BestVenue  string               `json:"best_venue,omitempty"`
	Confidence float64              `json:"confidence"`
	IsStale    bool                 `json:"is_stale"`
	Venues     []VenueQuoteSnapshot `json:"venues"`
}

// FundingSnapshot is a per-venue perpetual funding reading used by the
// funding carry detector.
type FundingSnapshot struct {
	Venue          string          `json:"venue"`
	Symbol         string          `json:"symbol"`
	FundingRateBps decimal.Decimal `json:"funding_rate_bps"`
	BasisBps       decimal.Decimal `json:"basis_bps"`
	CapturedAt     time.Time       `json:"captured_at"`
}
