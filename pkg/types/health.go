package types

import "time"

// VenueHealthSnapshot is a read-only projection of one venue's counters.
type VenueHealthSnapshot struct {
	Venue              string    `json:"venue"`
	TotalSamples       int64     `json:"total_samples"`
	SuccessSamples     int64     `json:"success_samples"`
	ErrorSamples       int64     `json:"error_samples"`
	StaleSamples       int64     `json:"stale_samples"`
	SuccessRatio       float64   `json:"success_ratio"`
	StaleRatio         float64   `json:"stale_ratio"`
	AvgRoundTripMs     float64   `json:"avg_round_trip_ms"`
	HealthScore        float64   `json:"health_score"`
	IsDegraded         bool      `json:"is_degraded"`
	CircuitBreakerOpen bool      `json:"circuit_breaker_open"`
	CircuitOpenedAt    time.Time `json:"circuit_opened_at,omitempty"`
	ReenableAt         time.Time `json:"reenable_at,omitempty"`
	Reason             string    `json:"reason,omitempty"`
}

// DisabledVenueState records a permanent (process-lifetime) geo disable.
// Distinct from the circuit breaker: it is never cleared.
type DisabledVenueState struct {
	Venue         string    `json:"venue"`
	DisabledAtUTC time.Time `json:"disabled_at_utc"`
	Reason        string    `json:"reason"`
}
