package health

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cdts/execution/internal/venue"
	"github.com/cdts/execution/pkg/types"
)

const (
	errorTripThreshold   = 3
	staleTripThreshold   = 4
	latencyTripThreshold = 4

	// LatencyBreachMs is the round-trip threshold counted toward a
	// latency-streak circuit trip.
	LatencyBreachMs = 1800

	baseOpenDuration = 90 * time.Second
	maxOpenDuration  = 8 * time.Minute
	maxEscalation    = 5

	degradedBelow = 0.55
)

// venueCounters holds one venue's mutable health state. Each venue has its
// own lock; critical sections do no I/O.
type venueCounters struct {
	mu sync.Mutex

	total   int64
	success int64
	errors  int64
	stale   int64

	cumSuccessRTTMs int64

	consecutiveErrors         int
	consecutiveStale          int
	consecutiveLatencyBreach  int

	circuitOpenedAt time.Time
	reenableAt      time.Time
	reason          string

	// consecutiveCircuitOpens escalates the open duration across trips.
	// It survives circuit close; only clean successes pay it down.
	consecutiveCircuitOpens int
}

// Monitor tracks per-venue quote outcomes and trips a circuit breaker on
// failure, staleness, or latency streaks. Circuit state is reconciled
// lazily on access, never by a background timer.
type Monitor struct {
	mu     sync.RWMutex
	venues map[string]*venueCounters
	logger *logrus.Entry
	now    func() time.Time
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		venues: make(map[string]*venueCounters),
		logger: logrus.WithField("component", "venue-health"),
		now:    time.Now,
	}
}

func (m *Monitor) counters(venueName string) *venueCounters {
	name := venue.NormalizeName(venueName)

	m.mu.RLock()
	c, ok := m.venues[name]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.venues[name]; !ok {
		c = &venueCounters{}
		m.venues[name] = c
	}
	return c
}

// reconcile closes the circuit if its open window has elapsed. Streak
// counters and open timestamps reset; the escalation counter does not.
// Caller holds c.mu.
func (c *venueCounters) reconcile(now time.Time) {
	if c.reenableAt.IsZero() || now.Before(c.reenableAt) {
		return
	}
	c.consecutiveErrors = 0
	c.consecutiveStale = 0
	c.consecutiveLatencyBreach = 0
	c.circuitOpenedAt = time.Time{}
	c.reenableAt = time.Time{}
	c.reason = ""
}

// RecordQuote feeds one quote attempt outcome into the venue's counters
// and trips the circuit when a streak threshold is crossed.
func (m *Monitor) RecordQuote(s types.VenueQuoteSnapshot, hadError bool) {
	c := m.counters(s.Venue)
	now := m.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.reconcile(now)

	c.total++
	if hadError {
		c.errors++
		c.consecutiveErrors++
		c.consecutiveStale = 0
		c.consecutiveLatencyBreach = 0
	} else {
		c.success++
		c.cumSuccessRTTMs += s.RoundTripMs
		c.consecutiveErrors = 0

		if s.IsStale {
			c.stale++
			c.consecutiveStale++
		} else {
			c.consecutiveStale = 0
		}
		if s.RoundTripMs >= LatencyBreachMs {
			c.consecutiveLatencyBreach++
		} else {
			c.consecutiveLatencyBreach = 0
		}

		// A clean sample earns back one escalation credit.
		if !s.IsStale && s.RoundTripMs < LatencyBreachMs && c.consecutiveCircuitOpens > 0 {
			c.consecutiveCircuitOpens--
		}
	}

	if !c.reenableAt.IsZero() && now.Before(c.reenableAt) {
		// Already open; further samples never move reenableAt.
		return
	}

	reason := tripReason(c)
	if reason == "" {
		return
	}

	if c.consecutiveCircuitOpens < maxEscalation {
		c.consecutiveCircuitOpens++
	}
	openFor := baseOpenDuration * time.Duration(1<<(c.consecutiveCircuitOpens-1))
	if openFor > maxOpenDuration {
		openFor = maxOpenDuration
	}
	c.circuitOpenedAt = now
	c.reenableAt = now.Add(openFor)
	c.reason = reason

	m.logger.WithFields(logrus.Fields{
		"venue":      venue.NormalizeName(s.Venue),
		"reason":     reason,
		"open_for":   openFor.String(),
		"escalation": c.consecutiveCircuitOpens,
	}).Warn("circuit breaker opened")
}

func tripReason(c *venueCounters) string {
	switch {
	case c.consecutiveErrors >= errorTripThreshold:
		return "error-streak"
	case c.consecutiveStale >= staleTripThreshold:
		return "stale-streak"
	case c.consecutiveLatencyBreach >= latencyTripThreshold:
		return "latency-streak"
	}
	return ""
}

// IsTradable reports whether the venue's circuit is closed at the given
// instant.
func (m *Monitor) IsTradable(venueName string, now time.Time) bool {
	c := m.counters(venueName)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcile(now)
	return c.reenableAt.IsZero() || !now.Before(c.reenableAt)
}

// HasAnyTradableVenue reports whether at least one of the candidate venues
// has a closed circuit. Used as a pre-flight routing gate.
func (m *Monitor) HasAnyTradableVenue(venues []string, now time.Time) bool {
	for _, v := range venues {
		if m.IsTradable(v, now) {
			return true
		}
	}
	return false
}

// Snapshot derives the read-only health view for one venue.
func (m *Monitor) Snapshot(venueName string) types.VenueHealthSnapshot {
	c := m.counters(venueName)
	now := m.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcile(now)

	snap := types.VenueHealthSnapshot{
		Venue:          venue.NormalizeName(venueName),
		TotalSamples:   c.total,
		SuccessSamples: c.success,
		ErrorSamples:   c.errors,
		StaleSamples:   c.stale,
	}

	// Unseen venues score as healthy: nothing has gone wrong yet.
	successRatio := 1.0
	staleRatio := 0.0
	avgRTT := 0.0
	if c.total > 0 {
		successRatio = float64(c.success) / float64(c.total)
		staleRatio = float64(c.stale) / float64(c.total)
	}
	if c.success > 0 {
		avgRTT = float64(c.cumSuccessRTTMs) / float64(c.success)
	}

	snap.SuccessRatio = successRatio
	snap.StaleRatio = staleRatio
	snap.AvgRoundTripMs = avgRTT
	snap.HealthScore = clamp01(
		0.65*successRatio +
			0.25*(1-min1(staleRatio)) +
			0.10*(1-min1(avgRTT/2000)))
	snap.IsDegraded = snap.HealthScore < degradedBelow

	if !c.reenableAt.IsZero() && now.Before(c.reenableAt) {
		snap.CircuitBreakerOpen = true
		snap.CircuitOpenedAt = c.circuitOpenedAt
		snap.ReenableAt = c.reenableAt
		snap.Reason = c.reason
	}
	return snap
}

// Snapshots derives health views for every venue the monitor has seen.
func (m *Monitor) Snapshots() []types.VenueHealthSnapshot {
	m.mu.RLock()
	names := make([]string, 0, len(m.venues))
	for name := range m.venues {
		names = append(names, name)
	}
	m.mu.RUnlock()

	out := make([]types.VenueHealthSnapshot, 0, len(names))
	for _, name := range names {
		out = append(out, m.Snapshot(name))
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
