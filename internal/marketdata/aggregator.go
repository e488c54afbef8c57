package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cdts/execution/internal/health"
	"github.com/cdts/execution/internal/venue"
	"github.com/cdts/execution/pkg/types"
)

// Aggregator fans one concurrent ticker fetch out per venue and blends the
// results into a composite quote. Every per-venue outcome, success or
// failure, is fed back into the health monitor.
type Aggregator struct {
	clients map[string]types.VenueClient
	monitor *health.Monitor
	geo     *venue.GeoBlockRegistry
	logger  *logrus.Entry
	now     func() time.Time
}

// NewAggregator wires the aggregator over a set of venue clients.
func NewAggregator(clients []types.VenueClient, monitor *health.Monitor, geo *venue.GeoBlockRegistry) *Aggregator {
	byName := make(map[string]types.VenueClient, len(clients))
	for _, c := range clients {
		byName[venue.NormalizeName(c.Name())] = c
	}
	return &Aggregator{
		clients: byName,
		monitor: monitor,
		geo:     geo,
		logger:  logrus.WithField("component", "quote-aggregator"),
		now:     time.Now,
	}
}

// VenueNames returns the normalized names of every wired venue.
func (a *Aggregator) VenueNames() []string {
	out := make([]string, 0, len(a.clients))
	for name := range a.clients {
		out = append(out, name)
	}
	return out
}

// GetCompositeQuote fetches the pair from every requested venue that is
// neither geo-disabled nor circuit-open and blends the valid readings.
// Partial and total failure both produce a composite, never an error: an
// empty safe set or zero valid snapshots yield a stale zero-mid result.
func (a *Aggregator) GetCompositeQuote(ctx context.Context, base, quote string, venues []string) types.CompositeQuote {
	pair, err := types.ParsePair(base, quote)
	if err != nil {
		return types.CompositeQuote{Symbol: base + "-" + quote, IsStale: true, Venues: []types.VenueQuoteSnapshot{}}
	}
	symbol := pair.String()

	now := a.now()
	var safe []types.VenueClient
	for _, name := range venues {
		n := venue.NormalizeName(name)
		client, ok := a.clients[n]
		if !ok {
			continue
		}
		if a.geo.IsDisabled(n) || !a.monitor.IsTradable(n, now) {
			continue
		}
		safe = append(safe, client)
	}
	if len(safe) == 0 {
		return types.CompositeQuote{Symbol: symbol, IsStale: true, Venues: []types.VenueQuoteSnapshot{}}
	}

	snapshots := make([]types.VenueQuoteSnapshot, len(safe))
	var wg sync.WaitGroup
	for i, client := range safe {
		wg.Add(1)
		go func(i int, client types.VenueClient) {
			defer wg.Done()
			snapshots[i] = a.fetchVenueQuote(ctx, client, pair)
		}(i, client)
	}
	wg.Wait()

	return a.blend(symbol, snapshots)
}

// fetchVenueQuote tries the venue's symbol spellings in order until one
// returns a usable price, timing the whole attempt by wall clock.
func (a *Aggregator) fetchVenueQuote(ctx context.Context, client types.VenueClient, pair types.Pair) types.VenueQuoteSnapshot {
	name := venue.NormalizeName(client.Name())
	start := a.now()

	for _, variant := range types.SymbolVariants(name, pair) {
		if a.geo.IsDisabled(name) {
			break
		}

		ticker, err := client.GetTicker(ctx, variant)
		if err != nil {
			a.geo.TryDisableFromError(name, err)
			continue
		}
		if !ticker.HasBook() && !ticker.Last.IsPositive() {
			continue
		}

		received := a.now()
		snap := types.VenueQuoteSnapshot{
			Venue:        name,
			Symbol:       pair.String(),
			Bid:          ticker.Bid,
			Ask:          ticker.Ask,
			QuoteTime:    ticker.Time,
			ReceivedTime: received,
			RoundTripMs:  received.Sub(start).Milliseconds(),
			Source:       variant,
		}
		if ticker.HasBook() {
			snap.Mid = ticker.Bid.Add(ticker.Ask).Div(decimal.NewFromInt(2))
		} else {
			snap.Mid = ticker.Last
		}
		if snap.QuoteTime.IsZero() {
			snap.QuoteTime = received
		}
		snap.IsStale = received.Sub(snap.QuoteTime) > types.QuoteStaleAfter

		a.monitor.RecordQuote(snap, false)
		return snap
	}

	received := a.now()
	snap := types.VenueQuoteSnapshot{
		Venue:        name,
		Symbol:       pair.String(),
		ReceivedTime: received,
		RoundTripMs:  received.Sub(start).Milliseconds(),
		IsStale:      true,
	}
	a.monitor.RecordQuote(snap, true)
	return snap
}

// blend computes the composite from per-venue snapshots: unweighted mean
// mid over valid readings, best venue by latency among fresh quotes.
func (a *Aggregator) blend(symbol string, snapshots []types.VenueQuoteSnapshot) types.CompositeQuote {
	composite := types.CompositeQuote{Symbol: symbol, Venues: snapshots}

	var valid []types.VenueQuoteSnapshot
	for _, s := range snapshots {
		if s.Valid() {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		composite.IsStale = true
		return composite
	}

	sum := decimal.Zero
	staleCount := 0
	for _, s := range valid {
		sum = sum.Add(s.Mid)
		if s.IsStale {
			staleCount++
		}
	}
	composite.Mid = sum.Div(decimal.NewFromInt(int64(len(valid))))
	composite.IsStale = staleCount == len(valid)

	best := pickBestVenue(valid)
	composite.BestVenue = best.Venue

	staleRatio := float64(staleCount) / float64(len(valid))
	validWeight := float64(len(valid)) / 3.0
	if validWeight > 1 {
		validWeight = 1
	}
	composite.Confidence = clamp01((1 - staleRatio) * validWeight)

	return composite
}

// pickBestVenue prefers the lowest-latency fresh snapshot, ties broken by
// the most recent quote time; when everything is stale, lowest latency
// overall wins.
func pickBestVenue(valid []types.VenueQuoteSnapshot) types.VenueQuoteSnapshot {
	var fresh []types.VenueQuoteSnapshot
	for _, s := range valid {
		if !s.IsStale {
			fresh = append(fresh, s)
		}
	}
	pool := fresh
	if len(pool) == 0 {
		pool = valid
	}

	best := pool[0]
	for _, s := range pool[1:] {
		if s.RoundTripMs < best.RoundTripMs ||
			(s.RoundTripMs == best.RoundTripMs && s.QuoteTime.After(best.QuoteTime)) {
			best = s
		}
	}
	return best
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
